package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tripdesk/internal/common/config"
	"github.com/tripdesk/internal/common/db"
	"github.com/tripdesk/internal/common/discord"
	"github.com/tripdesk/internal/common/kvstore"
	"github.com/tripdesk/internal/common/logger"
	"github.com/tripdesk/internal/common/metrics"
	"github.com/tripdesk/internal/common/publisher"
	"github.com/tripdesk/internal/dashboard/query"
	"github.com/tripdesk/internal/dashboard/refresh"
	"github.com/tripdesk/internal/dashboard/trip"
	"github.com/tripdesk/internal/dashboard/viewstate"
	"github.com/tripdesk/internal/planning/catalog"
	"github.com/tripdesk/internal/planning/client"
	"github.com/tripdesk/internal/planning/mutation"
	"github.com/tripdesk/internal/session"
	"github.com/tripdesk/pkg/planning/models"
)

const bootstrapTimeout = 30 * time.Second

// app holds every wired component of one operator session
type app struct {
	cfg       *config.Config
	log       logger.Logger
	database  *db.DB
	redis     *redis.Client
	kv        kvstore.Store
	session   *session.Manager
	client    *client.Client
	metrics   *metrics.Collector
	catalog   *catalog.Service
	view      *viewstate.Store
	scheduler *refresh.Scheduler
	mutations *mutation.Service
	nats      *publisher.NATSPublisher
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger, token, zone string) (*app, error) {
	a := &app{cfg: cfg, log: log}

	if cfg.Store.Backend == "redis" || cfg.Redis.CacheCatalog {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
	}

	kv, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.kv = kv

	a.metrics = metrics.NewCollector(cfg.Refresh.Interval)

	a.session = session.NewManager(kv, cfg.API.Zone, log)
	if token == "" {
		token = cfg.Session.Token
	}
	if zone == "" {
		zone = cfg.Session.Zone
	}
	if err := a.session.Init(ctx, token, zone); err != nil {
		log.Warn("No session token, requests will be sent unauthenticated", "error", err)
	}

	a.client = client.New(cfg.API, a.session, log)
	profile := a.bootstrap(ctx)

	catalogOpts := []catalog.Option{
		catalog.WithMetrics(a.metrics),
		catalog.WithLanguage(profile.Language),
	}
	if cfg.Redis.CacheCatalog && a.redis != nil {
		catalogOpts = append(catalogOpts, catalog.WithRedisCache(a.redis, cfg.Redis.CatalogTTL))
	}
	a.catalog = catalog.NewService(a.client, log, catalogOpts...)
	clientID := profile.ClientID
	if clientID == 0 {
		clientID = query.DefaultClientID
	}
	a.catalog.Load(ctx, clientID)

	repo := viewstate.NewRepository(kvstore.NewScoped(kv, profile.PreferenceScope()), log)
	defaults := viewstate.DefaultPreferences(viewstate.DefaultFilters(time.Now().In(profile.Location())))
	a.view = viewstate.Open(ctx, repo, defaults, log)

	schedulerOpts := []refresh.Option{refresh.WithMetrics(a.metrics)}
	if cfg.NATS.URL != "" {
		a.nats, err = publisher.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log, a.metrics)
		if err != nil {
			log.Warn("NATS unavailable, refresh events disabled", "error", err)
		} else {
			schedulerOpts = append(schedulerOpts, refresh.WithPublisher(a.nats))
		}
	}
	if alerts := discord.NewClient(cfg.Logging.DiscordURL); alerts.Enabled() {
		schedulerOpts = append(schedulerOpts, refresh.WithAlerter(alerts))
	}

	a.scheduler = refresh.NewScheduler(cfg.Refresh,
		a.client,
		query.NewBuilder(profile, query.SystemClock),
		a.catalog,
		a.view,
		trip.NewNormalizer(cfg.Display.DefaultConsortium),
		log,
		schedulerOpts...,
	)

	a.mutations = mutation.NewService(a.client, a.profile, log, mutation.WithMetrics(a.metrics))

	return a, nil
}

// openStore picks the durable key-value backend
func (a *app) openStore(ctx context.Context) (kvstore.Store, error) {
	switch a.cfg.Store.Backend {
	case "memory":
		return kvstore.NewMemory(), nil
	case "postgres":
		database, err := db.New(ctx, a.cfg.Database.ConnectionString(), a.log)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.database = database
		return kvstore.NewPostgres(ctx, database)
	case "redis":
		return kvstore.NewRedis(a.redis), nil
	default:
		return nil, fmt.Errorf("%w: %s", kvstore.ErrUnknownBackend, a.cfg.Store.Backend)
	}
}

// bootstrap loads the user profile, falling back to the defaults when the
// user data cannot be fetched
func (a *app) bootstrap(ctx context.Context) session.Profile {
	ctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	profile, err := a.session.Bootstrap(ctx, a.client)
	if err == nil {
		return profile
	}

	a.log.Warn("Session bootstrap failed, using defaults", "error", err)
	profile = session.ProfileFromUserData(models.UserData{
		Conf: &models.UserConf{Lang: a.cfg.Display.Language},
	})
	if err := a.session.Populate(profile); err != nil && !errors.Is(err, session.ErrAlreadyPopulated) {
		a.log.Warn("Failed to populate session", "error", err)
	}
	return profile
}

func (a *app) profile() session.Profile {
	p, err := a.session.Profile()
	if err != nil {
		return session.Profile{}
	}
	return p
}

func (a *app) Close() {
	if a.scheduler != nil {
		a.scheduler.Close()
	}
	if a.nats != nil {
		a.nats.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.database != nil {
		a.database.Close()
	}
}
