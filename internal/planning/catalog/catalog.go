// Package catalog loads the lines and consortiums an operator can scope a
// query by. Each lookup fails independently.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"github.com/tripdesk/internal/common/logger"
	"github.com/tripdesk/pkg/planning/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	LookupLines       = "lines"
	LookupConsortiums = "consortiums"
)

// Lookup is implemented by the planning API client
type Lookup interface {
	Lines(ctx context.Context, clientID int64) ([]models.Line, error)
	Consortiums(ctx context.Context, clientID int64) ([]models.Consortium, error)
}

type Metrics interface {
	LookupFailedInc(lookup string)
	CacheHitInc(lookup string)
}

// Catalog is an immutable snapshot of both lookups
type Catalog struct {
	Lines          []models.Line
	Consortiums    []models.Consortium
	LinesErr       error
	ConsortiumsErr error
	LoadedAt       time.Time
}

// FindLine matches on _id first, then on the line number
func (c Catalog) FindLine(key string) (models.Line, bool) {
	if key == "" {
		return models.Line{}, false
	}
	for _, l := range c.Lines {
		if l.ID == key {
			return l, true
		}
	}
	for _, l := range c.Lines {
		if l.Numero == key {
			return l, true
		}
	}
	return models.Line{}, false
}

// FindConsortium matches on the consortium name
func (c Catalog) FindConsortium(name string) (models.Consortium, bool) {
	for _, cs := range c.Consortiums {
		if cs.Consorcio == name {
			return cs, true
		}
	}
	return models.Consortium{}, false
}

type Service struct {
	lookup  Lookup
	cache   *cache.Cache[string]
	logger  logger.Logger
	metrics Metrics
	lang    language.Tag

	mu      sync.RWMutex
	current Catalog
}

type Option func(*Service)

// WithRedisCache caches both lookups in Redis for ttl
func WithRedisCache(client *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		redisStore := redisstore.NewRedis(client, store.WithExpiration(ttl))
		s.cache = cache.New[string](redisStore)
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLanguage sets the collation used to sort lines by description
func WithLanguage(tag string) Option {
	return func(s *Service) {
		if t, err := language.Parse(tag); err == nil {
			s.lang = t
		}
	}
}

func NewService(lookup Lookup, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		lookup: lookup,
		logger: log,
		lang:   language.BrazilianPortuguese,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load runs both lookups concurrently and replaces the current snapshot
func (s *Service) Load(ctx context.Context, clientID int64) Catalog {
	var (
		wg  conc.WaitGroup
		cat = Catalog{LoadedAt: time.Now()}
	)

	wg.Go(func() {
		var lines []models.Line
		cat.LinesErr = s.cached(ctx, LookupLines, clientID, &lines, func() (interface{}, error) {
			return s.lookup.Lines(ctx, clientID)
		})
		if cat.LinesErr == nil {
			s.sortLines(lines)
			cat.Lines = lines
		}
	})

	wg.Go(func() {
		var consortiums []models.Consortium
		cat.ConsortiumsErr = s.cached(ctx, LookupConsortiums, clientID, &consortiums, func() (interface{}, error) {
			return s.lookup.Consortiums(ctx, clientID)
		})
		if cat.ConsortiumsErr == nil {
			cat.Consortiums = consortiums
		}
	})

	wg.Wait()

	for lookup, err := range map[string]error{LookupLines: cat.LinesErr, LookupConsortiums: cat.ConsortiumsErr} {
		if err != nil {
			s.logger.Error("Catalog lookup failed", "lookup", lookup, "client_id", clientID, "error", err)
			if s.metrics != nil {
				s.metrics.LookupFailedInc(lookup)
			}
		}
	}

	s.mu.Lock()
	// a failed lookup keeps the previously loaded list
	if cat.LinesErr != nil {
		cat.Lines = s.current.Lines
	}
	if cat.ConsortiumsErr != nil {
		cat.Consortiums = s.current.Consortiums
	}
	s.current = cat
	s.mu.Unlock()

	s.logger.Info("Catalog loaded", "lines", len(cat.Lines), "consortiums", len(cat.Consortiums))
	return cat
}

func (s *Service) Current() Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) sortLines(lines []models.Line) {
	col := collate.New(s.lang)
	sort.SliceStable(lines, func(i, j int) bool {
		return col.CompareString(lines[i].Descr, lines[j].Descr) < 0
	})
}

// cached decodes a cached value into out, or calls fetch and stores the result.
// Cache errors are treated as misses.
func (s *Service) cached(ctx context.Context, lookup string, clientID int64, out interface{}, fetch func() (interface{}, error)) error {
	key := fmt.Sprintf("tripdesk:catalog:%s:%d", lookup, clientID)

	if s.cache != nil {
		if value, err := s.cache.Get(ctx, key); err == nil {
			if err := json.Unmarshal([]byte(value), out); err == nil {
				if s.metrics != nil {
					s.metrics.CacheHitInc(lookup)
				}
				return nil
			}
		}
	}

	result, err := fetch()
	if err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", lookup, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s: %w", lookup, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, string(data)); err != nil {
			s.logger.Warn("Failed to cache lookup", "lookup", lookup, "error", err)
		}
	}
	return nil
}
