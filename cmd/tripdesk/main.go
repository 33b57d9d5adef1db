package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tripdesk/internal/api"
	"github.com/tripdesk/internal/common/config"
	"github.com/tripdesk/internal/common/logger"
	"github.com/tripdesk/internal/dashboard/table"
	"github.com/tripdesk/internal/dashboard/viewstate"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/language"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Failed to load .env file:", err)
		os.Exit(1)
	}

	cliApp := &cli.App{
		Name:  "tripdesk",
		Usage: "Trip operations dashboard backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", Usage: "session token, stored for later runs", EnvVars: []string{"TRIPDESK_TOKEN"}},
			&cli.StringFlag{Name: "zone", Usage: "API zone header, stored for later runs"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			consultCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	loggerConfig := logger.DefaultLoggerConfig()
	loggerConfig.Level = logger.ParseLogLevel(cfg.Logging.Level)
	loggerConfig.Console = cfg.Logging.Console
	loggerConfig.FilePath = cfg.Logging.FilePath
	loggerConfig.File = cfg.Logging.FilePath != ""
	log := logger.InitLogger(loggerConfig)

	log.Info("tripdesk starting",
		"command", c.Command.Name,
		"log_level", cfg.Logging.Level,
		"api", cfg.API.BaseURL,
		"store", cfg.Store.Backend,
		"refresh_interval", cfg.Refresh.Interval,
	)
	return cfg, log, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and the refresh scheduler",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "listen target for the web server"},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, log, c.String("token"), c.String("zone"))
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.Metrics.Addr != "" {
				srv := a.metrics.Serve(cfg.Metrics.Addr, log)
				defer srv.Close()
			}

			if err := a.scheduler.Start(ctx); err != nil {
				return err
			}

			server := api.New(api.Deps{
				View:      a.view,
				Scheduler: a.scheduler,
				Catalog:   a.catalog,
				Session:   a.session,
				Mutations: a.mutations,
				Metrics:   a.metrics,
			}, log)

			listen := c.String("listen")
			if listen == "" {
				listen = cfg.Server.Listen
			}

			errCh := make(chan error, 1)
			go func() { errCh <- server.Listen(listen) }()

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
				log.Info("Shutdown signal received")
			}

			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn("HTTP server shutdown failed", "error", err)
			}

			log.Info("tripdesk stopped")
			return nil
		},
	}
}

func consultCommand() *cli.Command {
	return &cli.Command{
		Name:  "consult",
		Usage: "run one trip query and print the rendered table as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "line", Usage: "line id or number"},
			&cli.StringFlag{Name: "route", Usage: "route direction (sentido)"},
			&cli.StringFlag{Name: "consortium", Usage: "consortium name"},
			&cli.StringFlag{Name: "start-date", Usage: "YYYY-MM-DD"},
			&cli.StringFlag{Name: "start-time", Usage: "HH:MM"},
			&cli.StringFlag{Name: "end-date", Usage: "YYYY-MM-DD"},
			&cli.StringFlag{Name: "end-time", Usage: "HH:MM"},
			&cli.IntFlag{Name: "realtime", Usage: "query the last N minutes instead of a fixed window"},
			&cli.StringFlag{Name: "status", Usage: "status tab: all, PLANNED_AND_COMPLETED, IN_PROGRESS or NOT_STARTED"},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c)
			if err != nil {
				return err
			}
			ctx := c.Context

			a, err := newApp(ctx, cfg, log, c.String("token"), c.String("zone"))
			if err != nil {
				return err
			}
			defer a.Close()

			a.view.MergeFilters(ctx, filterPatch(c))
			if c.IsSet("status") {
				tab, err := table.ParseStatusTab(c.String("status"))
				if err != nil {
					return err
				}
				if err := a.view.SetActiveStatus(ctx, tab); err != nil {
					return err
				}
			}

			consultErr := a.scheduler.Consult(ctx)
			if consultErr != nil {
				log.Error("Consult failed", "error", consultErr)
			}

			snap := a.view.Snapshot()
			st := a.scheduler.State()
			tag, err := language.Parse(a.profile().Language)
			if err != nil {
				tag = language.BrazilianPortuguese
			}
			rendered := table.Render(st.Trips, table.View{
				Order:      snap.ColumnOrder,
				Visibility: snap.ColumnVisibility,
				Sort:       snap.Sort,
				Status:     snap.ActiveStatus,
				Language:   tag,
			})

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]interface{}{
				"table":    rendered,
				"error":    st.Error,
				"degraded": st.Degraded,
			}); err != nil {
				return err
			}
			return consultErr
		},
	}
}

func filterPatch(c *cli.Context) viewstate.FilterPatch {
	var p viewstate.FilterPatch
	str := func(name string) *string {
		if !c.IsSet(name) {
			return nil
		}
		v := c.String(name)
		return &v
	}
	p.Line = str("line")
	p.Route = str("route")
	p.Consortium = str("consortium")
	p.StartDate = str("start-date")
	p.StartTime = str("start-time")
	p.EndDate = str("end-date")
	p.EndTime = str("end-time")
	if c.IsSet("realtime") {
		enabled := c.Int("realtime") > 0
		minutes := c.Int("realtime")
		p.RealTimeEnabled = &enabled
		if enabled {
			p.RealTimeMinutes = &minutes
		}
	}
	return p
}
