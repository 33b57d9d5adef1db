// Package api is the HTTP/JSON surface of the dashboard backend.
package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/tripdesk/internal/common/logger"
	"github.com/tripdesk/internal/common/metrics"
	"github.com/tripdesk/internal/dashboard/refresh"
	"github.com/tripdesk/internal/dashboard/viewstate"
	"github.com/tripdesk/internal/planning/catalog"
	"github.com/tripdesk/internal/planning/mutation"
	"github.com/tripdesk/internal/session"
	"golang.org/x/text/language"
)

// Deps are the components the routes drive
type Deps struct {
	View      *viewstate.Store
	Scheduler *refresh.Scheduler
	Catalog   *catalog.Service
	Session   *session.Manager
	Mutations *mutation.Service
	Metrics   *metrics.Collector
}

type Server struct {
	deps   Deps
	app    *fiber.App
	logger logger.Logger
}

func New(deps Deps, log logger.Logger) *Server {
	s := &Server{deps: deps, logger: log}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(NewRequestLogger(log))

	app.Get("/health", s.health)
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	group := app.Group("/api")
	group.Get("/session", s.getSession)
	group.Get("/state", s.getState)
	group.Get("/table", s.getTable)
	group.Post("/consult", s.postConsult)

	ViewRouter(group.Group("/view"), s)
	CatalogRouter(group.Group("/catalog"), s)
	TripsRouter(group.Group("/trips"), s)

	s.app = app
	return s
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP server listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) profile() session.Profile {
	if s.deps.Session == nil {
		return session.Profile{}
	}
	p, err := s.deps.Session.Profile()
	if err != nil {
		return session.Profile{}
	}
	return p
}

func (s *Server) language() language.Tag {
	lang := s.profile().Language
	if lang == "" {
		lang = session.DefaultLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return language.BrazilianPortuguese
	}
	return tag
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"scheduler": s.deps.Scheduler.GetStatus(),
	})
}

func (s *Server) getSession(c *fiber.Ctx) error {
	if s.deps.Session == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no session")
	}
	p, err := s.deps.Session.Profile()
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(fiber.Map{
		"authenticated":       s.deps.Session.Authenticated(),
		"zone":                s.deps.Session.Zone(),
		"clientId":            p.ClientID,
		"timeZone":            p.TimeZone,
		"userName":            p.UserName,
		"userId":              p.UserID,
		"companies":           p.Companies,
		"operationalDayStart": p.OperationalDayStart,
		"language":            p.Language,
	})
}
