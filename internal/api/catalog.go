package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tripdesk/internal/dashboard/query"
	"github.com/tripdesk/internal/planning/catalog"
)

func CatalogRouter(router fiber.Router, s *Server) {
	router.Get("/", s.getCatalog)
	router.Post("/reload", s.reloadCatalog)
}

func catalogJSON(cat catalog.Catalog) fiber.Map {
	errs := fiber.Map{}
	if cat.LinesErr != nil {
		errs[catalog.LookupLines] = cat.LinesErr.Error()
	}
	if cat.ConsortiumsErr != nil {
		errs[catalog.LookupConsortiums] = cat.ConsortiumsErr.Error()
	}
	return fiber.Map{
		"lines":       cat.Lines,
		"consortiums": cat.Consortiums,
		"errors":      errs,
		"loadedAt":    cat.LoadedAt,
	}
}

func (s *Server) getCatalog(c *fiber.Ctx) error {
	return c.JSON(catalogJSON(s.deps.Catalog.Current()))
}

func (s *Server) reloadCatalog(c *fiber.Ctx) error {
	clientID := s.profile().ClientID
	if clientID == 0 {
		clientID = query.DefaultClientID
	}
	return c.JSON(catalogJSON(s.deps.Catalog.Load(c.UserContext(), clientID)))
}
