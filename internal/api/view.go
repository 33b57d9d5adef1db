package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tripdesk/internal/dashboard/columns"
	"github.com/tripdesk/internal/dashboard/table"
	"github.com/tripdesk/internal/dashboard/viewstate"
)

func ViewRouter(router fiber.Router, s *Server) {
	router.Get("/", s.getView)
	router.Patch("/filters", s.patchFilters)
	router.Put("/columns/visibility", s.putVisibility)
	router.Post("/columns/:key/toggle", s.toggleColumn)
	router.Put("/columns/order", s.putOrder)
	router.Post("/columns/move", s.moveColumn)
	router.Put("/sort", s.putSort)
	router.Post("/sort/:field", s.clickSort)
	router.Put("/status/:tab", s.putStatus)
	router.Put("/show-filters", s.putShowFilters)
}

func badRequest(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}

// columnError maps the column model's errors onto HTTP statuses
func columnError(err error) error {
	if errors.Is(err, columns.ErrUnknownKey) || errors.Is(err, columns.ErrNotPermutation) {
		return badRequest(err)
	}
	return err
}

func (s *Server) getView(c *fiber.Ctx) error {
	return c.JSON(s.deps.View.Snapshot())
}

func (s *Server) patchFilters(c *fiber.Ctx) error {
	var patch viewstate.FilterPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(err)
	}
	if patch.Empty() {
		return fiber.NewError(fiber.StatusBadRequest, "no filter fields given")
	}
	return c.JSON(s.deps.View.MergeFilters(c.UserContext(), patch))
}

func (s *Server) putVisibility(c *fiber.Ctx) error {
	var v columns.Visibility
	if err := c.BodyParser(&v); err != nil {
		return badRequest(err)
	}
	if err := s.deps.View.SetColumnVisibility(c.UserContext(), v); err != nil {
		return columnError(err)
	}
	return c.JSON(s.deps.View.Snapshot().ColumnVisibility)
}

func (s *Server) toggleColumn(c *fiber.Ctx) error {
	if err := s.deps.View.ToggleColumn(c.UserContext(), columns.Key(c.Params("key"))); err != nil {
		return columnError(err)
	}
	return c.JSON(s.deps.View.Snapshot().ColumnVisibility)
}

func (s *Server) putOrder(c *fiber.Ctx) error {
	var o columns.Order
	if err := c.BodyParser(&o); err != nil {
		return badRequest(err)
	}
	if err := s.deps.View.SetColumnOrder(c.UserContext(), o); err != nil {
		return columnError(err)
	}
	return c.JSON(s.deps.View.Snapshot().ColumnOrder)
}

func (s *Server) moveColumn(c *fiber.Ctx) error {
	var body struct {
		Source columns.Key `json:"source"`
		Target columns.Key `json:"target"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(err)
	}
	if err := s.deps.View.MoveColumn(c.UserContext(), body.Source, body.Target); err != nil {
		return columnError(err)
	}
	return c.JSON(s.deps.View.Snapshot().ColumnOrder)
}

func (s *Server) putSort(c *fiber.Ctx) error {
	var sort table.SortState
	if err := c.BodyParser(&sort); err != nil {
		return badRequest(err)
	}
	if field, ok := sort.Field(); ok && !columns.Valid(field) {
		return badRequest(columns.ErrUnknownKey)
	}
	s.deps.View.SetSort(c.UserContext(), sort)
	return c.JSON(sort)
}

func (s *Server) clickSort(c *fiber.Ctx) error {
	next, err := s.deps.View.ClickSort(c.UserContext(), columns.Key(c.Params("field")))
	if err != nil {
		return columnError(err)
	}
	return c.JSON(next)
}

func (s *Server) putStatus(c *fiber.Ctx) error {
	if err := s.deps.View.SetActiveStatus(c.UserContext(), table.StatusTab(c.Params("tab"))); err != nil {
		return badRequest(err)
	}
	return c.JSON(fiber.Map{"activeStatus": s.deps.View.ActiveStatus()})
}

func (s *Server) putShowFilters(c *fiber.Ctx) error {
	var body struct {
		Show bool `json:"show"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(err)
	}
	s.deps.View.SetShowFilters(c.UserContext(), body.Show)
	return c.JSON(fiber.Map{"showFilters": body.Show})
}
