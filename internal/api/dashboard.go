package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tripdesk/internal/dashboard/query"
	"github.com/tripdesk/internal/dashboard/refresh"
	"github.com/tripdesk/internal/dashboard/table"
	"github.com/tripdesk/internal/planning/client"
)

func (s *Server) getState(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"view":    s.deps.View.Snapshot(),
		"refresh": s.deps.Scheduler.State(),
	})
}

func (s *Server) getTable(c *fiber.Ctx) error {
	snap := s.deps.View.Snapshot()
	st := s.deps.Scheduler.State()

	status := snap.ActiveStatus
	if q := c.Query("status"); q != "" {
		parsed, err := table.ParseStatusTab(q)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		status = parsed
	}

	rendered := table.Render(st.Trips, table.View{
		Order:      snap.ColumnOrder,
		Visibility: snap.ColumnVisibility,
		Sort:       snap.Sort,
		Status:     status,
		Language:   s.language(),
	})

	return c.JSON(fiber.Map{
		"table":       rendered,
		"loading":     st.Loading,
		"error":       st.Error,
		"degraded":    st.Degraded,
		"lastUpdate":  st.LastUpdate,
		"hasSearched": st.HasSearched,
	})
}

func (s *Server) postConsult(c *fiber.Ctx) error {
	err := s.deps.Scheduler.Consult(c.UserContext())

	var (
		ve *query.ValidationError
		te *client.TransportError
	)
	switch {
	case err == nil:
		return c.JSON(s.deps.Scheduler.State())
	case errors.As(err, &ve):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, refresh.ErrSuperseded):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, client.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.As(err, &te):
		// the state still carries the last good list, or the demo set
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
			"state": s.deps.Scheduler.State(),
		})
	default:
		return err
	}
}
