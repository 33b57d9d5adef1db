package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tripdesk/internal/dashboard/trip"
	"github.com/tripdesk/internal/planning/client"
	"github.com/tripdesk/internal/planning/mutation"
	"github.com/tripdesk/pkg/planning/models"
)

func TripsRouter(router fiber.Router, s *Server) {
	router.Post("/schedules/delete", s.deleteSchedules)
	router.Get("/:id", s.getTrip)
	router.Put("/:id/schedule", s.editSchedule)
	router.Delete("/:id/schedule", s.deleteSchedule)
	router.Post("/:id/schedule", s.includeSchedule)
	router.Post("/:id/edit", s.editTrip)
	router.Delete("/:id", s.deleteTrip)
	router.Post("/:id/observations", s.includeObservation)
}

type timesBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// findTrip looks the row up in the list currently shown
func (s *Server) findTrip(id string) (trip.Trip, error) {
	for _, t := range s.deps.Scheduler.State().Trips {
		if t.ID == id {
			return t, nil
		}
	}
	return trip.Trip{}, fiber.NewError(fiber.StatusNotFound, "trip not found: "+id)
}

// sendResult maps a mutation outcome onto an HTTP status
func sendResult(c *fiber.Ctx, r mutation.Result) error {
	status := fiber.StatusOK
	var te *client.TransportError
	switch {
	case r.OK:
	case errors.Is(r.Err, mutation.ErrMissingIdentifier), errors.Is(r.Err, mutation.ErrInvalidInput):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(r.Err, client.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.As(r.Err, &te):
		status = fiber.StatusBadGateway
	default:
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(r)
}

func (s *Server) getTrip(c *fiber.Ctx) error {
	t, err := s.findTrip(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(t)
}

func (s *Server) editSchedule(c *fiber.Ctx) error {
	t, err := s.findTrip(c.Params("id"))
	if err != nil {
		return err
	}
	var body timesBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(err)
	}
	return sendResult(c, s.deps.Mutations.EditSchedule(c.UserContext(), t, body.Start, body.End))
}

func (s *Server) deleteSchedule(c *fiber.Ctx) error {
	t, err := s.findTrip(c.Params("id"))
	if err != nil {
		return err
	}
	return sendResult(c, s.deps.Mutations.DeleteSchedules(c.UserContext(), []trip.Trip{t}))
}

func (s *Server) deleteSchedules(c *fiber.Ctx) error {
	var body struct {
		TripIDs []string `json:"tripIds"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(err)
	}
	trips := make([]trip.Trip, 0, len(body.TripIDs))
	for _, id := range body.TripIDs {
		t, err := s.findTrip(id)
		if err != nil {
			return err
		}
		trips = append(trips, t)
	}
	return sendResult(c, s.deps.Mutations.DeleteSchedules(c.UserContext(), trips))
}

func (s *Server) includeSchedule(c *fiber.Ctx) error {
	t, err := s.findTrip(c.Params("id"))
	if err != nil {
		return err
	}
	var body timesBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(err)
	}
	return sendResult(c, s.deps.Mutations.IncludeSchedule(c.UserContext(), t, body.Start, body.End))
}

func (s *Server) editTrip(c *fiber.Ctx) error {
	t, err := s.findTrip(c.Params("id"))
	if err != nil {
		return err
	}
	var body struct {
		Vehicle   models.Vehicle     `json:"vehicle"`
		Scope     mutation.EditScope `json:"scope"`
		Routes    []string           `json:"routes"`
		StartDate string             `json:"startDate"`
		StartTime string             `json:"startTime"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(err)
	}
	return sendResult(c, s.deps.Mutations.EditTrip(c.UserContext(), t, mutation.EditTripInput{
		Vehicle:   body.Vehicle,
		Scope:     body.Scope,
		Routes:    body.Routes,
		StartDate: body.StartDate,
		StartTime: body.StartTime,
	}))
}

func (s *Server) deleteTrip(c *fiber.Ctx) error {
	t, err := s.findTrip(c.Params("id"))
	if err != nil {
		return err
	}
	// the reason may come as ?reason= since DELETE bodies are optional
	body := struct {
		Reason string `json:"reason"`
	}{Reason: c.Query("reason")}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return badRequest(err)
		}
	}
	return sendResult(c, s.deps.Mutations.DeleteTrip(c.UserContext(), t, body.Reason))
}

func (s *Server) includeObservation(c *fiber.Ctx) error {
	t, err := s.findTrip(c.Params("id"))
	if err != nil {
		return err
	}
	var body struct {
		Code string `json:"code"`
		Text string `json:"text"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(err)
	}
	return sendResult(c, s.deps.Mutations.IncludeObservation(c.UserContext(), t, body.Code, body.Text))
}
