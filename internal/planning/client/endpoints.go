package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tripdesk/pkg/planning/models"
)

// QueryTrips runs the dashboard trip query. It is not retried; the refresh
// scheduler decides what to do with a failed cycle.
func (c *Client) QueryTrips(ctx context.Context, req models.QueryRequest) (models.QueryResponse, error) {
	var resp models.QueryResponse
	err := c.do(ctx, "query trips", http.MethodPut, c.planningPath("/v1/dashboard/consultar"), req, &resp)
	if err != nil {
		return models.QueryResponse{}, err
	}
	return resp, nil
}

func (c *Client) Lines(ctx context.Context, clientID int64) ([]models.Line, error) {
	var lines []models.Line
	err := c.doWithRetry(ctx, "lookup lines", http.MethodGet, c.servicePath("/linhasTrajetos/%d", clientID), nil, &lines)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *Client) Consortiums(ctx context.Context, clientID int64) ([]models.Consortium, error) {
	var consortiums []models.Consortium
	path := c.servicePath("/consorcio/consultarTodosPorCliente?idCliente=%d", clientID)
	if err := c.doWithRetry(ctx, "lookup consortiums", http.MethodGet, path, nil, &consortiums); err != nil {
		return nil, err
	}
	return consortiums, nil
}

func (c *Client) UserData(ctx context.Context) (models.UserData, error) {
	var data models.UserData
	if err := c.doWithRetry(ctx, "user data", http.MethodGet, "/user/data", nil, &data); err != nil {
		return models.UserData{}, err
	}
	return data, nil
}

// EditSchedule sends edit or delete entries to editarHorario
func (c *Client) EditSchedule(ctx context.Context, changes []models.ScheduleChange) error {
	return c.do(ctx, "edit schedule", http.MethodPut, c.planningPath("/v1/dashboard/editarHorario"), changes, nil)
}

func (c *Client) IncludeSchedule(ctx context.Context, change models.ScheduleChange) error {
	return c.do(ctx, "include schedule", http.MethodPost, c.planningPath("/v1/dashboard/incluirHorario"), change, nil)
}

func (c *Client) EditTrip(ctx context.Context, edit models.TripEdit) error {
	return c.do(ctx, "edit trip", http.MethodPost, c.controlPath("/api/controlePartida/%s/editarviagem"), edit, nil)
}

// DeleteTrip carries the deletion as URL-encoded JSON in the last path segment
func (c *Client) DeleteTrip(ctx context.Context, del models.TripDeletion) error {
	payload, err := json.Marshal(del)
	if err != nil {
		return fmt.Errorf("delete trip: marshaling body: %w", err)
	}
	path := c.controlPath("/api/controlePartida/%s/excluirViagem/") + EncodeURIComponent(string(payload))
	return c.do(ctx, "delete trip", http.MethodDelete, path, nil, nil)
}

func (c *Client) IncludeObservation(ctx context.Context, obs models.ObservationRequest) error {
	return c.do(ctx, "include observation", http.MethodPost,
		c.controlPath("/api/v1/planejamentoViagem/incluirInformacao/%s"), obs, nil)
}

// EncodeURIComponent escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( )
func EncodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	for _, r := range []string{"!", "'", "(", ")", "*"} {
		escaped = strings.ReplaceAll(escaped, url.QueryEscape(r), r)
	}
	return escaped
}
