package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/internal/common/config"
	"github.com/tripdesk/internal/common/kvstore"
	"github.com/tripdesk/internal/common/logger"
	"github.com/tripdesk/internal/common/metrics"
	"github.com/tripdesk/internal/dashboard/columns"
	"github.com/tripdesk/internal/dashboard/query"
	"github.com/tripdesk/internal/dashboard/refresh"
	"github.com/tripdesk/internal/dashboard/trip"
	"github.com/tripdesk/internal/dashboard/viewstate"
	"github.com/tripdesk/internal/planning/catalog"
	"github.com/tripdesk/internal/planning/mutation"
	"github.com/tripdesk/internal/session"
	"github.com/tripdesk/pkg/planning/models"
)

type fakeLookup struct{}

func (fakeLookup) Lines(context.Context, int64) ([]models.Line, error) {
	return []models.Line{{
		ID: "l10", Numero: "10", Descr: "10 - X",
		Trajetos: []models.Route{{ID: "r10i", Sentido: "ida"}},
	}}, nil
}

func (fakeLookup) Consortiums(context.Context, int64) ([]models.Consortium, error) {
	return []models.Consortium{{ConsorcioID: 1, Consorcio: "ETUFOR"}}, nil
}

type fakeFetcher struct{}

func (fakeFetcher) QueryTrips(_ context.Context, req models.QueryRequest) (models.QueryResponse, error) {
	one := 1
	inProgress := true
	planned := int64(77)
	return models.QueryResponse{Viagens: []models.ApiTrip{
		{IDViagemExecutada: "a", Status: &one, Trajeto: &models.TripRoute{ID: "r10i", Nome: "10 - X"}, IDPlanejamento: &planned},
		{IDViagemExecutada: "b", EmExecucao: &inProgress, Trajeto: &models.TripRoute{ID: "r10i", Nome: "10 - A"}},
	}}, nil
}

type fakeMutationAPI struct{ calls int }

func (f *fakeMutationAPI) EditSchedule(context.Context, []models.ScheduleChange) error {
	f.calls++
	return nil
}
func (f *fakeMutationAPI) IncludeSchedule(context.Context, models.ScheduleChange) error {
	f.calls++
	return nil
}
func (f *fakeMutationAPI) EditTrip(context.Context, models.TripEdit) error { f.calls++; return nil }
func (f *fakeMutationAPI) DeleteTrip(context.Context, models.TripDeletion) error {
	f.calls++
	return nil
}
func (f *fakeMutationAPI) IncludeObservation(context.Context, models.ObservationRequest) error {
	f.calls++
	return nil
}

type testEnv struct {
	server    *Server
	mutations *fakeMutationAPI
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Discard()
	ctx := context.Background()

	now := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	repo := viewstate.NewRepository(kvstore.NewMemory(), log)
	view := viewstate.NewStore(repo, viewstate.DefaultPreferences(viewstate.DefaultFilters(now)), log)

	cat := catalog.NewService(fakeLookup{}, log)
	cat.Load(ctx, query.DefaultClientID)

	collector := metrics.NewCollector(time.Minute)
	scheduler := refresh.NewScheduler(config.RefreshConfig{Interval: time.Hour},
		fakeFetcher{},
		query.NewBuilder(session.Profile{}, query.ClockFunc(func() time.Time { return now })),
		cat, view, trip.NewNormalizer(""), log,
		refresh.WithMetrics(collector))
	t.Cleanup(scheduler.Close)

	api := &fakeMutationAPI{}
	mutations := mutation.NewService(api, func() session.Profile { return session.Profile{UserName: "Ana"} }, log,
		mutation.WithMetrics(collector))

	return &testEnv{
		server: New(Deps{
			View:      view,
			Scheduler: scheduler,
			Catalog:   cat,
			Mutations: mutations,
			Metrics:   collector,
		}, log),
		mutations: api,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.server.App().Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (e *testEnv) consult(t *testing.T) {
	t.Helper()
	resp, _ := e.do(t, http.MethodPatch, "/api/view/filters", `{"line":"10"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPost, "/api/consult", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConsultRequiresScope(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/consult", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "a line or a consortium")
}

func TestEmptyFilterPatchIsRejected(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPatch, "/api/view/filters", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "no filter fields")
}

func TestConsultAndRenderTable(t *testing.T) {
	env := newTestEnv(t)
	env.consult(t)

	resp, body := env.do(t, http.MethodGet, "/api/table", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tbl := body["table"].(map[string]interface{})
	assert.Len(t, tbl["rows"], 2)
	cols := tbl["columns"].([]interface{})
	assert.Equal(t, string(columns.Actions), cols[len(cols)-1])
	counts := tbl["counts"].(map[string]interface{})
	assert.Equal(t, float64(2), counts["all"])
	assert.Equal(t, float64(1), counts[string(trip.StatusInProgress)])

	resp, body = env.do(t, http.MethodGet, "/api/table?status=IN_PROGRESS", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["table"].(map[string]interface{})["rows"], 1)

	resp, _ = env.do(t, http.MethodGet, "/api/table?status=nope", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSortClickCycle(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodPost, "/api/view/sort/line", "")
	assert.Equal(t, "asc", body["direction"])
	_, body = env.do(t, http.MethodPost, "/api/view/sort/line", "")
	assert.Equal(t, "desc", body["direction"])
	_, body = env.do(t, http.MethodPost, "/api/view/sort/line", "")
	assert.Nil(t, body["field"])

	resp, _ := env.do(t, http.MethodPost, "/api/view/sort/bogus", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestColumnRoutes(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/view/columns/move", `{"source":"completion","target":"date"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	order := env.server.deps.View.Snapshot().ColumnOrder
	assert.Equal(t, columns.Key("completion"), order[0])
	assert.NoError(t, order.Validate())

	resp, _ = env.do(t, http.MethodPost, "/api/view/columns/tab/toggle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.server.deps.View.Snapshot().ColumnVisibility["tab"])

	resp, _ = env.do(t, http.MethodPost, "/api/view/columns/move", `{"source":"nope","target":"date"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusTab(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPut, "/api/view/status/NOT_STARTED", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "NOT_STARTED", body["activeStatus"])

	resp, _ = env.do(t, http.MethodPut, "/api/view/status/DONE", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMutationRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.consult(t)

	resp, body := env.do(t, http.MethodPost, "/api/trips/a/observations", `{"code":"ACCIDENT"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	resp, body = env.do(t, http.MethodDelete, "/api/trips/a", `{"reason":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, false, body["ok"])

	// a body-less DELETE reaches the reason check instead of failing to parse
	resp, body = env.do(t, http.MethodDelete, "/api/trips/a", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, false, body["ok"])

	resp, body = env.do(t, http.MethodDelete, "/api/trips/a?reason=duplicada", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	// trip b lacks the planning id
	resp, _ = env.do(t, http.MethodPut, "/api/trips/b/schedule", `{"start":"05:00","end":"06:00"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/trips/zzz/observations", `{"code":"ACCIDENT"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Equal(t, 2, env.mutations.calls)
}

func TestCatalogAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/catalog/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["lines"], 1)
	assert.Empty(t, body["errors"])

	env.consult(t)
	resp, _ = env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
