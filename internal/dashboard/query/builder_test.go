package query

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/internal/dashboard/viewstate"
	"github.com/tripdesk/internal/planning/catalog"
	"github.com/tripdesk/internal/session"
	"github.com/tripdesk/pkg/planning/models"
)

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

func testCatalog() catalog.Catalog {
	return catalog.Catalog{
		Lines: []models.Line{
			{
				ID: "l10", Numero: "10", Descr: "10 - X",
				Trajetos: []models.Route{
					{ID: "r10i", Nome: "10 - X", Sentido: "ida"},
					{ID: "r10v", Nome: "10 - X", Sentido: "volta"},
				},
				Consorcio: &models.ConsortiumRef{ConsorcioID: 1},
			},
			{
				ID: "l20", Numero: "20", Descr: "20 - Y",
				Trajetos:   []models.Route{{ID: "r20i", Sentido: "ida"}, {ID: "r10i", Sentido: "ida"}},
				Consorcios: []models.ConsortiumRef{{ConsorcioID: 2}, {ConsorcioID: 1}},
			},
			{
				ID: "l30", Numero: "30", Descr: "30 - Z",
				Trajetos:  []models.Route{{ID: "r30i", Sentido: "ida"}},
				Consorcio: &models.ConsortiumRef{ConsorcioID: 2},
			},
		},
		Consortiums: []models.Consortium{
			{ConsorcioID: 1, Consorcio: "ETUFOR"},
			{ConsorcioID: 2, Consorcio: "METRO"},
		},
	}
}

func routeIDs(routes []models.Route) []string {
	out := []string{}
	for _, r := range routes {
		out = append(out, r.ID)
	}
	return out
}

func manualFilters() viewstate.Filters {
	return viewstate.Filters{
		Line:      "10",
		StartDate: "2026-08-02", StartTime: "05:00",
		EndDate: "2026-08-02", EndTime: "07:00",
		RealTimeMinutes: 30,
	}
}

func TestScenarioPayload(t *testing.T) {
	b := NewBuilder(session.Profile{}, fixedClock(time.Now()))

	req, err := b.Build(manualFilters(), testCatalog())
	require.NoError(t, err)

	p := req.Payload
	assert.Equal(t, "2026-08-02", p.DataInicio)
	assert.Equal(t, "2026-08-02", p.DataFim)
	assert.Equal(t, "05:00:00", p.HoraInicio)
	assert.Equal(t, "07:00:59", p.HoraFim)
	assert.Equal(t, int64(1307), p.IDCliente)
	assert.Equal(t, "horario", p.Ordenacao)
	assert.Equal(t, "America/Fortaleza", p.Timezone)
	assert.Equal(t, "00:00:00", p.InicioDiaOperacional)
	assert.Equal(t, []string{"r10i", "r10v"}, routeIDs(p.Trajetos))
	assert.False(t, req.RealTime)
	assert.Equal(t, "line:10", req.Scope)

	body, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"empresas":[]`)
}

func TestRealTimeWindow(t *testing.T) {
	loc, err := time.LoadLocation("America/Fortaleza")
	require.NoError(t, err)
	now := time.Date(2026, 8, 2, 10, 15, 30, 0, loc)

	b := NewBuilder(session.ProfileFromUserData(models.UserData{}), fixedClock(now))

	f := manualFilters()
	f.StartDate, f.StartTime = "1999-01-01", "00:00"
	f.RealTimeEnabled = true
	f.RealTimeMinutes = 30

	req, err := b.Build(f, testCatalog())
	require.NoError(t, err)

	assert.True(t, req.Window.End.Equal(now))
	assert.True(t, req.Window.Start.Equal(now.Add(-30*time.Minute)))
	assert.Equal(t, "2026-08-02", req.Payload.DataInicio)
	assert.Equal(t, "09:45:30", req.Payload.HoraInicio)
	assert.Equal(t, "10:15:30", req.Payload.HoraFim)
	assert.True(t, req.RealTime)
}

func TestRealTimeWindowUsesSessionZone(t *testing.T) {
	// 01:10 UTC is still the previous day in Fortaleza (UTC-3)
	now := time.Date(2026, 8, 3, 1, 10, 0, 0, time.UTC)
	b := NewBuilder(session.ProfileFromUserData(models.UserData{}), fixedClock(now))

	f := manualFilters()
	f.RealTimeEnabled = true
	f.RealTimeMinutes = 90

	req, err := b.Build(f, testCatalog())
	require.NoError(t, err)
	assert.Equal(t, "2026-08-02", req.Payload.DataInicio)
	assert.Equal(t, "20:40:00", req.Payload.HoraInicio)
	assert.Equal(t, "2026-08-02", req.Payload.DataFim)
	assert.Equal(t, "22:10:00", req.Payload.HoraFim)
}

func TestRejects48HourSpan(t *testing.T) {
	b := NewBuilder(session.Profile{}, SystemClock)
	f := viewstate.Filters{
		Line:      "10",
		StartDate: "2024-01-01", StartTime: "00:00",
		EndDate: "2024-01-03", EndTime: "00:00",
	}

	_, err := b.Build(f, testCatalog())
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.ErrorIs(t, err, ErrWindowTooWide)
}

func TestWindowBoundaries(t *testing.T) {
	b := NewBuilder(session.Profile{}, SystemClock)

	f := manualFilters()
	f.StartDate, f.StartTime = "2024-01-01", "05:00"
	f.EndDate, f.EndTime = "2024-01-02", "05:00"
	_, err := b.Build(f, testCatalog())
	assert.NoError(t, err, "exactly 24h is accepted")

	f.EndTime = "05:01"
	_, err = b.Build(f, testCatalog())
	assert.ErrorIs(t, err, ErrWindowTooWide)

	f.EndDate, f.EndTime = "2023-12-31", "23:00"
	_, err = b.Build(f, testCatalog())
	assert.ErrorIs(t, err, ErrInvalidWindow)

	f.EndDate = "31/12/2023"
	_, err = b.Build(f, testCatalog())
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestRequiresScope(t *testing.T) {
	b := NewBuilder(session.Profile{}, SystemClock)
	f := manualFilters()
	f.Line = ""

	_, err := b.Build(f, testCatalog())
	assert.ErrorIs(t, err, ErrNoScope)

	f.RealTimeEnabled = true
	_, err = b.Build(f, testCatalog())
	assert.ErrorIs(t, err, ErrNoScope)
}

func TestRealTimeMinutesRange(t *testing.T) {
	b := NewBuilder(session.Profile{}, SystemClock)
	f := manualFilters()
	f.RealTimeEnabled = true

	for _, m := range []int{0, -5, 1441} {
		f.RealTimeMinutes = m
		_, err := b.Build(f, testCatalog())
		assert.ErrorIs(t, err, ErrRealTimeMinutes, "minutes=%d", m)
	}
	for _, m := range []int{1, 1440} {
		f.RealTimeMinutes = m
		_, err := b.Build(f, testCatalog())
		assert.NoError(t, err, "minutes=%d", m)
	}
}

func TestSecondsAreKeptWhenEntered(t *testing.T) {
	b := NewBuilder(session.Profile{}, SystemClock)
	f := manualFilters()
	f.StartTime, f.EndTime = "05:00:15", "07:00:30"

	req, err := b.Build(f, testCatalog())
	require.NoError(t, err)
	assert.Equal(t, "05:00:15", req.Payload.HoraInicio)
	assert.Equal(t, "07:00:30", req.Payload.HoraFim)
}

func TestSessionValuesInPayload(t *testing.T) {
	profile := session.ProfileFromUserData(models.UserData{
		Cli:  &models.UserClient{ID: 1351, TZ: "America/Sao_Paulo"},
		User: &models.UserInfo{Emp: []int64{4, 5}},
		Conf: &models.UserConf{Keys: []models.ConfKey{{Chave: models.KeyOperationalDayStart, Valor: "03:00:00"}}},
	})
	req, err := NewBuilder(profile, SystemClock).Build(manualFilters(), testCatalog())
	require.NoError(t, err)

	assert.Equal(t, int64(1351), req.Payload.IDCliente)
	assert.Equal(t, "America/Sao_Paulo", req.Payload.Timezone)
	assert.Equal(t, "03:00:00", req.Payload.InicioDiaOperacional)
	assert.Equal(t, []int64{4, 5}, req.Payload.Empresas)
}

func TestResolveRoutes(t *testing.T) {
	cat := testCatalog()

	tests := []struct {
		name    string
		filters viewstate.Filters
		want    []string
	}{
		{"line by number", viewstate.Filters{Line: "10"}, []string{"r10i", "r10v"}},
		{"line by id", viewstate.Filters{Line: "l30"}, []string{"r30i"}},
		{"line narrowed to direction", viewstate.Filters{Line: "10", Route: "volta"}, []string{"r10v"}},
		{"unknown line", viewstate.Filters{Line: "99"}, []string{}},
		{"consortium union is deduplicated", viewstate.Filters{Consortium: "ETUFOR"}, []string{"r10i", "r10v", "r20i"}},
		{"consortium via list", viewstate.Filters{Consortium: "METRO"}, []string{"r20i", "r10i", "r30i"}},
		{"unknown consortium", viewstate.Filters{Consortium: "NONE"}, []string{}},
		{"line intersected with consortium", viewstate.Filters{Line: "10", Consortium: "METRO"}, []string{"r10i"}},
		{"line outside consortium", viewstate.Filters{Line: "30", Consortium: "ETUFOR"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRoutes(tt.filters, cat)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, routeIDs(got))
		})
	}
}

func TestScope(t *testing.T) {
	assert.Equal(t, "consortium:ETUFOR", Scope(viewstate.Filters{Consortium: "ETUFOR"}))
	assert.Equal(t, "line:10+consortium:ETUFOR", Scope(viewstate.Filters{Line: "10", Consortium: "ETUFOR"}))
}
