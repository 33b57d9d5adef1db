package mutation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/internal/common/logger"
	"github.com/tripdesk/internal/dashboard/trip"
	"github.com/tripdesk/internal/session"
	"github.com/tripdesk/pkg/planning/models"
)

func ptr[T any](v T) *T { return &v }

func sampleTrip() trip.Trip {
	return trip.Trip{
		ID:             "v-1",
		ScheduleID:     ptr(int64(14087290)),
		PlannedID:      ptr(int64(77)),
		TabID:          ptr(int64(5)),
		ServiceDate:    ptr("2026-08-02T00:00:00.000Z"),
		Date:           "02/08/2026",
		Status:         trip.StatusPlannedAndCompleted,
		Execution:      trip.ExecutionClosed,
		Line:           "10 - X",
		Tab:            ptr("T01"),
		PlannedStart:   ptr("05:00:00"),
		PlannedVehicle: ptr("31001"),
		Completion:     ptr(85.5),
		RawRoute:       &models.TripRoute{ID: "673766d47ceff1b3d57f8441", Nome: "10 - X", Sentido: "ida"},
	}
}

func profile() session.Profile {
	return session.Profile{ClientID: 1351, UserName: "Ana", UserID: "42", TimeZone: "America/Fortaleza"}
}

func TestEditSchedule(t *testing.T) {
	c, err := EditSchedule(sampleTrip(), profile(), "05:10", "06:20:30")
	require.NoError(t, err)

	assert.Equal(t, "2026-08-02", c.Data)
	assert.Equal(t, int64(77), c.IDPlanejamento)
	assert.Equal(t, int64(5), c.IDTabela)
	assert.Equal(t, int64(14087290), *c.IDHorario)
	assert.Equal(t, models.OperationEdit, c.TipoOperacao)
	assert.Equal(t, "673766d47ceff1b3d57f8441", c.IDTrajeto)
	assert.Equal(t, int64(1351), c.IDCliente)
	assert.Equal(t, "05:10:00", c.Partida)
	assert.Equal(t, "06:20:30", c.Chegada)
	assert.Equal(t, int64((5*3600+10*60)*1000), *c.PartidaMs)
	assert.Equal(t, int64((6*3600+20*60+30)*1000), *c.ChegadaMs)
}

func TestEditScheduleRequiresIdentifiers(t *testing.T) {
	tests := []struct {
		name  string
		strip func(*trip.Trip)
	}{
		{"schedule", func(tr *trip.Trip) { tr.ScheduleID = nil }},
		{"planning", func(tr *trip.Trip) { tr.PlannedID = nil }},
		{"tab", func(tr *trip.Trip) { tr.TabID = nil }},
		{"route", func(tr *trip.Trip) { tr.RawRoute = nil }},
		{"date", func(tr *trip.Trip) { tr.ServiceDate = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := sampleTrip()
			tt.strip(&tr)
			_, err := EditSchedule(tr, profile(), "05:00", "06:00")
			assert.ErrorIs(t, err, ErrMissingIdentifier)
		})
	}
}

func TestEditScheduleRejectsBadTime(t *testing.T) {
	_, err := EditSchedule(sampleTrip(), profile(), "5h", "06:00")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteSchedules(t *testing.T) {
	a, b := sampleTrip(), sampleTrip()
	b.ID, b.ScheduleID = "v-2", ptr(int64(14087289))

	changes, err := DeleteSchedules([]trip.Trip{a, b}, profile())
	require.NoError(t, err)
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Equal(t, models.OperationDelete, c.TipoOperacao)
		assert.Empty(t, c.Partida)
		assert.Nil(t, c.PartidaMs)
	}
	assert.Equal(t, int64(14087289), *changes[1].IDHorario)

	_, err = DeleteSchedules(nil, profile())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIncludeScheduleHasNoScheduleID(t *testing.T) {
	tr := sampleTrip()
	tr.ScheduleID = nil

	c, err := IncludeSchedule(tr, profile(), "07:00", "08:00")
	require.NoError(t, err)
	assert.Equal(t, models.OperationInclude, c.TipoOperacao)
	assert.Nil(t, c.IDHorario)
	assert.Equal(t, "07:00:00", c.Partida)
}

func TestEditTripScopes(t *testing.T) {
	vehicle := models.Vehicle{CodVeiculo: "31002", Prefixo: "31002"}

	edit, err := EditTrip(sampleTrip(), profile(), EditTripInput{Vehicle: vehicle, Scope: ScopeThisSchedule})
	require.NoError(t, err)
	require.NotNil(t, edit.SomenteEsteHorario)
	assert.True(t, *edit.SomenteEsteHorario)
	assert.Equal(t, []string{"673766d47ceff1b3d57f8441"}, edit.Trajetos)
	assert.Equal(t, "77", edit.IDPlanejamento)
	assert.Equal(t, "T01", edit.TabelaID)
	assert.Equal(t, "05:00:00", edit.Horario)
	assert.Equal(t, "2026-08-02", edit.DataInicio)
	assert.Equal(t, "America/Fortaleza", edit.GmtCliente)
	assert.Equal(t, "Ana", edit.Nome)
	assert.Equal(t, []string{"31002"}, edit.VeiculosAuditoria)

	edit, err = EditTrip(sampleTrip(), profile(), EditTripInput{Vehicle: vehicle, Scope: ScopeTab})
	require.NoError(t, err)
	assert.Nil(t, edit.SomenteEsteHorario)

	edit, err = EditTrip(sampleTrip(), profile(), EditTripInput{Vehicle: vehicle, Scope: ScopeAllRoutes, Routes: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, edit.Trajetos)

	_, err = EditTrip(sampleTrip(), profile(), EditTripInput{Vehicle: vehicle, Scope: ScopeAllRoutes})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = EditTrip(sampleTrip(), profile(), EditTripInput{Scope: ScopeTab})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteTripRequiresReason(t *testing.T) {
	_, err := DeleteTrip(sampleTrip(), profile(), "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	del, err := DeleteTrip(sampleTrip(), profile(), " duplicated ")
	require.NoError(t, err)
	assert.Equal(t, models.TripDeletion{IDViagem: "v-1", Usuario: "Ana", MotivoExclusao: "duplicated"}, del)
}

func TestObservation(t *testing.T) {
	now := time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC)

	obs, err := Observation(sampleTrip(), profile(), "gps_problems", "ignored", now)
	require.NoError(t, err)
	assert.Equal(t, "PROBLEMA GPS", obs.Observacao.Mensagem)
	assert.Equal(t, "v-1", obs.ViagemID)
	assert.Equal(t, int64(42), obs.Observacao.UsuarioCriacao.ID)
	assert.Equal(t, "2026-08-02T09:30:00Z", obs.Observacao.DataAtualizacao)
	assert.Equal(t, int64(77), *obs.Observacao.ViagemData.IDPlanejamento)
	assert.Equal(t, models.Percent("85.5"), *obs.Observacao.ViagemData.PercentualConclusao)

	obs, err = Observation(sampleTrip(), profile(), "", "  bus full  ", now)
	require.NoError(t, err)
	assert.Equal(t, "bus full", obs.Observacao.Mensagem)

	_, err = Observation(sampleTrip(), profile(), "NOPE", "", now)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Observation(sampleTrip(), profile(), "", " ", now)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestToApiTripRoundTripsDerivation(t *testing.T) {
	for _, tr := range trip.DemoTrips() {
		raw := ToApiTrip(tr)
		status, execution := trip.Derive(raw.EmExecucao, raw.Status)
		assert.Equal(t, tr.Status, status, tr.ID)
		assert.Equal(t, tr.Execution, execution, tr.ID)
	}
}

type fakeAPI struct {
	err         error
	edits       [][]models.ScheduleChange
	deletions   []models.TripDeletion
	includes    int
	tripEdits   int
	observation int
}

func (f *fakeAPI) EditSchedule(_ context.Context, changes []models.ScheduleChange) error {
	f.edits = append(f.edits, changes)
	return f.err
}

func (f *fakeAPI) IncludeSchedule(context.Context, models.ScheduleChange) error {
	f.includes++
	return f.err
}

func (f *fakeAPI) EditTrip(context.Context, models.TripEdit) error {
	f.tripEdits++
	return f.err
}

func (f *fakeAPI) DeleteTrip(_ context.Context, del models.TripDeletion) error {
	f.deletions = append(f.deletions, del)
	return f.err
}

func (f *fakeAPI) IncludeObservation(context.Context, models.ObservationRequest) error {
	f.observation++
	return f.err
}

type countingMetrics map[string]int

func (m countingMetrics) MutationInc(action string, ok bool) {
	if ok {
		m[action+":ok"]++
	} else {
		m[action+":error"]++
	}
}

func newTestService(api API, m Metrics) *Service {
	return NewService(api, profile, logger.Discard(), WithMetrics(m),
		WithNow(func() time.Time { return time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC) }))
}

func TestServiceReportsEachAction(t *testing.T) {
	api := &fakeAPI{}
	m := countingMetrics{}
	svc := newTestService(api, m)
	ctx := context.Background()

	r := svc.EditSchedule(ctx, sampleTrip(), "05:00", "06:00")
	assert.True(t, r.OK)
	assert.Equal(t, ActionEditSchedule, r.Action)
	assert.Equal(t, "v-1", r.TripID)

	assert.True(t, svc.DeleteSchedules(ctx, []trip.Trip{sampleTrip()}).OK)
	assert.True(t, svc.IncludeSchedule(ctx, sampleTrip(), "07:00", "08:00").OK)
	assert.True(t, svc.EditTrip(ctx, sampleTrip(), EditTripInput{Vehicle: models.Vehicle{CodVeiculo: "1"}}).OK)
	assert.True(t, svc.DeleteTrip(ctx, sampleTrip(), "reason").OK)
	assert.True(t, svc.IncludeObservation(ctx, sampleTrip(), "ACCIDENT", "").OK)

	require.Len(t, api.edits, 2)
	assert.Equal(t, models.OperationDelete, api.edits[1][0].TipoOperacao)
	assert.Equal(t, 1, api.includes)
	assert.Equal(t, 1, api.tripEdits)
	assert.Len(t, api.deletions, 1)
	assert.Equal(t, 1, api.observation)
	assert.Equal(t, 1, m["delete_trip:ok"])
}

func TestServiceReportsFailures(t *testing.T) {
	upstream := errors.New("502 bad gateway")
	api := &fakeAPI{err: upstream}
	m := countingMetrics{}
	svc := newTestService(api, m)

	r := svc.DeleteTrip(context.Background(), sampleTrip(), "reason")
	assert.False(t, r.OK)
	assert.ErrorIs(t, r.Err, upstream)
	assert.Equal(t, upstream.Error(), r.Error)
	assert.Equal(t, 1, m["delete_trip:error"])

	// builder errors never reach the API
	r = svc.DeleteTrip(context.Background(), sampleTrip(), "")
	assert.False(t, r.OK)
	assert.ErrorIs(t, r.Err, ErrInvalidInput)
	assert.Len(t, api.deletions, 1)
}
