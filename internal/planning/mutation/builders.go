// Package mutation builds the typed request bodies of the planning API's
// write endpoints from normalized trips, and reports each call's outcome.
package mutation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tripdesk/internal/dashboard/trip"
	"github.com/tripdesk/internal/session"
	"github.com/tripdesk/pkg/planning/models"
)

var (
	// ErrMissingIdentifier means the trip lacks an id the mutation kind needs
	ErrMissingIdentifier = errors.New("trip is missing a required identifier")
	ErrInvalidInput      = errors.New("invalid mutation input")
)

// Observation codes offered by the front end, with the text sent upstream
var predefinedMessages = map[string]string{
	"GPS_PROBLEMS":       "PROBLEMA GPS",
	"TRAFFIC_DELAY":      "ATRASO NO TRÂNSITO",
	"MECHANICAL_PROBLEM": "PROBLEMA MECÂNICO",
	"PASSENGER_PROBLEM":  "PASSAGEIRO PROBLEMA",
	"ACCIDENT":           "ACIDENTE",
	"OTHERS":             "OUTROS",
}

// PredefinedMessage returns the upstream text for an observation code
func PredefinedMessage(code string) (string, bool) {
	msg, ok := predefinedMessages[strings.ToUpper(strings.TrimSpace(code))]
	return msg, ok
}

// EditScope is how far a vehicle reassignment reaches
type EditScope int

const (
	// ScopeThisSchedule changes only the selected departure
	ScopeThisSchedule EditScope = iota + 1
	// ScopeTab changes the whole tab on the trip's route
	ScopeTab
	// ScopeAllRoutes changes the tab on every listed route
	ScopeAllRoutes
)

type EditTripInput struct {
	Vehicle   models.Vehicle
	Scope     EditScope
	Routes    []string
	StartDate string
	StartTime string
}

func missing(what, tripID string) error {
	return fmt.Errorf("%w: %s (trip %s)", ErrMissingIdentifier, what, tripID)
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// scheduleBase carries the identifiers shared by every schedule entry
func scheduleBase(t trip.Trip, p session.Profile, op int) (models.ScheduleChange, error) {
	switch {
	case t.ServiceDate == nil || *t.ServiceDate == "":
		return models.ScheduleChange{}, missing("service date", t.ID)
	case t.PlannedID == nil:
		return models.ScheduleChange{}, missing("idPlanejamento", t.ID)
	case t.TabID == nil:
		return models.ScheduleChange{}, missing("idTabela", t.ID)
	case t.RawRoute == nil || t.RawRoute.ID == "":
		return models.ScheduleChange{}, missing("idTrajeto", t.ID)
	}

	return models.ScheduleChange{
		Data:           serviceDay(*t.ServiceDate),
		IDPlanejamento: *t.PlannedID,
		IDTabela:       *t.TabID,
		TipoOperacao:   op,
		IDTrajeto:      t.RawRoute.ID,
		IDCliente:      p.ClientID,
	}, nil
}

// serviceDay trims a timestamp down to its date
func serviceDay(s string) string {
	if len(s) > len("2006-01-02") {
		if _, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return s[:10]
		}
	}
	return s
}

func withTimes(c models.ScheduleChange, start, end string) (models.ScheduleChange, error) {
	c.Partida = models.PadSeconds(start)
	c.Chegada = models.PadSeconds(end)

	startMs, err := models.MillisSinceMidnight(c.Partida)
	if err != nil {
		return c, invalidInput("start: %v", err)
	}
	endMs, err := models.MillisSinceMidnight(c.Chegada)
	if err != nil {
		return c, invalidInput("end: %v", err)
	}
	c.PartidaMs = &startMs
	c.ChegadaMs = &endMs
	return c, nil
}

// EditSchedule moves a departure to new start and end times
func EditSchedule(t trip.Trip, p session.Profile, start, end string) (models.ScheduleChange, error) {
	c, err := scheduleBase(t, p, models.OperationEdit)
	if err != nil {
		return c, err
	}
	if t.ScheduleID == nil {
		return c, missing("idHorario", t.ID)
	}
	c.IDHorario = t.ScheduleID
	return withTimes(c, start, end)
}

// DeleteSchedules emits one entry per schedule id
func DeleteSchedules(trips []trip.Trip, p session.Profile) ([]models.ScheduleChange, error) {
	if len(trips) == 0 {
		return nil, invalidInput("no schedules selected")
	}
	changes := make([]models.ScheduleChange, 0, len(trips))
	for _, t := range trips {
		c, err := scheduleBase(t, p, models.OperationDelete)
		if err != nil {
			return nil, err
		}
		if t.ScheduleID == nil {
			return nil, missing("idHorario", t.ID)
		}
		c.IDHorario = t.ScheduleID
		changes = append(changes, c)
	}
	return changes, nil
}

// IncludeSchedule adds a departure to the tab and route of the given trip
func IncludeSchedule(t trip.Trip, p session.Profile, start, end string) (models.ScheduleChange, error) {
	c, err := scheduleBase(t, p, models.OperationInclude)
	if err != nil {
		return c, err
	}
	return withTimes(c, start, end)
}

// EditTrip reassigns the vehicle of a trip
func EditTrip(t trip.Trip, p session.Profile, in EditTripInput) (models.TripEdit, error) {
	if t.PlannedID == nil {
		return models.TripEdit{}, missing("idPlanejamento", t.ID)
	}
	if t.PlannedStart == nil {
		return models.TripEdit{}, missing("planned start", t.ID)
	}
	tab := tabName(t)
	if tab == "" {
		return models.TripEdit{}, missing("tab", t.ID)
	}
	if strings.TrimSpace(in.Vehicle.CodVeiculo) == "" {
		return models.TripEdit{}, invalidInput("vehicle code is required")
	}

	var (
		routes []string
		only   *bool
	)
	switch in.Scope {
	case ScopeThisSchedule, 0:
		yes := true
		only = &yes
		fallthrough
	case ScopeTab:
		if t.RawRoute == nil || t.RawRoute.ID == "" {
			return models.TripEdit{}, missing("idTrajeto", t.ID)
		}
		routes = []string{t.RawRoute.ID}
	case ScopeAllRoutes:
		if len(in.Routes) == 0 {
			return models.TripEdit{}, invalidInput("no routes for an all-routes edit")
		}
		routes = append([]string(nil), in.Routes...)
	default:
		return models.TripEdit{}, invalidInput("unknown edit scope %d", in.Scope)
	}

	startDate := in.StartDate
	if startDate == "" && t.ServiceDate != nil {
		startDate = serviceDay(*t.ServiceDate)
	}
	startTime := in.StartTime
	if startTime == "" {
		startTime = "00:00"
	}

	return models.TripEdit{
		DataInicio:         startDate,
		GmtCliente:         p.TimeZone,
		HoraInicial:        startTime,
		Horario:            *t.PlannedStart,
		IDPlanejamento:     strconv.FormatInt(*t.PlannedID, 10),
		Nome:               p.UserName,
		SomenteEsteHorario: only,
		TabelaID:           tab,
		Trajetos:           routes,
		Veiculo:            in.Vehicle,
		VeiculosAuditoria:  []string{in.Vehicle.CodVeiculo},
	}, nil
}

func tabName(t trip.Trip) string {
	if t.Tab != nil && *t.Tab != "" {
		return *t.Tab
	}
	if t.TabID != nil {
		return strconv.FormatInt(*t.TabID, 10)
	}
	return ""
}

// DeleteTrip requires a non-blank reason
func DeleteTrip(t trip.Trip, p session.Profile, reason string) (models.TripDeletion, error) {
	if t.ID == "" {
		return models.TripDeletion{}, missing("idViagem", t.ID)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.TripDeletion{}, invalidInput("a deletion reason is required")
	}
	return models.TripDeletion{
		IDViagem:       t.ID,
		Usuario:        p.UserName,
		MotivoExclusao: reason,
	}, nil
}

// Observation attaches a message to a trip. A code selects a predefined
// message and takes precedence over free text.
func Observation(t trip.Trip, p session.Profile, code, text string, now time.Time) (models.ObservationRequest, error) {
	if t.ID == "" {
		return models.ObservationRequest{}, missing("idViagem", t.ID)
	}

	message := strings.TrimSpace(text)
	if code != "" {
		predefined, ok := PredefinedMessage(code)
		if !ok {
			return models.ObservationRequest{}, invalidInput("unknown observation code %q", code)
		}
		message = predefined
	}
	if message == "" {
		return models.ObservationRequest{}, invalidInput("an observation message is required")
	}

	userID, _ := strconv.ParseInt(p.UserID, 10, 64)
	return models.ObservationRequest{
		Observacao: models.Observation{
			DataAtualizacao: now.UTC().Format(time.RFC3339),
			Mensagem:        message,
			UsuarioCriacao:  models.ObservationUser{ID: userID, Nome: p.UserName},
			ViagemData:      ToApiTrip(t),
		},
		ViagemID: t.ID,
	}, nil
}

// ToApiTrip maps a trip back onto the upstream record shape, carrying the
// identifiers unchanged
func ToApiTrip(t trip.Trip) models.ApiTrip {
	inProgress := t.Status == trip.StatusInProgress
	raw := models.ApiTrip{
		IDViagemExecutada: t.ID,
		Data:              t.ServiceDate,
		DataFormatada:     t.Date,
		VeiculoReal:       t.RealVehicle,
		VeiculoPlan:       t.PlannedVehicle,
		PartidaReal:       t.RealStart,
		ChegadaReal:       t.RealEnd,
		PartidaPlan:       t.PlannedStart,
		ChegadaPlan:       t.PlannedEnd,
		Duracao:           t.TravelTime,
		EmExecucao:        &inProgress,
		IDPlanejamento:    t.PlannedID,
		IDTabela:          t.TabID,
		IDHorario:         t.ScheduleID,
		NmTabela:          t.Tab,
		NmMotorista:       t.Driver,
		Trajeto:           t.RawRoute,
	}
	if t.Status == trip.StatusPlannedAndCompleted {
		one := 1
		raw.Status = &one
	}
	if t.Completion != nil {
		pct := models.Percent(strconv.FormatFloat(*t.Completion, 'f', -1, 64))
		raw.PercentualConclusao = &pct
	}
	return raw
}
