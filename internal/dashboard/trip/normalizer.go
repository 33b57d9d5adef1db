package trip

import (
	"math"
	"strconv"
	"strings"

	"github.com/tripdesk/pkg/planning/models"
)

const DefaultConsortium = "ETUFOR"

// Normalizer converts raw API records. Missing fields stay nil; it never fails.
type Normalizer struct {
	defaultConsortium string
}

func NewNormalizer(defaultConsortium string) *Normalizer {
	if defaultConsortium == "" {
		defaultConsortium = DefaultConsortium
	}
	return &Normalizer{defaultConsortium: defaultConsortium}
}

// Normalize maps every record. activeConsortium is the consortium filter in
// effect, or "" when none is set.
func (n *Normalizer) Normalize(raw []models.ApiTrip, activeConsortium string) []Trip {
	consortium := activeConsortium
	if consortium == "" {
		consortium = n.defaultConsortium
	}

	trips := make([]Trip, 0, len(raw))
	for _, r := range raw {
		trips = append(trips, n.normalizeOne(r, consortium))
	}
	return trips
}

func (n *Normalizer) normalizeOne(r models.ApiTrip, consortium string) Trip {
	status, execution := Derive(r.EmExecucao, r.Status)

	t := Trip{
		ID:             r.IDViagemExecutada,
		ScheduleID:     r.IDHorario,
		PlannedID:      r.IDPlanejamento,
		TabID:          r.IDTabela,
		ServiceDate:    r.Data,
		Date:           r.DataFormatada,
		Status:         status,
		Execution:      execution,
		PlannedVehicle: r.VeiculoPlan,
		RealVehicle:    r.VeiculoReal,
		Driver:         r.NmMotorista,
		Tab:            r.NmTabela,
		PlannedStart:   r.PartidaPlan,
		RealStart:      r.PartidaReal,
		PlannedEnd:     r.ChegadaPlan,
		RealEnd:        r.ChegadaReal,
		StartDiff:      roundInt(r.DiffPartida),
		EndDiff:        roundInt(r.DiffChegada),
		Headway:        roundInt(r.Headway),
		Passengers:     nonNegative(roundInt(r.QtdPassageiros)),
		Completion:     ParseCompletion((*string)(r.PercentualConclusao)),
		TravelTime:     r.Duracao,
		Consortium:     consortium,
	}

	if r.Trajeto != nil {
		route := *r.Trajeto
		t.RawRoute = &route
		t.Line = route.Nome
		if route.NumeroLinha != "" {
			num := route.NumeroLinha
			t.LineNumber = &num
		}
		if route.EndPoint != nil {
			name := route.EndPoint.Nome
			t.Route = &name
		}
	}

	return t
}

// ParseCompletion accepts "85.5", "85.5%" and "85,5" within 0..100.
// Anything else is nil.
func ParseCompletion(s *string) *float64 {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	v = strings.TrimSuffix(v, "%")
	v = strings.TrimSpace(v)
	v = strings.Replace(v, ",", ".", 1)
	if v == "" {
		return nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > 100 {
		return nil
	}
	return &f
}

func roundInt(f *float64) *int {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	i := int(math.Round(*f))
	return &i
}

func nonNegative(i *int) *int {
	if i == nil || *i < 0 {
		return nil
	}
	return i
}
