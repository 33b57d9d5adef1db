package trip

import "github.com/tripdesk/pkg/planning/models"

func str(s string) *string   { return &s }
func num(i int) *int         { return &i }
func id(i int64) *int64      { return &i }
func pct(f float64) *float64 { return &f }

// DemoTrips is the fixed dataset shown, flagged degraded, when the first
// fetch of a session fails. Callers get a fresh copy each time.
func DemoTrips() []Trip {
	return []Trip{
		{
			ID: "demo-1", ScheduleID: id(1001), PlannedID: id(501), TabID: id(9001),
			Date: "02/08/2026", Status: StatusPlannedAndCompleted, Execution: ExecutionClosed,
			Line: "10 - Centro / Messejana", Route: str("Terminal Messejana"), LineNumber: str("10"),
			PlannedVehicle: str("31001"), RealVehicle: str("31001"), Driver: str("Carlos Lima"), Tab: str("T01"),
			PlannedStart: str("05:00:00"), RealStart: str("05:02:00"),
			PlannedEnd: str("06:10:00"), RealEnd: str("06:15:00"),
			StartDiff: num(2), EndDiff: num(5), Headway: num(12),
			Passengers: num(48), Completion: pct(100), TravelTime: str("01:13:00"),
			Consortium: DefaultConsortium,
			RawRoute: &models.TripRoute{ID: "demo-r1", Nome: "10 - Centro / Messejana", Sentido: "ida", NumeroLinha: "10",
				EndPoint: &models.EndPoint{ID: "demo-e1", Nome: "Terminal Messejana"}},
		},
		{
			ID: "demo-2", ScheduleID: id(1002), PlannedID: id(501), TabID: id(9002),
			Date: "02/08/2026", Status: StatusInProgress, Execution: ExecutionOpen,
			Line: "10 - Centro / Messejana", Route: str("Centro"), LineNumber: str("10"),
			PlannedVehicle: str("31002"), RealVehicle: str("31007"), Driver: str("Marina Souza"), Tab: str("T02"),
			PlannedStart: str("06:20:00"), RealStart: str("06:27:00"),
			PlannedEnd: str("07:30:00"),
			StartDiff:  num(7), Headway: num(10),
			Passengers: num(31), Completion: pct(62.5),
			Consortium: DefaultConsortium,
			RawRoute: &models.TripRoute{ID: "demo-r2", Nome: "10 - Centro / Messejana", Sentido: "volta", NumeroLinha: "10",
				EndPoint: &models.EndPoint{ID: "demo-e2", Nome: "Centro"}},
		},
		{
			ID: "demo-3", ScheduleID: id(1003), PlannedID: id(502), TabID: id(9003),
			Date: "02/08/2026", Status: StatusNotStarted, Execution: ExecutionNotStarted,
			Line: "25 - Parangaba / Aldeota", Route: str("Terminal Parangaba"), LineNumber: str("25"),
			PlannedVehicle: str("32010"), Tab: str("T05"),
			PlannedStart: str("07:40:00"), PlannedEnd: str("08:35:00"),
			Consortium: DefaultConsortium,
			RawRoute: &models.TripRoute{ID: "demo-r3", Nome: "25 - Parangaba / Aldeota", Sentido: "ida", NumeroLinha: "25",
				EndPoint: &models.EndPoint{ID: "demo-e3", Nome: "Terminal Parangaba"}},
		},
		{
			ID: "demo-4", ScheduleID: id(1004), PlannedID: id(502), TabID: id(9004),
			Date: "02/08/2026", Status: StatusPlannedAndCompleted, Execution: ExecutionClosed,
			Line: "25 - Parangaba / Aldeota", Route: str("Aldeota"), LineNumber: str("25"),
			PlannedVehicle: str("32011"), RealVehicle: str("32014"), Driver: str("João Pereira"), Tab: str("T06"),
			PlannedStart: str("05:30:00"), RealStart: str("05:28:00"),
			PlannedEnd: str("06:25:00"), RealEnd: str("06:21:00"),
			StartDiff: num(-2), EndDiff: num(-4), Headway: num(15),
			Passengers: num(55), Completion: pct(97.8), TravelTime: str("00:53:00"),
			Consortium: DefaultConsortium,
			RawRoute: &models.TripRoute{ID: "demo-r4", Nome: "25 - Parangaba / Aldeota", Sentido: "volta", NumeroLinha: "25",
				EndPoint: &models.EndPoint{ID: "demo-e4", Nome: "Aldeota"}},
		},
	}
}
