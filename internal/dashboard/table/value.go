package table

import (
	"strconv"

	"github.com/tripdesk/internal/dashboard/columns"
	"github.com/tripdesk/internal/dashboard/trip"
)

// Value returns the sortable value of a column and whether it is present.
// Strings come back as string, counters as int, completion as float64 and
// the enums as their own types.
func Value(t trip.Trip, key columns.Key) (interface{}, bool) {
	switch key {
	case columns.Date:
		return t.Date, true
	case columns.Status:
		return t.Status, true
	case columns.Line:
		return t.Line, true
	case columns.Route:
		return strValue(t.Route)
	case columns.Execution:
		return t.Execution, true
	case columns.PlannedVehicle:
		return strValue(t.PlannedVehicle)
	case columns.RealVehicle:
		return strValue(t.RealVehicle)
	case columns.Tab:
		return strValue(t.Tab)
	case columns.Passengers:
		return intValue(t.Passengers)
	case columns.PlannedStart:
		return strValue(t.PlannedStart)
	case columns.RealStart:
		return strValue(t.RealStart)
	case columns.StartDiff:
		return intValue(t.StartDiff)
	case columns.PlannedEnd:
		return strValue(t.PlannedEnd)
	case columns.RealEnd:
		return strValue(t.RealEnd)
	case columns.EndDiff:
		return intValue(t.EndDiff)
	case columns.Headway:
		return intValue(t.Headway)
	case columns.Driver:
		return strValue(t.Driver)
	case columns.TravelTime:
		return strValue(t.TravelTime)
	case columns.Completion:
		if t.Completion == nil {
			return nil, false
		}
		return *t.Completion, true
	}
	return nil, false
}

func strValue(s *string) (interface{}, bool) {
	if s == nil {
		return nil, false
	}
	return *s, true
}

func intValue(i *int) (interface{}, bool) {
	if i == nil {
		return nil, false
	}
	return *i, true
}

// CellText is the display form: "-" for missing values, "85.5%" for completion
func CellText(t trip.Trip, key columns.Key) string {
	v, ok := Value(t, key)
	if !ok {
		return "-"
	}
	switch val := v.(type) {
	case string:
		if val == "" {
			return "-"
		}
		return val
	case int:
		return strconv.Itoa(val)
	case float64:
		text := strconv.FormatFloat(val, 'f', -1, 64)
		if key == columns.Completion {
			return text + "%"
		}
		return text
	case trip.Status:
		return string(val)
	case trip.Execution:
		return string(val)
	}
	return "-"
}
