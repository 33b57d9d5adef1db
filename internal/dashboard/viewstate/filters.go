package viewstate

import "time"

const (
	DefaultRealTimeMinutes = 30
	DefaultStartTime       = "00:00"
	DefaultEndTime         = "23:59"
	DateLayout             = "2006-01-02"
)

// Filters is the query scope and window. Empty strings mean "no filter".
// When RealTimeEnabled is set the explicit dates and times are ignored.
type Filters struct {
	Line            string `json:"line"`
	Route           string `json:"route"`
	Consortium      string `json:"consortium"`
	StartDate       string `json:"startDate"`
	StartTime       string `json:"startTime"`
	EndDate         string `json:"endDate"`
	EndTime         string `json:"endTime"`
	RealTimeEnabled bool   `json:"realTimeEnabled"`
	RealTimeMinutes int    `json:"realTimeMinutes"`
}

// DefaultFilters covers the whole of today in the given time
func DefaultFilters(now time.Time) Filters {
	today := now.Format(DateLayout)
	return Filters{
		StartDate:       today,
		StartTime:       DefaultStartTime,
		EndDate:         today,
		EndTime:         DefaultEndTime,
		RealTimeMinutes: DefaultRealTimeMinutes,
	}
}

// FilterPatch is a shallow merge: nil fields are left unchanged
type FilterPatch struct {
	Line            *string `json:"line,omitempty"`
	Route           *string `json:"route,omitempty"`
	Consortium      *string `json:"consortium,omitempty"`
	StartDate       *string `json:"startDate,omitempty"`
	StartTime       *string `json:"startTime,omitempty"`
	EndDate         *string `json:"endDate,omitempty"`
	EndTime         *string `json:"endTime,omitempty"`
	RealTimeEnabled *bool   `json:"realTimeEnabled,omitempty"`
	RealTimeMinutes *int    `json:"realTimeMinutes,omitempty"`
}

func (p FilterPatch) Empty() bool {
	return p == FilterPatch{}
}

func (f Filters) Merge(p FilterPatch) Filters {
	if p.Line != nil {
		f.Line = *p.Line
	}
	if p.Route != nil {
		f.Route = *p.Route
	}
	if p.Consortium != nil {
		f.Consortium = *p.Consortium
	}
	if p.StartDate != nil {
		f.StartDate = *p.StartDate
	}
	if p.StartTime != nil {
		f.StartTime = *p.StartTime
	}
	if p.EndDate != nil {
		f.EndDate = *p.EndDate
	}
	if p.EndTime != nil {
		f.EndTime = *p.EndTime
	}
	if p.RealTimeEnabled != nil {
		f.RealTimeEnabled = *p.RealTimeEnabled
	}
	if p.RealTimeMinutes != nil {
		f.RealTimeMinutes = *p.RealTimeMinutes
	}
	return f
}
