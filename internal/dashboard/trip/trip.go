// Package trip holds the canonical trip model and the normalizer that maps
// raw API records into it.
package trip

import "github.com/tripdesk/pkg/planning/models"

type Status string

const (
	StatusPlannedAndCompleted Status = "PLANNED_AND_COMPLETED"
	StatusInProgress          Status = "IN_PROGRESS"
	StatusNotStarted          Status = "NOT_STARTED"
)

// Statuses lists the three statuses in tab order
func Statuses() []Status {
	return []Status{StatusPlannedAndCompleted, StatusInProgress, StatusNotStarted}
}

func (s Status) Valid() bool {
	switch s {
	case StatusPlannedAndCompleted, StatusInProgress, StatusNotStarted:
		return true
	}
	return false
}

type Execution string

const (
	ExecutionClosed     Execution = "CLOSED"
	ExecutionOpen       Execution = "OPEN"
	ExecutionNotStarted Execution = "NOT_STARTED"
)

// Trip is one row of the table. A list of trips is replaced wholesale on
// every fetch cycle and never mutated in place.
type Trip struct {
	ID          string  `json:"id"`
	ScheduleID  *int64  `json:"scheduleId,omitempty"`
	PlannedID   *int64  `json:"plannedId,omitempty"`
	TabID       *int64  `json:"tabId,omitempty"`
	ServiceDate *string `json:"serviceDate,omitempty"`

	Date      string    `json:"date"`
	Status    Status    `json:"status"`
	Execution Execution `json:"execution"`

	Line       string  `json:"line"`
	Route      *string `json:"route,omitempty"`
	LineNumber *string `json:"lineNumber,omitempty"`

	PlannedVehicle *string `json:"plannedVehicle,omitempty"`
	RealVehicle    *string `json:"realVehicle,omitempty"`
	Driver         *string `json:"driver,omitempty"`
	Tab            *string `json:"tab,omitempty"`

	PlannedStart *string `json:"plannedStart,omitempty"`
	RealStart    *string `json:"realStart,omitempty"`
	PlannedEnd   *string `json:"plannedEnd,omitempty"`
	RealEnd      *string `json:"realEnd,omitempty"`

	StartDiff *int `json:"startDiff,omitempty"`
	EndDiff   *int `json:"endDiff,omitempty"`
	Headway   *int `json:"headway,omitempty"`

	Passengers *int     `json:"passengers,omitempty"`
	Completion *float64 `json:"completion,omitempty"`
	TravelTime *string  `json:"travelTime,omitempty"`
	Consortium string   `json:"consortium"`

	RawRoute *models.TripRoute `json:"rawRoute,omitempty"`
}

// Derive maps the two upstream flags to the status/execution pair.
// First match wins.
func Derive(emExecucao *bool, status *int) (Status, Execution) {
	switch {
	case emExecucao != nil && *emExecucao:
		return StatusInProgress, ExecutionOpen
	case status != nil && *status == 1:
		return StatusPlannedAndCompleted, ExecutionClosed
	default:
		return StatusNotStarted, ExecutionNotStarted
	}
}
