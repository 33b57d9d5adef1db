package mutation

import (
	"context"
	"time"

	"github.com/tripdesk/internal/common/logger"
	"github.com/tripdesk/internal/dashboard/trip"
	"github.com/tripdesk/internal/session"
	"github.com/tripdesk/pkg/planning/models"
)

type Action string

const (
	ActionEditSchedule       Action = "edit_schedule"
	ActionDeleteSchedule     Action = "delete_schedule"
	ActionIncludeSchedule    Action = "include_schedule"
	ActionEditTrip           Action = "edit_trip"
	ActionDeleteTrip         Action = "delete_trip"
	ActionIncludeObservation Action = "include_observation"
)

// API is implemented by the planning API client
type API interface {
	EditSchedule(ctx context.Context, changes []models.ScheduleChange) error
	IncludeSchedule(ctx context.Context, change models.ScheduleChange) error
	EditTrip(ctx context.Context, edit models.TripEdit) error
	DeleteTrip(ctx context.Context, del models.TripDeletion) error
	IncludeObservation(ctx context.Context, obs models.ObservationRequest) error
}

type Metrics interface {
	MutationInc(action string, ok bool)
}

// Result is the outcome of one mutation. Failures never touch view state.
type Result struct {
	Action Action    `json:"action"`
	TripID string    `json:"tripId,omitempty"`
	OK     bool      `json:"ok"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`

	Err error `json:"-"`
}

type Service struct {
	api     API
	profile func() session.Profile
	logger  logger.Logger
	metrics Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService takes the profile as a getter because the session may be
// populated after the service is built
func NewService(api API, profile func() session.Profile, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		api:     api,
		profile: profile,
		logger:  log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) report(action Action, tripID string, err error) Result {
	r := Result{Action: action, TripID: tripID, OK: err == nil, At: s.now(), Err: err}
	if err != nil {
		r.Error = err.Error()
		s.logger.Error("Mutation failed", "action", string(action), "trip_id", tripID, "error", err)
	} else {
		s.logger.Info("Mutation applied", "action", string(action), "trip_id", tripID)
	}
	if s.metrics != nil {
		s.metrics.MutationInc(string(action), err == nil)
	}
	return r
}

func (s *Service) EditSchedule(ctx context.Context, t trip.Trip, start, end string) Result {
	change, err := EditSchedule(t, s.profile(), start, end)
	if err == nil {
		err = s.api.EditSchedule(ctx, []models.ScheduleChange{change})
	}
	return s.report(ActionEditSchedule, t.ID, err)
}

func (s *Service) DeleteSchedules(ctx context.Context, trips []trip.Trip) Result {
	var tripID string
	if len(trips) == 1 {
		tripID = trips[0].ID
	}
	changes, err := DeleteSchedules(trips, s.profile())
	if err == nil {
		err = s.api.EditSchedule(ctx, changes)
	}
	return s.report(ActionDeleteSchedule, tripID, err)
}

func (s *Service) IncludeSchedule(ctx context.Context, t trip.Trip, start, end string) Result {
	change, err := IncludeSchedule(t, s.profile(), start, end)
	if err == nil {
		err = s.api.IncludeSchedule(ctx, change)
	}
	return s.report(ActionIncludeSchedule, t.ID, err)
}

func (s *Service) EditTrip(ctx context.Context, t trip.Trip, in EditTripInput) Result {
	edit, err := EditTrip(t, s.profile(), in)
	if err == nil {
		err = s.api.EditTrip(ctx, edit)
	}
	return s.report(ActionEditTrip, t.ID, err)
}

func (s *Service) DeleteTrip(ctx context.Context, t trip.Trip, reason string) Result {
	del, err := DeleteTrip(t, s.profile(), reason)
	if err == nil {
		err = s.api.DeleteTrip(ctx, del)
	}
	return s.report(ActionDeleteTrip, t.ID, err)
}

func (s *Service) IncludeObservation(ctx context.Context, t trip.Trip, code, text string) Result {
	obs, err := Observation(t, s.profile(), code, text, s.now())
	if err == nil {
		err = s.api.IncludeObservation(ctx, obs)
	}
	return s.report(ActionIncludeObservation, t.ID, err)
}
