// Package query turns the view filters into a trip-query request.
package query

import (
	"strings"
	"time"

	"github.com/tripdesk/internal/dashboard/viewstate"
	"github.com/tripdesk/internal/planning/catalog"
	"github.com/tripdesk/internal/session"
	"github.com/tripdesk/pkg/planning/models"
)

const (
	MaxWindow          = 24 * time.Hour
	MinRealTimeMinutes = 1
	MaxRealTimeMinutes = 1440

	DefaultClientID = 1307
	Ordering        = "horario"

	timeLayout = "15:04:05"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads time.Now
var SystemClock Clock = ClockFunc(time.Now)

type Window struct {
	Start time.Time
	End   time.Time
}

// Request is a validated query ready to send
type Request struct {
	Payload  models.QueryRequest
	Window   Window
	RealTime bool
	Scope    string
}

type Builder struct {
	profile session.Profile
	clock   Clock
	loc     *time.Location
}

func NewBuilder(profile session.Profile, clock Clock) *Builder {
	if clock == nil {
		clock = SystemClock
	}
	if profile.TimeZone == "" {
		profile.TimeZone = session.DefaultTimeZone
	}
	return &Builder{
		profile: profile,
		clock:   clock,
		loc:     profile.Location(),
	}
}

// Build validates the filters and resolves the routes. It never touches
// the network.
func (b *Builder) Build(f viewstate.Filters, cat catalog.Catalog) (Request, error) {
	if f.Line == "" && f.Consortium == "" {
		return Request{}, &ValidationError{Err: ErrNoScope}
	}

	var (
		window Window
		err    error
	)
	if f.RealTimeEnabled {
		window, err = b.realTimeWindow(f.RealTimeMinutes)
	} else {
		window, err = b.manualWindow(f)
	}
	if err != nil {
		return Request{}, err
	}

	payload := models.QueryRequest{
		DataInicio:           window.Start.Format(viewstate.DateLayout),
		DataFim:              window.End.Format(viewstate.DateLayout),
		HoraInicio:           window.Start.Format(timeLayout),
		HoraFim:              window.End.Format(timeLayout),
		Empresas:             b.companies(),
		Trajetos:             ResolveRoutes(f, cat),
		IDCliente:            b.profile.ClientID,
		Ordenacao:            Ordering,
		Timezone:             b.profile.TimeZone,
		InicioDiaOperacional: b.profile.OperationalDayStart,
	}
	if payload.IDCliente == 0 {
		payload.IDCliente = DefaultClientID
	}
	if payload.InicioDiaOperacional == "" {
		payload.InicioDiaOperacional = session.DefaultOperationalDayStart
	}
	if !f.RealTimeEnabled {
		// verbatim, padded so whole-minute bounds are inclusive
		payload.DataInicio = f.StartDate
		payload.DataFim = f.EndDate
		payload.HoraInicio = padTime(f.StartTime, ":00")
		payload.HoraFim = padTime(f.EndTime, ":59")
	}

	return Request{
		Payload:  payload,
		Window:   window,
		RealTime: f.RealTimeEnabled,
		Scope:    Scope(f),
	}, nil
}

func (b *Builder) realTimeWindow(minutes int) (Window, error) {
	if minutes < MinRealTimeMinutes || minutes > MaxRealTimeMinutes {
		return Window{}, invalid(ErrRealTimeMinutes, "got %d", minutes)
	}
	end := b.clock.Now().In(b.loc)
	return Window{Start: end.Add(-time.Duration(minutes) * time.Minute), End: end}, nil
}

// manualWindow compares the bounds as entered, before any seconds padding
func (b *Builder) manualWindow(f viewstate.Filters) (Window, error) {
	start, err := b.parse(f.StartDate, f.StartTime)
	if err != nil {
		return Window{}, invalid(ErrInvalidWindow, "start: %v", err)
	}
	end, err := b.parse(f.EndDate, f.EndTime)
	if err != nil {
		return Window{}, invalid(ErrInvalidWindow, "end: %v", err)
	}
	if end.Before(start) {
		return Window{}, invalid(ErrInvalidWindow, "end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if end.Add(-MaxWindow).After(start) {
		return Window{}, invalid(ErrWindowTooWide, "%s to %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Window{Start: start, End: end}, nil
}

func (b *Builder) parse(date, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	layout := viewstate.DateLayout + " 15:04"
	if strings.Count(clock, ":") == 2 {
		layout = viewstate.DateLayout + " " + timeLayout
	}
	return time.ParseInLocation(layout, strings.TrimSpace(date)+" "+clock, b.loc)
}

func (b *Builder) companies() []int64 {
	out := make([]int64, len(b.profile.Companies))
	copy(out, b.profile.Companies)
	return out
}

func padTime(clock, seconds string) string {
	clock = strings.TrimSpace(clock)
	if strings.Count(clock, ":") == 1 {
		return clock + seconds
	}
	return clock
}

// Scope names the query scope, used as an event subject token
func Scope(f viewstate.Filters) string {
	var parts []string
	if f.Line != "" {
		parts = append(parts, "line:"+f.Line)
	}
	if f.Consortium != "" {
		parts = append(parts, "consortium:"+f.Consortium)
	}
	return strings.Join(parts, "+")
}
