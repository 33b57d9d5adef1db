// Package table turns a trip list and the current view into ordered rows:
// status tab filter, single-column sort and column projection.
package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tripdesk/internal/dashboard/columns"
	"github.com/tripdesk/internal/dashboard/trip"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

var ErrInvalidSort = errors.New("invalid sort config")

// SortState is Unsorted, Ascending(field) or Descending(field). The zero
// value is Unsorted, so field and direction are always set together.
type SortState struct {
	field     columns.Key
	direction Direction
}

func Unsorted() SortState { return SortState{} }

func Ascending(field columns.Key) SortState {
	return SortState{field: field, direction: Asc}
}

func Descending(field columns.Key) SortState {
	return SortState{field: field, direction: Desc}
}

func (s SortState) Field() (columns.Key, bool) {
	return s.field, s.field != ""
}

func (s SortState) Direction() Direction { return s.direction }

func (s SortState) IsSorted() bool { return s.field != "" }

func (s SortState) String() string {
	if !s.IsSorted() {
		return "unsorted"
	}
	return fmt.Sprintf("%s %s", s.field, s.direction)
}

// Click advances the header cycle: unsorted, asc, desc, unsorted. A header
// other than the sorted one starts at asc.
func (s SortState) Click(field columns.Key) SortState {
	if s.field != field {
		return Ascending(field)
	}
	switch s.direction {
	case Asc:
		return Descending(field)
	case Desc:
		return Unsorted()
	default:
		return Ascending(field)
	}
}

type sortJSON struct {
	Field     *columns.Key `json:"field"`
	Direction *Direction   `json:"direction"`
}

func (s SortState) MarshalJSON() ([]byte, error) {
	var out sortJSON
	if s.IsSorted() {
		f, d := s.field, s.direction
		out.Field, out.Direction = &f, &d
	}
	return json.Marshal(out)
}

func (s *SortState) UnmarshalJSON(b []byte) error {
	var in sortJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch {
	case in.Field == nil && in.Direction == nil:
		*s = Unsorted()
	case in.Field != nil && in.Direction != nil:
		if !columns.Valid(*in.Field) {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidSort, *in.Field)
		}
		switch *in.Direction {
		case Asc:
			*s = Ascending(*in.Field)
		case Desc:
			*s = Descending(*in.Field)
		default:
			return fmt.Errorf("%w: direction %q", ErrInvalidSort, *in.Direction)
		}
	default:
		return fmt.Errorf("%w: field and direction must both be set or both be null", ErrInvalidSort)
	}
	return nil
}

// Sort returns a sorted copy. Missing values always go last; the direction
// only orders the present ones.
func Sort(trips []trip.Trip, s SortState, lang language.Tag) []trip.Trip {
	out := make([]trip.Trip, len(trips))
	copy(out, trips)
	if !s.IsSorted() {
		return out
	}

	col := collate.New(lang)
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := Value(out[i], s.field)
		b, bok := Value(out[j], s.field)
		switch {
		case !aok && !bok:
			return false
		case !aok:
			return false
		case !bok:
			return true
		}

		c := compare(col, a, b)
		if s.direction == Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compare(col *collate.Collator, a, b interface{}) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return col.CompareString(av, bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			return cmpNumber(float64(av), float64(bv))
		}
		if bv, ok := b.(float64); ok {
			return cmpNumber(float64(av), bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmpNumber(av, bv)
		}
		if bv, ok := b.(int); ok {
			return cmpNumber(av, float64(bv))
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpNumber(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
