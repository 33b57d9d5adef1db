// Package columns defines the fixed set of trip table columns, their default
// visibility and order, and keeps ColumnOrder a permutation of that set.
package columns

import (
	"errors"
	"fmt"
)

type Key string

const (
	Date           Key = "date"
	Status         Key = "status"
	Line           Key = "line"
	Route          Key = "route"
	Execution      Key = "execution"
	PlannedVehicle Key = "plannedVehicle"
	RealVehicle    Key = "realVehicle"
	Tab            Key = "tab"
	Passengers     Key = "passengers"
	PlannedStart   Key = "plannedStart"
	RealStart      Key = "realStart"
	StartDiff      Key = "startDiff"
	PlannedEnd     Key = "plannedEnd"
	RealEnd        Key = "realEnd"
	EndDiff        Key = "endDiff"
	Headway        Key = "headway"
	Driver         Key = "driver"
	TravelTime     Key = "travelTime"
	Completion     Key = "completion"

	// Actions is the trailing affordance column. It is not a data column.
	Actions Key = "actions"
)

var allKeys = [...]Key{
	Date, Status, Line, Route, Execution, PlannedVehicle, RealVehicle, Tab, Passengers,
	PlannedStart, RealStart, StartDiff, PlannedEnd, RealEnd, EndDiff, Headway, Driver,
	TravelTime, Completion,
}

var hiddenByDefault = map[Key]bool{
	Tab:       true,
	StartDiff: true,
	EndDiff:   true,
	Headway:   true,
	Driver:    true,
}

var (
	ErrUnknownKey     = errors.New("unknown column key")
	ErrNotPermutation = errors.New("column order is not a permutation of the column set")
)

// Keys returns the 19 data column keys in default order
func Keys() []Key {
	out := make([]Key, len(allKeys))
	copy(out, allKeys[:])
	return out
}

func Valid(k Key) bool {
	for _, known := range allKeys {
		if known == k {
			return true
		}
	}
	return false
}

// Visibility maps every column key to whether it is shown
type Visibility map[Key]bool

func DefaultVisibility() Visibility {
	v := make(Visibility, len(allKeys))
	for _, k := range allKeys {
		v[k] = !hiddenByDefault[k]
	}
	return v
}

// Repair fills missing keys with their defaults and drops unknown ones
func (v Visibility) Repair() Visibility {
	def := DefaultVisibility()
	out := make(Visibility, len(allKeys))
	for _, k := range allKeys {
		if shown, ok := v[k]; ok {
			out[k] = shown
		} else {
			out[k] = def[k]
		}
	}
	return out
}

func (v Visibility) Validate() error {
	if len(v) != len(allKeys) {
		return fmt.Errorf("visibility has %d keys, want %d", len(v), len(allKeys))
	}
	for k := range v {
		if !Valid(k) {
			return fmt.Errorf("%w: %s", ErrUnknownKey, k)
		}
	}
	return nil
}

func (v Visibility) Clone() Visibility {
	out := make(Visibility, len(v))
	for k, shown := range v {
		out[k] = shown
	}
	return out
}

// Toggle returns a copy with k flipped
func (v Visibility) Toggle(k Key) (Visibility, error) {
	if !Valid(k) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, k)
	}
	out := v.Clone()
	out[k] = !out[k]
	return out, nil
}

// Order is a permutation of the column keys. Hidden columns keep their slot.
type Order []Key

func DefaultOrder() Order {
	return Order(Keys())
}

func (o Order) Clone() Order {
	out := make(Order, len(o))
	copy(out, o)
	return out
}

func (o Order) Validate() error {
	if len(o) != len(allKeys) {
		return fmt.Errorf("%w: %d keys, want %d", ErrNotPermutation, len(o), len(allKeys))
	}
	seen := make(map[Key]bool, len(o))
	for _, k := range o {
		if !Valid(k) {
			return fmt.Errorf("%w: %s", ErrUnknownKey, k)
		}
		if seen[k] {
			return fmt.Errorf("%w: duplicate %s", ErrNotPermutation, k)
		}
		seen[k] = true
	}
	return nil
}

// Repair keeps known unique keys in their stored order and appends the
// missing ones in default order.
func (o Order) Repair() Order {
	seen := make(map[Key]bool, len(allKeys))
	out := make(Order, 0, len(allKeys))
	for _, k := range o {
		if Valid(k) && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range allKeys {
		if !seen[k] {
			out = append(out, k)
		}
	}
	return out
}

func (o Order) Index(k Key) int {
	for i, key := range o {
		if key == k {
			return i
		}
	}
	return -1
}

// Move removes src and reinserts it at dst's index, shifting the keys in
// between. Moving a key onto itself is a no-op.
func (o Order) Move(src, dst Key) (Order, error) {
	from := o.Index(src)
	if from < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, src)
	}
	to := o.Index(dst)
	if to < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, dst)
	}

	out := o.Clone()
	if from == to {
		return out, nil
	}

	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append(Order{moved}, out[to:]...)...)
	return out, nil
}

// Visible projects the order onto the visible keys
func (o Order) Visible(v Visibility) []Key {
	out := make([]Key, 0, len(o))
	for _, k := range o {
		if v[k] {
			out = append(out, k)
		}
	}
	return out
}
