package table

import (
	"fmt"

	"github.com/tripdesk/internal/dashboard/columns"
	"github.com/tripdesk/internal/dashboard/trip"
	"golang.org/x/text/language"
)

// StatusTab is "all" or one of the trip statuses
type StatusTab string

const All StatusTab = "all"

func (s StatusTab) Valid() bool {
	return s == All || trip.Status(s).Valid()
}

func ParseStatusTab(s string) (StatusTab, error) {
	tab := StatusTab(s)
	if tab == "" {
		return All, nil
	}
	if !tab.Valid() {
		return "", fmt.Errorf("unknown status tab %q", s)
	}
	return tab, nil
}

// FilterByStatus keeps the trips of the active tab
func FilterByStatus(trips []trip.Trip, tab StatusTab) []trip.Trip {
	if tab == All || tab == "" {
		out := make([]trip.Trip, len(trips))
		copy(out, trips)
		return out
	}
	out := make([]trip.Trip, 0, len(trips))
	for _, t := range trips {
		if StatusTab(t.Status) == tab {
			out = append(out, t)
		}
	}
	return out
}

// StatusCounts holds the tab badges, computed over the unfiltered list
type StatusCounts map[StatusTab]int

func Counts(trips []trip.Trip) StatusCounts {
	counts := StatusCounts{All: len(trips)}
	for _, s := range trip.Statuses() {
		counts[StatusTab(s)] = 0
	}
	for _, t := range trips {
		counts[StatusTab(t.Status)]++
	}
	return counts
}

type Cell struct {
	Key   columns.Key `json:"key"`
	Value interface{} `json:"value"`
	Text  string      `json:"text"`
}

type Row struct {
	ID    string `json:"id"`
	Cells []Cell `json:"cells"`
}

type View struct {
	Order      columns.Order
	Visibility columns.Visibility
	Sort       SortState
	Status     StatusTab
	Language   language.Tag
}

type Table struct {
	Columns []columns.Key `json:"columns"`
	Rows    []Row         `json:"rows"`
	Counts  StatusCounts  `json:"counts"`
	Sort    SortState     `json:"sort"`
	Status  StatusTab     `json:"status"`
}

// Render filters by tab, sorts, then projects each row onto the visible
// columns in order. Every row ends with the actions cell.
func Render(trips []trip.Trip, v View) Table {
	visible := v.Order.Visible(v.Visibility)
	cols := append(visible, columns.Actions)

	rows := make([]Row, 0, len(trips))
	for _, t := range Sort(FilterByStatus(trips, v.Status), v.Sort, v.Language) {
		row := Row{ID: t.ID, Cells: make([]Cell, 0, len(cols))}
		for _, k := range visible {
			value, _ := Value(t, k)
			row.Cells = append(row.Cells, Cell{Key: k, Value: value, Text: CellText(t, k)})
		}
		row.Cells = append(row.Cells, Cell{Key: columns.Actions, Value: t.ID})
		rows = append(rows, row)
	}

	status := v.Status
	if status == "" {
		status = All
	}

	return Table{
		Columns: cols,
		Rows:    rows,
		Counts:  Counts(trips),
		Sort:    v.Sort,
		Status:  status,
	}
}
