package viewstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tripdesk/internal/common/kvstore"
	"github.com/tripdesk/internal/common/logger"
	"github.com/tripdesk/internal/dashboard/columns"
	"github.com/tripdesk/internal/dashboard/table"
)

// Stable storage keys
const (
	KeyShowFilters      = "showFilters"
	KeyFilters          = "filters"
	KeyColumnVisibility = "columnVisibility"
	KeyColumnOrder      = "columnOrder"
	KeySortConfig       = "sortConfig"
)

// Preferences is everything about the view that survives a restart
type Preferences struct {
	ShowFilters      bool               `json:"showFilters"`
	Filters          Filters            `json:"filters"`
	ColumnVisibility columns.Visibility `json:"columnVisibility"`
	ColumnOrder      columns.Order      `json:"columnOrder"`
	Sort             table.SortState    `json:"sortConfig"`
}

func DefaultPreferences(filters Filters) Preferences {
	return Preferences{
		ShowFilters:      true,
		Filters:          filters,
		ColumnVisibility: columns.DefaultVisibility(),
		ColumnOrder:      columns.DefaultOrder(),
		Sort:             table.Unsorted(),
	}
}

func (p Preferences) clone() Preferences {
	p.ColumnVisibility = p.ColumnVisibility.Clone()
	p.ColumnOrder = p.ColumnOrder.Clone()
	return p
}

// Repository is the one load/save boundary for Preferences
type Repository struct {
	store  kvstore.Store
	logger logger.Logger
}

func NewRepository(store kvstore.Store, log logger.Logger) *Repository {
	return &Repository{store: store, logger: log}
}

// Load overlays every stored key on defaults. Missing or unreadable keys
// keep the default; column values are repaired.
func (r *Repository) Load(ctx context.Context, defaults Preferences) Preferences {
	p := defaults.clone()

	r.read(ctx, KeyShowFilters, &p.ShowFilters)

	stored := p.Filters
	if r.read(ctx, KeyFilters, &stored) {
		if stored.RealTimeMinutes == 0 {
			stored.RealTimeMinutes = DefaultRealTimeMinutes
		}
		p.Filters = stored
	}

	var vis columns.Visibility
	if r.read(ctx, KeyColumnVisibility, &vis) {
		p.ColumnVisibility = vis.Repair()
	}

	var order columns.Order
	if r.read(ctx, KeyColumnOrder, &order) {
		p.ColumnOrder = order.Repair()
	}

	var sort table.SortState
	if r.read(ctx, KeySortConfig, &sort) {
		p.Sort = sort
	}

	return p
}

func (r *Repository) read(ctx context.Context, key string, out interface{}) bool {
	raw, found, err := r.store.Get(ctx, key)
	if err != nil {
		r.logger.Warn("Failed to read preference", "key", key, "error", err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		r.logger.Warn("Ignoring unreadable preference", "key", key, "error", err)
		return false
	}
	return true
}

// Save writes one key. Errors are logged, never returned.
func (r *Repository) Save(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Error("Failed to encode preference", "key", key, "error", err)
		return
	}
	if err := r.store.Set(ctx, key, string(data)); err != nil {
		r.logger.Warn("Failed to persist preference", "key", key, "error", err)
	}
}

func keyFor(c Change) (string, error) {
	switch c {
	case ChangeShowFilters:
		return KeyShowFilters, nil
	case ChangeFilters:
		return KeyFilters, nil
	case ChangeColumnVisibility:
		return KeyColumnVisibility, nil
	case ChangeColumnOrder:
		return KeyColumnOrder, nil
	case ChangeSort:
		return KeySortConfig, nil
	}
	return "", fmt.Errorf("change %s is not persisted", c)
}
