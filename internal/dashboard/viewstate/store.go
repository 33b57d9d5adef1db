// Package viewstate holds the operator's view: filters, active status tab,
// column layout and sort. Every persisted change is written through to the
// durable store and announced to subscribers.
package viewstate

import (
	"context"
	"fmt"
	"sync"

	"github.com/tripdesk/internal/common/logger"
	"github.com/tripdesk/internal/dashboard/columns"
	"github.com/tripdesk/internal/dashboard/table"
)

type Change string

const (
	ChangeFilters          Change = "filters"
	ChangeColumnVisibility Change = "columnVisibility"
	ChangeColumnOrder      Change = "columnOrder"
	ChangeSort             Change = "sort"
	ChangeShowFilters      Change = "showFilters"
	ChangeActiveStatus     Change = "activeStatus"
)

// Listener is called after the change is applied, outside the store lock
type Listener func(Change, Snapshot)

// Snapshot is a copy of the whole view
type Snapshot struct {
	Preferences
	ActiveStatus table.StatusTab `json:"activeStatus"`
}

type Store struct {
	repo   *Repository
	logger logger.Logger

	// persistMu orders mutate+save so the stored value never lags the live one
	persistMu sync.Mutex

	mu        sync.RWMutex
	prefs     Preferences
	active    table.StatusTab
	listeners map[int]Listener
	nextID    int
}

func NewStore(repo *Repository, initial Preferences, log logger.Logger) *Store {
	return &Store{
		repo:      repo,
		logger:    log,
		prefs:     initial.clone(),
		active:    table.All,
		listeners: make(map[int]Listener),
	}
}

// Open loads stored preferences over defaults and returns a ready store
func Open(ctx context.Context, repo *Repository, defaults Preferences, log logger.Logger) *Store {
	return NewStore(repo, repo.Load(ctx, defaults), log)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Preferences: s.prefs.clone(), ActiveStatus: s.active}
}

func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Filters
}

func (s *Store) ActiveStatus() table.StatusTab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Subscribe registers fn and returns a function that removes it
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// apply runs mutate under the lock, persists the changed key and notifies.
// Readers only wait on the mutation, not on the save.
func (s *Store) apply(ctx context.Context, change Change, mutate func(p *Preferences) error) error {
	s.persistMu.Lock()
	s.mu.Lock()
	if err := mutate(&s.prefs); err != nil {
		s.mu.Unlock()
		s.persistMu.Unlock()
		return err
	}
	snap := Snapshot{Preferences: s.prefs.clone(), ActiveStatus: s.active}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if key, err := keyFor(change); err == nil && s.repo != nil {
		s.repo.Save(ctx, key, persistedValue(change, snap.Preferences))
	}
	s.persistMu.Unlock()

	s.logger.Debug("View state changed", "change", string(change))
	for _, l := range listeners {
		l(change, snap)
	}
	return nil
}

func persistedValue(c Change, p Preferences) interface{} {
	switch c {
	case ChangeShowFilters:
		return p.ShowFilters
	case ChangeFilters:
		return p.Filters
	case ChangeColumnVisibility:
		return p.ColumnVisibility
	case ChangeColumnOrder:
		return p.ColumnOrder
	case ChangeSort:
		return p.Sort
	}
	return nil
}

// MergeFilters applies a shallow patch. No validation happens here.
func (s *Store) MergeFilters(ctx context.Context, patch FilterPatch) Filters {
	var merged Filters
	s.apply(ctx, ChangeFilters, func(p *Preferences) error {
		p.Filters = p.Filters.Merge(patch)
		merged = p.Filters
		return nil
	})
	return merged
}

func (s *Store) SetColumnVisibility(ctx context.Context, v columns.Visibility) error {
	if err := v.Validate(); err != nil {
		return err
	}
	return s.apply(ctx, ChangeColumnVisibility, func(p *Preferences) error {
		p.ColumnVisibility = v.Clone()
		return nil
	})
}

// ToggleColumn flips one column's visibility
func (s *Store) ToggleColumn(ctx context.Context, key columns.Key) error {
	return s.apply(ctx, ChangeColumnVisibility, func(p *Preferences) error {
		next, err := p.ColumnVisibility.Toggle(key)
		if err != nil {
			return err
		}
		p.ColumnVisibility = next
		return nil
	})
}

func (s *Store) SetColumnOrder(ctx context.Context, o columns.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	return s.apply(ctx, ChangeColumnOrder, func(p *Preferences) error {
		p.ColumnOrder = o.Clone()
		return nil
	})
}

// MoveColumn moves src to dst's position
func (s *Store) MoveColumn(ctx context.Context, src, dst columns.Key) error {
	return s.apply(ctx, ChangeColumnOrder, func(p *Preferences) error {
		next, err := p.ColumnOrder.Move(src, dst)
		if err != nil {
			return err
		}
		p.ColumnOrder = next
		return nil
	})
}

func (s *Store) SetSort(ctx context.Context, sort table.SortState) {
	s.apply(ctx, ChangeSort, func(p *Preferences) error {
		p.Sort = sort
		return nil
	})
}

// ClickSort advances the sort cycle for a header and returns the new state
func (s *Store) ClickSort(ctx context.Context, field columns.Key) (table.SortState, error) {
	var next table.SortState
	err := s.apply(ctx, ChangeSort, func(p *Preferences) error {
		if !columns.Valid(field) {
			return fmt.Errorf("%w: %s", columns.ErrUnknownKey, field)
		}
		next = p.Sort.Click(field)
		p.Sort = next
		return nil
	})
	return next, err
}

func (s *Store) SetShowFilters(ctx context.Context, show bool) {
	s.apply(ctx, ChangeShowFilters, func(p *Preferences) error {
		p.ShowFilters = show
		return nil
	})
}

// SetActiveStatus selects the status tab. It is session-only.
func (s *Store) SetActiveStatus(ctx context.Context, tab table.StatusTab) error {
	parsed, err := table.ParseStatusTab(string(tab))
	if err != nil {
		return err
	}
	return s.apply(ctx, ChangeActiveStatus, func(p *Preferences) error {
		s.active = parsed
		return nil
	})
}
