package viewstate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/internal/common/kvstore"
	"github.com/tripdesk/internal/common/logger"
	"github.com/tripdesk/internal/dashboard/columns"
	"github.com/tripdesk/internal/dashboard/table"
	"github.com/tripdesk/internal/dashboard/trip"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

var day = time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T, kv kvstore.Store) *Store {
	t.Helper()
	repo := NewRepository(kv, logger.Discard())
	return Open(context.Background(), repo, DefaultPreferences(DefaultFilters(day)), logger.Discard())
}

func TestDefaults(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemory())
	snap := s.Snapshot()

	assert.True(t, snap.ShowFilters)
	assert.Equal(t, "2026-08-02", snap.Filters.StartDate)
	assert.Equal(t, "00:00", snap.Filters.StartTime)
	assert.Equal(t, "23:59", snap.Filters.EndTime)
	assert.Equal(t, 30, snap.Filters.RealTimeMinutes)
	assert.Equal(t, table.All, snap.ActiveStatus)
	assert.False(t, snap.Sort.IsSorted())
	assert.Equal(t, columns.DefaultOrder(), snap.ColumnOrder)
}

func TestMergeFiltersIsShallow(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemory())

	s.MergeFilters(context.Background(), FilterPatch{Line: strp("10")})
	f := s.MergeFilters(context.Background(), FilterPatch{RealTimeEnabled: boolp(true)})

	assert.Equal(t, "10", f.Line)
	assert.True(t, f.RealTimeEnabled)
	assert.Equal(t, "00:00", f.StartTime)
}

func TestPreferencesSurviveRestart(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()

	s := newTestStore(t, kv)
	s.MergeFilters(ctx, FilterPatch{Consortium: strp("ETUFOR")})
	require.NoError(t, s.ToggleColumn(ctx, columns.Driver))
	require.NoError(t, s.MoveColumn(ctx, columns.Completion, columns.Date))
	_, err := s.ClickSort(ctx, columns.Passengers)
	require.NoError(t, err)
	s.SetShowFilters(ctx, false)
	require.NoError(t, s.SetActiveStatus(ctx, table.StatusTab(trip.StatusInProgress)))

	restarted := newTestStore(t, kv)
	snap := restarted.Snapshot()

	assert.Equal(t, "ETUFOR", snap.Filters.Consortium)
	assert.True(t, snap.ColumnVisibility[columns.Driver])
	assert.Equal(t, columns.Completion, snap.ColumnOrder[0])
	assert.Equal(t, table.Ascending(columns.Passengers), snap.Sort)
	assert.False(t, snap.ShowFilters)
	// the status tab is not persisted
	assert.Equal(t, table.All, snap.ActiveStatus)
}

// slowStore delays the first Set so a later write can overtake it
type slowStore struct {
	kvstore.Store
	once  sync.Once
	delay time.Duration
}

func (s *slowStore) Set(ctx context.Context, key, value string) error {
	s.once.Do(func() { time.Sleep(s.delay) })
	return s.Store.Set(ctx, key, value)
}

func TestConcurrentWritesPersistLatestValue(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s := newTestStore(t, &slowStore{Store: kv, delay: 100 * time.Millisecond})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.MergeFilters(ctx, FilterPatch{Line: strp("first")})
	}()
	time.Sleep(20 * time.Millisecond)
	s.MergeFilters(ctx, FilterPatch{Line: strp("second")})
	wg.Wait()

	live := s.Snapshot().Filters.Line
	persisted := newTestStore(t, kv).Snapshot().Filters.Line
	assert.Equal(t, live, persisted)
}

func TestLoadRepairsStoredValues(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(ctx, KeyColumnOrder, `["completion","date","completion","bogus"]`))
	require.NoError(t, kv.Set(ctx, KeyColumnVisibility, `{"date":false}`))
	require.NoError(t, kv.Set(ctx, KeySortConfig, `{"field":"line","direction":null}`))
	require.NoError(t, kv.Set(ctx, KeyShowFilters, `not json`))

	snap := newTestStore(t, kv).Snapshot()

	require.NoError(t, snap.ColumnOrder.Validate())
	assert.Equal(t, columns.Completion, snap.ColumnOrder[0])
	assert.Equal(t, columns.Date, snap.ColumnOrder[1])
	require.NoError(t, snap.ColumnVisibility.Validate())
	assert.False(t, snap.ColumnVisibility[columns.Date])
	assert.True(t, snap.ColumnVisibility[columns.Status])
	assert.False(t, snap.Sort.IsSorted())
	assert.True(t, snap.ShowFilters)
}

func TestRejectsInvalidColumns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kvstore.NewMemory())

	assert.Error(t, s.SetColumnOrder(ctx, columns.Order{columns.Date}))
	assert.ErrorIs(t, s.MoveColumn(ctx, "bogus", columns.Date), columns.ErrUnknownKey)
	assert.ErrorIs(t, s.ToggleColumn(ctx, "bogus"), columns.ErrUnknownKey)
	_, err := s.ClickSort(ctx, "bogus")
	assert.ErrorIs(t, err, columns.ErrUnknownKey)
	assert.Error(t, s.SetActiveStatus(ctx, "DONE"))

	assert.Equal(t, columns.DefaultOrder(), s.Snapshot().ColumnOrder)
}

func TestSubscribersSeeChanges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kvstore.NewMemory())

	var got []Change
	unsubscribe := s.Subscribe(func(c Change, snap Snapshot) {
		got = append(got, c)
		if c == ChangeFilters {
			assert.Equal(t, "10", snap.Filters.Line)
		}
	})

	s.MergeFilters(ctx, FilterPatch{Line: strp("10")})
	s.SetSort(ctx, table.Descending(columns.Line))
	require.NoError(t, s.SetActiveStatus(ctx, ""))

	unsubscribe()
	s.SetShowFilters(ctx, false)

	assert.Equal(t, []Change{ChangeFilters, ChangeSort, ChangeActiveStatus}, got)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemory())
	snap := s.Snapshot()
	snap.ColumnOrder[0] = columns.Completion
	snap.ColumnVisibility[columns.Date] = false

	again := s.Snapshot()
	assert.Equal(t, columns.Date, again.ColumnOrder[0])
	assert.True(t, again.ColumnVisibility[columns.Date])
}
