package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenCreatesParentDirs(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "state", "pomidoro", "history.db"))
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestSummaryEmpty(t *testing.T) {
	store := openTestStore(t)

	stats, err := store.Summary(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SessionsToday)
	assert.Equal(t, 0, stats.CompletedToday)
	assert.Equal(t, time.Duration(0), stats.FocusToday)
	assert.Equal(t, 0, stats.TotalSessions)
}

func TestSummaryAggregates(t *testing.T) {
	store := openTestStore(t)
	// Fixed midday reference so "-2 hours" stays within the same calendar day.
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)

	require.NoError(t, store.Record(Record{
		Phase:     "working",
		StartedAt: now.Add(-2 * time.Hour),
		Planned:   25 * time.Minute,
		Spent:     25 * time.Minute,
		Completed: true,
	}))
	require.NoError(t, store.Record(Record{
		Phase:     "working",
		StartedAt: now.Add(-1 * time.Hour),
		Planned:   25 * time.Minute,
		Spent:     10 * time.Minute,
		Completed: false,
	}))
	// Breaks do not count toward focus totals.
	require.NoError(t, store.Record(Record{
		Phase:     "on_break",
		StartedAt: now.Add(-90 * time.Minute),
		Planned:   5 * time.Minute,
		Spent:     5 * time.Minute,
		Completed: true,
	}))
	// A session from last week counts only toward the all-time total.
	require.NoError(t, store.Record(Record{
		Phase:     "working",
		StartedAt: now.AddDate(0, 0, -7),
		Planned:   25 * time.Minute,
		Spent:     25 * time.Minute,
		Completed: true,
	}))

	stats, err := store.Summary(now)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SessionsToday)
	assert.Equal(t, 1, stats.CompletedToday)
	assert.Equal(t, 35*time.Minute, stats.FocusToday)
	assert.Equal(t, 3, stats.TotalSessions)
}
