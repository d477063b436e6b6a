package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rendis/canopy/internal/store"
)

// mockMaintenanceStore satisfies store.Store for maintenance tests.
type mockMaintenanceStore struct {
	store.Store
	mu        sync.Mutex
	pruneCuts []time.Time
	vacuums   int
	pruned    int64
	vacuumErr error
}

func (m *mockMaintenanceStore) PruneEvents(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneCuts = append(m.pruneCuts, before)
	return m.pruned, nil
}

func (m *mockMaintenanceStore) Vacuum(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vacuums++
	return m.vacuumErr
}

func newTestMaintenance(t *testing.T, s store.Store, retention time.Duration) *Maintenance {
	t.Helper()
	m, err := NewMaintenance(s, "0 3 * * *", retention, slog.Default())
	require.NoError(t, err)
	return m
}

func TestNextRun(t *testing.T) {
	m := newTestMaintenance(t, &mockMaintenanceStore{}, time.Hour)
	from := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 16, 3, 0, 0, 0, time.UTC), m.NextRun(from))
}

func TestNewMaintenance_InvalidCron(t *testing.T) {
	_, err := NewMaintenance(&mockMaintenanceStore{}, "not a cron", time.Hour, slog.Default())
	require.Error(t, err)
}

func TestNewMaintenance_DefaultCron(t *testing.T) {
	m, err := NewMaintenance(&mockMaintenanceStore{}, "", time.Hour, slog.Default())
	require.NoError(t, err)
	from := time.Date(2025, 1, 15, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC), m.NextRun(from))
}

func TestRunOnce_PrunesByRetentionAndVacuums(t *testing.T) {
	s := &mockMaintenanceStore{pruned: 7}
	m := newTestMaintenance(t, s, 24*time.Hour)
	fixed := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	report, err := m.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.PrunedEvents)
	assert.True(t, report.Vacuumed)
	require.Len(t, s.pruneCuts, 1)
	assert.Equal(t, fixed.Add(-24*time.Hour), s.pruneCuts[0])
	assert.Equal(t, 1, s.vacuums)
	assert.Same(t, report, m.LastRun())
}

func TestRunOnce_ZeroRetentionSkipsPrune(t *testing.T) {
	s := &mockMaintenanceStore{}
	m := newTestMaintenance(t, s, 0)

	_, err := m.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.pruneCuts)
	assert.Equal(t, 1, s.vacuums)
}

func TestRunOnce_VacuumFailure(t *testing.T) {
	s := &mockMaintenanceStore{vacuumErr: errors.New("disk full")}
	m := newTestMaintenance(t, s, time.Hour)

	_, err := m.RunOnce(context.Background())
	require.Error(t, err)
	assert.Nil(t, m.LastRun())
}

func TestMaintenance_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := newTestMaintenance(t, &mockMaintenanceStore{}, time.Hour)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	err := m.Start(ctx)
	assert.Error(t, err, "double start should fail")

	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop(), "stop is idempotent")
}
