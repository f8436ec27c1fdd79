package cleanup_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whobible/backend/internal/cleanup"
	"whobible/backend/internal/models"
	"whobible/backend/internal/store"
)

func seedRoom(t *testing.T, st store.RemoteStore, code, status string, age time.Duration, now time.Time) {
	t.Helper()
	room := models.Room{
		Code:      code,
		Host:      "Ada",
		Status:    status,
		CreatedAt: now.Add(-age).UnixMilli(),
	}
	require.NoError(t, st.Write(context.Background(), "rooms/"+code, room))
}

func roomStatus(t *testing.T, st store.RemoteStore, code string) (string, bool) {
	t.Helper()
	var room models.Room
	found, err := st.ReadOnce(context.Background(), "rooms/"+code, &room)
	require.NoError(t, err)
	return room.Status, found
}

func TestSweep(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	seedRoom(t, mem, "FAITH-1", models.StatusWaiting, 10*time.Minute, now)
	seedRoom(t, mem, "FAITH-2", models.StatusWaiting, 2*time.Hour, now)
	seedRoom(t, mem, "GRACE-1", models.StatusActive, time.Hour, now)
	seedRoom(t, mem, "GRACE-2", models.StatusActive, 4*time.Hour, now)
	seedRoom(t, mem, "MERCY-1", models.StatusCompleted, 2*time.Hour, now)
	seedRoom(t, mem, "MERCY-2", models.StatusCompleted, 25*time.Hour, now)
	seedRoom(t, mem, "PSALM-1", models.StatusAbandoned, 25*time.Hour, now)

	sweeper := cleanup.NewSweeper(mem, zap.NewNop())
	sweeper.Now = func() time.Time { return now }
	require.NoError(t, sweeper.Sweep(context.Background()))

	status, _ := roomStatus(t, mem, "FAITH-1")
	assert.Equal(t, models.StatusWaiting, status, "fresh waiting room untouched")

	status, _ = roomStatus(t, mem, "FAITH-2")
	assert.Equal(t, models.StatusAbandoned, status, "stale waiting room abandoned")

	status, _ = roomStatus(t, mem, "GRACE-1")
	assert.Equal(t, models.StatusActive, status, "fresh active room untouched")

	status, _ = roomStatus(t, mem, "GRACE-2")
	assert.Equal(t, models.StatusAbandoned, status, "stale active room abandoned")

	status, _ = roomStatus(t, mem, "MERCY-1")
	assert.Equal(t, models.StatusCompleted, status, "completed room kept during retention")

	_, found := roomStatus(t, mem, "MERCY-2")
	assert.False(t, found, "completed room deleted after retention")

	_, found = roomStatus(t, mem, "PSALM-1")
	assert.False(t, found, "abandoned room deleted after retention")
}

func TestSweepEmptyStore(t *testing.T) {
	sweeper := cleanup.NewSweeper(store.NewMemory(), zap.NewNop())
	assert.NoError(t, sweeper.Sweep(context.Background()))
}

// A room abandoned by one sweep becomes deletable once it ages past the
// retention period, not before.
func TestSweepAbandonThenRetain(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	seedRoom(t, mem, "LIGHT-1", models.StatusWaiting, 2*time.Hour, now)

	sweeper := cleanup.NewSweeper(mem, zap.NewNop())
	sweeper.Now = func() time.Time { return now }
	require.NoError(t, sweeper.Sweep(context.Background()))

	status, found := roomStatus(t, mem, "LIGHT-1")
	require.True(t, found)
	require.Equal(t, models.StatusAbandoned, status)

	// Second sweep at the same time: still inside retention, still there.
	require.NoError(t, sweeper.Sweep(context.Background()))
	_, found = roomStatus(t, mem, "LIGHT-1")
	assert.True(t, found)

	// A day later the record goes away.
	sweeper.Now = func() time.Time { return now.Add(25 * time.Hour) }
	require.NoError(t, sweeper.Sweep(context.Background()))
	_, found = roomStatus(t, mem, "LIGHT-1")
	assert.False(t, found)
}
