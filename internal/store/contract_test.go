package store_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whobible/backend/internal/store"
)

// Both backends must satisfy the same RemoteStore semantics, so every
// contract test runs against the in-memory store and a miniredis-backed
// Redis store.
func forEachStore(t *testing.T, fn func(t *testing.T, st store.RemoteStore)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, store.NewMemory())
	})
	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		fn(t, store.NewRedis(rdb, zap.NewNop()))
	})
}

// recorder collects subscription payloads. Redis delivery is
// asynchronous, so assertions wait for the expected count.
type recorder struct {
	mu       sync.Mutex
	payloads []string
}

func (r *recorder) fn(raw []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, string(raw))
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.payloads...)
}

func (r *recorder) waitLen(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := r.all(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	got := r.all()
	require.Len(t, got, n)
	return got
}

func TestWriteReadRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		ctx := context.Background()

		type player struct {
			Name  string `json:"name"`
			Score int    `json:"score"`
		}

		require.NoError(t, st.Write(ctx, "rooms/FAITH-1/players/player1", player{Name: "Ada", Score: 3}))

		var got player
		found, err := st.ReadOnce(ctx, "rooms/FAITH-1/players/player1", &got)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, player{Name: "Ada", Score: 3}, got)
	})
}

func TestReadOnceAbsent(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		var got map[string]any
		found, err := st.ReadOnce(context.Background(), "rooms/NOPE-999", &got)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})
}

// A listener registered before the value exists must observe the write
// that establishes it.
func TestSubscribeSeesEstablishingWrite(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		ctx := context.Background()
		rec := &recorder{}

		sub, err := st.Subscribe(ctx, "rooms/FAITH-1/questions", rec.fn)
		require.NoError(t, err)
		defer sub.Close()

		require.NoError(t, st.Write(ctx, "rooms/FAITH-1/questions", []string{"q1", "q2"}))

		got := rec.waitLen(t, 2)
		assert.Equal(t, "null", got[0], "initial snapshot of an absent path")
		assert.JSONEq(t, `["q1","q2"]`, got[1])
	})
}

// A write at the room root must reach a subscriber of a nested path, and
// a nested write must reach a subscriber of the room root.
func TestAncestorDescendantFanout(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		ctx := context.Background()
		statusRec := &recorder{}
		rootRec := &recorder{}

		subStatus, err := st.Subscribe(ctx, "rooms/FAITH-1/status", statusRec.fn)
		require.NoError(t, err)
		defer subStatus.Close()
		subRoot, err := st.Subscribe(ctx, "rooms/FAITH-1", rootRec.fn)
		require.NoError(t, err)
		defer subRoot.Close()

		require.NoError(t, st.Write(ctx, "rooms/FAITH-1", map[string]any{"status": "waiting", "host": "Ada"}))
		statusRec.waitLen(t, 2)
		require.NoError(t, st.Write(ctx, "rooms/FAITH-1/status", "active"))

		statusGot := statusRec.waitLen(t, 3)
		assert.Equal(t, `"waiting"`, statusGot[1], "root write visible at descendant")
		assert.Equal(t, `"active"`, statusGot[2])

		rootGot := rootRec.waitLen(t, 3)
		assert.JSONEq(t, `{"status":"active","host":"Ada"}`, rootGot[2], "leaf write visible at ancestor")
	})
}

func TestUpdatePreservesSiblings(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		ctx := context.Background()

		require.NoError(t, st.Write(ctx, "rooms/X-1/players/player1", map[string]any{
			"name": "Ada", "score": 0, "ready": false,
		}))
		require.NoError(t, st.Update(ctx, "rooms/X-1/players/player1", map[string]any{"ready": true}))

		var got map[string]any
		found, err := st.ReadOnce(ctx, "rooms/X-1/players/player1", &got)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Ada", got["name"])
		assert.Equal(t, true, got["ready"])
	})
}

func TestUpdateClearsNilField(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		ctx := context.Background()

		require.NoError(t, st.Write(ctx, "rooms/X-1/meta", map[string]any{"a": 1, "b": 2}))
		require.NoError(t, st.Update(ctx, "rooms/X-1/meta", map[string]any{"b": nil}))

		var got map[string]any
		found, err := st.ReadOnce(ctx, "rooms/X-1/meta", &got)
		require.NoError(t, err)
		require.True(t, found)
		assert.Contains(t, got, "a")
		assert.NotContains(t, got, "b")
	})
}

func TestWriteIfAbsent(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		ctx := context.Background()

		ok, err := st.WriteIfAbsent(ctx, "rooms/X-1/players/player2", map[string]any{"name": "Bo"})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = st.WriteIfAbsent(ctx, "rooms/X-1/players/player2", map[string]any{"name": "Cy"})
		require.NoError(t, err)
		assert.False(t, ok, "second conditional write must lose")

		var got map[string]any
		_, err = st.ReadOnce(ctx, "rooms/X-1/players/player2", &got)
		require.NoError(t, err)
		assert.Equal(t, "Bo", got["name"], "losing write must not disturb the slot")
	})
}

// Writing a record that carries an explicitly nil slot must leave that
// slot genuinely absent: readable as missing AND takeable by a
// conditional write. Serialized nulls are not occupancy.
func TestNilSlotStaysAbsent(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		ctx := context.Background()

		require.NoError(t, st.Write(ctx, "rooms/FAITH-1", map[string]any{
			"status": "waiting",
			"players": map[string]any{
				"player1": map[string]any{"name": "Ada", "ready": false},
				"player2": nil,
			},
		}))

		found, err := st.ReadOnce(ctx, "rooms/FAITH-1/players/player2", &map[string]any{})
		require.NoError(t, err)
		assert.False(t, found, "nil slot reads as absent")

		ok, err := st.WriteIfAbsent(ctx, "rooms/FAITH-1/players/player2", map[string]any{"name": "Bo"})
		require.NoError(t, err)
		assert.True(t, ok, "first guest must be able to take the empty slot")

		var got map[string]any
		found, err = st.ReadOnce(ctx, "rooms/FAITH-1/players/player2", &got)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Bo", got["name"])
	})
}

func TestDeleteNotifiesNull(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		ctx := context.Background()
		rec := &recorder{}

		require.NoError(t, st.Write(ctx, "rooms/X-1", map[string]any{"status": "completed"}))
		sub, err := st.Subscribe(ctx, "rooms/X-1", rec.fn)
		require.NoError(t, err)
		defer sub.Close()

		require.NoError(t, st.Delete(ctx, "rooms/X-1"))

		got := rec.waitLen(t, 2)
		assert.Equal(t, "null", got[1])

		found, err := st.ReadOnce(ctx, "rooms/X-1", &map[string]any{})
		require.NoError(t, err)
		assert.False(t, found)
	})
}

// Per-path delivery must follow commit order.
func TestPerPathOrdering(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		ctx := context.Background()
		rec := &recorder{}

		sub, err := st.Subscribe(ctx, "counters/c", rec.fn)
		require.NoError(t, err)
		defer sub.Close()

		for i := 1; i <= 5; i++ {
			require.NoError(t, st.Write(ctx, "counters/c", i))
		}

		got := rec.waitLen(t, 6)
		assert.Equal(t, []string{"null", "1", "2", "3", "4", "5"}, got)
	})
}

func TestClosedSubscriptionStopsDelivery(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		ctx := context.Background()
		rec := &recorder{}

		sub, err := st.Subscribe(ctx, "rooms/X-1", rec.fn)
		require.NoError(t, err)
		require.NoError(t, sub.Close())
		require.NoError(t, sub.Close(), "double close is a no-op")

		require.NoError(t, st.Write(ctx, "rooms/X-1", "x"))
		time.Sleep(50 * time.Millisecond) // let any stray delivery land
		assert.Len(t, rec.all(), 1, "only the initial snapshot")
	})
}

func TestPushChildKeyUnique(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		a := st.PushChildKey("reports")
		b := st.PushChildKey("reports")
		assert.NotEqual(t, a, b)
		assert.Contains(t, a, "reports/")
	})
}

func TestReadOnceIntoTypedTree(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.RemoteStore) {
		ctx := context.Background()

		require.NoError(t, st.Write(ctx, "rooms/X-1/results/player1/0", map[string]any{
			"questionIndex": 0, "correct": true, "timeTaken": 4200,
		}))

		var results map[string]map[string]json.RawMessage
		found, err := st.ReadOnce(ctx, "rooms/X-1/results", &results)
		require.NoError(t, err)
		require.True(t, found)
		assert.Contains(t, results, "player1")
		assert.Contains(t, results["player1"], "0")
	})
}
