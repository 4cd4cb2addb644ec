package presence

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"localchat/internal/store"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewTracker(store.New(rdb, slogt.New(t)), "0000", slogt.New(t))
}

func TestTrackerHeartbeatStampsUser(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return base }

	tracker.Heartbeat(ctx, User{ID: "a", Username: "alice"})

	got := tracker.Online(ctx)
	require.Len(t, got, 1)
	require.Equal(t, "alice", got[0].Username)
	require.True(t, got[0].IsOnline)
	require.Equal(t, base.UnixMilli(), got[0].LastSeen)
}

func TestTrackerHeartbeatReplacesOwnRecord(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return base }
	tracker.Heartbeat(ctx, User{ID: "a", Username: "alice"})

	tracker.now = func() time.Time { return base.Add(5 * time.Second) }
	tracker.Heartbeat(ctx, User{ID: "a", Username: "alice"})

	got := tracker.Online(ctx)
	require.Len(t, got, 1)
	require.Equal(t, base.Add(5*time.Second).UnixMilli(), got[0].LastSeen)
}

func TestTrackerHeartbeatPrunesStaleUsers(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return base }
	tracker.Heartbeat(ctx, User{ID: "a", Username: "alice"})

	// 29s later bob heartbeats: alice survives.
	tracker.now = func() time.Time { return base.Add(29 * time.Second) }
	tracker.Heartbeat(ctx, User{ID: "b", Username: "bob"})
	require.Len(t, tracker.Online(ctx), 2)

	// 31s after alice's last heartbeat she is stale and evicted.
	tracker.now = func() time.Time { return base.Add(31 * time.Second) }
	tracker.Heartbeat(ctx, User{ID: "b", Username: "bob"})

	got := tracker.Online(ctx)
	require.Len(t, got, 1)
	require.Equal(t, "bob", got[0].Username)
}

func TestCountOthers(t *testing.T) {
	users := []User{
		{ID: "a", Username: "alice"},
		{ID: "b", Username: "bob"},
		{ID: "c", Username: "carol"},
	}

	require.Equal(t, 2, CountOthers(users, "a"))
	require.Equal(t, 3, CountOthers(users, "stranger"))
	require.Equal(t, 0, CountOthers(nil, "a"))
}
