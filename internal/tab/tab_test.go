package tab

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"localchat/internal/chat"
	"localchat/internal/notify"
	"localchat/internal/session"
	"localchat/internal/store"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return rdb
}

// newTestTab builds a tab whose bus rides the given Redis backend, so
// multiple tabs in one test really do talk only through the shared store.
func newTestTab(t *testing.T, rdb *redis.Client, userID, username string, interval time.Duration) *Tab {
	t.Helper()

	logger := slogt.New(t)
	st := store.New(rdb, logger)
	bus := notify.NewBus("bus-"+userID, "0000", rdb, logger)
	sess := session.Session{UserID: userID, Username: username}

	return New(sess, st, bus, "0000", interval, logger)
}

// waitForSnapshot consumes the tab's snapshot stream until the predicate
// holds. Convergence is eventual, bounded by poll interval or notification
// round-trip, so tests tolerate the window instead of assuming immediacy.
func waitForSnapshot(t *testing.T, tb *Tab, match func(Snapshot) bool) Snapshot {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-tb.Snapshots():
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return Snapshot{}
		}
	}
}

func TestTabSyncBuildsSnapshot(t *testing.T) {
	rdb := newTestRedis(t)
	tb := newTestTab(t, rdb, "a", "alice", time.Minute)
	ctx := context.Background()

	tb.Send(ctx, "hello", "")
	tb.SetTyping(ctx, true)
	tb.tracker.Heartbeat(ctx, tb.User())
	tb.sync(ctx)

	snap := <-tb.Snapshots()
	require.Len(t, snap.Messages, 1)
	require.Equal(t, "hello", snap.Messages[0].Text)
	// Own typing entry is filtered from the tab's view.
	require.Empty(t, snap.TypingUsers)
	require.Len(t, snap.OnlineUsers, 1)
	require.False(t, snap.Game.Active)
}

func TestTabSendTrimsAndDropsBlank(t *testing.T) {
	rdb := newTestRedis(t)
	tb := newTestTab(t, rdb, "a", "alice", time.Minute)
	ctx := context.Background()

	tb.Send(ctx, "   ", "")
	require.Empty(t, tb.ledger.List(ctx))

	tb.Send(ctx, "  hi  ", "")
	msgs := tb.ledger.List(ctx)
	require.Len(t, msgs, 1)
	require.Equal(t, "hi", msgs[0].Text)
}

func TestTabMarkReadOnlyWhenVisible(t *testing.T) {
	rdb := newTestRedis(t)
	tb := newTestTab(t, rdb, "a", "alice", time.Minute)
	ctx := context.Background()

	foreign := chat.New("b", "bob", "unread", "", time.Now())
	tb.ledger.Append(ctx, foreign)

	tb.SetVisible(false)
	tb.sync(ctx)
	require.Equal(t, chat.StatusSent, tb.ledger.List(ctx)[0].Status)

	tb.SetVisible(true)
	tb.sync(ctx)
	require.Equal(t, chat.StatusRead, tb.ledger.List(ctx)[0].Status)
}

func TestTabStartGameAnnouncesOnce(t *testing.T) {
	rdb := newTestRedis(t)
	tb := newTestTab(t, rdb, "a", "alice", time.Minute)
	ctx := context.Background()

	tb.StartGame(ctx)

	require.True(t, tb.engine.State(ctx).Active)
	msgs := tb.ledger.List(ctx)
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].Text, "Tic-Tac-Toe")

	// A second start against an active game neither resets nor re-announces.
	tb.StartGame(ctx)
	require.Len(t, tb.ledger.List(ctx), 1)
}

func TestTabsConvergeThroughSharedStore(t *testing.T) {
	rdb := newTestRedis(t)

	alice := newTestTab(t, rdb, "a", "alice", 50*time.Millisecond)
	bob := newTestTab(t, rdb, "b", "bob", 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go alice.Run(ctx)
	go bob.Run(ctx)

	// Bob's view converges on Alice's message within a poll interval or a
	// notification round-trip, whichever lands first.
	alice.Send(ctx, "hello bob", "")
	waitForSnapshot(t, bob, func(s Snapshot) bool {
		return len(s.Messages) > 0 && s.Messages[0].Text == "hello bob"
	})

	// Heartbeats from both tabs surface in each other's presence view.
	waitForSnapshot(t, alice, func(s Snapshot) bool {
		return len(s.OnlineUsers) == 2
	})

	// Bob's visible tab marks Alice's message read; Alice observes it.
	waitForSnapshot(t, alice, func(s Snapshot) bool {
		return len(s.Messages) > 0 && s.Messages[0].Status == chat.StatusRead
	})
}

func TestTabGameAcrossTabs(t *testing.T) {
	rdb := newTestRedis(t)

	alice := newTestTab(t, rdb, "a", "alice", 50*time.Millisecond)
	bob := newTestTab(t, rdb, "b", "bob", 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go alice.Run(ctx)
	go bob.Run(ctx)

	alice.StartGame(ctx)

	// Bob sees the active game with an open O slot and joins.
	waitForSnapshot(t, bob, func(s Snapshot) bool {
		return s.Game.Active && s.Game.OPlayerID == ""
	})
	bob.JoinGame(ctx)

	waitForSnapshot(t, alice, func(s Snapshot) bool {
		return s.Game.OPlayerID == "b"
	})

	alice.Move(ctx, 0)
	waitForSnapshot(t, bob, func(s Snapshot) bool {
		return s.Game.Board[0] == "X" && s.Game.CurrentTurn == "O"
	})
}

func TestTabDeliverKeepsLatestSnapshot(t *testing.T) {
	rdb := newTestRedis(t)
	tb := newTestTab(t, rdb, "a", "alice", time.Minute)

	tb.deliver(Snapshot{TypingUsers: []string{"stale"}})
	tb.deliver(Snapshot{TypingUsers: []string{"fresh"}})

	snap := <-tb.Snapshots()
	require.Equal(t, []string{"fresh"}, snap.TypingUsers)
}
