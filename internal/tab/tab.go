package tab

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"localchat/internal/chat"
	"localchat/internal/game"
	"localchat/internal/notify"
	"localchat/internal/presence"
	"localchat/internal/session"
	"localchat/internal/store"
	"localchat/internal/typing"
)

// DefaultPollInterval is the heartbeat-and-reload cadence. Convergence is
// bounded by the shorter of this interval and one notification round-trip.
const DefaultPollInterval = 2 * time.Second

// Snapshot is one tab's local view of the four shared collections, rebuilt
// in full on every sync; there is no incremental diffing.
type Snapshot struct {
	Messages    []chat.Message  `json:"messages"`
	TypingUsers []string        `json:"typingUsers"`
	OnlineUsers []presence.User `json:"onlineUsers"`
	Game        game.State      `json:"game"`
}

// Tab is one execution context sharing the store with the others. It runs
// the per-tab synchronization loop: a fixed-interval poll plus reloads on
// every bus delivery, republishing external state into a snapshot stream.
type Tab struct {
	session  session.Session
	ledger   *chat.Ledger
	tracker  *presence.Tracker
	typing   *typing.Indicator
	engine   *game.Engine
	bus      *notify.Bus
	interval time.Duration
	log      *slog.Logger

	snapshots chan Snapshot
	wake      chan struct{}
	visible   atomic.Bool
}

func New(sess session.Session, st *store.Store, bus *notify.Bus, room string, interval time.Duration, logger *slog.Logger) *Tab {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	t := &Tab{
		session:   sess,
		ledger:    chat.NewLedger(st, bus, room, logger),
		tracker:   presence.NewTracker(st, room, logger),
		typing:    typing.NewIndicator(st, bus, room, logger),
		engine:    game.NewEngine(st, bus, room, logger),
		bus:       bus,
		interval:  interval,
		log:       logger,
		snapshots: make(chan Snapshot, 1),
		wake:      make(chan struct{}, 1),
	}
	t.visible.Store(true)

	// Both notification paths land here; the poll tick covers whatever they
	// miss.
	bus.Subscribe(func(notify.Event) { t.poke() })

	return t
}

// Snapshots streams this tab's view. Only the latest snapshot is retained
// when the consumer lags.
func (t *Tab) Snapshots() <-chan Snapshot {
	return t.snapshots
}

// User is the tab's own identity as it appears in the presence list.
func (t *Tab) User() presence.User {
	return presence.User{
		ID:       t.session.UserID,
		Username: t.session.Username,
		IsOnline: true,
	}
}

// Run drives the loop until ctx is cancelled: initial sync on mount, then a
// heartbeat followed by a full reload every poll tick, plus reloads whenever
// a notification arrives. The heartbeat runs before the reload so the tab
// always sees its own fresh presence.
func (t *Tab) Run(ctx context.Context) {
	go t.bus.Listen(ctx)

	t.tracker.Heartbeat(ctx, t.User())
	t.sync(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			t.tracker.Heartbeat(ctx, t.User())
			t.sync(ctx)

		case <-t.wake:
			t.sync(ctx)
		}
	}
}

// sync performs the four independent full reloads and republishes the view.
// Afterwards, a visible tab marks foreign messages read: "read" means
// rendered in a visible tab, not that anyone looked.
func (t *Tab) sync(ctx context.Context) {
	snap := Snapshot{
		Messages:    t.ledger.List(ctx),
		TypingUsers: t.othersTyping(ctx),
		OnlineUsers: t.tracker.Online(ctx),
		Game:        t.engine.State(ctx),
	}
	t.deliver(snap)

	if t.visible.Load() {
		t.ledger.MarkRead(ctx, t.session.UserID)
	}
}

func (t *Tab) othersTyping(ctx context.Context) []string {
	active := t.typing.Active(ctx)
	others := active[:0]
	for _, name := range active {
		if name != t.session.Username {
			others = append(others, name)
		}
	}
	return others
}

func (t *Tab) deliver(snap Snapshot) {
	for {
		select {
		case t.snapshots <- snap:
			return
		default:
			// Drop the stale snapshot and retry with the fresh one.
			select {
			case <-t.snapshots:
			default:
			}
		}
	}
}

func (t *Tab) poke() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// SetVisible tracks focus/visibility. Becoming visible triggers an immediate
// sync so newly rendered messages pick up their read receipts.
func (t *Tab) SetVisible(visible bool) {
	t.visible.Store(visible)
	if visible {
		t.poke()
	}
}

// Send appends a message from this tab's user, clearing their typing entry
// first. Blank messages are dropped.
func (t *Tab) Send(ctx context.Context, text, replyToID string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	t.typing.Set(ctx, t.session.Username, false)
	t.ledger.Append(ctx, chat.New(t.session.UserID, t.session.Username, text, replyToID, time.Now()))
}

// DeleteMessage removes a message. Confirming intent is the view's problem.
func (t *Tab) DeleteMessage(ctx context.Context, id string) {
	t.ledger.Delete(ctx, id)
}

// ToggleReaction toggles this user's emoji reaction on a message.
func (t *Tab) ToggleReaction(ctx context.Context, id, emoji string) {
	t.ledger.ToggleReaction(ctx, id, t.session.UserID, emoji)
}

// SetTyping stamps or clears this user's typing entry.
func (t *Tab) SetTyping(ctx context.Context, isTyping bool) {
	t.typing.Set(ctx, t.session.Username, isTyping)
}

// StartGame activates the game with this user as X and announces it in chat,
// the announcement only when the start actually took.
func (t *Tab) StartGame(ctx context.Context) {
	if t.engine.Start(ctx, t.session.UserID) {
		t.Send(ctx, "🎮 I started a game of Tic-Tac-Toe!", "")
	}
}

// JoinGame claims the open O slot, if any. Invoked once when this tab first
// views an active game it has no seat in.
func (t *Tab) JoinGame(ctx context.Context) {
	t.engine.JoinAsSecondPlayer(ctx, t.session.UserID)
}

// Move plays this user's symbol at the given cell.
func (t *Tab) Move(ctx context.Context, cell int) {
	t.engine.Move(ctx, t.session.UserID, cell)
}

// RestartGame clears the board for a rematch between the same players.
func (t *Tab) RestartGame(ctx context.Context) {
	t.engine.Restart(ctx)
}

// QuitGame deactivates the game for everyone.
func (t *Tab) QuitGame(ctx context.Context) {
	t.engine.Quit(ctx)
}
