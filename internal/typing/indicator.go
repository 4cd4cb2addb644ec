package typing

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"localchat/internal/notify"
	"localchat/internal/store"
)

const (
	// displayWindow is how long an entry counts as actively typing.
	displayWindow = 3 * time.Second
	// pruneAfter is when an entry is evicted from the store itself. Eviction
	// is lazy: it only happens on the next write, never on a timer.
	pruneAfter = 5 * time.Second
)

// Indicator tracks who is typing via a shared username -> last-typed-at map.
type Indicator struct {
	store *store.Store
	bus   *notify.Bus
	key   string
	log   *slog.Logger
	now   func() time.Time
}

func NewIndicator(st *store.Store, bus *notify.Bus, room string, logger *slog.Logger) *Indicator {
	return &Indicator{
		store: st,
		bus:   bus,
		key:   store.TypingKey(room),
		log:   logger,
		now:   time.Now,
	}
}

// Set stamps (or clears) the username's typing entry, prunes entries older
// than pruneAfter, persists, and notifies.
func (i *Indicator) Set(ctx context.Context, username string, isTyping bool) {
	entries := i.load(ctx)
	now := i.now().UnixMilli()

	if isTyping {
		entries[username] = now
	} else {
		delete(entries, username)
	}

	for name, stamp := range entries {
		if now-stamp > pruneAfter.Milliseconds() {
			delete(entries, name)
		}
	}

	i.store.Save(ctx, i.key, entries)
	i.bus.Publish(ctx, notify.KindTyping)
}

// Active returns the usernames whose entries are fresher than the display
// window, sorted for stable output. The caller filters out its own user.
func (i *Indicator) Active(ctx context.Context) []string {
	entries := i.load(ctx)
	now := i.now().UnixMilli()

	names := make([]string, 0, len(entries))
	for name, stamp := range entries {
		if now-stamp < displayWindow.Milliseconds() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (i *Indicator) load(ctx context.Context) map[string]int64 {
	entries := make(map[string]int64)
	i.store.Load(ctx, i.key, &entries)
	return entries
}
