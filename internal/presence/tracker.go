package presence

import (
	"context"
	"log/slog"
	"time"

	"localchat/internal/store"
)

// staleAfter is how long a user stays "online" without a heartbeat.
const staleAfter = 30 * time.Second

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsOnline bool   `json:"isOnline"`
	LastSeen int64  `json:"lastSeen"`
}

// Tracker maintains the shared presence list. Each tab writes only its own
// user's record, but every heartbeat rewrites the whole list, so two tabs
// heartbeating at once can clobber each other's freshly added record. Fine
// for a two-user room; called out as a limitation.
type Tracker struct {
	store *store.Store
	key   string
	log   *slog.Logger
	now   func() time.Time
}

func NewTracker(st *store.Store, room string, logger *slog.Logger) *Tracker {
	return &Tracker{
		store: st,
		key:   store.UsersKey(room),
		log:   logger,
		now:   time.Now,
	}
}

// Heartbeat upserts the user's liveness record and prunes everyone whose
// last heartbeat is older than the staleness threshold. No notification is
// published; presence refreshes on poll ticks only.
func (t *Tracker) Heartbeat(ctx context.Context, user User) {
	users := t.Online(ctx)
	now := t.now().UnixMilli()

	kept := users[:0]
	for _, u := range users {
		if u.ID == user.ID {
			continue
		}
		if now-u.LastSeen >= staleAfter.Milliseconds() {
			continue
		}
		kept = append(kept, u)
	}

	user.LastSeen = now
	user.IsOnline = true
	kept = append(kept, user)

	t.store.Save(ctx, t.key, kept)
}

// Online returns the stored presence list as-is; pruning happens on write.
func (t *Tracker) Online(ctx context.Context) []User {
	var users []User
	t.store.Load(ctx, t.key, &users)
	return users
}

// CountOthers reports how many listed users are not the given one.
func CountOthers(users []User, selfID string) int {
	n := 0
	for _, u := range users {
		if u.ID != selfID {
			n++
		}
	}
	return n
}
