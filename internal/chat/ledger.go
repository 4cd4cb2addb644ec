package chat

import (
	"context"
	"log/slog"

	"localchat/internal/notify"
	"localchat/internal/store"
)

// maxHistory bounds the ledger for performance. Eviction is by position, not
// timestamp: when clocks across tabs disagree, appends can land out of
// timestamp order and still evict index 0 first. Accepted limitation.
const maxHistory = 100

// Ledger is the bounded, ordered message list layered on one shared key.
// Every operation is a full read-modify-write followed by a same-tab
// notification; concurrent writers can silently lose updates.
type Ledger struct {
	store *store.Store
	bus   *notify.Bus
	key   string
	log   *slog.Logger
}

func NewLedger(st *store.Store, bus *notify.Bus, room string, logger *slog.Logger) *Ledger {
	return &Ledger{
		store: st,
		bus:   bus,
		key:   store.MessagesKey(room),
		log:   logger,
	}
}

// List returns the full ledger, oldest first.
func (l *Ledger) List(ctx context.Context) []Message {
	var msgs []Message
	l.store.Load(ctx, l.key, &msgs)
	return msgs
}

// Append pushes msg onto the end of the ledger, evicting the oldest entry
// once the cap is exceeded.
func (l *Ledger) Append(ctx context.Context, msg Message) {
	msgs := l.List(ctx)
	msgs = append(msgs, msg)
	if len(msgs) > maxHistory {
		msgs = msgs[1:]
	}

	l.store.Save(ctx, l.key, msgs)
	l.bus.Publish(ctx, notify.KindUpdate)
}

// Delete removes the message with the given ID. No tombstone is kept.
func (l *Ledger) Delete(ctx context.Context, id string) {
	msgs := l.List(ctx)

	kept := msgs[:0]
	for _, m := range msgs {
		if m.ID != id {
			kept = append(kept, m)
		}
	}

	l.store.Save(ctx, l.key, kept)
	l.bus.Publish(ctx, notify.KindUpdate)
}

// ToggleReaction adds userID to the emoji's reaction set, or removes it if
// already present. An emoji whose set becomes empty is deleted outright.
// Unknown message IDs are a silent no-op.
func (l *Ledger) ToggleReaction(ctx context.Context, id, userID, emoji string) {
	msgs := l.List(ctx)

	idx := -1
	for i, m := range msgs {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}

	msg := msgs[idx]
	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]string)
	}

	current := msg.Reactions[emoji]
	if contains(current, userID) {
		remaining := make([]string, 0, len(current)-1)
		for _, uid := range current {
			if uid != userID {
				remaining = append(remaining, uid)
			}
		}
		if len(remaining) == 0 {
			delete(msg.Reactions, emoji)
		} else {
			msg.Reactions[emoji] = remaining
		}
	} else {
		msg.Reactions[emoji] = append(current, userID)
	}

	msgs[idx] = msg
	l.store.Save(ctx, l.key, msgs)
	l.bus.Publish(ctx, notify.KindUpdate)
}

// MarkRead flips every foreign, not-yet-read message to read. "Read" means
// rendered in a visible tab, nothing stronger. The write (and its
// notification) is skipped entirely when nothing changed.
func (l *Ledger) MarkRead(ctx context.Context, selfID string) {
	msgs := l.List(ctx)

	changed := false
	for i, m := range msgs {
		if m.SenderID != selfID && m.Status != StatusRead {
			msgs[i].Status = StatusRead
			changed = true
		}
	}

	if !changed {
		return
	}

	l.store.Save(ctx, l.key, msgs)
	l.bus.Publish(ctx, notify.KindUpdate)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
