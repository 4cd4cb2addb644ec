package game

import (
	"context"
	"log/slog"

	"localchat/internal/notify"
	"localchat/internal/store"
)

// Engine drives the two-player state machine over the shared store. Every
// operation is best-effort and non-blocking: invalid actions are silent
// no-ops, matching the absence of any server-side arbitrator.
type Engine struct {
	store *store.Store
	bus   *notify.Bus
	key   string
	log   *slog.Logger
}

func NewEngine(st *store.Store, bus *notify.Bus, room string, logger *slog.Logger) *Engine {
	return &Engine{
		store: st,
		bus:   bus,
		key:   store.GameKey(room),
		log:   logger,
	}
}

// State returns the shared game, falling back to the inactive default when
// the key is absent or undecodable.
func (e *Engine) State(ctx context.Context) State {
	st := DefaultState()
	e.store.Load(ctx, e.key, &st)
	return st
}

func (e *Engine) save(ctx context.Context, st State) {
	e.store.Save(ctx, e.key, st)
	e.bus.Publish(ctx, notify.KindGame)
}

// Start activates the game with userID as X. Starting an already active
// game does nothing, so two racing starters resolve to the first write.
// It reports whether a new game was actually started.
func (e *Engine) Start(ctx context.Context, userID string) bool {
	st := e.State(ctx)
	if st.Active {
		return false
	}

	e.save(ctx, State{
		Active:      true,
		XPlayerID:   userID,
		CurrentTurn: X,
	})
	return true
}

// JoinAsSecondPlayer claims the open O slot for userID. The second distinct
// participant to engage becomes O; this is optimistic and lock-free, so two
// simultaneous claimants race and the loser silently stays a spectator.
func (e *Engine) JoinAsSecondPlayer(ctx context.Context, userID string) {
	st := e.State(ctx)
	if !st.Active || st.OPlayerID != "" || st.XPlayerID == "" || st.XPlayerID == userID {
		return
	}

	st.OPlayerID = userID
	e.save(ctx, st)
}

// Move places userID's symbol at cell. Rejected without error when the game
// is over, the cell is occupied, the caller is a spectator, or it is not the
// caller's turn.
func (e *Engine) Move(ctx context.Context, userID string, cell int) {
	if cell < 0 || cell > 8 {
		return
	}

	st := e.State(ctx)
	if !st.Active || st.Winner != "" || st.Board[cell] != "" {
		return
	}

	// Resolve the caller's symbol. When the O slot is still open and the
	// caller is not X, treat the caller as a provisional O: the same
	// optimistic join, duplicated here as race safety so the very first move
	// of an implicitly paired O is accepted.
	symbol := ""
	switch {
	case st.XPlayerID == userID:
		symbol = X
	case st.OPlayerID == userID:
		symbol = O
	case st.OPlayerID == "" && st.XPlayerID != userID:
		symbol = O
	}
	if symbol == "" {
		return
	}
	if symbol != st.CurrentTurn {
		return
	}

	// Both identities must exist before play, counting a provisional O as
	// already joined.
	hasO := st.OPlayerID != "" || symbol == O
	hasX := st.XPlayerID != "" || symbol == X
	if !hasO || !hasX {
		return
	}

	st.Board[cell] = symbol
	if st.OPlayerID == "" && symbol == O {
		st.OPlayerID = userID
	}

	if winner, line := evaluate(st.Board); winner != "" {
		st.Winner = winner
		st.WinningLine = line
	}

	// Turn alternates on every accepted move, outcome or not.
	if symbol == X {
		st.CurrentTurn = O
	} else {
		st.CurrentTurn = X
	}

	e.save(ctx, st)
}

// Restart clears the board and outcome but keeps both player identities.
// The engine does not insist on a terminal outcome; gating restart behind
// "game over" is a view concern.
func (e *Engine) Restart(ctx context.Context) {
	st := e.State(ctx)

	e.save(ctx, State{
		Active:      true,
		XPlayerID:   st.XPlayerID,
		OPlayerID:   st.OPlayerID,
		CurrentTurn: X,
	})
}

// Quit deactivates the game, clearing the board and winner while retaining
// the player slots, so the same pair can pick identities back up on the
// next start.
func (e *Engine) Quit(ctx context.Context) {
	st := e.State(ctx)

	st.Active = false
	st.Board = [9]string{}
	st.Winner = ""

	e.save(ctx, st)
}
