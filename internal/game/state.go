package game

// Cell and player symbols. An empty string is an empty cell.
const (
	X    = "X"
	O    = "O"
	Draw = "draw"
)

// State is the single shared game. Exactly one game exists per room; it is
// mutated optimistically by whichever tab acts, with no arbitration.
type State struct {
	Active      bool      `json:"active"`
	Board       [9]string `json:"board"`
	XPlayerID   string    `json:"xPlayerId"`
	OPlayerID   string    `json:"oPlayerId"`
	CurrentTurn string    `json:"currentTurn"`
	Winner      string    `json:"winner"`
	WinningLine []int     `json:"winningLine"`
}

// DefaultState is what readers see when the game key is absent or corrupt.
func DefaultState() State {
	return State{CurrentTurn: X}
}

// The 8 winning triples, checked rows first, then columns, then diagonals.
// A valid board has at most one winning line, so check order never matters.
var winningLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// evaluate returns the winner symbol and winning line, Draw with no line for
// a full board, or empty values for a game still in progress.
func evaluate(board [9]string) (string, []int) {
	for _, line := range winningLines {
		a, b, c := line[0], line[1], line[2]
		if board[a] != "" && board[a] == board[b] && board[a] == board[c] {
			return board[a], []int{a, b, c}
		}
	}

	for _, cell := range board {
		if cell == "" {
			return "", nil
		}
	}
	return Draw, nil
}
