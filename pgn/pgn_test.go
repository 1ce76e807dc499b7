package pgn

import (
	"testing"

	"github.com/dylhunn/dragontoothmg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moveByUCI(t *testing.T, b *dragontoothmg.Board, uci string) dragontoothmg.Move {
	t.Helper()
	for _, m := range b.GenerateLegalMoves() {
		m := m
		if (&m).String() == uci {
			return m
		}
	}
	t.Fatalf("move %s is not legal in %s", uci, b.ToFen())
	var none dragontoothmg.Move
	return none
}

func sanAfter(t *testing.T, fen string, setup []string, uci string) string {
	t.Helper()
	board := dragontoothmg.ParseFen(fen)
	for _, s := range setup {
		board.Apply(moveByUCI(t, &board, s))
	}
	return SAN(moveByUCI(t, &board, uci), &board)
}

func TestSAN(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		setup []string
		move  string
		want  string
	}{
		{
			name: "pawn push",
			fen:  dragontoothmg.Startpos,
			move: "e2e4", want: "e4",
		},
		{
			name: "knight development",
			fen:  dragontoothmg.Startpos,
			move: "g1f3", want: "Nf3",
		},
		{
			name:  "pawn capture keeps source file",
			fen:   dragontoothmg.Startpos,
			setup: []string{"e2e4", "d7d5"},
			move:  "e4d5", want: "exd5",
		},
		{
			name: "kingside castle",
			fen:  "r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1",
			move: "e1g1", want: "O-O",
		},
		{
			name: "queenside castle",
			fen:  "r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1",
			move: "e1c1", want: "O-O-O",
		},
		{
			name: "promotion",
			fen:  "8/P6k/8/8/8/8/7K/8 w - - 0 1",
			move: "a7a8q", want: "a8=Q",
		},
		{
			name: "ambiguous knights name the source square",
			fen:  "k7/8/8/8/8/8/8/K4N1N w - - 0 1",
			move: "f1g3", want: "Nf1g3",
		},
		{
			name: "checking move",
			fen:  "k7/8/8/8/8/8/8/K2R4 w - - 0 1",
			move: "d1d8", want: "Rd8+",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sanAfter(t, tc.fen, tc.setup, tc.move))
		})
	}
}

func TestEncoder_ScholarsMate(t *testing.T) {
	board := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	e := NewEncoder(board)
	e.AddTag("Event", "test")

	playing := board
	for _, uci := range []string{"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"} {
		m := moveByUCI(t, &playing, uci)
		e.AddMove(m)
		playing.Apply(m)
	}
	e.SetOutcome(OutcomeWhiteWins)

	encoded := e.Encode()
	assert.Contains(t, encoded, `[Event "test"]`)
	assert.Contains(t, encoded, "1.e4 e5 2.Bc4 Nc6 3.Qh5 Nf6 4.Qxf7# 1-0")
	require.Empty(t, playing.GenerateLegalMoves(), "the game really ends in mate")
}

func TestEncoder_OngoingGameMarksAsterisk(t *testing.T) {
	board := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	e := NewEncoder(board)
	e.AddMove(moveByUCI(t, &board, "e2e4"))
	assert.Contains(t, e.Encode(), "1.e4 *")
}
