// Package pgn encodes finished games as Portable Game Notation, used by
// the self-play harness to write game evidence.
package pgn

import (
	"fmt"
	"strings"

	"github.com/dylhunn/dragontoothmg"

	"gambit/eval"
)

// Game outcomes in PGN result notation.
const (
	OutcomeWhiteWins = "1-0"
	OutcomeBlackWins = "0-1"
	OutcomeDraw      = "1/2-1/2"
	OutcomeOngoing   = "*"
)

// Tag is one PGN header pair.
type Tag struct {
	Name  string
	Value string
}

// Encoder accumulates a game from its initial position and renders the
// tag section plus SAN movetext.
type Encoder struct {
	tags    []Tag
	moves   []dragontoothmg.Move
	initial dragontoothmg.Board
	outcome string
}

// NewEncoder starts a game record at the given position.
func NewEncoder(initial dragontoothmg.Board) *Encoder {
	return &Encoder{initial: initial, outcome: OutcomeOngoing}
}

// AddTag appends a header tag.
func (e *Encoder) AddTag(name, value string) {
	e.tags = append(e.tags, Tag{Name: name, Value: value})
}

// AddMove appends the next played move.
func (e *Encoder) AddMove(m dragontoothmg.Move) {
	e.moves = append(e.moves, m)
}

// SetOutcome records the game result.
func (e *Encoder) SetOutcome(outcome string) {
	e.outcome = outcome
}

// Encode renders the PGN: tags, numbered SAN movetext, result.
func (e *Encoder) Encode() string {
	var sb strings.Builder
	for _, tag := range e.tags {
		fmt.Fprintf(&sb, "[%s \"%s\"]\n", tag.Name, tag.Value)
	}

	board := e.initial
	for i, m := range e.moves {
		if i%2 == 0 {
			fmt.Fprintf(&sb, "%d.", i/2+1)
		}
		sb.WriteString(SAN(m, &board))
		sb.WriteByte(' ')
		board.Apply(m)
	}

	sb.WriteString(e.outcome)
	return sb.String()
}

// SAN renders a move in Standard Algebraic Notation relative to the
// board it is about to be played on.
func SAN(m dragontoothmg.Move, b *dragontoothmg.Board) string {
	info := eval.NewMoveInfo(m, b)

	check, mate := moveGivesCheck(m, b)
	suffix := ""
	if mate {
		suffix = "#"
	} else if check {
		suffix = "+"
	}

	if info.CastleRook {
		if info.To > info.From {
			return "O-O" + suffix
		}
		return "O-O-O" + suffix
	}

	var sb strings.Builder
	capture := info.Captured != dragontoothmg.Nothing

	if info.Piece == dragontoothmg.Pawn {
		if capture {
			sb.WriteByte(fileChar(info.From))
		}
	} else {
		sb.WriteByte(pieceLetter(info.Piece))
		if isAmbiguous(m, b, info.Piece) {
			sb.WriteString(squareName(info.From))
		}
	}

	if capture {
		sb.WriteByte('x')
	}
	sb.WriteString(squareName(info.To))

	if info.Promotion != dragontoothmg.Nothing {
		sb.WriteByte('=')
		sb.WriteByte(pieceLetter(info.Promotion))
	}

	sb.WriteString(suffix)
	return sb.String()
}

// moveGivesCheck applies m to a board copy and reports whether the
// opponent is left in check and whether it is mate.
func moveGivesCheck(m dragontoothmg.Move, b *dragontoothmg.Board) (check, mate bool) {
	child := *b
	child.Apply(m)
	if !child.OurKingInCheck() {
		return false, false
	}
	return true, len(child.GenerateLegalMoves()) == 0
}

// isAmbiguous reports whether another piece of the same kind can also
// legally reach the destination square.
func isAmbiguous(m dragontoothmg.Move, b *dragontoothmg.Board, piece dragontoothmg.Piece) bool {
	var own *dragontoothmg.Bitboards
	if b.Wtomove {
		own = &b.White
	} else {
		own = &b.Black
	}
	for _, other := range b.GenerateLegalMoves() {
		if uint8(other.To()) != uint8(m.To()) || uint8(other.From()) == uint8(m.From()) {
			continue
		}
		if eval.PieceAt(own, uint8(other.From())) == piece {
			return true
		}
	}
	return false
}

func pieceLetter(p dragontoothmg.Piece) byte {
	switch p {
	case dragontoothmg.Knight:
		return 'N'
	case dragontoothmg.Bishop:
		return 'B'
	case dragontoothmg.Rook:
		return 'R'
	case dragontoothmg.Queen:
		return 'Q'
	case dragontoothmg.King:
		return 'K'
	}
	panic(fmt.Sprintf("pgn: piece %d has no letter", p))
}

func fileChar(sq uint8) byte {
	return 'a' + sq&7
}

func squareName(sq uint8) string {
	return string([]byte{fileChar(sq), '1' + sq>>3})
}
