package eval

import "github.com/dylhunn/dragontoothmg"

// Piece values in centipawns
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

// PieceTable is a 64-entry piece-square table written from white's point
// of view with rank 8 first, the way the tables are usually published.
// White lookups flip the rank so that index 0 maps to a8.
type PieceTable [64]int32

// At returns the positional bonus for a piece of the given color on sq
// (little-endian rank-file square, a1 = 0).
func (t *PieceTable) At(white bool, sq uint8) int32 {
	file := sq & 7
	rank := sq >> 3
	if white {
		rank = 7 - rank
	}
	return t[int(rank)*8+int(file)]
}

// PieceValue returns the material value of a piece kind.
func PieceValue(p dragontoothmg.Piece) int32 {
	switch p {
	case dragontoothmg.Pawn:
		return PawnValue
	case dragontoothmg.Knight:
		return KnightValue
	case dragontoothmg.Bishop:
		return BishopValue
	case dragontoothmg.Rook:
		return RookValue
	case dragontoothmg.Queen:
		return QueenValue
	case dragontoothmg.King:
		return KingValue
	}
	return 0
}

// PieceSquare returns material value plus piece-square bonus for a piece
// of the given color on sq.
func PieceSquare(p dragontoothmg.Piece, white bool, sq uint8) int32 {
	return PieceValue(p) + tableFor(p).At(white, sq)
}

func tableFor(p dragontoothmg.Piece) *PieceTable {
	switch p {
	case dragontoothmg.Pawn:
		return &PawnTable
	case dragontoothmg.Knight:
		return &KnightTable
	case dragontoothmg.Bishop:
		return &BishopTable
	case dragontoothmg.Rook:
		return &RookTable
	case dragontoothmg.Queen:
		return &QueenTable
	case dragontoothmg.King:
		return &KingTableMid
	}
	panic("eval: no piece-square table for empty piece")
}

var PawnTable = PieceTable{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var KnightTable = PieceTable{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var BishopTable = PieceTable{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var RookTable = PieceTable{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var QueenTable = PieceTable{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var KingTableMid = PieceTable{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

// KingTableEnd is the endgame king table. The midgame evaluation does
// not consult it yet; it is kept for a future tapered evaluation.
var KingTableEnd = PieceTable{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}
