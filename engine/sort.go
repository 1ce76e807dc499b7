package engine

import (
	"sort"

	"github.com/dylhunn/dragontoothmg"

	"gambit/eval"
)

// mvvLva[victim][aggressor] holds capture priorities: Most Valuable
// Victim first, Least Valuable Aggressor within a victim class. Index 6
// stands for "no piece", so quiet moves land in the all-zero row.
var mvvLva = [7][7]uint8{
	{15, 14, 13, 12, 11, 10, 0}, // victim P, aggressor P N B R Q K -
	{25, 24, 23, 22, 21, 20, 0}, // victim N
	{35, 34, 33, 32, 31, 30, 0}, // victim B
	{45, 44, 43, 42, 41, 40, 0}, // victim R
	{55, 54, 53, 52, 51, 50, 0}, // victim Q
	{0, 0, 0, 0, 0, 0, 0},       // victim K (never capturable)
	{0, 0, 0, 0, 0, 0, 0},       // no victim
}

func pieceIndex(p dragontoothmg.Piece) int {
	if p == dragontoothmg.Nothing {
		return 6
	}
	return int(p) - 1
}

// moveScore keys a move for ordering. Captures get their MVV-LVA
// priority; everything else, promotions without capture included, keys
// to zero.
func moveScore(b *dragontoothmg.Board, m dragontoothmg.Move) uint8 {
	var own, opp *dragontoothmg.Bitboards
	if b.Wtomove {
		own, opp = &b.White, &b.Black
	} else {
		own, opp = &b.Black, &b.White
	}
	victim := eval.PieceAt(opp, uint8(m.To()))
	aggressor := eval.PieceAt(own, uint8(m.From()))
	return mvvLva[pieceIndex(victim)][pieceIndex(aggressor)]
}

// SortedMoves returns the legal moves of b in descending MVV-LVA
// priority. The sort is stable, so quiet moves keep the generator's
// order and identical inputs always produce identical output.
func SortedMoves(b *dragontoothmg.Board) []dragontoothmg.Move {
	moves := b.GenerateLegalMoves()
	sort.SliceStable(moves, func(i, j int) bool {
		return moveScore(b, moves[i]) > moveScore(b, moves[j])
	})
	return moves
}

// isCapture reports whether m lands on an occupied square. En passant
// is deliberately not counted, matching the quiescence move filter.
func isCapture(b *dragontoothmg.Board, m dragontoothmg.Move) bool {
	occupied := b.White.All | b.Black.All
	return occupied&(uint64(1)<<uint8(m.To())) != 0
}
