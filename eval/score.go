package eval

import "github.com/dylhunn/dragontoothmg"

// PieceAt returns the piece kind occupying sq on one side's bitboards,
// or Nothing when the square is empty for that side.
func PieceAt(bb *dragontoothmg.Bitboards, sq uint8) dragontoothmg.Piece {
	mask := uint64(1) << sq
	switch {
	case bb.Pawns&mask != 0:
		return dragontoothmg.Pawn
	case bb.Knights&mask != 0:
		return dragontoothmg.Knight
	case bb.Bishops&mask != 0:
		return dragontoothmg.Bishop
	case bb.Rooks&mask != 0:
		return dragontoothmg.Rook
	case bb.Queens&mask != 0:
		return dragontoothmg.Queen
	case bb.Kings&mask != 0:
		return dragontoothmg.King
	}
	return dragontoothmg.Nothing
}

// MoveInfo captures everything about a move the incremental evaluation
// needs, extracted against the board the move is about to be played on.
type MoveInfo struct {
	WhiteToMove bool
	From, To    uint8
	Piece       dragontoothmg.Piece
	Promotion   dragontoothmg.Piece // Nothing if not a promotion
	Captured    dragontoothmg.Piece // Nothing if not a capture
	CapturedSq  uint8               // differs from To only for en passant
	CastleRook  bool
	RookFrom    uint8
	RookTo      uint8
}

// NewMoveInfo inspects m against b. The board must be the position the
// move is legal in; m must refer to an occupied source square.
func NewMoveInfo(m dragontoothmg.Move, b *dragontoothmg.Board) MoveInfo {
	var own, opp *dragontoothmg.Bitboards
	if b.Wtomove {
		own, opp = &b.White, &b.Black
	} else {
		own, opp = &b.Black, &b.White
	}

	from, to := uint8(m.From()), uint8(m.To())
	info := MoveInfo{
		WhiteToMove: b.Wtomove,
		From:        from,
		To:          to,
		Piece:       PieceAt(own, from),
		Promotion:   m.Promote(),
		CapturedSq:  to,
	}
	if info.Piece == dragontoothmg.Nothing {
		panic("eval: move from an empty square")
	}

	info.Captured = PieceAt(opp, to)
	if info.Captured == dragontoothmg.Nothing && info.Piece == dragontoothmg.Pawn && info.From&7 != info.To&7 {
		// Diagonal pawn move to an empty square is en passant.
		info.Captured = dragontoothmg.Pawn
		if info.WhiteToMove {
			info.CapturedSq = info.To - 8
		} else {
			info.CapturedSq = info.To + 8
		}
	}

	if info.Piece == dragontoothmg.King {
		switch {
		case info.To == info.From+2:
			info.CastleRook = true
			info.RookFrom, info.RookTo = info.From+3, info.From+1
		case info.From >= 2 && info.To == info.From-2:
			info.CastleRook = true
			info.RookFrom, info.RookTo = info.From-4, info.From-1
		}
	}
	return info
}

// ScorePosition scores both sides from scratch: material plus
// piece-square bonus for every occupied square. Used to seed a search;
// after that the per-move diffs keep the totals current.
func ScorePosition(b *dragontoothmg.Board) (white, black int32) {
	occupied := b.White.All | b.Black.All
	for sq := uint8(0); sq < 64; sq++ {
		if occupied&(uint64(1)<<sq) == 0 {
			continue
		}
		if p := PieceAt(&b.White, sq); p != dragontoothmg.Nothing {
			white += PieceSquare(p, true, sq)
			continue
		}
		black += PieceSquare(PieceAt(&b.Black, sq), false, sq)
	}
	return white, black
}

// PositionDiff returns the change in the mover's positional total:
// the piece leaves its source square and lands on its destination (as
// the promoted piece if promoting), and a castling move drags the rook
// along.
func PositionDiff(info MoveInfo) int32 {
	start := PieceSquare(info.Piece, info.WhiteToMove, info.From)

	var diff int32
	if info.Promotion != dragontoothmg.Nothing {
		diff = PieceSquare(info.Promotion, info.WhiteToMove, info.To) - start
	} else {
		diff = PieceSquare(info.Piece, info.WhiteToMove, info.To) - start
	}

	if info.CastleRook {
		diff += PieceSquare(dragontoothmg.Rook, info.WhiteToMove, info.RookTo) -
			PieceSquare(dragontoothmg.Rook, info.WhiteToMove, info.RookFrom)
	}
	return diff
}

// CaptureDiff returns the change in the opponent's positional total:
// zero for a quiet move, otherwise the negated score of the captured
// piece on the square it is removed from.
func CaptureDiff(info MoveInfo) int32 {
	if info.Captured == dragontoothmg.Nothing {
		return 0
	}
	return -PieceSquare(info.Captured, !info.WhiteToMove, info.CapturedSq)
}
