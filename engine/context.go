package engine

import (
	"sync/atomic"
	"time"

	"github.com/dylhunn/dragontoothmg"

	"gambit/eval"
)

// SearchContext is the per-node search record: the position snapshot,
// its hash, the incrementally maintained positional totals for both
// sides, the shared path history, and the termination controls. A child
// context is derived per move; the board is a value copy, so applying a
// move never mutates the parent's position.
type SearchContext struct {
	Board         dragontoothmg.Board
	Hash          uint64
	WhitePosition int32
	BlackPosition int32
	History       *MoveHistory

	Deadline time.Time // zero means no deadline
	Stop     *atomic.Bool
	TT       *Table
}

// NewSearchContext seeds a context from a board, scoring the position
// from scratch once. All further score maintenance is incremental.
func NewSearchContext(b dragontoothmg.Board, history *MoveHistory, deadline time.Time, stop *atomic.Bool, tt *Table) SearchContext {
	white, black := eval.ScorePosition(&b)
	return SearchContext{
		Board:         b,
		Hash:          b.Hash(),
		WhitePosition: white,
		BlackPosition: black,
		History:       history,
		Deadline:      deadline,
		Stop:          stop,
		TT:            tt,
	}
}

// BoardScore returns the evaluation for the side to move.
func (c *SearchContext) BoardScore() int32 {
	if c.Board.Wtomove {
		return c.WhitePosition - c.BlackPosition
	}
	return c.BlackPosition - c.WhitePosition
}

// ApplyMove derives the child context for m: a fresh board copy with the
// move applied, the new hash, and both positional totals updated by the
// move's diffs.
func (c *SearchContext) ApplyMove(m dragontoothmg.Move) SearchContext {
	info := eval.NewMoveInfo(m, &c.Board)
	positionDiff := eval.PositionDiff(info)
	captureDiff := eval.CaptureDiff(info)

	white, black := c.WhitePosition, c.BlackPosition
	if info.WhiteToMove {
		white += positionDiff
		black += captureDiff
	} else {
		black += positionDiff
		white += captureDiff
	}

	board := c.Board
	board.Apply(m)

	return SearchContext{
		Board:         board,
		Hash:          board.Hash(),
		WhitePosition: white,
		BlackPosition: black,
		History:       c.History,
		Deadline:      c.Deadline,
		Stop:          c.Stop,
		TT:            c.TT,
	}
}

// mustStop reports whether the search has been cancelled or has run past
// its deadline. Checked on a sampled schedule from the search loops.
func (c *SearchContext) mustStop() bool {
	if c.Stop != nil && c.Stop.Load() {
		return true
	}
	return !c.Deadline.IsZero() && !time.Now().Before(c.Deadline)
}
