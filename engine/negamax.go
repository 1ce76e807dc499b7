package engine

import (
	"math"

	"github.com/dylhunn/dragontoothmg"
)

const (
	// MinScore leaves a 127-point margin above the int16 floor so that
	// mate-depth offsets and negation never overflow the packed score.
	MinScore int32 = math.MinInt16 + 127

	// CheckmateScore is the score of a checkmated side to move, before
	// the remaining-depth offset that makes shorter mates preferable.
	CheckmateScore int32 = MinScore + 127

	// MaxPly bounds iterative deepening and the history stack headroom.
	MaxPly = 64

	// checkMask throttles cancellation checks to every 2048 nodes: a
	// frame polls each time its node count crosses a multiple of 2048.
	checkMask = 2047

	// maxQuiescencePly caps the capture extension so a pathological
	// exchange sequence cannot recurse without bound.
	maxQuiescencePly = 8
)

// Result carries a subtree's node count and its negamax score.
type Result struct {
	Nodes uint64
	Score int32
}

// Neg flips the score into the parent's perspective.
func (r Result) Neg() Result {
	return Result{Nodes: r.Nodes, Score: -r.Score}
}

// NegaMax searches ctx to the given remaining depth inside the
// [alpha, beta) window and returns the score for the side to move.
//
// Frame order: transposition probe, terminal checks on the generated
// move list, quiescence hand-off at depth zero, then the move loop with
// beta cutoffs and sampled cancellation checks, and finally the
// transposition store keyed on the alpha the frame was entered with.
func NegaMax(ctx *SearchContext, depth int, alpha, beta int32) Result {
	originalAlpha := alpha

	if ctx.TT != nil {
		if data, ok := ctx.TT.Get(ctx.Hash); ok && int(data.Depth) >= depth {
			score := int32(data.Score)
			switch data.Bound {
			case BoundExact:
				return Result{Score: score}
			case BoundLower:
				if score > alpha {
					alpha = score
				}
			case BoundUpper:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				return Result{Score: score}
			}
		}
	}

	moves := SortedMoves(&ctx.Board)

	if len(moves) == 0 {
		if ctx.Board.OurKingInCheck() {
			return Result{Score: CheckmateScore - int32(depth)}
		}
		return Result{} // stalemate
	}

	if ctx.History.SeenTimes(ctx.Hash) >= 3 {
		return Result{} // threefold repetition
	}

	if depth == 0 {
		return quiescence(ctx, alpha, beta, 0)
	}

	maxScore := MinScore
	var bestMove dragontoothmg.Move
	var nodes uint64
	for _, m := range moves {
		child := ctx.ApplyMove(m)
		ctx.History.Push(child.Hash)
		result := NegaMax(&child, depth-1, -beta, -alpha).Neg()
		ctx.History.Pop()

		prevNodes := nodes
		nodes += result.Nodes + 1
		if result.Score > maxScore {
			maxScore = result.Score
			bestMove = m
		}
		if maxScore > alpha {
			alpha = maxScore
		}
		if alpha >= beta {
			break
		}
		if prevNodes&^checkMask != nodes&^checkMask && ctx.mustStop() {
			// Cancelled: return what is known without poisoning the
			// table with a partial score.
			return Result{Nodes: nodes, Score: maxScore}
		}
	}

	if ctx.TT != nil {
		ctx.TT.Set(ctx.Hash, uint8(depth), maxScore, bestMove, originalAlpha, beta)
	}
	return Result{Nodes: nodes, Score: maxScore}
}

// quiescence extends the search at leaves with captures only, so the
// returned evaluation is taken from a tactically quiet position. The
// side to move may always stand pat on the static score.
func quiescence(ctx *SearchContext, alpha, beta int32, ply int) Result {
	standPat := ctx.BoardScore()
	bestValue := standPat

	if standPat >= beta {
		return Result{Score: standPat}
	}
	if standPat > alpha {
		alpha = standPat
	}

	if ctx.History.SeenTimes(ctx.Hash) >= 3 {
		return Result{} // threefold repetition
	}

	if ply >= maxQuiescencePly {
		return Result{Score: bestValue}
	}

	var nodes uint64
	for _, m := range SortedMoves(&ctx.Board) {
		if !isCapture(&ctx.Board, m) {
			continue
		}

		child := ctx.ApplyMove(m)
		ctx.History.Push(child.Hash)
		result := quiescence(&child, -beta, -alpha, ply+1).Neg()
		ctx.History.Pop()

		prevNodes := nodes
		nodes += result.Nodes + 1
		if result.Score >= beta {
			return Result{Nodes: nodes, Score: result.Score}
		}
		if result.Score > bestValue {
			bestValue = result.Score
		}
		if result.Score > alpha {
			alpha = result.Score
		}
		if prevNodes&^checkMask != nodes&^checkMask && ctx.mustStop() {
			break
		}
	}
	return Result{Nodes: nodes, Score: bestValue}
}
