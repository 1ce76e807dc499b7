package engine

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"golang.org/x/sync/errgroup"
)

// ControlKind selects how a search terminates.
type ControlKind int

const (
	// ControlDepth searches to a fixed depth and stops.
	ControlDepth ControlKind = iota
	// ControlMoveTime deepens iteratively until a deadline.
	ControlMoveTime
	// ControlInfinite deepens until cancelled.
	ControlInfinite
)

// Control is the termination rule of one search request.
type Control struct {
	Kind     ControlKind
	Depth    int
	MoveTime time.Duration
}

// Request asks the search worker for the best move of one position.
type Request struct {
	Board dragontoothmg.Board
	// History holds the hashes of every position reached before the
	// search begins, for threefold-repetition detection.
	History []uint64
	Ctrl    Control
	// Stop is the shared cancellation flag, set by the controller on
	// "stop" and polled by every search frame.
	Stop *atomic.Bool
	TT   *Table
}

// MoveScore is the per-root-move breakdown of a finished depth.
type MoveScore struct {
	Move  dragontoothmg.Move
	Score int32
	Nodes uint64
}

// Response reports a finished (or cancelled) search. HasMove is false
// only when no deepening iteration completed, or the position had no
// legal moves.
type Response struct {
	BestMove dragontoothmg.Move
	HasMove  bool
	Score    int32
	Depth    int
	Nodes    uint64
	Moves    []MoveScore
}

// Searcher is the long-lived search worker: one goroutine receiving
// requests and emitting exactly one response per request, fanning each
// deepening iteration out over the root moves on a bounded pool.
type Searcher struct {
	requests  chan Request
	responses chan Response
	info      io.Writer
	workers   int
}

// NewSearcher starts the worker goroutine. Intermediate "info" lines
// for completed deepening iterations are written to infoWriter (stdout
// if nil).
func NewSearcher(infoWriter io.Writer) *Searcher {
	if infoWriter == nil {
		infoWriter = os.Stdout
	}
	s := &Searcher{
		requests:  make(chan Request),
		responses: make(chan Response),
		info:      infoWriter,
		workers:   runtime.NumCPU(),
	}
	go s.run()
	return s
}

// Requests is the channel search requests are dispatched on.
func (s *Searcher) Requests() chan<- Request {
	return s.requests
}

// Responses delivers one response per dispatched request.
func (s *Searcher) Responses() <-chan Response {
	return s.responses
}

// Quit shuts the worker down. No requests may be in flight.
func (s *Searcher) Quit() {
	close(s.requests)
}

func (s *Searcher) run() {
	defer close(s.responses)
	for req := range s.requests {
		s.responses <- s.search(req)
	}
}

func (s *Searcher) search(req Request) Response {
	switch req.Ctrl.Kind {
	case ControlDepth:
		return s.searchDepth(req, req.Ctrl.Depth, time.Time{})
	case ControlMoveTime:
		return s.searchIterative(req, time.Now().Add(req.Ctrl.MoveTime))
	default:
		return s.searchIterative(req, time.Time{})
	}
}

// searchDepth runs one fixed-depth iteration: every root legal move is
// searched in parallel with its own history, then the results are
// aggregated deterministically (maximum score, ties to the earliest
// move in generation order).
func (s *Searcher) searchDepth(req Request, depth int, deadline time.Time) Response {
	board := req.Board
	moves := board.GenerateLegalMoves()
	if len(moves) == 0 {
		return Response{Depth: depth}
	}

	scores := make([]MoveScore, len(moves))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, m := range moves {
		i, m := i, m
		g.Go(func() error {
			scores[i] = searchMove(&req, m, depth, deadline)
			return nil
		})
	}
	g.Wait()

	resp := Response{Depth: depth, Moves: scores}
	best := MinScore - 1
	for i, ms := range scores {
		resp.Nodes += ms.Nodes
		if ms.Score > best {
			best = ms.Score
			resp.BestMove = moves[i]
			resp.Score = ms.Score
			resp.HasMove = true
		}
	}
	return resp
}

// searchMove searches a single root move: the move is applied (using up
// one ply), a fresh history is seeded from the request's, and the child
// is searched over the full window.
func searchMove(req *Request, m dragontoothmg.Move, depth int, deadline time.Time) MoveScore {
	history := NewMoveHistory(req.History)
	ctx := NewSearchContext(req.Board, history, deadline, req.Stop, req.TT)
	child := ctx.ApplyMove(m)
	result := NegaMax(&child, depth-1, MinScore, -MinScore).Neg()
	return MoveScore{Move: m, Score: result.Score, Nodes: result.Nodes}
}

// searchIterative deepens from 1 up to MaxPly, keeping the last
// iteration that ran to completion. A zero deadline means no time
// limit. Iterations interrupted by the flag or the deadline are
// discarded so a cancelled search still answers with a fully searched
// move.
func (s *Searcher) searchIterative(req Request, deadline time.Time) Response {
	var best Response
	start := time.Now()
	for depth := 1; depth <= MaxPly; depth++ {
		resp := s.searchDepth(req, depth, deadline)
		if stopRequested(&req, deadline) {
			break
		}
		best = resp
		s.emitInfo(resp, time.Since(start))
		if mateFound(resp) {
			break
		}
	}
	return best
}

func stopRequested(req *Request, deadline time.Time) bool {
	if req.Stop != nil && req.Stop.Load() {
		return true
	}
	return !deadline.IsZero() && !time.Now().Before(deadline)
}

// mateFound reports a forced mate for either side; deepening past it
// cannot change the answer.
func mateFound(resp Response) bool {
	if !resp.HasMove {
		return false
	}
	return resp.Score >= -CheckmateScore-int32(MaxPly) || resp.Score <= CheckmateScore+int32(MaxPly)
}

func (s *Searcher) emitInfo(resp Response, elapsed time.Duration) {
	ms := elapsed.Milliseconds()
	if ms == 0 {
		ms = 1
	}
	nps := int64(resp.Nodes) * 1000 / ms
	if resp.HasMove {
		fmt.Fprintf(s.info, "info depth %d nodes %d score cp %d time %d nps %d pv %s\n",
			resp.Depth, resp.Nodes, resp.Score, ms, nps, (&resp.BestMove).String())
		return
	}
	fmt.Fprintf(s.info, "info depth %d nodes %d time %d\n", resp.Depth, resp.Nodes, ms)
}
