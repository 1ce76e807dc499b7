package engine

import (
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSearch(t *testing.T, s *Searcher, req Request) Response {
	t.Helper()
	s.Requests() <- req
	select {
	case resp := <-s.Responses():
		return resp
	case <-time.After(30 * time.Second):
		t.Fatal("search did not respond")
		return Response{}
	}
}

func depthRequest(fen string, depth int, tt *Table) Request {
	return Request{
		Board: dragontoothmg.ParseFen(fen),
		Ctrl:  Control{Kind: ControlDepth, Depth: depth},
		Stop:  new(atomic.Bool),
		TT:    tt,
	}
}

func TestSearch_MateInOne(t *testing.T) {
	s := NewSearcher(io.Discard)
	defer s.Quit()

	resp := runSearch(t, s, depthRequest("5k2/QR6/8/8/6K1/8/8/8 w - - 0 1", 1, nil))

	require.True(t, resp.HasMove)
	assert.Equal(t, -CheckmateScore, resp.Score)

	// The chosen move must deliver checkmate on the spot.
	board := dragontoothmg.ParseFen("5k2/QR6/8/8/6K1/8/8/8 w - - 0 1")
	board.Apply(resp.BestMove)
	assert.Empty(t, board.GenerateLegalMoves())
	assert.True(t, board.OurKingInCheck())
}

func TestSearch_MateInTwo(t *testing.T) {
	s := NewSearcher(io.Discard)
	defer s.Quit()

	resp := runSearch(t, s, depthRequest("r6k/4Rppp/8/8/8/8/8/4R2K w - - 0 1", 4, nil))

	require.True(t, resp.HasMove)
	assert.Equal(t, -CheckmateScore+1, resp.Score)
}

func TestSearch_PrefersShortestMate(t *testing.T) {
	s := NewSearcher(io.Discard)
	defer s.Quit()

	resp := runSearch(t, s, depthRequest("r6k/4Rppp/8/8/8/8/7Q/1B2R2K w - - 0 1", 3, nil))

	require.True(t, resp.HasMove)
	assert.Equal(t, -CheckmateScore+2, resp.Score, "mate in one outranks the slower mates")

	board := dragontoothmg.ParseFen("r6k/4Rppp/8/8/8/8/7Q/1B2R2K w - - 0 1")
	board.Apply(resp.BestMove)
	assert.Empty(t, board.GenerateLegalMoves(), "best move mates immediately")
}

// mirrorFen reflects a position: ranks flipped, colors swapped, side to
// move and castling rights exchanged.
func mirrorFen(t *testing.T, fen string) string {
	t.Helper()
	fields := strings.Fields(fen)
	require.Len(t, fields, 6)

	ranks := strings.Split(fields[0], "/")
	require.Len(t, ranks, 8)
	mirrored := make([]string, 8)
	for i, rank := range ranks {
		mirrored[7-i] = strings.Map(swapCase, rank)
	}

	side := "w"
	if fields[1] == "w" {
		side = "b"
	}

	castling := fields[2]
	if castling != "-" {
		castling = strings.Map(swapCase, castling)
	}

	ep := fields[3]
	if ep != "-" {
		file := ep[:1]
		if ep[1] == '3' {
			ep = file + "6"
		} else {
			ep = file + "3"
		}
	}

	return strings.Join([]string{strings.Join(mirrored, "/"), side, castling, ep, fields[4], fields[5]}, " ")
}

func swapCase(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z':
		return r - 'a' + 'A'
	case r >= 'A' && r <= 'Z':
		return r - 'A' + 'a'
	}
	return r
}

func TestSearch_ColorParity(t *testing.T) {
	s := NewSearcher(io.Discard)
	defer s.Quit()

	fens := []string{
		"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 0 3",
		"rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2",
	}
	for _, fen := range fens {
		original := runSearch(t, s, depthRequest(fen, 2, nil))
		reflected := runSearch(t, s, depthRequest(mirrorFen(t, fen), 2, nil))
		assert.Equal(t, original.Score, reflected.Score, "fen %s", fen)
	}
}

func TestNegaMax_ThreefoldRepetitionIsDraw(t *testing.T) {
	board := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	board.Apply(firstLegal(t, &board, "e2e4"))
	hash := board.Hash()

	history := NewMoveHistory([]uint64{hash, hash, hash})
	ctx := NewSearchContext(board, history, time.Time{}, nil, nil)

	result := NegaMax(&ctx, 1, MinScore, -MinScore)
	assert.Equal(t, int32(0), result.Score)
}

func firstLegal(t *testing.T, b *dragontoothmg.Board, uci string) dragontoothmg.Move {
	t.Helper()
	for _, m := range b.GenerateLegalMoves() {
		m := m
		if (&m).String() == uci {
			return m
		}
	}
	t.Fatalf("no legal move %s", uci)
	var none dragontoothmg.Move
	return none
}

func TestSearch_Deterministic(t *testing.T) {
	s := NewSearcher(io.Discard)
	defer s.Quit()

	first := runSearch(t, s, depthRequest(dragontoothmg.Startpos, 3, nil))
	second := runSearch(t, s, depthRequest(dragontoothmg.Startpos, 3, nil))

	require.True(t, first.HasMove)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, (&first.BestMove).String(), (&second.BestMove).String())
	assert.Equal(t, first.Nodes, second.Nodes)
}

func TestSearch_MoveTimeDeepensWithSharedTable(t *testing.T) {
	s := NewSearcher(io.Discard)
	defer s.Quit()

	tt, err := NewTable(1 << 16)
	require.NoError(t, err)
	resp := runSearch(t, s, Request{
		Board: dragontoothmg.ParseFen(dragontoothmg.Startpos),
		Ctrl:  Control{Kind: ControlMoveTime, MoveTime: 300 * time.Millisecond},
		Stop:  new(atomic.Bool),
		TT:    tt,
	})
	require.True(t, resp.HasMove)
	assert.GreaterOrEqual(t, resp.Depth, 2, "iterative deepening should finish several levels")
}

func TestSearch_StopProducesOneResponse(t *testing.T) {
	s := NewSearcher(io.Discard)
	defer s.Quit()

	stop := new(atomic.Bool)
	tt, err := NewTable(1 << 16)
	require.NoError(t, err)

	s.Requests() <- Request{
		Board: dragontoothmg.ParseFen(dragontoothmg.Startpos),
		Ctrl:  Control{Kind: ControlInfinite},
		Stop:  stop,
		TT:    tt,
	}

	time.Sleep(300 * time.Millisecond)
	stop.Store(true)

	select {
	case resp := <-s.Responses():
		assert.True(t, resp.HasMove, "a completed shallow iteration must survive the stop")
		assert.Greater(t, resp.Depth, 0)
	case <-time.After(2 * time.Second):
		t.Fatal("no response after stop")
	}

	// Exactly one response: the channel stays quiet afterwards.
	select {
	case extra := <-s.Responses():
		t.Fatalf("unexpected second response at depth %d", extra.Depth)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSearch_NoLegalMovesReportsNoMove(t *testing.T) {
	s := NewSearcher(io.Discard)
	defer s.Quit()

	// Black to move is stalemated: the king on h8 is not in check and has
	// no legal move.
	resp := runSearch(t, s, depthRequest("7k/5QR1/8/8/8/8/8/7K b - - 0 1", 2, nil))
	assert.False(t, resp.HasMove)
}
