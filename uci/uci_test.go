package uci

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gambit/engine"
)

// syncBuffer collects output from the controller and the search worker,
// which write from different goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	in   chan string
	out  *syncBuffer
	done chan error
}

func startController() *harness {
	h := &harness{
		in:   make(chan string),
		out:  &syncBuffer{},
		done: make(chan error, 1),
	}
	c := NewController(h.in, h.out)
	go func() { h.done <- c.Loop() }()
	return h
}

func (h *harness) send(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		select {
		case h.in <- line:
		case <-time.After(5 * time.Second):
			t.Fatalf("controller did not accept %q", line)
		}
	}
}

// waitFor polls the output until the marker shows up.
func (h *harness) waitFor(t *testing.T, marker string) string {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if out := h.String(); strings.Contains(out, marker) {
			return out
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("marker %q never appeared in output:\n%s", marker, h.String())
	return ""
}

func (h *harness) String() string { return h.out.String() }

func (h *harness) quit(t *testing.T) {
	t.Helper()
	h.send(t, "quit")
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not shut down")
	}
}

func TestController_Handshake(t *testing.T) {
	h := startController()
	h.send(t, "uci", "isready")

	out := h.waitFor(t, "readyok")
	assert.Contains(t, out, "id name "+EngineName)
	assert.Contains(t, out, "id author")
	assert.Contains(t, out, "option name Hash type spin")
	assert.Contains(t, out, "uciok")

	h.quit(t)
}

func TestController_SearchEmitsBestmove(t *testing.T) {
	h := startController()
	h.send(t, "position startpos moves e2e4 e7e5", "go depth 2")

	out := h.waitFor(t, "bestmove")
	assert.Contains(t, out, "info depth 2")
	assert.Contains(t, out, "score cp")
	assert.NotContains(t, out, "bestmove 0000")

	h.quit(t)
}

func TestController_GoWithoutPositionIsRejected(t *testing.T) {
	h := startController()
	h.send(t, "go depth 1", "isready")

	out := h.waitFor(t, "readyok")
	assert.NotContains(t, out, "bestmove")

	h.quit(t)
}

func TestController_GoConsumesPosition(t *testing.T) {
	h := startController()
	h.send(t, "position startpos", "go depth 1")
	h.waitFor(t, "bestmove")

	// The position was cleared by go; a second go must be rejected.
	h.send(t, "go depth 1", "isready")
	out := h.waitFor(t, "readyok")
	assert.Equal(t, 1, strings.Count(out, "bestmove"))

	h.quit(t)
}

func TestController_InvalidFenKeepsPriorState(t *testing.T) {
	h := startController()
	h.send(t, "position startpos")
	h.send(t, "position fen not/a/real/fen w - - 0 1")
	h.send(t, "go depth 1")

	out := h.waitFor(t, "bestmove")
	// The startpos survives, so the search ran on it.
	assert.Contains(t, out, "bestmove")
	assert.NotContains(t, out, "bestmove 0000")

	h.quit(t)
}

func TestController_StopDuringInfiniteSearch(t *testing.T) {
	h := startController()
	h.send(t, "position startpos", "go infinite")

	time.Sleep(500 * time.Millisecond)
	h.send(t, "stop")

	out := h.waitFor(t, "bestmove")
	assert.Equal(t, 1, strings.Count(out, "bestmove"))

	h.quit(t)
}

func TestController_MateScenario(t *testing.T) {
	h := startController()
	h.send(t, "position fen 5k2/QR6/8/8/6K1/8/8/8 w - - 0 1", "go depth 1")

	out := h.waitFor(t, "bestmove")
	assert.Contains(t, out, "info depth 1")
	assert.NotContains(t, out, "bestmove 0000")

	h.quit(t)
}

func TestController_EndOfInputShutsDown(t *testing.T) {
	h := startController()
	close(h.in)
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not shut down on closed input")
	}
}

func TestParseGo(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    engine.Control
		wantErr bool
	}{
		{
			name: "depth",
			args: []string{"depth", "6"},
			want: engine.Control{Kind: engine.ControlDepth, Depth: 6},
		},
		{
			name: "movetime",
			args: []string{"movetime", "1500"},
			want: engine.Control{Kind: engine.ControlMoveTime, MoveTime: 1500 * time.Millisecond},
		},
		{
			name: "infinite",
			args: []string{"infinite"},
			want: engine.Control{Kind: engine.ControlInfinite},
		},
		{
			name: "unknown subkeys skipped",
			args: []string{"wtime", "30000", "btime", "30000", "depth", "4"},
			want: engine.Control{Kind: engine.ControlDepth, Depth: 4},
		},
		{
			name:    "nothing usable",
			args:    []string{"wtime", "30000"},
			wantErr: true,
		},
		{
			name:    "empty",
			args:    nil,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseGo(tc.args)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSetOption(t *testing.T) {
	name, value := parseSetOption([]string{"name", "Hash", "value", "128"})
	assert.Equal(t, "Hash", name)
	assert.Equal(t, "128", value)

	name, value = parseSetOption([]string{"name", "Clear", "Hash"})
	assert.Equal(t, "Clear Hash", name)
	assert.Equal(t, "", value)
}

func TestParsePosition_HashesTrackMoves(t *testing.T) {
	board, moveTokens, err := parsePosition([]string{"startpos", "moves", "e2e4", "e7e5"})
	require.NoError(t, err)
	assert.Equal(t, []string{"e2e4", "e7e5"}, moveTokens)

	// Applying the tokens reproduces the controller's hash history.
	hashes := []uint64{board.Hash()}
	for _, token := range moveTokens {
		m, ok := findLegalMove(&board, token)
		require.True(t, ok)
		board.Apply(m)
		hashes = append(hashes, board.Hash())
	}
	assert.Len(t, hashes, 3)
	assert.NotEqual(t, hashes[0], hashes[1])
	assert.NotEqual(t, hashes[1], hashes[2])
}

func TestFindLegalMove_RejectsIllegal(t *testing.T) {
	board := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	_, ok := findLegalMove(&board, "e2e5")
	assert.False(t, ok)
	_, ok = findLegalMove(&board, "garbage")
	assert.False(t, ok)

	m, ok := findLegalMove(&board, "g1f3")
	require.True(t, ok)
	assert.Equal(t, "g1f3", (&m).String())
}
