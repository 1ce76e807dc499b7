// Package uci implements the engine controller: a dispatch loop
// bridging a UCI command reader, the long-lived search worker, and the
// shared transposition table.
//
// See: http://wbec-ridderkerk.nl/html/UCIProtocol.html
package uci

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/op/go-logging"

	"gambit/engine"
)

var log = logging.MustGetLogger("uci")

const (
	EngineName   = "Gambit"
	EngineAuthor = "The Gambit Authors"

	debugLogFile = "gambit-debug.log"
)

// state is the controller's position in its lifecycle. Only
// statePositionLoaded permits "go"; only stateSearching gives "stop"
// an effect.
type state int

const (
	stateIdle state = iota
	statePositionLoaded
	stateSearching
)

// Controller owns the current position, the accumulated move and hash
// history, the transposition table, and the cancellation flag, and
// mediates between the command channel and the search worker.
type Controller struct {
	in  <-chan string
	out io.Writer

	searcher *engine.Searcher
	tt       *engine.Table
	stop     *atomic.Bool

	board  *dragontoothmg.Board
	moves  []dragontoothmg.Move
	hashes []uint64

	st       state
	opts     map[string]string
	debug    bool
	debugLog *engine.Logger
}

// NewController wires a controller to a command channel and an output
// stream. The search worker's intermediate info lines share the same
// output stream.
func NewController(in <-chan string, out io.Writer) *Controller {
	return &Controller{
		in:       in,
		out:      out,
		searcher: engine.NewSearcher(out),
		tt:       engine.NewTableMB(engine.DefaultHashMB),
		stop:     new(atomic.Bool),
		opts:     make(map[string]string),
	}
}

// Run reads UCI commands from stdin and runs the dispatch loop until
// quit or end of input. It returns nil on a clean shutdown and an error
// on output failure.
func Run() error {
	lines := make(chan string)
	go readLines(os.Stdin, lines)
	return NewController(lines, os.Stdout).Loop()
}

func readLines(r io.Reader, lines chan<- string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		log.Errorf("reading input: %v", err)
	}
	close(lines)
}

// Loop is the dispatch select over the command channel and the search
// worker's responses. Commands are processed in receive order.
func (c *Controller) Loop() error {
	for {
		select {
		case line, ok := <-c.in:
			if !ok {
				// Reader gone: treat as end of input.
				c.shutdown()
				return nil
			}
			quit, err := c.handle(line)
			if err != nil {
				return err
			}
			if quit {
				c.shutdown()
				return nil
			}
		case resp, ok := <-c.searcher.Responses():
			if !ok {
				log.Error("search worker channel closed")
				return nil
			}
			if err := c.emitResponse(resp); err != nil {
				return err
			}
		}
	}
}

// handle dispatches one command line. The returned bool requests
// shutdown; the error is an output failure.
func (c *Controller) handle(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	switch fields[0] {
	case "uci":
		return false, c.handleUci()
	case "isready":
		return false, c.respond("readyok")
	case "setoption":
		c.handleSetOption(fields[1:])
	case "ucinewgame":
		c.handleNewGame()
	case "position":
		c.handlePosition(fields[1:])
	case "go":
		c.handleGo(fields[1:])
	case "stop":
		return false, c.handleStop()
	case "debug":
		c.handleDebug(fields[1:])
	case "quit":
		return true, nil
	default:
		log.Debugf("ignoring unknown command %q", fields[0])
	}
	return false, nil
}

func (c *Controller) respond(format string, args ...any) error {
	if _, err := fmt.Fprintf(c.out, format+"\n", args...); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (c *Controller) handleUci() error {
	if err := c.respond("id name %s", EngineName); err != nil {
		return err
	}
	if err := c.respond("id author %s", EngineAuthor); err != nil {
		return err
	}
	if err := c.respond("option name Hash type spin default %d min 1 max 1024", engine.DefaultHashMB); err != nil {
		return err
	}
	if err := c.respond("option name Debug type check default false"); err != nil {
		return err
	}
	return c.respond("uciok")
}

func (c *Controller) handleSetOption(args []string) {
	name, value := parseSetOption(args)
	if name == "" {
		log.Error("setoption: missing option name")
		return
	}
	c.opts[name] = value

	switch strings.ToLower(name) {
	case "hash":
		var sizeMB int
		if _, err := fmt.Sscanf(value, "%d", &sizeMB); err != nil || sizeMB <= 0 {
			log.Errorf("setoption Hash: bad value %q", value)
			return
		}
		c.tt = engine.NewTableMB(sizeMB)
	case "debug":
		c.setDebug(strings.EqualFold(value, "true"))
	}
}

func (c *Controller) handleNewGame() {
	c.tt.Clear()
	c.board = nil
	c.moves = nil
	c.hashes = nil
	if c.st != stateSearching {
		c.st = stateIdle
	}
}

// handlePosition replaces the current position and rebuilds the hash
// history so hashes[i] is the Zobrist hash after the first i moves. A
// bad FEN or move leaves the previous state untouched.
func (c *Controller) handlePosition(args []string) {
	board, moveTokens, err := parsePosition(args)
	if err != nil {
		log.Errorf("position: %v", err)
		return
	}

	hashes := []uint64{board.Hash()}
	var applied []dragontoothmg.Move
	for _, token := range moveTokens {
		move, ok := findLegalMove(&board, token)
		if !ok {
			log.Errorf("position: illegal or malformed move %q", token)
			return
		}
		board.Apply(move)
		applied = append(applied, move)
		hashes = append(hashes, board.Hash())
	}

	c.board = &board
	c.moves = applied
	c.hashes = hashes
	if c.st != stateSearching {
		c.st = statePositionLoaded
	}
}

// findLegalMove matches a UCI move string against the legal moves of
// the position, so only moves the board accepts are ever applied.
func findLegalMove(b *dragontoothmg.Board, token string) (dragontoothmg.Move, bool) {
	token = strings.ToLower(token)
	for _, m := range b.GenerateLegalMoves() {
		m := m
		if (&m).String() == token {
			return m, true
		}
	}
	var none dragontoothmg.Move
	return none, false
}

// handleGo validates state, translates the subparameters into a search
// control, dispatches the request, and clears the stored position so
// the next "go" needs a fresh "position".
func (c *Controller) handleGo(args []string) {
	if c.st != statePositionLoaded || c.board == nil {
		log.Error("go: no position loaded")
		return
	}
	ctrl, err := parseGo(args)
	if err != nil {
		log.Errorf("go: %v", err)
		return
	}

	history := make([]uint64, len(c.hashes))
	copy(history, c.hashes)

	c.stop.Store(false)
	req := engine.Request{
		Board:   *c.board,
		History: history,
		Ctrl:    ctrl,
		Stop:    c.stop,
		TT:      c.tt,
	}
	c.logDebug("GO", c.board.ToFen(), fmt.Sprintf("args=%v", args), 0, 0, 0)

	c.searcher.Requests() <- req
	c.st = stateSearching
	c.board = nil
	c.moves = nil
	c.hashes = nil
}

// handleStop cancels a running search and synchronously drains its
// final response, then clears the flag. Outside a search it has no
// effect.
func (c *Controller) handleStop() error {
	if c.st != stateSearching {
		log.Debug("stop: no search running")
		return nil
	}
	c.stop.Store(true)
	resp := <-c.searcher.Responses()
	err := c.emitResponse(resp)
	c.stop.Store(false)
	return err
}

func (c *Controller) handleDebug(args []string) {
	if len(args) == 0 {
		return
	}
	switch args[0] {
	case "on":
		c.setDebug(true)
	case "off":
		c.setDebug(false)
	}
}

func (c *Controller) setDebug(on bool) {
	c.debug = on
	if on && c.debugLog == nil {
		l, err := engine.NewLogger(debugLogFile)
		if err != nil {
			log.Errorf("debug: %v", err)
			return
		}
		c.debugLog = l
	}
	if !on && c.debugLog != nil {
		c.debugLog.Close()
		c.debugLog = nil
	}
}

func (c *Controller) logDebug(event, fen, detail string, depth int, nodes uint64, d time.Duration) {
	if c.debugLog == nil {
		return
	}
	c.debugLog.Log(engine.LogInfo{
		Timestamp: time.Now(),
		FEN:       fen,
		Event:     event,
		Detail:    detail,
		Depth:     depth,
		Nodes:     nodes,
		Duration:  d,
	})
}

// emitResponse prints the final info and bestmove lines for a finished
// search and leaves the Searching state.
func (c *Controller) emitResponse(resp engine.Response) error {
	if c.st == stateSearching {
		if c.board != nil {
			// A new position arrived while searching.
			c.st = statePositionLoaded
		} else {
			c.st = stateIdle
		}
	}

	if err := c.respond("info depth %d nodes %d score cp %d", resp.Depth, resp.Nodes, resp.Score); err != nil {
		return err
	}
	best := "0000"
	if resp.HasMove {
		best = (&resp.BestMove).String()
	}
	c.logDebug("BESTMOVE", "", best, resp.Depth, resp.Nodes, 0)
	return c.respond("bestmove %s", best)
}

func (c *Controller) shutdown() {
	if c.st == stateSearching {
		c.stop.Store(true)
		<-c.searcher.Responses()
	}
	c.searcher.Quit()
	if c.debugLog != nil {
		c.debugLog.Close()
		c.debugLog = nil
	}
}
