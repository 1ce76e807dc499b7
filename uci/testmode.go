package uci

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dylhunn/dragontoothmg"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"gambit/pgn"
)

// TestModeEnv switches the binary into the self-play harness when set.
const TestModeEnv = "GAMBIT_TEST_MODE"

// maxGamePlies aborts runaway games as draws.
const maxGamePlies = 400

var stats = message.NewPrinter(language.English)

// Tournament runs self-play matches between two engine binaries over
// the UCI protocol, writing one PGN per game and a results summary.
type Tournament struct {
	Outdir     string
	Iterations int
	MoveTimeMs int
}

// NewTournament returns a harness with the defaults used by test mode.
func NewTournament() *Tournament {
	return &Tournament{
		Outdir:     "./tmp/games",
		Iterations: 10,
		MoveTimeMs: 2500,
	}
}

type player struct {
	cmd *exec.Cmd
	in  *bufio.Writer
	out *bufio.Reader
	id  int
}

// Run spawns the two engines and plays the configured number of games,
// alternating colors between games.
func (t *Tournament) Run(engine1Path, engine2Path string) error {
	if err := os.MkdirAll(t.Outdir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	eng1, err := startPlayer(engine1Path, 1)
	if err != nil {
		return err
	}
	defer eng1.stop()
	eng2, err := startPlayer(engine2Path, 2)
	if err != nil {
		return err
	}
	defer eng2.stop()

	for _, p := range []*player{eng1, eng2} {
		if err := p.handshake(); err != nil {
			return err
		}
	}

	white, black := eng1, eng2
	var eng1Wins, eng2Wins, whiteWins, blackWins, draws int

	for game := 0; game < t.Iterations; game++ {
		outcome, encoder, err := t.playGame(white, black)
		if err != nil {
			return err
		}

		switch outcome {
		case pgn.OutcomeWhiteWins:
			whiteWins++
			if white.id == 1 {
				eng1Wins++
			} else {
				eng2Wins++
			}
		case pgn.OutcomeBlackWins:
			blackWins++
			if black.id == 1 {
				eng1Wins++
			} else {
				eng2Wins++
			}
		default:
			draws++
		}

		filename := filepath.Join(t.Outdir, fmt.Sprintf("game_%d.pgn", game))
		if err := os.WriteFile(filename, []byte(encoder.Encode()+"\n"), 0644); err != nil {
			return fmt.Errorf("write pgn: %w", err)
		}

		stats.Printf("Game %d complete\n", game)
		stats.Printf("Engine 1 wins: %d\n", eng1Wins)
		stats.Printf("Engine 2 wins: %d\n", eng2Wins)
		stats.Printf("Draws: %d\n", draws)
		stats.Printf("White wins: %d  Black wins: %d\n", whiteWins, blackWins)

		white, black = black, white
	}

	results := fmt.Sprintf("Results for %d games\nEngine 1 wins: %d\nEngine 2 wins: %d\nDraws: %d\n",
		t.Iterations, eng1Wins, eng2Wins, draws)
	return os.WriteFile(filepath.Join(t.Outdir, "results.txt"), []byte(results), 0644)
}

// playGame runs one game to its natural end and returns the outcome
// plus the PGN record.
func (t *Tournament) playGame(white, black *player) (string, *pgn.Encoder, error) {
	board := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	encoder := pgn.NewEncoder(board)
	encoder.AddTag("Event", "Gambit self-play")
	encoder.AddTag("White", fmt.Sprintf("engine-%d", white.id))
	encoder.AddTag("Black", fmt.Sprintf("engine-%d", black.id))

	seen := map[uint64]int{board.Hash(): 1}
	toMove := white

	for ply := 0; ply < maxGamePlies; ply++ {
		if outcome, over := gameOutcome(&board, seen); over {
			encoder.SetOutcome(outcome)
			return outcome, encoder, nil
		}

		move, err := toMove.bestMove(board.ToFen(), t.MoveTimeMs)
		if err != nil {
			return "", nil, err
		}
		legal, ok := findLegalMove(&board, move)
		if !ok {
			return "", nil, fmt.Errorf("engine %d played illegal move %q", toMove.id, move)
		}

		encoder.AddMove(legal)
		board.Apply(legal)
		seen[board.Hash()]++

		if toMove == white {
			toMove = black
		} else {
			toMove = white
		}
	}

	encoder.SetOutcome(pgn.OutcomeDraw)
	return pgn.OutcomeDraw, encoder, nil
}

// gameOutcome checks the standard end conditions: mate, stalemate, the
// fifty-move rule, and threefold repetition.
func gameOutcome(b *dragontoothmg.Board, seen map[uint64]int) (string, bool) {
	if len(b.GenerateLegalMoves()) == 0 {
		if !b.OurKingInCheck() {
			return pgn.OutcomeDraw, true // stalemate
		}
		if b.Wtomove {
			return pgn.OutcomeBlackWins, true
		}
		return pgn.OutcomeWhiteWins, true
	}
	if b.Halfmoveclock >= 100 {
		return pgn.OutcomeDraw, true
	}
	if seen[b.Hash()] >= 3 {
		return pgn.OutcomeDraw, true
	}
	return "", false
}

func startPlayer(path string, id int) (*player, error) {
	cmd := exec.Command(path)
	// The child must run as a plain UCI engine, not recurse into the
	// harness.
	env := make([]string, 0, len(os.Environ()))
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, TestModeEnv+"=") {
			env = append(env, kv)
		}
	}
	cmd.Env = env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine %d stdin: %w", id, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine %d stdout: %w", id, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine %d (%s): %w", id, path, err)
	}
	return &player{
		cmd: cmd,
		in:  bufio.NewWriter(stdin),
		out: bufio.NewReader(stdout),
		id:  id,
	}, nil
}

func (p *player) stop() {
	p.send("quit")
	p.cmd.Wait()
}

func (p *player) send(line string) error {
	if _, err := p.in.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("engine %d write: %w", p.id, err)
	}
	return p.in.Flush()
}

// waitFor reads engine output until a line containing the marker.
func (p *player) waitFor(marker string) (string, error) {
	for {
		line, err := p.out.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("engine %d: unexpected EOF waiting for %q", p.id, marker)
			}
			return "", fmt.Errorf("engine %d read: %w", p.id, err)
		}
		if strings.Contains(line, marker) {
			return strings.TrimSpace(line), nil
		}
	}
}

func (p *player) handshake() error {
	if err := p.send("uci"); err != nil {
		return err
	}
	if _, err := p.waitFor("uciok"); err != nil {
		return err
	}
	return nil
}

// bestMove runs one position/go/bestmove exchange and returns the UCI
// move string.
func (p *player) bestMove(fen string, movetimeMs int) (string, error) {
	if err := p.send("position fen " + fen); err != nil {
		return "", err
	}
	if err := p.send(fmt.Sprintf("go movetime %d", movetimeMs)); err != nil {
		return "", err
	}
	line, err := p.waitFor("bestmove")
	if err != nil {
		return "", err
	}
	parts := strings.Fields(line)
	if len(parts) < 2 || parts[1] == "0000" {
		return "", fmt.Errorf("engine %d: no best move in %q", p.id, line)
	}
	return parts[1], nil
}
