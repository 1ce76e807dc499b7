package uci

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dylhunn/dragontoothmg"

	"gambit/engine"
)

// parsePosition handles "startpos [moves ...]" and
// "fen <FEN...> [moves ...]". It returns the base board and the raw
// move tokens still to be applied.
func parsePosition(args []string) (dragontoothmg.Board, []string, error) {
	if len(args) == 0 {
		return dragontoothmg.Board{}, nil, fmt.Errorf("missing position specification")
	}

	switch args[0] {
	case "startpos":
		board := dragontoothmg.ParseFen(dragontoothmg.Startpos)
		if len(args) > 1 && args[1] == "moves" {
			return board, args[2:], nil
		}
		return board, nil, nil

	case "fen":
		rest := args[1:]
		var fenParts []string
		for len(rest) > 0 && rest[0] != "moves" {
			fenParts = append(fenParts, rest[0])
			rest = rest[1:]
		}
		if len(fenParts) == 0 {
			return dragontoothmg.Board{}, nil, fmt.Errorf("empty FEN")
		}
		fen := strings.Join(fenParts, " ")
		board, err := safeParseFen(fen)
		if err != nil {
			return dragontoothmg.Board{}, nil, err
		}
		if len(rest) > 0 && rest[0] == "moves" {
			return board, rest[1:], nil
		}
		return board, nil, nil
	}

	return dragontoothmg.Board{}, nil, fmt.Errorf("unknown position specification %q", args[0])
}

// safeParseFen wraps the board library's FEN parser: malformed input is
// rejected up front or its panic converted into an error, so a bad
// position line cannot take the engine down.
func safeParseFen(fen string) (board dragontoothmg.Board, err error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 || strings.Count(fields[0], "/") != 7 {
		return board, fmt.Errorf("invalid FEN %q", fen)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid FEN %q: %v", fen, r)
		}
	}()
	board = dragontoothmg.ParseFen(fen)
	if board.White.Kings == 0 || board.Black.Kings == 0 {
		return board, fmt.Errorf("invalid FEN %q: missing king", fen)
	}
	return board, nil
}

// parseGo translates go subparameters into a search control. Unknown
// subkeys with a value are skipped silently; a go line carrying none of
// depth/movetime/infinite is an error.
func parseGo(args []string) (engine.Control, error) {
	var (
		depth    = -1
		movetime = -1
		infinite bool
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				if d, err := strconv.Atoi(args[i+1]); err == nil && d > 0 {
					depth = d
				}
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				if t, err := strconv.Atoi(args[i+1]); err == nil && t > 0 {
					movetime = t
				}
				i++
			}
		case "infinite":
			infinite = true
		case "wtime", "btime", "winc", "binc", "movestogo", "nodes", "mate":
			i++ // recognized but unsupported; skip the value
		case "ponder":
			// unsupported, no value
		default:
			// unknown subkey, ignore
		}
	}

	switch {
	case infinite:
		return engine.Control{Kind: engine.ControlInfinite}, nil
	case depth > 0:
		return engine.Control{Kind: engine.ControlDepth, Depth: depth}, nil
	case movetime > 0:
		return engine.Control{Kind: engine.ControlMoveTime, MoveTime: time.Duration(movetime) * time.Millisecond}, nil
	}
	return engine.Control{}, fmt.Errorf("no usable search control in %v", args)
}

// parseSetOption splits "name <id...> [value <x...>]" into the two
// multi-word halves.
func parseSetOption(args []string) (name, value string) {
	var namePieces, valuePieces []string
	inValue := false
	for _, tok := range args {
		switch tok {
		case "name":
			inValue = false
		case "value":
			inValue = true
		default:
			if inValue {
				valuePieces = append(valuePieces, tok)
			} else {
				namePieces = append(namePieces, tok)
			}
		}
	}
	return strings.Join(namePieces, " "), strings.Join(valuePieces, " ")
}
