package engine

import (
	"fmt"
	"os"
	"time"
)

// LogInfo is one debug-log line for a dispatched or finished search.
type LogInfo struct {
	Timestamp time.Time
	FEN       string
	Event     string // e.g. "GO", "BESTMOVE", "STOP"
	Detail    string
	Depth     int
	Nodes     uint64
	Duration  time.Duration
}

// Logger writes search debug lines to a file from a background
// goroutine so the dispatch loop never blocks on disk.
type Logger struct {
	file  *os.File
	queue chan LogInfo
	done  chan struct{}
}

// NewLogger opens (or appends to) filename and starts the writer.
func NewLogger(filename string) (*Logger, error) {
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	l := &Logger{
		file:  file,
		queue: make(chan LogInfo, 100),
		done:  make(chan struct{}),
	}
	go l.writer()
	return l, nil
}

// Log enqueues a line. If the queue is full the line is dropped rather
// than stalling the engine.
func (l *Logger) Log(info LogInfo) {
	select {
	case l.queue <- info:
	default:
	}
}

// Close flushes the queue and closes the file.
func (l *Logger) Close() {
	close(l.queue)
	<-l.done
	l.file.Close()
}

func (l *Logger) writer() {
	for info := range l.queue {
		line := fmt.Sprintf("%s | %-8s | d: %-2d | n: %-9d | t: %-8s | %s | FEN: %s\n",
			info.Timestamp.Format("01-02 15:04:05.000"),
			info.Event,
			info.Depth,
			info.Nodes,
			info.Duration.Round(time.Millisecond),
			info.Detail,
			info.FEN,
		)
		l.file.WriteString(line)
	}
	close(l.done)
}
