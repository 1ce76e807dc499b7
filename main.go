package main

import (
	"fmt"
	"os"

	"github.com/op/go-logging"

	"gambit/uci"
)

var log = logging.MustGetLogger("gambit")

func main() {
	setupLogging()

	if os.Getenv(uci.TestModeEnv) != "" {
		if err := runTestMode(); err != nil {
			log.Errorf("test mode: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := uci.Run(); err != nil {
		log.Errorf("engine: %v", err)
		os.Exit(1)
	}
}

// setupLogging routes all diagnostics to stderr so stdout stays a pure
// UCI stream.
func setupLogging() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	format := logging.MustStringFormatter(
		`%{time:15:04:05.000} %{module} %{level:.4s} %{message}`,
	)
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
	leveled.SetLevel(logging.INFO, "")
	logging.SetBackend(leveled)
}

// runTestMode plays the two engines given as arguments against each
// other; with no arguments the binary plays itself.
func runTestMode() error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve binary path: %w", err)
	}
	eng1, eng2 := self, self
	if len(os.Args) > 1 {
		eng1 = os.Args[1]
	}
	if len(os.Args) > 2 {
		eng2 = os.Args[2]
	}
	return uci.NewTournament().Run(eng1, eng2)
}
