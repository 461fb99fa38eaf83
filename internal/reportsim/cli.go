package reportsim

import (
	"fmt"
	"os"

	"github.com/okian/benchboard/pkg/logger"
)

// SetupLogging initialises the logger with the given format and level.
func SetupLogging(format, level string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := logger.SetFormat(format); err != nil {
		return err
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`BenchBoard Report Simulator
===========================

Posts mock benchmark reports for a set of teams and verifies the best
records the service reports for each of them.

Usage:
  go run ./cmd/report-sim [options]

Options:
  -url string        Base URL of the service (default "http://localhost:8080")
  -teams int         Number of simulated teams (default 5)
  -rounds int        Reports per team (default 10)
  -workers int       Concurrent submissions (default 4)
  -interval duration Pause between rounds (default 0)
  -timeout duration  HTTP request timeout (default 10s)
  -prefix string     Team id prefix (default "team")
  -seed uint         Generator seed, 0 for random (default 0)
  -log-format string text or json (default "text")
  -verbose           Log every submission
  -help              Show this help message

Examples:
  go run ./cmd/report-sim -teams 20 -rounds 50 -workers 16
  go run ./cmd/report-sim -url http://localhost:9090 -interval 1s -verbose
`)
}
