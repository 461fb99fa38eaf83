package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/benchboard/internal/reportsim"
)

// Default configuration constants.
const (
	defaultTeams       = 5
	defaultRounds      = 10
	defaultWorkers     = 4
	defaultTimeout     = 10 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "Base URL of the service")
		teams     = flag.Int("teams", defaultTeams, "Number of simulated teams")
		rounds    = flag.Int("rounds", defaultRounds, "Reports per team")
		workers   = flag.Int("workers", defaultWorkers, "Concurrent submissions")
		interval  = flag.Duration("interval", 0, "Pause between rounds")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		prefix    = flag.String("prefix", "team", "Team id prefix")
		seed      = flag.Uint64("seed", 0, "Generator seed, 0 for random")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log every submission")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		reportsim.ShowHelp()
		return
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := reportsim.SetupLogging(*logFormat, level); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config := &reportsim.Config{
		BaseURL:    *baseURL,
		Teams:      *teams,
		Rounds:     *rounds,
		Workers:    *workers,
		Interval:   *interval,
		Timeout:    *timeout,
		TeamPrefix: *prefix,
		Seed:       *seed,
		Verbose:    *verbose,
	}

	if _, err := reportsim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
