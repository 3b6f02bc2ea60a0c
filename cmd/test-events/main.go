package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/rankset/internal/testevents"
)

// Default configuration constants.
const (
	defaultNumCommands   = 10000
	defaultPlayers       = 1000
	defaultDuplicateRate = 0.05
	defaultTopN          = 10
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultTestTimeout   = 10 * time.Minute
	playerBaseStride     = 10_000_000
)

func main() {
	now := time.Now()
	var (
		baseURL       = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numCommands   = flag.Int("commands", defaultNumCommands, "Number of commands to generate and submit")
		players       = flag.Int("players", defaultPlayers, "Distinct players the commands touch")
		playerBase    = flag.Int64("player-base", 1+(now.Unix()%1000)*playerBaseStride, "First player id")
		maxScore      = flag.Int("max-score", 0, "Score bound for generated values, 0 to ask the service")
		duplicateRate = flag.Float64("dup-rate", defaultDuplicateRate, "Share of commands sent twice")
		seed          = flag.Uint64("seed", uint64(now.UnixNano()), "Generator seed")
		topN          = flag.Int("top", defaultTopN, "Leaderboard rows to print and rank lookups to check")
		workers       = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout       = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle        = flag.Duration("settle", testevents.DefaultSettleTimeout, "How long to wait for the writer to drain")
		outputFile    = flag.String("output", "", "Output file for generated commands (default: generated_commands_TIMESTAMP.json)")
		logFile       = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	closer, err := testevents.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testevents.Config{
		BaseURL:       *baseURL,
		NumCommands:   *numCommands,
		Players:       *players,
		PlayerBase:    *playerBase,
		MaxScore:      *maxScore,
		DuplicateRate: *duplicateRate,
		Seed:          *seed,
		TopN:          *topN,
		Workers:       *workers,
		Timeout:       *timeout,
		SettleTimeout: *settle,
		OutputFile:    *outputFile,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	if err := testevents.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		closer.Close()
		cancel()
		os.Exit(1) //nolint:gocritic // resources released above
	}
}
