package testevents

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/rankset/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging routes the structured logger to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "test_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Rankset Load Test Tool
======================

Submits a reproducible stream of set/add/remove commands to a running
rankset service, waits for the writer to apply them, replays the same
stream against a local ranking set and checks the service agrees.

Usage:
  go run cmd/test-events/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -commands int
        Number of commands to generate and submit (default 10000)
  -players int
        Distinct players the commands touch (default 1000)
  -player-base int
        First player id (default derived from the clock)
  -max-score int
        Score bound for generated values (default: ask the service)
  -dup-rate float
        Share of commands sent twice with the same request id (default 0.05)
  -seed uint
        Generator seed (default derived from the clock)
  -top int
        Leaderboard rows to print and rank lookups to check (default 10)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -settle duration
        How long to wait for the writer to drain (default 2m)
  -output string
        Output file for generated commands (default: generated_commands_TIMESTAMP.json)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-events/main.go

  # Replay a previous run's mix against another instance
  go run cmd/test-events/main.go -seed 42 -player-base 1000000 -url http://localhost:8080

  # Heavy run with verbose progress
  go run cmd/test-events/main.go -verbose -commands 200000 -workers 32
`)
}
