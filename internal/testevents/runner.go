package testevents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/okian/rankset/internal/domain/ranking"
	"github.com/okian/rankset/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete load test: submit, drain, replay, verify.
func Run(ctx context.Context, config *Config) error {
	config.withDefaults()
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting rankset load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("commands", config.NumCommands),
		logger.Int("players", config.Players),
		logger.Int64("playerBase", config.PlayerBase),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("seed", config.Seed),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Snapshot writer counters and bounds
	baseline, err := fetchStats(ctx, newHTTPClient(config.Timeout), config.BaseURL)
	if err != nil {
		return fmt.Errorf("baseline stats failed: %w", err)
	}
	maxScore := config.MaxScore
	if maxScore == 0 {
		maxScore = baseline.MaxScore
	}

	// Step 3: Generate commands
	commands, err := generateCommands(ctx, config, maxScore, stats)
	if err != nil {
		return fmt.Errorf("command generation failed: %w", err)
	}

	// Step 4: Submit commands concurrently
	accepted, err := submitCommands(ctx, config, commands, stats)
	if err != nil {
		return fmt.Errorf("command submission failed: %w", err)
	}

	// Step 5: Wait for the writer to drain
	queued := 0
	for _, ok := range accepted {
		if ok {
			queued++
		}
	}
	settled, err := waitForDrain(ctx, config, baseline, queued)
	if err != nil {
		return fmt.Errorf("waiting for writer failed: %w", err)
	}

	// Step 6: Replay locally
	model, err := replay(commands, accepted, ranking.Config{
		MaxScore:     baseline.MaxScore,
		BranchFactor: baseline.BranchFactor,
	}, stats)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	// Step 7: Read the server's view
	leaderboard, err := getLeaderboard(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	top, err := model.Range(1, config.TopN)
	if err != nil {
		return fmt.Errorf("model range failed: %w", err)
	}
	ids := make([]int64, len(top))
	for i, r := range top {
		ids[i] = int64(r.PlayerID)
	}
	rankings, err := retrieveRankings(ctx, config, ids, stats)
	if err != nil {
		return fmt.Errorf("ranking retrieval failed: %w", err)
	}

	// Step 8: Verify results
	if err := verifyResults(ctx, config, model, leaderboard, rankings, settled, baseline, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 9: Save commands to file
	if err := saveCommandsToFile(ctx, config, commands); err != nil {
		logger.Get().Warn(ctx, "failed to save commands to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// withDefaults fills zero-valued tuning fields.
func (c *Config) withDefaults() {
	if c.Workers < 1 {
		c.Workers = runtime.NumCPU()
	}
	if c.PageSize < 1 {
		c.PageSize = DefaultPageSize
	}
	if c.TopN < 1 {
		c.TopN = DefaultTopN
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = DefaultSettleTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PlayerBase < 1 {
		c.PlayerBase = 1
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}

	// Any 200 is healthy; the body is Prometheus exposition text.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveCommandsToFile saves the generated commands as a JSON array, one per line.
func saveCommandsToFile(ctx context.Context, config *Config, commands []Command) error {
	if len(commands) == 0 {
		return fmt.Errorf("no commands to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_commands_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}
	for i, c := range commands {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal command %d: %w", i, err)
		}
		if i < len(commands)-1 {
			data = append(data, ',')
		}
		data = append(data, '\n')
		if _, err := file.Write(data); err != nil {
			return fmt.Errorf("failed to write command %d: %w", i, err)
		}
	}
	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "commands saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, commandsPerSecond float64

	if stats.CommandsSubmitted > 0 {
		acceptRate = float64(stats.CommandsAccepted) / float64(stats.CommandsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		commandsPerSecond = float64(stats.CommandsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("commandsGenerated", stats.CommandsGenerated),
		logger.Int("commandsSubmitted", stats.CommandsSubmitted),
		logger.Int("commandsAccepted", stats.CommandsAccepted),
		logger.Int("commandsDuplicate", stats.CommandsDuplicate),
		logger.Int("commandsRejected", stats.CommandsRejected),
		logger.Int("commandsFailed", stats.CommandsFailed),
		logger.Int("expectedApplied", stats.ExpectedApplied),
		logger.Int("expectedFailed", stats.ExpectedFailed),
		logger.Int("rankingsRetrieved", stats.RankingsRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("commandsPerSecond", commandsPerSecond))
}
