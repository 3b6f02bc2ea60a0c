package testevents

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/okian/rankset/pkg/logger"
)

// fetchStats reads GET /stats.
func fetchStats(ctx context.Context, client *HTTPClient, baseURL string) (ServerStats, error) {
	var s ServerStats
	if err := client.getJSON(ctx, baseURL+"/stats", &s); err != nil {
		return ServerStats{}, fmt.Errorf("stats: %w", err)
	}
	return s, nil
}

// waitForDrain polls /stats until the writer has settled want more commands
// than the baseline counted.
func waitForDrain(ctx context.Context, config *Config, baseline ServerStats, want int) (ServerStats, error) {
	logger.Get().Info(ctx, "waiting for commands to be applied", logger.Int("pending", want))

	client := newHTTPClient(config.Timeout)
	ctx, cancel := context.WithTimeout(ctx, config.SettleTimeout)
	defer cancel()

	ticker := time.NewTicker(config.PollInterval)
	defer ticker.Stop()
	for {
		s, err := fetchStats(ctx, client, config.BaseURL)
		if err != nil {
			return ServerStats{}, err
		}
		settled := (s.CommandsApplied - baseline.CommandsApplied) + (s.CommandsFailed - baseline.CommandsFailed)
		if settled >= int64(want) {
			return s, nil
		}
		if config.Verbose {
			logger.Get().Info(ctx, "drain progress",
				logger.Int64("settled", settled),
				logger.Int("queueSize", s.QueueSize))
		}
		select {
		case <-ctx.Done():
			return ServerStats{}, fmt.Errorf("writer did not settle %d commands (%d so far): %w", want, settled, ctx.Err())
		case <-ticker.C:
		}
	}
}

// getLeaderboard pages through the whole leaderboard.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	logger.Get().Info(ctx, "reading full leaderboard", logger.Int("pageSize", config.PageSize))

	client := newHTTPClient(config.Timeout)
	var leaderboard []Entry
	for offset := 0; ; offset += config.PageSize {
		var page []Entry
		url := fmt.Sprintf("%s/leaderboard?limit=%d&offset=%d", config.BaseURL, config.PageSize, offset)
		if err := client.getJSON(ctx, url, &page); err != nil {
			return nil, fmt.Errorf("leaderboard page at offset %d: %w", offset, err)
		}
		leaderboard = append(leaderboard, page...)
		if len(page) < config.PageSize {
			break
		}
	}

	stats.LeaderboardEntries = len(leaderboard)
	logger.Get().Info(ctx, "retrieved leaderboard entries", logger.Int("count", len(leaderboard)))
	return leaderboard, nil
}

// retrieveRankings looks up each id through GET /rank/{id} concurrently.
func retrieveRankings(ctx context.Context, config *Config, ids []int64, stats *Stats) (map[int64]Entry, error) {
	logger.Get().Info(ctx, "retrieving rankings",
		logger.Int("players", len(ids)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	p := pool.NewWithResults[Entry]().WithMaxGoroutines(config.Workers).WithContext(ctx)
	for _, id := range ids {
		p.Go(func(ctx context.Context) (Entry, error) {
			return retrieveSingleRanking(ctx, client, config.BaseURL, id)
		})
	}
	entries, err := p.Wait()
	if err != nil {
		return nil, err
	}

	rankings := make(map[int64]Entry, len(entries))
	for _, e := range entries {
		rankings[e.PlayerID] = e
	}
	stats.RankingsRetrieved = len(rankings)
	logger.Get().Info(ctx, "ranking retrieval completed", logger.Int("retrieved", len(rankings)))
	return rankings, nil
}

// retrieveSingleRanking retrieves the row of a single player.
func retrieveSingleRanking(ctx context.Context, client *HTTPClient, baseURL string, id int64) (Entry, error) {
	var e Entry
	if err := client.getJSON(ctx, baseURL+"/rank/"+strconv.FormatInt(id, 10), &e); err != nil {
		return Entry{}, fmt.Errorf("rank of player %d: %w", id, err)
	}
	return e, nil
}
