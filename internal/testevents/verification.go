package testevents

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/rankset/internal/domain/ranking"
	"github.com/okian/rankset/pkg/logger"
)

// maxReportedMismatches caps the mismatches folded into one error.
const maxReportedMismatches = 10

// replay applies the accepted commands to a local set in submission order.
// Only per-player order is guaranteed on the server, which is all a player's
// final score depends on.
func replay(commands []Command, accepted []bool, cfg ranking.Config, stats *Stats) (*ranking.Set, error) {
	model, err := ranking.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("local model: %w", err)
	}
	for i, c := range commands {
		if !accepted[i] {
			continue
		}
		if applyToModel(model, c) != nil {
			stats.ExpectedFailed++
			continue
		}
		stats.ExpectedApplied++
	}
	return model, nil
}

func applyToModel(model *ranking.Set, c Command) error {
	id, err := ranking.ParsePlayerID(c.PlayerID)
	if err != nil {
		return err
	}
	switch c.Kind {
	case KindSet:
		_, err = model.SetScore(c.Value, id)
	case KindAdd:
		_, err = model.AddPlayerPoints(id, c.Value)
	case KindRemove:
		model.Remove(id)
	default:
		err = fmt.Errorf("unknown kind %q", c.Kind)
	}
	return err
}

// verifyResults checks the server's state against the local model.
func verifyResults(ctx context.Context, config *Config, model *ranking.Set, leaderboard []Entry,
	rankings map[int64]Entry, settled ServerStats, baseline ServerStats, stats *Stats,
) error {
	logger.Get().Info(ctx, "verifying results")

	var errs []error
	if err := verifyLeaderboardOrder(leaderboard); err != nil {
		errs = append(errs, err)
	}
	board := make(map[int64]Entry, len(leaderboard))
	for _, e := range leaderboard {
		board[e.PlayerID] = e
	}
	if err := verifyPlayers(config, model, board); err != nil {
		errs = append(errs, err)
	}
	if err := verifyRankings(rankings, board); err != nil {
		errs = append(errs, err)
	}
	if err := verifyCounters(settled, baseline, stats); err != nil {
		errs = append(errs, err)
	}

	displayTopPerformers(ctx, leaderboard, config.TopN)

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Get().Info(ctx, "result verification completed")
	return nil
}

// verifyLeaderboardOrder checks positions run 1..n, scores never increase
// and no player appears twice.
func verifyLeaderboardOrder(leaderboard []Entry) error {
	seen := make(map[int64]struct{}, len(leaderboard))
	for i, e := range leaderboard {
		if e.Position != i+1 {
			return fmt.Errorf("leaderboard row %d has position %d", i, e.Position)
		}
		if i > 0 && e.Score > leaderboard[i-1].Score {
			return fmt.Errorf("leaderboard not sorted: position %d (%d) above position %d (%d)",
				e.Position, e.Score, leaderboard[i-1].Position, leaderboard[i-1].Score)
		}
		if _, dup := seen[e.PlayerID]; dup {
			return fmt.Errorf("player %d listed twice", e.PlayerID)
		}
		seen[e.PlayerID] = struct{}{}
	}
	return nil
}

// verifyPlayers compares every generated player's score with the model.
func verifyPlayers(config *Config, model *ranking.Set, board map[int64]Entry) error {
	var mismatches []error
	report := func(err error) {
		if len(mismatches) < maxReportedMismatches {
			mismatches = append(mismatches, err)
		}
	}
	tracked := 0
	for id := config.PlayerBase; id < config.PlayerBase+int64(config.Players); id++ {
		want, ok := model.Score(ranking.PlayerID(id))
		got, present := board[id]
		switch {
		case ok && !present:
			report(fmt.Errorf("player %d missing, want score %d", id, want))
		case !ok && present:
			report(fmt.Errorf("player %d ranked with score %d, want untracked", id, got.Score))
		case ok && got.Score != want:
			report(fmt.Errorf("player %d has score %d, want %d", id, got.Score, want))
		}
		if present {
			tracked++
		}
	}
	if tracked != model.Count() {
		report(fmt.Errorf("%d generated players ranked, model tracks %d", tracked, model.Count()))
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("player scores diverge: %w", errors.Join(mismatches...))
	}
	return nil
}

// verifyRankings checks single-player lookups agree with the leaderboard.
func verifyRankings(rankings map[int64]Entry, board map[int64]Entry) error {
	for id, e := range rankings {
		if row, ok := board[id]; !ok || row != e {
			return fmt.Errorf("rank lookup for player %d returned %+v, leaderboard has %+v", id, e, row)
		}
	}
	return nil
}

// verifyCounters checks the writer's verdicts match the model's.
func verifyCounters(settled, baseline ServerStats, stats *Stats) error {
	applied := settled.CommandsApplied - baseline.CommandsApplied
	failed := settled.CommandsFailed - baseline.CommandsFailed
	if applied != int64(stats.ExpectedApplied) || failed != int64(stats.ExpectedFailed) {
		return fmt.Errorf("writer applied %d and failed %d commands, want %d and %d",
			applied, failed, stats.ExpectedApplied, stats.ExpectedFailed)
	}
	return nil
}

// displayTopPerformers logs the head of the leaderboard.
func displayTopPerformers(ctx context.Context, leaderboard []Entry, topN int) {
	topN = min(topN, len(leaderboard))
	for _, e := range leaderboard[:topN] {
		logger.Get().Info(ctx, "leaderboard",
			logger.Int("position", e.Position),
			logger.Int64("player", e.PlayerID),
			logger.Int("score", e.Score))
	}
}
