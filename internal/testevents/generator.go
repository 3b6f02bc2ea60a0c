package testevents

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/rankset/pkg/logger"
)

// generateCommands builds the command stream. The mix is reproducible for a
// given seed; request ids are always fresh so reruns never hit the dedupe cache.
func generateCommands(ctx context.Context, config *Config, maxScore int, stats *Stats) ([]Command, error) {
	if config.NumCommands < 1 {
		return nil, fmt.Errorf("number of commands must be positive, got %d", config.NumCommands)
	}
	if config.Players < 1 {
		return nil, fmt.Errorf("number of players must be positive, got %d", config.Players)
	}
	if maxScore < 1 {
		return nil, fmt.Errorf("max score must be positive, got %d", maxScore)
	}

	logger.Get().Info(ctx, "generating commands",
		logger.Int("count", config.NumCommands),
		logger.Int("players", config.Players),
		logger.Int("maxScore", maxScore))

	rng := rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // load shape, not secrets
	commands := make([]Command, config.NumCommands)
	for i := range commands {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("context cancelled during command generation: %w", err)
			}
		}
		commands[i] = generateSingleCommand(rng, config, maxScore)
	}

	stats.CommandsGenerated = len(commands)
	logger.Get().Info(ctx, "generated commands successfully", logger.Int("count", len(commands)))
	return commands, nil
}

// generateSingleCommand draws one command. A small share overshoots maxScore
// so the rejection path is exercised too.
func generateSingleCommand(rng *rand.Rand, config *Config, maxScore int) Command {
	player := config.PlayerBase + int64(rng.IntN(config.Players))
	c := Command{
		RequestID: uuid.New().String(),
		PlayerID:  strconv.FormatInt(player, 10),
		Resend:    rng.Float64() < config.DuplicateRate,
	}

	switch roll := rng.IntN(PercentageMultiplier); {
	case roll < setShare:
		c.Kind = KindSet
		c.Value = rng.IntN(maxScore + 1)
	case roll < setShare+addShare:
		spread := max(maxScore/addSpreadDivisor, 1)
		c.Kind = KindAdd
		c.Value = rng.IntN(2*spread+1) - spread
	case roll < setShare+addShare+removeShare:
		c.Kind = KindRemove
	default:
		c.Kind = KindSet
		c.Value = maxScore + 1 + rng.IntN(overshootSpread)
	}
	return c
}

// groupByPlayer returns command indices per player, in generation order.
// Submitting each group sequentially keeps every player's history ordered
// on the server even though groups run concurrently.
func groupByPlayer(commands []Command) [][]int {
	slots := make(map[string]int)
	var groups [][]int
	for i, c := range commands {
		slot, ok := slots[c.PlayerID]
		if !ok {
			slot = len(groups)
			slots[c.PlayerID] = slot
			groups = append(groups, nil)
		}
		groups[slot] = append(groups[slot], i)
	}
	return groups
}
