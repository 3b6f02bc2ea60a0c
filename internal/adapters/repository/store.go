// Package repository exposes the ranking set behind a context-aware,
// lock-serialized store.
package repository

import (
	"context"

	"github.com/okian/rankset/internal/domain/ranking"
)

// Entry represents a leaderboard row.
type Entry = ranking.Result

// Store provides read/write access to the ranking state. Player ids arrive as
// text and are validated by the store.
type Store interface {
	// SetScore moves a player to score and returns its new rank.
	SetScore(ctx context.Context, playerID string, score int) (int, error)

	// AddPoints adds points to a player's score. A zero result leaves the player
	// unranked and returns an Entry with Position 0.
	AddPoints(ctx context.Context, playerID string, points int) (Entry, error)

	// Remove drops a player. Returns false if the player was not tracked.
	Remove(ctx context.Context, playerID string) (bool, error)

	// FindOne resolves a row by position, by player, or by both (cross-checked).
	// Pass 0 / "" for the selector that is not used.
	FindOne(ctx context.Context, position int, playerID string) (Entry, error)

	// Page returns up to limit rows starting at rank from.
	Page(ctx context.Context, from, limit int) ([]Entry, error)

	// Count returns the number of tracked players.
	Count(ctx context.Context) int
}
