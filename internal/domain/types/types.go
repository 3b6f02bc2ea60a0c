// Package types contains common types used across the application
package types

// Entry represents a leaderboard row as served over the API.
type Entry struct {
	Position int   `json:"position"`
	Score    int   `json:"score"`
	PlayerID int64 `json:"player_id"`
}
