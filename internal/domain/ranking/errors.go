package ranking

import (
	"errors"
	"fmt"
)

// Sentinel kinds for ranking errors. Typed errors below unwrap to one of these.
var (
	ErrInvalidConfig      = errors.New("invalid ranking config")
	ErrPlayerIDNotNumeric = errors.New("playerId must be a number")
	ErrScoreOutOfBounds   = errors.New("score is bigger than the ranking limit")
	ErrNegativeScore      = errors.New("score must not be negative")
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrRankMismatch       = errors.New("rank mismatch")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrInvalidLimit       = errors.New("invalid range limit")
)

// ValidationError reports input rejected before any mutation took place.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// PositionOutOfRangeError is returned when a requested rank is not held by anyone.
type PositionOutOfRangeError struct {
	Position   int
	Population int
}

func (e *PositionOutOfRangeError) Error() string {
	return fmt.Sprintf("position %d out of range [1, %d]", e.Position, e.Population)
}

func (e *PositionOutOfRangeError) Unwrap() error { return ErrPositionOutOfRange }

// RankMismatchError is returned by FindOne when the player at Position is not Expected.
type RankMismatchError struct {
	Position int
	Expected PlayerID
	Found    PlayerID
}

func (e *RankMismatchError) Error() string {
	return fmt.Sprintf("position %d is held by player %d, not %d", e.Position, e.Found, e.Expected)
}

func (e *RankMismatchError) Unwrap() error { return ErrRankMismatch }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
