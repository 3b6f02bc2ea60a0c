package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrEmptyQuery = errors.New("position or player id required")
	ErrClosed     = errors.New("store closed")
)
