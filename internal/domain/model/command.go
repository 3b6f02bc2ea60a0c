// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"strings"
	"time"
)

// ErrUnknownKind is returned by ParseKind for an unsupported command kind.
var ErrUnknownKind = errors.New("unknown command kind")

// Kind names the mutation a Command performs.
type Kind string

// Supported command kinds.
const (
	KindSet    Kind = "set"    // SetScore(Value)
	KindAdd    Kind = "add"    // AddPlayerPoints(Value)
	KindRemove Kind = "remove" // Remove; Value is ignored
)

// ParseKind normalizes s into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSet, KindAdd, KindRemove:
		return k, nil
	default:
		return "", ErrUnknownKind
	}
}

// Command is a score mutation submitted for asynchronous application.
type Command struct {
	RequestID string    // unique id for idempotency
	Kind      Kind      // what to do
	PlayerID  string    // raw player id; parsed by the store
	Value     int       // score for set, points for add
	Received  time.Time // when the API accepted it
}
