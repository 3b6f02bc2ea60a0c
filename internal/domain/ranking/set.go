// Package ranking implements a leaderboard over the bounded score domain
// [0, MaxScore].
//
// Players are ordered by score descending; players with equal scores keep
// arrival order, earliest first. Scores live in a static k-ary range tree
// whose nodes count the players inside their range, so both rank-by-player
// and player-by-rank cost O(depth · branchFactor) plus the scan of one leaf.
//
// A Set is not safe for concurrent use. Callers sharing one must serialize
// access themselves, since a read racing a write sees inconsistent counters.
package ranking

import (
	"fmt"
	"strconv"
)

// Config holds the construction parameters of a Set.
type Config struct {
	// MaxScore is the highest valid score. Scores 0..MaxScore are accepted.
	MaxScore int
	// BranchFactor caps the children per tree node. Must be at least 2.
	BranchFactor int
}

// Result is one leaderboard row.
type Result struct {
	Position int
	Score    int
	PlayerID PlayerID
}

// Set is the ranking set.
type Set struct {
	maxScore     int
	branchFactor int
	tree         treeState
	index        rankIndex
}

// New validates cfg and returns an empty Set. The tree itself is built on
// the first write.
func New(cfg Config) (*Set, error) {
	if cfg.MaxScore < 1 {
		return nil, fmt.Errorf("%w: max score must be positive, got %d", ErrInvalidConfig, cfg.MaxScore)
	}
	if cfg.BranchFactor < 2 {
		return nil, fmt.Errorf("%w: branch factor must be at least 2, got %d", ErrInvalidConfig, cfg.BranchFactor)
	}
	return &Set{
		maxScore:     cfg.MaxScore,
		branchFactor: cfg.BranchFactor,
		tree:         unbuiltTree{},
		index:        newRankIndex(),
	}, nil
}

// MaxScore returns the configured score ceiling.
func (s *Set) MaxScore() int { return s.maxScore }

// BranchFactor returns the configured fan-out.
func (s *Set) BranchFactor() int { return s.branchFactor }

// Count returns the number of tracked players.
func (s *Set) Count() int { return s.tree.population() }

// Score returns the current score of id.
func (s *Set) Score(id PlayerID) (int, bool) { return s.index.get(id) }

// SetScore moves id to score and returns its new rank. The player is
// appended behind everyone already holding score.
func (s *Set) SetScore(score int, id PlayerID) (int, error) {
	if err := s.validateScore(score); err != nil {
		return 0, err
	}
	t := s.ensureBuilt()
	if prior, ok := s.index.get(id); ok {
		t.remove(prior, id)
	}
	t.insert(score, id)
	s.index.set(id, score)

	pos, _ := t.rankOf(score, id)
	return pos, nil
}

// AddPlayerPoints adds points to the player's current score (0 when
// untracked). A resulting score of zero leaves the player out of the ranking
// and yields a Result with Position 0.
func (s *Set) AddPlayerPoints(id PlayerID, points int) (Result, error) {
	prior, _ := s.index.get(id)
	next := prior + points
	if err := s.validateScore(next); err != nil {
		return Result{}, err
	}
	if next == 0 {
		s.Remove(id)
		return Result{PlayerID: id}, nil
	}
	pos, err := s.SetScore(next, id)
	if err != nil {
		return Result{}, err
	}
	return Result{Position: pos, Score: next, PlayerID: id}, nil
}

// Remove drops id from the ranking. It reports whether id was tracked.
func (s *Set) Remove(id PlayerID) bool {
	score, ok := s.index.get(id)
	if !ok {
		return false
	}
	if t, built := s.tree.(*builtTree); built {
		t.remove(score, id)
	}
	s.index.delete(id)
	return true
}

// FindOne resolves a single row by rank, by player, or by both. With Both the
// player found at the rank must be the one supplied, otherwise a
// *RankMismatchError is returned.
func (s *Set) FindOne(q Lookup) (Result, error) {
	switch q := q.(type) {
	case ByRank:
		return s.byRank(q.Position)
	case ByPlayer:
		return s.byPlayer(q.PlayerID)
	case Both:
		r, err := s.byRank(q.Position)
		if err != nil {
			return Result{}, err
		}
		if r.PlayerID != q.PlayerID {
			return Result{}, &RankMismatchError{Position: q.Position, Expected: q.PlayerID, Found: r.PlayerID}
		}
		return r, nil
	default:
		return Result{}, fmt.Errorf("unsupported lookup %T", q)
	}
}

// Range returns up to limit rows starting at rank from.
func (s *Set) Range(from, limit int) ([]Result, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if from < 1 {
		return nil, &PositionOutOfRangeError{Position: from, Population: s.Count()}
	}
	t, ok := s.tree.(*builtTree)
	if !ok || from > t.population() {
		return []Result{}, nil
	}
	out := make([]Result, 0, min(limit, t.population()-from+1))
	t.visit(from, limit, func(position, score int, id PlayerID) {
		out = append(out, Result{Position: position, Score: score, PlayerID: id})
	})
	return out, nil
}

func (s *Set) byRank(position int) (Result, error) {
	t, ok := s.tree.(*builtTree)
	if !ok {
		return Result{}, &PositionOutOfRangeError{Position: position, Population: 0}
	}
	score, id, err := t.at(position)
	if err != nil {
		return Result{}, err
	}
	return Result{Position: position, Score: score, PlayerID: id}, nil
}

func (s *Set) byPlayer(id PlayerID) (Result, error) {
	score, ok := s.index.get(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %d", ErrPlayerNotFound, id)
	}
	t := s.tree.(*builtTree)
	pos, ok := t.rankOf(score, id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %d", ErrPlayerNotFound, id)
	}
	return Result{Position: pos, Score: score, PlayerID: id}, nil
}

func (s *Set) validateScore(score int) error {
	switch {
	case score > s.maxScore:
		return &ValidationError{Field: "score", Value: strconv.Itoa(score), Err: ErrScoreOutOfBounds}
	case score < 0:
		return &ValidationError{Field: "score", Value: strconv.Itoa(score), Err: ErrNegativeScore}
	}
	return nil
}

func (s *Set) ensureBuilt() *builtTree {
	if t, ok := s.tree.(*builtTree); ok {
		return t
	}
	t := buildTree(s.maxScore, s.branchFactor)
	s.tree = t
	return t
}
