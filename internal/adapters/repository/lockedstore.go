package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/okian/rankset/internal/domain/ranking"
	"github.com/okian/rankset/pkg/logger"
	"github.com/okian/rankset/pkg/metrics"
)

// LockedStore serializes access to a single ranking.Set. Writers take the
// exclusive lock, lookups share it.
type LockedStore struct {
	mu  sync.RWMutex
	set *ranking.Set

	metricsUpdateInterval time.Duration
	logger                logger.Logger

	wg       conc.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*LockedStore)(nil)

// NewLockedStore builds the ranking set from cfg and starts the background
// metrics updater. Call Close to stop it.
func NewLockedStore(ctx context.Context, cfg ranking.Config, opts ...Option) (*LockedStore, error) {
	set, err := ranking.New(cfg)
	if err != nil {
		return nil, err
	}
	s := &LockedStore{
		set:                   set,
		metricsUpdateInterval: 5 * time.Second,
		logger:                logger.Get().Named("store"),
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	metrics.UpdatePlayersTracked(0)
	s.startMetricsUpdater(ctx)

	s.logger.Info(ctx, "ranking store ready",
		logger.Int("max_score", cfg.MaxScore),
		logger.Int("branch_factor", cfg.BranchFactor))
	return s, nil
}

// Close stops the background metrics updater.
func (s *LockedStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// MaxScore returns the configured score ceiling.
func (s *LockedStore) MaxScore() int { return s.set.MaxScore() }

// SetScore implements Store.SetScore.
func (s *LockedStore) SetScore(ctx context.Context, playerID string, score int) (int, error) {
	defer observeLatency("set", time.Now())

	id, err := ranking.ParsePlayerID(playerID)
	if err != nil {
		return 0, s.reject(ctx, "set", err)
	}

	s.mu.Lock()
	pos, err := s.set.SetScore(score, id)
	s.mu.Unlock()
	if err != nil {
		return 0, s.reject(ctx, "set", err)
	}

	metrics.RecordScoreWrite("set")
	return pos, nil
}

// AddPoints implements Store.AddPoints.
func (s *LockedStore) AddPoints(ctx context.Context, playerID string, points int) (Entry, error) {
	defer observeLatency("add", time.Now())

	id, err := ranking.ParsePlayerID(playerID)
	if err != nil {
		return Entry{}, s.reject(ctx, "add", err)
	}

	s.mu.Lock()
	res, err := s.set.AddPlayerPoints(id, points)
	s.mu.Unlock()
	if err != nil {
		return Entry{}, s.reject(ctx, "add", err)
	}

	metrics.RecordScoreWrite("add")
	return res, nil
}

// Remove implements Store.Remove.
func (s *LockedStore) Remove(ctx context.Context, playerID string) (bool, error) {
	defer observeLatency("remove", time.Now())

	id, err := ranking.ParsePlayerID(playerID)
	if err != nil {
		return false, s.reject(ctx, "remove", err)
	}

	s.mu.Lock()
	removed := s.set.Remove(id)
	s.mu.Unlock()

	if removed {
		metrics.RecordScoreWrite("remove")
	}
	return removed, nil
}

// FindOne implements Store.FindOne.
func (s *LockedStore) FindOne(ctx context.Context, position int, playerID string) (Entry, error) {
	defer observeLatency("find", time.Now())

	var (
		lookup ranking.Lookup
		mode   string
	)
	switch {
	case position != 0 && playerID != "":
		id, err := ranking.ParsePlayerID(playerID)
		if err != nil {
			return Entry{}, s.reject(ctx, "find", err)
		}
		lookup, mode = ranking.Both{Position: position, PlayerID: id}, "both"
	case position != 0:
		lookup, mode = ranking.ByRank{Position: position}, "rank"
	case playerID != "":
		id, err := ranking.ParsePlayerID(playerID)
		if err != nil {
			return Entry{}, s.reject(ctx, "find", err)
		}
		lookup, mode = ranking.ByPlayer{PlayerID: id}, "player"
	default:
		return Entry{}, ErrEmptyQuery
	}
	metrics.RecordLookup(mode)

	s.mu.RLock()
	res, err := s.set.FindOne(lookup)
	s.mu.RUnlock()
	if err != nil {
		return Entry{}, s.reject(ctx, "find", err)
	}
	return res, nil
}

// Page implements Store.Page.
func (s *LockedStore) Page(ctx context.Context, from, limit int) ([]Entry, error) {
	defer observeLatency("page", time.Now())
	metrics.RecordLookup("range")

	s.mu.RLock()
	rows, err := s.set.Range(from, limit)
	s.mu.RUnlock()
	if err != nil {
		return nil, s.reject(ctx, "page", err)
	}
	return rows, nil
}

// Count implements Store.Count.
func (s *LockedStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Count()
}

// reject records err against the matching metric and returns it unchanged.
func (s *LockedStore) reject(ctx context.Context, op string, err error) error {
	var ve *ranking.ValidationError
	switch {
	case errors.As(err, &ve):
		metrics.RecordValidationError(ve.Field)
		s.logger.Debug(ctx, "rejected input",
			logger.String("op", op),
			logger.String("field", ve.Field),
			logger.String("value", ve.Value))
	case errors.Is(err, ranking.ErrPositionOutOfRange):
		metrics.RecordLookupError("out_of_range")
	case errors.Is(err, ranking.ErrRankMismatch):
		metrics.RecordLookupError("mismatch")
	case errors.Is(err, ranking.ErrPlayerNotFound):
		metrics.RecordLookupError("not_found")
	case errors.Is(err, ranking.ErrInvalidLimit):
		metrics.RecordLookupError("invalid_limit")
	default:
		s.logger.Error(ctx, "store operation failed", logger.String("op", op), logger.Error(err))
	}
	return err
}

func observeLatency(op string, start time.Time) {
	metrics.RecordOperationLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func (s *LockedStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Go(func() {
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdatePlayersTracked(s.Count(ctx))
			}
		}
	})
}
