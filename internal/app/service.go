// Package service wires the ranking store, the async command pipeline and the
// idempotency cache into the dependency bundle the HTTP API needs.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rankset/internal/adapters/mq/queue"
	"github.com/okian/rankset/internal/adapters/mq/worker"
	"github.com/okian/rankset/internal/adapters/repository"
	"github.com/okian/rankset/internal/domain/dedupe"
	"github.com/okian/rankset/internal/domain/model"
	"github.com/okian/rankset/internal/domain/ranking"
	"github.com/okian/rankset/internal/domain/types"
	"github.com/okian/rankset/pkg/logger"
	"github.com/okian/rankset/pkg/metrics"
)

// Service implements the API dependencies for the ranking system.
type Service struct {
	mu sync.RWMutex

	store   *repository.LockedStore
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	writer  *worker.Writer
	cancel  context.CancelFunc

	maxScore     int
	branchFactor int
	queueSize    int
	dedupeSize   int

	started   bool
	startedAt time.Time
	applied   atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// New constructs a Service with default configuration. Nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		maxScore:     100_000,
		branchFactor: 16,
		queueSize:    100_000,
		dedupeSize:   50_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the store and launches the single writer.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ranking service...")

	store, err := repository.NewLockedStore(ctx,
		ranking.Config{MaxScore: s.maxScore, BranchFactor: s.branchFactor},
		repository.WithLogger(s.logger.Named("store")))
	if err != nil {
		return err
	}
	s.store = store
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.writer = worker.NewWriter(s.queue, s.store,
		worker.WithLogger(s.logger.Named("writer")),
		worker.WithOnApplied(s.observeCommand))

	// The writer outlives the caller's context so Stop can drain the queue.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.writer.Run(runCtx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "ranking service started",
		logger.Int("maxScore", s.maxScore),
		logger.Int("branchFactor", s.branchFactor),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop refuses new commands, drains the queue until ctx expires and releases
// the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping ranking service...", logger.Int("pending", s.queue.Len(ctx)))

	_ = s.queue.Close()
	err := s.writer.Shutdown(ctx)
	s.cancel()
	_ = s.store.Close()

	s.started = false
	s.logger.Info(ctx, "ranking service stopped",
		logger.Int64("applied", s.applied.Load()),
		logger.Int64("failed", s.failed.Load()))
	return err
}

func (s *Service) observeCommand(_ model.Command, err error) { //nolint:gocritic // hugeParam: callback signature
	if err != nil {
		s.failed.Add(1)
		return
	}
	s.applied.Add(1)
}

// running returns the store if the service is started.
func (s *Service) running() (*repository.LockedStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// SeenAndRecord atomically checks if a request id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	metrics.UpdateDedupeSize(int(s.deduper.Size()))
	return seen
}

// Unrecord removes a request id from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
	metrics.UpdateDedupeSize(int(s.deduper.Size()))
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits a command for asynchronous application.
func (s *Service) Enqueue(ctx context.Context, c model.Command) error { //nolint:gocritic // hugeParam: forwarded by value
	if _, err := s.running(); err != nil {
		return err
	}
	s.logger.Debug(ctx, "enqueueing command",
		logger.String("request_id", c.RequestID),
		logger.String("kind", string(c.Kind)),
		logger.String("player_id", c.PlayerID),
		logger.Int("value", c.Value))
	return s.queue.Enqueue(ctx, c)
}

// SetScore sets a player's score synchronously.
func (s *Service) SetScore(ctx context.Context, playerID string, score int) (types.Entry, error) {
	store, err := s.running()
	if err != nil {
		return types.Entry{}, err
	}
	pos, err := store.SetScore(ctx, playerID, score)
	if err != nil {
		return types.Entry{}, err
	}
	// The store accepted the id, so it parses.
	id, _ := ranking.ParsePlayerID(playerID)
	return types.Entry{Position: pos, Score: score, PlayerID: int64(id)}, nil
}

// AddPoints adds points to a player's score synchronously.
func (s *Service) AddPoints(ctx context.Context, playerID string, points int) (types.Entry, error) {
	store, err := s.running()
	if err != nil {
		return types.Entry{}, err
	}
	r, err := store.AddPoints(ctx, playerID, points)
	if err != nil {
		return types.Entry{}, err
	}
	return toEntry(r), nil
}

// Remove drops a player.
func (s *Service) Remove(ctx context.Context, playerID string) (bool, error) {
	store, err := s.running()
	if err != nil {
		return false, err
	}
	return store.Remove(ctx, playerID)
}

// FindOne resolves a row by position, player or both.
func (s *Service) FindOne(ctx context.Context, position int, playerID string) (types.Entry, error) {
	store, err := s.running()
	if err != nil {
		return types.Entry{}, err
	}
	r, err := store.FindOne(ctx, position, playerID)
	if err != nil {
		return types.Entry{}, err
	}
	return toEntry(r), nil
}

// Page returns up to limit rows starting at rank from.
func (s *Service) Page(ctx context.Context, from, limit int) ([]types.Entry, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	rows, err := store.Page(ctx, from, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.Entry, len(rows))
	for i, r := range rows {
		out[i] = toEntry(r)
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":          s.started,
		"max_score":        s.maxScore,
		"branch_factor":    s.branchFactor,
		"queue_capacity":   s.queueSize,
		"dedupe_capacity":  s.dedupeSize,
		"commands_applied": s.applied.Load(),
		"commands_failed":  s.failed.Load(),
	}

	if s.started {
		players := s.store.Count(ctx)
		queueLen := s.queue.Len(ctx)

		stats["players"] = players
		stats["queue_size"] = queueLen
		stats["dedupe_size"] = s.deduper.Size()
		stats["uptime_seconds"] = int64(time.Since(s.startedAt).Seconds())

		metrics.UpdatePlayersTracked(players)
	}
	return stats
}

func toEntry(r ranking.Result) types.Entry {
	return types.Entry{Position: r.Position, Score: r.Score, PlayerID: int64(r.PlayerID)}
}
