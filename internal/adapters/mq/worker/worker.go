// Package worker applies queued score commands to the ranking store. A single
// writer drains the queue so commands land in arrival order.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rankset/internal/domain/model"
	"github.com/okian/rankset/internal/domain/ranking"
	"github.com/okian/rankset/pkg/logger"
	"github.com/okian/rankset/pkg/metrics"
)

// Applier mutates the ranking state.
type Applier interface {
	SetScore(ctx context.Context, playerID string, score int) (int, error)
	AddPoints(ctx context.Context, playerID string, points int) (ranking.Result, error)
	Remove(ctx context.Context, playerID string) (bool, error)
}

// Queue defines how the worker receives commands.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Command
}

// Worker consumes commands until its queue is drained or it is stopped.
type Worker interface {
	// Run starts the worker loop. It returns once ctx is canceled, the queue
	// channel is closed, or Shutdown gives up waiting.
	Run(ctx context.Context)

	// Shutdown waits for Run to drain the queue. When ctx expires first the
	// loop is aborted and pending commands are dropped.
	Shutdown(ctx context.Context) error
}

// AppliedFunc observes the outcome of one command.
type AppliedFunc func(c model.Command, err error)

// Writer is the single-writer Worker implementation.
type Writer struct {
	queue   Queue
	applier Applier
	name    string
	onApply AppliedFunc

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

var _ Worker = (*Writer)(nil)

// NewWriter creates a writer reading from queue and applying to applier.
func NewWriter(queue Queue, applier Applier, opts ...Option) *Writer {
	w := &Writer{
		queue:    queue,
		applier:  applier,
		name:     "writer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "writer" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run implements Worker.Run.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	commands := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case c, ok := <-commands:
			if !ok {
				return
			}
			err := w.apply(ctx, c)
			if err != nil {
				w.logger.Warn(ctx, "command rejected",
					logger.String("request_id", c.RequestID),
					logger.String("kind", string(c.Kind)),
					logger.String("player_id", c.PlayerID),
					logger.Error(err))
			}
			if w.onApply != nil {
				w.onApply(c, err)
			}
		}
	}
}

// Shutdown implements Worker.Shutdown.
func (w *Writer) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		close(w.shutdown)
		<-w.done
		w.logger.Warn(ctx, "shutdown timed out, pending commands dropped")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *Writer) Done() <-chan struct{} { return w.done }

func (w *Writer) apply(ctx context.Context, c model.Command) error { //nolint:gocritic // hugeParam: received by value from the channel
	start := time.Now()
	defer func() {
		metrics.RecordCommandLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	var err error
	switch c.Kind {
	case model.KindSet:
		_, err = w.applier.SetScore(ctx, c.PlayerID, c.Value)
	case model.KindAdd:
		_, err = w.applier.AddPoints(ctx, c.PlayerID, c.Value)
	case model.KindRemove:
		_, err = w.applier.Remove(ctx, c.PlayerID)
	default:
		err = fmt.Errorf("%w: %q", model.ErrUnknownKind, c.Kind)
	}

	if err != nil {
		metrics.RecordCommandFailed(string(c.Kind))
		return err
	}
	metrics.RecordCommandApplied(string(c.Kind))
	return nil
}
