// Package ledger records query outcomes in the background. Writes never block
// or fail the request that produced them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cat-backend/internal/storage"
)

// ErrClosed is returned by Close when the ledger was already closed.
var ErrClosed = errors.New("ledger closed")

// Error describes a ledger write that was given up on.
type Error struct {
	Op       string
	QueryID  uuid.UUID
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger %s for query %s failed after %d attempts: %v", e.Op, e.QueryID, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options configures a Ledger.
type Options struct {
	// Workers is the number of goroutines writing to the store.
	Workers int
	// QueueSize bounds pending writes; further writes are dropped.
	QueueSize int
	// MaxAttempts bounds tries per write.
	MaxAttempts int
	// RetryDelay is the pause between tries.
	RetryDelay time.Duration
	// WriteTimeout bounds a single try.
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// Query is the registration record created when a request arrives.
type Query struct {
	ID         uuid.UUID
	Text       string
	ReceivedAt time.Time
}

type job struct {
	op    string
	patch storage.DetailPatch
}

// Ledger queues query records and writes them with a pool of workers.
type Ledger struct {
	store  storage.QueryStore
	opts   Options
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// New starts a Ledger writing to store.
func New(store storage.QueryStore, opts Options) *Ledger {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	l := &Ledger{
		store:  store,
		opts:   opts,
		logger: logger.With("component", "ledger"),
		jobs:   make(chan job, opts.QueueSize),
	}

	l.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go l.worker()
	}
	return l
}

// Register records a new query with status new.
func (l *Ledger) Register(q Query) {
	text := q.Text
	received := q.ReceivedAt
	l.enqueue(job{
		op: "register",
		patch: storage.DetailPatch{
			QueryID:   q.ID,
			Status:    storage.StatusNew,
			StatusAt:  received,
			QueryText: &text,
			Timestamp: &received,
		},
	})
}

// UpdateDetail records a partial update of a query's outcome.
func (l *Ledger) UpdateDetail(patch storage.DetailPatch) {
	if patch.Status != "" && patch.StatusAt.IsZero() {
		patch.StatusAt = time.Now()
	}
	l.enqueue(job{op: "update_detail", patch: patch})
}

func (l *Ledger) enqueue(j job) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		l.logger.Warn("ledger closed, dropping write", "op", j.op, "query_id", j.patch.QueryID)
		return
	}

	select {
	case l.jobs <- j:
	default:
		l.logger.Warn("ledger queue full, dropping write", "op", j.op, "query_id", j.patch.QueryID, "queue_size", l.opts.QueueSize)
	}
}

func (l *Ledger) worker() {
	defer l.wg.Done()
	for j := range l.jobs {
		if err := l.write(j); err != nil {
			l.logger.Error("ledger write dropped", "op", j.op, "query_id", j.patch.QueryID, "error", err)
		}
	}
}

func (l *Ledger) write(j job) error {
	var err error
	for attempt := 1; attempt <= l.opts.MaxAttempts; attempt++ {
		err = l.apply(j.patch)
		if err == nil {
			return nil
		}
		l.logger.Debug("ledger write failed", "op", j.op, "query_id", j.patch.QueryID, "attempt", attempt, "error", err)
		if attempt < l.opts.MaxAttempts && l.opts.RetryDelay > 0 {
			time.Sleep(l.opts.RetryDelay)
		}
	}
	return &Error{Op: j.op, QueryID: j.patch.QueryID, Attempts: l.opts.MaxAttempts, Err: err}
}

func (l *Ledger) apply(patch storage.DetailPatch) error {
	ctx := context.Background()
	if l.opts.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.WriteTimeout)
		defer cancel()
	}
	return l.store.ApplyPatch(ctx, patch)
}

// Close stops accepting writes and waits for queued ones to finish or for ctx to end.
func (l *Ledger) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.closed = true
	close(l.jobs)
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ledger drain interrupted: %w", ctx.Err())
	}
}
