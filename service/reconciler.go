package service

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

// Reconciler runs the ledger half of best-effort operations (voter
// deactivate/reactivate) off the request path, retrying with exponential
// backoff. The local write has already committed by the time a task is
// enqueued; the task's job is to close the dual-state skew window, and its
// attempts are logged so the window stays observable.
type Reconciler struct {
	log      *zap.Logger
	maxRetry uint64
	interval time.Duration

	mu      sync.Mutex
	pending int
	wg      sync.WaitGroup
	closed  bool
}

func NewReconciler(log *zap.Logger) *Reconciler {
	return &Reconciler{
		log:      log,
		maxRetry: 5,
		interval: 2 * time.Second,
	}
}

// Pending reports how many tasks have not yet succeeded or given up.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Enqueue schedules op for execution with backoff. Returns false if the
// reconciler is already closed.
func (r *Reconciler) Enqueue(name string, op func(ctx context.Context) error) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.pending++
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.pending--
			r.mu.Unlock()
			r.wg.Done()
		}()

		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = r.interval
		attempt := 0
		err := backoff.Retry(func() error {
			attempt++
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := op(ctx); err != nil {
				r.log.Warn("reconciliation attempt failed",
					zap.String("task", name), zap.Int("attempt", attempt), zap.Error(err))
				return err
			}
			return nil
		}, backoff.WithMaxRetries(policy, r.maxRetry))

		if err != nil {
			r.log.Error("reconciliation gave up", zap.String("task", name), zap.Error(err))
			return
		}
		r.log.Info("reconciliation completed", zap.String("task", name), zap.Int("attempts", attempt))
	}()
	return true
}

// Close stops accepting tasks and waits for in-flight ones to finish.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}
