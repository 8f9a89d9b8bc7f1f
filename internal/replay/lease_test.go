package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errLeaseLost = errors.New("lease lost")

// setnxLocker mimics a SETNX lease: one holder per key, others poll.
type setnxLocker struct {
	mu       sync.Mutex
	held     map[string]context.CancelCauseFunc
	acquired int
}

func newSetnxLocker() *setnxLocker {
	return &setnxLocker{held: make(map[string]context.CancelCauseFunc)}
}

func (l *setnxLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (context.Context, func(), error) {
	for {
		l.mu.Lock()
		if _, busy := l.held[key]; !busy {
			lease, cancel := context.WithCancelCause(ctx)
			l.held[key] = cancel
			l.acquired++
			l.mu.Unlock()

			var once sync.Once
			return lease, func() {
				once.Do(func() {
					cancel(nil)
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("lock held: %s: %w", key, ctx.Err())
		case <-time.After(time.Millisecond):
		}
	}
}

// hold marks key as owned by another process and returns its release func.
func (l *setnxLocker) hold(key string) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = func(error) {}
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}
}

func (l *setnxLocker) revoke(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cancel, ok := l.held[key]; ok {
		cancel(errLeaseLost)
	}
}

func TestRunnersSharingPoolSerialize(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeJournal(t, cfg.Journal, lifecycleOps())
	locker := newSetnxLocker()

	stores := []*memoryStorage{{}, {}}
	summaries := make([]Summary, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			summaries[i], errs[i] = NewRunner(cfg, stores[i], locker, nil).Run(context.Background())
		}(i)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, 2, locker.acquired)

	// Whichever process ran second resumed from the first one's checkpoint.
	require.Equal(t, 7, summaries[0].Submitted+summaries[1].Submitted)
	require.Equal(t, 7, summaries[0].Skipped+summaries[1].Skipped)
	require.Equal(t, 7, len(stores[0].results)+len(stores[1].results))
	for i := range stores {
		require.Len(t, stores[i].snapshots, 1)
		require.Equal(t, uint64(3_992_120), stores[i].snapshots[0].SecondaryBalance)
		require.Equal(t, uint64(7), stores[i].snapshots[0].LastSeq)
	}
}

func TestRunnerWaitsForHeldLease(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeJournal(t, cfg.Journal, lifecycleOps())
	locker := newSetnxLocker()
	release := locker.hold("pool:main")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	store := &memoryStorage{}
	_, err := NewRunner(cfg, store, locker, nil).Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, store.resultCalls)

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()
	summary, err := NewRunner(cfg, store, locker, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, summary.Applied)
}

func TestRunnerStopsWhenLeaseLost(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeJournal(t, cfg.Journal, lifecycleOps())
	locker := newSetnxLocker()

	store := &memoryStorage{}
	store.onResults = func() { locker.revoke("pool:main") }
	summary, err := NewRunner(cfg, store, locker, nil).Run(context.Background())
	require.ErrorIs(t, err, errLeaseLost)
	require.Equal(t, 3, summary.Submitted)
	require.Equal(t, 1, store.resultCalls)
	require.Empty(t, store.snapshots)
}
