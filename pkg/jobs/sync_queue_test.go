package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncQueueProcessesJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan struct{})

	q := NewSyncQueue(func(_ context.Context, job SyncJob) error {
		mu.Lock()
		seen = append(seen, job.BookingID)
		if len(seen) == 2 {
			close(done)
		}
		mu.Unlock()
		return nil
	}, SyncQueueConfig{Workers: 2})

	q.Start(context.Background())
	defer q.Stop()

	q.Enqueue(SyncJob{BookingID: "b-1", HostID: "h-1"})
	q.Enqueue(SyncJob{BookingID: "b-2", HostID: "h-1"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs were not processed in time")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"b-1", "b-2"}, seen)
}

func TestSyncQueueRetriesThenAbandons(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
	)
	finished := make(chan struct{})

	q := NewSyncQueue(func(_ context.Context, job SyncJob) error {
		mu.Lock()
		attempts++
		if attempts == 2 {
			close(finished)
		}
		mu.Unlock()
		return errors.New("provider down")
	}, SyncQueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	q.Enqueue(SyncJob{BookingID: "b-1", HostID: "h-1"})

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not happen in time")
	}

	// Give any unexpected extra retry a moment to show up.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, attempts)
}
