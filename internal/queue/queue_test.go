package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mediaparser/internal/errs"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	dir := t.TempDir()
	q, err := Open(Options{Path: filepath.Join(dir, "queue.badger"), MaxRetries: 1, RetryDelay: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func TestEnqueueThenConsumeSucceeds(t *testing.T) {
	q := newTestQueue(t)
	if err := q.Enqueue(42); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var seen int64
	err := q.Consume(context.Background(), func(ctx context.Context, jobID int64) error {
		seen = jobID
		return nil
	})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if seen != 42 {
		t.Errorf("handler saw job %d, want 42", seen)
	}

	if _, _, err := q.Status(42); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Status after success = %v, want ErrNotFound (entry deleted)", err)
	}
}

func TestConsumeRetriesThenFails(t *testing.T) {
	q := newTestQueue(t)
	if err := q.Enqueue(7); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	calls := 0
	boom := errors.New("boom")
	_ = q.Consume(context.Background(), func(ctx context.Context, jobID int64) error {
		calls++
		return boom
	})

	attempts, failed, err := q.Status(7)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if failed {
		t.Error("entry marked failed after first attempt, want still retrying")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}

	time.Sleep(20 * time.Millisecond)
	_ = q.Consume(context.Background(), func(ctx context.Context, jobID int64) error {
		calls++
		return boom
	})

	attempts, failed, err = q.Status(7)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !failed {
		t.Error("entry should be failed after exceeding MaxRetries")
	}
	if calls != 2 {
		t.Errorf("handler invoked %d times, want 2", calls)
	}
}

func TestConsumeIdleReturnsNilWhenEmpty(t *testing.T) {
	q := newTestQueue(t)
	err := q.Consume(context.Background(), func(ctx context.Context, jobID int64) error {
		t.Fatal("handler should not be called on an empty queue")
		return nil
	})
	if err != nil {
		t.Fatalf("Consume on empty queue: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	q := newTestQueue(t)
	if err := q.HealthCheck(); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestEnqueueTwiceResetsAttempts(t *testing.T) {
	q := newTestQueue(t)
	boom := errors.New("boom")
	q.Enqueue(9)
	_ = q.Consume(context.Background(), func(ctx context.Context, jobID int64) error { return boom })

	if attempts, _, _ := q.Status(9); attempts != 1 {
		t.Fatalf("attempts = %d, want 1 before re-enqueue", attempts)
	}

	if err := q.Enqueue(9); err != nil {
		t.Fatalf("re-Enqueue: %v", err)
	}
	attempts, failed, err := q.Status(9)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if attempts != 0 || failed {
		t.Errorf("re-enqueue should reset to attempts=0, failed=false; got attempts=%d failed=%v", attempts, failed)
	}
}
