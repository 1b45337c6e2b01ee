// Package queue implements C10, the Task Queue: a durable single-consumer
// queue of job ids, backed by an embedded badger store kept deliberately
// separate from the Review Store's SQLite file (spec.md §4.10 — "a small
// local store separate from the Review Store"). Delivery is at-least-once;
// idempotency of re-running a job id is the orchestrator's responsibility,
// per spec.md's own resume design.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"mediaparser/internal/errs"
)

// entryStatus is the lifecycle of one queued job id.
type entryStatus string

const (
	statusPending    entryStatus = "pending"
	statusProcessing entryStatus = "processing"
	statusFailed     entryStatus = "failed"
)

type entry struct {
	JobID         int64       `json:"job_id"`
	Status        entryStatus `json:"status"`
	Attempts      int         `json:"attempts"`
	NextAttemptAt time.Time   `json:"next_attempt_at"`
	LastError     string      `json:"last_error,omitempty"`
}

func key(jobID int64) []byte {
	return []byte(fmt.Sprintf("job:%020d", jobID))
}

// Queue is a durable FIFO-ish store of pending job ids. Only one Consume
// loop is meant to run against a given Queue at a time, per spec.md
// "single-consumer queue".
type Queue struct {
	db         *badger.DB
	maxRetries int
	retryDelay time.Duration
}

// Options bundles Open's tunables. MaxRetries and RetryDelay default to
// spec.md §4.10's values (2 retries, 30s delay) when zero.
type Options struct {
	Path       string
	MaxRetries int
	RetryDelay time.Duration
}

// Open opens (or creates) the badger store at opts.Path. Badger's own
// value log and LSM files live entirely under that directory, independent
// of the Review Store's SQLite file, satisfying the "separate store"
// requirement directly rather than by convention.
func Open(opts Options) (*Queue, error) {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 30 * time.Second
	}

	badgerOpts := badger.DefaultOptions(opts.Path).WithLogger(nil)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("queue: open %s: %w", opts.Path, err)
	}
	return &Queue{db: db, maxRetries: maxRetries, retryDelay: retryDelay}, nil
}

// Close releases the badger store's file locks.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue durably records jobID as pending work. Calling it twice for the
// same job id is safe — the second write simply resets the entry to
// pending with zero attempts, which is what a manual re-run should do.
func (q *Queue) Enqueue(jobID int64) error {
	e := entry{JobID: jobID, Status: statusPending, NextAttemptAt: time.Now()}
	return q.put(e)
}

func (q *Queue) put(e entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(e.JobID), data)
	})
}

// Handler processes one dequeued job id. A returned error causes the entry
// to be retried (up to MaxRetries) after RetryDelay, then marked failed.
type Handler func(ctx context.Context, jobID int64) error

// Consume runs the single-consumer loop: it repeatedly scans for the
// earliest-ready pending entry, marks it processing, invokes handler, and
// reschedules or retires the entry based on the result. It returns when ctx
// is cancelled or no handler invocation is possible (idle), the caller is
// expected to call Consume again after a short sleep to keep polling, since
// badger has no native blocking-pop primitive.
func (q *Queue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		e, ok, err := q.claimNext()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		err = handler(ctx, e.JobID)
		if err == nil {
			if delErr := q.delete(e.JobID); delErr != nil {
				return delErr
			}
			continue
		}

		e.Attempts++
		e.LastError = err.Error()
		if e.Attempts > q.maxRetries {
			e.Status = statusFailed
		} else {
			e.Status = statusPending
			e.NextAttemptAt = time.Now().Add(q.retryDelay)
		}
		if putErr := q.put(e); putErr != nil {
			return putErr
		}
	}
}

// claimNext finds the oldest ready pending entry and marks it processing in
// a single transaction, so two concurrent consumers (which spec.md doesn't
// call for, but which this guards against cheaply) can't double-claim it.
func (q *Queue) claimNext() (entry, bool, error) {
	var claimed entry
	found := false

	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("job:")
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			var e entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			if e.Status != statusPending || e.NextAttemptAt.After(now) {
				continue
			}

			e.Status = statusProcessing
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := txn.Set(item.KeyCopy(nil), data); err != nil {
				return err
			}
			claimed = e
			found = true
			return nil
		}
		return nil
	})
	if err != nil {
		return entry{}, false, err
	}
	return claimed, found, nil
}

func (q *Queue) delete(jobID int64) error {
	return q.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(jobID))
	})
}

// Status reports an entry's current lifecycle state, for callers that want
// to show "queued" vs "retrying" vs "failed" without driving Consume.
func (q *Queue) Status(jobID int64) (attempts int, failed bool, err error) {
	err = q.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get(key(jobID))
		if getErr == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: job %d not queued", errs.ErrNotFound, jobID)
		}
		if getErr != nil {
			return getErr
		}
		return item.Value(func(val []byte) error {
			var e entry
			if err := json.Unmarshal(val, &e); err != nil {
				return err
			}
			attempts = e.Attempts
			failed = e.Status == statusFailed
			return nil
		})
	})
	return attempts, failed, err
}

// HealthCheck verifies the badger store is still reachable, per spec.md
// §4.10's "Exposes: Enqueue(job_id), consumer loop, HealthCheck() task."
func (q *Queue) HealthCheck() error {
	return q.db.View(func(txn *badger.Txn) error {
		return nil
	})
}
