package service_test

import (
	"context"
	"errors"
	"sync"

	"github.com/boddenberg/salon-pos-go/internal/domain"
)

var errBackendDown = &domain.ErrExternalService{Service: "test", Err: errors.New("connection refused")}

// fakeStore is an in-memory TransactionStore with failure and blocking hooks.
type fakeStore struct {
	mu      sync.Mutex
	records []domain.TransactionRecord
	calls   int

	// createErr, when set, decides the outcome of each create.
	createErr func(rec *domain.TransactionRecord) error
	// gate, when set, holds every create until it is closed.
	gate chan struct{}
	// started receives one value per create that reached the store.
	started chan struct{}
}

func (f *fakeStore) ListTransactions(_ context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.TransactionRecord{}
	for _, r := range f.records {
		if filter.DateKey == "" || r.Date == filter.DateKey {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createErr != nil {
		if err := f.createErr(rec); err != nil {
			return err
		}
	}
	for _, r := range f.records {
		if r.ID == rec.ID {
			return &domain.ErrDuplicate{Key: rec.ID}
		}
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeStore) UpdateTransaction(_ context.Context, id string, patch *domain.TransactionPatch, updatedAt string) (*domain.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].ID == id {
			patch.Apply(&f.records[i])
			f.records[i].UpdatedAt = updatedAt
			rec := f.records[i]
			return &rec, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
}

func (f *fakeStore) DeleteTransaction(_ context.Context, sel domain.DeleteSelector) (*domain.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.records {
		if r.ID == sel.ID {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return &r, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "transaction", ID: sel.ID}
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeQueue is an in-memory QueueStore.
type fakeQueue struct {
	mu      sync.Mutex
	entries []domain.OfflineQueueEntry
}

func (q *fakeQueue) Append(_ context.Context, e *domain.OfflineQueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, *e)
	return nil
}

func (q *fakeQueue) List(_ context.Context) ([]domain.OfflineQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.OfflineQueueEntry, len(q.entries))
	copy(out, q.entries)
	return out, nil
}

func (q *fakeQueue) RecordFailure(_ context.Context, entryID, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].EntryID == entryID {
			q.entries[i].Attempts++
			q.entries[i].LastError = reason
		}
	}
	return nil
}

func (q *fakeQueue) Remove(_ context.Context, ids []string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := q.entries[:0]
	for _, e := range q.entries {
		if !drop[e.EntryID] {
			kept = append(kept, e)
		}
	}
	q.entries = kept
	return nil
}

func (q *fakeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// recordingSink collects notified sales.
type recordingSink struct {
	got chan domain.TransactionRecord
}

func newRecordingSink() *recordingSink {
	return &recordingSink{got: make(chan domain.TransactionRecord, 16)}
}

func (s *recordingSink) TransactionCompleted(_ context.Context, rec domain.TransactionRecord) error {
	s.got <- rec
	return nil
}
