package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/infra/observability"
	"github.com/boddenberg/salon-pos-go/internal/infra/resilience"
	"github.com/boddenberg/salon-pos-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var syncTracer = otel.Tracer("service/sync")

const drainKey = "drain"

// SyncQueue holds sales that could not reach the backend and replays them
// when it is reachable again.
type SyncQueue struct {
	queue          port.QueueStore
	store          port.TransactionStore
	notifier       *Notifier
	monitor        *resilience.ConnectivityMonitor
	metrics        *observability.Metrics
	logger         *zap.Logger
	maxConcurrency int

	group singleflight.Group
	now   func() time.Time
}

// NewSyncQueue creates the queue. maxConcurrency bounds the replay fan-out.
func NewSyncQueue(
	queue port.QueueStore,
	store port.TransactionStore,
	notifier *Notifier,
	monitor *resilience.ConnectivityMonitor,
	metrics *observability.Metrics,
	logger *zap.Logger,
	maxConcurrency int,
) *SyncQueue {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &SyncQueue{
		queue:          queue,
		store:          store,
		notifier:       notifier,
		monitor:        monitor,
		metrics:        metrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		now:            time.Now,
	}
}

// Enqueue persists rec for a later drain and returns at once.
func (q *SyncQueue) Enqueue(ctx context.Context, rec domain.TransactionRecord) (*domain.OfflineQueueEntry, error) {
	ctx, span := syncTracer.Start(ctx, "SyncQueue.Enqueue")
	defer span.End()

	entry := &domain.OfflineQueueEntry{
		EntryID:  uuid.New().String(),
		Record:   rec,
		QueuedAt: q.now().UTC(),
	}
	span.SetAttributes(attribute.String("entry.id", entry.EntryID))

	if err := q.queue.Append(ctx, entry); err != nil {
		return nil, err
	}
	q.refreshDepth(ctx)

	q.logger.Info("sale queued offline",
		zap.String("entry_id", entry.EntryID),
		zap.String("transaction_id", rec.ID),
	)
	return entry, nil
}

// Drain replays every queued entry. A drain requested while one is running
// joins it; every caller of a shared drain sees Coalesced set.
func (q *SyncQueue) Drain(ctx context.Context) (*domain.DrainResult, error) {
	ch := q.group.DoChan(drainKey, func() (any, error) {
		// Detached so one caller's cancellation does not abort the drain
		// the others joined.
		return q.drain(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := *res.Val.(*domain.DrainResult)
		out.Coalesced = res.Shared
		return &out, nil
	}
}

func (q *SyncQueue) drain(ctx context.Context) (*domain.DrainResult, error) {
	ctx, span := syncTracer.Start(ctx, "SyncQueue.Drain")
	defer span.End()

	entries, err := q.queue.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list queued entries: %w", err)
	}
	q.metrics.IncrDrain()
	if len(entries) == 0 {
		return &domain.DrainResult{}, nil
	}

	var (
		mu     sync.Mutex
		synced []string
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.maxConcurrency)
	for _, entry := range entries {
		g.Go(func() error {
			rec := entry.Record
			err := q.store.CreateTransaction(gctx, &rec)
			if err != nil && !domain.IsAlreadyPersisted(err) {
				if domain.IsTransient(err) {
					q.monitor.MarkOffline()
				}
				q.logger.Warn("sync: entry failed",
					zap.String("entry_id", entry.EntryID),
					zap.String("transaction_id", rec.ID),
					zap.Error(err),
				)
				if ferr := q.queue.RecordFailure(gctx, entry.EntryID, err.Error()); ferr != nil {
					q.logger.Error("sync: failed to record failure",
						zap.String("entry_id", entry.EntryID),
						zap.Error(ferr),
					)
				}
				mu.Lock()
				failed++
				mu.Unlock()
				// Swallowed so the other entries keep going.
				return nil
			}

			mu.Lock()
			synced = append(synced, entry.EntryID)
			mu.Unlock()
			if err == nil {
				q.notifier.Publish(rec)
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(synced) > 0 {
		if err := q.queue.Remove(ctx, synced); err != nil {
			return nil, fmt.Errorf("remove synced entries: %w", err)
		}
		q.monitor.MarkOnline()
	}

	q.metrics.AddSyncEntries("synced", len(synced))
	q.metrics.AddSyncEntries("failed", failed)
	remaining := q.refreshDepth(ctx)

	res := &domain.DrainResult{
		Attempted: len(entries),
		Succeeded: len(synced),
		Remaining: remaining,
	}
	span.SetAttributes(
		attribute.Int("attempted", res.Attempted),
		attribute.Int("succeeded", res.Succeeded),
		attribute.Int("remaining", res.Remaining),
	)
	q.logger.Info("sync: drain finished",
		zap.Int("attempted", res.Attempted),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("remaining", res.Remaining),
	)
	return res, nil
}

// Status reports the queue contents and cumulative drain counters.
func (q *SyncQueue) Status(ctx context.Context) (*domain.SyncStatus, error) {
	ctx, span := syncTracer.Start(ctx, "SyncQueue.Status")
	defer span.End()

	entries, err := q.queue.List(ctx)
	if err != nil {
		return nil, err
	}
	drains, syncedTotal, failedTotal := q.metrics.SyncSnapshot()
	return &domain.SyncStatus{
		Pending:       len(entries),
		Entries:       entries,
		Drains:        drains,
		SyncedTotal:   syncedTotal,
		FailedTotal:   failedTotal,
		BackendOnline: q.monitor.Online(),
	}, nil
}

// TriggerDrain starts a drain in the background, used by connectivity
// edges and start-up.
func (q *SyncQueue) TriggerDrain(reason string) {
	go func() {
		res, err := q.Drain(context.Background())
		if err != nil {
			q.logger.Error("sync: triggered drain failed", zap.String("reason", reason), zap.Error(err))
			return
		}
		q.logger.Debug("sync: triggered drain done",
			zap.String("reason", reason),
			zap.Bool("coalesced", res.Coalesced),
		)
	}()
}

func (q *SyncQueue) refreshDepth(ctx context.Context) int {
	entries, err := q.queue.List(ctx)
	if err != nil {
		q.logger.Warn("sync: failed to read queue depth", zap.Error(err))
		return 0
	}
	q.metrics.SetQueueDepth(len(entries))
	return len(entries)
}
