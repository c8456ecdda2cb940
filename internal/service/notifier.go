package service

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/infra/observability"
	"github.com/boddenberg/salon-pos-go/internal/port"

	"go.uber.org/zap"
)

const (
	notifyBuffer  = 64
	notifyTimeout = 10 * time.Second
)

// Notifier hands completed sales to a sink on a background worker, so a
// slow or failing sink never delays or fails the sale itself.
type Notifier struct {
	sink    port.NotificationSink
	metrics *observability.Metrics
	logger  *zap.Logger

	events chan domain.TransactionRecord
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// NewNotifier creates a notifier. A nil sink makes Publish a no-op.
func NewNotifier(sink port.NotificationSink, metrics *observability.Metrics, logger *zap.Logger) *Notifier {
	return &Notifier{
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		events:  make(chan domain.TransactionRecord, notifyBuffer),
		done:    make(chan struct{}),
	}
}

// Start launches the worker.
func (n *Notifier) Start() {
	go func() {
		defer close(n.done)
		for rec := range n.events {
			n.deliver(rec)
		}
	}()
}

// Stop drains pending events and waits for the worker, or for ctx.
func (n *Notifier) Stop(ctx context.Context) {
	n.once.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.events)
		n.mu.Unlock()
	})
	select {
	case <-n.done:
	case <-ctx.Done():
	}
}

// Publish queues rec for delivery. When the buffer is full the event is
// dropped and counted.
func (n *Notifier) Publish(rec domain.TransactionRecord) {
	if n == nil || n.sink == nil {
		return
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.events <- rec:
	default:
		n.metrics.IncrNotification("dropped")
		n.logger.Warn("notification buffer full, dropping event",
			zap.String("transaction_id", rec.ID),
		)
	}
}

func (n *Notifier) deliver(rec domain.TransactionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := n.sink.TransactionCompleted(ctx, rec); err != nil {
		n.metrics.IncrNotification("failed")
		n.logger.Warn("notification failed",
			zap.String("transaction_id", rec.ID),
			zap.Error(err),
		)
		return
	}
	n.metrics.IncrNotification("sent")
}
