// Package notify holds sinks for completed-sale notifications.
package notify

import (
	"context"

	"github.com/boddenberg/salon-pos-go/internal/domain"

	"go.uber.org/zap"
)

// LogSink records completed sales in the structured log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("notify")}
}

// TransactionCompleted logs rec.
func (s *LogSink) TransactionCompleted(_ context.Context, rec domain.TransactionRecord) error {
	s.logger.Info("transaction completed",
		zap.String("transaction_id", rec.ID),
		zap.String("date", rec.Date),
		zap.String("worker", rec.Worker),
		zap.String("service", rec.Service),
		zap.String("amount", rec.Amount.String()),
		zap.String("tip", rec.Tip.String()),
		zap.String("payment_method", rec.PaymentMethod),
	)
	return nil
}
