package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/ledger"
	"github.com/boddenberg/salon-pos-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var reportTracer = otel.Tracer("service/reports")

// maxRangeDays bounds a range report.
const maxRangeDays = 366

// ReportService builds aggregates from the stored sales. Every report is
// recomputed from a fresh read.
type ReportService struct {
	store  port.TransactionStore
	engine *ledger.Engine
	now    func() time.Time
}

// NewReportService creates the service.
func NewReportService(store port.TransactionStore, engine *ledger.Engine) *ReportService {
	return &ReportService{store: store, engine: engine, now: time.Now}
}

// Daily aggregates one day, today when date is empty.
func (s *ReportService) Daily(ctx context.Context, date string) (*domain.AggregateResult, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Daily")
	defer span.End()

	key := s.engine.Calendar().Today(s.now())
	if strings.TrimSpace(date) != "" {
		valid, ok := s.engine.Calendar().ValidDateKey(date)
		if !ok {
			return nil, &domain.ErrValidation{Field: "date", Message: "unrecognized date"}
		}
		key = valid
	}
	span.SetAttributes(attribute.String("date", key))

	records, err := s.store.ListTransactions(ctx, domain.TransactionFilter{DateKey: key})
	if err != nil {
		return nil, err
	}
	return s.engine.Aggregate(records, key), nil
}

// Sales aggregates one day, or every stored sale when date is empty.
func (s *ReportService) Sales(ctx context.Context, date string) (*domain.AggregateResult, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Sales")
	defer span.End()

	key := ""
	if strings.TrimSpace(date) != "" {
		valid, ok := s.engine.Calendar().ValidDateKey(date)
		if !ok {
			return nil, &domain.ErrValidation{Field: "date", Message: "unrecognized date"}
		}
		key = valid
	}
	span.SetAttributes(attribute.String("date", key))

	records, err := s.store.ListTransactions(ctx, domain.TransactionFilter{DateKey: key})
	if err != nil {
		return nil, err
	}
	return s.engine.Aggregate(records, key), nil
}

// Range aggregates the inclusive day range [from, to].
func (s *ReportService) Range(ctx context.Context, from, to string) (*domain.AggregateResult, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Range")
	defer span.End()

	cal := s.engine.Calendar()
	fromTime, ok := cal.KeyTime(cal.NormalizeDateKey(from))
	if !ok {
		return nil, &domain.ErrValidation{Field: "from", Message: "unrecognized date"}
	}
	toTime, ok := cal.KeyTime(cal.NormalizeDateKey(to))
	if !ok {
		return nil, &domain.ErrValidation{Field: "to", Message: "unrecognized date"}
	}
	if toTime.Before(fromTime) {
		return nil, &domain.ErrValidation{Field: "to", Message: "must not be before from"}
	}
	if toTime.Sub(fromTime) > maxRangeDays*24*time.Hour {
		return nil, &domain.ErrValidation{Field: "to", Message: "range must not exceed one year"}
	}
	span.SetAttributes(attribute.String("from", from), attribute.String("to", to))

	records, err := s.store.ListTransactions(ctx, domain.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	return s.engine.AggregateRange(records, fromTime, toTime), nil
}
