package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/infra/observability"
	"github.com/boddenberg/salon-pos-go/internal/infra/resilience"
	"github.com/boddenberg/salon-pos-go/internal/ledger"
	"github.com/boddenberg/salon-pos-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/transactions")

// TransactionService records, edits and removes sales.
type TransactionService struct {
	store    port.TransactionStore
	queue    *SyncQueue
	notifier *Notifier
	monitor  *resilience.ConnectivityMonitor
	cal      *ledger.Calendar
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
	backend  string

	// further stores whose header rows EnsureHeaders sets up
	headerStores []any
}

// NewTransactionService creates the service. backend names the configured
// store in ErrUnsupported answers.
func NewTransactionService(
	store port.TransactionStore,
	queue *SyncQueue,
	notifier *Notifier,
	monitor *resilience.ConnectivityMonitor,
	cal *ledger.Calendar,
	metrics *observability.Metrics,
	logger *zap.Logger,
	backend string,
) *TransactionService {
	return &TransactionService{
		store:    store,
		queue:    queue,
		notifier: notifier,
		monitor:  monitor,
		cal:      cal,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		backend:  backend,
	}
}

// RecordSale validates and stores a new sale. When the backend cannot be
// reached the sale is queued instead and Queued is set on the result. A
// client-supplied ID that is already stored is rejected as a duplicate.
func (s *TransactionService) RecordSale(ctx context.Context, req *domain.SaleRequest) (*domain.SaleResult, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.RecordSale")
	defer span.End()

	minted := strings.TrimSpace(req.Record.ID) == ""
	rec, err := s.prepare(req)
	if err != nil {
		s.metrics.IncrTransaction("rejected")
		return nil, err
	}
	span.SetAttributes(attribute.String("transaction.id", rec.ID))

	start := time.Now()
	err = s.store.CreateTransaction(ctx, &rec)
	s.metrics.RecordRequestDuration("store.create", time.Since(start))

	// Nobody else holds an id minted a moment ago, so a duplicate means an
	// earlier attempt of this same call was stored before its answer was lost.
	if err != nil && minted && domain.IsAlreadyPersisted(err) {
		s.logger.Info("sale already stored by an earlier attempt",
			zap.String("transaction_id", rec.ID),
		)
		err = nil
	}

	if err != nil {
		if !domain.IsTransient(err) {
			s.metrics.IncrTransaction("failed")
			return nil, err
		}

		s.monitor.MarkOffline()
		s.metrics.IncrExternalError(s.backend)
		s.logger.Warn("backend unreachable, queueing sale",
			zap.String("transaction_id", rec.ID),
			zap.Error(err),
		)

		entry, qerr := s.queue.Enqueue(ctx, rec)
		if qerr != nil {
			s.metrics.IncrTransaction("failed")
			return nil, fmt.Errorf("queue sale offline: %w", qerr)
		}
		s.metrics.IncrTransaction("queued")
		return &domain.SaleResult{
			Record:  rec,
			Queued:  true,
			EntryID: entry.EntryID,
			Message: "Saved offline. It will sync when the connection is back.",
		}, nil
	}

	s.monitor.MarkOnline()
	s.metrics.IncrTransaction("persisted")
	s.notifier.Publish(rec)

	s.logger.Info("sale recorded",
		zap.String("transaction_id", rec.ID),
		zap.String("worker", rec.Worker),
		zap.String("amount", rec.Amount.String()),
	)
	return &domain.SaleResult{Record: rec, Message: "Transaction saved."}, nil
}

// prepare folds bundle lines into the record and fills server-side fields.
func (s *TransactionService) prepare(req *domain.SaleRequest) (domain.TransactionRecord, error) {
	rec := req.Record

	if len(req.Lines) > 0 {
		names := make([]string, 0, len(req.Lines))
		var categories []string
		seen := make(map[string]bool)
		total := decimal.Zero
		for i, line := range req.Lines {
			if err := validateStruct(line); err != nil {
				return rec, &domain.ErrValidation{Field: fmt.Sprintf("services[%d].name", i), Message: "is required"}
			}
			if line.Cost.IsNegative() {
				return rec, &domain.ErrValidation{Field: fmt.Sprintf("services[%d].cost", i), Message: "must not be negative"}
			}
			names = append(names, strings.TrimSpace(line.Name))
			total = total.Add(line.Cost)
			if c := strings.TrimSpace(line.Category); c != "" && !seen[c] {
				seen[c] = true
				categories = append(categories, c)
			}
		}
		rec.Service = strings.Join(names, ", ")
		if len(categories) > 0 {
			rec.Category = strings.Join(categories, ", ")
		}
		if rec.Amount.IsZero() {
			rec.Amount = total
		}
	}

	if err := validateStruct(rec); err != nil {
		return rec, err
	}
	if rec.Amount.IsNegative() {
		return rec, &domain.ErrValidation{Field: "amount", Message: "must not be negative"}
	}
	if rec.Tip.IsNegative() {
		return rec, &domain.ErrValidation{Field: "tip", Message: "must not be negative"}
	}

	now := s.now()
	if strings.TrimSpace(rec.Date) == "" {
		rec.Date = s.cal.Today(now)
	} else {
		key, ok := s.cal.ValidDateKey(rec.Date)
		if !ok {
			return rec, &domain.ErrValidation{Field: "date", Message: "unrecognized date"}
		}
		rec.Date = key
	}
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = ledger.NewID()
	}

	stamp := now.UTC().Format(time.RFC3339)
	if rec.Timestamp == "" {
		rec.Timestamp = stamp
	}
	rec.CreatedAt = stamp
	rec.UpdatedAt = stamp
	return rec, nil
}

// List returns the sales of dateKey, or all sales when it is empty.
func (s *TransactionService) List(ctx context.Context, date string) ([]domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.List")
	defer span.End()

	filter := domain.TransactionFilter{}
	if strings.TrimSpace(date) != "" {
		key, ok := s.cal.ValidDateKey(date)
		if !ok {
			return nil, &domain.ErrValidation{Field: "date", Message: "unrecognized date"}
		}
		filter.DateKey = key
	}
	span.SetAttributes(attribute.String("date", filter.DateKey))
	return s.store.ListTransactions(ctx, filter)
}

// Update edits the sale with id.
func (s *TransactionService) Update(ctx context.Context, id string, patch *domain.TransactionPatch) (*domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	if strings.TrimSpace(id) == "" {
		return nil, &domain.ErrValidation{Field: "id", Message: "is required"}
	}
	if patch.Amount != nil && patch.Amount.IsNegative() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must not be negative"}
	}
	if patch.Tip != nil && patch.Tip.IsNegative() {
		return nil, &domain.ErrValidation{Field: "tip", Message: "must not be negative"}
	}
	if patch.Date != nil {
		key, ok := s.cal.ValidDateKey(*patch.Date)
		if !ok {
			return nil, &domain.ErrValidation{Field: "date", Message: "unrecognized date"}
		}
		patch.Date = &key
	}

	rec, err := s.store.UpdateTransaction(ctx, id, patch, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	s.logger.Info("sale updated", zap.String("transaction_id", id))
	return rec, nil
}

// Delete removes the sale addressed by sel.
func (s *TransactionService) Delete(ctx context.Context, sel domain.DeleteSelector) (*domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Delete")
	defer span.End()

	if sel.Index != nil && *sel.Index < 0 {
		return nil, &domain.ErrInvalidIndex{Index: *sel.Index}
	}
	rec, err := s.store.DeleteTransaction(ctx, sel)
	if err != nil {
		return nil, err
	}
	s.logger.Info("sale deleted", zap.String("transaction_id", rec.ID))
	return rec, nil
}

// BackfillIDs assigns ids to stored rows lacking one.
func (s *TransactionService) BackfillIDs(ctx context.Context) (*domain.BackfillResult, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.BackfillIDs")
	defer span.End()

	repairer, ok := s.store.(port.IDRepairer)
	if !ok {
		return nil, &domain.ErrUnsupported{Operation: "id backfill", Backend: s.backend}
	}
	res, err := repairer.BackfillMissingIDs(ctx)
	if res != nil {
		s.metrics.AddBackfilledIDs(res.Updated)
		s.logger.Info("id backfill finished",
			zap.Int("scanned", res.Scanned),
			zap.Int("updated", res.Updated),
			zap.Ints("failed_rows", res.Failed),
		)
	}
	return res, err
}

// WithHeaderStores registers further stores, such as the catalog, for
// EnsureHeaders. Stores that keep no header row are skipped.
func (s *TransactionService) WithHeaderStores(stores ...any) *TransactionService {
	s.headerStores = append(s.headerStores, stores...)
	return s
}

// EnsureHeaders writes missing header rows in every store that keeps one.
func (s *TransactionService) EnsureHeaders(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "TransactionService.EnsureHeaders")
	defer span.End()

	fixers := make([]port.HeaderFixer, 0, 1+len(s.headerStores))
	for _, candidate := range append([]any{s.store}, s.headerStores...) {
		if f, ok := candidate.(port.HeaderFixer); ok {
			fixers = append(fixers, f)
		}
	}
	if len(fixers) == 0 {
		return &domain.ErrUnsupported{Operation: "header setup", Backend: s.backend}
	}
	for _, f := range fixers {
		if err := f.EnsureHeaders(ctx); err != nil {
			return err
		}
	}
	return nil
}
