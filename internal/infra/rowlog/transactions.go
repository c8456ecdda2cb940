package rowlog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/ledger"
	"github.com/boddenberg/salon-pos-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("rowlog")

// TransactionStore keeps sales in a row log. Every mutation runs under one
// lock and re-reads the log first, so positions are resolved against the
// freshest snapshot available.
type TransactionStore struct {
	log     port.RowLog
	cal     *ledger.Calendar
	backend string
	logger  *zap.Logger

	mu sync.Mutex
}

// NewTransactionStore wraps log. backend names the log in errors.
func NewTransactionStore(log port.RowLog, cal *ledger.Calendar, backend string, logger *zap.Logger) *TransactionStore {
	return &TransactionStore{log: log, cal: cal, backend: backend, logger: logger}
}

// ListTransactions returns the data rows as records, skipping the header
// and blank rows.
func (s *TransactionStore) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "RowLog.ListTransactions")
	defer span.End()

	rows, err := s.log.ReadRows(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))

	layout := ledger.LayoutFor(rows)
	records := make([]domain.TransactionRecord, 0, len(rows))
	for _, row := range rows[ledger.DataStartIndex(rows):] {
		if isBlank(row) {
			continue
		}
		rec := ledger.RecordFromRow(row, layout)
		if filter.DateKey != "" && s.cal.NormalizeDateKey(rec.Date) != filter.DateKey {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// CreateTransaction appends rec. An empty log gets the header row first.
func (s *TransactionStore) CreateTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	ctx, span := tracer.Start(ctx, "RowLog.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", rec.ID))

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.log.ReadRows(ctx)
	if err != nil {
		return err
	}
	if _, found := findByID(rows, rec.ID); found {
		return &domain.ErrDuplicate{Key: rec.ID}
	}

	if len(rows) == 0 {
		if err := s.log.AppendRow(ctx, ledger.HeaderRow); err != nil {
			return err
		}
		rows = [][]string{ledger.HeaderRow}
	}

	return s.log.AppendRow(ctx, ledger.RowFromRecord(*rec, ledger.LayoutFor(rows)))
}

// UpdateTransaction applies patch to the row carrying id.
func (s *TransactionStore) UpdateTransaction(ctx context.Context, id string, patch *domain.TransactionPatch, updatedAt string) (*domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "RowLog.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.log.ReadRows(ctx)
	if err != nil {
		return nil, err
	}
	rowNumber, found := findByID(rows, id)
	if !found {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}

	layout := ledger.LayoutFor(rows)
	current := rows[rowNumber-1]
	rec := ledger.RecordFromRow(current, layout)
	patch.Apply(&rec)
	rec.UpdatedAt = updatedAt

	if err := s.log.UpdateRow(ctx, rowNumber, mergeRow(current, rec, layout)); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteTransaction removes the addressed row and returns what it held.
func (s *TransactionStore) DeleteTransaction(ctx context.Context, sel domain.DeleteSelector) (*domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "RowLog.DeleteTransaction")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.log.ReadRows(ctx)
	if err != nil {
		return nil, err
	}

	var rowNumber int
	switch {
	case sel.ID != "":
		n, found := findByID(rows, sel.ID)
		if !found {
			return nil, &domain.ErrNotFound{Resource: "transaction", ID: sel.ID}
		}
		rowNumber = n
	case sel.Index != nil:
		n, ok := ledger.RowNumber(rows, *sel.Index)
		if !ok {
			return nil, &domain.ErrInvalidIndex{Index: *sel.Index}
		}
		rowNumber = n
	default:
		return nil, &domain.ErrValidation{Field: "id", Message: "an id or an index is required"}
	}

	rec := ledger.RecordFromRow(rows[rowNumber-1], ledger.LayoutFor(rows))
	if sel.ExpectID != "" && rec.ID != sel.ExpectID {
		return nil, &domain.ErrConflict{
			Message: fmt.Sprintf("row %d holds %q, expected %q", rowNumber, rec.ID, sel.ExpectID),
		}
	}

	if err := s.log.DeleteRow(ctx, rowNumber); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("row", rowNumber), attribute.String("transaction.id", rec.ID))
	return &rec, nil
}

// BackfillMissingIDs gives every data row without an ID a fresh one.
func (s *TransactionStore) BackfillMissingIDs(ctx context.Context) (*domain.BackfillResult, error) {
	ctx, span := tracer.Start(ctx, "RowLog.BackfillMissingIDs")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.log.ReadRows(ctx)
	if err != nil {
		return nil, err
	}

	col := ledger.IDColumn(rows)
	write := func(ctx context.Context, rowNumber int, id string) error {
		row := cloneRow(rows[rowNumber-1])
		for len(row) <= col {
			row = append(row, "")
		}
		row[col] = id
		if err := s.log.UpdateRow(ctx, rowNumber, row); err != nil {
			s.logger.Warn("backfill: failed to write id",
				zap.String("backend", s.backend),
				zap.Int("row", rowNumber),
				zap.Error(err),
			)
			return err
		}
		return nil
	}

	res, err := ledger.BackfillMissingIDs(ctx, rows, write, ledger.NewID)
	span.SetAttributes(attribute.Int("updated", res.Updated), attribute.Int("failed", len(res.Failed)))
	if err != nil {
		return &res, err
	}
	return &res, nil
}

// EnsureHeaders writes the header row when the log has none.
func (s *TransactionStore) EnsureHeaders(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "RowLog.EnsureHeaders")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.log.ReadRows(ctx)
	if err != nil {
		return err
	}
	switch {
	case len(rows) == 0:
		return s.log.AppendRow(ctx, ledger.HeaderRow)
	case ledger.DataStartIndex(rows) == 0:
		s.logger.Info("inserting missing header row", zap.String("backend", s.backend))
		return s.log.InsertRow(ctx, 1, ledger.HeaderRow)
	}
	return nil
}

func findByID(rows [][]string, id string) (int, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, false
	}
	col := ledger.IDColumn(rows)
	if col < 0 {
		return 0, false
	}
	for i := ledger.DataStartIndex(rows); i < len(rows); i++ {
		if len(rows[i]) > col && strings.TrimSpace(rows[i][col]) == id {
			return i + 1, true
		}
	}
	return 0, false
}

// mergeRow writes rec's known columns over current, keeping the cells of
// columns the layout does not recognize.
func mergeRow(current []string, rec domain.TransactionRecord, layout ledger.Layout) []string {
	row := make([]string, max(len(current), len(layout)))
	copy(row, current)
	rendered := ledger.RowFromRecord(rec, layout)
	for i, f := range layout {
		if f != "" {
			row[i] = rendered[i]
		}
	}
	return row
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
