package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/ledger"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const transactionsTable = "transactions"

// TransactionStore keeps sales in the transactions table.
type TransactionStore struct {
	client *Client
	cal    *ledger.Calendar
}

// NewTransactionStore creates a store over c.
func NewTransactionStore(c *Client, cal *ledger.Calendar) *TransactionStore {
	return &TransactionStore{client: c, cal: cal}
}

// ListTransactions returns the sales of filter.DateKey, or all of them.
// Dates written by older clients in ISO form match too.
func (s *TransactionStore) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()

	path := transactionsTable + "?select=*&order=created_at.asc,id.asc"
	if filter.DateKey != "" {
		span.SetAttributes(attribute.String("date", filter.DateKey))
		path += "&date=" + url.QueryEscape(dateFilter(s.cal, filter.DateKey))
	}

	var records []domain.TransactionRecord
	err := s.client.exec(ctx, "transactions.list", transactionsTable, func() error {
		body, err := s.client.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		rows, err := decodeRows(body)
		if err != nil {
			return err
		}
		records = make([]domain.TransactionRecord, 0, len(rows))
		for _, row := range rows {
			rec, malformed := ledger.RecordFromMap(row)
			if len(malformed) > 0 {
				s.client.logger.Warn("supabase: unreadable money in stored sale",
					zap.String("id", rec.ID),
					zap.Strings("fields", malformed),
				)
			}
			if filter.DateKey != "" && s.cal.NormalizeDateKey(rec.Date) != filter.DateKey {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(records)))
	return records, nil
}

// CreateTransaction inserts rec. A primary key clash yields ErrDuplicate.
func (s *TransactionStore) CreateTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", rec.ID))

	return s.client.exec(ctx, "transactions.create", rec.ID, func() error {
		_, err := s.client.doPost(ctx, transactionsTable, ledger.MapFromRecord(*rec))
		return err
	})
}

// UpdateTransaction applies patch to the row with id and returns the result.
func (s *TransactionStore) UpdateTransaction(ctx context.Context, id string, patch *domain.TransactionPatch, updatedAt string) (*domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	current, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(current)
	current.UpdatedAt = updatedAt

	data := ledger.MapFromRecord(*current)
	delete(data, "id")
	delete(data, "created_at")

	var updated *domain.TransactionRecord
	err = s.client.exec(ctx, "transactions.update", id, func() error {
		body, err := s.client.doPatch(ctx, transactionsTable+"?id=eq."+url.QueryEscape(id), data)
		if err != nil {
			return err
		}
		rec, err := firstRecord(body)
		if err != nil {
			return err
		}
		if rec == nil {
			return notFound(id)
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTransaction removes the addressed sale. Positions follow the
// listing order: creation time, then ID.
func (s *TransactionStore) DeleteTransaction(ctx context.Context, sel domain.DeleteSelector) (*domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTransaction")
	defer span.End()

	id := sel.ID
	switch {
	case id != "":
	case sel.Index != nil:
		all, err := s.ListTransactions(ctx, domain.TransactionFilter{})
		if err != nil {
			return nil, err
		}
		if *sel.Index < 0 || *sel.Index >= len(all) {
			return nil, &domain.ErrInvalidIndex{Index: *sel.Index}
		}
		id = all[*sel.Index].ID
		if sel.ExpectID != "" && id != sel.ExpectID {
			return nil, &domain.ErrConflict{
				Message: fmt.Sprintf("position %d holds %q, expected %q", *sel.Index, id, sel.ExpectID),
			}
		}
	default:
		return nil, &domain.ErrValidation{Field: "id", Message: "an id or an index is required"}
	}
	span.SetAttributes(attribute.String("transaction.id", id))

	var deleted *domain.TransactionRecord
	err := s.client.exec(ctx, "transactions.delete", id, func() error {
		body, err := s.client.doDelete(ctx, transactionsTable+"?id=eq."+url.QueryEscape(id))
		if err != nil {
			return err
		}
		rec, err := firstRecord(body)
		if err != nil {
			return err
		}
		if rec == nil {
			return notFound(id)
		}
		deleted = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (s *TransactionStore) get(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	var rec *domain.TransactionRecord
	err := s.client.exec(ctx, "transactions.get", id, func() error {
		body, err := s.client.doRequest(ctx, http.MethodGet, transactionsTable+"?id=eq."+url.QueryEscape(id)+"&limit=1")
		if err != nil {
			return err
		}
		r, err := firstRecord(body)
		if err != nil {
			return err
		}
		if r == nil {
			return notFound(id)
		}
		rec = r
		return nil
	})
	return rec, err
}

func firstRecord(body []byte) (*domain.TransactionRecord, error) {
	rows, err := decodeRows(body)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	rec, _ := ledger.RecordFromMap(rows[0])
	return &rec, nil
}

func notFound(id string) error {
	return permanentNotFound("transaction", id)
}

// dateFilter matches a date key stored either as DD/MM/YYYY or ISO.
func dateFilter(cal *ledger.Calendar, key string) string {
	spellings := []string{quote(key)}
	if t, ok := cal.KeyTime(key); ok {
		spellings = append(spellings, quote(t.Format("2006-01-02")))
	}
	return "in.(" + strings.Join(spellings, ",") + ")"
}

func quote(v string) string {
	return `"` + v + `"`
}
