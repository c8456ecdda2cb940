package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/ledger"
	"github.com/boddenberg/salon-pos-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// transactionView adds the display time to a stored sale.
type transactionView struct {
	domain.TransactionRecord
	DisplayTime string `json:"displayTime"`
}

func listTransactionsHandler(svc *service.TransactionService, cal *ledger.Calendar, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		records, err := svc.List(ctx, r.URL.Query().Get("date"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		views := make([]transactionView, 0, len(records))
		for _, rec := range records {
			raw := rec.Timestamp
			if raw == "" {
				raw = rec.CreatedAt
			}
			views = append(views, transactionView{TransactionRecord: rec, DisplayTime: cal.FormatDisplayTime(raw)})
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": views, "count": len(views)})
	}
}

func createTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		body, err := decodeObject(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		req, err := saleFromMap(body)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		res, err := svc.RecordSale(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Bool("queued", res.Queued))

		status := http.StatusCreated
		if res.Queued {
			status = http.StatusAccepted
		}
		writeJSON(w, status, res)
	}
}

func updateTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/transactions/{id}")
		defer span.End()

		id := pathParam(r, "id")
		span.SetAttributes(attribute.String("transaction.id", id))

		body, err := decodeObject(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		patch, err := patchFromMap(body)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rec, err := svc.Update(ctx, id, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func deleteTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{id}")
		defer span.End()

		rec, err := svc.Delete(ctx, domain.DeleteSelector{ID: pathParam(r, "id")})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func deleteTransactionByIndexHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions")
		defer span.End()

		index, err := parseIndex(r, "index")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if index == nil {
			writeError(w, http.StatusBadRequest, "index is required")
			return
		}
		sel := domain.DeleteSelector{
			Index:    index,
			ExpectID: strings.TrimSpace(r.URL.Query().Get("expect_id")),
		}

		rec, err := svc.Delete(ctx, sel)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func backfillIDsHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/transactions/backfill-ids")
		defer span.End()

		res, err := svc.BackfillIDs(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func ensureHeadersHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/transactions/headers")
		defer span.End()

		if err := svc.EnsureHeaders(ctx); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "header rows are in place"})
	}
}

// ============================================================
// Payload decoding
// ============================================================

// saleFromMap reads a sale whose keys may use any known alias. A "services"
// array lists the individual lines of a multi-service sale.
func saleFromMap(m map[string]any) (*domain.SaleRequest, error) {
	rec, malformed := ledger.RecordFromMap(m)
	if len(malformed) > 0 {
		return nil, &domain.ErrValidation{Field: malformed[0], Message: "must be a non-negative amount"}
	}
	req := &domain.SaleRequest{Record: rec}

	raw, ok := m["services"]
	if !ok || raw == nil {
		return req, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &domain.ErrValidation{Field: "services", Message: "must be an array"}
	}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &domain.ErrValidation{Field: "services", Message: "every line must be an object"}
		}
		line, err := lineFromMap(obj)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "services", Message: fmt.Sprintf("line %d: %s", i+1, err.Error())}
		}
		req.Lines = append(req.Lines, line)
	}
	return req, nil
}

func lineFromMap(m map[string]any) (domain.ServiceLine, error) {
	line := domain.ServiceLine{
		Category: firstString(m, "category"),
		Name:     firstString(m, "name", "service"),
	}
	cost := firstString(m, "cost", "price", "amount")
	if strings.TrimSpace(cost) == "" {
		return line, nil
	}
	d, ok := ledger.ParseMoney(cost)
	if !ok {
		return line, errors.New("unreadable cost")
	}
	line.Cost = d
	return line, nil
}

// patchFromMap builds an update from the keys present in m. Keys that map to
// identity or audit fields are ignored.
func patchFromMap(m map[string]any) (*domain.TransactionPatch, error) {
	rec, malformed := ledger.RecordFromMap(m)
	if len(malformed) > 0 {
		return nil, &domain.ErrValidation{Field: malformed[0], Message: "must be a non-negative amount"}
	}

	p := &domain.TransactionPatch{}
	for k := range m {
		f, ok := ledger.CanonicalField(k)
		if !ok {
			continue
		}
		switch f {
		case ledger.FieldDate:
			p.Date = &rec.Date
		case ledger.FieldCustomerName:
			p.CustomerName = &rec.CustomerName
		case ledger.FieldService:
			p.Service = &rec.Service
		case ledger.FieldWorker:
			p.Worker = &rec.Worker
		case ledger.FieldAmount:
			p.Amount = &rec.Amount
		case ledger.FieldTip:
			p.Tip = &rec.Tip
		case ledger.FieldPaymentMethod:
			p.PaymentMethod = &rec.PaymentMethod
		case ledger.FieldNotes:
			p.Notes = &rec.Notes
		case ledger.FieldPhone:
			p.Phone = &rec.Phone
		case ledger.FieldCategory:
			p.Category = &rec.Category
		}
	}
	return p, nil
}

// firstString returns the first non-empty value among keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return ""
}
