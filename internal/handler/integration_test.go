package handler_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/infra/rowlog"
)

// flakyLog fails every call while down is set, the way an unreachable
// spreadsheet or database does.
type flakyLog struct {
	*rowlog.MemoryLog
	down atomic.Bool
}

func (l *flakyLog) check() error {
	if l.down.Load() {
		return &domain.ErrExternalService{Service: "backend", Err: errors.New("connection refused")}
	}
	return nil
}

func (l *flakyLog) ReadRows(ctx context.Context) ([][]string, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	return l.MemoryLog.ReadRows(ctx)
}

func (l *flakyLog) AppendRow(ctx context.Context, row []string) error {
	if err := l.check(); err != nil {
		return err
	}
	return l.MemoryLog.AppendRow(ctx, row)
}

func TestIntegration_OfflineSaleSyncsAfterReconnect(t *testing.T) {
	log := &flakyLog{MemoryLog: rowlog.NewMemoryLog()}
	api := newTestAPIOver(t, false, log)

	log.down.Store(true)

	rec := api.do(t, http.MethodPost, "/v1/transactions", "", bundleSale())
	expectStatus(t, rec, http.StatusAccepted)
	res := decode(t, rec)
	if res["queued"] != true || res["entryId"] == "" {
		t.Fatalf("expected a queued sale, got %v", res)
	}
	id := res["transaction"].(map[string]any)["id"].(string)

	rec = api.do(t, http.MethodGet, "/v1/sync/status", "", nil)
	expectStatus(t, rec, http.StatusOK)
	status := decode(t, rec)
	if status["pending"] != float64(1) || status["backendOnline"] != false {
		t.Fatalf("unexpected status while offline: %v", status)
	}

	rec = api.do(t, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode(t, rec)["status"]; got != "degraded" {
		t.Errorf("expected degraded health while offline, got %v", got)
	}

	expectStatus(t, api.do(t, http.MethodGet, "/v1/reports/daily?date=2024-06-01", "", nil), http.StatusBadGateway)

	log.down.Store(false)

	rec = api.do(t, http.MethodPost, "/v1/sync/drain", "", nil)
	expectStatus(t, rec, http.StatusOK)
	drain := decode(t, rec)
	if drain["succeeded"] != float64(1) || drain["remaining"] != float64(0) {
		t.Fatalf("unexpected drain result: %v", drain)
	}

	rec = api.do(t, http.MethodGet, "/v1/transactions?date=2024-06-01", "", nil)
	expectStatus(t, rec, http.StatusOK)
	list := decode(t, rec)["transactions"].([]any)
	if len(list) != 1 || list[0].(map[string]any)["id"] != id {
		t.Fatalf("expected the queued sale to be stored once, got %v", list)
	}

	rec = api.do(t, http.MethodGet, "/v1/sync/status", "", nil)
	status = decode(t, rec)
	if status["pending"] != float64(0) || status["backendOnline"] != true {
		t.Errorf("unexpected status after drain: %v", status)
	}
}
