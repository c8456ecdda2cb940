package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/infra/observability"
	"github.com/boddenberg/salon-pos-go/internal/infra/resilience"
	"github.com/boddenberg/salon-pos-go/internal/infra/rowlog"
	"github.com/boddenberg/salon-pos-go/internal/ledger"
	"github.com/boddenberg/salon-pos-go/internal/port"
	"github.com/boddenberg/salon-pos-go/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 2024-06-01 06:30 in Dubai.
var fixedNow = time.Date(2024, 6, 1, 2, 30, 0, 0, time.UTC)

type harness struct {
	store    port.TransactionStore
	queue    *fakeQueue
	monitor  *resilience.ConnectivityMonitor
	metrics  *observability.Metrics
	sink     *recordingSink
	notifier *service.Notifier
	sync     *service.SyncQueue
	svc      *service.TransactionService
}

func newHarness(t *testing.T, store port.TransactionStore) *harness {
	t.Helper()
	cal, err := ledger.NewCalendar(ledger.DefaultZone)
	require.NoError(t, err)

	h := &harness{
		store:   store,
		queue:   &fakeQueue{},
		monitor: resilience.NewConnectivityMonitor(),
		metrics: observability.NewMetrics(),
		sink:    newRecordingSink(),
	}
	h.notifier = service.NewNotifier(h.sink, h.metrics, zap.NewNop())
	h.notifier.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		h.notifier.Stop(ctx)
	})

	h.sync = service.NewSyncQueue(h.queue, store, h.notifier, h.monitor, h.metrics, zap.NewNop(), 4)
	h.svc = service.NewTransactionService(store, h.sync, h.notifier, h.monitor, cal, h.metrics, zap.NewNop(), "test")
	h.svc.SetClock(func() time.Time { return fixedNow })
	return h
}

func haircut() *domain.SaleRequest {
	return &domain.SaleRequest{Record: domain.TransactionRecord{
		Service:       "Haircut",
		Worker:        "Sara",
		Amount:        decimal.NewFromInt(50),
		PaymentMethod: domain.PaymentCash,
	}}
}

func TestRecordSale_PersistsWithDefaults(t *testing.T) {
	h := newHarness(t, &fakeStore{})

	res, err := h.svc.RecordSale(context.Background(), haircut())
	require.NoError(t, err)

	assert.False(t, res.Queued)
	assert.Equal(t, "01/06/2024", res.Record.Date, "date defaults to today in Dubai")
	assert.True(t, strings.HasPrefix(res.Record.ID, "TXN-"))
	assert.Equal(t, "2024-06-01T02:30:00Z", res.Record.CreatedAt)
	assert.Equal(t, res.Record.CreatedAt, res.Record.UpdatedAt)
	assert.Equal(t, int64(1), h.metrics.TransactionCount("persisted"))

	select {
	case got := <-h.sink.got:
		assert.Equal(t, res.Record.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a completion notification")
	}
}

func TestRecordSale_NormalizesDateAndKeepsID(t *testing.T) {
	h := newHarness(t, &fakeStore{})

	req := haircut()
	req.Record.ID = "TXN-client"
	req.Record.Date = "2024-05-31"

	res, err := h.svc.RecordSale(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "TXN-client", res.Record.ID)
	assert.Equal(t, "31/05/2024", res.Record.Date)
}

func TestRecordSale_FoldsServiceLines(t *testing.T) {
	h := newHarness(t, &fakeStore{})

	req := haircut()
	req.Record.Amount = decimal.Zero
	req.Lines = []domain.ServiceLine{
		{Category: "Hair", Name: "Haircut", Cost: decimal.NewFromInt(50)},
		{Category: "Hair", Name: "Blow Dry", Cost: decimal.RequireFromString("30.5")},
		{Category: "Nails", Name: "Manicure", Cost: decimal.NewFromInt(40)},
	}

	res, err := h.svc.RecordSale(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Haircut, Blow Dry, Manicure", res.Record.Service)
	assert.Equal(t, "Hair, Nails", res.Record.Category)
	assert.True(t, res.Record.Amount.Equal(decimal.RequireFromString("120.5")), "got %s", res.Record.Amount)
}

func TestRecordSale_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.SaleRequest)
		field  string
	}{
		{"missing worker", func(r *domain.SaleRequest) { r.Record.Worker = "" }, "worker"},
		{"missing payment", func(r *domain.SaleRequest) { r.Record.PaymentMethod = "" }, "paymentMethod"},
		{"negative amount", func(r *domain.SaleRequest) { r.Record.Amount = decimal.NewFromInt(-1) }, "amount"},
		{"negative tip", func(r *domain.SaleRequest) { r.Record.Tip = decimal.NewFromInt(-5) }, "tip"},
		{"bad date", func(r *domain.SaleRequest) { r.Record.Date = "someday" }, "date"},
		{"impossible date", func(r *domain.SaleRequest) { r.Record.Date = "31/02/2024" }, "date"},
		{"unnamed line", func(r *domain.SaleRequest) {
			r.Lines = []domain.ServiceLine{{Category: "Hair", Cost: decimal.NewFromInt(1)}}
		}, "services[0].name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			h := newHarness(t, store)
			req := haircut()
			tt.mutate(req)

			_, err := h.svc.RecordSale(context.Background(), req)
			var verr *domain.ErrValidation
			require.True(t, errors.As(err, &verr), "expected ErrValidation, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 0, store.count())
		})
	}
}

func TestRecordSale_QueuesWhenBackendDown(t *testing.T) {
	store := &fakeStore{createErr: func(*domain.TransactionRecord) error { return errBackendDown }}
	h := newHarness(t, store)

	res, err := h.svc.RecordSale(context.Background(), haircut())
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.NotEmpty(t, res.EntryID)
	assert.Equal(t, 1, h.queue.len())
	assert.False(t, h.monitor.Online())
	assert.Equal(t, int64(1), h.metrics.TransactionCount("queued"))
}

func TestRecordSale_DefinitiveErrorIsReturned(t *testing.T) {
	store := &fakeStore{}
	h := newHarness(t, store)

	req := haircut()
	req.Record.ID = "TXN-1"
	_, err := h.svc.RecordSale(context.Background(), req)
	require.NoError(t, err)

	_, err = h.svc.RecordSale(context.Background(), req)
	assert.True(t, domain.IsAlreadyPersisted(err))
	assert.Equal(t, 0, h.queue.len(), "duplicates are never queued")
}

func TestRecordSale_MintedIDStoredByLostAttempt(t *testing.T) {
	store := &fakeStore{createErr: func(rec *domain.TransactionRecord) error {
		return &domain.ErrDuplicate{Key: rec.ID}
	}}
	h := newHarness(t, store)

	res, err := h.svc.RecordSale(context.Background(), haircut())
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.True(t, strings.HasPrefix(res.Record.ID, "TXN-"))
	assert.Equal(t, 0, h.queue.len())
	assert.Equal(t, int64(1), h.metrics.TransactionCount("persisted"))
}

func TestUpdate_NormalizesDate(t *testing.T) {
	h := newHarness(t, &fakeStore{})
	res, err := h.svc.RecordSale(context.Background(), haircut())
	require.NoError(t, err)

	date := "2024-06-02"
	updated, err := h.svc.Update(context.Background(), res.Record.ID, &domain.TransactionPatch{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, "02/06/2024", updated.Date)

	negative := decimal.NewFromInt(-3)
	_, err = h.svc.Update(context.Background(), res.Record.ID, &domain.TransactionPatch{Tip: &negative})
	var verr *domain.ErrValidation
	assert.True(t, errors.As(err, &verr))
}

func TestDelete_NegativeIndex(t *testing.T) {
	h := newHarness(t, &fakeStore{})

	idx := -1
	_, err := h.svc.Delete(context.Background(), domain.DeleteSelector{Index: &idx})
	var invalid *domain.ErrInvalidIndex
	assert.True(t, errors.As(err, &invalid))
}

func TestBackfillAndHeaders_RowLogOnly(t *testing.T) {
	h := newHarness(t, &fakeStore{})

	_, err := h.svc.BackfillIDs(context.Background())
	var unsupported *domain.ErrUnsupported
	assert.True(t, errors.As(err, &unsupported))

	err = h.svc.EnsureHeaders(context.Background())
	assert.True(t, errors.As(err, &unsupported))
}

func TestBackfillIDs_RowLog(t *testing.T) {
	cal, err := ledger.NewCalendar(ledger.DefaultZone)
	require.NoError(t, err)

	log := rowlog.NewMemoryLog(
		[]string{"ID", "Date", "Customer_Name", "Service"},
		[]string{"", "01/06/2024", "Amal", "Haircut"},
		[]string{"TXN-1", "01/06/2024", "Noor", "Manicure"},
	)
	store := rowlog.NewTransactionStore(log, cal, "memory", zap.NewNop())
	h := newHarness(t, store)

	res, err := h.svc.BackfillIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	res, err = h.svc.BackfillIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated, "a second pass finds nothing to fix")
}
