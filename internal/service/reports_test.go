package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/ledger"
	"github.com/boddenberg/salon-pos-go/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReports(t *testing.T, records ...domain.TransactionRecord) *service.ReportService {
	t.Helper()
	cal, err := ledger.NewCalendar(ledger.DefaultZone)
	require.NoError(t, err)
	svc := service.NewReportService(&fakeStore{records: records}, ledger.NewEngine(cal, ledger.DefaultRecentLimit))
	svc.SetClock(func() time.Time { return fixedNow })
	return svc
}

func sold(id, date, worker, method string, amount int64) domain.TransactionRecord {
	return domain.TransactionRecord{
		ID: id, Date: date, Worker: worker, Service: "Haircut",
		Amount: decimal.NewFromInt(amount), PaymentMethod: method,
	}
}

func TestDaily_DefaultsToToday(t *testing.T) {
	svc := newReports(t,
		sold("1", "01/06/2024", "Sara", domain.PaymentCash, 50),
		sold("2", "01/06/2024", "Noor", domain.PaymentCard, 30),
		sold("3", "31/05/2024", "Sara", domain.PaymentCash, 99),
	)

	res, err := svc.Daily(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "01/06/2024", res.Date)
	assert.Equal(t, 2, res.TransactionCount)
	assert.True(t, res.TotalSales.Equal(decimal.NewFromInt(80)))
	assert.True(t, res.CashTotal.Equal(decimal.NewFromInt(50)))
	assert.True(t, res.CardTotal.Equal(decimal.NewFromInt(30)))
}

func TestDaily_AcceptsISODate(t *testing.T) {
	svc := newReports(t, sold("3", "31/05/2024", "Sara", domain.PaymentCash, 99))

	res, err := svc.Daily(context.Background(), "2024-05-31")
	require.NoError(t, err)
	assert.Equal(t, 1, res.TransactionCount)

	_, err = svc.Daily(context.Background(), "not a date")
	var verr *domain.ErrValidation
	assert.True(t, errors.As(err, &verr))
}

func TestSales_AllWhenNoDate(t *testing.T) {
	svc := newReports(t,
		sold("1", "01/06/2024", "Sara", domain.PaymentCash, 50),
		sold("3", "31/05/2024", "", domain.PaymentCash, 10),
	)

	res, err := svc.Sales(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.TransactionCount)
	require.Contains(t, res.WorkerStats, domain.UnknownWorker)
	assert.Equal(t, 1, res.WorkerStats[domain.UnknownWorker].Count)
}

func TestRange(t *testing.T) {
	svc := newReports(t,
		sold("1", "01/06/2024", "Sara", domain.PaymentCash, 50),
		sold("2", "30/05/2024", "Sara", domain.PaymentCash, 20),
		sold("3", "31/05/2024", "Sara", domain.PaymentCash, 10),
		sold("4", "02/06/2024", "Sara", domain.PaymentCash, 5),
	)

	res, err := svc.Range(context.Background(), "31/05/2024", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, 2, res.TransactionCount)
	assert.Equal(t, "31/05/2024", res.From)
	assert.Equal(t, "01/06/2024", res.To)

	_, err = svc.Range(context.Background(), "02/06/2024", "01/06/2024")
	var verr *domain.ErrValidation
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "to", verr.Field)
}
