// Package domain defines the core business entities of the salon ledger.
// These models are independent of the storage backend and represent the
// canonical data structures used by the services and the HTTP layer.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment method labels matched by the aggregation engine. Matching is exact
// and case-sensitive; any other label only contributes to the totals.
const (
	PaymentCash = "Cash"
	PaymentCard = "Card"
)

// UnknownWorker groups records whose worker field is empty.
const UnknownWorker = "Unknown Worker"

// UnknownCategory groups records whose category field is empty.
const UnknownCategory = "Unknown"

// ============================================================
// Transactions
// ============================================================

// TransactionRecord is one completed sale in the ledger.
// Date is the canonical DD/MM/YYYY key; Service and Category may hold a
// comma-joined bundle.
type TransactionRecord struct {
	ID            string          `json:"id"`
	Date          string          `json:"date"`
	CustomerName  string          `json:"customerName,omitempty" validate:"max=120"`
	Service       string          `json:"service" validate:"required,max=500"`
	Worker        string          `json:"worker" validate:"required,max=120"`
	Amount        decimal.Decimal `json:"amount"`
	Tip           decimal.Decimal `json:"tip"`
	PaymentMethod string          `json:"paymentMethod" validate:"required,max=40"`
	Notes         string          `json:"notes,omitempty" validate:"max=1000"`
	Phone         string          `json:"phone,omitempty" validate:"omitempty,max=20"`
	Category      string          `json:"category,omitempty" validate:"max=300"`
	Timestamp     string          `json:"timestamp,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty"`
	UpdatedAt     string          `json:"updatedAt,omitempty"`
}

// ServiceLine is one item of a multi-service sale.
type ServiceLine struct {
	Category string          `json:"category"`
	Name     string          `json:"name" validate:"required"`
	Cost     decimal.Decimal `json:"cost"`
}

// SaleRequest is the input of a new sale. Lines, when present, are folded
// into the record's service, category and amount.
type SaleRequest struct {
	Record TransactionRecord
	Lines  []ServiceLine
}

// SaleResult reports where a new sale ended up.
type SaleResult struct {
	Record  TransactionRecord `json:"transaction"`
	Queued  bool              `json:"queued"`
	EntryID string            `json:"entryId,omitempty"`
	Message string            `json:"message"`
}

// TransactionPatch carries the editable fields of an update. Nil fields are
// left untouched.
type TransactionPatch struct {
	Date          *string          `json:"date,omitempty"`
	CustomerName  *string          `json:"customerName,omitempty"`
	Service       *string          `json:"service,omitempty"`
	Worker        *string          `json:"worker,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Tip           *decimal.Decimal `json:"tip,omitempty"`
	PaymentMethod *string          `json:"paymentMethod,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	Phone         *string          `json:"phone,omitempty"`
	Category      *string          `json:"category,omitempty"`
}

// Apply copies the non-nil fields of p onto rec.
func (p *TransactionPatch) Apply(rec *TransactionRecord) {
	if p.Date != nil {
		rec.Date = *p.Date
	}
	if p.CustomerName != nil {
		rec.CustomerName = *p.CustomerName
	}
	if p.Service != nil {
		rec.Service = *p.Service
	}
	if p.Worker != nil {
		rec.Worker = *p.Worker
	}
	if p.Amount != nil {
		rec.Amount = *p.Amount
	}
	if p.Tip != nil {
		rec.Tip = *p.Tip
	}
	if p.PaymentMethod != nil {
		rec.PaymentMethod = *p.PaymentMethod
	}
	if p.Notes != nil {
		rec.Notes = *p.Notes
	}
	if p.Phone != nil {
		rec.Phone = *p.Phone
	}
	if p.Category != nil {
		rec.Category = *p.Category
	}
}

// TransactionFilter narrows a listing. An empty DateKey lists everything.
type TransactionFilter struct {
	DateKey string
}

// DeleteSelector addresses the record to delete, either by ID or by
// 0-based position among data rows. ExpectID, when set with Index, must match
// the ID found at that position.
type DeleteSelector struct {
	ID       string
	Index    *int
	ExpectID string
}

// BackfillResult summarizes an ID repair pass over a row log.
type BackfillResult struct {
	Scanned int   `json:"scanned"`
	Updated int   `json:"updated"`
	Failed  []int `json:"failedRows,omitempty"`
}

// ============================================================
// Reports
// ============================================================

// WorkerStats is the per-worker slice of an aggregate.
type WorkerStats struct {
	Total        decimal.Decimal     `json:"total"`
	Count        int                 `json:"count"`
	CashTotal    decimal.Decimal     `json:"cashTotal"`
	CardTotal    decimal.Decimal     `json:"cardTotal"`
	Transactions []TransactionRecord `json:"transactions"`
}

// CategoryStats is the per-category slice of an aggregate.
type CategoryStats struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// AggregateResult is the derived view over a set of records.
// TotalSales excludes tips; TotalTips reports them separately.
type AggregateResult struct {
	Date               string                    `json:"date"`
	From               string                    `json:"from,omitempty"`
	To                 string                    `json:"to,omitempty"`
	TotalSales         decimal.Decimal           `json:"totalSales"`
	TotalTips          decimal.Decimal           `json:"totalTips"`
	TransactionCount   int                       `json:"transactionCount"`
	CashTotal          decimal.Decimal           `json:"cashTotal"`
	CardTotal          decimal.Decimal           `json:"cardTotal"`
	WorkerStats        map[string]*WorkerStats   `json:"workerStats"`
	CategoryStats      map[string]*CategoryStats `json:"categoryStats"`
	RecentTransactions []TransactionRecord       `json:"recentTransactions"`
	Entries            []TransactionRecord       `json:"entries"`
}

// ============================================================
// Offline sync
// ============================================================

// OfflineQueueEntry is a sale waiting for the backend to become reachable.
type OfflineQueueEntry struct {
	EntryID   string            `json:"entryId"`
	Record    TransactionRecord `json:"record"`
	QueuedAt  time.Time         `json:"queuedAt"`
	Synced    bool              `json:"synced"`
	Attempts  int               `json:"attempts"`
	LastError string            `json:"lastError,omitempty"`
}

// DrainResult summarizes one drain of the offline queue.
type DrainResult struct {
	Attempted int  `json:"attempted"`
	Succeeded int  `json:"succeeded"`
	Remaining int  `json:"remaining"`
	Coalesced bool `json:"coalesced"`
}

// SyncStatus is returned by GET /v1/sync/status.
type SyncStatus struct {
	Pending       int                 `json:"pending"`
	Entries       []OfflineQueueEntry `json:"entries"`
	Drains        int64               `json:"drains"`
	SyncedTotal   int64               `json:"syncedTotal"`
	FailedTotal   int64               `json:"failedTotal"`
	BackendOnline bool                `json:"backendOnline"`
}
