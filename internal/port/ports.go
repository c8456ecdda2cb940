// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the concrete storage backends.
package port

import (
	"context"

	"github.com/boddenberg/salon-pos-go/internal/domain"
)

// TransactionStore persists sales. Implemented by the relational backend
// and by the row-log backend.
type TransactionStore interface {
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error)
	// CreateTransaction stores rec as given; the caller assigns ID and
	// timestamps. A record whose ID already exists yields *domain.ErrDuplicate.
	CreateTransaction(ctx context.Context, rec *domain.TransactionRecord) error
	UpdateTransaction(ctx context.Context, id string, patch *domain.TransactionPatch, updatedAt string) (*domain.TransactionRecord, error)
	DeleteTransaction(ctx context.Context, sel domain.DeleteSelector) (*domain.TransactionRecord, error)
}

// IDRepairer is implemented by backends whose rows can lack an ID.
type IDRepairer interface {
	BackfillMissingIDs(ctx context.Context) (*domain.BackfillResult, error)
}

// HeaderFixer is implemented by backends that keep a header row.
type HeaderFixer interface {
	EnsureHeaders(ctx context.Context) error
}

// RowLog is a position-addressed table of string cells, such as a
// spreadsheet tab. Row numbers are 1-based.
type RowLog interface {
	ReadRows(ctx context.Context) ([][]string, error)
	AppendRow(ctx context.Context, row []string) error
	InsertRow(ctx context.Context, rowNumber int, row []string) error
	UpdateRow(ctx context.Context, rowNumber int, row []string) error
	DeleteRow(ctx context.Context, rowNumber int) error
}

// CatalogStore persists workers, the service price list and user accounts.
type CatalogStore interface {
	ListWorkers(ctx context.Context) ([]domain.Worker, error)
	CreateWorker(ctx context.Context, w *domain.Worker) error
	UpdateWorker(ctx context.Context, email string, w *domain.Worker) error
	DeleteWorker(ctx context.Context, email string) error

	ListServices(ctx context.Context) ([]domain.ServiceItem, error)
	CreateService(ctx context.Context, item *domain.ServiceItem) error
	UpdateService(ctx context.Context, category, name string, item *domain.ServiceItem) error
	DeleteService(ctx context.Context, category, name string) error

	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	GetUser(ctx context.Context, email string) (*domain.UserAccount, error)
	CreateUser(ctx context.Context, u *domain.UserAccount) error
	UpdateUser(ctx context.Context, email string, u *domain.UserAccount) error
	DeleteUser(ctx context.Context, email string) error
}

// QueueStore durably holds offline sales until they are synced.
type QueueStore interface {
	Append(ctx context.Context, entry *domain.OfflineQueueEntry) error
	List(ctx context.Context) ([]domain.OfflineQueueEntry, error)
	// RecordFailure bumps the attempt counter of an entry.
	RecordFailure(ctx context.Context, entryID, reason string) error
	// Remove deletes the given entries in one batch.
	Remove(ctx context.Context, entryIDs []string) error
}

// NotificationSink receives completed sales after they are persisted.
type NotificationSink interface {
	TransactionCompleted(ctx context.Context, rec domain.TransactionRecord) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
