package rowlog

import (
	"context"
	"strings"
	"sync"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/ledger"
	"github.com/boddenberg/salon-pos-go/internal/port"

	"go.uber.org/zap"
)

// Catalog sheet headers.
var (
	WorkerHeader  = []string{"Name", "Email", "Phone", "Role", "Status", "Created_At", "Updated_At"}
	ServiceHeader = []string{"Category", "Service_Name", "Cost"}
	UserHeader    = []string{"Name", "Email", "Password_Hash", "Role", "Phone", "Status", "Created_At", "Updated_At"}
)

// table maps one catalog entity onto a row log with a fixed header.
type table[T any] struct {
	log      port.RowLog
	header   []string
	resource string
	key      func(row []string) string
	decode   func(row []string) T
	encode   func(v T) []string
}

func foldKey(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "\x00")
}

func (t *table[T]) dataStart(rows [][]string) int {
	if len(rows) > 0 && strings.EqualFold(strings.TrimSpace(cellAt(rows[0], 0)), t.header[0]) {
		return 1
	}
	return 0
}

func (t *table[T]) list(ctx context.Context) ([]T, error) {
	rows, err := t.log.ReadRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows[t.dataStart(rows):] {
		if isBlank(row) {
			continue
		}
		out = append(out, t.decode(row))
	}
	return out, nil
}

// find returns the rows read and the 1-based row number holding key.
func (t *table[T]) find(ctx context.Context, key string) ([][]string, int, error) {
	rows, err := t.log.ReadRows(ctx)
	if err != nil {
		return nil, 0, err
	}
	for i := t.dataStart(rows); i < len(rows); i++ {
		if !isBlank(rows[i]) && t.key(rows[i]) == key {
			return rows, i + 1, nil
		}
	}
	return rows, 0, nil
}

func (t *table[T]) get(ctx context.Context, key, id string) (T, error) {
	var zero T
	rows, n, err := t.find(ctx, key)
	if err != nil {
		return zero, err
	}
	if n == 0 {
		return zero, &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	return t.decode(rows[n-1]), nil
}

func (t *table[T]) create(ctx context.Context, key, id string, v T) error {
	rows, n, err := t.find(ctx, key)
	if err != nil {
		return err
	}
	if n != 0 {
		return &domain.ErrDuplicate{Key: id}
	}
	if len(rows) == 0 {
		if err := t.log.AppendRow(ctx, t.header); err != nil {
			return err
		}
	}
	return t.log.AppendRow(ctx, t.encode(v))
}

func (t *table[T]) update(ctx context.Context, key, id string, v T) error {
	_, n, err := t.find(ctx, key)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	return t.log.UpdateRow(ctx, n, t.encode(v))
}

func (t *table[T]) delete(ctx context.Context, key, id string) error {
	_, n, err := t.find(ctx, key)
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	return t.log.DeleteRow(ctx, n)
}

func (t *table[T]) ensureHeader(ctx context.Context) error {
	rows, err := t.log.ReadRows(ctx)
	if err != nil {
		return err
	}
	switch {
	case len(rows) == 0:
		return t.log.AppendRow(ctx, t.header)
	case t.dataStart(rows) == 0:
		return t.log.InsertRow(ctx, 1, t.header)
	}
	return nil
}

// CatalogStore keeps workers, services and users in three row logs.
type CatalogStore struct {
	workers  *table[domain.Worker]
	services *table[domain.ServiceItem]
	users    *table[domain.UserAccount]
	logger   *zap.Logger

	mu sync.Mutex
}

// NewCatalogStore wires one row log per entity.
func NewCatalogStore(workers, services, users port.RowLog, logger *zap.Logger) *CatalogStore {
	return &CatalogStore{
		workers: &table[domain.Worker]{
			log:      workers,
			header:   WorkerHeader,
			resource: "worker",
			key:      func(row []string) string { return foldKey(cellAt(row, 1)) },
			decode: func(row []string) domain.Worker {
				return domain.Worker{
					Name: cellAt(row, 0), Email: cellAt(row, 1), Phone: cellAt(row, 2),
					Role: cellAt(row, 3), Status: cellAt(row, 4),
					CreatedAt: cellAt(row, 5), UpdatedAt: cellAt(row, 6),
				}
			},
			encode: func(w domain.Worker) []string {
				return []string{w.Name, w.Email, w.Phone, w.Role, w.Status, w.CreatedAt, w.UpdatedAt}
			},
		},
		services: &table[domain.ServiceItem]{
			log:      services,
			header:   ServiceHeader,
			resource: "service",
			key:      func(row []string) string { return foldKey(cellAt(row, 0), cellAt(row, 1)) },
			decode: func(row []string) domain.ServiceItem {
				cost, _ := ledger.ParseMoney(cellAt(row, 2))
				return domain.ServiceItem{Category: cellAt(row, 0), Name: cellAt(row, 1), Cost: cost}
			},
			encode: func(s domain.ServiceItem) []string {
				return []string{s.Category, s.Name, s.Cost.String()}
			},
		},
		users: &table[domain.UserAccount]{
			log:      users,
			header:   UserHeader,
			resource: "user",
			key:      func(row []string) string { return foldKey(cellAt(row, 1)) },
			decode: func(row []string) domain.UserAccount {
				return domain.UserAccount{
					Name: cellAt(row, 0), Email: cellAt(row, 1), PasswordHash: cellAt(row, 2),
					Role: cellAt(row, 3), Phone: cellAt(row, 4), Status: cellAt(row, 5),
					CreatedAt: cellAt(row, 6), UpdatedAt: cellAt(row, 7),
				}
			},
			encode: func(u domain.UserAccount) []string {
				return []string{u.Name, u.Email, u.PasswordHash, u.Role, u.Phone, u.Status, u.CreatedAt, u.UpdatedAt}
			},
		},
		logger: logger,
	}
}

func (c *CatalogStore) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	return c.workers.list(ctx)
}

func (c *CatalogStore) CreateWorker(ctx context.Context, w *domain.Worker) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workers.create(ctx, foldKey(w.Email), w.Email, *w)
}

func (c *CatalogStore) UpdateWorker(ctx context.Context, email string, w *domain.Worker) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workers.update(ctx, foldKey(email), email, *w)
}

func (c *CatalogStore) DeleteWorker(ctx context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workers.delete(ctx, foldKey(email), email)
}

func (c *CatalogStore) ListServices(ctx context.Context) ([]domain.ServiceItem, error) {
	return c.services.list(ctx)
}

func (c *CatalogStore) CreateService(ctx context.Context, item *domain.ServiceItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.services.create(ctx, foldKey(item.Category, item.Name), item.Category+"/"+item.Name, *item)
}

func (c *CatalogStore) UpdateService(ctx context.Context, category, name string, item *domain.ServiceItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.services.update(ctx, foldKey(category, name), category+"/"+name, *item)
}

func (c *CatalogStore) DeleteService(ctx context.Context, category, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.services.delete(ctx, foldKey(category, name), category+"/"+name)
}

func (c *CatalogStore) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	return c.users.list(ctx)
}

func (c *CatalogStore) GetUser(ctx context.Context, email string) (*domain.UserAccount, error) {
	u, err := c.users.get(ctx, foldKey(email), email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *CatalogStore) CreateUser(ctx context.Context, u *domain.UserAccount) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users.create(ctx, foldKey(u.Email), u.Email, *u)
}

func (c *CatalogStore) UpdateUser(ctx context.Context, email string, u *domain.UserAccount) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users.update(ctx, foldKey(email), email, *u)
}

func (c *CatalogStore) DeleteUser(ctx context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users.delete(ctx, foldKey(email), email)
}

// EnsureHeaders writes the header row of every catalog log that lacks one.
func (c *CatalogStore) EnsureHeaders(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.workers.ensureHeader(ctx); err != nil {
		return err
	}
	if err := c.services.ensureHeader(ctx); err != nil {
		return err
	}
	if err := c.users.ensureHeader(ctx); err != nil {
		return err
	}
	c.logger.Debug("catalog headers ensured")
	return nil
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
