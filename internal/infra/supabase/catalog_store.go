package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/salon-pos-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// CatalogStore keeps workers, services and users in their own tables.
type CatalogStore struct {
	client *Client
}

// NewCatalogStore creates a store over c.
func NewCatalogStore(c *Client) *CatalogStore {
	return &CatalogStore{client: c}
}

// --- column mappings ---

type workerRow struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (r workerRow) toDomain() domain.Worker {
	return domain.Worker{
		Name: r.Name, Email: r.Email, Phone: r.Phone, Role: r.Role,
		Status: r.Status, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func workerData(w *domain.Worker) map[string]any {
	return map[string]any{
		"name": w.Name, "email": w.Email, "phone": w.Phone, "role": w.Role,
		"status": w.Status, "created_at": w.CreatedAt, "updated_at": w.UpdatedAt,
	}
}

type serviceRow struct {
	Category    string          `json:"category"`
	ServiceName string          `json:"service_name"`
	Cost        decimal.Decimal `json:"cost"`
}

func serviceData(item *domain.ServiceItem) map[string]any {
	return map[string]any{"category": item.Category, "service_name": item.Name, "cost": item.Cost}
}

type userRow struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
	Phone        string `json:"phone"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func (r userRow) toDomain() domain.UserAccount {
	return domain.UserAccount{
		Name: r.Name, Email: r.Email, PasswordHash: r.PasswordHash, Role: r.Role,
		Phone: r.Phone, Status: r.Status, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func userData(u *domain.UserAccount) map[string]any {
	return map[string]any{
		"name": u.Name, "email": u.Email, "password_hash": u.PasswordHash, "role": u.Role,
		"phone": u.Phone, "status": u.Status, "created_at": u.CreatedAt, "updated_at": u.UpdatedAt,
	}
}

// --- generic helpers ---

func list[T any](ctx context.Context, c *Client, op, path string) ([]T, error) {
	var out []T
	err := c.exec(ctx, op, path, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		out = nil
		if len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("decode %s: %w", op, err)
		}
		return nil
	})
	return out, err
}

// mutate runs a PATCH or DELETE and reports ErrNotFound when no row matched.
func (s *CatalogStore) mutate(ctx context.Context, op, resource, key string, call func() ([]byte, error)) error {
	return s.client.exec(ctx, op, key, func() error {
		body, err := call()
		if err != nil {
			return err
		}
		var matched []json.RawMessage
		if len(body) > 0 {
			if err := json.Unmarshal(body, &matched); err != nil {
				return fmt.Errorf("decode %s: %w", op, err)
			}
		}
		if len(matched) == 0 {
			return permanentNotFound(resource, key)
		}
		return nil
	})
}

func eq(v string) string {
	return "eq." + url.QueryEscape(v)
}

// ============================================================
// Workers
// ============================================================

func (s *CatalogStore) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListWorkers")
	defer span.End()

	rows, err := list[workerRow](ctx, s.client, "workers.list", "workers?select=*&order=name.asc")
	if err != nil {
		return nil, err
	}
	workers := make([]domain.Worker, 0, len(rows))
	for _, r := range rows {
		workers = append(workers, r.toDomain())
	}
	return workers, nil
}

func (s *CatalogStore) CreateWorker(ctx context.Context, w *domain.Worker) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateWorker")
	defer span.End()
	span.SetAttributes(attribute.String("worker.email", w.Email))

	return s.client.exec(ctx, "workers.create", w.Email, func() error {
		_, err := s.client.doPost(ctx, "workers", workerData(w))
		return err
	})
}

func (s *CatalogStore) UpdateWorker(ctx context.Context, email string, w *domain.Worker) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateWorker")
	defer span.End()

	data := workerData(w)
	delete(data, "created_at")
	return s.mutate(ctx, "workers.update", "worker", email, func() ([]byte, error) {
		return s.client.doPatch(ctx, "workers?email="+eq(email), data)
	})
}

func (s *CatalogStore) DeleteWorker(ctx context.Context, email string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteWorker")
	defer span.End()

	return s.mutate(ctx, "workers.delete", "worker", email, func() ([]byte, error) {
		return s.client.doDelete(ctx, "workers?email="+eq(email))
	})
}

// ============================================================
// Services
// ============================================================

func (s *CatalogStore) ListServices(ctx context.Context) ([]domain.ServiceItem, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListServices")
	defer span.End()

	rows, err := list[serviceRow](ctx, s.client, "services.list", "services?select=*&order=category.asc,service_name.asc")
	if err != nil {
		return nil, err
	}
	items := make([]domain.ServiceItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, domain.ServiceItem{Category: r.Category, Name: r.ServiceName, Cost: r.Cost})
	}
	return items, nil
}

func (s *CatalogStore) CreateService(ctx context.Context, item *domain.ServiceItem) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateService")
	defer span.End()

	return s.client.exec(ctx, "services.create", item.Category+"/"+item.Name, func() error {
		_, err := s.client.doPost(ctx, "services", serviceData(item))
		return err
	})
}

func (s *CatalogStore) UpdateService(ctx context.Context, category, name string, item *domain.ServiceItem) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateService")
	defer span.End()

	path := "services?category=" + eq(category) + "&service_name=" + eq(name)
	return s.mutate(ctx, "services.update", "service", category+"/"+name, func() ([]byte, error) {
		return s.client.doPatch(ctx, path, serviceData(item))
	})
}

func (s *CatalogStore) DeleteService(ctx context.Context, category, name string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteService")
	defer span.End()

	path := "services?category=" + eq(category) + "&service_name=" + eq(name)
	return s.mutate(ctx, "services.delete", "service", category+"/"+name, func() ([]byte, error) {
		return s.client.doDelete(ctx, path)
	})
}

// ============================================================
// Users
// ============================================================

func (s *CatalogStore) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListUsers")
	defer span.End()

	rows, err := list[userRow](ctx, s.client, "users.list", "users?select=*&order=email.asc")
	if err != nil {
		return nil, err
	}
	users := make([]domain.UserAccount, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toDomain())
	}
	return users, nil
}

func (s *CatalogStore) GetUser(ctx context.Context, email string) (*domain.UserAccount, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUser")
	defer span.End()

	rows, err := list[userRow](ctx, s.client, "users.get", "users?select=*&limit=1&email="+eq(email))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "user", ID: email}
	}
	u := rows[0].toDomain()
	return &u, nil
}

func (s *CatalogStore) CreateUser(ctx context.Context, u *domain.UserAccount) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateUser")
	defer span.End()

	return s.client.exec(ctx, "users.create", u.Email, func() error {
		_, err := s.client.doPost(ctx, "users", userData(u))
		return err
	})
}

func (s *CatalogStore) UpdateUser(ctx context.Context, email string, u *domain.UserAccount) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateUser")
	defer span.End()

	data := userData(u)
	delete(data, "created_at")
	return s.mutate(ctx, "users.update", "user", email, func() ([]byte, error) {
		return s.client.doPatch(ctx, "users?email="+eq(email), data)
	})
}

func (s *CatalogStore) DeleteUser(ctx context.Context, email string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteUser")
	defer span.End()

	return s.mutate(ctx, "users.delete", "user", email, func() ([]byte, error) {
		return s.client.doDelete(ctx, "users?email="+eq(email))
	})
}
