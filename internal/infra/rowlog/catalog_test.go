package rowlog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/infra/rowlog"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newCatalog() *rowlog.CatalogStore {
	return rowlog.NewCatalogStore(rowlog.NewMemoryLog(), rowlog.NewMemoryLog(), rowlog.NewMemoryLog(), zap.NewNop())
}

func TestCatalog_WorkerLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newCatalog()

	w := &domain.Worker{Name: "Maria", Email: "maria@salon.test", Status: domain.StatusActive}
	if err := c.CreateWorker(ctx, w); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := c.CreateWorker(ctx, &domain.Worker{Name: "Other", Email: "MARIA@salon.test"})
	var dup *domain.ErrDuplicate
	if !errors.As(err, &dup) {
		t.Fatalf("expected duplicate on case-insensitive email, got %v", err)
	}

	w.Phone = "0501234567"
	if err := c.UpdateWorker(ctx, "maria@salon.test", w); err != nil {
		t.Fatalf("update: %v", err)
	}

	workers, err := c.ListWorkers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(workers) != 1 || workers[0].Phone != "0501234567" {
		t.Fatalf("unexpected workers: %+v", workers)
	}

	if err := c.DeleteWorker(ctx, "maria@salon.test"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = c.DeleteWorker(ctx, "maria@salon.test")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCatalog_ServicesKeyedByCategoryAndName(t *testing.T) {
	ctx := context.Background()
	c := newCatalog()

	items := []domain.ServiceItem{
		{Category: "Hair", Name: "Basic Hair Cut", Cost: decimal.NewFromInt(15)},
		{Category: "Beard", Name: "Basic Hair Cut", Cost: decimal.NewFromInt(10)},
	}
	for i := range items {
		if err := c.CreateService(ctx, &items[i]); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	updated := domain.ServiceItem{Category: "Hair", Name: "Premium Hair Cut", Cost: decimal.NewFromInt(25)}
	if err := c.UpdateService(ctx, "Hair", "Basic Hair Cut", &updated); err != nil {
		t.Fatalf("update: %v", err)
	}

	list, err := c.ListServices(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 services, got %d", len(list))
	}
	if list[0].Name != "Premium Hair Cut" || !list[0].Cost.Equal(decimal.NewFromInt(25)) {
		t.Errorf("unexpected first service: %+v", list[0])
	}
}

func TestCatalog_UsersKeepPasswordHash(t *testing.T) {
	ctx := context.Background()
	c := newCatalog()

	u := &domain.UserAccount{Name: "Admin", Email: "admin@salon.test", PasswordHash: "$2a$10$hash", Role: domain.RoleAdmin}
	if err := c.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := c.GetUser(ctx, "ADMIN@salon.test")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PasswordHash != "$2a$10$hash" || got.Role != domain.RoleAdmin {
		t.Errorf("unexpected user: %+v", got)
	}
}

func TestCatalog_EnsureHeaders(t *testing.T) {
	ctx := context.Background()
	workers := rowlog.NewMemoryLog([]string{"Maria", "maria@salon.test"})
	c := rowlog.NewCatalogStore(workers, rowlog.NewMemoryLog(), rowlog.NewMemoryLog(), zap.NewNop())

	if err := c.EnsureHeaders(ctx); err != nil {
		t.Fatalf("ensure headers: %v", err)
	}

	rows, _ := workers.ReadRows(ctx)
	if len(rows) != 2 || rows[0][0] != "Name" || rows[1][0] != "Maria" {
		t.Errorf("unexpected worker rows: %v", rows)
	}

	list, err := c.ListWorkers(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 worker, got %v (err %v)", list, err)
	}
}
