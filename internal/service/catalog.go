package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/infra/observability"
	"github.com/boddenberg/salon-pos-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var catalogTracer = otel.Tracer("service/catalog")

const (
	priceListKey = "prices"
	bcryptCost   = 12
)

// CatalogService manages workers, the service price list and user accounts.
type CatalogService struct {
	store   port.CatalogStore
	prices  port.Cache[domain.PriceList]
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewCatalogService creates the service.
func NewCatalogService(store port.CatalogStore, prices port.Cache[domain.PriceList], metrics *observability.Metrics, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		store:   store,
		prices:  prices,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *CatalogService) stamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// ============================================================
// Workers
// ============================================================

func (s *CatalogService) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ListWorkers")
	defer span.End()

	return s.store.ListWorkers(ctx)
}

func (s *CatalogService) CreateWorker(ctx context.Context, w *domain.Worker) (*domain.Worker, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.CreateWorker")
	defer span.End()

	w.Email = normalizeEmail(w.Email)
	if err := validateStruct(w); err != nil {
		return nil, err
	}
	if w.Status == "" {
		w.Status = domain.StatusActive
	}
	w.CreatedAt = s.stamp()
	w.UpdatedAt = w.CreatedAt

	if err := s.store.CreateWorker(ctx, w); err != nil {
		return nil, err
	}
	s.logger.Info("worker created", zap.String("email", w.Email))
	return w, nil
}

func (s *CatalogService) UpdateWorker(ctx context.Context, email string, w *domain.Worker) (*domain.Worker, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.UpdateWorker")
	defer span.End()
	span.SetAttributes(attribute.String("worker.email", email))

	w.Email = normalizeEmail(w.Email)
	if w.Email == "" {
		w.Email = normalizeEmail(email)
	}
	if err := validateStruct(w); err != nil {
		return nil, err
	}
	if w.Status == "" {
		w.Status = domain.StatusActive
	}
	w.UpdatedAt = s.stamp()

	if err := s.store.UpdateWorker(ctx, normalizeEmail(email), w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *CatalogService) DeleteWorker(ctx context.Context, email string) error {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.DeleteWorker")
	defer span.End()

	return s.store.DeleteWorker(ctx, normalizeEmail(email))
}

// ============================================================
// Services (price list)
// ============================================================

// PriceList returns category -> service -> cost, cached until the next
// catalog change or the cache TTL.
func (s *CatalogService) PriceList(ctx context.Context) (domain.PriceList, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.PriceList")
	defer span.End()

	if cached, ok := s.prices.Get(priceListKey); ok {
		s.metrics.IncrCacheHit("prices")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("prices")

	items, err := s.store.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	prices := make(domain.PriceList)
	for _, item := range items {
		if prices[item.Category] == nil {
			prices[item.Category] = make(map[string]decimal.Decimal)
		}
		prices[item.Category][item.Name] = item.Cost
	}
	s.prices.Set(priceListKey, prices)
	return prices, nil
}

func (s *CatalogService) CreateService(ctx context.Context, item *domain.ServiceItem) (*domain.ServiceItem, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.CreateService")
	defer span.End()

	if err := s.checkService(item); err != nil {
		return nil, err
	}
	if err := s.store.CreateService(ctx, item); err != nil {
		return nil, err
	}
	s.prices.Delete(priceListKey)
	return item, nil
}

// UpdateService changes the cost of a service, or renames it when item
// carries a different category or name.
func (s *CatalogService) UpdateService(ctx context.Context, category, name string, item *domain.ServiceItem) (*domain.ServiceItem, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.UpdateService")
	defer span.End()
	span.SetAttributes(attribute.String("service.category", category), attribute.String("service.name", name))

	if item.Category == "" {
		item.Category = category
	}
	if item.Name == "" {
		item.Name = name
	}
	if err := s.checkService(item); err != nil {
		return nil, err
	}
	if err := s.store.UpdateService(ctx, category, name, item); err != nil {
		return nil, err
	}
	s.prices.Delete(priceListKey)
	return item, nil
}

func (s *CatalogService) DeleteService(ctx context.Context, category, name string) error {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.DeleteService")
	defer span.End()

	if err := s.store.DeleteService(ctx, category, name); err != nil {
		return err
	}
	s.prices.Delete(priceListKey)
	return nil
}

func (s *CatalogService) checkService(item *domain.ServiceItem) error {
	item.Category = strings.TrimSpace(item.Category)
	item.Name = strings.TrimSpace(item.Name)
	if err := validateStruct(item); err != nil {
		return err
	}
	if item.Cost.IsNegative() {
		return &domain.ErrValidation{Field: "cost", Message: "must not be negative"}
	}
	return nil
}

// ============================================================
// Users
// ============================================================

func (s *CatalogService) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ListUsers")
	defer span.End()

	return s.store.ListUsers(ctx)
}

func (s *CatalogService) CreateUser(ctx context.Context, req *domain.UserRequest) (*domain.UserAccount, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.CreateUser")
	defer span.End()

	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "is required"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.UserAccount{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Phone:        req.Phone,
		Status:       req.Status,
		CreatedAt:    s.stamp(),
	}
	if u.Status == "" {
		u.Status = domain.StatusActive
	}
	u.UpdatedAt = u.CreatedAt

	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("email", u.Email), zap.String("role", u.Role))
	return u, nil
}

// UpdateUser replaces a user's profile. An empty password keeps the stored
// hash.
func (s *CatalogService) UpdateUser(ctx context.Context, email string, req *domain.UserRequest) (*domain.UserAccount, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.UpdateUser")
	defer span.End()

	email = normalizeEmail(email)
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" {
		req.Email = email
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	current, err := s.store.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	u := *current
	u.Name = req.Name
	u.Email = req.Email
	u.Role = req.Role
	u.Phone = req.Phone
	if req.Status != "" {
		u.Status = req.Status
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}
	u.UpdatedAt = s.stamp()

	if err := s.store.UpdateUser(ctx, email, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *CatalogService) DeleteUser(ctx context.Context, email string) error {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.DeleteUser")
	defer span.End()

	return s.store.DeleteUser(ctx, normalizeEmail(email))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
