package domain

import "github.com/shopspring/decimal"

// Account roles.
const (
	RoleAdmin  = "Admin"
	RoleWorker = "Worker"
)

// StatusActive is the default status of workers and users.
const StatusActive = "Active"

// Worker is a staff member who performs services. Email is the key.
type Worker struct {
	Name      string `json:"name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Role      string `json:"role,omitempty" validate:"omitempty,max=60"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// ServiceItem is one priced entry of the service catalog.
type ServiceItem struct {
	Category string          `json:"category" validate:"required,max=120"`
	Name     string          `json:"name" validate:"required,max=120"`
	Cost     decimal.Decimal `json:"cost"`
}

// PriceList groups service costs by category and service name.
type PriceList map[string]map[string]decimal.Decimal

// UserAccount is a login-capable account. PasswordHash never leaves the
// service layer.
type UserAccount struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	Phone        string `json:"phone,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// UserRequest creates or updates a user account. An empty Password on update
// keeps the stored hash.
type UserRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=Admin Worker"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Status   string `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive"`
}
