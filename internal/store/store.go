package store

import (
	"context"
	"errors"
	"time"

	"printdesk/backend/internal/domain"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrInvalid   = errors.New("invalid input")
)

type Repository interface {
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomerByMobile(ctx context.Context, mobile string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	UpdateCustomerPassword(ctx context.Context, mobile string, passwordHash string, isDefault bool) error
	DeleteCustomer(ctx context.Context, mobile string) error

	CreateRole(ctx context.Context, role domain.Role) (*domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
	DeleteRole(ctx context.Context, roleID int64) error

	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, productID int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	CreateOffer(ctx context.Context, rule domain.OfferRule) (*domain.OfferRule, error)
	ListOffers(ctx context.Context) ([]domain.OfferRule, error)
	UpdateOffer(ctx context.Context, rule domain.OfferRule) (*domain.OfferRule, error)
	DeleteOffer(ctx context.Context, offerID int64) error

	GetUsageCounters(ctx context.Context, mobile string) ([]domain.UsageCounter, error)

	// CreateTransaction persists the transaction together with the updated
	// usage counters in one atomic step; concurrent bills for the same
	// customer must not interleave counter updates.
	CreateTransaction(ctx context.Context, tx domain.Transaction, counters []domain.UsageCounter) (*domain.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactionsByCustomer(ctx context.Context, mobile string, limit int) ([]domain.Transaction, error)
	ListTransactions(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Transaction, error)

	CreatePromo(ctx context.Context, promo domain.PromoRule) (*domain.PromoRule, error)
	ListPromos(ctx context.Context) ([]domain.PromoRule, error)
	UpdatePromoActive(ctx context.Context, promoID string, active bool) (*domain.PromoRule, error)

	GetContentSection(ctx context.Context, name string) (*domain.ContentSection, error)
	PutContentSection(ctx context.Context, section domain.ContentSection) error

	GetDashboardSummary(ctx context.Context, dayStart time.Time, dayEnd time.Time) (domain.DashboardSummary, error)
	GetDailySales(ctx context.Context, from time.Time, to time.Time) ([]domain.DailySalesPoint, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
