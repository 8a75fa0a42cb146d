package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Role struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type RoleCreateRequest struct {
	Name string `json:"name"`
}

type Customer struct {
	Mobile            string    `json:"mobile"`
	Name              string    `json:"name"`
	RoleID            *int64    `json:"role_id,omitempty"`
	Password          string    `json:"-"`
	IsDefaultPassword bool      `json:"is_default_password"`
	CreatedAt         time.Time `json:"created_at"`
}

type CustomerRegisterRequest struct {
	Mobile string `json:"mobile"`
	Name   string `json:"name"`
	RoleID *int64 `json:"role_id,omitempty"`
}

type CustomerLoginRequest struct {
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

type CustomerLoginResponse struct {
	AccessToken       string   `json:"access_token"`
	Customer          Customer `json:"customer"`
	IsDefaultPassword bool     `json:"is_default_password"`
	ExpiresAt         string   `json:"expires_at"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// CustomerSummary is the admin customer-list row: the customer plus the
// derived reward figures for the default reward category.
type CustomerSummary struct {
	Customer
	RoleName      string `json:"role_name,omitempty"`
	UsedUnits     int    `json:"used_units"`
	FreeEarned    int    `json:"free_earned"`
	FreeRemaining int    `json:"free_remaining"`
}

type Product struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	RewardCategory string          `json:"reward_category,omitempty"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ProductCreateRequest struct {
	Name           string          `json:"name"`
	RewardCategory string          `json:"reward_category"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

type ProductUpdateRequest struct {
	Name           *string          `json:"name,omitempty"`
	RewardCategory *string          `json:"reward_category,omitempty"`
	UnitPrice      *decimal.Decimal `json:"unit_price,omitempty"`
	Active         *bool            `json:"active,omitempty"`
}

// OfferRule is the canonical buy-N-get-M accrual rule. RoleID nil means the
// rule applies to every customer role.
type OfferRule struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	RoleID       *int64    `json:"role_id,omitempty"`
	BuyQuantity  int       `json:"buy_quantity"`
	FreeQuantity int       `json:"free_quantity"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsageCounter tracks lifetime reward-eligible usage for one customer in one
// reward category. TotalUnits covers paid and free consumption; free units
// consumed so far is TotalUnits - PaidUnits.
type UsageCounter struct {
	CustomerMobile string `json:"customer_mobile"`
	Category       string `json:"category"`
	TotalUnits     int    `json:"total_printed"`
	PaidUnits      int    `json:"paid_total"`
	FreeRemaining  int    `json:"free_remaining"`
}

// RewardState is the derived, point-in-time reward summary for one counter.
// It is recomputed on every query and never persisted.
type RewardState struct {
	Category      string `json:"category"`
	TotalUnits    int    `json:"total_printed"`
	FreeUsed      int    `json:"free_used"`
	FreeEarned    int    `json:"free_earned"`
	FreeRemaining int    `json:"free_remaining"`
	BuyQuantity   int    `json:"buy_quantity"`
	FreeQuantity  int    `json:"free_quantity"`
	NextUnlockIn  int    `json:"next_unlock_in"`
}

type TransactionItem struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Category     string          `json:"category,omitempty"`
	Quantity     int             `json:"quantity"`
	PaidQuantity int             `json:"paid_quantity"`
	FreeQuantity int             `json:"free_quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// RewardSnapshot records, per reward category, how one transaction moved the
// customer's counter. It is stored with the transaction for receipts.
type RewardSnapshot struct {
	Category      string `json:"category"`
	PaidUnits     int    `json:"paid_units"`
	FreeUsed      int    `json:"free_used"`
	FreeGranted   int    `json:"free_granted"`
	FreeRemaining int    `json:"free_remaining"`
	FreeEarned    int    `json:"free_earned"`
}

type Transaction struct {
	ID             string            `json:"id"`
	CustomerMobile string            `json:"customer_mobile"`
	CustomerName   string            `json:"customer_name,omitempty"`
	Items          []TransactionItem `json:"items"`
	SubTotal       decimal.Decimal   `json:"sub_total"`
	OfferDiscount  decimal.Decimal   `json:"offer_discount"`
	PromoDiscount  decimal.Decimal   `json:"promo_discount"`
	FinalAmount    decimal.Decimal   `json:"final_amount"`
	Rewards        []RewardSnapshot  `json:"rewards,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

type BillItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type BillRequest struct {
	CustomerMobile string     `json:"customer_mobile"`
	Items          []BillItem `json:"items"`
}

type BillResponse struct {
	Transaction Transaction            `json:"transaction"`
	Rewards     map[string]RewardState `json:"rewards"`
}

type CustomerTransactionsResponse struct {
	Transactions []Transaction          `json:"transactions"`
	Rewards      map[string]RewardState `json:"rewards"`
}

type PromoRule struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	MinSubtotal     decimal.Decimal `json:"min_subtotal"`
	DiscountPercent float64         `json:"discount_percent"`
	FlatDiscount    decimal.Decimal `json:"flat_discount"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
}

type PromoCreateRequest struct {
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	MinSubtotal     decimal.Decimal `json:"min_subtotal"`
	DiscountPercent float64         `json:"discount_percent"`
	FlatDiscount    decimal.Decimal `json:"flat_discount"`
}

type PromoToggleRequest struct {
	Active bool `json:"active"`
}

// ContentSection is one storefront-template document (navbar, banner, hero,
// recipes and so on). The payload is opaque JSON authored by the console;
// image references stay URLs, the backend never handles uploads.
type ContentSection struct {
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedBy string          `json:"updated_by,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type DashboardSummary struct {
	TotalCustomers    int64           `json:"total_customers"`
	TransactionsToday int64           `json:"transactions_today"`
	RevenueToday      decimal.Decimal `json:"revenue_today"`
	UnitsSoldToday    int64           `json:"units_sold_today"`
}

type DailySalesPoint struct {
	Date         string          `json:"date"`
	Revenue      decimal.Decimal `json:"revenue"`
	Transactions int64           `json:"transactions"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor identifies the authenticated caller. Subject is the admin/staff
// username or the customer's mobile number depending on Role.
type Actor struct {
	Subject string
	Role    string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

const (
	PromoTypeCartPercent = "cart_percent"
	PromoTypeFlatCart    = "flat_cart"
)

// DefaultRewardCategory is the shop's photocopy/print counter, the only
// category seeded out of the box.
const DefaultRewardCategory = "xerox"
