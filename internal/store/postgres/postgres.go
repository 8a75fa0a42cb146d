package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"printdesk/backend/internal/domain"
	"printdesk/backend/internal/store"
	"printdesk/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Mobile == "" || customer.Name == "" {
		return nil, store.ErrInvalid
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (mobile, name, role_id, password, is_default_password, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, customer.Mobile, customer.Name, customer.RoleID, customer.Password, customer.IsDefaultPassword, customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByMobile(ctx context.Context, mobile string) (*domain.Customer, error) {
	var customer domain.Customer
	var roleID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT mobile, name, role_id, password, is_default_password, created_at
		FROM customers
		WHERE mobile = $1
	`, mobile).Scan(&customer.Mobile, &customer.Name, &roleID, &customer.Password, &customer.IsDefaultPassword, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if roleID.Valid {
		id := roleID.Int64
		customer.RoleID = &id
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mobile, name, role_id, password, is_default_password, created_at
		FROM customers
		ORDER BY name, mobile
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 128)
	for rows.Next() {
		var customer domain.Customer
		var roleID sql.NullInt64
		if err := rows.Scan(&customer.Mobile, &customer.Name, &roleID, &customer.Password, &customer.IsDefaultPassword, &customer.CreatedAt); err != nil {
			return nil, err
		}
		if roleID.Valid {
			id := roleID.Int64
			customer.RoleID = &id
		}
		customer.CreatedAt = customer.CreatedAt.UTC()
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) UpdateCustomerPassword(ctx context.Context, mobile string, passwordHash string, isDefault bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET password = $2, is_default_password = $3
		WHERE mobile = $1
	`, mobile, passwordHash, isDefault)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCustomer(ctx context.Context, mobile string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM usage_counters WHERE customer_mobile = $1`, mobile); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE mobile = $1`, mobile)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) CreateRole(ctx context.Context, role domain.Role) (*domain.Role, error) {
	role.Name = strings.ToUpper(strings.TrimSpace(role.Name))
	if role.Name == "" {
		return nil, store.ErrInvalid
	}
	if role.CreatedAt.IsZero() {
		role.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO roles (name, created_at)
		VALUES ($1,$2)
		RETURNING id
	`, role.Name, role.CreatedAt).Scan(&role.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := role
	return &created, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM roles
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]domain.Role, 0, 16)
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt); err != nil {
			return nil, err
		}
		role.CreatedAt = role.CreatedAt.UTC()
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, roleID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.UnitPrice.IsNegative() {
		return nil, store.ErrInvalid
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Active = true

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, reward_category, unit_price, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, product.Name, product.RewardCategory, product.UnitPrice, product.Active, product.CreatedAt).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, productID int64) (*domain.Product, error) {
	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, reward_category, unit_price, active, created_at
		FROM products
		WHERE id = $1
	`, productID).Scan(&product.ID, &product.Name, &product.RewardCategory, &product.UnitPrice, &product.Active, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, reward_category, unit_price, active, created_at
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.RewardCategory, &product.UnitPrice, &product.Active, &product.CreatedAt); err != nil {
			return nil, err
		}
		product.CreatedAt = product.CreatedAt.UTC()
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID < 1 || product.Name == "" || product.UnitPrice.IsNegative() {
		return nil, store.ErrInvalid
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, reward_category = $3, unit_price = $4, active = $5
		WHERE id = $1
	`, product.ID, product.Name, product.RewardCategory, product.UnitPrice, product.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := product
	return &updated, nil
}

func (s *Store) CreateOffer(ctx context.Context, rule domain.OfferRule) (*domain.OfferRule, error) {
	if rule.ProductID < 1 || rule.BuyQuantity < 1 || rule.FreeQuantity < 1 {
		return nil, store.ErrInvalid
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO offer_rules (product_id, role_id, buy_quantity, free_quantity, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, rule.ProductID, rule.RoleID, rule.BuyQuantity, rule.FreeQuantity, rule.CreatedAt).Scan(&rule.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := rule
	return &created, nil
}

func (s *Store) ListOffers(ctx context.Context) ([]domain.OfferRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, role_id, buy_quantity, free_quantity, created_at
		FROM offer_rules
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]domain.OfferRule, 0, 16)
	for rows.Next() {
		var rule domain.OfferRule
		var roleID sql.NullInt64
		if err := rows.Scan(&rule.ID, &rule.ProductID, &roleID, &rule.BuyQuantity, &rule.FreeQuantity, &rule.CreatedAt); err != nil {
			return nil, err
		}
		if roleID.Valid {
			id := roleID.Int64
			rule.RoleID = &id
		}
		rule.CreatedAt = rule.CreatedAt.UTC()
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *Store) UpdateOffer(ctx context.Context, rule domain.OfferRule) (*domain.OfferRule, error) {
	if rule.ID < 1 || rule.ProductID < 1 || rule.BuyQuantity < 1 || rule.FreeQuantity < 1 {
		return nil, store.ErrInvalid
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE offer_rules
		SET product_id = $2, role_id = $3, buy_quantity = $4, free_quantity = $5
		WHERE id = $1
	`, rule.ID, rule.ProductID, rule.RoleID, rule.BuyQuantity, rule.FreeQuantity)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := rule
	return &updated, nil
}

func (s *Store) DeleteOffer(ctx context.Context, offerID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM offer_rules WHERE id = $1`, offerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetUsageCounters(ctx context.Context, mobile string) ([]domain.UsageCounter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_mobile, category, total_units, paid_units, free_remaining
		FROM usage_counters
		WHERE customer_mobile = $1
		ORDER BY category
	`, mobile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counters := make([]domain.UsageCounter, 0, 4)
	for rows.Next() {
		var counter domain.UsageCounter
		if err := rows.Scan(&counter.CustomerMobile, &counter.Category, &counter.TotalUnits, &counter.PaidUnits, &counter.FreeRemaining); err != nil {
			return nil, err
		}
		counters = append(counters, counter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counters, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction, counters []domain.UsageCounter) (*domain.Transaction, error) {
	if tx.CustomerMobile == "" || len(tx.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	rewardsJSON, err := json.Marshal(tx.Rewards)
	if err != nil {
		return nil, err
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	// Lock the customer's counter rows so concurrent bills for the same
	// customer serialize their counter updates.
	lockRows, err := pgTx.QueryContext(ctx, `
		SELECT category
		FROM usage_counters
		WHERE customer_mobile = $1
		FOR UPDATE
	`, tx.CustomerMobile)
	if err != nil {
		return nil, err
	}
	for lockRows.Next() {
		var category string
		if err := lockRows.Scan(&category); err != nil {
			_ = lockRows.Close()
			return nil, err
		}
	}
	if err := lockRows.Err(); err != nil {
		_ = lockRows.Close()
		return nil, err
	}
	_ = lockRows.Close()

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (id, customer_mobile, customer_name, sub_total, offer_discount, promo_discount, final_amount, rewards, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, tx.ID, tx.CustomerMobile, tx.CustomerName, tx.SubTotal, tx.OfferDiscount, tx.PromoDiscount, tx.FinalAmount, rewardsJSON, tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	for _, item := range tx.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, product_id, product_name, category, quantity, paid_quantity, free_quantity, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, tx.ID, item.ProductID, item.ProductName, item.Category, item.Quantity, item.PaidQuantity, item.FreeQuantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return nil, err
		}
	}

	for _, counter := range counters {
		if counter.CustomerMobile != tx.CustomerMobile || counter.Category == "" {
			return nil, store.ErrInvalid
		}
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO usage_counters (customer_mobile, category, total_units, paid_units, free_remaining, updated_at)
			VALUES ($1,$2,$3,$4,$5,now())
			ON CONFLICT (customer_mobile, category)
			DO UPDATE SET total_units = EXCLUDED.total_units, paid_units = EXCLUDED.paid_units, free_remaining = EXCLUDED.free_remaining, updated_at = now()
		`, counter.CustomerMobile, counter.Category, counter.TotalUnits, counter.PaidUnits, counter.FreeRemaining)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	created := tx
	return &created, nil
}

func (s *Store) GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	var rewardsRaw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_mobile, customer_name, sub_total, offer_discount, promo_discount, final_amount, rewards, created_at
		FROM transactions
		WHERE id = $1
	`, id).Scan(&tx.ID, &tx.CustomerMobile, &tx.CustomerName, &tx.SubTotal, &tx.OfferDiscount, &tx.PromoDiscount, &tx.FinalAmount, &rewardsRaw, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	tx.CreatedAt = tx.CreatedAt.UTC()
	if len(rewardsRaw) > 0 {
		if err := json.Unmarshal(rewardsRaw, &tx.Rewards); err != nil {
			return nil, err
		}
	}

	items, err := s.listTransactionItems(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	tx.Items = items
	return &tx, nil
}

func (s *Store) ListTransactionsByCustomer(ctx context.Context, mobile string, limit int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 50
	}
	return s.listTransactions(ctx, `
		SELECT id, customer_mobile, customer_name, sub_total, offer_discount, promo_discount, final_amount, rewards, created_at
		FROM transactions
		WHERE customer_mobile = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, mobile, limit)
}

func (s *Store) ListTransactions(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 100
	}
	return s.listTransactions(ctx, `
		SELECT id, customer_mobile, customer_name, sub_total, offer_discount, promo_discount, final_amount, rewards, created_at
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
}

func (s *Store) listTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0, 32)
	for rows.Next() {
		var tx domain.Transaction
		var rewardsRaw []byte
		if err := rows.Scan(&tx.ID, &tx.CustomerMobile, &tx.CustomerName, &tx.SubTotal, &tx.OfferDiscount, &tx.PromoDiscount, &tx.FinalAmount, &rewardsRaw, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		if len(rewardsRaw) > 0 {
			if err := json.Unmarshal(rewardsRaw, &tx.Rewards); err != nil {
				return nil, err
			}
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range transactions {
		items, err := s.listTransactionItems(ctx, transactions[i].ID)
		if err != nil {
			return nil, err
		}
		transactions[i].Items = items
	}
	return transactions, nil
}

func (s *Store) listTransactionItems(ctx context.Context, transactionID string) ([]domain.TransactionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, category, quantity, paid_quantity, free_quantity, unit_price, line_total
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY id
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.TransactionItem, 0, 8)
	for rows.Next() {
		var item domain.TransactionItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Category, &item.Quantity, &item.PaidQuantity, &item.FreeQuantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreatePromo(ctx context.Context, promo domain.PromoRule) (*domain.PromoRule, error) {
	if promo.Name == "" {
		return nil, store.ErrInvalid
	}
	if promo.ID == "" {
		promo.ID = xid.New("promo")
	}
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO promo_rules (id, name, type, min_subtotal, discount_percent, flat_discount, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, promo.ID, promo.Name, promo.Type, promo.MinSubtotal, promo.DiscountPercent, promo.FlatDiscount, promo.Active, promo.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	saved := promo
	return &saved, nil
}

func (s *Store) ListPromos(ctx context.Context) ([]domain.PromoRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, min_subtotal, discount_percent, flat_discount, active, created_at
		FROM promo_rules
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promos := make([]domain.PromoRule, 0, 16)
	for rows.Next() {
		var promo domain.PromoRule
		if err := rows.Scan(&promo.ID, &promo.Name, &promo.Type, &promo.MinSubtotal, &promo.DiscountPercent, &promo.FlatDiscount, &promo.Active, &promo.CreatedAt); err != nil {
			return nil, err
		}
		promo.CreatedAt = promo.CreatedAt.UTC()
		promos = append(promos, promo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return promos, nil
}

func (s *Store) UpdatePromoActive(ctx context.Context, promoID string, active bool) (*domain.PromoRule, error) {
	var promo domain.PromoRule
	err := s.db.QueryRowContext(ctx, `
		UPDATE promo_rules
		SET active = $2
		WHERE id = $1
		RETURNING id, name, type, min_subtotal, discount_percent, flat_discount, active, created_at
	`, promoID, active).Scan(&promo.ID, &promo.Name, &promo.Type, &promo.MinSubtotal, &promo.DiscountPercent, &promo.FlatDiscount, &promo.Active, &promo.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	promo.CreatedAt = promo.CreatedAt.UTC()
	return &promo, nil
}

func (s *Store) GetContentSection(ctx context.Context, name string) (*domain.ContentSection, error) {
	var section domain.ContentSection
	var payload []byte
	var updatedBy sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT name, payload, updated_by, updated_at
		FROM content_sections
		WHERE name = $1
	`, name).Scan(&section.Name, &payload, &updatedBy, &section.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	section.Payload = payload
	if updatedBy.Valid {
		section.UpdatedBy = updatedBy.String
	}
	section.UpdatedAt = section.UpdatedAt.UTC()
	return &section, nil
}

func (s *Store) PutContentSection(ctx context.Context, section domain.ContentSection) error {
	if section.Name == "" || len(section.Payload) == 0 {
		return store.ErrInvalid
	}
	if section.UpdatedAt.IsZero() {
		section.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_sections (name, payload, updated_by, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (name)
		DO UPDATE SET payload = EXCLUDED.payload, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at
	`, section.Name, []byte(section.Payload), nullIfEmpty(section.UpdatedBy), section.UpdatedAt)
	return err
}

func (s *Store) GetDashboardSummary(ctx context.Context, dayStart time.Time, dayEnd time.Time) (domain.DashboardSummary, error) {
	var summary domain.DashboardSummary
	summary.RevenueToday = decimal.Zero

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)::bigint FROM customers`).Scan(&summary.TotalCustomers)
	if err != nil {
		return summary, err
	}

	var revenue sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)::bigint, COALESCE(SUM(final_amount), 0)::text
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
	`, dayStart, dayEnd).Scan(&summary.TransactionsToday, &revenue)
	if err != nil {
		return summary, err
	}
	if revenue.Valid {
		parsed, err := decimal.NewFromString(revenue.String)
		if err != nil {
			return summary, err
		}
		summary.RevenueToday = parsed
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(ti.quantity), 0)::bigint
		FROM transaction_items ti
		JOIN transactions t ON t.id = ti.transaction_id
		WHERE t.created_at >= $1 AND t.created_at < $2
	`, dayStart, dayEnd).Scan(&summary.UnitsSoldToday)
	if err != nil {
		return summary, err
	}

	return summary, nil
}

func (s *Store) GetDailySales(ctx context.Context, from time.Time, to time.Time) ([]domain.DailySalesPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('day', created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD'),
			COALESCE(SUM(final_amount), 0)::text,
			COUNT(*)::bigint
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY 1
		ORDER BY 1
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]domain.DailySalesPoint, 0, 32)
	for rows.Next() {
		var point domain.DailySalesPoint
		var revenue string
		if err := rows.Scan(&point.Date, &revenue, &point.Transactions); err != nil {
			return nil, err
		}
		parsed, err := decimal.NewFromString(revenue)
		if err != nil {
			return nil, err
		}
		point.Revenue = parsed
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalid
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
