package memory

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"printdesk/backend/internal/domain"
	"printdesk/backend/internal/store"
	"printdesk/backend/internal/xid"
)

type Store struct {
	mu                sync.RWMutex
	customersByMobile map[string]domain.Customer
	rolesByID         map[int64]domain.Role
	nextRoleID        int64
	productsByID      map[int64]domain.Product
	nextProductID     int64
	offersByID        map[int64]domain.OfferRule
	nextOfferID       int64
	countersByMobile  map[string]map[string]domain.UsageCounter
	transactionsByID  map[string]*domain.Transaction
	promosByID        map[string]domain.PromoRule
	contentByName     map[string]domain.ContentSection
	auditLogs         []domain.AuditLog
	usersByUsername   map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory staff accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD. If
// unset, hardcoded dev defaults are used with a warning printed to stdout.
// These credentials are never used in production (the backend uses
// PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()

	roles := map[int64]domain.Role{
		1: {ID: 1, Name: "STUDENT", CreatedAt: now},
		2: {ID: 2, Name: "SHOPKEEPER", CreatedAt: now},
	}

	products := map[int64]domain.Product{
		1: {ID: 1, Name: "Xerox B/W Page", RewardCategory: domain.DefaultRewardCategory, UnitPrice: decimal.NewFromInt(2), Active: true, CreatedAt: now},
		2: {ID: 2, Name: "Xerox Color Page", RewardCategory: domain.DefaultRewardCategory, UnitPrice: decimal.NewFromInt(10), Active: true, CreatedAt: now},
		3: {ID: 3, Name: "Lamination A4", RewardCategory: "", UnitPrice: decimal.NewFromInt(30), Active: true, CreatedAt: now},
		4: {ID: 4, Name: "Spiral Binding", RewardCategory: "", UnitPrice: decimal.NewFromInt(50), Active: true, CreatedAt: now},
		5: {ID: 5, Name: "Passport Photo Set", RewardCategory: "", UnitPrice: decimal.NewFromInt(60), Active: true, CreatedAt: now},
	}

	offers := map[int64]domain.OfferRule{
		1: {ID: 1, ProductID: 1, RoleID: nil, BuyQuantity: 10, FreeQuantity: 1, CreatedAt: now},
	}

	content := map[string]domain.ContentSection{}
	for name, payload := range map[string]string{
		"navbar":     `{"brand":"PrintDesk","links":[{"label":"Home","href":"/"},{"label":"Offers","href":"/offers"}]}`,
		"banner":     `{"heading":"Print more, pay less","subheading":"Every 10th black and white page is on us","image":""}`,
		"top-hero":   `{"heading":"Same-day printing and binding","cta":"Order now","image":""}`,
		"top-picks":  `{"title":"Top Picks","productIds":[1,2,4]}`,
		"daily-best": `{"hero":{"heading":"Daily Best Deals","image":""},"productIds":[1,3]}`,
		"recipes":    `{"title":"How-to Guides","entries":[]}`,
		"why-choose": `{"title":"Why Choose Us","points":["Fast turnaround","Loyalty rewards","Student pricing"]}`,
		"top-offer":  `{"heading":"Buy 10 pages, get 1 free","active":true}`,
	} {
		content[name] = domain.ContentSection{
			Name:      name,
			Payload:   json.RawMessage(payload),
			UpdatedBy: "system",
			UpdatedAt: now,
		}
	}

	return &Store{
		customersByMobile: make(map[string]domain.Customer),
		rolesByID:         roles,
		nextRoleID:        int64(len(roles)),
		productsByID:      products,
		nextProductID:     int64(len(products)),
		offersByID:        offers,
		nextOfferID:       int64(len(offers)),
		countersByMobile:  make(map[string]map[string]domain.UsageCounter),
		transactionsByID:  make(map[string]*domain.Transaction),
		promosByID:        make(map[string]domain.PromoRule),
		contentByName:     content,
		auditLogs:         make([]domain.AuditLog, 0, 128),
		usersByUsername:   seedUsers(),
	}
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer.Mobile = strings.TrimSpace(customer.Mobile)
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Mobile == "" || customer.Name == "" || customer.Password == "" {
		return nil, store.ErrInvalid
	}
	if _, exists := s.customersByMobile[customer.Mobile]; exists {
		return nil, store.ErrDuplicate
	}
	if customer.RoleID != nil {
		if _, exists := s.rolesByID[*customer.RoleID]; !exists {
			return nil, store.ErrNotFound
		}
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	s.customersByMobile[customer.Mobile] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByMobile(_ context.Context, mobile string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customersByMobile[mobile]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByMobile))
	for _, c := range s.customersByMobile {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.Mobile, b.Mobile)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return customers, nil
}

func (s *Store) UpdateCustomerPassword(_ context.Context, mobile string, passwordHash string, isDefault bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mobile == "" || passwordHash == "" {
		return store.ErrInvalid
	}
	customer, exists := s.customersByMobile[mobile]
	if !exists {
		return store.ErrNotFound
	}
	customer.Password = passwordHash
	customer.IsDefaultPassword = isDefault
	s.customersByMobile[mobile] = customer
	return nil
}

func (s *Store) DeleteCustomer(_ context.Context, mobile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customersByMobile[mobile]; !exists {
		return store.ErrNotFound
	}
	delete(s.customersByMobile, mobile)
	delete(s.countersByMobile, mobile)
	return nil
}

func (s *Store) CreateRole(_ context.Context, role domain.Role) (*domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role.Name = strings.ToUpper(strings.TrimSpace(role.Name))
	if role.Name == "" {
		return nil, store.ErrInvalid
	}
	for _, existing := range s.rolesByID {
		if existing.Name == role.Name {
			return nil, store.ErrDuplicate
		}
	}
	s.nextRoleID++
	role.ID = s.nextRoleID
	if role.CreatedAt.IsZero() {
		role.CreatedAt = time.Now().UTC()
	}
	s.rolesByID[role.ID] = role
	created := role
	return &created, nil
}

func (s *Store) ListRoles(_ context.Context) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]domain.Role, 0, len(s.rolesByID))
	for _, r := range s.rolesByID {
		roles = append(roles, r)
	}
	slices.SortFunc(roles, func(a, b domain.Role) int {
		return int(a.ID - b.ID)
	})
	return roles, nil
}

func (s *Store) DeleteRole(_ context.Context, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rolesByID[roleID]; !exists {
		return store.ErrNotFound
	}
	for _, offer := range s.offersByID {
		if offer.RoleID != nil && *offer.RoleID == roleID {
			return store.ErrInvalid
		}
	}
	delete(s.rolesByID, roleID)
	return nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" || product.UnitPrice.IsNegative() {
		return nil, store.ErrInvalid
	}
	s.nextProductID++
	product.ID = s.nextProductID
	product.Active = true
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, productID int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[productID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return int(a.ID - b.ID)
	})
	return products, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.UnitPrice.IsNegative() {
		return nil, store.ErrInvalid
	}
	if _, exists := s.productsByID[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) CreateOffer(_ context.Context, rule domain.OfferRule) (*domain.OfferRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.BuyQuantity < 1 || rule.FreeQuantity < 1 {
		return nil, store.ErrInvalid
	}
	if _, exists := s.productsByID[rule.ProductID]; !exists {
		return nil, store.ErrNotFound
	}
	if rule.RoleID != nil {
		if _, exists := s.rolesByID[*rule.RoleID]; !exists {
			return nil, store.ErrNotFound
		}
	}
	s.nextOfferID++
	rule.ID = s.nextOfferID
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	s.offersByID[rule.ID] = rule
	created := rule
	return &created, nil
}

func (s *Store) ListOffers(_ context.Context) ([]domain.OfferRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offers := make([]domain.OfferRule, 0, len(s.offersByID))
	for _, o := range s.offersByID {
		offers = append(offers, o)
	}
	slices.SortFunc(offers, func(a, b domain.OfferRule) int {
		return int(a.ID - b.ID)
	})
	return offers, nil
}

func (s *Store) UpdateOffer(_ context.Context, rule domain.OfferRule) (*domain.OfferRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.BuyQuantity < 1 || rule.FreeQuantity < 1 {
		return nil, store.ErrInvalid
	}
	if _, exists := s.offersByID[rule.ID]; !exists {
		return nil, store.ErrNotFound
	}
	if _, exists := s.productsByID[rule.ProductID]; !exists {
		return nil, store.ErrNotFound
	}
	if rule.RoleID != nil {
		if _, exists := s.rolesByID[*rule.RoleID]; !exists {
			return nil, store.ErrNotFound
		}
	}
	s.offersByID[rule.ID] = rule
	updated := rule
	return &updated, nil
}

func (s *Store) DeleteOffer(_ context.Context, offerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.offersByID[offerID]; !exists {
		return store.ErrNotFound
	}
	delete(s.offersByID, offerID)
	return nil
}

func (s *Store) GetUsageCounters(_ context.Context, mobile string) ([]domain.UsageCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := s.countersByMobile[mobile]
	counters := make([]domain.UsageCounter, 0, len(byCategory))
	for _, c := range byCategory {
		counters = append(counters, c)
	}
	slices.SortFunc(counters, func(a, b domain.UsageCounter) int {
		return cmpString(a.Category, b.Category)
	})
	return counters, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx domain.Transaction, counters []domain.UsageCounter) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.CustomerMobile == "" || len(tx.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if _, exists := s.customersByMobile[tx.CustomerMobile]; !exists {
		return nil, store.ErrNotFound
	}
	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	byCategory := s.countersByMobile[tx.CustomerMobile]
	if byCategory == nil {
		byCategory = make(map[string]domain.UsageCounter)
		s.countersByMobile[tx.CustomerMobile] = byCategory
	}
	for _, counter := range counters {
		if counter.CustomerMobile != tx.CustomerMobile || counter.Category == "" {
			return nil, store.ErrInvalid
		}
		byCategory[counter.Category] = counter
	}

	txCopy := cloneTransaction(&tx)
	s.transactionsByID[tx.ID] = txCopy
	return cloneTransaction(txCopy), nil
}

func (s *Store) GetTransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactionsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (s *Store) ListTransactionsByCustomer(_ context.Context, mobile string, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, 32)
	for _, tx := range s.transactionsByID {
		if tx.CustomerMobile != mobile {
			continue
		}
		result = append(result, *cloneTransaction(tx))
	}
	sortTransactionsNewestFirst(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListTransactions(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, 64)
	for _, tx := range s.transactionsByID {
		if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		result = append(result, *cloneTransaction(tx))
	}
	sortTransactionsNewestFirst(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreatePromo(_ context.Context, promo domain.PromoRule) (*domain.PromoRule, error) {
	if strings.TrimSpace(promo.Name) == "" {
		return nil, store.ErrInvalid
	}
	if promo.Type != domain.PromoTypeCartPercent && promo.Type != domain.PromoTypeFlatCart {
		return nil, store.ErrInvalid
	}
	if promo.Type == domain.PromoTypeCartPercent && promo.DiscountPercent <= 0 {
		return nil, store.ErrInvalid
	}
	if promo.Type == domain.PromoTypeFlatCart && !promo.FlatDiscount.IsPositive() {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if promo.ID == "" {
		promo.ID = xid.New("promo")
	}
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = time.Now().UTC()
	}
	promo.Active = true
	s.promosByID[promo.ID] = promo
	copyPromo := promo
	return &copyPromo, nil
}

func (s *Store) ListPromos(_ context.Context) ([]domain.PromoRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	promos := make([]domain.PromoRule, 0, len(s.promosByID))
	for _, promo := range s.promosByID {
		promos = append(promos, promo)
	}
	slices.SortFunc(promos, func(a, b domain.PromoRule) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return promos, nil
}

func (s *Store) UpdatePromoActive(_ context.Context, promoID string, active bool) (*domain.PromoRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	promo, exists := s.promosByID[promoID]
	if !exists {
		return nil, store.ErrNotFound
	}
	promo.Active = active
	s.promosByID[promoID] = promo
	copyPromo := promo
	return &copyPromo, nil
}

func (s *Store) GetContentSection(_ context.Context, name string) (*domain.ContentSection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	section, exists := s.contentByName[name]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySection := cloneContentSection(section)
	return &copySection, nil
}

func (s *Store) PutContentSection(_ context.Context, section domain.ContentSection) error {
	if strings.TrimSpace(section.Name) == "" || len(section.Payload) == 0 {
		return store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if section.UpdatedAt.IsZero() {
		section.UpdatedAt = time.Now().UTC()
	}
	s.contentByName[section.Name] = cloneContentSection(section)
	return nil
}

func (s *Store) GetDashboardSummary(_ context.Context, dayStart time.Time, dayEnd time.Time) (domain.DashboardSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.DashboardSummary{
		TotalCustomers: int64(len(s.customersByMobile)),
		RevenueToday:   decimal.Zero,
	}
	for _, tx := range s.transactionsByID {
		if tx.CreatedAt.Before(dayStart) || !tx.CreatedAt.Before(dayEnd) {
			continue
		}
		summary.TransactionsToday++
		summary.RevenueToday = summary.RevenueToday.Add(tx.FinalAmount)
		for _, item := range tx.Items {
			summary.UnitsSoldToday += int64(item.Quantity)
		}
	}
	return summary, nil
}

func (s *Store) GetDailySales(_ context.Context, from time.Time, to time.Time) ([]domain.DailySalesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDate := map[string]*domain.DailySalesPoint{}
	for _, tx := range s.transactionsByID {
		if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		date := tx.CreatedAt.UTC().Format("2006-01-02")
		point := byDate[date]
		if point == nil {
			point = &domain.DailySalesPoint{Date: date, Revenue: decimal.Zero}
			byDate[date] = point
		}
		point.Transactions++
		point.Revenue = point.Revenue.Add(tx.FinalAmount)
	}

	result := make([]domain.DailySalesPoint, 0, len(byDate))
	for _, point := range byDate {
		result = append(result, *point)
	}
	slices.SortFunc(result, func(a, b domain.DailySalesPoint) int {
		return cmpString(a.Date, b.Date)
	})
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalid
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrDuplicate
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalid
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func sortTransactionsNewestFirst(txs []domain.Transaction) {
	slices.SortFunc(txs, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneTransaction(src *domain.Transaction) *domain.Transaction {
	if src == nil {
		return nil
	}
	dup := *src
	dupItems := make([]domain.TransactionItem, len(src.Items))
	copy(dupItems, src.Items)
	dup.Items = dupItems
	dupRewards := make([]domain.RewardSnapshot, len(src.Rewards))
	copy(dupRewards, src.Rewards)
	dup.Rewards = dupRewards
	return &dup
}

func cloneContentSection(src domain.ContentSection) domain.ContentSection {
	dup := src
	payload := make(json.RawMessage, len(src.Payload))
	copy(payload, src.Payload)
	dup.Payload = payload
	return dup
}
