package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"printdesk/backend/internal/cache"
	"printdesk/backend/internal/domain"
	"printdesk/backend/internal/loyalty"
	"printdesk/backend/internal/store"
	"printdesk/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const rewardCacheTTL = 5 * time.Minute

type Service struct {
	repo    store.Repository
	rewards cache.RewardCache
}

func New(repo store.Repository, rewards cache.RewardCache) *Service {
	if rewards == nil {
		rewards = cache.NoopRewardCache{}
	}
	return &Service{repo: repo, rewards: rewards}
}

func (s *Service) RegisterCustomer(ctx context.Context, req domain.CustomerRegisterRequest) (domain.Customer, error) {
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.Name = strings.TrimSpace(req.Name)
	if !isValidMobile(req.Mobile) || req.Name == "" {
		return domain.Customer{}, store.ErrInvalid
	}

	// New accounts start with the mobile number as password so the shop can
	// register walk-in customers at the counter. The flag forces a password
	// change on first self-service login.
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Mobile), bcrypt.DefaultCost)
	if err != nil {
		return domain.Customer{}, err
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Mobile:            req.Mobile,
		Name:              req.Name,
		RoleID:            req.RoleID,
		Password:          string(hash),
		IsDefaultPassword: true,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_register", "customer", created.Mobile, fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) GetCustomer(ctx context.Context, mobile string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomerByMobile(ctx, strings.TrimSpace(mobile))
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.CustomerSummary, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return nil, err
	}

	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	offers, err := s.repo.ListOffers(ctx)
	if err != nil {
		return nil, err
	}

	roleNames := make(map[int64]string, len(roles))
	for _, role := range roles {
		roleNames[role.ID] = role.Name
	}

	summaries := make([]domain.CustomerSummary, 0, len(customers))
	for _, customer := range customers {
		summary := domain.CustomerSummary{Customer: customer}
		if customer.RoleID != nil {
			summary.RoleName = roleNames[*customer.RoleID]
		}

		states, err := s.computeRewardStates(ctx, customer, offers)
		if err != nil {
			return nil, err
		}
		if state, ok := states[domain.DefaultRewardCategory]; ok {
			summary.UsedUnits = state.TotalUnits
			summary.FreeEarned = state.FreeEarned
			summary.FreeRemaining = state.FreeRemaining
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, mobile string) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return store.ErrInvalid
	}
	if err := s.repo.DeleteCustomer(ctx, mobile); err != nil {
		return err
	}
	if err := s.rewards.Del(ctx, rewardCacheKey(mobile)); err != nil {
		log.Printf("[service] WARN: failed to drop reward cache mobile=%s: %v", mobile, err)
	}
	s.logAudit(ctx, "customer_delete", "customer", mobile, "")
	return nil
}

func (s *Service) ChangeCustomerPassword(ctx context.Context, mobile string, req domain.ChangePasswordRequest) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("authentication required")
	}
	mobile = strings.TrimSpace(mobile)
	if actor.Role == domain.RoleCustomer && actor.Subject != mobile {
		return fmt.Errorf("cannot change another customer's password")
	}
	if len(req.NewPassword) < 6 {
		return store.ErrInvalid
	}

	customer, err := s.repo.GetCustomerByMobile(ctx, mobile)
	if err != nil {
		return err
	}
	if actor.Role == domain.RoleCustomer {
		if err := bcrypt.CompareHashAndPassword([]byte(customer.Password), []byte(req.CurrentPassword)); err != nil {
			return fmt.Errorf("current password mismatch")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateCustomerPassword(ctx, mobile, string(hash), false); err != nil {
		return err
	}
	s.logAudit(ctx, "customer_password_change", "customer", mobile, "")
	return nil
}

func (s *Service) CreateRole(ctx context.Context, req domain.RoleCreateRequest) (domain.Role, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Role{}, err
	}
	req.Name = strings.ToUpper(strings.TrimSpace(req.Name))
	if req.Name == "" {
		return domain.Role{}, store.ErrInvalid
	}

	created, err := s.repo.CreateRole(ctx, domain.Role{Name: req.Name, CreatedAt: time.Now().UTC()})
	if err != nil {
		return domain.Role{}, err
	}
	s.logAudit(ctx, "role_create", "role", fmt.Sprintf("%d", created.ID), fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *Service) DeleteRole(ctx context.Context, roleID int64) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.DeleteRole(ctx, roleID); err != nil {
		if errors.Is(err, store.ErrInvalid) {
			return fmt.Errorf("%w: role is referenced by an offer", store.ErrInvalid)
		}
		return err
	}
	s.logAudit(ctx, "role_delete", "role", fmt.Sprintf("%d", roleID), "")
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.RewardCategory = strings.ToLower(strings.TrimSpace(req.RewardCategory))
	if req.Name == "" || req.UnitPrice.IsNegative() {
		return domain.Product{}, store.ErrInvalid
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:           req.Name,
		RewardCategory: req.RewardCategory,
		UnitPrice:      req.UnitPrice,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "product_create", "product", fmt.Sprintf("%d", created.ID), fmt.Sprintf("name=%s,price=%s", created.Name, created.UnitPrice.String()))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalid
		}
		updated.Name = name
	}
	if req.RewardCategory != nil {
		updated.RewardCategory = strings.ToLower(strings.TrimSpace(*req.RewardCategory))
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return domain.Product{}, store.ErrInvalid
		}
		updated.UnitPrice = *req.UnitPrice
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "product_update", "product", fmt.Sprintf("%d", saved.ID), fmt.Sprintf("active=%t,price=%s", saved.Active, saved.UnitPrice.String()))
	return *saved, nil
}

func (s *Service) CreateOffer(ctx context.Context, rule domain.OfferRule) (domain.OfferRule, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.OfferRule{}, err
	}
	if rule.BuyQuantity < 1 || rule.FreeQuantity < 1 {
		return domain.OfferRule{}, loyalty.ErrInvalidOfferConfig
	}

	rule.CreatedAt = time.Now().UTC()
	created, err := s.repo.CreateOffer(ctx, rule)
	if err != nil {
		return domain.OfferRule{}, err
	}
	s.logAudit(ctx, "offer_create", "offer", fmt.Sprintf("%d", created.ID), fmt.Sprintf("product=%d,buy=%d,free=%d", created.ProductID, created.BuyQuantity, created.FreeQuantity))
	return *created, nil
}

func (s *Service) ListOffers(ctx context.Context) ([]domain.OfferRule, error) {
	return s.repo.ListOffers(ctx)
}

func (s *Service) UpdateOffer(ctx context.Context, rule domain.OfferRule) (domain.OfferRule, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.OfferRule{}, err
	}
	if rule.BuyQuantity < 1 || rule.FreeQuantity < 1 {
		return domain.OfferRule{}, loyalty.ErrInvalidOfferConfig
	}

	saved, err := s.repo.UpdateOffer(ctx, rule)
	if err != nil {
		return domain.OfferRule{}, err
	}
	s.logAudit(ctx, "offer_update", "offer", fmt.Sprintf("%d", saved.ID), fmt.Sprintf("product=%d,buy=%d,free=%d", saved.ProductID, saved.BuyQuantity, saved.FreeQuantity))
	return *saved, nil
}

func (s *Service) DeleteOffer(ctx context.Context, offerID int64) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.DeleteOffer(ctx, offerID); err != nil {
		return err
	}
	s.logAudit(ctx, "offer_delete", "offer", fmt.Sprintf("%d", offerID), "")
	return nil
}

// CreateBill runs one counter sale: resolve the offer per line, redeem banked
// free units oldest-bill-first within the request, recompute the invoice,
// apply the best active promo, then persist the transaction together with the
// moved counters.
func (s *Service) CreateBill(ctx context.Context, req domain.BillRequest) (domain.BillResponse, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return domain.BillResponse{}, err
	}

	req.CustomerMobile = strings.TrimSpace(req.CustomerMobile)
	items := normalizeBillItems(req.Items)
	if req.CustomerMobile == "" || len(items) == 0 {
		return domain.BillResponse{}, store.ErrInvalid
	}

	customer, err := s.repo.GetCustomerByMobile(ctx, req.CustomerMobile)
	if err != nil {
		return domain.BillResponse{}, err
	}
	offers, err := s.repo.ListOffers(ctx)
	if err != nil {
		return domain.BillResponse{}, err
	}
	counters, err := s.loadCounters(ctx, customer.Mobile)
	if err != nil {
		return domain.BillResponse{}, err
	}

	availableFree := make(map[string]int, len(counters))
	for category, counter := range counters {
		availableFree[category] = counter.FreeRemaining
	}

	type categoryUsage struct {
		rule      *domain.OfferRule
		paidUnits int
		freeUnits int
	}
	usageByCategory := map[string]*categoryUsage{}
	categoryOrder := make([]string, 0, 4)

	splits := make([]loyalty.LineItemSplit, 0, len(items))
	txItems := make([]domain.TransactionItem, 0, len(items))
	for _, item := range items {
		product, err := s.repo.GetProductByID(ctx, item.ProductID)
		if err != nil {
			return domain.BillResponse{}, err
		}
		if !product.Active {
			return domain.BillResponse{}, fmt.Errorf("%w: product %d inactive", store.ErrInvalid, product.ID)
		}

		line := loyalty.LineItem{ProductID: product.ID, Quantity: item.Quantity, UnitPrice: product.UnitPrice}
		free := 0
		category := product.RewardCategory
		if category != "" {
			free = availableFree[category]
		}
		split, err := loyalty.SplitLineItem(line, free)
		if err != nil {
			return domain.BillResponse{}, err
		}

		if category != "" {
			availableFree[category] -= split.FreeQuantity
			usage := usageByCategory[category]
			if usage == nil {
				usage = &categoryUsage{rule: loyalty.ResolveOffer(product.ID, customer.RoleID, offers)}
				usageByCategory[category] = usage
				categoryOrder = append(categoryOrder, category)
			}
			usage.paidUnits += split.PaidQuantity
			usage.freeUnits += split.FreeQuantity
		}

		splits = append(splits, split)
		txItems = append(txItems, domain.TransactionItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			Category:     category,
			Quantity:     split.Quantity,
			PaidQuantity: split.PaidQuantity,
			FreeQuantity: split.FreeQuantity,
			UnitPrice:    split.UnitPrice,
			LineTotal:    split.LineTotal,
		})
	}

	totals := loyalty.ComputeInvoiceTotals(splits)
	promoDiscount, err := s.calculatePromoDiscount(ctx, totals.FinalAmount)
	if err != nil {
		return domain.BillResponse{}, err
	}
	finalAmount := totals.FinalAmount.Sub(promoDiscount)
	if finalAmount.IsNegative() {
		finalAmount = decimal.Zero
	}

	updatedCounters := make([]domain.UsageCounter, 0, len(categoryOrder))
	snapshots := make([]domain.RewardSnapshot, 0, len(categoryOrder))
	for _, category := range categoryOrder {
		usage := usageByCategory[category]
		counter, ok := counters[category]
		if !ok {
			counter = domain.UsageCounter{CustomerMobile: customer.Mobile, Category: category}
		}

		updated, granted, err := loyalty.ApplyPurchase(counter, usage.rule, usage.paidUnits, usage.freeUnits)
		if err != nil {
			return domain.BillResponse{}, err
		}
		state, warnings, err := loyalty.ComputeRewardState(updated, usage.rule)
		if err != nil {
			return domain.BillResponse{}, err
		}
		for _, w := range warnings {
			log.Printf("[loyalty] WARN: %s mobile=%s category=%s: %s", w.Code, customer.Mobile, category, w.Detail)
		}

		updatedCounters = append(updatedCounters, updated)
		snapshots = append(snapshots, domain.RewardSnapshot{
			Category:      category,
			PaidUnits:     usage.paidUnits,
			FreeUsed:      usage.freeUnits,
			FreeGranted:   granted,
			FreeRemaining: updated.FreeRemaining,
			FreeEarned:    state.FreeEarned,
		})
	}

	tx := domain.Transaction{
		ID:             xid.New("tx"),
		CustomerMobile: customer.Mobile,
		CustomerName:   customer.Name,
		Items:          txItems,
		SubTotal:       totals.SubTotal,
		OfferDiscount:  totals.Discount,
		PromoDiscount:  promoDiscount,
		FinalAmount:    finalAmount,
		Rewards:        snapshots,
		CreatedAt:      time.Now().UTC(),
	}

	created, err := s.repo.CreateTransaction(ctx, tx, updatedCounters)
	if err != nil {
		return domain.BillResponse{}, err
	}

	if err := s.rewards.Del(ctx, rewardCacheKey(customer.Mobile)); err != nil {
		log.Printf("[service] WARN: failed to drop reward cache mobile=%s: %v", customer.Mobile, err)
	}
	s.logAudit(ctx, "bill_create", "transaction", created.ID, fmt.Sprintf("customer=%s,final=%s,promo=%s", customer.Mobile, created.FinalAmount.String(), created.PromoDiscount.String()))

	states, err := s.CustomerRewards(ctx, customer.Mobile)
	if err != nil {
		return domain.BillResponse{}, err
	}
	return domain.BillResponse{Transaction: *created, Rewards: states}, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.repo.GetTransactionByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) ListTransactions(ctx context.Context, date string, limit int) ([]domain.Transaction, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	from, to, err := dayRange(date)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, from, to, limit)
}

// CustomerTransactions is the receipt-history view: the customer's recent
// bills plus the live reward state per category.
func (s *Service) CustomerTransactions(ctx context.Context, mobile string, limit int) (domain.CustomerTransactionsResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CustomerTransactionsResponse{}, fmt.Errorf("authentication required")
	}
	mobile = strings.TrimSpace(mobile)
	if actor.Role == domain.RoleCustomer && actor.Subject != mobile {
		return domain.CustomerTransactionsResponse{}, fmt.Errorf("cannot read another customer's transactions")
	}
	if limit < 1 {
		limit = 50
	}

	if _, err := s.repo.GetCustomerByMobile(ctx, mobile); err != nil {
		return domain.CustomerTransactionsResponse{}, err
	}
	transactions, err := s.repo.ListTransactionsByCustomer(ctx, mobile, limit)
	if err != nil {
		return domain.CustomerTransactionsResponse{}, err
	}
	states, err := s.CustomerRewards(ctx, mobile)
	if err != nil {
		return domain.CustomerTransactionsResponse{}, err
	}

	return domain.CustomerTransactionsResponse{Transactions: transactions, Rewards: states}, nil
}

// CustomerRewards recomputes the per-category reward state from the stored
// counters and the current offer set. Results are cached until the next bill.
func (s *Service) CustomerRewards(ctx context.Context, mobile string) (map[string]domain.RewardState, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return nil, store.ErrInvalid
	}

	if cached, ok, err := s.rewards.Get(ctx, rewardCacheKey(mobile)); err != nil {
		log.Printf("[service] WARN: reward cache read failed mobile=%s: %v", mobile, err)
	} else if ok {
		return cached, nil
	}

	customer, err := s.repo.GetCustomerByMobile(ctx, mobile)
	if err != nil {
		return nil, err
	}
	offers, err := s.repo.ListOffers(ctx)
	if err != nil {
		return nil, err
	}

	states, err := s.computeRewardStates(ctx, *customer, offers)
	if err != nil {
		return nil, err
	}

	if err := s.rewards.Set(ctx, rewardCacheKey(mobile), states, rewardCacheTTL); err != nil {
		log.Printf("[service] WARN: reward cache write failed mobile=%s: %v", mobile, err)
	}
	return states, nil
}

func (s *Service) computeRewardStates(ctx context.Context, customer domain.Customer, offers []domain.OfferRule) (map[string]domain.RewardState, error) {
	counters, err := s.repo.GetUsageCounters(ctx, customer.Mobile)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	// A category maps back to a rule through the first product carrying it.
	ruleByCategory := map[string]*domain.OfferRule{}
	for _, product := range products {
		if product.RewardCategory == "" {
			continue
		}
		if _, seen := ruleByCategory[product.RewardCategory]; seen {
			continue
		}
		ruleByCategory[product.RewardCategory] = loyalty.ResolveOffer(product.ID, customer.RoleID, offers)
	}

	states := make(map[string]domain.RewardState, len(counters))
	for _, counter := range counters {
		state, warnings, err := loyalty.ComputeRewardState(counter, ruleByCategory[counter.Category])
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			log.Printf("[loyalty] WARN: %s mobile=%s category=%s: %s", w.Code, customer.Mobile, counter.Category, w.Detail)
		}
		states[counter.Category] = state
	}
	return states, nil
}

func (s *Service) loadCounters(ctx context.Context, mobile string) (map[string]domain.UsageCounter, error) {
	counters, err := s.repo.GetUsageCounters(ctx, mobile)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[string]domain.UsageCounter, len(counters))
	for _, counter := range counters {
		byCategory[counter.Category] = counter
	}
	return byCategory, nil
}

func (s *Service) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return domain.DashboardSummary{}, err
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.repo.GetDashboardSummary(ctx, dayStart, dayStart.Add(24*time.Hour))
}

func (s *Service) DailySalesChart(ctx context.Context, days int) ([]domain.DailySalesPoint, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleStaff); err != nil {
		return nil, err
	}
	if days < 1 || days > 90 {
		days = 7
	}

	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	from := to.Add(-time.Duration(days) * 24 * time.Hour)
	return s.repo.GetDailySales(ctx, from, to)
}

func (s *Service) CreatePromo(ctx context.Context, req domain.PromoCreateRequest) (domain.PromoRule, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.PromoRule{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Type = strings.TrimSpace(req.Type)
	if req.Name == "" || req.MinSubtotal.IsNegative() {
		return domain.PromoRule{}, store.ErrInvalid
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 || req.FlatDiscount.IsNegative() {
		return domain.PromoRule{}, store.ErrInvalid
	}
	switch req.Type {
	case domain.PromoTypeCartPercent:
		if req.DiscountPercent <= 0 {
			return domain.PromoRule{}, store.ErrInvalid
		}
	case domain.PromoTypeFlatCart:
		if !req.FlatDiscount.IsPositive() {
			return domain.PromoRule{}, store.ErrInvalid
		}
	default:
		return domain.PromoRule{}, store.ErrInvalid
	}

	saved, err := s.repo.CreatePromo(ctx, domain.PromoRule{
		ID:              xid.New("promo"),
		Name:            req.Name,
		Type:            req.Type,
		MinSubtotal:     req.MinSubtotal,
		DiscountPercent: req.DiscountPercent,
		FlatDiscount:    req.FlatDiscount,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		return domain.PromoRule{}, err
	}
	s.logAudit(ctx, "promo_create", "promo", saved.ID, fmt.Sprintf("type=%s,name=%s", saved.Type, saved.Name))
	return *saved, nil
}

func (s *Service) ListPromos(ctx context.Context) ([]domain.PromoRule, error) {
	return s.repo.ListPromos(ctx)
}

func (s *Service) ListActivePromos(ctx context.Context) ([]domain.PromoRule, error) {
	promos, err := s.repo.ListPromos(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]domain.PromoRule, 0, len(promos))
	for _, promo := range promos {
		if promo.Active {
			active = append(active, promo)
		}
	}
	return active, nil
}

func (s *Service) SetPromoActive(ctx context.Context, promoID string, active bool) (domain.PromoRule, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.PromoRule{}, err
	}

	rule, err := s.repo.UpdatePromoActive(ctx, promoID, active)
	if err != nil {
		return domain.PromoRule{}, err
	}
	s.logAudit(ctx, "promo_toggle", "promo", promoID, fmt.Sprintf("active=%t", active))
	return *rule, nil
}

func (s *Service) GetContentSection(ctx context.Context, name string) (domain.ContentSection, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return domain.ContentSection{}, store.ErrInvalid
	}
	section, err := s.repo.GetContentSection(ctx, name)
	if err != nil {
		return domain.ContentSection{}, err
	}
	return *section, nil
}

func (s *Service) PutContentSection(ctx context.Context, name string, payload json.RawMessage) (domain.ContentSection, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.ContentSection{}, err
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || !json.Valid(payload) {
		return domain.ContentSection{}, store.ErrInvalid
	}

	actor, _ := ActorFromContext(ctx)
	section := domain.ContentSection{
		Name:      name,
		Payload:   payload,
		UpdatedBy: actor.Subject,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.PutContentSection(ctx, section); err != nil {
		return domain.ContentSection{}, err
	}
	s.logAudit(ctx, "content_update", "content_section", name, fmt.Sprintf("bytes=%d", len(payload)))
	return section, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	from, to, err := dayRange(date)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) calculatePromoDiscount(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, nil
	}

	promos, err := s.repo.ListPromos(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	best := decimal.Zero
	for _, rule := range promos {
		if !rule.Active || amount.LessThan(rule.MinSubtotal) {
			continue
		}

		discount := decimal.Zero
		switch rule.Type {
		case domain.PromoTypeCartPercent:
			discount = amount.Mul(decimal.NewFromFloat(rule.DiscountPercent)).Div(decimal.NewFromInt(100)).Round(2)
		case domain.PromoTypeFlatCart:
			discount = rule.FlatDiscount
		}

		if discount.GreaterThan(best) {
			best = discount
		}
	}
	if best.GreaterThan(amount) {
		return amount, nil
	}
	return best, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Subject: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Subject,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func requireRole(ctx context.Context, roles ...string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("authentication required")
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%s role required", strings.Join(roles, " or "))
}

func normalizeBillItems(items []domain.BillItem) []domain.BillItem {
	agg := make(map[int64]int, len(items))
	order := make([]int64, 0, len(items))
	for _, item := range items {
		if item.ProductID < 1 || item.Quantity < 1 {
			continue
		}
		if _, seen := agg[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		agg[item.ProductID] += item.Quantity
	}

	normalized := make([]domain.BillItem, 0, len(order))
	for _, id := range order {
		normalized = append(normalized, domain.BillItem{ProductID: id, Quantity: agg[id]})
	}
	return normalized
}

func dayRange(date string) (time.Time, time.Time, error) {
	var from time.Time
	if strings.TrimSpace(date) == "" {
		now := time.Now().UTC()
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return time.Time{}, time.Time{}, store.ErrInvalid
		}
		from = parsed.UTC()
	}
	return from, from.Add(24 * time.Hour), nil
}

func rewardCacheKey(mobile string) string {
	return "rewards:" + mobile
}

func isValidMobile(mobile string) bool {
	if len(mobile) < 10 || len(mobile) > 15 {
		return false
	}
	for _, r := range mobile {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
