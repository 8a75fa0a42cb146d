package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"printdesk/backend/internal/domain"
	"printdesk/backend/internal/loyalty"
	"printdesk/backend/internal/normalize"
	"printdesk/backend/internal/service"
	"printdesk/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		// Fall back to a deterministic secret if crypto/rand fails (should not happen in practice).
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

// generateCSRFToken returns a token valid for the current hour bucket.
func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken checks whether the provided token matches the current or
// previous hour bucket, giving a 2-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/auth/csrf-token", a.handleCSRFToken)
	mux.HandleFunc("/api/admin/login", a.handleAdminLogin)
	mux.HandleFunc("/api/customers/login", a.handleCustomerLogin)
	mux.HandleFunc("/api/customers/register", a.handleCustomerRegister)

	mux.HandleFunc("/api/products", a.handleProducts)
	mux.HandleFunc("/api/products/", a.requireAuth(a.handleProductActions, domain.RoleAdmin))
	mux.HandleFunc("/api/roles", a.handleRoles)
	mux.HandleFunc("/api/roles/", a.requireAuth(a.handleRoleActions, domain.RoleAdmin))
	mux.HandleFunc("/api/offers", a.handleOffers)
	mux.HandleFunc("/api/offers/", a.requireAuth(a.handleOfferActions, domain.RoleAdmin))
	mux.HandleFunc("/api/content/", a.handleContentSections)
	mux.HandleFunc("/api/promotions/active", a.handleActivePromotions)

	mux.HandleFunc("/api/customers", a.requireAuth(a.handleCustomers, domain.RoleStaff, domain.RoleAdmin))
	mux.HandleFunc("/api/customers/", a.requireAuth(a.handleCustomerActions, domain.RoleCustomer, domain.RoleStaff, domain.RoleAdmin))
	mux.HandleFunc("/api/transactions", a.requireAuth(a.handleTransactions, domain.RoleStaff, domain.RoleAdmin))
	mux.HandleFunc("/api/transactions/", a.requireAuth(a.handleTransactionActions, domain.RoleCustomer, domain.RoleStaff, domain.RoleAdmin))
	mux.HandleFunc("/api/dashboard/summary", a.requireAuth(a.handleDashboardSummary, domain.RoleStaff, domain.RoleAdmin))
	mux.HandleFunc("/api/dashboard/chart/daily", a.requireAuth(a.handleDailyChart, domain.RoleStaff, domain.RoleAdmin))
	mux.HandleFunc("/api/promotions", a.requireAuth(a.handlePromotions, domain.RoleAdmin))
	mux.HandleFunc("/api/promotions/", a.requireAuth(a.handlePromotionActions, domain.RoleAdmin))
	mux.HandleFunc("/api/audit-logs", a.requireAuth(a.handleAuditLogs, domain.RoleAdmin))
	mux.HandleFunc("/api/admin/users", a.requireAuth(a.handleStaffUsers, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := a.authenticate(w, r, roles...)
		if !ok {
			return
		}
		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func (a *API) authenticate(w http.ResponseWriter, r *http.Request, roles ...string) (domain.Actor, bool) {
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
		writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
		return domain.Actor{}, false
	}

	token := strings.TrimSpace(authorization[len("Bearer "):])
	actor, err := a.auth.ParseToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return domain.Actor{}, false
	}

	if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
		writeError(w, http.StatusForbidden, errors.New("forbidden role"))
		return domain.Actor{}, false
	}
	return actor, true
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients must include this token in the X-CSRF-Token header for all mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

func (a *API) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow("admin:" + clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCustomerLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow("customer:" + clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.CustomerLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.CustomerLogin(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCustomerRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.CustomerRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	customer, err := a.service.RegisterCustomer(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"customer": customer})
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := a.service.ListProducts(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		actor, ok := a.authenticate(w, r, domain.RoleAdmin)
		if !ok {
			return
		}

		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		product, err := a.service.CreateProduct(service.WithActor(r.Context(), actor), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeMethodNotAllowed(w)
		return
	}

	productID, ok := pathID(w, r, "/api/products/")
	if !ok {
		return
	}

	var req domain.ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := a.service.UpdateProduct(r.Context(), productID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": updated})
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		roles, err := a.service.ListRoles(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
	case http.MethodPost:
		actor, ok := a.authenticate(w, r, domain.RoleAdmin)
		if !ok {
			return
		}

		var req domain.RoleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		role, err := a.service.CreateRole(service.WithActor(r.Context(), actor), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"role": role})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleRoleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}

	roleID, ok := pathID(w, r, "/api/roles/")
	if !ok {
		return
	}

	if err := a.service.DeleteRole(r.Context(), roleID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Offer payloads arrive from two console generations with different field
// naming, so they are decoded through the normalize package instead of the
// strict decoder used everywhere else.
func (a *API) handleOffers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		offers, err := a.service.ListOffers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"offers": offers})
	case http.MethodPost:
		actor, ok := a.authenticate(w, r, domain.RoleAdmin)
		if !ok {
			return
		}

		rule, err := decodeOfferBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		created, err := a.service.CreateOffer(service.WithActor(r.Context(), actor), rule)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"offer": created})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleOfferActions(w http.ResponseWriter, r *http.Request) {
	offerID, ok := pathID(w, r, "/api/offers/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		rule, err := decodeOfferBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rule.ID = offerID

		updated, err := a.service.UpdateOffer(r.Context(), rule)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"offer": updated})
	case http.MethodDelete:
		if err := a.service.DeleteOffer(r.Context(), offerID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleContentSections(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/content/"
	name := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New("content section name required"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		section, err := a.service.GetContentSection(r.Context(), name)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"section": section})
	case http.MethodPut:
		actor, ok := a.authenticate(w, r, domain.RoleAdmin)
		if !ok {
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		section, err := a.service.PutContentSection(service.WithActor(r.Context(), actor), name, payload)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"section": section})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleActivePromotions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	promos, err := a.service.ListActivePromos(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"promotions": promos})
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	customers, err := a.service.ListCustomers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (a *API) handleCustomerActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/customers/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("customer mobile required"))
		return
	}

	if mobile, found := strings.CutSuffix(tail, "/password"); found {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.ChangePasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.service.ChangeCustomerPassword(r.Context(), strings.Trim(mobile, "/"), req); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if mobile, found := strings.CutSuffix(tail, "/rewards"); found {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		mobile = strings.Trim(mobile, "/")
		actor, _ := service.ActorFromContext(r.Context())
		if actor.Role == domain.RoleCustomer && actor.Subject != mobile {
			writeError(w, http.StatusForbidden, errors.New("forbidden"))
			return
		}
		states, err := a.service.CustomerRewards(r.Context(), mobile)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rewards": states})
		return
	}

	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.service.DeleteCustomer(r.Context(), tail); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		date := r.URL.Query().Get("date")
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)

		transactions, err := a.service.ListTransactions(r.Context(), date, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
	case http.MethodPost:
		var req domain.BillRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		resp, err := a.service.CreateBill(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleTransactionActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/transactions/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("transaction id required"))
		return
	}

	if mobile, found := strings.CutPrefix(tail, "customer/"); found {
		mobile = strings.Trim(mobile, "/")
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)

		resp, err := a.service.CustomerTransactions(r.Context(), mobile, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	actor, _ := service.ActorFromContext(r.Context())
	tx, err := a.service.GetTransaction(r.Context(), tail)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if actor.Role == domain.RoleCustomer && actor.Subject != tx.CustomerMobile {
		writeError(w, http.StatusForbidden, errors.New("forbidden"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

func (a *API) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	summary, err := a.service.DashboardSummary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleDailyChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	days := 7
	if dayParam := r.URL.Query().Get("days"); dayParam != "" {
		if parsed, err := strconv.Atoi(dayParam); err == nil {
			days = parsed
		}
	}

	points, err := a.service.DailySalesChart(r.Context(), days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

func (a *API) handlePromotions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		promos, err := a.service.ListPromos(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"promotions": promos})
	case http.MethodPost:
		var req domain.PromoCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		promo, err := a.service.CreatePromo(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"promotion": promo})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handlePromotionActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/promotions/"
	if !strings.HasSuffix(r.URL.Path, "/toggle") {
		writeError(w, http.StatusBadRequest, errors.New("invalid promotion action path"))
		return
	}
	promoID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix), "/toggle")
	promoID = strings.TrimSpace(strings.Trim(promoID, "/"))
	if promoID == "" {
		writeError(w, http.StatusBadRequest, errors.New("promotion id required"))
		return
	}

	var req domain.PromoToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	promo, err := a.service.SetPromoActive(r.Context(), promoID, req.Active)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"promotion": promo})
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	date := r.URL.Query().Get("date")
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)

	logs, err := a.service.ListAuditLogs(r.Context(), date, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) handleStaffUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"users": a.auth.ListStaff()})
	case http.MethodPost:
		var req domain.StaffCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		user, err := a.auth.CreateStaff(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	default:
		writeMethodNotAllowed(w)
	}
}

// csrfExemptPaths lists paths that are exempt from CSRF validation.
// Logins and registration are excluded because they are called without a
// prior CSRF token fetch.
var csrfExemptPaths = []string{
	"/api/admin/login",
	"/api/customers/login",
	"/api/customers/register",
}

// checkCSRF enforces CSRF token validation for state-changing methods (POST/PUT/PATCH/DELETE).
// Returns false and writes an error response if validation fails.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch && method != http.MethodDelete {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Enforce CSRF protection for all state-changing requests.
		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func decodeOfferBody(r *http.Request) (domain.OfferRule, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return domain.OfferRule{}, err
	}
	return normalize.Offer(body)
}

func pathID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("id required"))
		return 0, false
	}
	id, err := strconv.ParseInt(tail, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, errors.New("invalid id"))
		return 0, false
	}
	return id, true
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// writeServiceError maps service and store errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, store.ErrInvalid),
		errors.Is(err, loyalty.ErrInvalidInput),
		errors.Is(err, loyalty.ErrInvalidOfferConfig):
		writeError(w, http.StatusBadRequest, err)
	case strings.Contains(err.Error(), "role required"),
		strings.Contains(err.Error(), "authentication required"),
		strings.HasPrefix(err.Error(), "cannot "):
		writeError(w, http.StatusForbidden, err)
	default:
		writeError(w, http.StatusUnprocessableEntity, err)
	}
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
