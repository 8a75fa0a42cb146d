package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"printdesk/backend/internal/domain"
	"printdesk/backend/internal/store"
	"printdesk/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), nil)
}

func adminContext() context.Context {
	return WithActor(context.Background(), domain.Actor{Subject: "admin", Role: domain.RoleAdmin})
}

func staffContext() context.Context {
	return WithActor(context.Background(), domain.Actor{Subject: "counter", Role: domain.RoleStaff})
}

func registerTestCustomer(t *testing.T, svc *Service, mobile string, name string) domain.Customer {
	t.Helper()
	customer, err := svc.RegisterCustomer(context.Background(), domain.CustomerRegisterRequest{
		Mobile: mobile,
		Name:   name,
	})
	if err != nil {
		t.Fatalf("register customer failed: %v", err)
	}
	return customer
}

func TestRegisterCustomerRejectsBadMobile(t *testing.T) {
	svc := newTestService()

	_, err := svc.RegisterCustomer(context.Background(), domain.CustomerRegisterRequest{
		Mobile: "12ab",
		Name:   "Bad Mobile",
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for malformed mobile, got %v", err)
	}

	_, err = svc.RegisterCustomer(context.Background(), domain.CustomerRegisterRequest{
		Mobile: "9876543210",
		Name:   "   ",
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for blank name, got %v", err)
	}
}

func TestCreateBillRequiresCounterRole(t *testing.T) {
	svc := newTestService()
	registerTestCustomer(t, svc, "9000000010", "No Role")

	_, err := svc.CreateBill(context.Background(), domain.BillRequest{
		CustomerMobile: "9000000010",
		Items:          []domain.BillItem{{ProductID: 1, Quantity: 1}},
	})
	if err == nil {
		t.Fatalf("expected bill without an authenticated actor to fail")
	}

	customerCtx := WithActor(context.Background(), domain.Actor{Subject: "9000000010", Role: domain.RoleCustomer})
	_, err = svc.CreateBill(customerCtx, domain.BillRequest{
		CustomerMobile: "9000000010",
		Items:          []domain.BillItem{{ProductID: 1, Quantity: 1}},
	})
	if err == nil {
		t.Fatalf("expected bill from a customer actor to fail")
	}
}

func TestCreateBillGrantsFreeUnitAtThreshold(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	registerTestCustomer(t, svc, "9000000011", "Threshold")

	// Product 1 is priced 2 with a buy-10-get-1 offer.
	resp, err := svc.CreateBill(ctx, domain.BillRequest{
		CustomerMobile: "9000000011",
		Items:          []domain.BillItem{{ProductID: 1, Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("bill failed: %v", err)
	}

	if !resp.Transaction.SubTotal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected subtotal 20, got %s", resp.Transaction.SubTotal)
	}
	if !resp.Transaction.OfferDiscount.IsZero() {
		t.Fatalf("expected no offer discount on the accruing bill, got %s", resp.Transaction.OfferDiscount)
	}
	if !resp.Transaction.FinalAmount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected final amount 20, got %s", resp.Transaction.FinalAmount)
	}

	state, ok := resp.Rewards[domain.DefaultRewardCategory]
	if !ok {
		t.Fatalf("expected reward state for %s", domain.DefaultRewardCategory)
	}
	if state.FreeRemaining != 1 {
		t.Fatalf("expected 1 banked free unit, got %d", state.FreeRemaining)
	}
	if state.NextUnlockIn != 0 {
		t.Fatalf("expected next unlock 0 right at the boundary, got %d", state.NextUnlockIn)
	}
}

func TestCreateBillRedeemsBankedFreeUnit(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	registerTestCustomer(t, svc, "9000000012", "Redeemer")

	if _, err := svc.CreateBill(ctx, domain.BillRequest{
		CustomerMobile: "9000000012",
		Items:          []domain.BillItem{{ProductID: 1, Quantity: 10}},
	}); err != nil {
		t.Fatalf("accrual bill failed: %v", err)
	}

	resp, err := svc.CreateBill(ctx, domain.BillRequest{
		CustomerMobile: "9000000012",
		Items:          []domain.BillItem{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("redemption bill failed: %v", err)
	}

	if len(resp.Transaction.Items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(resp.Transaction.Items))
	}
	line := resp.Transaction.Items[0]
	if line.PaidQuantity != 0 || line.FreeQuantity != 1 {
		t.Fatalf("expected fully free line, got paid=%d free=%d", line.PaidQuantity, line.FreeQuantity)
	}
	if !resp.Transaction.OfferDiscount.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected offer discount 2, got %s", resp.Transaction.OfferDiscount)
	}
	if !resp.Transaction.FinalAmount.IsZero() {
		t.Fatalf("expected zero final amount, got %s", resp.Transaction.FinalAmount)
	}

	state := resp.Rewards[domain.DefaultRewardCategory]
	if state.FreeRemaining != 0 {
		t.Fatalf("expected banked balance spent, got %d", state.FreeRemaining)
	}
	if state.FreeUsed != 1 {
		t.Fatalf("expected 1 free unit used, got %d", state.FreeUsed)
	}
}

func TestCreateBillAggregatesDuplicateLines(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	registerTestCustomer(t, svc, "9000000013", "Duplicate Lines")

	resp, err := svc.CreateBill(ctx, domain.BillRequest{
		CustomerMobile: "9000000013",
		Items: []domain.BillItem{
			{ProductID: 1, Quantity: 4},
			{ProductID: 1, Quantity: 6},
		},
	})
	if err != nil {
		t.Fatalf("bill failed: %v", err)
	}

	if len(resp.Transaction.Items) != 1 {
		t.Fatalf("expected duplicate product lines to merge, got %d lines", len(resp.Transaction.Items))
	}
	if resp.Transaction.Items[0].Quantity != 10 {
		t.Fatalf("expected merged quantity 10, got %d", resp.Transaction.Items[0].Quantity)
	}
	if resp.Rewards[domain.DefaultRewardCategory].FreeRemaining != 1 {
		t.Fatalf("expected merged quantity to cross the grant boundary")
	}
}

func TestCreateBillRejectsUnknownProduct(t *testing.T) {
	svc := newTestService()
	ctx := staffContext()
	registerTestCustomer(t, svc, "9000000014", "Unknown Product")

	_, err := svc.CreateBill(ctx, domain.BillRequest{
		CustomerMobile: "9000000014",
		Items:          []domain.BillItem{{ProductID: 999, Quantity: 1}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown product, got %v", err)
	}
}

func TestPromoAppliedAfterOfferDiscount(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()
	registerTestCustomer(t, svc, "9000000015", "Promo")

	_, err := svc.CreatePromo(ctx, domain.PromoCreateRequest{
		Name:            "Weekend 10%",
		Type:            domain.PromoTypeCartPercent,
		MinSubtotal:     decimal.NewFromInt(10),
		DiscountPercent: 10,
	})
	if err != nil {
		t.Fatalf("create promo failed: %v", err)
	}

	resp, err := svc.CreateBill(ctx, domain.BillRequest{
		CustomerMobile: "9000000015",
		Items:          []domain.BillItem{{ProductID: 1, Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("bill failed: %v", err)
	}

	if !resp.Transaction.PromoDiscount.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected promo discount 2, got %s", resp.Transaction.PromoDiscount)
	}
	if !resp.Transaction.FinalAmount.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("expected final amount 18, got %s", resp.Transaction.FinalAmount)
	}
}

func TestPromoBelowMinSubtotalNotApplied(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()
	registerTestCustomer(t, svc, "9000000016", "Small Cart")

	_, err := svc.CreatePromo(ctx, domain.PromoCreateRequest{
		Name:         "Flat 5 Off",
		Type:         domain.PromoTypeFlatCart,
		MinSubtotal:  decimal.NewFromInt(50),
		FlatDiscount: decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("create promo failed: %v", err)
	}

	resp, err := svc.CreateBill(ctx, domain.BillRequest{
		CustomerMobile: "9000000016",
		Items:          []domain.BillItem{{ProductID: 1, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("bill failed: %v", err)
	}

	if !resp.Transaction.PromoDiscount.IsZero() {
		t.Fatalf("expected no promo below min subtotal, got %s", resp.Transaction.PromoDiscount)
	}
	if !resp.Transaction.FinalAmount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected final amount 10, got %s", resp.Transaction.FinalAmount)
	}
}

func TestDisabledPromoNotApplied(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()
	registerTestCustomer(t, svc, "9000000017", "Disabled Promo")

	promo, err := svc.CreatePromo(ctx, domain.PromoCreateRequest{
		Name:            "Paused 50%",
		Type:            domain.PromoTypeCartPercent,
		MinSubtotal:     decimal.NewFromInt(1),
		DiscountPercent: 50,
	})
	if err != nil {
		t.Fatalf("create promo failed: %v", err)
	}
	if _, err := svc.SetPromoActive(ctx, promo.ID, false); err != nil {
		t.Fatalf("disable promo failed: %v", err)
	}

	resp, err := svc.CreateBill(ctx, domain.BillRequest{
		CustomerMobile: "9000000017",
		Items:          []domain.BillItem{{ProductID: 1, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("bill failed: %v", err)
	}
	if !resp.Transaction.PromoDiscount.IsZero() {
		t.Fatalf("expected disabled promo to be skipped, got discount %s", resp.Transaction.PromoDiscount)
	}
}

func TestChangeCustomerPasswordSelfService(t *testing.T) {
	svc := newTestService()
	registerTestCustomer(t, svc, "9000000018", "Self Service")

	ctx := WithActor(context.Background(), domain.Actor{Subject: "9000000018", Role: domain.RoleCustomer})

	err := svc.ChangeCustomerPassword(ctx, "9000000018", domain.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "brandnew1",
	})
	if err == nil {
		t.Fatalf("expected wrong current password to fail")
	}

	// The default password is the mobile number itself.
	err = svc.ChangeCustomerPassword(ctx, "9000000018", domain.ChangePasswordRequest{
		CurrentPassword: "9000000018",
		NewPassword:     "brandnew1",
	})
	if err != nil {
		t.Fatalf("password change failed: %v", err)
	}

	customer, err := svc.GetCustomer(context.Background(), "9000000018")
	if err != nil {
		t.Fatalf("get customer failed: %v", err)
	}
	if customer.IsDefaultPassword {
		t.Fatalf("expected default-password flag cleared after change")
	}
}

func TestChangeCustomerPasswordRejectsOtherCustomer(t *testing.T) {
	svc := newTestService()
	registerTestCustomer(t, svc, "9000000019", "Victim")

	ctx := WithActor(context.Background(), domain.Actor{Subject: "9000000020", Role: domain.RoleCustomer})
	err := svc.ChangeCustomerPassword(ctx, "9000000019", domain.ChangePasswordRequest{
		CurrentPassword: "9000000019",
		NewPassword:     "hijacked1",
	})
	if err == nil {
		t.Fatalf("expected cross-customer password change to fail")
	}
}

func TestCustomerTransactionsEnforcesOwnership(t *testing.T) {
	svc := newTestService()
	registerTestCustomer(t, svc, "9000000021", "Owner")
	registerTestCustomer(t, svc, "9000000022", "Intruder")

	if _, err := svc.CreateBill(staffContext(), domain.BillRequest{
		CustomerMobile: "9000000021",
		Items:          []domain.BillItem{{ProductID: 1, Quantity: 2}},
	}); err != nil {
		t.Fatalf("bill failed: %v", err)
	}

	ownerCtx := WithActor(context.Background(), domain.Actor{Subject: "9000000021", Role: domain.RoleCustomer})
	resp, err := svc.CustomerTransactions(ownerCtx, "9000000021", 10)
	if err != nil {
		t.Fatalf("owner history failed: %v", err)
	}
	if len(resp.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(resp.Transactions))
	}

	intruderCtx := WithActor(context.Background(), domain.Actor{Subject: "9000000022", Role: domain.RoleCustomer})
	if _, err := svc.CustomerTransactions(intruderCtx, "9000000021", 10); err == nil {
		t.Fatalf("expected cross-customer history read to fail")
	}
}

func TestDeleteRoleReferencedByOfferRejected(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	role, err := svc.CreateRole(ctx, domain.RoleCreateRequest{Name: "FACULTY"})
	if err != nil {
		t.Fatalf("create role failed: %v", err)
	}

	roleID := role.ID
	if _, err := svc.CreateOffer(ctx, domain.OfferRule{
		ProductID:    1,
		RoleID:       &roleID,
		BuyQuantity:  5,
		FreeQuantity: 1,
	}); err != nil {
		t.Fatalf("create offer failed: %v", err)
	}

	if err := svc.DeleteRole(ctx, role.ID); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid deleting a role an offer references, got %v", err)
	}
}

func TestRoleSpecificOfferBeatsGeneric(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	role, err := svc.CreateRole(ctx, domain.RoleCreateRequest{Name: "BULK"})
	if err != nil {
		t.Fatalf("create role failed: %v", err)
	}
	roleID := role.ID

	// Product 1 already carries a generic buy-10-get-1 rule; add a
	// buy-5-get-1 rule for the new role.
	if _, err := svc.CreateOffer(ctx, domain.OfferRule{
		ProductID:    1,
		RoleID:       &roleID,
		BuyQuantity:  5,
		FreeQuantity: 1,
	}); err != nil {
		t.Fatalf("create offer failed: %v", err)
	}

	customer, err := svc.RegisterCustomer(context.Background(), domain.CustomerRegisterRequest{
		Mobile: "9000000023",
		Name:   "Bulk Buyer",
		RoleID: &roleID,
	})
	if err != nil {
		t.Fatalf("register customer failed: %v", err)
	}

	resp, err := svc.CreateBill(staffContext(), domain.BillRequest{
		CustomerMobile: customer.Mobile,
		Items:          []domain.BillItem{{ProductID: 1, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("bill failed: %v", err)
	}
	if resp.Rewards[domain.DefaultRewardCategory].FreeRemaining != 1 {
		t.Fatalf("expected role-specific rule to grant at 5 units")
	}
}

func TestCreateOfferRejectsBadQuantities(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	if _, err := svc.CreateOffer(ctx, domain.OfferRule{ProductID: 1, BuyQuantity: 0, FreeQuantity: 1}); err == nil {
		t.Fatalf("expected zero buy quantity to be rejected")
	}
	if _, err := svc.CreateOffer(ctx, domain.OfferRule{ProductID: 1, BuyQuantity: 10, FreeQuantity: -1}); err == nil {
		t.Fatalf("expected negative free quantity to be rejected")
	}
}

func TestDashboardSummaryCountsToday(t *testing.T) {
	svc := newTestService()
	registerTestCustomer(t, svc, "9000000024", "Dashboard")

	if _, err := svc.CreateBill(staffContext(), domain.BillRequest{
		CustomerMobile: "9000000024",
		Items:          []domain.BillItem{{ProductID: 1, Quantity: 10}},
	}); err != nil {
		t.Fatalf("bill failed: %v", err)
	}

	summary, err := svc.DashboardSummary(staffContext())
	if err != nil {
		t.Fatalf("dashboard summary failed: %v", err)
	}
	if summary.TransactionsToday != 1 {
		t.Fatalf("expected 1 transaction today, got %d", summary.TransactionsToday)
	}
	if !summary.RevenueToday.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected revenue 20 today, got %s", summary.RevenueToday)
	}
	if summary.UnitsSoldToday != 10 {
		t.Fatalf("expected 10 units sold today, got %d", summary.UnitsSoldToday)
	}
}

func TestPutContentSectionRejectsInvalidJSON(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	if _, err := svc.PutContentSection(ctx, "banner", []byte("{not json")); err == nil {
		t.Fatalf("expected invalid JSON payload to be rejected")
	}

	section, err := svc.PutContentSection(ctx, "Banner", []byte(`{"title":"Monsoon Sale"}`))
	if err != nil {
		t.Fatalf("put content failed: %v", err)
	}
	if section.Name != "banner" {
		t.Fatalf("expected section name lowercased, got %s", section.Name)
	}
	if section.UpdatedBy != "admin" {
		t.Fatalf("expected updated_by admin, got %s", section.UpdatedBy)
	}
}

func TestAuditLogsRecordedForBills(t *testing.T) {
	svc := newTestService()
	registerTestCustomer(t, svc, "9000000025", "Audited")

	if _, err := svc.CreateBill(adminContext(), domain.BillRequest{
		CustomerMobile: "9000000025",
		Items:          []domain.BillItem{{ProductID: 1, Quantity: 1}},
	}); err != nil {
		t.Fatalf("bill failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(adminContext(), "", 100)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}

	found := false
	for _, entry := range logs {
		if entry.Action == "bill_create" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected a bill_create audit entry")
	}
}
