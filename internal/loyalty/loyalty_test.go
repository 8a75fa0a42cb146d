package loyalty

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"printdesk/backend/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func TestResolveOfferPrefersRoleSpecificRule(t *testing.T) {
	rules := []domain.OfferRule{
		{ID: 1, ProductID: 1, RoleID: nil, BuyQuantity: 10, FreeQuantity: 1},
		{ID: 2, ProductID: 1, RoleID: int64Ptr(2), BuyQuantity: 5, FreeQuantity: 1},
	}

	rule := ResolveOffer(1, int64Ptr(2), rules)
	if rule == nil || rule.ID != 2 {
		t.Fatalf("expected role-specific rule 2, got %+v", rule)
	}

	rule = ResolveOffer(1, int64Ptr(9), rules)
	if rule == nil || rule.ID != 1 {
		t.Fatalf("expected role-agnostic rule 1 for unknown role, got %+v", rule)
	}

	rule = ResolveOffer(1, nil, rules)
	if rule == nil || rule.ID != 1 {
		t.Fatalf("expected role-agnostic rule 1 for nil role, got %+v", rule)
	}
}

func TestResolveOfferFailsClosed(t *testing.T) {
	rules := []domain.OfferRule{
		{ID: 1, ProductID: 7, RoleID: int64Ptr(3), BuyQuantity: 5, FreeQuantity: 1},
	}

	if rule := ResolveOffer(99, int64Ptr(3), rules); rule != nil {
		t.Fatalf("expected nil for unknown product, got %+v", rule)
	}
	// A role-specific rule for another role must not leak to other roles.
	if rule := ResolveOffer(7, int64Ptr(4), rules); rule != nil {
		t.Fatalf("expected nil when only a foreign role-specific rule exists, got %+v", rule)
	}
	if rule := ResolveOffer(7, nil, nil); rule != nil {
		t.Fatalf("expected nil for empty rule set, got %+v", rule)
	}
}

func TestComputeRewardStateExample(t *testing.T) {
	counter := domain.UsageCounter{Category: "xerox", TotalUnits: 23, PaidUnits: 20, FreeRemaining: 2}
	rule := &domain.OfferRule{ProductID: 1, BuyQuantity: 10, FreeQuantity: 1}

	state, warnings, err := ComputeRewardState(counter, rule)
	if err != nil {
		t.Fatalf("compute reward state: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if state.FreeUsed != 3 {
		t.Fatalf("expected free_used 3, got %d", state.FreeUsed)
	}
	if state.FreeEarned != 5 {
		t.Fatalf("expected free_earned 5, got %d", state.FreeEarned)
	}
	// 20 paid units sit exactly on the buy boundary, so nothing is pending.
	if state.NextUnlockIn != 0 {
		t.Fatalf("expected next_unlock_in 0 at boundary, got %d", state.NextUnlockIn)
	}
}

func TestComputeRewardStateMidCycle(t *testing.T) {
	counter := domain.UsageCounter{Category: "xerox", TotalUnits: 7, PaidUnits: 7}
	rule := &domain.OfferRule{BuyQuantity: 10, FreeQuantity: 1}

	state, _, err := ComputeRewardState(counter, rule)
	if err != nil {
		t.Fatalf("compute reward state: %v", err)
	}
	if state.NextUnlockIn != 3 {
		t.Fatalf("expected next_unlock_in 3, got %d", state.NextUnlockIn)
	}
	if state.FreeEarned != 0 {
		t.Fatalf("expected free_earned 0, got %d", state.FreeEarned)
	}
}

func TestComputeRewardStateNilRuleKeepsBankedBalance(t *testing.T) {
	counter := domain.UsageCounter{Category: "xerox", TotalUnits: 30, PaidUnits: 27, FreeRemaining: 4}

	state, warnings, err := ComputeRewardState(counter, nil)
	if err != nil {
		t.Fatalf("compute reward state: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if state.FreeRemaining != 4 {
		t.Fatalf("expected banked balance 4 to pass through, got %d", state.FreeRemaining)
	}
	if state.FreeEarned != 0 || state.NextUnlockIn != 0 || state.BuyQuantity != 0 {
		t.Fatalf("expected zeroed accrual fields without a rule, got %+v", state)
	}
}

func TestComputeRewardStateClampsCorruptCounter(t *testing.T) {
	counter := domain.UsageCounter{Category: "xerox", TotalUnits: 5, PaidUnits: 9, FreeRemaining: 0}
	rule := &domain.OfferRule{BuyQuantity: 10, FreeQuantity: 1}

	state, warnings, err := ComputeRewardState(counter, rule)
	if err != nil {
		t.Fatalf("expected clamp instead of error, got %v", err)
	}
	if state.FreeUsed != 0 || state.FreeEarned != 0 {
		t.Fatalf("expected clamped free figures, got %+v", state)
	}
	if len(warnings) != 1 || warnings[0].Code != WarnDataInconsistency {
		t.Fatalf("expected a data_inconsistency warning, got %v", warnings)
	}
}

func TestComputeRewardStateRejectsBadInput(t *testing.T) {
	_, _, err := ComputeRewardState(domain.UsageCounter{TotalUnits: -1}, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative counter, got %v", err)
	}

	_, _, err = ComputeRewardState(domain.UsageCounter{}, &domain.OfferRule{BuyQuantity: 0, FreeQuantity: 1})
	if !errors.Is(err, ErrInvalidOfferConfig) {
		t.Fatalf("expected ErrInvalidOfferConfig for zero buy quantity, got %v", err)
	}

	_, _, err = ComputeRewardState(domain.UsageCounter{}, &domain.OfferRule{BuyQuantity: 5, FreeQuantity: -1})
	if !errors.Is(err, ErrInvalidOfferConfig) {
		t.Fatalf("expected ErrInvalidOfferConfig for negative free quantity, got %v", err)
	}
}

func TestComputeRewardStateIsIdempotent(t *testing.T) {
	counter := domain.UsageCounter{Category: "xerox", TotalUnits: 14, PaidUnits: 12, FreeRemaining: 1}
	rule := &domain.OfferRule{BuyQuantity: 5, FreeQuantity: 2}

	first, _, err := ComputeRewardState(counter, rule)
	if err != nil {
		t.Fatalf("compute reward state: %v", err)
	}
	second, _, err := ComputeRewardState(counter, rule)
	if err != nil {
		t.Fatalf("compute reward state: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical results, got %+v then %+v", first, second)
	}
}

func TestSplitLineItemBoundaries(t *testing.T) {
	price := decimal.NewFromInt(2)

	split, err := SplitLineItem(LineItem{ProductID: 1, Quantity: 5, UnitPrice: price}, 0)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if split.PaidQuantity != 5 || split.FreeQuantity != 0 {
		t.Fatalf("expected 5 paid / 0 free, got %d/%d", split.PaidQuantity, split.FreeQuantity)
	}
	if !split.LineTotal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected line total 10, got %s", split.LineTotal)
	}

	split, err = SplitLineItem(LineItem{ProductID: 1, Quantity: 5, UnitPrice: price}, 8)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if split.PaidQuantity != 0 || split.FreeQuantity != 5 {
		t.Fatalf("expected 0 paid / 5 free, got %d/%d", split.PaidQuantity, split.FreeQuantity)
	}
	if !split.LineTotal.IsZero() {
		t.Fatalf("expected zero line total, got %s", split.LineTotal)
	}

	split, err = SplitLineItem(LineItem{ProductID: 1, Quantity: 5, UnitPrice: price}, 3)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if split.PaidQuantity != 2 || split.FreeQuantity != 3 {
		t.Fatalf("expected 2 paid / 3 free, got %d/%d", split.PaidQuantity, split.FreeQuantity)
	}
}

func TestSplitLineItemRejectsMalformedInput(t *testing.T) {
	_, err := SplitLineItem(LineItem{Quantity: 0, UnitPrice: decimal.NewFromInt(1)}, 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero quantity, got %v", err)
	}
	_, err = SplitLineItem(LineItem{Quantity: -2, UnitPrice: decimal.NewFromInt(1)}, 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative quantity, got %v", err)
	}
	_, err = SplitLineItem(LineItem{Quantity: 2, UnitPrice: decimal.NewFromInt(-1)}, 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative price, got %v", err)
	}
	_, err = SplitLineItem(LineItem{Quantity: 2, UnitPrice: decimal.NewFromInt(1)}, -1)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative free balance, got %v", err)
	}
}

func TestComputeInvoiceTotalsReconciles(t *testing.T) {
	items := []LineItemSplit{}
	lines := []struct {
		qty   int
		free  int
		price int64
	}{
		{qty: 10, free: 3, price: 2},
		{qty: 4, free: 0, price: 15},
		{qty: 6, free: 6, price: 5},
	}
	for i, line := range lines {
		split, err := SplitLineItem(LineItem{
			ProductID: int64(i + 1),
			Quantity:  line.qty,
			UnitPrice: decimal.NewFromInt(line.price),
		}, line.free)
		if err != nil {
			t.Fatalf("split line %d: %v", i, err)
		}
		items = append(items, split)
	}

	totals := ComputeInvoiceTotals(items)

	lineSum := decimal.Zero
	for _, item := range items {
		lineSum = lineSum.Add(item.LineTotal)
	}
	if !totals.FinalAmount.Equal(lineSum) {
		t.Fatalf("final amount %s does not reconcile with line totals %s", totals.FinalAmount, lineSum)
	}
	if !totals.SubTotal.Sub(totals.Discount).Equal(totals.FinalAmount) {
		t.Fatalf("sub_total %s - discount %s != final %s", totals.SubTotal, totals.Discount, totals.FinalAmount)
	}
	// 10*2 + 4*15 + 6*5 gross = 110; free value 3*2 + 6*5 = 36.
	if !totals.SubTotal.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("expected sub_total 110, got %s", totals.SubTotal)
	}
	if !totals.Discount.Equal(decimal.NewFromInt(36)) {
		t.Fatalf("expected discount 36, got %s", totals.Discount)
	}
}

func TestComputeInvoiceTotalsEmpty(t *testing.T) {
	totals := ComputeInvoiceTotals(nil)
	if !totals.SubTotal.IsZero() || !totals.Discount.IsZero() || !totals.FinalAmount.IsZero() {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

func TestApplyPurchaseGrantsAtBoundary(t *testing.T) {
	counter := domain.UsageCounter{Category: "xerox", TotalUnits: 8, PaidUnits: 8}
	rule := &domain.OfferRule{BuyQuantity: 10, FreeQuantity: 1}

	// 8 -> 13 paid units crosses the 10 boundary once.
	updated, granted, err := ApplyPurchase(counter, rule, 5, 0)
	if err != nil {
		t.Fatalf("apply purchase: %v", err)
	}
	if granted != 1 {
		t.Fatalf("expected 1 granted unit, got %d", granted)
	}
	if updated.PaidUnits != 13 || updated.TotalUnits != 13 || updated.FreeRemaining != 1 {
		t.Fatalf("unexpected counter %+v", updated)
	}

	// 13 -> 33 crosses two more boundaries.
	updated, granted, err = ApplyPurchase(updated, rule, 20, 0)
	if err != nil {
		t.Fatalf("apply purchase: %v", err)
	}
	if granted != 2 {
		t.Fatalf("expected 2 granted units, got %d", granted)
	}
	if updated.FreeRemaining != 3 {
		t.Fatalf("expected 3 banked units, got %d", updated.FreeRemaining)
	}
}

func TestApplyPurchaseRedemption(t *testing.T) {
	counter := domain.UsageCounter{Category: "xerox", TotalUnits: 20, PaidUnits: 18, FreeRemaining: 2}
	rule := &domain.OfferRule{BuyQuantity: 10, FreeQuantity: 1}

	updated, granted, err := ApplyPurchase(counter, rule, 2, 2)
	if err != nil {
		t.Fatalf("apply purchase: %v", err)
	}
	// 18 -> 20 paid crosses the boundary, granting one unit back.
	if granted != 1 {
		t.Fatalf("expected 1 granted unit, got %d", granted)
	}
	if updated.TotalUnits != 24 || updated.PaidUnits != 20 || updated.FreeRemaining != 1 {
		t.Fatalf("unexpected counter %+v", updated)
	}
}

func TestApplyPurchaseWithoutRuleStillRedeems(t *testing.T) {
	counter := domain.UsageCounter{Category: "xerox", TotalUnits: 12, PaidUnits: 10, FreeRemaining: 2}

	updated, granted, err := ApplyPurchase(counter, nil, 3, 1)
	if err != nil {
		t.Fatalf("apply purchase: %v", err)
	}
	if granted != 0 {
		t.Fatalf("expected no grant without a rule, got %d", granted)
	}
	if updated.FreeRemaining != 1 || updated.PaidUnits != 13 || updated.TotalUnits != 16 {
		t.Fatalf("unexpected counter %+v", updated)
	}
}

func TestApplyPurchaseRejectsOverRedemption(t *testing.T) {
	counter := domain.UsageCounter{Category: "xerox", FreeRemaining: 1}

	_, _, err := ApplyPurchase(counter, nil, 0, 2)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput when redeeming beyond the banked balance, got %v", err)
	}

	_, _, err = ApplyPurchase(counter, nil, -1, 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative paid units, got %v", err)
	}

	_, _, err = ApplyPurchase(counter, &domain.OfferRule{BuyQuantity: 0, FreeQuantity: 1}, 1, 0)
	if !errors.Is(err, ErrInvalidOfferConfig) {
		t.Fatalf("expected ErrInvalidOfferConfig, got %v", err)
	}
}

func TestRewardStateInvariantAcrossCounters(t *testing.T) {
	rule := &domain.OfferRule{BuyQuantity: 4, FreeQuantity: 1}
	for paid := 0; paid <= 20; paid++ {
		for extraFree := 0; extraFree <= 3; extraFree++ {
			counter := domain.UsageCounter{
				Category:      "xerox",
				TotalUnits:    paid + extraFree,
				PaidUnits:     paid,
				FreeRemaining: extraFree,
			}
			state, warnings, err := ComputeRewardState(counter, rule)
			if err != nil {
				t.Fatalf("paid=%d free=%d: %v", paid, extraFree, err)
			}
			if len(warnings) != 0 {
				t.Fatalf("paid=%d free=%d: unexpected warnings %v", paid, extraFree, warnings)
			}
			if state.FreeEarned != counter.FreeRemaining+(counter.TotalUnits-counter.PaidUnits) {
				t.Fatalf("paid=%d free=%d: free_earned %d breaks invariant", paid, extraFree, state.FreeEarned)
			}
			if state.FreeEarned < counter.FreeRemaining {
				t.Fatalf("paid=%d free=%d: free_earned below banked balance", paid, extraFree)
			}
			if state.NextUnlockIn < 0 || state.NextUnlockIn >= rule.BuyQuantity {
				t.Fatalf("paid=%d: next_unlock_in %d out of range", paid, state.NextUnlockIn)
			}
		}
	}
}
