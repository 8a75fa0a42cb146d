// Package loyalty implements the buy-N-get-M rewards engine: offer
// resolution, accrual bookkeeping and invoice line splitting. Every function
// here is a pure transform over caller-supplied values; reads and writes of
// counters and rules belong to the store, and the engine never touches
// ambient session state.
package loyalty

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"printdesk/backend/internal/domain"
)

var (
	// ErrInvalidInput marks malformed counts or prices. Callers must reject
	// the operation before billing.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidOfferConfig marks a stored rule with non-positive buy or
	// free quantities. Callers treat it as "no offer" and surface it to an
	// administrator.
	ErrInvalidOfferConfig = errors.New("invalid offer configuration")
)

// Warning is a recoverable data anomaly the caller should report but not
// fail on.
type Warning struct {
	Code   string
	Detail string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Detail)
}

const WarnDataInconsistency = "data_inconsistency"

// ResolveOffer picks the rule governing one product for one customer role.
// A role-specific rule beats a role-agnostic one; with no match the result
// is nil and every unit is paid. Deterministic, side-effect free, and it
// never fails: unresolvable input simply yields no offer.
func ResolveOffer(productID int64, roleID *int64, rules []domain.OfferRule) *domain.OfferRule {
	var fallback *domain.OfferRule
	for i := range rules {
		rule := &rules[i]
		if rule.ProductID != productID {
			continue
		}
		if rule.RoleID == nil {
			if fallback == nil {
				fallback = rule
			}
			continue
		}
		if roleID != nil && *rule.RoleID == *roleID {
			return rule
		}
	}
	return fallback
}

// ComputeRewardState derives the reward summary for one usage counter under
// the resolved rule. With a nil rule the state is zeroed except for the
// banked FreeRemaining, which stays redeemable even after an offer is
// withdrawn. A counter whose paid units exceed its total units is corrupt;
// the computation clamps free-used to zero and reports a DataInconsistency
// warning instead of failing.
func ComputeRewardState(counter domain.UsageCounter, rule *domain.OfferRule) (domain.RewardState, []Warning, error) {
	if counter.TotalUnits < 0 || counter.PaidUnits < 0 || counter.FreeRemaining < 0 {
		return domain.RewardState{}, nil, fmt.Errorf("%w: negative usage counter for %q", ErrInvalidInput, counter.Category)
	}

	state := domain.RewardState{
		Category:      counter.Category,
		TotalUnits:    counter.TotalUnits,
		FreeRemaining: counter.FreeRemaining,
	}
	if rule == nil {
		return state, nil, nil
	}
	if rule.BuyQuantity <= 0 || rule.FreeQuantity <= 0 {
		return domain.RewardState{}, nil, fmt.Errorf("%w: buy=%d free=%d", ErrInvalidOfferConfig, rule.BuyQuantity, rule.FreeQuantity)
	}

	var warnings []Warning
	freeUsed := counter.TotalUnits - counter.PaidUnits
	if freeUsed < 0 {
		warnings = append(warnings, Warning{
			Code:   WarnDataInconsistency,
			Detail: fmt.Sprintf("counter %q has paid_total %d above total_printed %d; clamping free_used to 0", counter.Category, counter.PaidUnits, counter.TotalUnits),
		})
		freeUsed = 0
	}

	state.FreeUsed = freeUsed
	state.FreeEarned = counter.FreeRemaining + freeUsed
	state.BuyQuantity = rule.BuyQuantity
	state.FreeQuantity = rule.FreeQuantity
	if rem := counter.PaidUnits % rule.BuyQuantity; rem != 0 {
		state.NextUnlockIn = rule.BuyQuantity - rem
	}
	return state, warnings, nil
}

// LineItem is one product line submitted for billing.
type LineItem struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineItemSplit is the paid/free breakdown of one line.
type LineItemSplit struct {
	ProductID    int64
	Quantity     int
	PaidQuantity int
	FreeQuantity int
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
}

// SplitLineItem redeems up to availableFree units against one line and
// prices the remainder. The summarizer holds no state: when an invoice has
// several lines of the same category the caller threads the decremented
// balance into each successive call.
func SplitLineItem(item LineItem, availableFree int) (LineItemSplit, error) {
	if item.Quantity <= 0 {
		return LineItemSplit{}, fmt.Errorf("%w: quantity %d for product %d", ErrInvalidInput, item.Quantity, item.ProductID)
	}
	if availableFree < 0 {
		return LineItemSplit{}, fmt.Errorf("%w: negative available free balance %d", ErrInvalidInput, availableFree)
	}
	if item.UnitPrice.IsNegative() {
		return LineItemSplit{}, fmt.Errorf("%w: negative unit price %s for product %d", ErrInvalidInput, item.UnitPrice, item.ProductID)
	}

	free := item.Quantity
	if availableFree < free {
		free = availableFree
	}
	paid := item.Quantity - free

	return LineItemSplit{
		ProductID:    item.ProductID,
		Quantity:     item.Quantity,
		PaidQuantity: paid,
		FreeQuantity: free,
		UnitPrice:    item.UnitPrice,
		LineTotal:    item.UnitPrice.Mul(decimal.NewFromInt(int64(paid))),
	}, nil
}

// InvoiceTotals is the gross/discount/net breakdown of one transaction.
type InvoiceTotals struct {
	SubTotal    decimal.Decimal
	Discount    decimal.Decimal
	FinalAmount decimal.Decimal
}

// ComputeInvoiceTotals folds line splits into invoice totals. SubTotal is
// gross (paid plus free units at list price), Discount is the value of the
// redeemed free units, and FinalAmount reconciles with the sum of the line
// totals.
func ComputeInvoiceTotals(items []LineItemSplit) InvoiceTotals {
	totals := InvoiceTotals{
		SubTotal:    decimal.Zero,
		Discount:    decimal.Zero,
		FinalAmount: decimal.Zero,
	}
	for _, item := range items {
		gross := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.PaidQuantity + item.FreeQuantity)))
		free := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.FreeQuantity)))
		totals.SubTotal = totals.SubTotal.Add(gross)
		totals.Discount = totals.Discount.Add(free)
	}
	totals.FinalAmount = totals.SubTotal.Sub(totals.Discount)
	return totals
}

// ApplyPurchase folds one billed line into a usage counter: redeemed free
// units come out of the banked balance, paid units advance the lifetime
// total, and every buy-quantity boundary the paid total crosses grants
// freeQuantity new units. Returns the updated counter and the number of
// units granted. Pure; the caller persists the result.
func ApplyPurchase(counter domain.UsageCounter, rule *domain.OfferRule, paidUnits int, freeUnits int) (domain.UsageCounter, int, error) {
	if paidUnits < 0 || freeUnits < 0 {
		return counter, 0, fmt.Errorf("%w: paid=%d free=%d", ErrInvalidInput, paidUnits, freeUnits)
	}
	if freeUnits > counter.FreeRemaining {
		return counter, 0, fmt.Errorf("%w: redeeming %d free units with %d banked", ErrInvalidInput, freeUnits, counter.FreeRemaining)
	}

	updated := counter
	updated.TotalUnits += paidUnits + freeUnits
	updated.PaidUnits += paidUnits
	updated.FreeRemaining -= freeUnits

	if rule == nil {
		return updated, 0, nil
	}
	if rule.BuyQuantity <= 0 || rule.FreeQuantity <= 0 {
		return counter, 0, fmt.Errorf("%w: buy=%d free=%d", ErrInvalidOfferConfig, rule.BuyQuantity, rule.FreeQuantity)
	}

	granted := (updated.PaidUnits/rule.BuyQuantity - counter.PaidUnits/rule.BuyQuantity) * rule.FreeQuantity
	if granted > 0 {
		updated.FreeRemaining += granted
	}
	return updated, granted, nil
}
