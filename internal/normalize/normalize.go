// Package normalize converts the legacy console's loosely-typed wire shapes
// into the canonical domain schema. The old frontend mixed snake_case and
// camelCase field names (buy_quantity vs buyQuantity) and submitted numbers
// as strings; all of that tolerance lives here, at the boundary, so the
// loyalty engine and stores only ever see one shape.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"printdesk/backend/internal/domain"
)

// flexInt decodes a JSON number, a numeric string, or null.
type flexInt struct {
	value int64
	set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("numeric string expected, got %q", s)
		}
		f.value = parsed
		f.set = true
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	parsed, err := n.Int64()
	if err != nil {
		return fmt.Errorf("integer expected, got %s", n)
	}
	f.value = parsed
	f.set = true
	return nil
}

func firstSet(values ...flexInt) flexInt {
	for _, v := range values {
		if v.set {
			return v
		}
	}
	return flexInt{}
}

type offerWire struct {
	ID            flexInt `json:"id"`
	ProductSnake  flexInt `json:"product_id"`
	ProductCamel  flexInt `json:"productId"`
	RoleSnake     flexInt `json:"role_id"`
	RoleCamel     flexInt `json:"roleId"`
	BuySnake      flexInt `json:"buy_quantity"`
	BuyCamel      flexInt `json:"buyQuantity"`
	FreeQtySnake  flexInt `json:"free_quantity"`
	FreeQtyCamel  flexInt `json:"freeQuantity"`
}

// Offer decodes one offer payload in either naming convention. A missing or
// null role is a role-agnostic rule; a missing product is an error.
func Offer(data []byte) (domain.OfferRule, error) {
	var wire offerWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return domain.OfferRule{}, fmt.Errorf("decode offer: %w", err)
	}

	product := firstSet(wire.ProductSnake, wire.ProductCamel)
	if !product.set {
		return domain.OfferRule{}, fmt.Errorf("decode offer: product id is required")
	}

	rule := domain.OfferRule{
		ProductID:    product.value,
		BuyQuantity:  int(firstSet(wire.BuySnake, wire.BuyCamel).value),
		FreeQuantity: int(firstSet(wire.FreeQtySnake, wire.FreeQtyCamel).value),
	}
	if wire.ID.set {
		rule.ID = wire.ID.value
	}
	if role := firstSet(wire.RoleSnake, wire.RoleCamel); role.set {
		roleID := role.value
		rule.RoleID = &roleID
	}
	return rule, nil
}

type counterWire struct {
	TotalCamel flexInt `json:"totalPrinted"`
	TotalSnake flexInt `json:"total_printed"`
	PaidSnake  flexInt `json:"paid_total"`
	PaidCamel  flexInt `json:"paidTotal"`
	FreeSnake  flexInt `json:"free_remaining"`
	FreeCamel  flexInt `json:"freeRemaining"`
	Category   string  `json:"category"`
}

// Counter decodes a usage-counter payload in either naming convention.
// Absent fields default to zero, matching the old console's Number(x || 0)
// coercion.
func Counter(data []byte) (domain.UsageCounter, error) {
	var wire counterWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return domain.UsageCounter{}, fmt.Errorf("decode counter: %w", err)
	}
	counter := domain.UsageCounter{
		Category:      wire.Category,
		TotalUnits:    int(firstSet(wire.TotalCamel, wire.TotalSnake).value),
		PaidUnits:     int(firstSet(wire.PaidSnake, wire.PaidCamel).value),
		FreeRemaining: int(firstSet(wire.FreeSnake, wire.FreeCamel).value),
	}
	if counter.Category == "" {
		counter.Category = domain.DefaultRewardCategory
	}
	return counter, nil
}
