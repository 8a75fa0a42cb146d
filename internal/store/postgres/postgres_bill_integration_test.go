package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"printdesk/backend/internal/domain"
)

func TestCreateTransactionUpsertsUsageCounters(t *testing.T) {
	databaseURL := os.Getenv("PRINTDESK_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set PRINTDESK_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	mobile := fmt.Sprintf("99%d", stamp%100000000)
	txID := fmt.Sprintf("tx-bill-it-%d", stamp)
	productName := fmt.Sprintf("Xerox IT %d", stamp)

	var productID int64

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transaction_items WHERE transaction_id = $1`, txID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, txID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM usage_counters WHERE customer_mobile = $1`, mobile)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM customers WHERE mobile = $1`, mobile)
		if productID != 0 {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
		}
	})

	if err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, reward_category, unit_price, active, created_at)
		VALUES ($1, 'xerox', 2, true, now())
		RETURNING id
	`, productName).Scan(&productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (mobile, name, role_id, password, is_default_password, created_at)
		VALUES ($1, 'Integration Customer', null, $1, true, now())
	`, mobile); err != nil {
		t.Fatalf("insert customer: %v", err)
	}

	price := decimal.NewFromInt(2)
	tx := domain.Transaction{
		ID:             txID,
		CustomerMobile: mobile,
		CustomerName:   "Integration Customer",
		Items: []domain.TransactionItem{
			{
				ProductID:    productID,
				ProductName:  productName,
				Category:     "xerox",
				Quantity:     10,
				PaidQuantity: 10,
				FreeQuantity: 0,
				UnitPrice:    price,
				LineTotal:    price.Mul(decimal.NewFromInt(10)),
			},
		},
		SubTotal:      price.Mul(decimal.NewFromInt(10)),
		OfferDiscount: decimal.Zero,
		PromoDiscount: decimal.Zero,
		FinalAmount:   price.Mul(decimal.NewFromInt(10)),
		Rewards: []domain.RewardSnapshot{
			{Category: "xerox", PaidUnits: 10, FreeGranted: 1, FreeRemaining: 1, FreeEarned: 1},
		},
		CreatedAt: time.Now().UTC(),
	}
	counters := []domain.UsageCounter{
		{CustomerMobile: mobile, Category: "xerox", TotalUnits: 10, PaidUnits: 10, FreeRemaining: 1},
	}

	if _, err := s.CreateTransaction(ctx, tx, counters); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	var totalUnits, paidUnits, freeRemaining int
	if err := s.db.QueryRowContext(ctx, `
		SELECT total_units, paid_units, free_remaining
		FROM usage_counters
		WHERE customer_mobile = $1 AND category = 'xerox'
	`, mobile).Scan(&totalUnits, &paidUnits, &freeRemaining); err != nil {
		t.Fatalf("query counter: %v", err)
	}
	if totalUnits != 10 || paidUnits != 10 || freeRemaining != 1 {
		t.Fatalf("expected counter 10/10/1, got %d/%d/%d", totalUnits, paidUnits, freeRemaining)
	}

	got, err := s.GetTransactionByID(ctx, txID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if len(got.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got.Items))
	}
	if len(got.Rewards) != 1 || got.Rewards[0].FreeRemaining != 1 {
		t.Fatalf("unexpected rewards snapshot: %+v", got.Rewards)
	}
	if !got.FinalAmount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected final amount 20, got %s", got.FinalAmount)
	}

	// Counters grow in place on the next bill for the same customer.
	tx2 := tx
	tx2.ID = txID + "-b"
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transaction_items WHERE transaction_id = $1`, tx2.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, tx2.ID)
	})
	counters2 := []domain.UsageCounter{
		{CustomerMobile: mobile, Category: "xerox", TotalUnits: 20, PaidUnits: 20, FreeRemaining: 2},
	}
	if _, err := s.CreateTransaction(ctx, tx2, counters2); err != nil {
		t.Fatalf("create second transaction: %v", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT total_units, paid_units, free_remaining
		FROM usage_counters
		WHERE customer_mobile = $1 AND category = 'xerox'
	`, mobile).Scan(&totalUnits, &paidUnits, &freeRemaining); err != nil {
		t.Fatalf("query counter after second bill: %v", err)
	}
	if totalUnits != 20 || paidUnits != 20 || freeRemaining != 2 {
		t.Fatalf("expected counter 20/20/2, got %d/%d/%d", totalUnits, paidUnits, freeRemaining)
	}
}
