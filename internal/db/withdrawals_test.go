package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/models"
)

// earnRevenue runs a full allocation so the publisher has confirmed
// earnings to withdraw from.
func earnRevenue(t *testing.T, database *DB, pub *models.Publisher, slotIdentifier, amount string) {
	t.Helper()
	slot := seedSlot(t, database, pub.ID, slotIdentifier)
	bid := seedBid(t, database, pub.ID, slotIdentifier, amount)
	approveSeededBid(t, database, bid.ID, time.Now().UTC())
	if _, err := database.AllocateTopBid(context.Background(), allocationRequest(pub, slot, time.Now().UTC())); err != nil {
		t.Fatalf("AllocateTopBid() error = %v", err)
	}
}

func withdrawal(pub *models.Publisher, amount string) *models.Withdrawal {
	return &models.Withdrawal{
		ID:            uuid.NewString(),
		PublisherID:   pub.ID,
		WalletAddress: pub.WalletAddress,
		Amount:        decimal.RequireFromString(amount),
		Currency:      "USDC",
		Network:       models.NetworkAmoy,
		Status:        models.WithdrawalPending,
		RequestedAt:   time.Now().UTC(),
	}
}

func TestCreateWithdrawal(t *testing.T) {
	database := setupTestDB(t)
	pub := seedPublisher(t, database, "0xabc0000000000000000000000000000000000001")

	// 100 USDC bid at 5% fee leaves 95 USDC of earnings.
	earnRevenue(t, database, pub, "banner-top", "100")

	if err := database.CreateWithdrawal(context.Background(), withdrawal(pub, "40")); err != nil {
		t.Fatalf("CreateWithdrawal() error = %v", err)
	}

	totals, err := database.RevenueTotals(context.Background(), pub.ID)
	if err != nil {
		t.Fatalf("RevenueTotals() error = %v", err)
	}
	if !totals.PendingWithdrawals.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected 40 pending, got %s", totals.PendingWithdrawals)
	}
	if !totals.AvailableBalance().Equal(decimal.NewFromInt(55)) {
		t.Errorf("expected available 55, got %s", totals.AvailableBalance())
	}
}

func TestCreateWithdrawal_InsufficientBalance(t *testing.T) {
	database := setupTestDB(t)
	pub := seedPublisher(t, database, "0xabc0000000000000000000000000000000000001")

	earnRevenue(t, database, pub, "banner-top", "100")

	// A held withdrawal reduces the balance seen by the next request.
	if err := database.CreateWithdrawal(context.Background(), withdrawal(pub, "90")); err != nil {
		t.Fatalf("CreateWithdrawal() error = %v", err)
	}

	err := database.CreateWithdrawal(context.Background(), withdrawal(pub, "10"))
	if !errors.Is(err, config.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Only the first withdrawal exists.
	withdrawals, total, err := database.ListWithdrawals(context.Background(), pub.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListWithdrawals() error = %v", err)
	}
	if total != 1 || len(withdrawals) != 1 {
		t.Errorf("expected 1 withdrawal, got total=%d len=%d", total, len(withdrawals))
	}
}

func TestCreateWithdrawal_NoEarnings(t *testing.T) {
	database := setupTestDB(t)
	pub := seedPublisher(t, database, "0xabc0000000000000000000000000000000000001")

	err := database.CreateWithdrawal(context.Background(), withdrawal(pub, "10"))
	if !errors.Is(err, config.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestListPayments(t *testing.T) {
	database := setupTestDB(t)
	pub := seedPublisher(t, database, "0xabc0000000000000000000000000000000000001")

	earnRevenue(t, database, pub, "banner-top", "10")
	earnRevenue(t, database, pub, "sidebar", "20")

	payments, total, err := database.ListPayments(context.Background(), pub.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListPayments() error = %v", err)
	}
	if total != 2 || len(payments) != 2 {
		t.Fatalf("expected 2 payments, got total=%d len=%d", total, len(payments))
	}
	for _, p := range payments {
		if !p.PlatformFee.Add(p.PublisherRevenue).Equal(p.Amount) {
			t.Errorf("payment %s: fee %s + revenue %s != amount %s", p.ID, p.PlatformFee, p.PublisherRevenue, p.Amount)
		}
	}
}
