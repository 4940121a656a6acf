package market

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/models"
	"github.com/ad402/ad402/internal/verifier"
)

const (
	testPublisherWallet  = "0xaaaa000000000000000000000000000000000001"
	testAdvertiserWallet = "0xbbbb000000000000000000000000000000000002"
	testPlatformWallet   = "0xcccc000000000000000000000000000000000003"
)

// stubVerifier approves or rejects every verification request.
type stubVerifier struct {
	verified   bool
	diagnostic string
	calls      int
}

func (v *stubVerifier) Verify(_ context.Context, req verifier.Request) verifier.Result {
	v.calls++
	return verifier.Result{
		Verified:   v.verified,
		Amount:     req.ExpectedAmount,
		Diagnostic: v.diagnostic,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Network:        "polygon-amoy",
		PlatformWallet: testPlatformWallet,
		FeePercentage:  decimal.NewFromInt(5),
		MinWithdrawal:  decimal.NewFromInt(10),
	}
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := NewService(store, &stubVerifier{verified: true}, testConfig())
	return svc, store
}

// setupPublisherWithSlot registers the test publisher and one active
// banner slot named "banner-top".
func setupPublisherWithSlot(t *testing.T, svc *Service) *models.AdSlot {
	t.Helper()
	slot, err := svc.CreateSlot(context.Background(), CreateSlotRequest{
		PublisherWallet: testPublisherWallet,
		SlotIdentifier:  "banner-top",
		Size:            models.SlotBanner,
		BasePrice:       decimal.NewFromFloat(0.10),
	})
	if err != nil {
		t.Fatalf("CreateSlot() error = %v", err)
	}
	return slot
}

func placeBid(t *testing.T, svc *Service, slot *models.AdSlot, amount string) *models.Bid {
	t.Helper()
	bid, err := svc.CreateBid(context.Background(), CreateBidRequest{
		PublisherID:      slot.PublisherID,
		SlotType:         slot.SlotIdentifier,
		AdvertiserWallet: testAdvertiserWallet,
		BidAmount:        decimal.RequireFromString(amount),
		DurationMinutes:  60,
		ContentHash:      "https://cdn.example.com/ad.png",
		TransactionHash:  "0x" + uuid.NewString()[:8],
	})
	if err != nil {
		t.Fatalf("CreateBid() error = %v", err)
	}
	return bid
}

func approveBid(t *testing.T, svc *Service, bidID string) *models.Bid {
	t.Helper()
	bid, err := svc.ApproveBid(context.Background(), bidID, testPublisherWallet)
	if err != nil {
		t.Fatalf("ApproveBid() error = %v", err)
	}
	return bid
}
