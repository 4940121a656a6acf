package market

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/models"
)

func TestCreateSlot(t *testing.T) {
	svc, _ := newTestService(t)

	slot := setupPublisherWithSlot(t, svc)

	if slot.Width != 728 || slot.Height != 90 {
		t.Errorf("expected banner dimensions 728x90, got %dx%d", slot.Width, slot.Height)
	}
	if !slot.Active {
		t.Error("expected new slot to be active")
	}

	// The publisher was created lazily.
	pub, err := svc.Store().GetPublisherByWallet(context.Background(), testPublisherWallet)
	if err != nil {
		t.Fatalf("GetPublisherByWallet() error = %v", err)
	}
	if pub.ID != slot.PublisherID {
		t.Errorf("slot owned by %s, expected %s", slot.PublisherID, pub.ID)
	}
}

func TestCreateSlot_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		req  CreateSlotRequest
	}{
		{"bad wallet", CreateSlotRequest{PublisherWallet: "nope", SlotIdentifier: "x", Size: models.SlotBanner}},
		{"empty identifier", CreateSlotRequest{PublisherWallet: testPublisherWallet, Size: models.SlotBanner}},
		{"unknown size", CreateSlotRequest{PublisherWallet: testPublisherWallet, SlotIdentifier: "x", Size: "billboard"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateSlot(context.Background(), tt.req); !errors.Is(err, config.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestDisableSlot(t *testing.T) {
	svc, _ := newTestService(t)
	slot := setupPublisherWithSlot(t, svc)

	if err := svc.DisableSlot(context.Background(), testPublisherWallet, slot.ID); err != nil {
		t.Fatalf("DisableSlot() error = %v", err)
	}

	active, err := svc.ListSlots(context.Background(), testPublisherWallet, true)
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active slots, got %d", len(active))
	}

	// Bids against a disabled slot type are refused.
	_, err = svc.CreateBid(context.Background(), CreateBidRequest{
		PublisherID:      slot.PublisherID,
		SlotType:         slot.SlotIdentifier,
		AdvertiserWallet: testAdvertiserWallet,
		BidAmount:        decimal.NewFromInt(1),
		DurationMinutes:  30,
		ContentHash:      "https://cdn.example.com/ad.png",
	})
	if !errors.Is(err, config.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for disabled slot, got %v", err)
	}
}

func TestDisableSlot_OwnershipEnforced(t *testing.T) {
	svc, _ := newTestService(t)
	slot := setupPublisherWithSlot(t, svc)

	other := "0xdddd000000000000000000000000000000000004"
	if _, err := svc.CreateSlot(context.Background(), CreateSlotRequest{
		PublisherWallet: other,
		SlotIdentifier:  "sidebar",
		Size:            models.SlotSidebar,
	}); err != nil {
		t.Fatalf("CreateSlot() error = %v", err)
	}

	if err := svc.DisableSlot(context.Background(), other, slot.ID); !errors.Is(err, config.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
