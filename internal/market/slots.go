package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/models"
)

// CreateSlotRequest is the validated payload for slot registration.
type CreateSlotRequest struct {
	PublisherWallet string
	SlotIdentifier  string
	Size            models.SlotSize
	BasePrice       decimal.Decimal
	Category        string
	WebsiteURL      string
}

func (r *CreateSlotRequest) validate() error {
	if !models.IsEVMAddress(r.PublisherWallet) {
		return fmt.Errorf("%w: publisherWallet must be a 0x-prefixed address", config.ErrInvalidInput)
	}
	if r.SlotIdentifier == "" || len(r.SlotIdentifier) > 100 {
		return fmt.Errorf("%w: slotIdentifier must be 1-100 characters", config.ErrInvalidInput)
	}
	if !models.IsValidSlotSize(r.Size) {
		return fmt.Errorf("%w: unsupported slot size %q", config.ErrInvalidInput, r.Size)
	}
	if r.BasePrice.IsNegative() {
		return fmt.Errorf("%w: base price must not be negative", config.ErrInvalidInput)
	}
	return nil
}

// CreateSlot registers an ad slot for a publisher, creating the
// publisher lazily on first reference. The slot identifier is unique
// within the publisher.
func (s *Service) CreateSlot(ctx context.Context, req CreateSlotRequest) (*models.AdSlot, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	pub, err := s.store.EnsurePublisher(ctx, models.NormalizeWallet(req.PublisherWallet))
	if err != nil {
		return nil, err
	}

	width, height := models.SlotDimensions(req.Size)

	slot := &models.AdSlot{
		ID:             uuid.NewString(),
		PublisherID:    pub.ID,
		SlotIdentifier: req.SlotIdentifier,
		Size:           req.Size,
		Width:          width,
		Height:         height,
		BasePrice:      req.BasePrice,
		Category:       req.Category,
		WebsiteURL:     req.WebsiteURL,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.store.InsertSlot(ctx, slot); err != nil {
		return nil, err
	}

	slog.Info("ad slot created",
		"slotId", slot.ID,
		"publisherId", pub.ID,
		"slotIdentifier", slot.SlotIdentifier,
		"size", slot.Size,
		"dimensions", fmt.Sprintf("%dx%d", width, height),
	)

	return slot, nil
}

// ListSlots returns a publisher's slots, optionally only active ones.
func (s *Service) ListSlots(ctx context.Context, publisherWallet string, activeOnly bool) ([]models.AdSlot, error) {
	pub, err := s.store.GetPublisherByWallet(ctx, models.NormalizeWallet(publisherWallet))
	if err != nil {
		return nil, err
	}
	return s.store.ListSlots(ctx, pub.ID, activeOnly)
}

// DisableSlot soft-disables a slot; placements already referencing it
// are untouched.
func (s *Service) DisableSlot(ctx context.Context, publisherWallet, slotID string) error {
	pub, err := s.store.GetPublisherByWallet(ctx, models.NormalizeWallet(publisherWallet))
	if err != nil {
		return err
	}

	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.PublisherID != pub.ID {
		return fmt.Errorf("%w: you can only disable your own slots", config.ErrForbidden)
	}

	return s.store.SetSlotActive(ctx, slotID, false)
}
