package market

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/models"
)

// AssignSlot allocates the top-ranked approved bid for a publisher's
// slot type and materializes a placement with its fee split. Ranking is
// bid amount descending, then approval time ascending, then bid id; it
// is recomputed from stored data on every call.
//
// The selection, placement/payment creation, and bid transition execute
// as one storage transaction. A transaction that loses a race is
// retried once, then surfaced as a conflict — never as a duplicate
// allocation.
func (s *Service) AssignSlot(ctx context.Context, publisherWallet, slotType string, slotStart *time.Time) (*models.AllocationResult, error) {
	pub, err := s.store.GetPublisherByWallet(ctx, models.NormalizeWallet(publisherWallet))
	if err != nil {
		return nil, err
	}

	slot, err := s.store.GetActiveSlot(ctx, pub.ID, slotType)
	if err != nil {
		return nil, err
	}

	start := time.Now().UTC()
	if slotStart != nil {
		start = slotStart.UTC()
	}

	req := AllocationRequest{
		Publisher:     pub,
		Slot:          slot,
		SlotStart:     start,
		FeePercentage: s.cfg.FeePercentage,
	}

	result, err := s.store.AllocateTopBid(ctx, req)
	if errors.Is(err, config.ErrConflict) {
		slog.Warn("allocation conflict, retrying once",
			"publisherId", pub.ID,
			"slotType", slotType,
		)
		result, err = s.store.AllocateTopBid(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("slot allocated",
		"bidId", result.BidID,
		"placementId", result.PlacementID,
		"publisherId", pub.ID,
		"slotType", slotType,
		"bidAmount", result.BidAmount.StringFixed(config.USDCDecimals),
		"platformFee", result.PlatformFee.StringFixed(config.USDCDecimals),
		"publisherRevenue", result.PublisherRevenue.StringFixed(config.USDCDecimals),
		"startsAt", result.StartsAt,
		"expiresAt", result.ExpiresAt,
	)

	return result, nil
}

// SweepCandidates reports, without mutating anything, which of a
// publisher's active slots are free and have an eligible next bid. An
// external scheduler is expected to follow up with AssignSlot.
func (s *Service) SweepCandidates(ctx context.Context, publisherWallet string) ([]models.SweepCandidate, error) {
	pub, err := s.store.GetPublisherByWallet(ctx, models.NormalizeWallet(publisherWallet))
	if err != nil {
		return nil, err
	}

	slots, err := s.store.ListSlots(ctx, pub.ID, true)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var candidates []models.SweepCandidate

	for _, slot := range slots {
		_, err := s.store.ActivePlacement(ctx, slot.ID, now)
		if err == nil {
			// Slot is occupied.
			continue
		}
		if !errors.Is(err, config.ErrNotFound) {
			return nil, err
		}

		next, _, err := s.store.ListApprovedBids(ctx, QueueFilter{
			PublisherID: pub.ID,
			SlotType:    slot.SlotIdentifier,
			Limit:       1,
		})
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			continue
		}

		candidates = append(candidates, models.SweepCandidate{
			SlotType:  slot.SlotIdentifier,
			BidID:     next[0].ID,
			BidAmount: next[0].BidAmount,
		})
	}

	return candidates, nil
}

// ExpirePlacements marks overdue placements expired and completes their
// bids. Invoked by the sweep command.
func (s *Service) ExpirePlacements(ctx context.Context) (int64, error) {
	n, err := s.store.ExpirePlacements(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("placements expired", "count", n)
	}
	return n, nil
}
