package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/models"
)

// DefaultRejectionReason is recorded when a publisher rejects without
// giving one.
const DefaultRejectionReason = "Content not suitable"

// ApproveBid moves a bid from pending_approval into the allocation
// queue. Only the publisher owning the bid's slot may approve, and only
// when the payment has been verified. The approval-rate statistic is
// recomputed asynchronously; it is a derived counter, never consulted
// by the gate itself.
func (s *Service) ApproveBid(ctx context.Context, bidID, publisherWallet string) (*models.Bid, error) {
	pub, err := s.store.GetPublisherByWallet(ctx, models.NormalizeWallet(publisherWallet))
	if err != nil {
		return nil, err
	}

	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}

	if bid.PublisherID != pub.ID {
		return nil, fmt.Errorf("%w: you can only approve bids for your own slots", config.ErrForbidden)
	}

	if bid.Status != models.BidPendingApproval {
		return nil, fmt.Errorf("%w: cannot approve bid with status %q", config.ErrInvalidState, bid.Status)
	}

	if !bid.PaymentVerified {
		return nil, fmt.Errorf("%w: cannot approve bid without verified payment", config.ErrPaymentRequired)
	}

	ok, err := s.store.ApproveBid(ctx, bid.ID, pub.WalletAddress, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: bid %s changed state during approval", config.ErrConflict, bid.ID)
	}

	s.scheduleStatsRecompute(pub.ID)

	approved, err := s.store.GetBid(ctx, bid.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("bid approved",
		"bidId", approved.ID,
		"publisherId", pub.ID,
		"slotType", approved.SlotType,
		"bidAmount", approved.BidAmount.StringFixed(config.USDCDecimals),
	)

	return approved, nil
}

// RejectBid rejects a bid from pending_approval or approved. Rejection
// never touches bids that already hold a placement; cancelling a running
// placement is a separate concern. No refund is triggered here.
func (s *Service) RejectBid(ctx context.Context, bidID, publisherWallet, reason string) (*models.Bid, error) {
	pub, err := s.store.GetPublisherByWallet(ctx, models.NormalizeWallet(publisherWallet))
	if err != nil {
		return nil, err
	}

	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}

	if bid.PublisherID != pub.ID {
		return nil, fmt.Errorf("%w: you can only reject bids for your own slots", config.ErrForbidden)
	}

	if bid.Status != models.BidPendingApproval && bid.Status != models.BidApproved {
		return nil, fmt.Errorf("%w: cannot reject bid with status %q", config.ErrInvalidState, bid.Status)
	}

	if reason == "" {
		reason = DefaultRejectionReason
	}

	ok, err := s.store.RejectBid(ctx, bid.ID, reason, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: bid %s changed state during rejection", config.ErrConflict, bid.ID)
	}

	s.scheduleStatsRecompute(pub.ID)

	rejected, err := s.store.GetBid(ctx, bid.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("bid rejected",
		"bidId", rejected.ID,
		"publisherId", pub.ID,
		"reason", reason,
	)

	return rejected, nil
}

// scheduleStatsRecompute refreshes the publisher's approval rate in the
// background. The counter is eventually consistent.
func (s *Service) scheduleStatsRecompute(publisherID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.store.RecomputeApprovalRate(ctx, publisherID); err != nil {
			slog.Warn("approval rate recompute failed",
				"publisherId", publisherID,
				"error", err,
			)
		}
	}()
}
