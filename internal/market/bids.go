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
	"github.com/ad402/ad402/internal/verifier"
)

// CreateBidRequest is the validated payload for bid creation.
type CreateBidRequest struct {
	PublisherID      string
	SlotType         string
	AdvertiserWallet string
	BidAmount        decimal.Decimal
	DurationMinutes  int
	ContentHash      string
	AdTitle          string
	AdDescription    string
	ClickURL         string
	TransactionHash  string
	Network          models.Network
}

func (r *CreateBidRequest) validate() error {
	if r.PublisherID == "" || r.SlotType == "" || r.ContentHash == "" {
		return fmt.Errorf("%w: publisherId, slotType, and contentHash are required", config.ErrInvalidInput)
	}
	if !models.IsEVMAddress(r.AdvertiserWallet) {
		return fmt.Errorf("%w: advertiserWallet must be a 0x-prefixed address", config.ErrInvalidInput)
	}
	if !r.BidAmount.IsPositive() {
		return fmt.Errorf("%w: bid amount must be greater than 0", config.ErrInvalidInput)
	}
	// USDC carries 6 decimals; anything finer would be silently lost.
	if r.BidAmount.Exponent() < -config.USDCDecimals {
		return fmt.Errorf("%w: bid amount must have at most %d decimal places",
			config.ErrInvalidInput, config.USDCDecimals)
	}
	if r.DurationMinutes < 1 || r.DurationMinutes > config.MaxDurationMinutes {
		return fmt.Errorf("%w: duration must be 1-%d minutes, got %d",
			config.ErrInvalidInput, config.MaxDurationMinutes, r.DurationMinutes)
	}
	if r.Network != "" && !models.IsValidNetwork(r.Network) {
		return fmt.Errorf("%w: unsupported network %q", config.ErrInvalidInput, r.Network)
	}
	return nil
}

// CreateBid enters an advertiser bid into the queue for a publisher's
// slot type. When a transaction hash is supplied the payment is verified
// on chain synchronously, before anything is persisted; the stored
// paymentVerified flag is what the approval gate later trusts.
func (s *Service) CreateBid(ctx context.Context, req CreateBidRequest) (*models.Bid, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if req.Network == "" {
		req.Network = models.Network(s.cfg.Network)
	}

	pub, err := s.store.GetPublisherByID(ctx, req.PublisherID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetActiveSlot(ctx, pub.ID, req.SlotType); err != nil {
		return nil, fmt.Errorf("%w: slot type %q not available for this publisher",
			config.ErrInvalidInput, req.SlotType)
	}

	paymentVerified := false
	if req.TransactionHash != "" {
		if s.cfg.PlatformWallet == "" {
			return nil, fmt.Errorf("platform wallet not configured")
		}

		result := s.verifier.Verify(ctx, verifier.Request{
			TransactionHash:   req.TransactionHash,
			Network:           req.Network,
			ExpectedAmount:    req.BidAmount,
			ExpectedPayer:     req.AdvertiserWallet,
			ExpectedRecipient: s.cfg.PlatformWallet,
		})
		if !result.Verified {
			return nil, fmt.Errorf("%w: %s", config.ErrVerificationFailed, result.Diagnostic)
		}
		paymentVerified = true
	}

	bid := &models.Bid{
		ID:               uuid.NewString(),
		PublisherID:      pub.ID,
		SlotType:         req.SlotType,
		AdvertiserWallet: models.NormalizeWallet(req.AdvertiserWallet),
		BidAmount:        req.BidAmount,
		Currency:         config.Currency,
		Network:          req.Network,
		DurationMinutes:  req.DurationMinutes,
		ContentHash:      req.ContentHash,
		AdTitle:          req.AdTitle,
		AdDescription:    req.AdDescription,
		ClickURL:         req.ClickURL,
		TransactionHash:  req.TransactionHash,
		PaymentVerified:  paymentVerified,
		Status:           models.BidPendingApproval,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.store.InsertBid(ctx, bid); err != nil {
		return nil, err
	}

	slog.Info("bid created",
		"bidId", bid.ID,
		"publisherId", bid.PublisherID,
		"slotType", bid.SlotType,
		"advertiser", models.MaskWallet(bid.AdvertiserWallet),
		"bidAmount", bid.BidAmount.StringFixed(config.USDCDecimals),
		"durationMinutes", bid.DurationMinutes,
		"paymentVerified", bid.PaymentVerified,
	)

	return bid, nil
}

// GetBid returns a bid together with its queue position. Position is
// zero unless the bid is approved and waiting for allocation.
func (s *Service) GetBid(ctx context.Context, bidID string) (*models.Bid, int, error) {
	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, 0, err
	}

	position := 0
	if bid.Status == models.BidApproved {
		ahead, err := s.store.CountRankedAhead(ctx, bid)
		if err != nil {
			return nil, 0, err
		}
		position = int(ahead) + 1
	}

	return bid, position, nil
}

// ListBids returns a publisher's bids in a given status, newest first.
func (s *Service) ListBids(ctx context.Context, publisherWallet string, status models.BidStatus, limit, offset int) ([]models.Bid, int64, error) {
	pub, err := s.store.GetPublisherByWallet(ctx, models.NormalizeWallet(publisherWallet))
	if err != nil {
		return nil, 0, err
	}
	return s.store.ListBidsByStatus(ctx, pub.ID, status, limit, offset)
}
