package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/models"
)

// SlotTypeSummary aggregates the queued demand for one slot type.
type SlotTypeSummary struct {
	SlotType      string          `json:"slotType"`
	Count         int             `json:"count"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	TotalDuration int             `json:"totalDuration"`
}

// ListQueue returns the publisher's approved bids in allocation order
// with position numbers. Position is computed from the same ordering
// the scheduler uses, so position 1 is always the next allocation.
func (s *Service) ListQueue(ctx context.Context, publisherWallet, slotType string, limit, offset int) ([]models.QueueEntry, int64, error) {
	pub, err := s.store.GetPublisherByWallet(ctx, models.NormalizeWallet(publisherWallet))
	if err != nil {
		return nil, 0, err
	}

	bids, total, err := s.store.ListApprovedBids(ctx, QueueFilter{
		PublisherID: pub.ID,
		SlotType:    slotType,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return nil, 0, err
	}

	now := time.Now().UTC()
	entries := make([]models.QueueEntry, 0, len(bids))
	for i, bid := range bids {
		waiting := 0
		if bid.ApprovedAt != nil {
			waiting = int(now.Sub(*bid.ApprovedAt).Minutes())
		}
		entries = append(entries, models.QueueEntry{
			Position:        offset + i + 1,
			BidID:           bid.ID,
			Advertiser:      models.MaskWallet(bid.AdvertiserWallet),
			SlotType:        bid.SlotType,
			BidAmount:       bid.BidAmount,
			DurationMinutes: bid.DurationMinutes,
			AdTitle:         bid.AdTitle,
			ApprovedAt:      bid.ApprovedAt,
			WaitingMinutes:  waiting,
		})
	}

	return entries, total, nil
}

// QueueSummary aggregates all approved bids for a publisher by slot
// type.
func (s *Service) QueueSummary(ctx context.Context, publisherWallet string) ([]SlotTypeSummary, error) {
	pub, err := s.store.GetPublisherByWallet(ctx, models.NormalizeWallet(publisherWallet))
	if err != nil {
		return nil, err
	}

	bids, _, err := s.store.ListApprovedBids(ctx, QueueFilter{PublisherID: pub.ID})
	if err != nil {
		return nil, err
	}

	byType := make(map[string]*SlotTypeSummary)
	var order []string
	for _, bid := range bids {
		sum, ok := byType[bid.SlotType]
		if !ok {
			sum = &SlotTypeSummary{SlotType: bid.SlotType}
			byType[bid.SlotType] = sum
			order = append(order, bid.SlotType)
		}
		sum.Count++
		sum.TotalValue = sum.TotalValue.Add(bid.BidAmount)
		sum.TotalDuration += bid.DurationMinutes
	}

	summaries := make([]SlotTypeSummary, 0, len(order))
	for _, st := range order {
		summaries = append(summaries, *byType[st])
	}
	return summaries, nil
}
