package market

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/models"
)

// memStore is an in-memory Store for exercising the service layer
// without sqlite. Ranking and balance math mirror the real backend.
type memStore struct {
	mu          sync.Mutex
	publishers  map[string]*models.Publisher
	slots       map[string]*models.AdSlot
	bids        map[string]*models.Bid
	placements  map[string]*models.Placement
	payments    map[string]*models.Payment
	withdrawals map[string]*models.Withdrawal
	stats       map[string]*models.PublisherStats

	// failAllocations injects conflicts into the next N allocations.
	failAllocations int
}

func newMemStore() *memStore {
	return &memStore{
		publishers:  make(map[string]*models.Publisher),
		slots:       make(map[string]*models.AdSlot),
		bids:        make(map[string]*models.Bid),
		placements:  make(map[string]*models.Placement),
		payments:    make(map[string]*models.Payment),
		withdrawals: make(map[string]*models.Withdrawal),
		stats:       make(map[string]*models.PublisherStats),
	}
}

func (m *memStore) EnsurePublisher(_ context.Context, wallet string) (*models.Publisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.publishers {
		if p.WalletAddress == wallet {
			return p, nil
		}
	}
	p := &models.Publisher{ID: uuid.NewString(), WalletAddress: wallet, CreatedAt: time.Now().UTC()}
	m.publishers[p.ID] = p
	return p, nil
}

func (m *memStore) GetPublisherByWallet(_ context.Context, wallet string) (*models.Publisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.publishers {
		if p.WalletAddress == wallet {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: publisher %s", config.ErrNotFound, wallet)
}

func (m *memStore) GetPublisherByID(_ context.Context, id string) (*models.Publisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.publishers[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: publisher %s", config.ErrNotFound, id)
}

func (m *memStore) InsertSlot(_ context.Context, slot *models.AdSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *slot
	m.slots[slot.ID] = &cp
	return nil
}

func (m *memStore) GetSlot(_ context.Context, id string) (*models.AdSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: ad slot %s", config.ErrNotFound, id)
}

func (m *memStore) GetActiveSlot(_ context.Context, publisherID, slotIdentifier string) (*models.AdSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.PublisherID == publisherID && s.SlotIdentifier == slotIdentifier && s.Active {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: active ad slot %s", config.ErrNotFound, slotIdentifier)
}

func (m *memStore) ListSlots(_ context.Context, publisherID string, activeOnly bool) ([]models.AdSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AdSlot
	for _, s := range m.slots {
		if s.PublisherID != publisherID {
			continue
		}
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotIdentifier < out[j].SlotIdentifier })
	return out, nil
}

func (m *memStore) SetSlotActive(_ context.Context, slotID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return fmt.Errorf("%w: ad slot %s", config.ErrNotFound, slotID)
	}
	s.Active = active
	return nil
}

func (m *memStore) InsertBid(_ context.Context, bid *models.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *bid
	m.bids[bid.ID] = &cp
	return nil
}

func (m *memStore) GetBid(_ context.Context, id string) (*models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bids[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: bid %s", config.ErrNotFound, id)
}

func (m *memStore) ApproveBid(_ context.Context, bidID, approvedBy string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bids[bidID]
	if !ok || b.Status != models.BidPendingApproval {
		return false, nil
	}
	b.Status = models.BidApproved
	b.ApprovedBy = approvedBy
	t := at
	b.ApprovedAt = &t
	return true, nil
}

func (m *memStore) RejectBid(_ context.Context, bidID, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bids[bidID]
	if !ok || (b.Status != models.BidPendingApproval && b.Status != models.BidApproved) {
		return false, nil
	}
	b.Status = models.BidRejected
	b.RejectionReason = reason
	t := at
	b.RejectedAt = &t
	return true, nil
}

// rankedApproved returns approved bids in allocation order.
func (m *memStore) rankedApproved(publisherID, slotType string) []models.Bid {
	var out []models.Bid
	for _, b := range m.bids {
		if b.PublisherID != publisherID || b.Status != models.BidApproved {
			continue
		}
		if slotType != "" && b.SlotType != slotType {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BidAmount.Equal(out[j].BidAmount) {
			return out[i].BidAmount.GreaterThan(out[j].BidAmount)
		}
		if !out[i].ApprovedAt.Equal(*out[j].ApprovedAt) {
			return out[i].ApprovedAt.Before(*out[j].ApprovedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memStore) ListApprovedBids(_ context.Context, f QueueFilter) ([]models.Bid, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ranked := m.rankedApproved(f.PublisherID, f.SlotType)
	total := int64(len(ranked))
	if f.Limit > 0 {
		if f.Offset >= len(ranked) {
			return nil, total, nil
		}
		end := f.Offset + f.Limit
		if end > len(ranked) {
			end = len(ranked)
		}
		ranked = ranked[f.Offset:end]
	}
	return ranked, total, nil
}

func (m *memStore) ListBidsByStatus(_ context.Context, publisherID string, status models.BidStatus, limit, offset int) ([]models.Bid, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Bid
	for _, b := range m.bids {
		if b.PublisherID == publisherID && b.Status == status {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (m *memStore) CountRankedAhead(_ context.Context, bid *models.Bid) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ranked := m.rankedApproved(bid.PublisherID, bid.SlotType)
	for i, b := range ranked {
		if b.ID == bid.ID {
			return int64(i), nil
		}
	}
	return 0, nil
}

func (m *memStore) ActivePlacement(_ context.Context, slotID string, now time.Time) (*models.Placement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.activePlacementLocked(slotID, now); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: active placement for slot %s", config.ErrNotFound, slotID)
}

func (m *memStore) activePlacementLocked(slotID string, now time.Time) *models.Placement {
	for _, p := range m.placements {
		if p.SlotID == slotID && p.Status == models.PlacementActive && p.ExpiresAt.After(now) {
			return p
		}
	}
	return nil
}

func (m *memStore) GetPlacement(_ context.Context, id string) (*models.Placement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.placements[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: placement %s", config.ErrNotFound, id)
}

func (m *memStore) AllocateTopBid(_ context.Context, req AllocationRequest) (*models.AllocationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAllocations > 0 {
		m.failAllocations--
		return nil, fmt.Errorf("%w: injected", config.ErrConflict)
	}

	start := req.SlotStart.UTC()
	if m.activePlacementLocked(req.Slot.ID, start) != nil {
		return nil, fmt.Errorf("%w: slot %s is occupied", config.ErrEmptyQueue, req.Slot.SlotIdentifier)
	}

	ranked := m.rankedApproved(req.Publisher.ID, req.Slot.SlotIdentifier)
	if len(ranked) == 0 {
		return nil, fmt.Errorf("%w: slot type %s", config.ErrEmptyQueue, req.Slot.SlotIdentifier)
	}
	bid := m.bids[ranked[0].ID]

	expires := start.Add(time.Duration(bid.DurationMinutes) * time.Minute)
	now := time.Now().UTC()
	placementID := uuid.NewString()

	bid.Status = models.BidAllocated
	bid.PlacementID = placementID
	bid.SlotStart = &start
	bid.SlotEnd = &expires
	bid.AllocatedAt = &now

	m.placements[placementID] = &models.Placement{
		ID:               placementID,
		SlotID:           req.Slot.ID,
		PublisherID:      req.Publisher.ID,
		AdvertiserWallet: bid.AdvertiserWallet,
		ContentURL:       bid.ContentHash,
		Price:            bid.BidAmount,
		Currency:         bid.Currency,
		DurationMinutes:  bid.DurationMinutes,
		StartsAt:         start,
		ExpiresAt:        expires,
		Status:           models.PlacementActive,
		CreatedAt:        now,
	}

	fee := bid.BidAmount.Mul(req.FeePercentage).Div(decimal.NewFromInt(100)).Round(config.USDCDecimals)
	revenue := bid.BidAmount.Sub(fee)

	paymentID := uuid.NewString()
	m.payments[paymentID] = &models.Payment{
		ID:               paymentID,
		PlacementID:      placementID,
		PublisherID:      req.Publisher.ID,
		TransactionHash:  bid.TransactionHash,
		Amount:           bid.BidAmount,
		Currency:         bid.Currency,
		Network:          bid.Network,
		PlatformFee:      fee,
		PublisherRevenue: revenue,
		Status:           models.PaymentConfirmed,
		VerifiedAt:       &now,
		CreatedAt:        now,
	}

	return &models.AllocationResult{
		BidID:            bid.ID,
		PlacementID:      placementID,
		Advertiser:       models.MaskWallet(bid.AdvertiserWallet),
		SlotType:         bid.SlotType,
		BidAmount:        bid.BidAmount,
		PlatformFee:      fee,
		PublisherRevenue: revenue,
		StartsAt:         start,
		ExpiresAt:        expires,
		DurationMinutes:  bid.DurationMinutes,
	}, nil
}

func (m *memStore) ExpirePlacements(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.placements {
		if p.Status != models.PlacementActive || p.ExpiresAt.After(now) {
			continue
		}
		p.Status = models.PlacementExpired
		for _, b := range m.bids {
			if b.PlacementID == p.ID && b.Status == models.BidAllocated {
				b.Status = models.BidCompleted
			}
		}
		n++
	}
	return n, nil
}

func (m *memStore) RevenueTotals(_ context.Context, publisherID string) (RevenueTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revenueTotalsLocked(publisherID), nil
}

func (m *memStore) revenueTotalsLocked(publisherID string) RevenueTotals {
	var t RevenueTotals
	t.TotalEarnings = decimal.Zero
	t.TotalAmount = decimal.Zero
	t.TotalPlatformFees = decimal.Zero
	t.TotalWithdrawn = decimal.Zero
	t.PendingWithdrawals = decimal.Zero
	for _, p := range m.payments {
		if p.PublisherID != publisherID || p.Status != models.PaymentConfirmed {
			continue
		}
		t.TotalEarnings = t.TotalEarnings.Add(p.PublisherRevenue)
		t.TotalAmount = t.TotalAmount.Add(p.Amount)
		t.TotalPlatformFees = t.TotalPlatformFees.Add(p.PlatformFee)
		t.PaymentCount++
	}
	for _, w := range m.withdrawals {
		if w.PublisherID != publisherID {
			continue
		}
		switch w.Status {
		case models.WithdrawalCompleted:
			t.TotalWithdrawn = t.TotalWithdrawn.Add(w.Amount)
			t.WithdrawalCount++
			t.CompletedCount++
		case models.WithdrawalPending, models.WithdrawalProcessing:
			t.PendingWithdrawals = t.PendingWithdrawals.Add(w.Amount)
			t.WithdrawalCount++
		}
	}
	return t
}

func (m *memStore) CreateWithdrawal(_ context.Context, w *models.Withdrawal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := m.revenueTotalsLocked(w.PublisherID)
	available := totals.AvailableBalance()
	if w.Amount.GreaterThan(available) {
		return fmt.Errorf("%w: requested %s but only %s available",
			config.ErrInsufficientBalance, w.Amount, available)
	}
	cp := *w
	m.withdrawals[w.ID] = &cp
	return nil
}

func (m *memStore) ListWithdrawals(_ context.Context, publisherID string, limit, offset int) ([]models.Withdrawal, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Withdrawal
	for _, w := range m.withdrawals {
		if w.PublisherID == publisherID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, int64(len(out)), nil
}

func (m *memStore) ListPayments(_ context.Context, publisherID string, limit, offset int) ([]models.Payment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.payments {
		if p.PublisherID == publisherID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (m *memStore) RecomputeApprovalRate(_ context.Context, publisherID string) error {
	return nil
}

func (m *memStore) RebuildPublisherStats(_ context.Context, publisherID string) (*models.PublisherStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := m.revenueTotalsLocked(publisherID)
	s := &models.PublisherStats{
		PublisherID:  publisherID,
		TotalRevenue: totals.TotalEarnings,
		TotalAdsRun:  totals.PaymentCount,
		ApprovalRate: decimal.Zero,
		UpdatedAt:    time.Now().UTC(),
	}
	m.stats[publisherID] = s
	return s, nil
}

func (m *memStore) GetPublisherStats(_ context.Context, publisherID string) (*models.PublisherStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stats[publisherID]; ok {
		return s, nil
	}
	return &models.PublisherStats{PublisherID: publisherID, TotalRevenue: decimal.Zero, ApprovalRate: decimal.Zero}, nil
}

var _ Store = (*memStore)(nil)
