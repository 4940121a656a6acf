package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/models"
)

// AllocationRequest carries everything the storage layer needs to
// allocate the top-ranked bid for a free slot in one atomic unit.
type AllocationRequest struct {
	Publisher     *models.Publisher
	Slot          *models.AdSlot
	SlotStart     time.Time
	FeePercentage decimal.Decimal
}

// RevenueTotals are the aggregates behind a publisher's balance.
type RevenueTotals struct {
	TotalEarnings      decimal.Decimal
	TotalAmount        decimal.Decimal
	TotalPlatformFees  decimal.Decimal
	TotalWithdrawn     decimal.Decimal
	PendingWithdrawals decimal.Decimal
	PaymentCount       int64
	WithdrawalCount    int64
	CompletedCount     int64
}

// AvailableBalance is confirmed earnings minus completed and held
// (pending/processing) withdrawals.
func (t RevenueTotals) AvailableBalance() decimal.Decimal {
	return t.TotalEarnings.Sub(t.TotalWithdrawn).Sub(t.PendingWithdrawals)
}

// QueueFilter selects ranked approved bids.
type QueueFilter struct {
	PublisherID string
	SlotType    string // empty = all slot types
	Limit       int
	Offset      int
}

// Store is the persistence contract for the marketplace core. The
// sqlite implementation lives in internal/db; tests use an in-memory
// double. Ranking is recomputed from stored data on every call, never
// cached.
type Store interface {
	// Publishers
	EnsurePublisher(ctx context.Context, wallet string) (*models.Publisher, error)
	GetPublisherByWallet(ctx context.Context, wallet string) (*models.Publisher, error)
	GetPublisherByID(ctx context.Context, id string) (*models.Publisher, error)

	// Slots
	InsertSlot(ctx context.Context, slot *models.AdSlot) error
	GetSlot(ctx context.Context, id string) (*models.AdSlot, error)
	GetActiveSlot(ctx context.Context, publisherID, slotIdentifier string) (*models.AdSlot, error)
	ListSlots(ctx context.Context, publisherID string, activeOnly bool) ([]models.AdSlot, error)
	SetSlotActive(ctx context.Context, slotID string, active bool) error

	// Bids
	InsertBid(ctx context.Context, bid *models.Bid) error
	GetBid(ctx context.Context, id string) (*models.Bid, error)
	// ApproveBid transitions pending_approval -> approved with a
	// conditional update; reports whether the transition happened.
	ApproveBid(ctx context.Context, bidID, approvedBy string, at time.Time) (bool, error)
	// RejectBid transitions pending_approval|approved -> rejected.
	RejectBid(ctx context.Context, bidID, reason string, at time.Time) (bool, error)
	ListApprovedBids(ctx context.Context, f QueueFilter) ([]models.Bid, int64, error)
	ListBidsByStatus(ctx context.Context, publisherID string, status models.BidStatus, limit, offset int) ([]models.Bid, int64, error)
	// CountRankedAhead counts approved bids of the same slot type that
	// rank strictly higher than the given bid.
	CountRankedAhead(ctx context.Context, bid *models.Bid) (int64, error)

	// Placements and allocation
	ActivePlacement(ctx context.Context, slotID string, now time.Time) (*models.Placement, error)
	GetPlacement(ctx context.Context, id string) (*models.Placement, error)
	// AllocateTopBid atomically selects the top-ranked approved bid,
	// creates the placement and payment records, transitions the bid to
	// allocated, and bumps publisher stats. The bid status is
	// re-validated at commit time; a lost race yields ErrConflict.
	AllocateTopBid(ctx context.Context, req AllocationRequest) (*models.AllocationResult, error)
	// ExpirePlacements marks overdue active placements expired and
	// completes their bids. Returns the number of placements expired.
	ExpirePlacements(ctx context.Context, now time.Time) (int64, error)

	// Revenue
	RevenueTotals(ctx context.Context, publisherID string) (RevenueTotals, error)
	// CreateWithdrawal re-checks the available balance and inserts the
	// withdrawal in one serialized operation; an overdraft yields
	// ErrInsufficientBalance.
	CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error
	ListWithdrawals(ctx context.Context, publisherID string, limit, offset int) ([]models.Withdrawal, int64, error)
	ListPayments(ctx context.Context, publisherID string, limit, offset int) ([]models.Payment, int64, error)

	// Stats (derived, rebuildable)
	RecomputeApprovalRate(ctx context.Context, publisherID string) error
	RebuildPublisherStats(ctx context.Context, publisherID string) (*models.PublisherStats, error)
	GetPublisherStats(ctx context.Context, publisherID string) (*models.PublisherStats, error)
}
