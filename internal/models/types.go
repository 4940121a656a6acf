package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Network represents a supported settlement network.
type Network string

const (
	NetworkPolygon Network = "polygon"
	NetworkAmoy    Network = "polygon-amoy"
)

// AllNetworks is the ordered list of supported networks.
var AllNetworks = []Network{NetworkPolygon, NetworkAmoy}

// BidStatus is the lifecycle state of a bid.
// Transitions: pending_approval -> approved -> allocated -> completed,
// with pending_approval|approved -> rejected as the only side branch.
type BidStatus string

const (
	BidPendingApproval BidStatus = "pending_approval"
	BidApproved        BidStatus = "approved"
	BidAllocated       BidStatus = "allocated"
	BidCompleted       BidStatus = "completed"
	BidRejected        BidStatus = "rejected"
)

// PlacementStatus is the lifecycle state of a placement.
type PlacementStatus string

const (
	PlacementActive    PlacementStatus = "active"
	PlacementQueued    PlacementStatus = "queued"
	PlacementExpired   PlacementStatus = "expired"
	PlacementCancelled PlacementStatus = "cancelled"
)

// PaymentStatus is the settlement state of a payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
)

// WithdrawalStatus is the processing state of a payout request.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalFailed     WithdrawalStatus = "failed"
)

// SlotSize is a display size class with fixed pixel dimensions.
type SlotSize string

const (
	SlotBanner      SlotSize = "banner"
	SlotLeaderboard SlotSize = "leaderboard"
	SlotSquare      SlotSize = "square"
	SlotSidebar     SlotSize = "sidebar"
	SlotMobile      SlotSize = "mobile"
	SlotCard        SlotSize = "card"
)

// AllSlotSizes is the ordered list of supported size classes.
var AllSlotSizes = []SlotSize{SlotBanner, SlotLeaderboard, SlotSquare, SlotSidebar, SlotMobile, SlotCard}

// SlotDimensions maps a size class to pixel width and height.
// Unknown sizes fall back to banner.
func SlotDimensions(size SlotSize) (width, height int) {
	switch size {
	case SlotSquare:
		return 300, 250
	case SlotSidebar:
		return 160, 600
	case SlotMobile:
		return 320, 50
	case SlotCard:
		return 300, 200
	default:
		// banner and leaderboard share dimensions
		return 728, 90
	}
}

// Publisher is the owner of ad slots, keyed by lowercase wallet address.
// Created lazily on first reference, never deleted.
type Publisher struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"walletAddress"`
	Name          string    `json:"name,omitempty"`
	WebsiteDomain string    `json:"websiteDomain,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AdSlot is a publisher-defined placement location. The slot identifier
// is unique within a publisher. Slots are soft-disabled via Active,
// never hard-deleted while placements reference them.
type AdSlot struct {
	ID             string          `json:"id"`
	PublisherID    string          `json:"publisherId"`
	SlotIdentifier string          `json:"slotIdentifier"`
	Size           SlotSize        `json:"size"`
	Width          int             `json:"width"`
	Height         int             `json:"height"`
	BasePrice      decimal.Decimal `json:"basePrice"`
	Category       string          `json:"category,omitempty"`
	WebsiteURL     string          `json:"websiteUrl,omitempty"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Bid is an advertiser's request to occupy a slot type at a price and
// duration. Status transitions are owned exclusively by the approval
// gate and the allocation scheduler.
type Bid struct {
	ID               string          `json:"id"`
	PublisherID      string          `json:"publisherId"`
	SlotType         string          `json:"slotType"`
	AdvertiserWallet string          `json:"advertiserWallet"`
	BidAmount        decimal.Decimal `json:"bidAmount"`
	Currency         string          `json:"currency"`
	Network          Network         `json:"network"`
	DurationMinutes  int             `json:"durationMinutes"`
	ContentHash      string          `json:"contentHash"`
	AdTitle          string          `json:"adTitle,omitempty"`
	AdDescription    string          `json:"adDescription,omitempty"`
	ClickURL         string          `json:"clickUrl,omitempty"`
	TransactionHash  string          `json:"transactionHash,omitempty"`
	PaymentVerified  bool            `json:"paymentVerified"`
	Status           BidStatus       `json:"status"`
	RejectionReason  string          `json:"rejectionReason,omitempty"`
	ApprovedBy       string          `json:"approvedBy,omitempty"`
	PlacementID      string          `json:"placementId,omitempty"`
	SlotStart        *time.Time      `json:"slotStart,omitempty"`
	SlotEnd          *time.Time      `json:"slotEnd,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	ApprovedAt       *time.Time      `json:"approvedAt,omitempty"`
	RejectedAt       *time.Time      `json:"rejectedAt,omitempty"`
	AllocatedAt      *time.Time      `json:"allocatedAt,omitempty"`
}

// Placement is a materialized, time-bounded occupancy of a slot.
// At most one placement per slot may be active and unexpired at once.
type Placement struct {
	ID               string          `json:"id"`
	SlotID           string          `json:"slotId"`
	PublisherID      string          `json:"publisherId"`
	AdvertiserWallet string          `json:"advertiserWallet"`
	ContentURL       string          `json:"contentUrl"`
	ClickURL         string          `json:"clickUrl,omitempty"`
	Description      string          `json:"description,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	DurationMinutes  int             `json:"durationMinutes"`
	StartsAt         time.Time       `json:"startsAt"`
	ExpiresAt        time.Time       `json:"expiresAt"`
	Status           PlacementStatus `json:"status"`
	ModerationStatus string          `json:"moderationStatus"`
	Views            int64           `json:"views"`
	Clicks           int64           `json:"clicks"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Payment records one settled transaction backing a placement.
// TransactionHash is the idempotency key. PlatformFee + PublisherRevenue
// always equals Amount.
type Payment struct {
	ID               string          `json:"id"`
	PlacementID      string          `json:"placementId"`
	PublisherID      string          `json:"publisherId"`
	TransactionHash  string          `json:"transactionHash"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Network          Network         `json:"network"`
	PlatformFee      decimal.Decimal `json:"platformFee"`
	PublisherRevenue decimal.Decimal `json:"publisherRevenue"`
	Status           PaymentStatus   `json:"status"`
	VerifiedAt       *time.Time      `json:"verifiedAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Withdrawal is a publisher payout request. Pending and processing
// withdrawals hold their amount out of the available balance.
type Withdrawal struct {
	ID            string           `json:"id"`
	PublisherID   string           `json:"publisherId"`
	WalletAddress string           `json:"walletAddress"`
	Amount        decimal.Decimal  `json:"amount"`
	Currency      string           `json:"currency"`
	Network       Network          `json:"network"`
	Status        WithdrawalStatus `json:"status"`
	TxHash        string           `json:"txHash,omitempty"`
	FailureReason string           `json:"failureReason,omitempty"`
	RequestedAt   time.Time        `json:"requestedAt"`
	ProcessedAt   *time.Time       `json:"processedAt,omitempty"`
}

// PublisherStats is a derived counter table rebuilt from payment and bid
// history. Never the source of truth.
type PublisherStats struct {
	PublisherID  string          `json:"publisherId"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalAdsRun  int64           `json:"totalAdsRun"`
	ApprovalRate decimal.Decimal `json:"approvalRate"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// AllocationResult summarizes one successful slot allocation.
type AllocationResult struct {
	BidID            string          `json:"bidId"`
	PlacementID      string          `json:"placementId"`
	Advertiser       string          `json:"advertiser"`
	SlotType         string          `json:"slotType"`
	BidAmount        decimal.Decimal `json:"bidAmount"`
	PlatformFee      decimal.Decimal `json:"platformFee"`
	PublisherRevenue decimal.Decimal `json:"publisherRevenue"`
	StartsAt         time.Time       `json:"startsAt"`
	ExpiresAt        time.Time       `json:"expiresAt"`
	DurationMinutes  int             `json:"durationMinutes"`
}

// QueueEntry is one ranked bid in the allocation queue.
type QueueEntry struct {
	Position        int             `json:"position"`
	BidID           string          `json:"id"`
	Advertiser      string          `json:"advertiser"`
	SlotType        string          `json:"slotType"`
	BidAmount       decimal.Decimal `json:"bidAmount"`
	DurationMinutes int             `json:"durationMinutes"`
	AdTitle         string          `json:"adTitle,omitempty"`
	ApprovedAt      *time.Time      `json:"approvedAt,omitempty"`
	WaitingMinutes  int             `json:"waitingMinutes"`
}

// SweepCandidate reports that a free slot has an eligible next bid.
type SweepCandidate struct {
	SlotType  string          `json:"slotType"`
	BidID     string          `json:"bidId"`
	BidAmount decimal.Decimal `json:"bidAmount"`
}

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Data interface{} `json:"data,omitempty"`
	Meta *APIMeta    `json:"meta,omitempty"`
}

// APIMeta contains pagination and execution metadata.
type APIMeta struct {
	Limit         int   `json:"limit,omitempty"`
	Offset        int   `json:"offset,omitempty"`
	Total         int64 `json:"total,omitempty"`
	HasMore       bool  `json:"hasMore"`
	ExecutionTime int64 `json:"executionTime,omitempty"`
}

// APIError is the standard error response.
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail contains error code and message.
type APIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
