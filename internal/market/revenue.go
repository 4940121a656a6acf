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

// WithdrawalReceipt is the outcome of a successful payout request.
type WithdrawalReceipt struct {
	Withdrawal    *models.Withdrawal `json:"withdrawal"`
	WithdrawalFee decimal.Decimal    `json:"withdrawalFee"`
	NetAmount     decimal.Decimal    `json:"netAmount"`
}

// RevenueOverview summarizes a publisher's earnings and payout state.
type RevenueOverview struct {
	TotalEarnings      decimal.Decimal `json:"totalEarnings"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	TotalPlatformFees  decimal.Decimal `json:"totalPlatformFees"`
	TotalWithdrawn     decimal.Decimal `json:"totalWithdrawn"`
	PendingWithdrawals decimal.Decimal `json:"pendingWithdrawals"`
	AvailableBalance   decimal.Decimal `json:"availableBalance"`
	TodayEarnings      decimal.Decimal `json:"todayEarnings"`
	MonthEarnings      decimal.Decimal `json:"monthEarnings"`
	PaymentCount       int64           `json:"paymentCount"`
	WithdrawalCount    int64           `json:"withdrawalCount"`
	CompletedCount     int64           `json:"completedWithdrawals"`
}

// AvailableBalance computes a publisher's withdrawable balance on
// demand: confirmed revenue minus completed withdrawals minus held
// (pending/processing) withdrawals. The balance is never stored. The
// publisher is created lazily on first reference.
func (s *Service) AvailableBalance(ctx context.Context, walletAddress string) (decimal.Decimal, error) {
	pub, err := s.store.EnsurePublisher(ctx, models.NormalizeWallet(walletAddress))
	if err != nil {
		return decimal.Zero, err
	}

	totals, err := s.store.RevenueTotals(ctx, pub.ID)
	if err != nil {
		return decimal.Zero, err
	}

	return totals.AvailableBalance(), nil
}

// RequestWithdrawal creates a pending payout request. The balance check
// and the insert happen inside one serialized store operation, so two
// racing requests cannot overdraw the same earnings.
func (s *Service) RequestWithdrawal(ctx context.Context, walletAddress string, amount decimal.Decimal, network models.Network) (*WithdrawalReceipt, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: withdrawal amount must be greater than 0", config.ErrInvalidInput)
	}
	if amount.LessThan(s.cfg.MinWithdrawal) {
		return nil, fmt.Errorf("%w: minimum withdrawal amount is %s %s",
			config.ErrInvalidInput, s.cfg.MinWithdrawal.String(), config.Currency)
	}
	if amount.Exponent() < -config.USDCDecimals {
		return nil, fmt.Errorf("%w: withdrawal amount must have at most %d decimal places",
			config.ErrInvalidInput, config.USDCDecimals)
	}
	if network == "" {
		network = models.Network(s.cfg.Network)
	}
	if !models.IsValidNetwork(network) {
		return nil, fmt.Errorf("%w: unsupported network %q", config.ErrInvalidInput, network)
	}

	wallet := models.NormalizeWallet(walletAddress)
	pub, err := s.store.GetPublisherByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}

	w := &models.Withdrawal{
		ID:            uuid.NewString(),
		PublisherID:   pub.ID,
		WalletAddress: wallet,
		Amount:        amount,
		Currency:      config.Currency,
		Network:       network,
		Status:        models.WithdrawalPending,
		RequestedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateWithdrawal(ctx, w); err != nil {
		return nil, err
	}

	fee := amount.Mul(s.cfg.WithdrawalFeePercent).Div(decimal.NewFromInt(100)).Round(config.USDCDecimals)

	slog.Info("withdrawal requested",
		"withdrawalId", w.ID,
		"publisherId", pub.ID,
		"wallet", models.MaskWallet(wallet),
		"amount", amount.StringFixed(config.USDCDecimals),
		"network", network,
	)

	return &WithdrawalReceipt{
		Withdrawal:    w,
		WithdrawalFee: fee,
		NetAmount:     amount.Sub(fee),
	}, nil
}

// Withdrawals lists a publisher's payout requests, newest first.
func (s *Service) Withdrawals(ctx context.Context, walletAddress string, limit, offset int) ([]models.Withdrawal, int64, error) {
	pub, err := s.store.GetPublisherByWallet(ctx, models.NormalizeWallet(walletAddress))
	if err != nil {
		return nil, 0, err
	}
	return s.store.ListWithdrawals(ctx, pub.ID, limit, offset)
}

// Revenue builds the publisher earnings overview. The publisher is
// created lazily on first reference.
func (s *Service) Revenue(ctx context.Context, walletAddress string) (*RevenueOverview, error) {
	pub, err := s.store.EnsurePublisher(ctx, models.NormalizeWallet(walletAddress))
	if err != nil {
		return nil, err
	}

	totals, err := s.store.RevenueTotals(ctx, pub.ID)
	if err != nil {
		return nil, err
	}

	// Period earnings are derived by walking the payment history; the
	// volumes here are publisher-scale, not exchange-scale.
	payments, _, err := s.store.ListPayments(ctx, pub.ID, 0, 0)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	today := decimal.Zero
	month := decimal.Zero
	for _, p := range payments {
		if p.Status != models.PaymentConfirmed {
			continue
		}
		if !p.CreatedAt.Before(startOfMonth) {
			month = month.Add(p.PublisherRevenue)
		}
		if !p.CreatedAt.Before(startOfDay) {
			today = today.Add(p.PublisherRevenue)
		}
	}

	return &RevenueOverview{
		TotalEarnings:      totals.TotalEarnings,
		TotalAmount:        totals.TotalAmount,
		TotalPlatformFees:  totals.TotalPlatformFees,
		TotalWithdrawn:     totals.TotalWithdrawn,
		PendingWithdrawals: totals.PendingWithdrawals,
		AvailableBalance:   totals.AvailableBalance(),
		TodayEarnings:      today,
		MonthEarnings:      month,
		PaymentCount:       totals.PaymentCount,
		WithdrawalCount:    totals.WithdrawalCount,
		CompletedCount:     totals.CompletedCount,
	}, nil
}
