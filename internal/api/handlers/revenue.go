package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/market"
	"github.com/ad402/ad402/internal/models"
)

// Balance handles GET /api/publishers/{wallet}/balance. The balance is
// derived on every call, never read from a counter.
func Balance(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := chi.URLParam(r, "wallet")
		if !models.IsEVMAddress(wallet) {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "wallet must be a 0x-prefixed address")
			return
		}

		balance, err := svc.AvailableBalance(r.Context(), wallet)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: map[string]string{
			"availableBalance": balance.StringFixed(config.USDCDecimals),
			"currency":         config.Currency,
		}})
	}
}

// Revenue handles GET /api/publishers/{wallet}/revenue.
func Revenue(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := chi.URLParam(r, "wallet")
		if !models.IsEVMAddress(wallet) {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "wallet must be a 0x-prefixed address")
			return
		}

		overview, err := svc.Revenue(r.Context(), wallet)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: overview})
	}
}

type withdrawalBody struct {
	WalletAddress string          `json:"walletAddress"`
	Amount        decimal.Decimal `json:"amount"`
	Network       string          `json:"network"`
}

// RequestWithdrawal handles POST /api/withdrawals.
func RequestWithdrawal(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body withdrawalBody
		if err := decodeJSON(r, &body); err != nil {
			slog.Warn("invalid withdrawal payload", "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "invalid JSON body: "+err.Error())
			return
		}
		if !models.IsEVMAddress(body.WalletAddress) {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "walletAddress must be a 0x-prefixed address")
			return
		}

		receipt, err := svc.RequestWithdrawal(r.Context(), body.WalletAddress, body.Amount, models.Network(body.Network))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, models.APIResponse{Data: receipt})
	}
}

// ListWithdrawals handles GET /api/publishers/{wallet}/withdrawals.
func ListWithdrawals(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wallet := chi.URLParam(r, "wallet")
		if !models.IsEVMAddress(wallet) {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "wallet must be a 0x-prefixed address")
			return
		}
		limit, offset := pagination(r)

		withdrawals, total, err := svc.Withdrawals(r.Context(), wallet, limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: withdrawals,
			Meta: listMeta(limit, offset, total, time.Since(start).Milliseconds()),
		})
	}
}

// ListPayments handles GET /api/publishers/{wallet}/payments.
func ListPayments(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wallet := chi.URLParam(r, "wallet")
		if !models.IsEVMAddress(wallet) {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "wallet must be a 0x-prefixed address")
			return
		}
		limit, offset := pagination(r)

		pub, err := svc.Store().GetPublisherByWallet(r.Context(), models.NormalizeWallet(wallet))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		payments, total, err := svc.Store().ListPayments(r.Context(), pub.ID, limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: payments,
			Meta: listMeta(limit, offset, total, time.Since(start).Milliseconds()),
		})
	}
}

// PublisherStats handles GET /api/publishers/{wallet}/stats.
func PublisherStats(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := chi.URLParam(r, "wallet")
		if !models.IsEVMAddress(wallet) {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "wallet must be a 0x-prefixed address")
			return
		}

		pub, err := svc.Store().GetPublisherByWallet(r.Context(), models.NormalizeWallet(wallet))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		stats, err := svc.Store().GetPublisherStats(r.Context(), pub.ID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: stats})
	}
}

// RebuildPublisherStats handles POST /api/publishers/{wallet}/stats/rebuild.
// The counters are rederived from payment and bid history.
func RebuildPublisherStats(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := chi.URLParam(r, "wallet")
		if !models.IsEVMAddress(wallet) {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "wallet must be a 0x-prefixed address")
			return
		}

		pub, err := svc.Store().GetPublisherByWallet(r.Context(), models.NormalizeWallet(wallet))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		stats, err := svc.Store().RebuildPublisherStats(r.Context(), pub.ID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		slog.Info("publisher stats rebuilt", "publisherId", pub.ID)
		writeJSON(w, http.StatusOK, models.APIResponse{Data: stats})
	}
}
