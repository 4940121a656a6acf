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

type createBidBody struct {
	PublisherID      string          `json:"publisherId"`
	SlotType         string          `json:"slotType"`
	AdvertiserWallet string          `json:"advertiserWallet"`
	BidAmount        decimal.Decimal `json:"bidAmount"`
	DurationMinutes  int             `json:"durationMinutes"`
	ContentHash      string          `json:"contentHash"`
	AdTitle          string          `json:"adTitle"`
	AdDescription    string          `json:"adDescription"`
	ClickURL         string          `json:"clickUrl"`
	TransactionHash  string          `json:"transactionHash"`
	Network          string          `json:"network"`
}

// CreateBid handles POST /api/bids.
func CreateBid(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createBidBody
		if err := decodeJSON(r, &body); err != nil {
			slog.Warn("invalid bid payload", "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "invalid JSON body: "+err.Error())
			return
		}

		bid, err := svc.CreateBid(r.Context(), market.CreateBidRequest{
			PublisherID:      body.PublisherID,
			SlotType:         body.SlotType,
			AdvertiserWallet: body.AdvertiserWallet,
			BidAmount:        body.BidAmount,
			DurationMinutes:  body.DurationMinutes,
			ContentHash:      body.ContentHash,
			AdTitle:          body.AdTitle,
			AdDescription:    body.AdDescription,
			ClickURL:         body.ClickURL,
			TransactionHash:  body.TransactionHash,
			Network:          models.Network(body.Network),
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, models.APIResponse{Data: bid})
	}
}

// GetBid handles GET /api/bids/{bidID}. The response includes the queue
// position for approved bids.
func GetBid(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bidID := chi.URLParam(r, "bidID")

		bid, position, err := svc.GetBid(r.Context(), bidID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: map[string]interface{}{
			"bid":           bid,
			"queuePosition": position,
		}})
	}
}

// ListBids handles GET /api/bids?publisher=0x..&status=pending_approval.
func ListBids(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		publisher := r.URL.Query().Get("publisher")
		if publisher == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "publisher query parameter is required")
			return
		}

		status := models.BidStatus(r.URL.Query().Get("status"))
		if status == "" {
			status = models.BidPendingApproval
		}
		switch status {
		case models.BidPendingApproval, models.BidApproved, models.BidAllocated, models.BidCompleted, models.BidRejected:
		default:
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "invalid status: "+string(status))
			return
		}

		limit, offset := pagination(r)

		bids, total, err := svc.ListBids(r.Context(), publisher, status, limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: bids,
			Meta: listMeta(limit, offset, total, time.Since(start).Milliseconds()),
		})
	}
}
