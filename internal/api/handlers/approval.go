package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/market"
	"github.com/ad402/ad402/internal/models"
)

type approvalBody struct {
	PublisherWallet string `json:"publisherWallet"`
	Reason          string `json:"reason"`
}

// ApproveBid handles POST /api/bids/{bidID}/approve.
func ApproveBid(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bidID := chi.URLParam(r, "bidID")

		var body approvalBody
		if err := decodeJSON(r, &body); err != nil {
			slog.Warn("invalid approval payload", "bidId", bidID, "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "invalid JSON body: "+err.Error())
			return
		}
		if !models.IsEVMAddress(body.PublisherWallet) {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "publisherWallet must be a 0x-prefixed address")
			return
		}

		bid, err := svc.ApproveBid(r.Context(), bidID, body.PublisherWallet)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: bid})
	}
}

// RejectBid handles POST /api/bids/{bidID}/reject.
func RejectBid(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bidID := chi.URLParam(r, "bidID")

		var body approvalBody
		if err := decodeJSON(r, &body); err != nil {
			slog.Warn("invalid rejection payload", "bidId", bidID, "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "invalid JSON body: "+err.Error())
			return
		}
		if !models.IsEVMAddress(body.PublisherWallet) {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "publisherWallet must be a 0x-prefixed address")
			return
		}

		bid, err := svc.RejectBid(r.Context(), bidID, body.PublisherWallet, body.Reason)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: bid})
	}
}
