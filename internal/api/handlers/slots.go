package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/market"
	"github.com/ad402/ad402/internal/models"
)

type createSlotBody struct {
	PublisherWallet string          `json:"publisherWallet"`
	SlotIdentifier  string          `json:"slotIdentifier"`
	Size            string          `json:"size"`
	BasePrice       decimal.Decimal `json:"basePrice"`
	Category        string          `json:"category"`
	WebsiteURL      string          `json:"websiteUrl"`
}

// CreateSlot handles POST /api/slots.
func CreateSlot(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createSlotBody
		if err := decodeJSON(r, &body); err != nil {
			slog.Warn("invalid slot payload", "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "invalid JSON body: "+err.Error())
			return
		}

		slot, err := svc.CreateSlot(r.Context(), market.CreateSlotRequest{
			PublisherWallet: body.PublisherWallet,
			SlotIdentifier:  body.SlotIdentifier,
			Size:            models.SlotSize(body.Size),
			BasePrice:       body.BasePrice,
			Category:        body.Category,
			WebsiteURL:      body.WebsiteURL,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, models.APIResponse{Data: slot})
	}
}

// ListSlots handles GET /api/slots?publisher=0x..&active=true.
func ListSlots(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		publisher := r.URL.Query().Get("publisher")
		if publisher == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "publisher query parameter is required")
			return
		}
		activeOnly := r.URL.Query().Get("active") == "true"

		slots, err := svc.ListSlots(r.Context(), publisher, activeOnly)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: slots})
	}
}

// DisableSlot handles DELETE /api/slots/{slotID}?publisher=0x... Slots
// are soft-disabled, never removed.
func DisableSlot(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID := chi.URLParam(r, "slotID")
		publisher := r.URL.Query().Get("publisher")
		if publisher == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "publisher query parameter is required")
			return
		}

		if err := svc.DisableSlot(r.Context(), publisher, slotID); err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: map[string]string{"slotId": slotID, "status": "disabled"}})
	}
}
