package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/market"
	"github.com/ad402/ad402/internal/models"
)

type assignSlotBody struct {
	PublisherWallet string     `json:"publisherWallet"`
	SlotType        string     `json:"slotType"`
	SlotStart       *time.Time `json:"slotStart"`
}

// AssignSlot handles POST /api/allocations/assign. It allocates the
// top-ranked approved bid for the given slot type.
func AssignSlot(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body assignSlotBody
		if err := decodeJSON(r, &body); err != nil {
			slog.Warn("invalid assignment payload", "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "invalid JSON body: "+err.Error())
			return
		}
		if !models.IsEVMAddress(body.PublisherWallet) {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "publisherWallet must be a 0x-prefixed address")
			return
		}
		if body.SlotType == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "slotType is required")
			return
		}

		result, err := svc.AssignSlot(r.Context(), body.PublisherWallet, body.SlotType, body.SlotStart)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, models.APIResponse{Data: result})
	}
}

// SweepCandidates handles GET /api/allocations/candidates?publisher=0x...
// It reports free slots with an eligible next bid, without mutating
// anything.
func SweepCandidates(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		publisher := r.URL.Query().Get("publisher")
		if publisher == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "publisher query parameter is required")
			return
		}

		candidates, err := svc.SweepCandidates(r.Context(), publisher)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: candidates})
	}
}

// ExpirePlacements handles POST /api/allocations/expire. It completes
// overdue placements and their bids.
func ExpirePlacements(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.ExpirePlacements(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: map[string]int64{"expired": n}})
	}
}
