package handlers

import (
	"net/http"
	"time"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/market"
	"github.com/ad402/ad402/internal/models"
)

// ListQueue handles GET /api/queue?publisher=0x..&slotType=banner-top.
// Entries come back in allocation order with position numbers.
func ListQueue(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		publisher := r.URL.Query().Get("publisher")
		if publisher == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "publisher query parameter is required")
			return
		}
		slotType := r.URL.Query().Get("slotType")
		limit, offset := pagination(r)

		entries, total, err := svc.ListQueue(r.Context(), publisher, slotType, limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: entries,
			Meta: listMeta(limit, offset, total, time.Since(start).Milliseconds()),
		})
	}
}

// QueueSummary handles GET /api/queue/summary?publisher=0x... It
// aggregates queued demand by slot type.
func QueueSummary(svc *market.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		publisher := r.URL.Query().Get("publisher")
		if publisher == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "publisher query parameter is required")
			return
		}

		summaries, err := svc.QueueSummary(r.Context(), publisher)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: summaries})
	}
}
