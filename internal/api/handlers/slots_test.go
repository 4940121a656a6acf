package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/models"
)

func TestCreateSlotHandler(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "POST", "/api/slots", map[string]interface{}{
		"publisherWallet": testPublisherWallet,
		"slotIdentifier":  "banner-top",
		"size":            "square",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["width"].(float64) != 300 || data["height"].(float64) != 250 {
		t.Errorf("expected 300x250 for square, got %vx%v", data["width"], data["height"])
	}
	if data["active"] != true {
		t.Error("expected active slot")
	}
}

func TestCreateSlotHandler_InvalidSize(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "POST", "/api/slots", map[string]interface{}{
		"publisherWallet": testPublisherWallet,
		"slotIdentifier":  "banner-top",
		"size":            "billboard",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != config.ErrorInvalidInput {
		t.Errorf("error code = %s, want %s", code, config.ErrorInvalidInput)
	}
}

func TestDisableSlotHandler(t *testing.T) {
	router, _ := setupRouter(t)
	slotID := createSlotHTTP(t, router)

	w := doJSON(t, router, "DELETE", "/api/slots/"+slotID+"?publisher="+testPublisherWallet, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, "GET", "/api/slots?publisher="+testPublisherWallet+"&active=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp models.APIResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Data != nil {
		if slots, ok := resp.Data.([]interface{}); ok && len(slots) != 0 {
			t.Errorf("expected no active slots, got %d", len(slots))
		}
	}
}
