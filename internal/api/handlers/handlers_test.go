package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/db"
	"github.com/ad402/ad402/internal/market"
	"github.com/ad402/ad402/internal/models"
	"github.com/ad402/ad402/internal/verifier"
)

const (
	testPublisherWallet  = "0xaaaa000000000000000000000000000000000001"
	testAdvertiserWallet = "0xbbbb000000000000000000000000000000000002"
	testPlatformWallet   = "0xcccc000000000000000000000000000000000003"
)

// okVerifier accepts every payment.
type okVerifier struct{}

func (okVerifier) Verify(_ context.Context, req verifier.Request) verifier.Result {
	return verifier.Result{Verified: true, Amount: req.ExpectedAmount}
}

func testConfig() *config.Config {
	return &config.Config{
		Network:        "polygon-amoy",
		PlatformWallet: testPlatformWallet,
		FeePercentage:  decimal.NewFromInt(5),
		MinWithdrawal:  decimal.NewFromInt(10),
	}
}

func setupService(t *testing.T) *market.Service {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	return market.NewService(database, okVerifier{}, testConfig())
}

func setupRouter(t *testing.T) (chi.Router, *market.Service) {
	t.Helper()
	svc := setupService(t)
	cfg := testConfig()

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", Health(cfg, "test"))
		r.Route("/slots", func(r chi.Router) {
			r.Post("/", CreateSlot(svc))
			r.Get("/", ListSlots(svc))
			r.Delete("/{slotID}", DisableSlot(svc))
		})
		r.Route("/bids", func(r chi.Router) {
			r.Post("/", CreateBid(svc))
			r.Get("/", ListBids(svc))
			r.Get("/{bidID}", GetBid(svc))
			r.Post("/{bidID}/approve", ApproveBid(svc))
			r.Post("/{bidID}/reject", RejectBid(svc))
		})
		r.Route("/queue", func(r chi.Router) {
			r.Get("/", ListQueue(svc))
			r.Get("/summary", QueueSummary(svc))
		})
		r.Route("/allocations", func(r chi.Router) {
			r.Post("/assign", AssignSlot(svc))
			r.Get("/candidates", SweepCandidates(svc))
			r.Post("/expire", ExpirePlacements(svc))
		})
		r.Route("/publishers/{wallet}", func(r chi.Router) {
			r.Get("/balance", Balance(svc))
			r.Get("/revenue", Revenue(svc))
			r.Get("/withdrawals", ListWithdrawals(svc))
			r.Get("/payments", ListPayments(svc))
			r.Get("/stats", PublisherStats(svc))
			r.Post("/stats/rebuild", RebuildPublisherStats(svc))
		})
		r.Post("/withdrawals", RequestWithdrawal(svc))
		r.Post("/payments/verify", VerifyPayment(okVerifier{}, cfg))
	})
	return r, svc
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v (body %s)", err, w.Body.String())
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data is not an object: %s", w.Body.String())
	}
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.APIError
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error response: %v (body %s)", err, w.Body.String())
	}
	return resp.Error.Code
}

// createSlotHTTP registers the test publisher's banner-top slot through
// the API and returns the slot id.
func createSlotHTTP(t *testing.T, router http.Handler) string {
	t.Helper()
	w := doJSON(t, router, "POST", "/api/slots", map[string]interface{}{
		"publisherWallet": testPublisherWallet,
		"slotIdentifier":  "banner-top",
		"size":            "banner",
		"basePrice":       "0.10",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create slot status = %d, body %s", w.Code, w.Body.String())
	}
	return decodeData(t, w)["id"].(string)
}

// createBidHTTP places a verified bid and returns its id.
func createBidHTTP(t *testing.T, router http.Handler, svc *market.Service, amount string) string {
	t.Helper()
	pub, err := svc.Store().GetPublisherByWallet(context.Background(), testPublisherWallet)
	if err != nil {
		t.Fatalf("GetPublisherByWallet() error = %v", err)
	}
	w := doJSON(t, router, "POST", "/api/bids", map[string]interface{}{
		"publisherId":      pub.ID,
		"slotType":         "banner-top",
		"advertiserWallet": testAdvertiserWallet,
		"bidAmount":        amount,
		"durationMinutes":  60,
		"contentHash":      "https://cdn.example.com/ad.png",
		"transactionHash":  "0x" + amount,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create bid status = %d, body %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	return data["id"].(string)
}

func approveBidHTTP(t *testing.T, router http.Handler, bidID string) {
	t.Helper()
	w := doJSON(t, router, "POST", "/api/bids/"+bidID+"/approve", map[string]interface{}{
		"publisherWallet": testPublisherWallet,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("approve bid status = %d, body %s", w.Code, w.Body.String())
	}
}
