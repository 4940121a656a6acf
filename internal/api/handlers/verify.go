package handlers

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/market"
	"github.com/ad402/ad402/internal/models"
	"github.com/ad402/ad402/internal/verifier"
)

type verifyPaymentBody struct {
	TransactionHash   string          `json:"transactionHash"`
	Network           string          `json:"network"`
	ExpectedAmount    decimal.Decimal `json:"expectedAmount"`
	ExpectedPayer     string          `json:"expectedPayer"`
	ExpectedRecipient string          `json:"expectedRecipient"`
}

// VerifyPayment handles POST /api/payments/verify. It checks a USDC
// transfer against the chain without touching marketplace state; a
// failed check is a 200 with verified=false and a diagnostic.
func VerifyPayment(pv market.PaymentVerifier, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body verifyPaymentBody
		if err := decodeJSON(r, &body); err != nil {
			slog.Warn("invalid verification payload", "error", err)
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "invalid JSON body: "+err.Error())
			return
		}

		if body.TransactionHash == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "transactionHash is required")
			return
		}
		if !models.IsEVMAddress(body.ExpectedPayer) {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "expectedPayer must be a 0x-prefixed address")
			return
		}

		network := models.Network(body.Network)
		if network == "" {
			network = models.Network(cfg.Network)
		}
		if !models.IsValidNetwork(network) {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, "unsupported network: "+body.Network)
			return
		}

		recipient := body.ExpectedRecipient
		if recipient == "" {
			recipient = cfg.PlatformWallet
		}

		result := pv.Verify(r.Context(), verifier.Request{
			TransactionHash:   body.TransactionHash,
			Network:           network,
			ExpectedAmount:    body.ExpectedAmount,
			ExpectedPayer:     body.ExpectedPayer,
			ExpectedRecipient: recipient,
		})

		writeJSON(w, http.StatusOK, models.APIResponse{Data: result})
	}
}
