package market

import (
	"context"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/verifier"
)

// PaymentVerifier gates bid creation on settled on-chain payments.
// Satisfied by *verifier.Verifier; tests provide a stub.
type PaymentVerifier interface {
	Verify(ctx context.Context, req verifier.Request) verifier.Result
}

// Service is the marketplace core: bid ledger, approval gate, allocation
// scheduler, and revenue ledger over a pluggable Store. Chain queries
// happen strictly before any storage transaction.
type Service struct {
	store    Store
	verifier PaymentVerifier
	cfg      *config.Config
}

// NewService wires the core against a storage backend and a payment
// verifier.
func NewService(store Store, pv PaymentVerifier, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		verifier: pv,
		cfg:      cfg,
	}
}

// Store exposes the underlying storage, mainly for handlers that serve
// read-only listings.
func (s *Service) Store() Store {
	return s.store
}
