package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/ad402/ad402/internal/api/handlers"
	"github.com/ad402/ad402/internal/api/middleware"
	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/market"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(svc *market.Service, pv market.PaymentVerifier, cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	// Middleware stack (order matters)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS)
	r.Use(middleware.NewRateLimiter().Middleware)

	slog.Info("router initialized",
		"middleware", []string{"requestLogging", "securityHeaders", "cors", "rateLimit"},
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health(cfg, Version))

		r.Route("/slots", func(r chi.Router) {
			r.Post("/", handlers.CreateSlot(svc))
			r.Get("/", handlers.ListSlots(svc))
			r.Delete("/{slotID}", handlers.DisableSlot(svc))
		})

		r.Route("/bids", func(r chi.Router) {
			r.Post("/", handlers.CreateBid(svc))
			r.Get("/", handlers.ListBids(svc))
			r.Get("/{bidID}", handlers.GetBid(svc))
			r.Post("/{bidID}/approve", handlers.ApproveBid(svc))
			r.Post("/{bidID}/reject", handlers.RejectBid(svc))
		})

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", handlers.ListQueue(svc))
			r.Get("/summary", handlers.QueueSummary(svc))
		})

		r.Route("/allocations", func(r chi.Router) {
			r.Post("/assign", handlers.AssignSlot(svc))
			r.Get("/candidates", handlers.SweepCandidates(svc))
			r.Post("/expire", handlers.ExpirePlacements(svc))
		})

		r.Route("/publishers/{wallet}", func(r chi.Router) {
			r.Get("/balance", handlers.Balance(svc))
			r.Get("/revenue", handlers.Revenue(svc))
			r.Get("/withdrawals", handlers.ListWithdrawals(svc))
			r.Get("/payments", handlers.ListPayments(svc))
			r.Get("/stats", handlers.PublisherStats(svc))
			r.Post("/stats/rebuild", handlers.RebuildPublisherStats(svc))
		})

		r.Post("/withdrawals", handlers.RequestWithdrawal(svc))
		r.Post("/payments/verify", handlers.VerifyPayment(pv, cfg))
	})

	return r
}
