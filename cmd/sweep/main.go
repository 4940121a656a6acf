package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/db"
	"github.com/ad402/ad402/internal/logging"
	"github.com/ad402/ad402/internal/market"
	"github.com/ad402/ad402/internal/models"
	"github.com/ad402/ad402/internal/verifier"
)

// One-shot allocation sweep: expires overdue placements, then fills every
// free slot of the given publisher with its top-ranked approved bid.
// Intended to run from cron.
func main() {
	if err := run(); err != nil {
		slog.Error("sweep error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	publisher := fs.String("publisher", "", "Publisher wallet address (required)")
	dryRun := fs.Bool("dry-run", false, "Report candidates without allocating")
	fs.Parse(os.Args[1:])

	if !models.IsEVMAddress(*publisher) {
		return fmt.Errorf("--publisher must be a valid wallet address, got %q", *publisher)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := database.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pv, err := verifier.Dial(cfg)
	if err != nil {
		return fmt.Errorf("setup payment verifier: %w", err)
	}

	svc := market.NewService(database, pv, cfg)
	ctx := context.Background()

	expired, err := svc.ExpirePlacements(ctx)
	if err != nil {
		return fmt.Errorf("expire placements: %w", err)
	}

	candidates, err := svc.SweepCandidates(ctx, *publisher)
	if err != nil {
		return fmt.Errorf("list sweep candidates: %w", err)
	}

	slog.Info("sweep scan complete",
		"publisher", models.MaskWallet(*publisher),
		"expired", expired,
		"candidates", len(candidates),
		"dryRun", *dryRun,
	)

	if *dryRun {
		for _, c := range candidates {
			fmt.Printf("%s: bid %s (%s USDC)\n", c.SlotType, c.BidID, c.BidAmount)
		}
		return nil
	}

	var allocated int
	for _, c := range candidates {
		result, err := svc.AssignSlot(ctx, *publisher, c.SlotType, nil)
		if err != nil {
			// Another sweep or an API caller may have filled the slot
			// between the scan and this allocation.
			if errors.Is(err, config.ErrEmptyQueue) || errors.Is(err, config.ErrConflict) {
				slog.Warn("slot no longer allocatable, skipping",
					"slotType", c.SlotType,
					"error", err,
				)
				continue
			}
			return fmt.Errorf("assign slot %s: %w", c.SlotType, err)
		}
		allocated++
		fmt.Printf("%s: allocated bid %s, placement %s, revenue %s USDC\n",
			c.SlotType, result.BidID, result.PlacementID,
			result.PublisherRevenue.StringFixed(config.USDCDecimals))
	}

	if allocated > 0 || expired > 0 {
		pub, err := svc.Store().GetPublisherByWallet(ctx, models.NormalizeWallet(*publisher))
		if err != nil {
			return fmt.Errorf("lookup publisher: %w", err)
		}
		if _, err := svc.Store().RebuildPublisherStats(ctx, pub.ID); err != nil {
			slog.Warn("stats rebuild failed", "publisherId", pub.ID, "error", err)
		}
	}

	slog.Info("sweep complete", "expired", expired, "allocated", allocated)
	return nil
}
