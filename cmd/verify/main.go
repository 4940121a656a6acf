package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/models"
	"github.com/ad402/ad402/internal/verifier"
)

// One-shot payment check against the chain. Prints the verification
// result as JSON and exits non-zero when the payment does not check out.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	txHash := fs.String("tx", "", "Transaction hash (required)")
	amount := fs.String("amount", "", "Expected USDC amount (required)")
	payer := fs.String("payer", "", "Expected payer wallet (required)")
	recipient := fs.String("recipient", "", "Expected recipient wallet (default: platform wallet)")
	network := fs.String("network", "", "Network: polygon or polygon-amoy (default: from config)")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *txHash == "" {
		return fmt.Errorf("--tx is required")
	}
	expected, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("--amount must be a decimal USDC amount: %w", err)
	}
	if !models.IsEVMAddress(*payer) {
		return fmt.Errorf("--payer must be a valid wallet address, got %q", *payer)
	}
	if *recipient == "" {
		*recipient = cfg.PlatformWallet
	}
	if !models.IsEVMAddress(*recipient) {
		return fmt.Errorf("--recipient must be a valid wallet address, got %q", *recipient)
	}
	if *network == "" {
		*network = cfg.Network
	}
	if !models.IsValidNetwork(models.Network(*network)) {
		return fmt.Errorf("--network must be polygon or polygon-amoy, got %q", *network)
	}

	pv, err := verifier.Dial(cfg)
	if err != nil {
		return fmt.Errorf("setup payment verifier: %w", err)
	}

	result := pv.Verify(context.Background(), verifier.Request{
		TransactionHash:   *txHash,
		Network:           models.Network(*network),
		ExpectedAmount:    expected,
		ExpectedPayer:     *payer,
		ExpectedRecipient: *recipient,
	})

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !result.Verified {
		os.Exit(1)
	}
	return nil
}
