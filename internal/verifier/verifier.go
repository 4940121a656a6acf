package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/models"
)

// transferEventSig is keccak256("Transfer(address,address,uint256)"),
// the topic0 of every ERC-20 Transfer event.
var transferEventSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

var txHashRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ChainClient is the subset of ethclient.Client the verifier needs.
// Satisfied by *ethclient.Client; tests provide a fake.
type ChainClient interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Request describes one payment to check against the chain.
type Request struct {
	TransactionHash   string
	Network           models.Network
	ExpectedAmount    decimal.Decimal
	ExpectedPayer     string
	ExpectedRecipient string
}

// Result is the outcome of a verification. A failed check carries a
// Diagnostic; RPC errors are reported the same way, never as a crash.
type Result struct {
	Verified    bool            `json:"verified"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
	From        string          `json:"from,omitempty"`
	To          string          `json:"to,omitempty"`
	BlockNumber uint64          `json:"blockNumber,omitempty"`
	Diagnostic  string          `json:"error,omitempty"`
}

// Verifier checks USDC transfers against expected amount, payer, and
// recipient. Pure verification: it never mutates marketplace state.
type Verifier struct {
	clients   map[models.Network]ChainClient
	timeout   time.Duration
	tolerance decimal.Decimal
}

// New creates a Verifier over the given per-network chain clients.
func New(clients map[models.Network]ChainClient) *Verifier {
	return &Verifier{
		clients:   clients,
		timeout:   config.VerifyTimeout,
		tolerance: decimal.RequireFromString(config.AmountTolerance),
	}
}

// Dial connects to the configured JSON-RPC endpoints for all supported
// networks and returns a Verifier over them.
func Dial(cfg *config.Config) (*Verifier, error) {
	clients := make(map[models.Network]ChainClient, len(models.AllNetworks))
	for _, network := range models.AllNetworks {
		rpcURL := cfg.RPCURL(string(network))
		client, err := ethclient.Dial(rpcURL)
		if err != nil {
			return nil, fmt.Errorf("dial %s RPC %s: %w", network, rpcURL, err)
		}
		clients[network] = client
		slog.Info("chain client connected", "network", network, "rpcURL", rpcURL)
	}
	return New(clients), nil
}

// USDCContract returns the settlement token contract for a network.
func USDCContract(network models.Network) common.Address {
	if network == models.NetworkAmoy {
		return common.HexToAddress(config.USDCAmoyContract)
	}
	return common.HexToAddress(config.USDCPolygonContract)
}

func failed(diag string) Result {
	return Result{Verified: false, Diagnostic: diag}
}

// Verify fetches the transaction receipt and checks that it is a
// successful USDC transfer matching the expected amount, payer, and
// recipient. The amount is decoded from the token Transfer event, not
// from the outer transaction, so wrapper and proxy calls cannot spoof it.
func (v *Verifier) Verify(ctx context.Context, req Request) Result {
	start := time.Now()

	slog.Info("verifying payment",
		"txHash", req.TransactionHash,
		"network", req.Network,
		"expectedAmount", req.ExpectedAmount.StringFixed(config.USDCDecimals),
	)

	client, ok := v.clients[req.Network]
	if !ok {
		return failed(fmt.Sprintf("unsupported network: %s", req.Network))
	}

	if !txHashRe.MatchString(req.TransactionHash) {
		return failed(fmt.Sprintf("malformed transaction hash: %s", req.TransactionHash))
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	hash := common.HexToHash(req.TransactionHash)

	receipt, err := client.TransactionReceipt(ctx, hash)
	if err != nil {
		slog.Warn("receipt lookup failed",
			"txHash", req.TransactionHash,
			"network", req.Network,
			"error", err,
		)
		return failed(fmt.Sprintf("transaction lookup failed: %v", err))
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return failed("transaction failed on chain")
	}

	tx, isPending, err := client.TransactionByHash(ctx, hash)
	if err != nil {
		return failed(fmt.Sprintf("transaction lookup failed: %v", err))
	}
	if isPending {
		return failed("transaction still pending")
	}

	usdc := USDCContract(req.Network)
	if tx.To() == nil || *tx.To() != usdc {
		return failed("transaction is not a USDC transfer")
	}

	// Locate the Transfer(from, to, value) event emitted by the token
	// contract itself.
	var transferLog *types.Log
	for _, l := range receipt.Logs {
		if l.Address == usdc && len(l.Topics) >= 3 && l.Topics[0] == transferEventSig {
			transferLog = l
			break
		}
	}
	if transferLog == nil {
		return failed("no USDC transfer event found")
	}

	from := common.BytesToAddress(transferLog.Topics[1].Bytes())
	to := common.BytesToAddress(transferLog.Topics[2].Bytes())
	value := new(big.Int).SetBytes(transferLog.Data)
	amount := decimal.NewFromBigInt(value, -config.USDCDecimals)

	result := Result{
		Amount:      amount,
		From:        strings.ToLower(from.Hex()),
		To:          strings.ToLower(to.Hex()),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}

	if from != common.HexToAddress(req.ExpectedPayer) {
		result.Diagnostic = fmt.Sprintf("payer mismatch. expected %s, got %s",
			models.NormalizeWallet(req.ExpectedPayer), result.From)
		return result
	}

	if to != common.HexToAddress(req.ExpectedRecipient) {
		result.Diagnostic = fmt.Sprintf("recipient mismatch. expected %s, got %s",
			models.NormalizeWallet(req.ExpectedRecipient), result.To)
		return result
	}

	if amount.Sub(req.ExpectedAmount).Abs().GreaterThan(v.tolerance) {
		result.Diagnostic = fmt.Sprintf("amount mismatch. expected %s, got %s",
			req.ExpectedAmount.String(), amount.String())
		return result
	}

	result.Verified = true

	slog.Info("payment verified",
		"txHash", req.TransactionHash,
		"network", req.Network,
		"amount", amount.String(),
		"blockNumber", result.BlockNumber,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)

	return result
}

// Confirmed reports whether the transaction has at least minConf
// confirmations on the given network.
func (v *Verifier) Confirmed(ctx context.Context, txHash string, network models.Network, minConf uint64) (bool, error) {
	client, ok := v.clients[network]
	if !ok {
		return false, fmt.Errorf("unsupported network: %s", network)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	receipt, err := client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return false, fmt.Errorf("receipt lookup: %w", err)
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return false, fmt.Errorf("block number lookup: %w", err)
	}

	mined := receipt.BlockNumber.Uint64()
	if head < mined {
		return false, nil
	}
	return head-mined+1 >= minConf, nil
}
