package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/brojonat/blinkpay/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetLatestBlockhash(
		ctx context.Context,
		commitment rpc.CommitmentType,
	) (*rpc.GetLatestBlockhashResult, error)

	GetAccountInfoWithOpts(
		ctx context.Context,
		account solana.PublicKey,
		opts *rpc.GetAccountInfoOpts,
	) (*rpc.GetAccountInfoResult, error)

	GetBalance(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetBalanceResult, error)

	GetTokenAccountBalance(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetTokenAccountBalanceResult, error)

	GetSignatureStatuses(
		ctx context.Context,
		searchTransactionHistory bool,
		signatures ...solana.Signature,
	) (*rpc.GetSignatureStatusesResult, error)

	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)
}

// ErrTransactionNotFound is returned when the node has no record of a signature.
var ErrTransactionNotFound = errors.New("transaction not found")

// Client provides the chain reads needed to build and confirm payments.
// It wraps the RPC client with domain-specific operations. No call is retried;
// failures are returned to the caller as-is.
type Client struct {
	rpc        RPCClient
	commitment rpc.CommitmentType
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new Solana client using "confirmed" commitment.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:        rpcClient,
		commitment: rpc.CommitmentConfirmed,
		logger:     logger,
		metrics:    m,
	}
}

func (c *Client) record(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, time.Since(start).Seconds())
}

// LatestBlockhash fetches the most recent blockhash.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	start := time.Now()
	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	c.record("GetLatestBlockhash", start, err)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: empty response")
	}

	c.logger.DebugContext(ctx, "fetched latest blockhash",
		"blockhash", out.Value.Blockhash.String(),
		"last_valid_block_height", out.Value.LastValidBlockHeight,
	)
	return out.Value.Blockhash, nil
}

// AccountExists reports whether an account is present on chain. A missing
// account is a normal outcome and returns (false, nil); any other RPC failure
// is returned as an error.
func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	start := time.Now()
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		c.record("GetAccountInfo", start, nil)
		c.logger.DebugContext(ctx, "account not found", "account", account.String())
		return false, nil
	}
	c.record("GetAccountInfo", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to get account info for %s: %w", account, err)
	}
	return out != nil && out.Value != nil, nil
}

// Balance returns the lamport balance of account.
func (c *Client) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	start := time.Now()
	out, err := c.rpc.GetBalance(ctx, account, c.commitment)
	c.record("GetBalance", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for %s: %w", account, err)
	}
	if out == nil {
		return 0, nil
	}
	return out.Value, nil
}

// TokenBalance returns the base-unit balance held by a token account. A token
// account that does not exist holds nothing.
func (c *Client) TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	exists, err := c.AccountExists(ctx, account)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	start := time.Now()
	out, err := c.rpc.GetTokenAccountBalance(ctx, account, c.commitment)
	c.record("GetTokenAccountBalance", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to get token balance for %s: %w", account, err)
	}
	if out == nil || out.Value == nil {
		return 0, nil
	}

	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token amount %q for %s: %w", out.Value.Amount, account, err)
	}
	return amount, nil
}

// SignatureStatus looks up the status of a submitted transaction, searching
// the full transaction history.
func (c *Client) SignatureStatus(ctx context.Context, signature solana.Signature) (*SignatureStatus, error) {
	start := time.Now()
	out, err := c.rpc.GetSignatureStatuses(ctx, true, signature)
	c.record("GetSignatureStatuses", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status for %s: %w", signature, err)
	}

	status := &SignatureStatus{Signature: signature.String()}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return status, nil
	}

	v := out.Value[0]
	status.Found = true
	status.Slot = v.Slot
	status.ConfirmationStatus = string(v.ConfirmationStatus)
	status.Confirmations = v.Confirmations
	if v.Err != nil {
		errMsg := fmt.Sprintf("%v", v.Err)
		status.Err = &errMsg
	}

	c.logger.DebugContext(ctx, "fetched signature status",
		"signature", status.Signature,
		"confirmation_status", status.ConfirmationStatus,
		"failed", status.Err != nil,
	)
	return status, nil
}

// Transaction fetches a landed transaction by signature. Versioned (v0)
// transactions are accepted; a signature the node does not know returns
// ErrTransactionNotFound.
func (c *Client) Transaction(ctx context.Context, signature solana.Signature) (*solana.Transaction, error) {
	start := time.Now()
	out, err := c.rpc.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     c.commitment,
		MaxSupportedTransactionVersion: &[]uint64{0}[0],
	})
	if errors.Is(err, rpc.ErrNotFound) {
		c.record("GetTransaction", start, nil)
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, signature)
	}
	c.record("GetTransaction", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", signature, err)
	}
	if out == nil || out.Transaction == nil {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, signature)
	}

	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction %s: %w", signature, err)
	}

	c.logger.DebugContext(ctx, "fetched transaction",
		"signature", signature.String(),
		"slot", out.Slot,
		"instructions", len(tx.Message.Instructions),
	)
	return tx, nil
}
