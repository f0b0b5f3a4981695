package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/blinkpay/service/links"
	"github.com/brojonat/blinkpay/service/metrics"
	natspkg "github.com/brojonat/blinkpay/service/nats"
	"github.com/brojonat/blinkpay/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"go.temporal.io/sdk/temporal"
)

// Application error types returned by activities.
const (
	ErrTypeInvalidSignature = "InvalidSignature"
	ErrTypeNotConfirmed     = "NotConfirmed"
	ErrTypePaymentMismatch  = "PaymentMismatch"
)

// SignatureChecker looks up the chain status of a transaction signature.
type SignatureChecker interface {
	SignatureStatus(ctx context.Context, signature solanago.Signature) (*solana.SignatureStatus, error)
}

// PaymentChain is the chain access the confirmation activities need.
type PaymentChain interface {
	SignatureChecker
	Transaction(ctx context.Context, signature solanago.Signature) (*solanago.Transaction, error)
}

// Activities holds the dependencies of the confirmation activities.
type Activities struct {
	chain     PaymentChain
	store     links.Store
	publisher natspkg.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities creates an Activities. store, publisher and m may be nil.
func NewActivities(chain PaymentChain, store links.Store, publisher natspkg.EventPublisher, m *metrics.Metrics, logger *slog.Logger) *Activities {
	return &Activities{
		chain:     chain,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// CheckSignatureStatusInput is the input to CheckSignatureStatus.
type CheckSignatureStatusInput struct {
	Signature string `json:"signature"`
}

// CheckSignatureStatusResult is returned once a signature reaches a terminal state.
type CheckSignatureStatusResult struct {
	ConfirmationStatus string  `json:"confirmation_status"`
	Slot               uint64  `json:"slot"`
	Err                *string `json:"error,omitempty"`
}

// CheckSignatureStatus returns the signature's status once it is confirmed or
// has failed on chain. While it is unknown or only processed the activity
// fails with a retryable NotConfirmed error so the retry policy keeps polling.
func (a *Activities) CheckSignatureStatus(ctx context.Context, input CheckSignatureStatusInput) (*CheckSignatureStatusResult, error) {
	start := time.Now()

	sig, err := solanago.SignatureFromBase58(input.Signature)
	if err != nil {
		a.recordCheck("invalid", start)
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid signature %q", input.Signature), ErrTypeInvalidSignature, err)
	}

	status, err := a.chain.SignatureStatus(ctx, sig)
	if err != nil {
		a.recordCheck("error", start)
		return nil, fmt.Errorf("failed to check signature status: %w", err)
	}

	switch {
	case status.Failed():
		a.recordCheck("failed", start)
		a.logger.InfoContext(ctx, "transaction failed on chain",
			"signature", input.Signature,
			"error", *status.Err,
		)
		return &CheckSignatureStatusResult{
			ConfirmationStatus: status.ConfirmationStatus,
			Slot:               status.Slot,
			Err:                status.Err,
		}, nil

	case status.Confirmed():
		a.recordCheck("confirmed", start)
		a.logger.InfoContext(ctx, "transaction confirmed",
			"signature", input.Signature,
			"confirmation_status", status.ConfirmationStatus,
			"slot", status.Slot,
		)
		return &CheckSignatureStatusResult{
			ConfirmationStatus: status.ConfirmationStatus,
			Slot:               status.Slot,
		}, nil
	}

	a.recordCheck("pending", start)
	a.logger.DebugContext(ctx, "transaction not yet confirmed",
		"signature", input.Signature,
		"found", status.Found,
		"confirmation_status", status.ConfirmationStatus,
	)
	return nil, temporal.NewApplicationError("signature not yet confirmed", ErrTypeNotConfirmed)
}

// VerifyPaymentInput is the input to VerifyPayment.
type VerifyPaymentInput struct {
	Signature string                `json:"signature"`
	Expected  links.ExpectedPayment `json:"expected"`
}

// VerifyPayment fetches a confirmed transaction and checks that it carries the
// expected transfer. A transaction that does not pay the link fails with a
// non-retryable PaymentMismatch error; RPC failures are retryable.
func (a *Activities) VerifyPayment(ctx context.Context, input VerifyPaymentInput) error {
	start := time.Now()

	sig, err := solanago.SignatureFromBase58(input.Signature)
	if err != nil {
		a.recordCheck("invalid", start)
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid signature %q", input.Signature), ErrTypeInvalidSignature, err)
	}

	tx, err := a.chain.Transaction(ctx, sig)
	if err != nil {
		a.recordCheck("error", start)
		return fmt.Errorf("failed to fetch transaction: %w", err)
	}

	summary, err := solana.Summarize(tx)
	if err == nil {
		err = input.Expected.Match(summary)
	}
	if err != nil {
		a.recordCheck("mismatch", start)
		a.logger.WarnContext(ctx, "transaction does not pay the link",
			"signature", input.Signature,
			"destination", input.Expected.Destination,
			"amount", input.Expected.Amount,
			"error", err,
		)
		msg := err.Error()
		if !errors.Is(err, links.ErrPaymentMismatch) {
			msg = fmt.Sprintf("%v: %v", links.ErrPaymentMismatch, err)
		}
		return temporal.NewNonRetryableApplicationError(msg, ErrTypePaymentMismatch, err)
	}

	a.recordCheck("verified", start)
	a.logger.InfoContext(ctx, "payment verified",
		"signature", input.Signature,
		"token", input.Expected.Token,
		"destination", input.Expected.Destination,
		"amount", input.Expected.Amount,
	)
	return nil
}

// PublishPaymentConfirmedInput is the input to PublishPaymentConfirmed.
type PublishPaymentConfirmedInput struct {
	LinkID    string `json:"link_id"`
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
}

// PublishPaymentConfirmed announces a confirmed payment on NATS. The link record
// is looked up to enrich the event; a missing record does not stop the publish.
func (a *Activities) PublishPaymentConfirmed(ctx context.Context, input PublishPaymentConfirmedInput) error {
	if a.publisher == nil {
		a.logger.DebugContext(ctx, "no publisher configured, skipping confirmation event", "link_id", input.LinkID)
		return nil
	}

	event := natspkg.NewLinkEvent(natspkg.EventLinkPaymentConfirmed, input.LinkID, "", "", 0)
	event.Signature = input.Signature

	if a.store != nil {
		rec, err := a.store.Get(ctx, input.LinkID)
		if err != nil {
			a.logger.WarnContext(ctx, "failed to load link for confirmation event",
				"link_id", input.LinkID,
				"error", err,
			)
		} else {
			event.Recipient = rec.Recipient
			event.Token = string(rec.Token)
			event.Amount = rec.Amount
		}
	}

	if err := a.publisher.PublishLinkEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to publish payment confirmation: %w", err)
	}

	a.logger.InfoContext(ctx, "published payment confirmation",
		"link_id", input.LinkID,
		"signature", input.Signature,
	)
	return nil
}

func (a *Activities) recordCheck(status string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordConfirmationCheck(status, time.Since(start).Seconds())
	}
}
