package temporal

import (
	"errors"
	"fmt"
	"time"

	"github.com/brojonat/blinkpay/service/links"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// DefaultConfirmationTimeout bounds how long a workflow waits for a signature
// to reach "confirmed".
const DefaultConfirmationTimeout = 2 * time.Minute

// Terminal workflow outcomes reported in AwaitConfirmationResult.Status.
const (
	StatusConfirmed   = "confirmed"
	StatusFailed      = "failed"
	StatusUnconfirmed = "unconfirmed"
	// StatusMismatch marks a confirmed transaction that does not pay the link.
	StatusMismatch = "mismatch"
)

// AwaitConfirmationInput identifies the payment to watch and the transfer it
// must contain.
type AwaitConfirmationInput struct {
	LinkID    string                 `json:"link_id"`
	Signature string                 `json:"signature"`
	Expected  *links.ExpectedPayment `json:"expected"`
	Timeout   time.Duration          `json:"timeout"`
}

// AwaitConfirmationResult is the terminal state of a confirmation workflow.
type AwaitConfirmationResult struct {
	LinkID             string    `json:"link_id"`
	Signature          string    `json:"signature"`
	Status             string    `json:"status"`
	ConfirmationStatus string    `json:"confirmation_status,omitempty"`
	Slot               uint64    `json:"slot,omitempty"`
	Error              *string   `json:"error,omitempty"`
	CompletedAt        time.Time `json:"completed_at"`
}

// AwaitConfirmationWorkflow polls the chain for a submitted payment until it
// is confirmed, rejected, or the timeout elapses.
//
// Polling is expressed as the retry policy of CheckSignatureStatus: the
// activity fails with a retryable error while the signature is pending, so
// Temporal re-runs it every few seconds until ScheduleToCloseTimeout.
// A confirmed transaction is then fetched and checked against the expected
// transfer with VerifyPayment; only a verified payment is announced with
// PublishPaymentConfirmed. A malformed signature fails the workflow.
func AwaitConfirmationWorkflow(ctx workflow.Context, input AwaitConfirmationInput) (*AwaitConfirmationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("AwaitConfirmationWorkflow started",
		"link_id", input.LinkID,
		"signature", input.Signature,
	)

	if input.Expected == nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"no expected payment for link "+input.LinkID, ErrTypePaymentMismatch, nil)
	}

	timeout := input.Timeout
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}

	result := &AwaitConfirmationResult{
		LinkID:    input.LinkID,
		Signature: input.Signature,
	}

	checkCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout:    15 * time.Second,
		ScheduleToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     1.5,
			MaximumInterval:        10 * time.Second,
			NonRetryableErrorTypes: []string{ErrTypeInvalidSignature},
		},
	})

	var status *CheckSignatureStatusResult
	err := workflow.ExecuteActivity(checkCtx, "CheckSignatureStatus", CheckSignatureStatusInput{
		Signature: input.Signature,
	}).Get(ctx, &status)
	result.CompletedAt = workflow.Now(ctx)
	if err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.Type() == ErrTypeInvalidSignature {
			logger.Warn("invalid signature", "signature", input.Signature, "error", err)
			return nil, err
		}
		logger.Warn("signature did not confirm", "signature", input.Signature, "error", err)
		errMsg := fmt.Sprintf("signature not confirmed: %v", err)
		result.Status = StatusUnconfirmed
		result.Error = &errMsg
		return result, nil
	}

	result.ConfirmationStatus = status.ConfirmationStatus
	result.Slot = status.Slot

	if status.Err != nil {
		logger.Info("transaction failed on chain", "signature", input.Signature, "error", *status.Err)
		result.Status = StatusFailed
		result.Error = status.Err
		return result, nil
	}

	verifyCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        10 * time.Second,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{ErrTypePaymentMismatch, ErrTypeInvalidSignature},
		},
	})
	err = workflow.ExecuteActivity(verifyCtx, "VerifyPayment", VerifyPaymentInput{
		Signature: input.Signature,
		Expected:  *input.Expected,
	}).Get(ctx, nil)
	result.CompletedAt = workflow.Now(ctx)
	if err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.Type() == ErrTypePaymentMismatch {
			logger.Warn("confirmed transaction does not pay the link",
				"link_id", input.LinkID,
				"signature", input.Signature,
				"error", err,
			)
			errMsg := appErr.Message()
			result.Status = StatusMismatch
			result.Error = &errMsg
			return result, nil
		}
		logger.Error("failed to verify payment", "link_id", input.LinkID, "error", err)
		return nil, err
	}

	result.Status = StatusConfirmed

	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})
	err = workflow.ExecuteActivity(publishCtx, "PublishPaymentConfirmed", PublishPaymentConfirmedInput{
		LinkID:    input.LinkID,
		Signature: input.Signature,
		Slot:      status.Slot,
	}).Get(ctx, nil)
	if err != nil {
		// Publishing is best effort.
		logger.Warn("failed to publish payment confirmation", "link_id", input.LinkID, "error", err)
	}

	logger.Info("payment confirmed",
		"link_id", input.LinkID,
		"signature", input.Signature,
		"slot", status.Slot,
	)
	return result, nil
}
