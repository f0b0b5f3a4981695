package temporal

import (
	"context"
	"errors"
	"strings"

	"github.com/brojonat/blinkpay/service/links"
)

// ErrConfirmationNotFound is returned when no workflow exists for an id.
var ErrConfirmationNotFound = errors.New("confirmation not found")

// Workflow states reported by GetConfirmation while a workflow is not yet done,
// or when it ended without producing a result.
const (
	StateRunning = "running"
	StateError   = "error"
)

// ConfirmationStatus is the externally visible state of a confirmation workflow.
// State is "running", "error", or one of the terminal Status* values.
type ConfirmationStatus struct {
	WorkflowID         string  `json:"workflow_id"`
	LinkID             string  `json:"link_id"`
	Signature          string  `json:"signature"`
	State              string  `json:"state"`
	ConfirmationStatus string  `json:"confirmation_status,omitempty"`
	Slot               uint64  `json:"slot,omitempty"`
	Error              *string `json:"error,omitempty"`
}

// Done reports whether the workflow has reached a terminal state.
func (s *ConfirmationStatus) Done() bool {
	return s.State != StateRunning
}

// Confirmer starts and inspects payment confirmation workflows.
type Confirmer interface {
	// StartConfirmation is idempotent per (linkID, signature). expected is the
	// transfer the confirmed transaction must contain.
	StartConfirmation(ctx context.Context, linkID, signature string, expected *links.ExpectedPayment) (workflowID string, err error)
	GetConfirmation(ctx context.Context, workflowID string) (*ConfirmationStatus, error)
}

const workflowIDPrefix = "confirm-"

// ConfirmationWorkflowID returns the workflow id for a payment. Link ids are
// base36 and signatures base58, so neither contains a dash.
func ConfirmationWorkflowID(linkID, signature string) string {
	return workflowIDPrefix + linkID + "-" + signature
}

// ParseConfirmationWorkflowID splits a workflow id back into its link id and
// signature.
func ParseConfirmationWorkflowID(workflowID string) (linkID, signature string, ok bool) {
	rest, found := strings.CutPrefix(workflowID, workflowIDPrefix)
	if !found {
		return "", "", false
	}
	linkID, signature, found = strings.Cut(rest, "-")
	if !found || linkID == "" || signature == "" {
		return "", "", false
	}
	return linkID, signature, true
}
