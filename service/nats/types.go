package nats

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Link event types. The type is also the middle token of the subject.
const (
	EventLinkCreated          = "link.created"
	EventTransactionBuilt     = "link.transaction_built"
	EventLinkPaymentConfirmed = "link.payment_confirmed"
)

// LinkEvent is published to "links.<type>.<link_id>" whenever a link changes
// hands in the payment flow.
type LinkEvent struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	LinkID string `json:"link_id"`

	Recipient string  `json:"recipient"`
	Token     string  `json:"token"`
	Amount    float64 `json:"amount"`

	// Set once a payer is known.
	Payer     string `json:"payer,omitempty"`
	Signature string `json:"signature,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewLinkEvent stamps a fresh event id and timestamp.
func NewLinkEvent(eventType, linkID, recipient, token string, amount float64) *LinkEvent {
	return &LinkEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		LinkID:     linkID,
		Recipient:  recipient,
		Token:      token,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
}

// Subject returns the JetStream subject the event is published on.
// The dotted type becomes a single subject token so consumers can filter with
// "links.created.*" style patterns.
func (e *LinkEvent) Subject() string {
	return SubjectPrefix + "." + strings.TrimPrefix(e.Type, "link.") + "." + e.LinkID
}
