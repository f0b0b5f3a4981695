package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// CreateLinkRequest describes a new payment link.
type CreateLinkRequest struct {
	Recipient string  `json:"recipient"`
	Token     string  `json:"token"`
	Amount    float64 `json:"amount"`
	Memo      string  `json:"memo,omitempty"`
}

// CreatedLink is the server's response to CreateLink.
type CreatedLink struct {
	ID           string `json:"id"`
	Link         string `json:"link"`
	ActionURL    string `json:"action_url"`
	SolanaPayURL string `json:"solana_pay_url,omitempty"`
	QRCode       string `json:"qr_code,omitempty"`
}

// Action is the display payload of a link.
type Action struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Label       string `json:"label"`
}

// Transaction is an unsigned, base64-encoded transaction built for a payer.
type Transaction struct {
	Transaction string `json:"transaction"`
	Message     string `json:"message,omitempty"`
}

// ConfirmationStarted is returned by StartConfirmation.
type ConfirmationStarted struct {
	WorkflowID string `json:"workflow_id"`
	StatusURL  string `json:"status_url"`
}

// Confirmation is the state of a payment confirmation workflow.
type Confirmation struct {
	WorkflowID         string  `json:"workflow_id"`
	LinkID             string  `json:"link_id"`
	Signature          string  `json:"signature"`
	State              string  `json:"state"`
	ConfirmationStatus string  `json:"confirmation_status,omitempty"`
	Slot               uint64  `json:"slot,omitempty"`
	Error              *string `json:"error,omitempty"`
}

// Done reports whether the workflow has finished.
func (c *Confirmation) Done() bool {
	return c.State != "running"
}

// Confirmed reports whether the payment landed.
func (c *Confirmation) Confirmed() bool {
	return c.State == "confirmed"
}

// SignatureStatus is the chain's view of a transaction signature.
type SignatureStatus struct {
	Signature          string  `json:"signature"`
	Found              bool    `json:"found"`
	Slot               uint64  `json:"slot"`
	ConfirmationStatus string  `json:"confirmation_status"`
	Confirmed          bool    `json:"confirmed"`
	Failed             bool    `json:"failed"`
	Error              *string `json:"error,omitempty"`
}

// CreateLink creates a payment link.
func (c *Client) CreateLink(ctx context.Context, req CreateLinkRequest) (*CreatedLink, error) {
	var created CreatedLink
	if err := c.doJSON(ctx, http.MethodPost, "/api/create-link", req, &created, http.StatusOK); err != nil {
		return nil, err
	}
	c.logger.Debug("payment link created", "id", created.ID, "link", created.Link)
	return &created, nil
}

// GetAction fetches the display payload for a link.
func (c *Client) GetAction(ctx context.Context, id string) (*Action, error) {
	var action Action
	if err := c.doJSON(ctx, http.MethodGet, actionPath(id), nil, &action, http.StatusOK); err != nil {
		return nil, err
	}
	return &action, nil
}

// BuildTransaction asks the server for an unsigned transaction paying link id
// from account.
func (c *Client) BuildTransaction(ctx context.Context, id, account string) (*Transaction, error) {
	var tx Transaction
	body := map[string]string{"account": account}
	if err := c.doJSON(ctx, http.MethodPost, actionPath(id), body, &tx, http.StatusOK); err != nil {
		return nil, err
	}
	c.logger.Debug("transaction built", "id", id, "account", account)
	return &tx, nil
}

// StartConfirmation starts server-side confirmation tracking for a submitted payment.
func (c *Client) StartConfirmation(ctx context.Context, id, signature string) (*ConfirmationStarted, error) {
	var started ConfirmationStarted
	path := "/p/" + url.PathEscape(id) + "/confirm"
	body := map[string]string{"signature": signature}
	if err := c.doJSON(ctx, http.MethodPost, path, body, &started, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &started, nil
}

// GetConfirmation returns the current state of a confirmation workflow.
func (c *Client) GetConfirmation(ctx context.Context, workflowID string) (*Confirmation, error) {
	var conf Confirmation
	path := "/api/v1/confirmations/" + url.PathEscape(workflowID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &conf, http.StatusOK); err != nil {
		return nil, err
	}
	return &conf, nil
}

// AwaitConfirmation polls GetConfirmation every interval until the workflow
// finishes or ctx is done.
func (c *Client) AwaitConfirmation(ctx context.Context, workflowID string, interval time.Duration) (*Confirmation, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		conf, err := c.GetConfirmation(ctx, workflowID)
		if err != nil {
			return nil, err
		}
		if conf.Done() {
			return conf, nil
		}
		c.logger.Debug("confirmation pending", "workflow_id", workflowID)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for confirmation: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetSignatureStatus asks the server to look a signature up on chain.
func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	var status SignatureStatus
	path := "/api/v1/signatures/" + url.PathEscape(signature)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &status, http.StatusOK); err != nil {
		return nil, err
	}
	return &status, nil
}

func actionPath(id string) string {
	return "/p/" + url.PathEscape(id) + "/action.json"
}
