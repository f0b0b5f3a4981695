package server

import (
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/brojonat/blinkpay/service/links"
	"github.com/skip2/go-qrcode"
)

// shareLinks are the alternate ways of handing a payment link to a payer.
type shareLinks struct {
	// ActionURI opens the action in an Actions-aware wallet.
	ActionURI string
	// SolanaPayURL is a plain transfer request for wallets without Actions support.
	SolanaPayURL string
	// QRCode is a base64-encoded PNG of ActionURI.
	QRCode string
}

func newShareLinks(actionURL string, rec *links.Record, usdcMint string) (*shareLinks, error) {
	actionURI := "solana-action:" + actionURL

	qr, err := generateQRCode(actionURI)
	if err != nil {
		return nil, err
	}

	share := &shareLinks{
		ActionURI: actionURI,
		QRCode:    qr,
	}
	if rec != nil {
		share.SolanaPayURL = buildSolanaPayURL(rec, usdcMint)
	}
	return share, nil
}

// buildSolanaPayURL creates a Solana Pay transfer request for a link.
// Format: solana:{recipient}?amount={amount}&spl-token={mint}&label={label}&message={message}
func buildSolanaPayURL(rec *links.Record, usdcMint string) string {
	params := url.Values{}
	params.Set("amount", links.FormatAmount(rec.Amount))
	params.Set("label", "BlinkPay")
	if rec.Memo != "" {
		params.Set("message", rec.Memo)
	}
	if rec.Token == links.TokenUSDC && usdcMint != "" {
		params.Set("spl-token", usdcMint)
	}

	return fmt.Sprintf("solana:%s?%s", rec.Recipient, params.Encode())
}

// generateQRCode creates a QR code image and returns it as base64-encoded PNG.
func generateQRCode(data string) (string, error) {
	qr, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code as PNG: %w", err)
	}

	return base64.StdEncoding.EncodeToString(png), nil
}
