package links

import (
	"fmt"

	bpsolana "github.com/brojonat/blinkpay/service/solana"
	"github.com/gagliardetto/solana-go"
)

// ExpectedPayment is the transfer that settles a link: at least Amount base
// units credited to Destination. For SOL the destination is the recipient
// wallet; for USDC it is the recipient's associated token account for Mint.
type ExpectedPayment struct {
	Token       Token  `json:"token"`
	Recipient   string `json:"recipient"`
	Destination string `json:"destination"`
	Mint        string `json:"mint,omitempty"`
	Amount      uint64 `json:"amount"`
}

// NewExpectedPayment derives the settling transfer for rec.
func NewExpectedPayment(rec *Record, usdcMint solana.PublicKey) (*ExpectedPayment, error) {
	recipient, err := solana.PublicKeyFromBase58(rec.Recipient)
	if err != nil {
		return nil, fmt.Errorf("stored recipient %q is invalid: %w", rec.Recipient, err)
	}
	units, err := ToBaseUnits(rec.Amount, rec.Token)
	if err != nil {
		return nil, err
	}

	expected := &ExpectedPayment{
		Token:     rec.Token,
		Recipient: recipient.String(),
		Amount:    units,
	}
	switch rec.Token {
	case TokenSOL:
		expected.Destination = recipient.String()
	case TokenUSDC:
		ata, err := bpsolana.AssociatedTokenAddress(recipient, usdcMint)
		if err != nil {
			return nil, err
		}
		expected.Destination = ata.String()
		expected.Mint = usdcMint.String()
	}
	return expected, nil
}

// ExpectedPayment derives the settling transfer for rec using the configured USDC mint.
func (s *Service) ExpectedPayment(rec *Record) (*ExpectedPayment, error) {
	return NewExpectedPayment(rec, s.opts.USDCMint)
}

// Match checks that summary credits Destination with at least Amount. Transfers
// to other accounts, or of another mint, do not count toward the total.
func (p *ExpectedPayment) Match(summary *bpsolana.TransactionSummary) error {
	var paid uint64
	for _, ix := range summary.Instructions {
		if ix.Amount == nil || ix.Destination != p.Destination {
			continue
		}
		switch ix.Kind {
		case bpsolana.KindSystemTransfer:
			if p.Token != TokenSOL {
				continue
			}
		case bpsolana.KindTokenTransfer, bpsolana.KindTokenTransferChecked:
			if p.Token != TokenUSDC {
				continue
			}
			if ix.Mint != "" && ix.Mint != p.Mint {
				continue
			}
		default:
			continue
		}
		paid += *ix.Amount
	}

	if paid == 0 {
		return fmt.Errorf("%w: no %s transfer to %s", ErrPaymentMismatch, p.Token, p.Destination)
	}
	if paid < p.Amount {
		return fmt.Errorf("%w: paid %d of %d base units to %s", ErrPaymentMismatch, paid, p.Amount, p.Destination)
	}
	return nil
}
