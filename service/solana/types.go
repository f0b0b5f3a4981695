package solana

import (
	"github.com/gagliardetto/solana-go"
)

// Base-unit scale for the supported tokens.
const (
	SOLDecimals  = 9
	USDCDecimals = 6
)

// TokenTransferParams describes an SPL token payment between two wallets.
// Payer and Recipient are wallet owners; their associated token accounts are
// derived from Mint.
type TokenTransferParams struct {
	Payer     solana.PublicKey
	Recipient solana.PublicKey
	Mint      solana.PublicKey
	Amount    uint64 // base units
	// CreateRecipientAccount prepends an instruction that creates the
	// recipient's associated token account, funded by Payer.
	CreateRecipientAccount bool
	Blockhash              solana.Hash
}

// SignatureStatus is the chain's view of a submitted transaction.
type SignatureStatus struct {
	Signature          string  `json:"signature"`
	Found              bool    `json:"found"`
	Slot               uint64  `json:"slot,omitempty"`
	ConfirmationStatus string  `json:"confirmation_status,omitempty"` // processed, confirmed, finalized
	Confirmations      *uint64 `json:"confirmations,omitempty"`
	Err                *string `json:"error,omitempty"`
}

// Confirmed reports whether the transaction landed successfully with at least
// "confirmed" commitment.
func (s *SignatureStatus) Confirmed() bool {
	if s == nil || !s.Found || s.Err != nil {
		return false
	}
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}

// Failed reports whether the chain rejected the transaction.
func (s *SignatureStatus) Failed() bool {
	return s != nil && s.Found && s.Err != nil
}

// InstructionSummary is a human-readable view of one compiled instruction.
type InstructionSummary struct {
	Index       int     `json:"index"`
	Program     string  `json:"program"`
	Kind        string  `json:"kind"` // system_transfer, token_transfer, token_transfer_checked, create_associated_token_account, memo, unknown
	Amount      *uint64 `json:"amount,omitempty"`
	Source      string  `json:"source,omitempty"`
	Destination string  `json:"destination,omitempty"`
	Authority   string  `json:"authority,omitempty"`
	Mint        string  `json:"mint,omitempty"`
	Memo        string  `json:"memo,omitempty"`
}

// TransactionSummary is a decoded view of a (possibly unsigned) transaction.
type TransactionSummary struct {
	FeePayer           string               `json:"fee_payer"`
	RecentBlockhash    string               `json:"recent_blockhash"`
	RequiredSignatures int                  `json:"required_signatures"`
	Signed             bool                 `json:"signed"`
	Instructions       []InstructionSummary `json:"instructions"`
}
