package solana

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// AssociatedTokenAddress derives the associated token account of owner for mint.
func AssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return ata, nil
}

// BuildSOLTransfer builds an unsigned native transfer of lamports from payer to
// recipient. The payer is also the fee payer.
func BuildSOLTransfer(payer, recipient solana.PublicKey, lamports uint64, blockhash solana.Hash) (*solana.Transaction, error) {
	instruction := system.NewTransferInstruction(
		lamports,
		payer,
		recipient,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// BuildTokenTransfer builds an unsigned SPL token transfer between the payer's
// and recipient's associated token accounts. When params.CreateRecipientAccount
// is set the recipient's account creation is prepended, paid for by the payer.
func BuildTokenTransfer(params TokenTransferParams) (*solana.Transaction, error) {
	payerATA, err := AssociatedTokenAddress(params.Payer, params.Mint)
	if err != nil {
		return nil, err
	}
	recipientATA, err := AssociatedTokenAddress(params.Recipient, params.Mint)
	if err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, 2)
	if params.CreateRecipientAccount {
		instructions = append(instructions, associatedtokenaccount.NewCreateInstruction(
			params.Payer,
			params.Recipient,
			params.Mint,
		).Build())
	}

	instructions = append(instructions, token.NewTransferInstruction(
		params.Amount,
		payerATA,
		recipientATA,
		params.Payer,
		[]solana.PublicKey{},
	).Build())

	tx, err := solana.NewTransaction(
		instructions,
		params.Blockhash,
		solana.TransactionPayer(params.Payer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// EncodeUnsigned serializes tx with an empty signature slot for every required
// signer and returns it base64-encoded. Existing signatures are discarded.
func EncodeUnsigned(tx *solana.Transaction) (string, error) {
	unsigned := *tx
	unsigned.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := unsigned.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeTransaction parses a base64 wire-format transaction.
func DecodeTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return tx, nil
}
