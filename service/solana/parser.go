package solana

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
)

// Well-known Solana program IDs
var (
	// MemoProgramIDSPL is the SPL Memo program (most common)
	MemoProgramIDSPL = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

	// MemoProgramIDLegacy is the legacy memo program (v1)
	MemoProgramIDLegacy = solana.MustPublicKeyFromBase58("Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo")

	// Token2022ProgramID is the Token Extensions program (Token-2022)
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

// System Program instruction types
const (
	SystemProgramTransferInstruction = uint32(2)
)

// Token Program instruction types
const (
	TokenProgramTransferInstruction        = uint8(3)
	TokenProgramTransferCheckedInstruction = uint8(12)
)

// Instruction kinds reported in InstructionSummary.Kind.
const (
	KindSystemTransfer        = "system_transfer"
	KindTokenTransfer         = "token_transfer"
	KindTokenTransferChecked  = "token_transfer_checked"
	KindCreateAssociatedToken = "create_associated_token_account"
	KindMemo                  = "memo"
	KindUnknown               = "unknown"
)

// Summarize decodes the instructions of tx into a human-readable summary.
// Instructions that cannot be parsed are reported with kind "unknown".
func Summarize(tx *solana.Transaction) (*TransactionSummary, error) {
	msg := tx.Message
	accountKeys := msg.AccountKeys
	if len(accountKeys) == 0 {
		return nil, fmt.Errorf("transaction has no account keys")
	}

	summary := &TransactionSummary{
		FeePayer:           accountKeys[0].String(),
		RecentBlockhash:    msg.RecentBlockhash.String(),
		RequiredSignatures: int(msg.Header.NumRequiredSignatures),
		Signed:             hasSignatures(tx),
		Instructions:       make([]InstructionSummary, 0, len(msg.Instructions)),
	}

	for i, instruction := range msg.Instructions {
		if int(instruction.ProgramIDIndex) >= len(accountKeys) {
			return nil, fmt.Errorf("instruction %d: program index out of bounds", i)
		}
		programID := accountKeys[instruction.ProgramIDIndex]

		s := InstructionSummary{
			Index:   i,
			Program: programID.String(),
			Kind:    KindUnknown,
		}

		switch {
		case programID.Equals(solana.SystemProgramID):
			parseSystemTransfer(&s, instruction, accountKeys)
		case programID.Equals(solana.TokenProgramID) || programID.Equals(Token2022ProgramID):
			parseTokenTransfer(&s, instruction, accountKeys)
		case programID.Equals(solana.SPLAssociatedTokenAccountProgramID):
			parseCreateAssociatedTokenAccount(&s, instruction, accountKeys)
		case programID.Equals(MemoProgramIDSPL) || programID.Equals(MemoProgramIDLegacy):
			if utf8.Valid(instruction.Data) {
				s.Kind = KindMemo
				s.Memo = string(instruction.Data)
			}
		}

		summary.Instructions = append(summary.Instructions, s)
	}

	return summary, nil
}

func hasSignatures(tx *solana.Transaction) bool {
	if len(tx.Signatures) == 0 {
		return false
	}
	for _, sig := range tx.Signatures {
		if sig == (solana.Signature{}) {
			return false
		}
	}
	return true
}

func accountAt(instruction solana.CompiledInstruction, accountKeys []solana.PublicKey, pos int) string {
	if pos >= len(instruction.Accounts) {
		return ""
	}
	idx := int(instruction.Accounts[pos])
	if idx >= len(accountKeys) {
		return ""
	}
	return accountKeys[idx].String()
}

// parseSystemTransfer extracts the amount and endpoints of a System Program Transfer.
func parseSystemTransfer(s *InstructionSummary, instruction solana.CompiledInstruction, accountKeys []solana.PublicKey) {
	// [0..4]  = instruction type (u32, 2 = Transfer)
	// [4..12] = lamports (u64)
	if len(instruction.Data) < 12 {
		return
	}
	if binary.LittleEndian.Uint32(instruction.Data[0:4]) != SystemProgramTransferInstruction {
		return
	}

	amount := binary.LittleEndian.Uint64(instruction.Data[4:12])
	s.Kind = KindSystemTransfer
	s.Amount = &amount
	// accounts: [from, to]
	s.Source = accountAt(instruction, accountKeys, 0)
	s.Destination = accountAt(instruction, accountKeys, 1)
}

// parseTokenTransfer extracts amount and accounts from an SPL Token transfer.
func parseTokenTransfer(s *InstructionSummary, instruction solana.CompiledInstruction, accountKeys []solana.PublicKey) {
	if len(instruction.Data) == 0 {
		return
	}

	switch instruction.Data[0] {
	case TokenProgramTransferInstruction:
		// [0] = type, [1..9] = amount (u64)
		if len(instruction.Data) < 9 {
			return
		}
		amount := binary.LittleEndian.Uint64(instruction.Data[1:9])
		s.Kind = KindTokenTransfer
		s.Amount = &amount
		// accounts: [source, destination, authority]
		s.Source = accountAt(instruction, accountKeys, 0)
		s.Destination = accountAt(instruction, accountKeys, 1)
		s.Authority = accountAt(instruction, accountKeys, 2)

	case TokenProgramTransferCheckedInstruction:
		// [0] = type, [1..9] = amount (u64), [9] = decimals
		if len(instruction.Data) < 10 {
			return
		}
		amount := binary.LittleEndian.Uint64(instruction.Data[1:9])
		s.Kind = KindTokenTransferChecked
		s.Amount = &amount
		// accounts: [source, mint, destination, authority]
		s.Source = accountAt(instruction, accountKeys, 0)
		s.Mint = accountAt(instruction, accountKeys, 1)
		s.Destination = accountAt(instruction, accountKeys, 2)
		s.Authority = accountAt(instruction, accountKeys, 3)
	}
}

// parseCreateAssociatedTokenAccount reads the account layout of an ATA creation:
// [payer, associated_account, owner, mint, system_program, token_program, ...]
func parseCreateAssociatedTokenAccount(s *InstructionSummary, instruction solana.CompiledInstruction, accountKeys []solana.PublicKey) {
	if len(instruction.Accounts) < 4 {
		return
	}
	s.Kind = KindCreateAssociatedToken
	s.Source = accountAt(instruction, accountKeys, 0)
	s.Destination = accountAt(instruction, accountKeys, 1)
	s.Authority = accountAt(instruction, accountKeys, 2)
	s.Mint = accountAt(instruction, accountKeys, 3)
}
