// Package spltoken builds SPL token instructions and transactions by hand.
// Everything here is pure construction: no I/O, no ambient state.
package spltoken

import "encoding/binary"

// Well-known program IDs.
const (
	// TokenProgramID is the SPL Token program.
	TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	// AssociatedTokenProgramID is the associated token account program.
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	// SystemProgramID is the system program.
	SystemProgramID = "11111111111111111111111111111111"
)

// tokenInstructionTransfer is the SPL Token "Transfer" instruction tag.
const tokenInstructionTransfer = 3

// AccountMeta describes an account referenced by an instruction.
type AccountMeta struct {
	Pubkey     string
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

// NewTransferInstruction builds an SPL token transfer of amount base units
// from source to dest token accounts, authorized by owner.
func NewTransferInstruction(source, dest, owner string, amount uint64) Instruction {
	// Layout: tag(1) | amount u64 LE
	data := make([]byte, 9)
	data[0] = tokenInstructionTransfer
	binary.LittleEndian.PutUint64(data[1:], amount)

	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: source, IsWritable: true},
			{Pubkey: dest, IsWritable: true},
			{Pubkey: owner, IsSigner: true},
		},
		Data: data,
	}
}

// NewCreateAssociatedAccountInstruction builds the instruction that creates
// the associated token account ata for owner and mint, funded by payer.
func NewCreateAssociatedAccountInstruction(payer, ata, owner, mint string) Instruction {
	return Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: payer, IsSigner: true, IsWritable: true},
			{Pubkey: ata, IsWritable: true},
			{Pubkey: owner},
			{Pubkey: mint},
			{Pubkey: SystemProgramID},
			{Pubkey: TokenProgramID},
		},
		Data: nil,
	}
}
