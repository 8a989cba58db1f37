package spltoken

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// Signer signs transaction messages. *solana.Keypair satisfies it.
type Signer interface {
	PublicKey() string
	Sign(message []byte) []byte
}

// NewTransaction compiles instructions into a single legacy transaction,
// signs it with the fee payer, and returns the base64 wire encoding.
// All instructions execute atomically: either the whole batch lands or
// none of it does.
func NewTransaction(instructions []Instruction, recentBlockhash string, payer Signer) (string, error) {
	if len(instructions) == 0 {
		return "", fmt.Errorf("no instructions")
	}

	msg, signerKeys, err := compileMessage(payer.PublicKey(), instructions, recentBlockhash)
	if err != nil {
		return "", fmt.Errorf("compile message: %w", err)
	}

	// The relay signs with a single identity; every required signer
	// must therefore be the fee payer itself.
	for _, key := range signerKeys {
		if key != payer.PublicKey() {
			return "", fmt.Errorf("unsatisfiable signer %s", key)
		}
	}

	sig := payer.Sign(msg)

	// Wire format: shortvec(sig count) | signatures | message
	wire := make([]byte, 0, 1+len(signerKeys)*64+len(msg))
	wire = appendShortvec(wire, len(signerKeys))
	for range signerKeys {
		wire = append(wire, sig...)
	}
	wire = append(wire, msg...)

	return base64.StdEncoding.EncodeToString(wire), nil
}

// compiledAccount is an account key with merged signer/writable flags.
type compiledAccount struct {
	pubkey   string
	signer   bool
	writable bool
}

// compileMessage serializes a legacy message and returns it together with
// the ordered list of required signer keys.
func compileMessage(feePayer string, instructions []Instruction, recentBlockhash string) ([]byte, []string, error) {
	accounts := collectAccounts(feePayer, instructions)

	index := make(map[string]int, len(accounts))
	for i, a := range accounts {
		index[a.pubkey] = i
	}

	var numSigners, numReadonlySigned, numReadonlyUnsigned int
	var signerKeys []string
	for _, a := range accounts {
		if a.signer {
			numSigners++
			signerKeys = append(signerKeys, a.pubkey)
			if !a.writable {
				numReadonlySigned++
			}
		} else if !a.writable {
			numReadonlyUnsigned++
		}
	}

	blockhashBytes, err := base58.Decode(recentBlockhash)
	if err != nil {
		return nil, nil, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(blockhashBytes) != 32 {
		return nil, nil, fmt.Errorf("blockhash must be 32 bytes, got %d", len(blockhashBytes))
	}

	// Header: numRequiredSignatures | numReadonlySigned | numReadonlyUnsigned
	msg := []byte{byte(numSigners), byte(numReadonlySigned), byte(numReadonlyUnsigned)}

	msg = appendShortvec(msg, len(accounts))
	for _, a := range accounts {
		keyBytes, err := base58.Decode(a.pubkey)
		if err != nil {
			return nil, nil, fmt.Errorf("decode account key %s: %w", a.pubkey, err)
		}
		if len(keyBytes) != 32 {
			return nil, nil, fmt.Errorf("account key %s: expected 32 bytes, got %d", a.pubkey, len(keyBytes))
		}
		msg = append(msg, keyBytes...)
	}

	msg = append(msg, blockhashBytes...)

	msg = appendShortvec(msg, len(instructions))
	for _, ix := range instructions {
		progIdx, ok := index[ix.ProgramID]
		if !ok {
			return nil, nil, fmt.Errorf("program %s not in account table", ix.ProgramID)
		}
		msg = append(msg, byte(progIdx))

		msg = appendShortvec(msg, len(ix.Accounts))
		for _, meta := range ix.Accounts {
			acctIdx, ok := index[meta.Pubkey]
			if !ok {
				return nil, nil, fmt.Errorf("account %s not in account table", meta.Pubkey)
			}
			msg = append(msg, byte(acctIdx))
		}

		msg = appendShortvec(msg, len(ix.Data))
		msg = append(msg, ix.Data...)
	}

	return msg, signerKeys, nil
}

// collectAccounts gathers every account the message references, merges
// duplicate flags, and orders them the way the runtime requires:
// fee payer, writable signers, readonly signers, writable non-signers,
// readonly non-signers (program IDs land in the last group).
func collectAccounts(feePayer string, instructions []Instruction) []compiledAccount {
	order := []string{feePayer}
	merged := map[string]*compiledAccount{
		feePayer: {pubkey: feePayer, signer: true, writable: true},
	}

	add := func(pubkey string, signer, writable bool) {
		if a, ok := merged[pubkey]; ok {
			a.signer = a.signer || signer
			a.writable = a.writable || writable
			return
		}
		merged[pubkey] = &compiledAccount{pubkey: pubkey, signer: signer, writable: writable}
		order = append(order, pubkey)
	}

	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			add(meta.Pubkey, meta.IsSigner, meta.IsWritable)
		}
		add(ix.ProgramID, false, false)
	}

	// Stable bucketing keeps first-reference order within each class
	rank := func(a *compiledAccount) int {
		switch {
		case a.pubkey == feePayer:
			return 0
		case a.signer && a.writable:
			return 1
		case a.signer:
			return 2
		case a.writable:
			return 3
		default:
			return 4
		}
	}

	result := make([]compiledAccount, 0, len(order))
	for class := 0; class <= 4; class++ {
		for _, pubkey := range order {
			a := merged[pubkey]
			if rank(a) == class {
				result = append(result, *a)
			}
		}
	}
	return result
}

// appendShortvec appends a compact-u16 length prefix (Solana shortvec).
func appendShortvec(buf []byte, n int) []byte {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}
