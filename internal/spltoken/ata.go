package spltoken

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// DeriveAssociatedTokenAddress derives the associated token account for an
// owner and mint. Deterministic: same inputs always yield the same address.
// Seeds: [owner, token_program_id, mint] under the associated token program.
func DeriveAssociatedTokenAddress(owner, mint string) (string, error) {
	ownerBytes, err := base58.Decode(owner)
	if err != nil {
		return "", fmt.Errorf("decode owner: %w", err)
	}
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	tokenProgBytes, err := base58.Decode(TokenProgramID)
	if err != nil {
		return "", fmt.Errorf("decode token program id: %w", err)
	}
	ataProgBytes, err := base58.Decode(AssociatedTokenProgramID)
	if err != nil {
		return "", fmt.Errorf("decode associated token program id: %w", err)
	}

	if len(ownerBytes) != 32 || len(mintBytes) != 32 {
		return "", fmt.Errorf("owner and mint must be 32 bytes")
	}

	seeds := [][]byte{ownerBytes, tokenProgBytes, mintBytes}
	addr := derivePDA(seeds, ataProgBytes)
	if addr == "" {
		return "", fmt.Errorf("no valid bump seed for owner %s mint %s", owner, mint)
	}
	return addr, nil
}

// derivePDA derives a Program Derived Address using the Solana algorithm.
func derivePDA(seeds [][]byte, programID []byte) string {
	// PDA derivation algorithm:
	// 1. Concatenate all seeds with bump
	// 2. Append program ID and "ProgramDerivedAddress" marker
	// 3. SHA256 hash
	// 4. Find bump seed that results in off-curve point
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		// A PDA must not be a valid ed25519 point, so no private key exists
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
