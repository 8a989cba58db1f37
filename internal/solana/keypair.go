package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// PubkeyLen is the byte length of a Solana public key.
const PubkeyLen = 32

// Keypair holds the relay's ed25519 signing identity. The secret is kept
// in process memory only and must never be logged or persisted.
type Keypair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// KeypairFromSecret builds a Keypair from a 64-byte secret key
// (32-byte seed followed by the 32-byte public key, Solana layout).
func KeypairFromSecret(secret []byte) (*Keypair, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(secret))
	}

	priv := ed25519.PrivateKey(secret)
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key")
	}

	// The trailing 32 bytes must match the derived public key,
	// otherwise the secret is corrupt and would sign for a different address.
	if !pub.Equal(ed25519.PublicKey(secret[32:])) {
		return nil, fmt.Errorf("secret key public half does not match derived public key")
	}

	return &Keypair{pub: pub, priv: priv}, nil
}

// ParseSecretKey parses a secret key from either a JSON byte array
// ("[12,34,...]", the web wallet export format) or a base58 string.
func ParseSecretKey(s string) (*Keypair, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty secret key")
	}

	if strings.HasPrefix(s, "[") {
		// json decodes []byte from base64 strings, so take the array as
		// ints and range-check each element
		var nums []int
		if err := json.Unmarshal([]byte(s), &nums); err != nil {
			return nil, fmt.Errorf("parse secret key JSON array: %w", err)
		}
		raw := make([]byte, len(nums))
		for i, n := range nums {
			if n < 0 || n > 255 {
				return nil, fmt.Errorf("secret key byte %d out of range: %d", i, n)
			}
			raw[i] = byte(n)
		}
		return KeypairFromSecret(raw)
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("parse secret key base58: %w", err)
	}
	return KeypairFromSecret(raw)
}

// PublicKey returns the base58-encoded public key.
func (k *Keypair) PublicKey() string {
	return base58.Encode(k.pub)
}

// Sign signs a message with the keypair's private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// ParsePubkey decodes a base58 public key and validates its length.
func ParsePubkey(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(raw) != PubkeyLen {
		return nil, fmt.Errorf("pubkey %q: expected %d bytes, got %d", s, PubkeyLen, len(raw))
	}
	return raw, nil
}

// ValidPubkey reports whether s is a well-formed base58 public key.
func ValidPubkey(s string) bool {
	_, err := ParsePubkey(s)
	return err == nil
}
