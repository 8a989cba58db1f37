// Package journal records transfer outcomes for operator audit.
// The journal is write-only from the relay's point of view: request
// handling never reads it, keeping the relay stateless across requests.
package journal

import (
	"context"
	"time"
)

// Entry is one recorded transfer outcome.
type Entry struct {
	Signature string
	Recipient string
	Amount    uint64 // base units
	Outcome   string // "confirmed" or a failure reason
	CreatedAt time.Time
}

// Journal records transfer outcomes. Implementations must tolerate
// concurrent writers. Write failures are an operator concern, never a
// caller-visible one.
type Journal interface {
	Record(ctx context.Context, e *Entry) error
}

// Nop discards entries; used when no journal is configured.
type Nop struct{}

// Record discards the entry.
func (Nop) Record(context.Context, *Entry) error { return nil }
