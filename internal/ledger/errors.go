package ledger

import "errors"

// Facade errors. Callers branch on these with errors.Is; the underlying
// cause stays attached through wrapping.
var (
	// ErrUnavailable means the cluster could not be reached or answered
	// with a transport-level failure. Transient; reads may be retried.
	ErrUnavailable = errors.New("ledger unavailable")

	// ErrRejected means the cluster processed the request and refused it
	// (e.g. insufficient funds). Terminal; retrying submits the same
	// doomed transaction again.
	ErrRejected = errors.New("ledger rejected")

	// ErrConfirmationTimeout means a submitted transaction was not
	// confirmed within the confirmation window. The outcome is
	// indeterminate: the transaction may still land.
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)
