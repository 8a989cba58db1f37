package relay

import "fmt"

// Reason classifies a failed transfer orchestration.
type Reason string

const (
	// ReasonInvalidInput: malformed request, rejected before any network call.
	ReasonInvalidInput Reason = "INVALID_INPUT"
	// ReasonLedgerUnavailable: transient connectivity failure.
	ReasonLedgerUnavailable Reason = "LEDGER_UNAVAILABLE"
	// ReasonLedgerRejected: the ledger refused the transaction. Terminal.
	ReasonLedgerRejected Reason = "LEDGER_REJECTED"
	// ReasonConfirmationTimeout: submitted but not confirmed in time.
	// The outcome is indeterminate, not a failure: a caller retry may
	// double-spend.
	ReasonConfirmationTimeout Reason = "CONFIRMATION_TIMEOUT"
)

// TransferError is a failed orchestration with its classification.
// Signature is set when a transaction was already submitted, so an
// indeterminate outcome can still be tracked on-chain.
type TransferError struct {
	Reason    Reason
	Step      string
	Signature string
	Err       error
}

func (e *TransferError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Step, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Reason, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Indeterminate reports whether the transfer may still have landed.
func (e *TransferError) Indeterminate() bool {
	return e.Reason == ReasonConfirmationTimeout
}
