// Package relay drives a validated transfer request through account
// provisioning, submission, confirmation, and balance read-back.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-usdc-relay/internal/ledger"
	"solana-usdc-relay/internal/observability"
	"solana-usdc-relay/internal/solana"
	"solana-usdc-relay/internal/spltoken"
)

// Request is a validated-shape transfer request: recipient wallet address
// and amount in the asset's base unit.
type Request struct {
	Recipient string
	Amount    uint64
}

// Result is a completed transfer. Balance is nil when the post-transfer
// balance read failed; the transfer itself still succeeded.
type Result struct {
	Signature string
	Balance   *uint64
}

// Orchestrator executes transfers against a ledger.Client.
// It holds no mutable state; concurrent Transfer calls are independent.
// Concurrent transfers from the same signing account may still race at
// the ledger level; the relay does not serialize them.
type Orchestrator struct {
	ledger ledger.Client
	signer spltoken.Signer
	mint   string
	logger *log.Logger
}

// Options for creating an Orchestrator.
type Options struct {
	// Ledger is the network facade. Required.
	Ledger ledger.Client
	// Signer is the relay's signing identity, used as sender, transfer
	// authority, and fee payer. Required.
	Signer spltoken.Signer
	// Mint is the token mint address. Required.
	Mint string
	// Logger defaults to log.Default().
	Logger *log.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		ledger: opts.Ledger,
		signer: opts.Signer,
		mint:   opts.Mint,
		logger: logger,
	}
}

// Transfer runs the full orchestration:
// validate → resolve accounts → provision if missing → submit transfer →
// confirm → read back sender balance.
// A failure at any step returns *TransferError; the balance read is the
// one exception and degrades to a nil Balance on success.
func (o *Orchestrator) Transfer(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if err := validate(req); err != nil {
		observability.RecordTransfer(string(ReasonInvalidInput), time.Since(start).Seconds())
		return nil, err
	}

	// Once past validation the orchestration must run to completion even
	// if the caller disconnects: a submitted transaction cannot be
	// aborted, and an abandoned confirmation wait would leave the outcome
	// unlogged. Network steps stay bounded by the facade's own timeouts.
	ctx = context.WithoutCancel(ctx)

	owner := o.signer.PublicKey()

	senderAccount, err := o.ledger.DeriveAccount(owner, o.mint)
	if err != nil {
		observability.RecordTransfer(string(ReasonInvalidInput), time.Since(start).Seconds())
		return nil, &TransferError{Reason: ReasonInvalidInput, Step: "derive sender account", Err: err}
	}
	recipientAccount, err := o.ledger.DeriveAccount(req.Recipient, o.mint)
	if err != nil {
		observability.RecordTransfer(string(ReasonInvalidInput), time.Since(start).Seconds())
		return nil, &TransferError{Reason: ReasonInvalidInput, Step: "derive recipient account", Err: err}
	}

	if err := o.provision(ctx, req.Recipient, recipientAccount); err != nil {
		observability.RecordTransfer(string(err.Reason), time.Since(start).Seconds())
		return nil, err
	}

	transferIx := o.ledger.BuildTransferInstruction(senderAccount, recipientAccount, owner, req.Amount)
	signature, err := o.ledger.SubmitAndConfirm(ctx, []spltoken.Instruction{transferIx}, o.signer)
	if err != nil {
		// Never resubmitted: after SendTransaction the outcome is only
		// knowable through the ledger, not through a blind retry.
		terr := classifyLedgerError("submit transfer", signature, err)
		observability.RecordTransfer(string(terr.Reason), time.Since(start).Seconds())
		return nil, terr
	}

	o.logger.Printf("transfer confirmed: %d base units to %s (%s)", req.Amount, req.Recipient, signature)

	result := &Result{Signature: signature}
	balance, err := o.ledger.GetBalance(ctx, senderAccount)
	if err != nil {
		// Secondary failure: the transfer already happened, so the
		// response degrades to signature-only instead of rolling back.
		o.logger.Printf("balance read after transfer %s failed: %v", signature, err)
		observability.RecordSecondaryReadFailure()
	} else {
		result.Balance = &balance
	}

	observability.RecordTransfer("confirmed", time.Since(start).Seconds())
	return result, nil
}

// provision creates the recipient's token account when it does not exist.
// Idempotent: existence is re-checked before every attempt, so a retried
// orchestration can never double-create.
func (o *Orchestrator) provision(ctx context.Context, recipient, recipientAccount string) *TransferError {
	exists, err := o.ledger.AccountExists(ctx, recipientAccount)
	if err != nil {
		return classifyLedgerError("check recipient account", "", err)
	}
	if exists {
		return nil
	}

	o.logger.Printf("provisioning token account %s for %s", recipientAccount, recipient)

	ix := o.ledger.BuildProvisionInstruction(recipient, o.signer.PublicKey(), recipientAccount, o.mint)
	signature, err := o.ledger.SubmitAndConfirm(ctx, []spltoken.Instruction{ix}, o.signer)
	if err != nil {
		terr := classifyLedgerError("provision recipient account", signature, err)
		if terr.Reason == ReasonConfirmationTimeout {
			// No transfer has been submitted at this point: no value moved,
			// and the existence re-check makes a retry safe even if the
			// provisioning transaction lands later. The indeterminate
			// classification is reserved for the transfer itself.
			terr.Reason = ReasonLedgerUnavailable
		}
		return terr
	}

	observability.RecordProvisioning()
	return nil
}

// validate rejects malformed requests before any network call.
func validate(req Request) error {
	if req.Recipient == "" {
		return &TransferError{Reason: ReasonInvalidInput, Step: "validate", Err: fmt.Errorf("recipient is required")}
	}
	if !solana.ValidPubkey(req.Recipient) {
		return &TransferError{Reason: ReasonInvalidInput, Step: "validate", Err: fmt.Errorf("recipient %q is not a valid address", req.Recipient)}
	}
	if req.Amount == 0 {
		return &TransferError{Reason: ReasonInvalidInput, Step: "validate", Err: fmt.Errorf("amount must be positive")}
	}
	return nil
}

// classifyLedgerError maps facade errors onto the orchestration taxonomy.
func classifyLedgerError(step, signature string, err error) *TransferError {
	reason := ReasonLedgerUnavailable
	switch {
	case errors.Is(err, ledger.ErrConfirmationTimeout):
		reason = ReasonConfirmationTimeout
	case errors.Is(err, ledger.ErrRejected):
		reason = ReasonLedgerRejected
	}
	return &TransferError{Reason: reason, Step: step, Signature: signature, Err: err}
}
