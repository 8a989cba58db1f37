package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-usdc-relay/internal/observability"
	"solana-usdc-relay/internal/solana"
	"solana-usdc-relay/internal/spltoken"
)

// Default confirmation parameters. Confirmation latency is network-bound
// and materially longer than a simple read, so it gets its own timeout
// independent of the RPC client's per-call timeout.
const (
	DefaultConfirmTimeout = 90 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

// RPCLedger implements Client against a Solana RPC node, optionally using
// a WebSocket subscription for confirmation waits.
type RPCLedger struct {
	rpc            solana.RPCClient
	ws             *solana.WSClient
	confirmTimeout time.Duration
	pollInterval   time.Duration
	logger         *log.Logger
}

// LedgerOption configures RPCLedger.
type LedgerOption func(*RPCLedger)

// WithWSClient enables WebSocket-based confirmation waits.
func WithWSClient(ws *solana.WSClient) LedgerOption {
	return func(l *RPCLedger) {
		l.ws = ws
	}
}

// WithConfirmTimeout sets the confirmation wait timeout.
func WithConfirmTimeout(d time.Duration) LedgerOption {
	return func(l *RPCLedger) {
		l.confirmTimeout = d
	}
}

// WithPollInterval sets the signature status poll interval.
func WithPollInterval(d time.Duration) LedgerOption {
	return func(l *RPCLedger) {
		l.pollInterval = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) LedgerOption {
	return func(l *RPCLedger) {
		l.logger = logger
	}
}

// NewRPCLedger creates a ledger client backed by a Solana RPC node.
func NewRPCLedger(rpc solana.RPCClient, opts ...LedgerOption) *RPCLedger {
	l := &RPCLedger{
		rpc:            rpc,
		confirmTimeout: DefaultConfirmTimeout,
		pollInterval:   DefaultPollInterval,
		logger:         log.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Compile-time interface check.
var _ Client = (*RPCLedger)(nil)

// DeriveAccount resolves the associated token account for owner and mint.
func (l *RPCLedger) DeriveAccount(owner, mint string) (string, error) {
	return spltoken.DeriveAssociatedTokenAddress(owner, mint)
}

// AccountExists reports whether the account exists on the cluster.
func (l *RPCLedger) AccountExists(ctx context.Context, address string) (bool, error) {
	defer observe("getAccountInfo", time.Now())
	info, err := l.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return false, classify(err)
	}
	return info != nil, nil
}

// BuildProvisionInstruction constructs the create-associated-account instruction.
func (l *RPCLedger) BuildProvisionInstruction(owner, payer, address, mint string) spltoken.Instruction {
	return spltoken.NewCreateAssociatedAccountInstruction(payer, address, owner, mint)
}

// BuildTransferInstruction constructs a token transfer instruction.
func (l *RPCLedger) BuildTransferInstruction(from, to, authority string, amount uint64) spltoken.Instruction {
	return spltoken.NewTransferInstruction(from, to, authority, amount)
}

// SubmitAndConfirm assembles, signs, submits, and confirms one transaction.
func (l *RPCLedger) SubmitAndConfirm(ctx context.Context, instructions []spltoken.Instruction, signer spltoken.Signer) (string, error) {
	blockhashStart := time.Now()
	blockhash, err := l.rpc.GetLatestBlockhash(ctx)
	observe("getLatestBlockhash", blockhashStart)
	if err != nil {
		return "", classify(err)
	}

	tx, err := spltoken.NewTransaction(instructions, blockhash.Blockhash, signer)
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	sendStart := time.Now()
	signature, err := l.rpc.SendTransaction(ctx, tx)
	observe("sendTransaction", sendStart)
	if err != nil {
		return "", classify(err)
	}

	if err := l.awaitConfirmation(ctx, signature); err != nil {
		return signature, err
	}

	return signature, nil
}

// GetBalance reads a token account balance in base units.
func (l *RPCLedger) GetBalance(ctx context.Context, address string) (uint64, error) {
	defer observe("getTokenAccountBalance", time.Now())
	balance, err := l.rpc.GetTokenAccountBalance(ctx, address)
	if err != nil {
		return 0, classify(err)
	}
	return balance, nil
}

// awaitConfirmation blocks until the signature reaches confirmed commitment,
// fails on-chain, or the confirmation window elapses.
func (l *RPCLedger) awaitConfirmation(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, l.confirmTimeout)
	defer cancel()

	if l.ws != nil {
		err := l.awaitViaSubscription(ctx, signature)
		if err == nil || errors.Is(err, ErrRejected) {
			return err
		}
		if errors.Is(err, ErrConfirmationTimeout) {
			return err
		}
		// Subscription failed for transport reasons; fall back to polling
		l.logger.Printf("signature subscription failed, falling back to polling: %v", err)
	}

	return l.awaitViaPolling(ctx, signature)
}

// awaitViaSubscription waits for a signatureNotification over WebSocket.
func (l *RPCLedger) awaitViaSubscription(ctx context.Context, signature string) error {
	ch, err := l.ws.SubscribeSignature(ctx, signature)
	if err != nil {
		return fmt.Errorf("subscribe signature: %w", err)
	}

	// The transaction may have confirmed between sendTransaction and the
	// subscription landing; that notification never arrives, so read the
	// status once before blocking. Failures here are ignored: the
	// subscription is still in place.
	if statuses, err := l.rpc.GetSignatureStatuses(ctx, []string{signature}); err == nil &&
		len(statuses) > 0 && statuses[0] != nil {
		if statuses[0].Failed() {
			return fmt.Errorf("%w: transaction failed: %v", ErrRejected, statuses[0].Err)
		}
		if statuses[0].Finalized() {
			return nil
		}
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
	case result, ok := <-ch:
		if !ok {
			return fmt.Errorf("subscription closed before notification")
		}
		if result.Err != nil {
			return fmt.Errorf("%w: transaction failed: %v", ErrRejected, result.Err)
		}
		return nil
	}
}

// awaitViaPolling polls getSignatureStatuses until finality or timeout.
// Transient read failures do not abort the wait; the next tick retries.
func (l *RPCLedger) awaitViaPolling(ctx context.Context, signature string) error {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
		case <-ticker.C:
			statuses, err := l.rpc.GetSignatureStatuses(ctx, []string{signature})
			if err != nil {
				l.logger.Printf("poll signature status: %v", err)
				continue
			}
			if len(statuses) == 0 || statuses[0] == nil {
				continue
			}
			st := statuses[0]
			if st.Failed() {
				return fmt.Errorf("%w: transaction failed: %v", ErrRejected, st.Err)
			}
			if st.Finalized() {
				return nil
			}
		}
	}
}

// observe records RPC call latency for a method.
func observe(method string, start time.Time) {
	observability.RecordRPCLatency(method, time.Since(start).Seconds())
}

// classify maps raw RPC failures onto the facade taxonomy. A JSON-RPC
// error means the node saw and refused the request; anything else is a
// connectivity problem.
func classify(err error) error {
	var rpcErr *solana.RPCError
	if errors.As(err, &rpcErr) {
		return fmt.Errorf("%w: %s", ErrRejected, rpcErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
