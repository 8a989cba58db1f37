package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mr-tron/base58"

	"solana-usdc-relay/internal/solana"
	"solana-usdc-relay/internal/spltoken"
)

// fakeRPC is a scripted solana.RPCClient.
type fakeRPC struct {
	mu sync.Mutex

	accounts  map[string]*solana.AccountInfo
	balances  map[string]uint64
	signature string

	accountErr   error
	balanceErr   error
	blockhashErr error
	sendErr      error

	// statuses are consumed one response per poll; the last entry repeats.
	statuses    [][]*solana.SignatureStatus
	statusErrs  []error
	statusCalls int
	sendCalls   int
}

func (f *fakeRPC) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.accounts[pubkey], nil
}

func (f *fakeRPC) GetTokenAccountBalance(_ context.Context, pubkey string) (uint64, error) {
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balances[pubkey], nil
}

func (f *fakeRPC) GetLatestBlockhash(context.Context) (solana.Blockhash, error) {
	if f.blockhashErr != nil {
		return solana.Blockhash{}, f.blockhashErr
	}
	return solana.Blockhash{
		Blockhash:            base58.Encode(make([]byte, 32)),
		LastValidBlockHeight: 100,
	}, nil
}

func (f *fakeRPC) SendTransaction(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.signature, nil
}

func (f *fakeRPC) GetSignatureStatuses(context.Context, []string) ([]*solana.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.statusCalls
	f.statusCalls++

	if i < len(f.statusErrs) && f.statusErrs[i] != nil {
		return nil, f.statusErrs[i]
	}
	if len(f.statuses) == 0 {
		return []*solana.SignatureStatus{nil}, nil
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

// ledgerSigner is a valid-key signer for transaction assembly.
type ledgerSigner struct{}

func (ledgerSigner) PublicKey() string {
	key := make([]byte, 32)
	key[0] = 0x01
	return base58.Encode(key)
}

func (ledgerSigner) Sign([]byte) []byte {
	return make([]byte, 64)
}

func testAccount(fill byte) string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = fill
	}
	return base58.Encode(key)
}

func transferBatch() []spltoken.Instruction {
	return []spltoken.Instruction{
		spltoken.NewTransferInstruction(testAccount(0x02), testAccount(0x03), ledgerSigner{}.PublicKey(), 100),
	}
}

func newTestLedger(rpc *fakeRPC, opts ...LedgerOption) *RPCLedger {
	base := []LedgerOption{
		WithConfirmTimeout(time.Second),
		WithPollInterval(5 * time.Millisecond),
		WithLogger(log.New(io.Discard, "", 0)),
	}
	return NewRPCLedger(rpc, append(base, opts...)...)
}

func confirmedStatus() []*solana.SignatureStatus {
	return []*solana.SignatureStatus{{Slot: 42, ConfirmationStatus: "confirmed"}}
}

func TestDeriveAccount(t *testing.T) {
	l := newTestLedger(&fakeRPC{})
	owner := "8UMv4hhDngnT7HFSaqJTCYeWbNzp5BkXzR24MgSgXqD8"
	mint := "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"

	got, err := l.DeriveAccount(owner, mint)
	if err != nil {
		t.Fatalf("DeriveAccount failed: %v", err)
	}
	want, err := spltoken.DeriveAssociatedTokenAddress(owner, mint)
	if err != nil {
		t.Fatalf("reference derivation failed: %v", err)
	}
	if got != want {
		t.Errorf("DeriveAccount = %s, want %s", got, want)
	}

	if _, err := l.DeriveAccount("bogus", mint); err == nil {
		t.Error("expected error for malformed owner")
	}
}

func TestAccountExists(t *testing.T) {
	rpc := &fakeRPC{accounts: map[string]*solana.AccountInfo{
		"present": {Lamports: 1, Owner: spltoken.TokenProgramID},
	}}
	l := newTestLedger(rpc)

	exists, err := l.AccountExists(context.Background(), "present")
	if err != nil {
		t.Fatalf("AccountExists failed: %v", err)
	}
	if !exists {
		t.Error("present account reported missing")
	}

	exists, err = l.AccountExists(context.Background(), "absent")
	if err != nil {
		t.Fatalf("AccountExists failed: %v", err)
	}
	if exists {
		t.Error("absent account reported present")
	}
}

func TestAccountExists_ClassifiesErrors(t *testing.T) {
	t.Run("transport failure is unavailable", func(t *testing.T) {
		rpc := &fakeRPC{accountErr: fmt.Errorf("connection refused")}
		_, err := newTestLedger(rpc).AccountExists(context.Background(), "x")
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("got %v, want ErrUnavailable", err)
		}
	})

	t.Run("rpc error is rejected", func(t *testing.T) {
		rpc := &fakeRPC{accountErr: &solana.RPCError{Code: -32602, Message: "Invalid param"}}
		_, err := newTestLedger(rpc).AccountExists(context.Background(), "x")
		if !errors.Is(err, ErrRejected) {
			t.Errorf("got %v, want ErrRejected", err)
		}
	})
}

func TestSubmitAndConfirm_PollsToConfirmation(t *testing.T) {
	rpc := &fakeRPC{
		signature: "sig-poll",
		statuses: [][]*solana.SignatureStatus{
			{nil}, // not yet visible
			confirmedStatus(),
		},
	}
	l := newTestLedger(rpc)

	sig, err := l.SubmitAndConfirm(context.Background(), transferBatch(), ledgerSigner{})
	if err != nil {
		t.Fatalf("SubmitAndConfirm failed: %v", err)
	}
	if sig != "sig-poll" {
		t.Errorf("signature = %q, want sig-poll", sig)
	}
	if rpc.sendCalls != 1 {
		t.Errorf("sendTransaction called %d times, want 1", rpc.sendCalls)
	}
}

func TestSubmitAndConfirm_Timeout(t *testing.T) {
	rpc := &fakeRPC{signature: "sig-stuck"}
	l := newTestLedger(rpc, WithConfirmTimeout(50*time.Millisecond))

	sig, err := l.SubmitAndConfirm(context.Background(), transferBatch(), ledgerSigner{})
	if !errors.Is(err, ErrConfirmationTimeout) {
		t.Fatalf("got %v, want ErrConfirmationTimeout", err)
	}
	// The in-flight signature must survive the timeout so callers can
	// track the outcome later.
	if sig != "sig-stuck" {
		t.Errorf("signature = %q, want sig-stuck", sig)
	}
	if rpc.sendCalls != 1 {
		t.Errorf("sendTransaction called %d times, want 1 (no blind resubmit)", rpc.sendCalls)
	}
}

func TestSubmitAndConfirm_OnChainFailure(t *testing.T) {
	rpc := &fakeRPC{
		signature: "sig-failed",
		statuses: [][]*solana.SignatureStatus{
			{{Slot: 42, ConfirmationStatus: "confirmed", Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}}},
		},
	}
	l := newTestLedger(rpc)

	_, err := l.SubmitAndConfirm(context.Background(), transferBatch(), ledgerSigner{})
	if !errors.Is(err, ErrRejected) {
		t.Errorf("got %v, want ErrRejected", err)
	}
}

func TestSubmitAndConfirm_ToleratesTransientPollFailures(t *testing.T) {
	rpc := &fakeRPC{
		signature:  "sig-flaky",
		statusErrs: []error{fmt.Errorf("read timeout"), nil},
		statuses: [][]*solana.SignatureStatus{
			{nil},
			confirmedStatus(),
		},
	}
	l := newTestLedger(rpc)

	sig, err := l.SubmitAndConfirm(context.Background(), transferBatch(), ledgerSigner{})
	if err != nil {
		t.Fatalf("transient poll failure aborted the wait: %v", err)
	}
	if sig != "sig-flaky" {
		t.Errorf("signature = %q", sig)
	}
}

// silentWSServer acknowledges signature subscriptions but never delivers a
// notification.
func silentWSServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req struct {
				ID uint64 `json:"id"`
			}
			if err := json.Unmarshal(message, &req); err != nil {
				return
			}
			conn.WriteMessage(websocket.TextMessage,
				[]byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":7431}`, req.ID)))
		}
	}))
}

func newSilentWSClient(t *testing.T) (*solana.WSClient, func()) {
	t.Helper()
	srv := silentWSServer(t)
	endpoint := "ws://" + strings.TrimPrefix(srv.URL, "http://")

	ws, err := solana.NewWSClient(context.Background(), endpoint, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("NewWSClient failed: %v", err)
	}
	return ws, func() {
		ws.Close()
		srv.Close()
	}
}

func TestSubmitAndConfirm_ConfirmedBeforeSubscription(t *testing.T) {
	// The cluster confirms before the subscription lands, so the
	// notification never arrives; the seeded status check must still see
	// the confirmation instead of timing out.
	ws, cleanup := newSilentWSClient(t)
	defer cleanup()

	rpc := &fakeRPC{
		signature: "sig-raced",
		statuses:  [][]*solana.SignatureStatus{confirmedStatus()},
	}
	l := newTestLedger(rpc, WithWSClient(ws), WithConfirmTimeout(300*time.Millisecond))

	sig, err := l.SubmitAndConfirm(context.Background(), transferBatch(), ledgerSigner{})
	if err != nil {
		t.Fatalf("confirmed transaction reported as failed: %v", err)
	}
	if sig != "sig-raced" {
		t.Errorf("signature = %q, want sig-raced", sig)
	}
}

func TestSubmitAndConfirm_FailureSeenBeforeSubscription(t *testing.T) {
	ws, cleanup := newSilentWSClient(t)
	defer cleanup()

	rpc := &fakeRPC{
		signature: "sig-raced-fail",
		statuses: [][]*solana.SignatureStatus{
			{{Slot: 42, ConfirmationStatus: "confirmed", Err: "InstructionError"}},
		},
	}
	l := newTestLedger(rpc, WithWSClient(ws), WithConfirmTimeout(300*time.Millisecond))

	_, err := l.SubmitAndConfirm(context.Background(), transferBatch(), ledgerSigner{})
	if !errors.Is(err, ErrRejected) {
		t.Errorf("got %v, want ErrRejected", err)
	}
}

func TestSubmitAndConfirm_SendRejected(t *testing.T) {
	rpc := &fakeRPC{sendErr: &solana.RPCError{Code: -32002, Message: "Transaction simulation failed"}}
	l := newTestLedger(rpc)

	sig, err := l.SubmitAndConfirm(context.Background(), transferBatch(), ledgerSigner{})
	if !errors.Is(err, ErrRejected) {
		t.Errorf("got %v, want ErrRejected", err)
	}
	if sig != "" {
		t.Errorf("no signature exists for a refused submission, got %q", sig)
	}
}

func TestSubmitAndConfirm_BlockhashUnavailable(t *testing.T) {
	rpc := &fakeRPC{blockhashErr: fmt.Errorf("connection reset")}
	l := newTestLedger(rpc)

	_, err := l.SubmitAndConfirm(context.Background(), transferBatch(), ledgerSigner{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
	if rpc.sendCalls != 0 {
		t.Errorf("transaction sent without a blockhash: %d calls", rpc.sendCalls)
	}
}

func TestGetBalance(t *testing.T) {
	rpc := &fakeRPC{balances: map[string]uint64{"acct": 990000}}
	l := newTestLedger(rpc)

	balance, err := l.GetBalance(context.Background(), "acct")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 990000 {
		t.Errorf("balance = %d, want 990000", balance)
	}

	rpc.balanceErr = fmt.Errorf("connection refused")
	if _, err := l.GetBalance(context.Background(), "acct"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}
