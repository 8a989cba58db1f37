package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// rpcHandler answers JSON-RPC requests with scripted results per method.
func rpcHandler(t *testing.T, results map[string]string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		result, ok := results[req.Method]
		if !ok {
			t.Errorf("unexpected method %q", req.Method)
			result = "null"
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":%s}`, req.ID, result)
	}
}

func fastClient(endpoint string) *HTTPClient {
	return NewHTTPClient(endpoint,
		WithMaxRetries(3),
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond),
		WithTimeout(2*time.Second),
	)
}

func TestGetAccountInfo(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"getAccountInfo": `{"value":{"lamports":2039280,"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA","data":["dGVzdA==","base64"],"executable":false,"rentEpoch":361}}`,
	}))
	defer srv.Close()

	info, err := fastClient(srv.URL).GetAccountInfo(context.Background(), "somepubkey")
	if err != nil {
		t.Fatalf("GetAccountInfo failed: %v", err)
	}
	if info == nil {
		t.Fatal("expected account info, got nil")
	}
	if info.Lamports != 2039280 {
		t.Errorf("lamports = %d, want 2039280", info.Lamports)
	}
	if info.Owner != "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA" {
		t.Errorf("owner = %q", info.Owner)
	}
	if info.Data != "dGVzdA==" {
		t.Errorf("data = %q", info.Data)
	}
}

func TestGetAccountInfo_Missing(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"getAccountInfo": `{"value":null}`,
	}))
	defer srv.Close()

	info, err := fastClient(srv.URL).GetAccountInfo(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetAccountInfo failed: %v", err)
	}
	if info != nil {
		t.Errorf("expected nil for missing account, got %+v", info)
	}
}

func TestGetTokenAccountBalance(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"getTokenAccountBalance": `{"value":{"amount":"18446744073709551615","decimals":6}}`,
	}))
	defer srv.Close()

	// Max u64 must survive the string round-trip
	amount, err := fastClient(srv.URL).GetTokenAccountBalance(context.Background(), "tokenacct")
	if err != nil {
		t.Fatalf("GetTokenAccountBalance failed: %v", err)
	}
	if amount != 18446744073709551615 {
		t.Errorf("amount = %d, want max u64", amount)
	}
}

func TestGetLatestBlockhash(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"getLatestBlockhash": `{"value":{"blockhash":"EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N","lastValidBlockHeight":3090}}`,
	}))
	defer srv.Close()

	bh, err := fastClient(srv.URL).GetLatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("GetLatestBlockhash failed: %v", err)
	}
	if bh.Blockhash != "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N" {
		t.Errorf("blockhash = %q", bh.Blockhash)
	}
	if bh.LastValidBlockHeight != 3090 {
		t.Errorf("lastValidBlockHeight = %d, want 3090", bh.LastValidBlockHeight)
	}
}

func TestGetSignatureStatuses_NullEntries(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"getSignatureStatuses": `{"value":[null,{"slot":48,"confirmations":null,"confirmationStatus":"finalized","err":null}]}`,
	}))
	defer srv.Close()

	statuses, err := fastClient(srv.URL).GetSignatureStatuses(context.Background(), []string{"unknown", "landed"})
	if err != nil {
		t.Fatalf("GetSignatureStatuses failed: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}
	if statuses[0] != nil {
		t.Errorf("unknown signature must map to nil, got %+v", statuses[0])
	}
	if statuses[1] == nil || !statuses[1].Finalized() {
		t.Errorf("landed signature must be finalized, got %+v", statuses[1])
	}
	if statuses[1].Failed() {
		t.Error("status without err must not report Failed")
	}
}

func TestCall_RetriesTransportFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		rpcHandler(t, map[string]string{
			"getLatestBlockhash": `{"value":{"blockhash":"abc","lastValidBlockHeight":1}}`,
		})(w, r)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).GetLatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestCall_DoesNotRetryRPCErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		var req struct {
			ID uint64 `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"error":{"code":-32602,"message":"Invalid param"}}`, req.ID)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).GetLatestBlockhash(context.Background())

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *RPCError, got %v", err)
	}
	if rpcErr.Code != -32602 {
		t.Errorf("code = %d, want -32602", rpcErr.Code)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (RPC errors are not retried)", got)
	}
}

func TestSendTransaction_SingleShot(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).SendTransaction(context.Background(), "AAAA")
	if err == nil {
		t.Fatal("expected error")
	}
	// Once a transaction may have hit the wire, resending it blind could
	// execute the transfer twice.
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (sendTransaction is never retried)", got)
	}
}

func TestSendTransaction_Success(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"sendTransaction": `"5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"`,
	}))
	defer srv.Close()

	sig, err := fastClient(srv.URL).SendTransaction(context.Background(), "AAAA")
	if err != nil {
		t.Fatalf("SendTransaction failed: %v", err)
	}
	if sig != "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7" {
		t.Errorf("signature = %q", sig)
	}
}

func TestCall_ContextCancelStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL,
		WithMaxRetries(100),
		WithRetryDelay(50*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.GetLatestBlockhash(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call kept retrying after cancel: %v", elapsed)
	}
}
