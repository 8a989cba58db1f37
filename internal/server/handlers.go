package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"solana-usdc-relay/internal/journal"
	"solana-usdc-relay/internal/observability"
	"solana-usdc-relay/internal/relay"
)

// sendRequest is the POST /api/send body.
type sendRequest struct {
	Recipient string   `json:"recipient"`
	Amount    *float64 `json:"amount"`
}

// sendResponse is the success payload. Balance is omitted when the
// post-transfer read failed; the transfer itself succeeded.
type sendResponse struct {
	Signature string  `json:"signature"`
	Balance   *uint64 `json:"balance,omitempty"`
}

// errorResponse is the failure payload. Indeterminate marks outcomes
// where the transfer may still have landed; a caller retry could then
// move value twice.
type errorResponse struct {
	Message       string `json:"message"`
	Signature     string `json:"signature,omitempty"`
	Indeterminate bool   `json:"indeterminate,omitempty"`
}

// handleSend parses a transfer request and drives it through the
// orchestrator. The credential was already checked by the gate.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid JSON body"})
		return
	}

	if req.Recipient == "" || req.Amount == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "recipient and amount are required"})
		return
	}

	// Amount arrives in base units and must be a positive integer;
	// fractional base units do not exist. The bound is strict: float64
	// rounds math.MaxUint64 up to 2^64, which does not fit a uint64.
	amount := *req.Amount
	if amount <= 0 || amount != math.Trunc(amount) || amount >= 1<<64 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "amount must be a positive integer in base units"})
		return
	}

	result, err := s.orch.Transfer(r.Context(), relay.Request{
		Recipient: req.Recipient,
		Amount:    uint64(amount),
	})
	if err != nil {
		s.writeTransferError(w, r, req, err)
		return
	}

	s.record(req.Recipient, uint64(amount), result.Signature, "confirmed")
	writeJSON(w, http.StatusOK, sendResponse{Signature: result.Signature, Balance: result.Balance})
}

// writeTransferError maps orchestration failures onto HTTP statuses.
func (s *Server) writeTransferError(w http.ResponseWriter, r *http.Request, req sendRequest, err error) {
	var terr *relay.TransferError
	if !errors.As(err, &terr) {
		s.logger.Printf("transfer failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "transfer failed"})
		return
	}

	s.logger.Printf("transfer failed (%s): %v", terr.Reason, terr)

	switch terr.Reason {
	case relay.ReasonInvalidInput:
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: terr.Error()})
	case relay.ReasonConfirmationTimeout:
		// Distinct from a hard failure: the caller must learn that the
		// outcome is unknown before deciding to retry.
		s.record(req.Recipient, uint64(*req.Amount), terr.Signature, string(terr.Reason))
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{
			Message:       "confirmation timed out; transfer outcome is indeterminate",
			Signature:     terr.Signature,
			Indeterminate: true,
		})
	default:
		s.record(req.Recipient, uint64(*req.Amount), terr.Signature, string(terr.Reason))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: terr.Error()})
	}
}

// handleProtected returns a gated JSON payload.
func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "This is protected data"})
}

// record writes a journal entry. Failures are logged and counted, never
// surfaced: the journal is audit-only.
func (s *Server) record(recipient string, amount uint64, signature, outcome string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.journal.Record(ctx, &journal.Entry{
		Signature: signature,
		Recipient: recipient,
		Amount:    amount,
		Outcome:   outcome,
		CreatedAt: time.Now().UTC(),
	})
	observability.RecordJournalWrite(err)
	if err != nil {
		s.logger.Printf("journal write failed: %v", err)
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
