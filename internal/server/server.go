// Package server is the relay's HTTP boundary: it parses transfer
// requests, applies the credential gate, invokes the orchestrator, and
// serializes outcomes. Each request is handled independently; the only
// shared state is immutable configuration.
package server

import (
	"context"
	"embed"
	"log"
	"net/http"
	"strconv"
	"time"

	"solana-usdc-relay/internal/auth"
	"solana-usdc-relay/internal/journal"
	"solana-usdc-relay/internal/observability"
	"solana-usdc-relay/internal/relay"
)

//go:embed public
var publicFS embed.FS

// Orchestrator executes transfer orchestrations. *relay.Orchestrator
// satisfies it; tests substitute stubs.
type Orchestrator interface {
	Transfer(ctx context.Context, req relay.Request) (*relay.Result, error)
}

// Server wires the relay's HTTP routes.
type Server struct {
	gate    *auth.Gate
	orch    Orchestrator
	journal journal.Journal
	logger  *log.Logger
}

// Options for creating a Server.
type Options struct {
	// Gate validates request credentials. Required.
	Gate *auth.Gate
	// Orchestrator executes transfers. Required.
	Orchestrator Orchestrator
	// Journal records transfer outcomes. Defaults to journal.Nop.
	Journal journal.Journal
	// Logger defaults to log.Default().
	Logger *log.Logger
}

// New creates a new Server.
func New(opts Options) *Server {
	j := opts.Journal
	if j == nil {
		j = journal.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		gate:    opts.Gate,
		orch:    opts.Orchestrator,
		journal: j,
		logger:  logger,
	}
}

// Handler returns the relay's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	headerAuth := auth.HeaderExtractor(auth.HeaderName)
	queryAuth := auth.QueryExtractor(auth.QueryParam)

	// API routes carry the credential in a header
	mux.Handle("POST /api/send", s.instrument("/api/send",
		s.gate.Middleware(headerAuth, http.HandlerFunc(s.handleSend))))
	mux.Handle("GET /api/protected", s.instrument("/api/protected",
		s.gate.Middleware(headerAuth, http.HandlerFunc(s.handleProtected))))

	// Page routes carry the credential as a query parameter because a
	// plain browser navigation cannot set headers
	mux.Handle("GET /success", s.instrument("/success",
		s.gate.Middleware(queryAuth, s.servePage("public/success.html"))))
	mux.Handle("GET /usdc-only", s.instrument("/usdc-only",
		s.gate.Middleware(queryAuth, s.servePage("public/usdc.html"))))

	// Ungated surface
	mux.Handle("GET /{$}", s.instrument("/", s.servePage("public/index.html")))
	mux.Handle("GET /script.js", s.instrument("/script.js", s.servePage("public/script.js")))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// servePage serves a single embedded asset.
func (s *Server) servePage(path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, publicFS, path)
	})
}

// instrument records request count and duration per route.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		observability.RecordRequest(route, strconv.Itoa(sw.status), time.Since(start).Seconds())
	})
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
