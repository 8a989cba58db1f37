// Package auth gates requests on a shared-secret credential.
// The comparison lives in one place; routes differ only in how the
// presented credential is extracted, so the header and query-parameter
// transports can never diverge in validation semantics.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"solana-usdc-relay/internal/observability"
)

// Default credential transports.
const (
	// HeaderName is the API key header used by the JSON API routes.
	HeaderName = "x-api-key"
	// QueryParam is the API key query parameter used by page routes,
	// where the browser cannot set headers on a plain navigation.
	QueryParam = "apiKey"
)

// Extractor pulls the presented credential out of a request.
type Extractor struct {
	// Transport names the extraction strategy for logs and metrics.
	Transport string
	// Get returns the presented credential, or "" when absent.
	Get func(r *http.Request) string
}

// HeaderExtractor extracts the credential from a request header.
func HeaderExtractor(name string) Extractor {
	return Extractor{
		Transport: "header",
		Get: func(r *http.Request) string {
			return r.Header.Get(name)
		},
	}
}

// QueryExtractor extracts the credential from a URL query parameter.
func QueryExtractor(param string) Extractor {
	return Extractor{
		Transport: "query",
		Get: func(r *http.Request) string {
			return r.URL.Query().Get(param)
		},
	}
}

// Gate validates presented credentials against the configured secret.
// Immutable after construction; safe for concurrent use.
type Gate struct {
	secret []byte
}

// NewGate creates a Gate for the configured shared secret.
func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Authenticate reports whether the presented credential matches.
// Absent (empty) credentials are always denied. Constant-time comparison
// so response timing does not help guessing.
func (g *Gate) Authenticate(presented string) bool {
	if len(g.secret) == 0 || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare(g.secret, []byte(presented)) == 1
}

// Middleware wraps next with a credential check using the given extractor.
// Denied requests get a 401 JSON body and never reach next.
func (g *Gate) Middleware(ex Extractor, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Authenticate(ex.Get(r)) {
			observability.RecordAuthDenial(ex.Transport)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
