package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Headers carried by signed ingestion requests from the station
// collection scripts.
const (
	HeaderIngestTimestamp = "X-Airmon-Timestamp"
	HeaderIngestSignature = "X-Airmon-Signature"
)

// IngestSignature validates HMAC-SHA256 signatures on ingestion
// requests. The signature binds the request method, the station path,
// the timestamp and the body, so a captured signature cannot be
// replayed against another station.
type IngestSignature struct {
	Secret  []byte
	MaxSkew time.Duration
}

// NewIngestSignature constructs an ingest signature verifier.
func NewIngestSignature(secret []byte, maxSkew time.Duration) *IngestSignature {
	return &IngestSignature{Secret: secret, MaxSkew: maxSkew}
}

// Wrap enforces signature validation before the handler runs.
func (s *IngestSignature) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s == nil || len(s.Secret) == 0 {
			http.Error(w, "ingest auth not configured", http.StatusUnauthorized)
			return
		}
		timestamp := strings.TrimSpace(r.Header.Get(HeaderIngestTimestamp))
		signature := strings.TrimSpace(r.Header.Get(HeaderIngestSignature))
		if timestamp == "" || signature == "" {
			http.Error(w, "missing ingest signature", http.StatusUnauthorized)
			return
		}
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			http.Error(w, "invalid ingest timestamp", http.StatusUnauthorized)
			return
		}
		skew := time.Since(time.Unix(ts, 0))
		if skew < 0 {
			skew = -skew
		}
		if s.MaxSkew > 0 && skew > s.MaxSkew {
			http.Error(w, "ingest signature expired", http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body error", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()

		expected := SignIngest(s.Secret, r.Method, r.URL.Path, timestamp, body)
		if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
			http.Error(w, "invalid ingest signature", http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// SignIngest computes the hex signature for an ingestion request. The
// collection scripts call the same construction when submitting
// readings.
func SignIngest(secret []byte, method, path, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	for _, part := range []string{method, path, timestamp} {
		_, _ = mac.Write([]byte(part))
		_, _ = mac.Write([]byte("\n"))
	}
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// IngestGate admits an ingestion request on either of two credentials:
// a bearer token with at least the collector role, or a valid script
// signature. A request carrying a bearer token is judged on the token
// alone.
type IngestGate struct {
	JWTSecret []byte
	Signature *IngestSignature
}

// NewIngestGate constructs an ingest gate.
func NewIngestGate(jwtSecret []byte, signature *IngestSignature) *IngestGate {
	return &IngestGate{JWTSecret: jwtSecret, Signature: signature}
}

// Wrap enforces the bearer-or-signature check.
func (g *IngestGate) Wrap(next http.Handler) http.Handler {
	if g == nil {
		return next
	}
	signed := g.Signature.Wrap(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := extractBearer(r); token != "" {
			claims, err := ParseJWT(token, g.JWTSecret)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			role, _ := NormalizeRole(claims.Role)
			if !RoleAtLeast(role, RoleCollector) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), role, claims.Subject)))
			return
		}
		signed.ServeHTTP(w, r)
	})
}
