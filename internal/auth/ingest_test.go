package auth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func signedIngestRequest(secret []byte, path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	req.Header.Set(HeaderIngestTimestamp, timestamp)
	req.Header.Set(HeaderIngestSignature, SignIngest(secret, http.MethodPost, path, timestamp, []byte(body)))
	return req
}

func TestIngestSignature_ValidRequestPasses(t *testing.T) {
	secret := []byte("script-secret")
	sig := NewIngestSignature(secret, time.Minute)
	handler := sig.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, signedIngestRequest(secret, "/api/v1/sensors/st-1", `{"temp":21.5}`))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
}

func TestIngestSignature_TamperedBodyRejected(t *testing.T) {
	secret := []byte("script-secret")
	sig := NewIngestSignature(secret, time.Minute)
	handler := sig.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := signedIngestRequest(secret, "/api/v1/sensors/st-1", `{"temp":21.5}`)
	req.Body = http.NoBody
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestIngestSignature_BindsStationPath(t *testing.T) {
	secret := []byte("script-secret")
	sig := NewIngestSignature(secret, time.Minute)
	handler := sig.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	// Signature computed for st-1 must not admit a write to st-2.
	body := `{"temp":21.5}`
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensors/st-2", strings.NewReader(body))
	req.Header.Set(HeaderIngestTimestamp, timestamp)
	req.Header.Set(HeaderIngestSignature, SignIngest(secret, http.MethodPost, "/api/v1/sensors/st-1", timestamp, []byte(body)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestIngestSignature_StaleTimestampRejected(t *testing.T) {
	secret := []byte("script-secret")
	sig := NewIngestSignature(secret, time.Minute)
	handler := sig.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	body := `{"temp":21.5}`
	timestamp := fmt.Sprintf("%d", time.Now().Add(-time.Hour).Unix())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensors/st-1", strings.NewReader(body))
	req.Header.Set(HeaderIngestTimestamp, timestamp)
	req.Header.Set(HeaderIngestSignature, SignIngest(secret, http.MethodPost, "/api/v1/sensors/st-1", timestamp, []byte(body)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestIngestGate_CollectorTokenMayIngest(t *testing.T) {
	jwtSecret := []byte("jwt-secret")
	gate := NewIngestGate(jwtSecret, NewIngestSignature([]byte("script-secret"), time.Minute))
	handler := gate.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensors/st-1", strings.NewReader(`{"temp":21.5}`))
	req.Header.Set("Authorization", "Bearer "+mustToken(t, jwtSecret, "collector"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
}

func TestIngestGate_ViewerTokenForbidden(t *testing.T) {
	jwtSecret := []byte("jwt-secret")
	gate := NewIngestGate(jwtSecret, NewIngestSignature([]byte("script-secret"), time.Minute))
	handler := gate.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensors/st-1", strings.NewReader(`{"temp":21.5}`))
	req.Header.Set("Authorization", "Bearer "+mustToken(t, jwtSecret, "viewer"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestIngestGate_InvalidTokenRejected(t *testing.T) {
	jwtSecret := []byte("jwt-secret")
	gate := NewIngestGate(jwtSecret, NewIngestSignature([]byte("script-secret"), time.Minute))
	handler := gate.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensors/st-1", strings.NewReader(`{"temp":21.5}`))
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestIngestGate_SignedRequestWithoutTokenPasses(t *testing.T) {
	scriptSecret := []byte("script-secret")
	gate := NewIngestGate([]byte("jwt-secret"), NewIngestSignature(scriptSecret, time.Minute))
	handler := gate.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, signedIngestRequest(scriptSecret, "/api/v1/sensors/st-1", `{"temp":21.5}`))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
}

func TestIngestGate_NoCredentialsRejected(t *testing.T) {
	gate := NewIngestGate([]byte("jwt-secret"), NewIngestSignature([]byte("script-secret"), time.Minute))
	handler := gate.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensors/st-1", strings.NewReader(`{"temp":21.5}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
