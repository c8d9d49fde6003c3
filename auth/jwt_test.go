package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/status-im/apisharp"
)

func TestSign(t *testing.T) {
	s := &Signer{Secret: "test-secret", Issuer: "apisharp", Subject: "svc", Scope: "read", TTL: 10 * time.Minute}

	tokenString, expiresAt, err := s.Sign()
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if tokenString == "" {
		t.Error("expected non-empty token string")
	}

	expectedExp := time.Now().Add(10 * time.Minute)
	if diff := expiresAt.Sub(expectedExp).Abs(); diff > 2*time.Second {
		t.Errorf("expiration time differs by %v, expected ~%v, got %v", diff, expectedExp, expiresAt)
	}

	claims, err := Verify(tokenString, "test-secret")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Issuer != "apisharp" {
		t.Errorf("expected issuer apisharp, got %s", claims.Issuer)
	}
	if claims.Subject != "svc" {
		t.Errorf("expected subject svc, got %s", claims.Subject)
	}
	if claims.Scope != "read" {
		t.Errorf("expected scope read, got %s", claims.Scope)
	}
	if claims.ID == "" {
		t.Error("expected token ID to be set")
	}
}

func TestSignDefaultTTL(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Signer{Secret: "test-secret", now: func() time.Time { return fixed }}

	_, expiresAt, err := s.Sign()
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if want := fixed.Add(10 * time.Minute); !expiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, expiresAt)
	}
}

func TestSignEmptySecret(t *testing.T) {
	_, _, err := (&Signer{}).Sign()
	if !errors.Is(err, ErrEmptySecret) {
		t.Errorf("expected ErrEmptySecret, got %v", err)
	}
}

func TestSignUniqueIDs(t *testing.T) {
	s := &Signer{Secret: "test-secret"}
	a, _, _ := s.Sign()
	b, _, _ := s.Sign()
	if a == b {
		t.Error("expected distinct tokens")
	}
}

func TestVerifyInvalidSignature(t *testing.T) {
	tokenString, _, err := (&Signer{Secret: "test-secret"}).Sign()
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if _, err := Verify(tokenString, "wrong-secret"); err == nil {
		t.Error("expected error for invalid signature")
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	s := &Signer{
		Secret: "test-secret",
		TTL:    time.Minute,
		now:    func() time.Time { return time.Now().Add(-2 * time.Minute) },
	}

	tokenString, _, err := s.Sign()
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if _, err := Verify(tokenString, "test-secret"); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expected expired token error, got %v", err)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to create unsigned token: %v", err)
	}

	if _, err := Verify(tokenString, "test-secret"); err == nil {
		t.Error("expected error for unsigned token")
	}
}

func TestVerifyInvalidToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "malformed token", token: "not.a.valid.jwt"},
		{name: "empty token", token: ""},
		{name: "random string", token: "random-string-not-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Verify(tt.token, "test-secret"); err == nil {
				t.Error("expected error for invalid token")
			}
		})
	}
}

func TestBearerTransform(t *testing.T) {
	transform := BearerTransform(&Signer{Secret: "test-secret"})

	out := transform(apisharp.Payload{})
	header := out.Headers["Authorization"]
	if !strings.HasPrefix(header, "Bearer ") {
		t.Fatalf("expected bearer header, got %q", header)
	}
	if _, err := Verify(strings.TrimPrefix(header, "Bearer "), "test-secret"); err != nil {
		t.Errorf("expected verifiable token, got %v", err)
	}

	untouched := BearerTransform(&Signer{})(apisharp.Payload{Headers: map[string]string{"X": "1"}})
	if _, ok := untouched.Headers["Authorization"]; ok {
		t.Error("expected no header when signing fails")
	}
}

func TestBearerTransformThroughClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if _, err := Verify(token, "test-secret"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := apisharp.New(apisharp.API{
		BaseURL:          server.URL,
		EnableLog:        apisharp.Static(false),
		TransformRequest: BearerTransform(&Signer{Secret: "test-secret"}),
	})

	resp, err := client.RequestURL(context.Background(), "/private")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.Status)
	}
}
