package auth_test

import (
	"testing"
	"time"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/auth"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/config"
)

func newTestService(secret string) *auth.Service {
	return auth.NewService(&config.Config{
		JWT: config.JWT{
			Secret:    []byte(secret),
			ExpiresIn: time.Hour,
		},
	})
}

func TestPasswordHashing(t *testing.T) {
	svc := newTestService("test-secret")

	hash, err := svc.HashPassword("pw1")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if hash == "pw1" {
		t.Error("hash equals the plaintext password")
	}
	if !svc.VerifyPassword(hash, "pw1") {
		t.Error("correct password rejected")
	}
	if svc.VerifyPassword(hash, "pw2") {
		t.Error("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService("test-secret")

	token, err := svc.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	username, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error: %v", err)
	}
	if username != "alice" {
		t.Errorf("token validated as %q, want alice", username)
	}
}

func TestTokenRejection(t *testing.T) {
	svc := newTestService("test-secret")
	other := newTestService("other-secret")

	token, err := svc.GenerateToken("alice")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
		svc   *auth.Service
	}{
		{"garbage", "not-a-token", svc},
		{"empty", "", svc},
		{"wrong secret", token, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.ValidateToken(tt.token); err == nil {
				t.Error("invalid token accepted")
			}
		})
	}
}

func TestExpiredToken(t *testing.T) {
	svc := auth.NewService(&config.Config{
		JWT: config.JWT{
			Secret:    []byte("test-secret"),
			ExpiresIn: -time.Minute,
		},
	})

	token, err := svc.GenerateToken("alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expired token accepted")
	}
}
