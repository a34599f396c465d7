package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenIssueAndValidate(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.Issue("u1", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("expected user id 'u1', got %q", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("expected email 'alice@example.com', got %q", claims.Email)
	}
	if claims.Role != "user" {
		t.Errorf("expected role 'user', got %q", claims.Role)
	}
	if claims.Issuer != "careertrack" {
		t.Errorf("expected issuer 'careertrack', got %q", claims.Issuer)
	}
}

func TestTokenExpired(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	m.ttl = -time.Minute

	token, err := m.Issue("u1", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	if _, err := m.Validate(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, err := issuer.Issue("u1", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	if _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestTokenDefaultTTL(t *testing.T) {
	m := NewTokenManager("test-secret", 0)
	if m.ttl != DefaultTokenTTL {
		t.Errorf("expected default ttl %v, got %v", DefaultTokenTTL, m.ttl)
	}
}
