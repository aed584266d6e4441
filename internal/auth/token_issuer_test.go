package auth

import (
	"testing"
	"time"
)

func testIssuer(clock func() time.Time) *TokenIssuer {
	return NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("unit-test-secret"),
		Issuer:        "mingle-auth",
		Audience:      "mingle-api",
		TokenTTL:      time.Hour,
		Clock:         clock,
	})
}

func TestIssueAndValidateSessionToken(t *testing.T) {
	issuer := testIssuer(nil)

	token, expiresIn, err := issuer.IssueSessionToken(42)
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}
	if expiresIn != int64(time.Hour/time.Second) {
		t.Fatalf("expected expiry of %d seconds, got %d", int64(time.Hour/time.Second), expiresIn)
	}

	userID, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected validate error: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected subject 42, got %d", userID)
	}
}

func TestIssueSessionTokenRejectsZeroUser(t *testing.T) {
	issuer := testIssuer(nil)
	if _, _, err := issuer.IssueSessionToken(0); err == nil {
		t.Fatal("expected error for zero user id")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := testIssuer(func() time.Time { return issuedAt })

	token, _, err := issuer.IssueSessionToken(7)
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	later := testIssuer(func() time.Time { return issuedAt.Add(2 * time.Hour) })
	if _, err := later.ValidateToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	issuer := testIssuer(nil)
	token, _, err := issuer.IssueSessionToken(7)
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	other := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("another-secret"),
		Issuer:        "mingle-auth",
		Audience:      "mingle-api",
	})
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("expected token signed with a different secret to be rejected")
	}
}
