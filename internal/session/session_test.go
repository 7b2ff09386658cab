package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, c claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestParseIdentity(t *testing.T) {
	tok := signToken(t, claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		Email:            "ada@example.com",
	})

	id, err := ParseIdentity(tok)
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if id.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", id.UserID)
	}
	if id.Email != "ada@example.com" {
		t.Errorf("Email = %q, want ada@example.com", id.Email)
	}
}

func TestParseIdentityNoEmail(t *testing.T) {
	tok := signToken(t, claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-2"},
	})

	id, err := ParseIdentity(tok)
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if id.UserID != "user-2" || id.Email != "" {
		t.Errorf("got %+v", id)
	}
}

func TestParseIdentityNoSubject(t *testing.T) {
	tok := signToken(t, claims{Email: "ada@example.com"})
	if _, err := ParseIdentity(tok); err == nil {
		t.Fatal("expected error for token without subject")
	}
}

func TestParseIdentityGarbage(t *testing.T) {
	if _, err := ParseIdentity("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
