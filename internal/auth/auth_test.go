package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("hash must not be the plain password")
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "hunter23") {
		t.Error("wrong password accepted")
	}
	if CheckPassword("not-a-hash", "hunter22") {
		t.Error("garbage hash accepted")
	}
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	good, err := tokens.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	past := NewTokens("secret", time.Hour)
	past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := past.Issue("alice")

	otherKey, _ := NewTokens("other", time.Hour).Issue("alice")

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "alice",
	}).SignedString([]byte("secret"))

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr error
	}{
		{name: "valid", token: good, want: "alice"},
		{name: "empty", token: "", wantErr: ErrUnauthenticated},
		{name: "expired", token: expired, wantErr: ErrTokenExpired},
		{name: "wrong key", token: otherKey, wantErr: ErrInvalidToken},
		{name: "garbage", token: "a.b.c", wantErr: ErrInvalidToken},
		{name: "no subject", token: noSubject, wantErr: ErrUnauthenticated},
		{name: "no expiry", token: noExpiry, wantErr: ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tokens.Parse(tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("username = %q, want %q", got, tt.want)
			}
		})
	}
}
