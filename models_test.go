package auth

import (
	"testing"
	"time"
)

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"  Ada@Example.COM ": "ada@example.com",
		"bob@example.com":    "bob@example.com",
		"":                   "",
	}
	for in, want := range cases {
		if got := NormalizeEmail(in); got != want {
			t.Fatalf("NormalizeEmail(%q) = %q, expected %q", in, got, want)
		}
	}
}

func TestUserProfileHidesCredentials(t *testing.T) {
	u := &User{Email: "ada@example.com", Name: "Ada", PasswordHash: "$argon2id$secret"}

	p := u.Profile()
	if p != (PublicProfile{Email: "ada@example.com", Name: "Ada"}) {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestUserTokenExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tok := &UserToken{ExpiresAt: now}

	if tok.Expired(now) {
		t.Fatal("token must still be valid at its expiry instant")
	}
	if !tok.Expired(now.Add(time.Nanosecond)) {
		t.Fatal("token must be expired right after its expiry instant")
	}
}
