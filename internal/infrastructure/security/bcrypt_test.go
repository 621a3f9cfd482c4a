package security

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "correct-horse-battery" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("unexpected hash %q", hash)
	}
	if !h.Verify("correct-horse-battery", hash) {
		t.Fatalf("expected password to verify")
	}
	if h.Verify("wrong-horse-battery", hash) {
		t.Fatalf("wrong password must not verify")
	}
	if h.Verify("correct-horse-battery", "not-a-hash") {
		t.Fatalf("garbage hash must not verify")
	}
}

func TestNewBcryptHasher_DefaultCost(t *testing.T) {
	if got := NewBcryptHasher(0).cost; got != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", got)
	}
	if got := NewBcryptHasher(99).cost; got != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", got)
	}
}

func TestSystemClock(t *testing.T) {
	before := time.Now()
	now := SystemClock{}.Now()
	if now.Location() != time.UTC || now.Before(before.Add(-time.Second)) {
		t.Fatalf("unexpected clock reading %v", now)
	}
}
