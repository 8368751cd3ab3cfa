package security

import (
	"errors"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("hash must not equal the plaintext")
	}

	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Fatalf("CheckPassword should succeed: %v", err)
	}

	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	if err := CheckPassword("not-a-hash", "x"); err == nil || errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected a non-mismatch error for a malformed hash, got %v", err)
	}
}
