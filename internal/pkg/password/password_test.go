package password

import (
	"errors"
	"testing"
)

func TestHashVerify(t *testing.T) {
	hash, err := Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !Verify("correct horse", hash) {
		t.Fatal("expected password to verify")
	}
	if Verify("wrong horse", hash) {
		t.Fatal("wrong password verified")
	}
}

func TestHashTooShort(t *testing.T) {
	if _, err := Hash("abc"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}
