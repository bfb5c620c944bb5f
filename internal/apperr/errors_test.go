package apperr

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("create: %w", IO("store: read", os.ErrNotExist))
	if !IsKind(err, KindIO) {
		t.Fatalf("expected io kind, got %v", err)
	}
	if IsKind(err, KindParse) {
		t.Error("io error reported as parse")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("cause lost through wrapping")
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if _, ok := KindOf(errors.New("boom")); ok {
		t.Error("plain error should have no kind")
	}
}

func TestExhausted(t *testing.T) {
	cause := errors.New("no ids left")
	err := Exhausted("store: create", cause)
	if !IsKind(err, KindExhausted) {
		t.Fatalf("expected exhausted kind, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause lost")
	}
}
