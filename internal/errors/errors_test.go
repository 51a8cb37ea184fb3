// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package errors

import (
	"errors"
	"testing"
)

func TestError(t *testing.T) {
	err := New(KindValidation, "empty priority list")
	if err.Error() != "empty priority list" {
		t.Errorf("expected 'empty priority list', got '%s'", err.Error())
	}

	wrapped := Wrap(err, KindInternal, "failed to resolve configuration")
	if wrapped.Error() != "failed to resolve configuration: empty priority list" {
		t.Errorf("unexpected message: '%s'", wrapped.Error())
	}
}

func TestGetKind(t *testing.T) {
	err := New(KindConflict, "switch already in progress")
	if GetKind(err) != KindConflict {
		t.Errorf("expected KindConflict, got %v", GetKind(err))
	}

	wrapped := Wrap(err, KindInternal, "failed")
	if GetKind(wrapped) != KindInternal {
		t.Errorf("expected KindInternal, got %v", GetKind(wrapped))
	}

	if GetKind(errors.New("std error")) != KindUnknown {
		t.Errorf("expected KindUnknown, got %v", GetKind(errors.New("std error")))
	}
}

func TestAttributes(t *testing.T) {
	err := New(KindTimeout, "lease not granted")
	err = Attr(err, "interface", "eth1")
	err = Attr(err, "attempt", 3)

	var e *Error
	if !As(err, &e) {
		t.Fatal("expected *Error")
	}
	if e.Attributes["interface"] != "eth1" {
		t.Errorf("expected eth1, got %v", e.Attributes["interface"])
	}
	if e.Attributes["attempt"] != 3 {
		t.Errorf("expected 3, got %v", e.Attributes["attempt"])
	}
}

func TestUnwrapChain(t *testing.T) {
	base := errors.New("socket closed")
	err := Wrapf(base, KindUnavailable, "probe of %s failed", "eth0")

	if !Is(err, base) {
		t.Error("wrapped error should match base via Is")
	}
	if Unwrap(err) != base {
		t.Error("Unwrap should return base")
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInternal, "internal"},
		{KindValidation, "validation"},
		{KindNotFound, "not_found"},
		{KindConflict, "conflict"},
		{KindUnavailable, "unavailable"},
		{KindTimeout, "timeout"},
		{KindUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
