package eventpipe

import (
	"errors"
	"syscall"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("Open", ErrClassConfiguration, "ipc_dir is required")

	if err.Op != "Open" {
		t.Errorf("expected Op=Open, got %s", err.Op)
	}
	if err.Class != ErrClassConfiguration {
		t.Errorf("expected Class=Configuration, got %s", err.Class)
	}

	want := "eventpipe: ipc_dir is required (op=Open)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorWithErrno(t *testing.T) {
	err := NewErrorWithErrno("Dial", ErrClassRendezvous, syscall.ENOENT)
	if err.Errno != syscall.ENOENT {
		t.Errorf("expected Errno=ENOENT, got %v", err.Errno)
	}
	if err.Class != ErrClassRendezvous {
		t.Errorf("expected Class=Rendezvous, got %s", err.Class)
	}
}

func TestWrapError(t *testing.T) {
	inner := syscall.EPIPE
	err := WrapError("rotateBuffer", ErrClassTransport, inner)

	if err.Class != ErrClassTransport {
		t.Errorf("expected Class=Transport, got %s", err.Class)
	}
	if !errors.Is(err, syscall.EPIPE) {
		t.Error("expected wrapped error to satisfy errors.Is for EPIPE")
	}
}

func TestWrapErrorPreservesInnerErrorClass(t *testing.T) {
	inner := NewError("readIndex", ErrClassContractViolation, "ordering violation")
	wrapped := WrapError("rotateBuffer", ErrClassTransport, inner)

	if wrapped.Class != ErrClassContractViolation {
		t.Errorf("expected wrapping to preserve inner class, got %s", wrapped.Class)
	}
}

func TestIsClass(t *testing.T) {
	err := NewError("Close", ErrClassTransport, "write failed")

	if !IsClass(err, ErrClassTransport) {
		t.Error("IsClass should return true for matching class")
	}
	if IsClass(err, ErrClassConfiguration) {
		t.Error("IsClass should return false for non-matching class")
	}
	if IsClass(nil, ErrClassTransport) {
		t.Error("IsClass should return false for nil error")
	}
}

func TestWrapErrorNilIsNil(t *testing.T) {
	if WrapError("op", ErrClassTransport, nil) != nil {
		t.Error("WrapError(nil) should return nil")
	}
}
