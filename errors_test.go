package ofi

import (
	"errors"
	"syscall"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("DomainOpen", ErrcInvalidArgument, "invalid completion queue depth")

	if err.Op != "DomainOpen" {
		t.Errorf("Expected Op=DomainOpen, got %s", err.Op)
	}

	if err.Code != ErrcInvalidArgument {
		t.Errorf("Expected Code=ErrcInvalidArgument, got %s", err.Code)
	}

	expected := "ofi: invalid completion queue depth (op=DomainOpen)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestErrorWithErrno(t *testing.T) {
	err := NewErrorWithErrno("EndpointConnect", ErrcConnectionRefused, syscall.ECONNREFUSED)

	if err.Errno != syscall.ECONNREFUSED {
		t.Errorf("Expected Errno=ECONNREFUSED, got %v", err.Errno)
	}

	if err.Code != ErrcConnectionRefused {
		t.Errorf("Expected Code=ErrcConnectionRefused, got %s", err.Code)
	}
}

func TestEndpointError(t *testing.T) {
	err := NewEndpointError("EndpointSend", 123, ErrcBusy, "endpoint queue full")

	if err.Endpoint != 123 {
		t.Errorf("Expected Endpoint=123, got %d", err.Endpoint)
	}

	if err.Op != "EndpointSend" || err.Endpoint != 123 {
		t.Errorf("unexpected error fields: %+v", err)
	}
}

func TestCompletionError(t *testing.T) {
	err := NewCompletionError("EndpointRead", 7, 42, syscall.ETIMEDOUT)

	if err.Code != ErrcTimeout {
		t.Errorf("Expected Code=ErrcTimeout, got %s", err.Code)
	}
	if err.ProviderErrno != 42 {
		t.Errorf("Expected ProviderErrno=42, got %d", err.ProviderErrno)
	}
	if err.Endpoint != 7 {
		t.Errorf("Expected Endpoint=7, got %d", err.Endpoint)
	}
}

func TestWrapError(t *testing.T) {
	inner := syscall.ENOENT
	err := WrapError("AddressVectorLookup", inner)

	if err.Code != ErrcNoEntry {
		t.Errorf("Expected Code=ErrcNoEntry, got %s", err.Code)
	}

	if err.Errno != syscall.ENOENT {
		t.Errorf("Expected Errno=ENOENT, got %v", err.Errno)
	}

	if !errors.Is(err, syscall.ENOENT) {
		t.Error("Expected wrapped error to satisfy errors.Is for ENOENT")
	}
}

func TestWrapErrorPreservesStructuredError(t *testing.T) {
	inner := NewEndpointError("EndpointSend", 5, ErrcBusy, "queue full")
	wrapped := WrapError("Retry", inner)

	if wrapped.Code != ErrcBusy {
		t.Errorf("Expected wrapped Code=ErrcBusy, got %s", wrapped.Code)
	}
	if wrapped.Endpoint != 5 {
		t.Errorf("Expected wrapped Endpoint=5, got %d", wrapped.Endpoint)
	}
	if wrapped.Op != "Retry" {
		t.Errorf("Expected wrapped Op=Retry, got %s", wrapped.Op)
	}
}

func TestWrapErrorNil(t *testing.T) {
	if WrapError("NoOp", nil) != nil {
		t.Error("WrapError(_, nil) should return nil")
	}
}

func TestIsErrc(t *testing.T) {
	err := NewError("CounterWait", ErrcTimeout, "wait deadline exceeded")

	if !IsErrc(err, ErrcTimeout) {
		t.Error("IsErrc should return true for matching code")
	}

	if IsErrc(err, ErrcIOError) {
		t.Error("IsErrc should return false for non-matching code")
	}

	if IsErrc(nil, ErrcTimeout) {
		t.Error("IsErrc should return false for nil error")
	}
}

func TestErrnoMapping(t *testing.T) {
	testCases := []struct {
		errno    syscall.Errno
		expected Errc
	}{
		{syscall.ENOENT, ErrcNoEntry},
		{syscall.EBUSY, ErrcBusy},
		{syscall.EINVAL, ErrcInvalidArgument},
		{syscall.ENOMEM, ErrcNoMemory},
		{syscall.ETIMEDOUT, ErrcTimeout},
		{syscall.ENOSYS, ErrcNotSupported},
		{syscall.ECONNREFUSED, ErrcConnectionRefused},
		{syscall.EADDRINUSE, ErrcAddressInUse},
		{syscall.EALREADY, ErrcAlready},
		{syscall.EMSGSIZE, ErrcMessageTooLong},
		{syscall.ENOSPC, ErrcNoSpace},
		{syscall.ENOTCONN, ErrcNotConnected},
		{syscall.EADDRNOTAVAIL, ErrcAddressNotAvailable},
	}

	for _, tc := range testCases {
		code := mapErrnoToErrc(tc.errno)
		if code != tc.expected {
			t.Errorf("mapErrnoToErrc(%v) = %s, want %s", tc.errno, code, tc.expected)
		}
	}
}

func TestResultOk(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() {
		t.Error("expected Ok result")
	}
	v, err := r.Unwrap()
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
}

func TestResultErr(t *testing.T) {
	r := Err[int](NewError("Register", ErrcNoMemory, "registration pool exhausted"))
	if r.IsOk() {
		t.Error("expected failed result")
	}
	if !r.IsErrc(ErrcNoMemory) {
		t.Error("expected IsErrc(ErrcNoMemory) to be true")
	}
	_, err := r.Unwrap()
	if err == nil {
		t.Error("expected non-nil error from Unwrap")
	}
}
