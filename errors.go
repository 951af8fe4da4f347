package ofi

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured fabric error with resource context and
// errno mapping.
type Error struct {
	Op             string // operation that failed (e.g. "EndpointSend", "DomainOpen")
	FabricAddr     string // fabric/provider address string, if applicable ("" if not)
	Endpoint       uint64 // endpoint id (0 if not applicable)
	Code           Errc   // high-level error category
	Errno          syscall.Errno // mapped POSIX errno, if applicable (0 if not)
	ProviderErrno  int32  // provider-specific sub-error, as returned by fi_cq_readerr/prov_errno (0 if not applicable)
	Msg            string // human-readable message
	Inner          error  // wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	if e.FabricAddr != "" {
		parts = append(parts, fmt.Sprintf("addr=%s", e.FabricAddr))
	}

	if e.Endpoint != 0 {
		parts = append(parts, fmt.Sprintf("ep=%d", e.Endpoint))
	}

	if e.ProviderErrno != 0 {
		parts = append(parts, fmt.Sprintf("prov_errno=%d", e.ProviderErrno))
	}

	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("ofi: %s (%s)", msg, parts[0])
	}

	return fmt.Sprintf("ofi: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support, matching by category code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}

	return false
}

// Errc is the fabric errno taxonomy a caller reasons about; it is stable
// across providers even though each provider's raw errno space differs.
type Errc string

const (
	ErrcSuccess            Errc = "success"
	ErrcAgain              Errc = "again"
	ErrcInvalidArgument    Errc = "invalid_argument"
	ErrcIOError            Errc = "io_error"
	ErrcNotSupported       Errc = "not_supported"
	ErrcNoMemory           Errc = "no_memory"
	ErrcBusy               Errc = "busy"
	ErrcCanceled           Errc = "canceled"
	ErrcNoEntry            Errc = "no_entry"
	ErrcTimeout            Errc = "timeout"
	ErrcConnectionRefused  Errc = "connection_refused"
	ErrcAddressInUse       Errc = "address_in_use"
	ErrcAlready            Errc = "already"
	ErrcMessageTooLong     Errc = "message_too_long"
	ErrcNoSpace            Errc = "no_space"
	ErrcBadFlags           Errc = "bad_flags"
	ErrcNotConnected       Errc = "not_connected"
	ErrcAddressNotAvailable Errc = "address_not_available"
)

// Error constructors

// NewError creates a new structured error.
func NewError(op string, code Errc, msg string) *Error {
	return &Error{
		Op:   op,
		Code: code,
		Msg:  msg,
	}
}

// NewErrorWithErrno creates a new structured error carrying a mapped errno.
func NewErrorWithErrno(op string, code Errc, errno syscall.Errno) *Error {
	return &Error{
		Op:    op,
		Code:  code,
		Errno: errno,
		Msg:   errno.Error(),
	}
}

// NewEndpointError creates a new endpoint-scoped error.
func NewEndpointError(op string, endpoint uint64, code Errc, msg string) *Error {
	return &Error{
		Op:       op,
		Endpoint: endpoint,
		Code:     code,
		Msg:      msg,
	}
}

// NewCompletionError builds an *Error from a CQ/EQ error-entry's fields, the
// way the completion dispatch loop reports an in-flight failure back through
// the context's continuation.
func NewCompletionError(op string, endpoint uint64, provErrno int32, errno syscall.Errno) *Error {
	code := mapErrnoToErrc(errno)
	return &Error{
		Op:            op,
		Endpoint:      endpoint,
		Code:          code,
		Errno:         errno,
		ProviderErrno: provErrno,
		Msg:           errno.Error(),
	}
}

// WrapError wraps an existing error with fabric operation context.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if fe, ok := inner.(*Error); ok {
		return &Error{
			Op:            op,
			FabricAddr:    fe.FabricAddr,
			Endpoint:      fe.Endpoint,
			Code:          fe.Code,
			Errno:         fe.Errno,
			ProviderErrno: fe.ProviderErrno,
			Msg:           fe.Msg,
			Inner:         fe.Inner,
		}
	}

	code := ErrcIOError
	if errno, ok := inner.(syscall.Errno); ok {
		code = mapErrnoToErrc(errno)
		return &Error{
			Op:    op,
			Code:  code,
			Errno: errno,
			Msg:   errno.Error(),
			Inner: inner,
		}
	}

	return &Error{
		Op:    op,
		Code:  code,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// mapErrnoToErrc maps a POSIX errno (as surfaced by a negative fi_* return
// or a CQ error entry) to the fabric errc taxonomy.
func mapErrnoToErrc(errno syscall.Errno) Errc {
	switch errno {
	case syscall.EAGAIN:
		return ErrcAgain
	case syscall.EINVAL:
		return ErrcInvalidArgument
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return ErrcNotSupported
	case syscall.ENOMEM:
		return ErrcNoMemory
	case syscall.EBUSY:
		return ErrcBusy
	case syscall.ECANCELED:
		return ErrcCanceled
	case syscall.ENOENT:
		return ErrcNoEntry
	case syscall.ETIMEDOUT:
		return ErrcTimeout
	case syscall.ECONNREFUSED:
		return ErrcConnectionRefused
	case syscall.EADDRINUSE:
		return ErrcAddressInUse
	case syscall.EALREADY:
		return ErrcAlready
	case syscall.EMSGSIZE:
		return ErrcMessageTooLong
	case syscall.ENOSPC:
		return ErrcNoSpace
	case syscall.EBADF:
		return ErrcBadFlags
	case syscall.ENOTCONN:
		return ErrcNotConnected
	case syscall.EADDRNOTAVAIL:
		return ErrcAddressNotAvailable
	default:
		return ErrcIOError
	}
}

// asErrno converts a CQ error entry's positive fi_errno-style int32 into a
// syscall.Errno for mapErrnoToErrc.
func asErrno(provErr int32) syscall.Errno {
	if provErr < 0 {
		return 0
	}
	return syscall.Errno(provErr)
}

// IsErrc reports whether err's category matches code.
func IsErrc(err error, code Errc) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// Result is a sum of a successful value and a categorised fabric error,
// following the taxonomy every operation in this package returns through
// instead of panicking.
type Result[T any] struct {
	value T
	err   *Error
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err wraps a failure.
func Err[T any](err *Error) Result[T] {
	return Result[T]{err: err}
}

// IsOk reports whether the result holds a value.
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Unwrap returns the held value and error; callers check the error before
// trusting the value, the same discipline Go's multi-value returns already
// enforce.
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		return r.value, r.err
	}
	return r.value, nil
}

// IsErrc reports whether the result failed with the given error category.
func (r Result[T]) IsErrc(code Errc) bool {
	return r.err != nil && r.err.Code == code
}
