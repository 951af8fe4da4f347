package ofi

import (
	"time"

	"github.com/ofi-go/ofi/internal/provider"
)

// Counter is fi_cntr: a monotonic success/error counter that can be bound
// to an endpoint directly (as a cheaper alternative to a completion queue
// for RMA/atomic-only traffic) or used as the trigger for deferred
// (triggered) work via Endpoint's Queue* methods.
//
// Wait takes an explicit threshold rather than always waiting for "one
// more" completion: the source this binding follows hard-codes a
// wait-for-next-increment semantic that silently breaks once more than one
// completion can land between two Wait calls (a caller that misses an
// increment waits forever for a threshold that already passed). Taking the
// threshold explicitly lets a caller say "wait until at least N" and get
// an immediate return if the counter already cleared it.
type Counter struct {
	domain  *Domain
	counter provider.Counter
}

// Read returns the current success count.
func (c *Counter) Read() uint64 { return c.counter.Read() }

// ReadError returns the current error count.
func (c *Counter) ReadError() uint64 { return c.counter.ReadErr() }

// Add increments the counter by value.
func (c *Counter) Add(value uint64) error {
	if err := c.counter.Add(value); err != nil {
		return WrapError("Counter.Add", err)
	}
	return nil
}

// Set sets the counter to value.
func (c *Counter) Set(value uint64) error {
	if err := c.counter.Set(value); err != nil {
		return WrapError("Counter.Set", err)
	}
	return nil
}

// Wait blocks until the counter reaches or exceeds threshold, or timeout
// elapses. A negative timeout blocks indefinitely. It returns immediately
// (without blocking) if the counter has already cleared threshold.
func (c *Counter) Wait(threshold uint64, timeout time.Duration) error {
	if c.Read() >= threshold {
		return nil
	}
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	if err := c.counter.Wait(threshold, ms); err != nil {
		return WrapError("Counter.Wait", err)
	}
	return nil
}

// CheckThreshold reports whether the counter has already reached
// threshold, without blocking.
func (c *Counter) CheckThreshold(threshold uint64) bool {
	return c.Read() >= threshold
}

// Close closes the counter.
func (c *Counter) Close() error {
	if c.counter == nil {
		return nil
	}
	if err := c.counter.Close(); err != nil {
		return WrapError("Counter.Close", err)
	}
	return nil
}
