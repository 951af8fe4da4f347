//go:build linux && giouring
// +build linux,giouring

// Package provider: this file backs a CompletionQueue's Sread/Fd wait path
// with io_uring IORING_OP_POLL_ADD against the provider's FI_WAIT_FD,
// instead of the default poll(2)-based waiter. A native libfabric provider
// exposes its CQ as waitable through fi_control(FI_GETWAIT), handing back a
// file descriptor that becomes readable when a completion is pending; this
// lets a process multiplex fabric completions into the same io_uring loop
// it uses for other I/O, rather than spending a dedicated polling thread.
//
// This is a narrower role than a full io_uring submission backend: we never
// submit fabric operations (send/recv/read/write/atomic) through io_uring,
// only wait on the provider's wait-fd. The actual completion is still
// retrieved via fi_cq_read once the fd is readable.
package provider

import (
	"fmt"
	"time"

	"github.com/pawelgaczynski/giouring"
)

// WaitFdPoller waits on a provider's FI_WAIT_FD via IORING_OP_POLL_ADD.
type WaitFdPoller struct {
	ring *giouring.Ring
}

// NewWaitFdPoller creates a single-entry io_uring dedicated to polling one
// completion-queue wait descriptor.
func NewWaitFdPoller() (*WaitFdPoller, error) {
	ring, err := giouring.CreateRing(4)
	if err != nil {
		return nil, fmt.Errorf("provider: create poll ring: %w", err)
	}
	return &WaitFdPoller{ring: ring}, nil
}

func (p *WaitFdPoller) Close() error {
	p.ring.QueueExit()
	return nil
}

// Wait blocks until fd becomes readable (FI_WAIT_FD signalled a pending
// completion) or timeout elapses. timeoutMs < 0 waits indefinitely.
func (p *WaitFdPoller) Wait(fd int, timeoutMs int) error {
	sqe := p.ring.GetSQE()
	if sqe == nil {
		return fmt.Errorf("provider: poll ring submission queue full")
	}
	sqe.PrepPollAdd(uint64(fd), giouring.POLLIN)

	if _, err := p.ring.Submit(); err != nil {
		return fmt.Errorf("provider: submit poll: %w", err)
	}

	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		cqe, err := p.ring.PeekCQE()
		if err == nil {
			p.ring.CQESeen(cqe)
			if cqe.Res < 0 {
				return fmt.Errorf("provider: poll_add failed: res=%d", cqe.Res)
			}
			return nil
		}
		if timeoutMs >= 0 && time.Now().After(deadline) {
			return fmt.Errorf("provider: wait-fd poll timed out")
		}
		time.Sleep(time.Millisecond)
	}
}
