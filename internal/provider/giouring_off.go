//go:build !(linux && giouring)
// +build !linux !giouring

package provider

import "fmt"

// NewWaitFdPoller is available when built with -tags giouring on linux.
func NewWaitFdPoller() (*WaitFdPoller, error) {
	return nil, fmt.Errorf("provider: giouring wait-fd poller not enabled; build with -tags giouring")
}

// WaitFdPoller is the non-giouring stand-in so callers can reference the
// type regardless of build tags; NewWaitFdPoller always fails to produce
// one outside a linux+giouring build.
type WaitFdPoller struct{}

func (p *WaitFdPoller) Close() error               { return nil }
func (p *WaitFdPoller) Wait(fd int, ms int) error { return fmt.Errorf("provider: giouring wait-fd poller not enabled") }
