package ofi

import "github.com/ofi-go/ofi/internal/provider"

// PassiveEndpoint is fi_pep: a listening endpoint for connection-oriented
// (FI_EP_MSG) transports. It produces FI_CONNREQ events through a bound
// event queue; accepting one means opening an active Endpoint against the
// connection request's Info and calling Accept on it.
type PassiveEndpoint struct {
	domain *Domain
	pep    provider.PassiveEndpoint
}

// BindEventQueue binds the event queue FI_CONNREQ/FI_CONNECTED/FI_SHUTDOWN
// events are delivered through.
func (p *PassiveEndpoint) BindEventQueue(eq *EventQueue) error {
	if err := p.pep.BindEventQueue(eq.eq); err != nil {
		return WrapError("PassiveEndpoint.BindEventQueue", err)
	}
	return nil
}

// Listen begins accepting inbound connection requests.
func (p *PassiveEndpoint) Listen() error {
	if err := p.pep.Listen(); err != nil {
		return WrapError("PassiveEndpoint.Listen", err)
	}
	return nil
}

// Reject declines a pending connection request (fi_reject), optionally
// carrying param as user data delivered alongside the peer's FI_SHUTDOWN.
func (p *PassiveEndpoint) Reject(param []byte) error {
	if err := p.pep.Reject(param); err != nil {
		return WrapError("PassiveEndpoint.Reject", err)
	}
	return nil
}

// Close stops listening and releases the passive endpoint.
func (p *PassiveEndpoint) Close() error {
	if p.pep == nil {
		return nil
	}
	if err := p.pep.Close(); err != nil {
		return WrapError("PassiveEndpoint.Close", err)
	}
	return nil
}
