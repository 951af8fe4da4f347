package ofi

import (
	"time"

	"github.com/ofi-go/ofi/internal/constants"
	"github.com/ofi-go/ofi/internal/provider"
)

// endpointState approximates the type-state libfabric's fi_endpoint
// lifecycle enforces (created -> bound -> enabled -> connecting/connected
// or listening -> shutdown) at runtime. Go has no phantom-typed builder to
// make illegal transitions a compile error the way the source's type-state
// template does; instead each transition method checks and returns a
// categorised error, the same defensive-check idiom the teacher's device
// state machine uses for ADD_DEV -> SET_PARAMS -> START_DEV.
type endpointState int

const (
	endpointStateCreated endpointState = iota
	endpointStateBound
	endpointStateEnabled
	endpointStateConnecting
	endpointStateConnected
	endpointStateListening
	endpointStateShutdown
)

// Endpoint is fi_endpoint: the active data-transfer object. It must be
// bound to a completion queue (and, for FI_EP_MSG, an event queue) before
// Enable, and enabled before any data-transfer or connection-management
// call.
type Endpoint struct {
	domain *Domain
	ep     provider.Endpoint
	state  endpointState

	cq *CompletionQueue
	eq *EventQueue
	av *AddressVector
	cn *Counter
}

// Domain returns the domain this endpoint was opened from.
func (e *Endpoint) Domain() *Domain { return e.domain }

// Bind binds a completion queue to this endpoint's transmit and/or receive
// side, selected by flags (BindTransmit, BindRecv, or their union).
func (e *Endpoint) Bind(cq *CompletionQueue, flags BindFlags) error {
	if e.state != endpointStateCreated && e.state != endpointStateBound {
		return NewEndpointError("Endpoint.Bind", 0, ErrcInvalidArgument, "endpoint already enabled")
	}
	if err := e.ep.Bind(cq.cq, uint64(flags)); err != nil {
		return WrapError("Endpoint.Bind", err)
	}
	e.cq = cq
	e.state = endpointStateBound
	return nil
}

// BindEventQueue binds an event queue for connection-management events
// (required before Enable on a FI_EP_MSG endpoint).
func (e *Endpoint) BindEventQueue(eq *EventQueue) error {
	if err := e.ep.BindEventQueue(eq.eq); err != nil {
		return WrapError("Endpoint.BindEventQueue", err)
	}
	e.eq = eq
	e.state = endpointStateBound
	return nil
}

// BindAddressVector binds an address vector (required before Enable on a
// connectionless FI_EP_RDM/FI_EP_DGRAM endpoint).
func (e *Endpoint) BindAddressVector(av *AddressVector) error {
	if err := e.ep.BindAddressVector(av.av); err != nil {
		return WrapError("Endpoint.BindAddressVector", err)
	}
	e.av = av
	e.state = endpointStateBound
	return nil
}

// BindCounter binds a counter for the operation classes named by flags
// (e.g. the FI_SEND/FI_RECV/FI_READ/FI_WRITE bits, carried here as CapFlags since that's the bitset those constants belong
// to).
func (e *Endpoint) BindCounter(c *Counter, flags CapFlags) error {
	if err := e.ep.BindCounter(c.counter, uint64(flags)); err != nil {
		return WrapError("Endpoint.BindCounter", err)
	}
	e.cn = c
	e.state = endpointStateBound
	return nil
}

// Enable transitions the endpoint from bound to enabled (fi_enable),
// making it ready for data-transfer and connection-management calls.
func (e *Endpoint) Enable() error {
	if e.state != endpointStateBound {
		return NewEndpointError("Endpoint.Enable", 0, ErrcInvalidArgument, "endpoint must be bound before enable")
	}
	if err := e.ep.Enable(); err != nil {
		return WrapError("Endpoint.Enable", err)
	}
	e.state = endpointStateEnabled
	return nil
}

// Connect initiates a connection to addr (FI_EP_MSG only), optionally
// carrying param as connection-request user data.
func (e *Endpoint) Connect(addr Address, param []byte) error {
	if e.state != endpointStateEnabled {
		return NewEndpointError("Endpoint.Connect", 0, ErrcInvalidArgument, "endpoint must be enabled before connect")
	}
	if err := e.ep.Connect(addr.Bytes(), param); err != nil {
		return WrapError("Endpoint.Connect", err)
	}
	e.state = endpointStateConnecting
	return nil
}

// Accept completes an inbound connection request (FI_EP_MSG only),
// optionally carrying param as accept user data.
func (e *Endpoint) Accept(param []byte) error {
	if e.state != endpointStateEnabled {
		return NewEndpointError("Endpoint.Accept", 0, ErrcInvalidArgument, "endpoint must be enabled before accept")
	}
	if err := e.ep.Accept(param); err != nil {
		return WrapError("Endpoint.Accept", err)
	}
	e.state = endpointStateConnected
	return nil
}

// MarkConnected records that an FI_CONNECTED event arrived on the bound
// event queue for this endpoint. Callers drive this from their event-queue
// poll loop; it does not itself wait for the event.
func (e *Endpoint) MarkConnected() { e.state = endpointStateConnected }

// AwaitConnected blocks until eq delivers FI_CONNECTED for this endpoint (or
// any terminal event, which is returned alongside an error) or timeout
// elapses; a zero timeout uses the package default ConnectTimeout. It polls
// at ProgressYield intervals, the same sleep-then-poll-loop shape the rest
// of this binding's ancestor used for its own async device-ready wait. On
// success the endpoint's state is updated via MarkConnected.
func (e *Endpoint) AwaitConnected(eq *EventQueue, timeout time.Duration) (*Event, error) {
	if timeout <= 0 {
		timeout = constants.ConnectTimeout
	}
	deadline := time.Now().Add(timeout)
	for {
		ev, err := eq.Poll()
		if err != nil {
			return nil, WrapError("Endpoint.AwaitConnected", err)
		}
		if ev != nil {
			switch ev.Kind {
			case EventConnected:
				e.MarkConnected()
				return ev, nil
			case EventShutdown:
				return ev, NewEndpointError("Endpoint.AwaitConnected", 0, ErrcNotConnected, "peer shut down before connecting")
			}
		}
		if time.Now().After(deadline) {
			return nil, NewEndpointError("Endpoint.AwaitConnected", 0, ErrcTimeout, "timed out waiting for FI_CONNECTED")
		}
		time.Sleep(constants.ProgressYield)
	}
}

// Name returns the endpoint's local address (fi_getname), parsed against
// format (the address format the domain/fabric was opened with).
func (e *Endpoint) Name(format AddrFormat) (Address, error) {
	raw, err := e.ep.GetName()
	if err != nil {
		return Address{}, WrapError("Endpoint.Name", err)
	}
	addr, err := ParseAddress(format, raw)
	if err != nil {
		return Address{}, WrapError("Endpoint.Name", err)
	}
	return addr, nil
}

// Peer returns the address of the endpoint this one is connected to
// (fi_getpeer), parsed against format. Valid only after a connection has
// been established.
func (e *Endpoint) Peer(format AddrFormat) (Address, error) {
	raw, err := e.ep.GetPeer()
	if err != nil {
		return Address{}, WrapError("Endpoint.Peer", err)
	}
	addr, err := ParseAddress(format, raw)
	if err != nil {
		return Address{}, WrapError("Endpoint.Peer", err)
	}
	return addr, nil
}

// Cancel requests cancellation of a previously posted send, receive, RMA or
// atomic operation (fi_cancel) identified by ctx. It is advisory: cancelling
// a context the provider no longer recognises (already completed, or never
// posted) is accepted rather than erroring, and the operation's own
// completion is still eventually delivered through the bound completion
// queue regardless of whether the cancel itself won the race.
func (e *Endpoint) Cancel(ctx *Context) error {
	if err := e.ep.Cancel(ctx.abiPtr()); err != nil {
		return WrapError("Endpoint.Cancel", err)
	}
	return nil
}

// Shutdown tears down an established connection (FI_EP_MSG only).
func (e *Endpoint) Shutdown() error {
	if err := e.ep.Shutdown(); err != nil {
		return WrapError("Endpoint.Shutdown", err)
	}
	e.state = endpointStateShutdown
	return nil
}

// IsEnabled reports whether Enable has completed successfully.
func (e *Endpoint) IsEnabled() bool { return e.state >= endpointStateEnabled }

// IsConnected reports whether the endpoint has reached the connected state
// (through Accept, MarkConnected or AwaitConnected). A connectionless
// endpoint never enters that state, so it reports false even once enabled.
func (e *Endpoint) IsConnected() bool { return e.state == endpointStateConnected }

// Close closes the endpoint, releasing its bindings.
func (e *Endpoint) Close() error {
	if e.ep == nil {
		return nil
	}
	if err := e.ep.Close(); err != nil {
		return WrapError("Endpoint.Close", err)
	}
	return nil
}
