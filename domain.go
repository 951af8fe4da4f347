package ofi

import (
	"github.com/ofi-go/ofi/internal/provider"
)

// Domain is fi_domain: the scope memory registration, completion queues,
// address vectors and counters all live under, and the factory for the
// endpoints that move data through them.
type Domain struct {
	fabric *Fabric
	domain provider.Domain
	traits ProviderTraits
}

// Fabric returns the fabric this domain was opened from.
func (d *Domain) Fabric() *Fabric { return d.fabric }

// Traits returns the capability/defaults record for this domain's provider.
func (d *Domain) Traits() ProviderTraits { return d.traits }

func (d *Domain) metrics() *Metrics {
	if d.fabric == nil {
		return nil
	}
	return d.fabric.metrics
}

func (d *Domain) observeSend(bytes uint64, success bool) {
	if m := d.metrics(); m != nil {
		m.ObserveSend(bytes, 0, success)
	}
}

func (d *Domain) observeRecv(bytes uint64, success bool) {
	if m := d.metrics(); m != nil {
		m.ObserveRecv(bytes, 0, success)
	}
}

func (d *Domain) observeRMARead(bytes uint64, success bool) {
	if m := d.metrics(); m != nil {
		m.ObserveRMARead(bytes, 0, success)
	}
}

func (d *Domain) observeRMAWrite(bytes uint64, success bool) {
	if m := d.metrics(); m != nil {
		m.ObserveRMAWrite(bytes, 0, success)
	}
}

func (d *Domain) observeAtomic(success bool) {
	if m := d.metrics(); m != nil {
		m.ObserveAtomic(0, success)
	}
}

// EndpointParams configures an active endpoint (fi_endpoint + bindings the
// caller still performs explicitly — Bind/BindEventQueue/BindAddressVector/
// BindCounter/Enable — matching libfabric's own explicit bind-then-enable
// lifecycle rather than hiding it behind a single call).
type EndpointParams struct {
	EPType EndpointType
	Caps   CapFlags
}

// OpenEndpoint opens an active (data-transfer) endpoint. The endpoint is in
// the Created state until Bind and Enable are called on it.
func (d *Domain) OpenEndpoint(params EndpointParams) (*Endpoint, error) {
	info := &provider.Info{EPType: uint32(params.EPType), Caps: uint64(params.Caps)}
	ep, err := d.domain.OpenEndpoint(info)
	if err != nil {
		return nil, WrapError("OpenEndpoint", err)
	}
	return &Endpoint{domain: d, ep: ep, state: endpointStateCreated}, nil
}

// OpenPassiveEndpoint opens a listening endpoint for connection-oriented
// (FI_EP_MSG) transports.
func (d *Domain) OpenPassiveEndpoint(params EndpointParams) (*PassiveEndpoint, error) {
	info := &provider.Info{EPType: uint32(params.EPType), Caps: uint64(params.Caps)}
	pep, err := d.domain.OpenPassiveEndpoint(info)
	if err != nil {
		return nil, WrapError("OpenPassiveEndpoint", err)
	}
	return &PassiveEndpoint{domain: d, pep: pep}, nil
}

// OpenCompletionQueue opens a completion queue of the given depth. The
// queue always uses the provider's default tagged-entry format.
func (d *Domain) OpenCompletionQueue(depth int) (*CompletionQueue, error) {
	cq, err := d.domain.OpenCompletionQueue(depth, 0)
	if err != nil {
		return nil, WrapError("OpenCompletionQueue", err)
	}
	return &CompletionQueue{domain: d, cq: cq}, nil
}

// OpenAddressVector opens an address vector with room for capacity peer
// addresses.
func (d *Domain) OpenAddressVector(capacity int) (*AddressVector, error) {
	av, err := d.domain.OpenAddressVector(capacity)
	if err != nil {
		return nil, WrapError("OpenAddressVector", err)
	}
	return &AddressVector{domain: d, av: av}, nil
}

// OpenCounter opens a counter (fi_cntr), usable directly for RMA/atomic
// completion tracking or as a trigger for deferred (triggered) work.
func (d *Domain) OpenCounter() (*Counter, error) {
	c, err := d.domain.OpenCounter()
	if err != nil {
		return nil, WrapError("OpenCounter", err)
	}
	return &Counter{domain: d, counter: c}, nil
}
