package ofi

import (
	"github.com/ofi-go/ofi/internal/control"
)

// OpenParams selects the provider and target this binding resolves against.
// An empty ProviderName lets the underlying control layer fall back to
// whatever is linked in (a native provider when built with the ofi_native
// tag, otherwise the in-process loopback stub).
type OpenParams struct {
	ProviderName string
	Node         string
	Service      string
	EPType       EndpointType
	Caps         CapFlags
	Metrics      *Metrics
}

// Fabric is the root of the resource graph (fi_fabric): opening one also
// resolves and opens its one matching Domain, mirroring how fi_getinfo ->
// fi_fabric -> fi_domain is always walked together in practice. Call
// Domain to reach the opened domain, and Close to tear the whole graph
// down in the correct order.
type Fabric struct {
	resolved *control.Resolved
	metrics  *Metrics
	traits   ProviderTraits
	domain   *Domain
}

// Open resolves a provider and walks fi_getinfo -> fi_fabric -> fi_domain,
// returning the opened Fabric. The returned Fabric and its Domain are ready
// to open endpoints, completion queues, address vectors and counters on.
func Open(params OpenParams) (*Fabric, error) {
	resolved, err := control.Resolve(control.ResolveParams{
		ProviderName: params.ProviderName,
		Node:         params.Node,
		Service:      params.Service,
		EPType:       uint32(params.EPType),
		Caps:         uint64(params.Caps),
	})
	if err != nil {
		return nil, WrapError("Open", err)
	}

	m := params.Metrics
	if m == nil {
		m = NewMetrics()
	}

	tag, _ := ProviderTagByName(resolved.Info.ProviderName)
	traits := TraitsFor(tag)
	if traits.Name == "" {
		// Unknown provider name (likely the loopback stub): fall back to
		// the most permissive trait set rather than an all-zero one.
		traits = TraitsFor(ProviderTCP)
		traits.Name = resolved.Info.ProviderName
	}

	f := &Fabric{resolved: resolved, metrics: m, traits: traits}
	f.domain = &Domain{
		fabric: f,
		domain: resolved.Domain,
		traits: traits,
	}
	return f, nil
}

// Domain returns the domain opened alongside this fabric.
func (f *Fabric) Domain() *Domain { return f.domain }

// OpenEventQueue opens a fabric-level event queue of the given depth, for
// connection-management events from passive and active endpoints bound to
// it.
func (f *Fabric) OpenEventQueue(depth int) (*EventQueue, error) {
	eq, err := f.resolved.Fabric.OpenEventQueue(depth)
	if err != nil {
		return nil, WrapError("OpenEventQueue", err)
	}
	return &EventQueue{fabric: f, eq: eq}, nil
}

// Name returns the resolved fabric's provider-qualified name.
func (f *Fabric) Name() string {
	if f.resolved == nil || f.resolved.Fabric == nil {
		return ""
	}
	return f.resolved.Fabric.Name()
}

// Traits returns the capability/defaults record for the resolved provider.
func (f *Fabric) Traits() ProviderTraits { return f.traits }

// Metrics returns the metrics collector this fabric and its descendants
// report operations through.
func (f *Fabric) Metrics() *Metrics { return f.metrics }

// Close tears down the domain then the fabric handle.
func (f *Fabric) Close() error {
	if f.resolved == nil {
		return nil
	}
	if err := f.resolved.Close(); err != nil {
		return WrapError("Fabric.Close", err)
	}
	return nil
}
