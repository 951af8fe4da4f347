package ofi

// SharedTxContext and SharedRxContext model fi_shared_tx/rx_context: a
// transmit or receive context several endpoints of the same domain bind to
// and share, instead of each endpoint owning an independent one. This
// binding's provider surface (internal/provider.Endpoint) does not expose
// a distinct shared-context handle the way libfabric's C API does —
// sharing is expressed here at the Go level by letting multiple Endpoint
// values Bind the same CompletionQueue and AddressVector, which is the
// observable effect a shared context has (completions and address
// resolution pooled across the member endpoints). SharedTxContext and
// SharedRxContext exist as named wrappers so call sites read as "these
// endpoints share a context", matching the vocabulary in the rest of this
// package, rather than forcing callers to reason about it in terms of raw
// CQ/AV sharing.
type SharedTxContext struct {
	domain *Domain
	cq     *CompletionQueue
}

// NewSharedTxContext opens a completion queue of the given depth to be
// shared as the transmit context for multiple endpoints.
func (d *Domain) NewSharedTxContext(depth int) (*SharedTxContext, error) {
	cq, err := d.OpenCompletionQueue(depth)
	if err != nil {
		return nil, WrapError("NewSharedTxContext", err)
	}
	return &SharedTxContext{domain: d, cq: cq}, nil
}

// Attach binds ep's transmit side to this shared context's completion
// queue.
func (s *SharedTxContext) Attach(ep *Endpoint) error {
	return ep.Bind(s.cq, BindTransmit)
}

// CompletionQueue returns the shared completion queue, for polling
// completions pooled across every attached endpoint.
func (s *SharedTxContext) CompletionQueue() *CompletionQueue { return s.cq }

// Close closes the shared context's completion queue. Every endpoint
// attached to it must be closed first.
func (s *SharedTxContext) Close() error { return s.cq.Close() }

// SharedRxContext is the receive-side counterpart to SharedTxContext: an
// address vector and completion queue shared by the receive side of
// multiple endpoints.
type SharedRxContext struct {
	domain *Domain
	cq     *CompletionQueue
	av     *AddressVector
}

// NewSharedRxContext opens a completion queue and address vector to be
// shared as the receive context for multiple endpoints.
func (d *Domain) NewSharedRxContext(depth, avCapacity int) (*SharedRxContext, error) {
	cq, err := d.OpenCompletionQueue(depth)
	if err != nil {
		return nil, WrapError("NewSharedRxContext", err)
	}
	av, err := d.OpenAddressVector(avCapacity)
	if err != nil {
		cq.Close()
		return nil, WrapError("NewSharedRxContext", err)
	}
	return &SharedRxContext{domain: d, cq: cq, av: av}, nil
}

// Attach binds ep's receive side and address vector to this shared
// context.
func (s *SharedRxContext) Attach(ep *Endpoint) error {
	if err := ep.Bind(s.cq, BindRecv); err != nil {
		return err
	}
	return ep.BindAddressVector(s.av)
}

// CompletionQueue returns the shared completion queue.
func (s *SharedRxContext) CompletionQueue() *CompletionQueue { return s.cq }

// AddressVector returns the shared address vector.
func (s *SharedRxContext) AddressVector() *AddressVector { return s.av }

// Close closes the shared context's completion queue and address vector.
// Every endpoint attached to it must be closed first.
func (s *SharedRxContext) Close() error {
	var firstErr error
	if err := s.av.Close(); err != nil {
		firstErr = err
	}
	if err := s.cq.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
