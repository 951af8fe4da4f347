package ofi

import (
	"unsafe"

	"github.com/ofi-go/ofi/internal/provider"
)

// MemoryRegion is a registered, pinned buffer. It owns the underlying
// provider handle; Close deregisters it (fi_close on the fi_mr). A
// MemoryRegion obtained from an MRCache must not be closed directly by the
// caller — the cache owns the close lifecycle once a buffer has been
// cached (see mr_cache.go).
type MemoryRegion struct {
	domain *Domain
	region providerMemoryRegion
	access AccessFlags
	length uint64
	closed bool
}

// providerMemoryRegion is the subset of internal/provider.MemoryRegion this
// package depends on, named locally so memory_region.go does not need to
// import internal/provider directly in its public signature.
type providerMemoryRegion interface {
	Close() error
	Desc() unsafe.Pointer
	Key() uint64
	Address() uint64
	Bind(ep provider.Endpoint) error
	Enable() error
	Refresh() error
}

// RegisterHost registers a host-memory buffer for the given access modes
// and returns the resulting MemoryRegion. The buffer must not move or be
// garbage-collected while registered; callers typically keep a reference
// to the backing slice alongside the MemoryRegion.
func (d *Domain) RegisterHost(buf []byte, access AccessFlags) (*MemoryRegion, error) {
	return d.registerWithKey(buf, access, 0)
}

// RegisterHostWithKey registers buf and requests a specific remote key,
// for providers that support FI_MR_PROV_KEY == false (application-chosen
// keys). Providers that require a provider-chosen key ignore requestedKey.
func (d *Domain) RegisterHostWithKey(buf []byte, access AccessFlags, requestedKey RemoteKey) (*MemoryRegion, error) {
	return d.registerWithKey(buf, access, uint64(requestedKey))
}

// RegisterDMABuf registers a dmabuf-backed buffer (e.g. GPU memory exported
// through a dmabuf fd and mmap'd into the process) the same way a normal
// host buffer is registered. The distinction from RegisterHost is semantic
// only at this layer: the provider decides whether it needs FI_HMEM tagged
// in the access request, which the caller signals through access.
func (d *Domain) RegisterDMABuf(buf []byte, access AccessFlags) (*MemoryRegion, error) {
	return d.RegisterHost(buf, access)
}

// RegisterHMEM registers device memory (GPU, accelerator) reached through a
// heterogeneous-memory-aware provider. Like RegisterDMABuf, the caller must
// ensure access already carries whatever HMEM capability the domain was
// opened with; this method does not silently add it.
func (d *Domain) RegisterHMEM(buf []byte, access AccessFlags) (*MemoryRegion, error) {
	return d.RegisterHost(buf, access)
}

func (d *Domain) registerWithKey(buf []byte, access AccessFlags, requestedKey uint64) (*MemoryRegion, error) {
	if d.domain == nil {
		return nil, NewError("RegisterMemory", ErrcInvalidArgument, "domain is not open")
	}
	region, err := d.domain.RegisterMemory(buf, uint64(access), requestedKey)
	if err != nil {
		return nil, WrapError("RegisterMemory", err)
	}
	// The buffer is now reachable from the provider; fence local stores so a
	// remote peer can never observe a partially-written region.
	provider.Sfence()
	return &MemoryRegion{
		domain: d,
		region: region,
		access: access,
		length: uint64(len(buf)),
	}, nil
}

// Descriptor returns the provider-local token transfer operations pass back
// to identify this region (fi_mr_desc). It is nil for providers that don't
// require a local descriptor (FI_MR_LOCAL not set).
func (m *MemoryRegion) Descriptor() LocalDescriptor {
	if m == nil || m.region == nil {
		return nil
	}
	return LocalDescriptor(m.region.Desc())
}

// Key returns the remote key a peer uses to target this region with RMA or
// atomics (fi_mr_key).
func (m *MemoryRegion) Key() RemoteKey {
	if m == nil || m.region == nil {
		return 0
	}
	return RemoteKey(m.region.Key())
}

// Length returns the number of bytes registered.
func (m *MemoryRegion) Length() uint64 {
	if m == nil {
		return 0
	}
	return m.length
}

// Access returns the access flags the region was registered with.
func (m *MemoryRegion) Access() AccessFlags {
	if m == nil {
		return 0
	}
	return m.access
}

// Address returns the region's base virtual address, as required by
// providers with FI_MR_VIRT_ADDR set (the remote side must target it
// rather than a zero-based offset).
func (m *MemoryRegion) Address() uint64 {
	if m == nil || m.region == nil {
		return 0
	}
	return m.region.Address()
}

// Bind attaches this region to ep, required before Enable on providers
// whose mr_mode reports FI_MR_ENDPOINT.
func (m *MemoryRegion) Bind(ep *Endpoint) error {
	if m == nil || m.region == nil {
		return NewError("MemoryRegion.Bind", ErrcInvalidArgument, "memory region is not registered")
	}
	if err := m.region.Bind(ep.ep); err != nil {
		return WrapError("MemoryRegion.Bind", err)
	}
	return nil
}

// Enable activates a region previously Bind'd to an endpoint (fi_mr_enable),
// required on FI_MR_ENDPOINT providers before the region is usable for
// remote access.
func (m *MemoryRegion) Enable() error {
	if m == nil || m.region == nil {
		return NewError("MemoryRegion.Enable", ErrcInvalidArgument, "memory region is not registered")
	}
	if err := m.region.Enable(); err != nil {
		return WrapError("MemoryRegion.Enable", err)
	}
	return nil
}

// Refresh re-validates a region's registration (fi_mr_refresh), for
// providers whose memory access permissions can change after an
// mprotect-style call to the backing address range without a full
// re-registration.
func (m *MemoryRegion) Refresh() error {
	if m == nil || m.region == nil {
		return NewError("MemoryRegion.Refresh", ErrcInvalidArgument, "memory region is not registered")
	}
	if err := m.region.Refresh(); err != nil {
		return WrapError("MemoryRegion.Refresh", err)
	}
	return nil
}

// Close deregisters the memory region. It is idempotent.
func (m *MemoryRegion) Close() error {
	if m == nil || m.closed || m.region == nil {
		return nil
	}
	m.closed = true
	if err := m.region.Close(); err != nil {
		return WrapError("MemoryRegion.Close", err)
	}
	return nil
}
