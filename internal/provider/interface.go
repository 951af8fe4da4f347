// Package provider defines the libfabric call surface the root package's
// fabric/domain/endpoint objects are built on top of, and the providers that
// implement it (native cgo bindings, a loopback stub for tests).
package provider

import (
	"errors"
	"unsafe"

	"github.com/ofi-go/ofi/internal/abi"
	"github.com/ofi-go/ofi/internal/logging"
)

// ErrQueueFull is returned by a completion or event queue's Read when no
// entry is pending (the loopback stub's stand-in for -FI_EAGAIN); the root
// package's Poll treats it as an empty poll.
var ErrQueueFull = errors.New("completion queue full")

// ErrEntryAvailable is returned by CompletionQueue.Read/Sread in place of a
// normal entry when an error entry is pending, mirroring fi_cq_read
// returning -FI_EAVAIL. The caller's next move is CompletionQueue.ReadErr.
var ErrEntryAvailable = errors.New("completion queue error entry pending")

// Info mirrors the subset of struct fi_info a caller needs back from
// fi_getinfo to pick a provider and open a matching domain/endpoint.
type Info struct {
	ProviderName string
	FabricName   string
	DomainName   string
	EPType       uint32
	AddrFormat   uint32
	Caps         uint64
	Mode         uint64
	SrcAddr      []byte
	DestAddr     []byte
	InjectSize   uint32
}

// GetInfoParams mirrors the arguments to fi_getinfo: node/service identify
// the target (or "" for a passive/any-local lookup), Hints narrows the
// provider/caps/addr_format a caller is willing to accept.
type GetInfoParams struct {
	Node    string
	Service string
	Hints   *Info
	Flags   uint64
}

// Fabric is the fi_fabric-level handle: the root of a provider's resource
// hierarchy, binding a fabric-level event queue for the whole tree.
type Fabric interface {
	Close() error
	OpenDomain(info *Info) (Domain, error)
	OpenEventQueue(depth int) (EventQueue, error)
	Name() string
}

// Domain is fi_domain: owns memory registration and the completion/counter/
// address-vector objects scoped to it.
type Domain interface {
	Close() error
	OpenEndpoint(info *Info) (Endpoint, error)
	OpenPassiveEndpoint(info *Info) (PassiveEndpoint, error)
	OpenCompletionQueue(depth int, format uint32) (CompletionQueue, error)
	OpenAddressVector(capacity int) (AddressVector, error)
	OpenCounter() (Counter, error)
	RegisterMemory(buf []byte, access uint64, requestedKey uint64) (MemoryRegion, error)
}

// Endpoint is fi_endpoint: the active data-transfer object. Bind() wires it
// to the CQ/EQ/AV/counter objects it will report completions and events
// through; Enable() mirrors fi_enable.
type Endpoint interface {
	Close() error
	Bind(cq CompletionQueue, flags uint64) error
	BindEventQueue(eq EventQueue) error
	BindAddressVector(av AddressVector) error
	BindCounter(c Counter, flags uint64) error
	Enable() error
	Connect(addr []byte, param []byte) error
	Accept(param []byte) error
	Shutdown() error

	// GetName returns the endpoint's local address in wire format
	// (fi_getname).
	GetName() ([]byte, error)
	// GetPeer returns the connected peer's address in wire format
	// (fi_getpeer); valid only once a connection has been established.
	GetPeer() ([]byte, error)

	Send(buf []byte, desc unsafe.Pointer, destAddr uint64, ctx *abi.Context) error
	SendMsg(msg *abi.MsgBasic, flags uint64) error
	Recv(buf []byte, desc unsafe.Pointer, srcAddr uint64, ctx *abi.Context) error
	RecvMsg(msg *abi.MsgBasic, flags uint64) error

	TSend(buf []byte, desc unsafe.Pointer, destAddr uint64, tag uint64, ctx *abi.Context) error
	TRecv(buf []byte, desc unsafe.Pointer, srcAddr uint64, tag, ignore uint64, ctx *abi.Context) error

	Read(buf []byte, desc unsafe.Pointer, srcAddr uint64, rma abi.RmaIOV, ctx *abi.Context) error
	Write(buf []byte, desc unsafe.Pointer, destAddr uint64, rma abi.RmaIOV, ctx *abi.Context) error
	Inject(buf []byte, destAddr uint64) error

	Atomic(buf []byte, desc unsafe.Pointer, destAddr uint64, rma abi.RmaIOV, datatype, op uint32, ctx *abi.Context) error
	CompareAtomic(buf, compare, result []byte, desc unsafe.Pointer, destAddr uint64, rma abi.RmaIOV, datatype, op uint32, ctx *abi.Context) error
	FetchAtomic(buf, result []byte, desc unsafe.Pointer, destAddr uint64, rma abi.RmaIOV, datatype, op uint32, ctx *abi.Context) error

	// Cancel requests cancellation of a previously posted operation (fi_cancel).
	// Like the real call, this is advisory: an unknown or already-completed
	// context is accepted rather than rejected, and the operation's
	// completion (success or FI_ECANCELED) is still delivered through the
	// bound completion queue whether or not the cancel won the race.
	Cancel(ctx *abi.Context) error

	QueueTriggered(deferredOp func() error, trigger Counter, threshold uint64) error
}

// PassiveEndpoint is fi_pep: a listening endpoint producing FI_CONNREQ
// events through a bound event queue.
type PassiveEndpoint interface {
	Close() error
	BindEventQueue(eq EventQueue) error
	Listen() error
	// Reject declines a pending connection request (fi_reject), optionally
	// carrying param as user data delivered with the peer's FI_SHUTDOWN.
	Reject(param []byte) error
}

// CompletionQueue is fi_cq: the per-domain completion sink endpoints bind
// into, polled via Read or blocked on via Sread.
type CompletionQueue interface {
	Close() error
	Read(out []abi.CQTaggedEntry) (int, error)
	ReadErr() (abi.CQErrEntry, error)
	Sread(out []abi.CQTaggedEntry, timeoutMs int) (int, error)
	Fd() (int, error)
}

// EventQueue is fi_eq: connection-management and fabric-level events.
type EventQueue interface {
	Close() error
	Read() (uint32, abi.EQCMEntry, error)
	ReadErr() (abi.EQErrEntry, error)
	Sread(timeoutMs int) (uint32, abi.EQCMEntry, error)
	Fd() (int, error)
}

// AddressVector is fi_av: translates peer addresses into the fi_addr_t
// handles transfer operations address by.
type AddressVector interface {
	Close() error
	Insert(addrs [][]byte) ([]uint64, error)
	Remove(fiAddrs []uint64) error
	Lookup(fiAddr uint64) ([]byte, error)
}

// Counter is fi_cntr: a monotonic success/error counter, used directly or as
// a trigger for deferred work.
type Counter interface {
	Close() error
	Read() uint64
	ReadErr() uint64
	Add(value uint64) error
	Set(value uint64) error
	Wait(threshold uint64, timeoutMs int) error
}

// MemoryRegion is fi_mr: a registered, pinned buffer, exposing the local
// descriptor and remote key transfer operations reference it by. Bind/
// Enable/Refresh serve providers whose mr_mode reports FI_MR_ENDPOINT
// (registration is a three-step bind-to-endpoint-then-enable dance rather
// than immediately active) or whose backing memory can move and needs
// re-validating (Refresh); providers without those modes implement them as
// no-ops.
type MemoryRegion interface {
	Close() error
	Desc() unsafe.Pointer
	Key() uint64
	Address() uint64
	Bind(ep Endpoint) error
	Enable() error
	Refresh() error
}

// Capabilities describes what a concrete provider actually supports, the
// Go-native replacement for compile-time provider-trait dispatch: callers
// branch on this struct instead of a const-generic parameter.
type Capabilities struct {
	NativeAtomics   bool
	InjectSupported bool
	ManualProgress  bool
	TriggeredOps    bool
	SharedAV        bool
	MaxInjectSize   uint32
}

// Provider is the entry point into a concrete transport (Verbs, EFA, CXI,
// shared-memory, TCP, UCX, or the in-process loopback stub). GetInfo mirrors
// fi_getinfo; OpenFabric mirrors fi_fabric.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	GetInfo(params GetInfoParams) ([]*Info, error)
	OpenFabric(info *Info) (Fabric, error)
}

func logger() *logging.Logger {
	return logging.Default()
}
