package provider

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/ofi-go/ofi/internal/abi"
	"github.com/ofi-go/ofi/internal/constants"
)

// StubProvider is an in-process loopback provider: it implements the full
// Provider surface without talking to any hardware, so tests (and the
// loopback demo) can exercise the submission/completion/MR-cache/triggered-
// work machinery on any host. It never reorders a posted operation, and
// RMA/atomic targets resolve against a real backing buffer via the
// registering domain's key table, so correctness tests against it are
// meaningful, not just smoke tests. Its event queues, and its completion
// queues' success entries, hold at most their configured depth: pushing
// onto a full queue drops the oldest entry.
//
// Send/Recv matching is simplified: a Send to FI_ADDR_NOTAVAIL completes
// with an EADDRNOTAVAIL error entry; any other Send, whatever its destAddr,
// fills the sending endpoint's own oldest pending receive (both then
// complete) or, with no receive pending, completes locally with the data
// discarded. This is enough to exercise the dispatch path without simulating
// a full two-sided wire protocol.
type StubProvider struct {
	caps Capabilities
}

// NewStubProvider constructs the loopback provider with a representative
// capability set (no native atomics, so the atomics path exercises its RMA
// fallback; inject and triggered ops supported, matching a software RDM
// provider like the shared-memory transport).
func NewStubProvider() *StubProvider {
	return &StubProvider{
		caps: Capabilities{
			NativeAtomics:   false,
			InjectSupported: true,
			ManualProgress:  true,
			TriggeredOps:    true,
			SharedAV:        true,
			MaxInjectSize:   64,
		},
	}
}

func (p *StubProvider) Name() string { return "stub" }

func (p *StubProvider) Capabilities() Capabilities { return p.caps }

func (p *StubProvider) GetInfo(params GetInfoParams) ([]*Info, error) {
	info := &Info{
		ProviderName: "stub",
		FabricName:   "stub_fabric",
		DomainName:   "stub_domain",
		EPType:       abi.FI_EP_RDM,
		AddrFormat:   abi.FI_SOCKADDR_IN,
		InjectSize:   p.caps.MaxInjectSize,
	}
	if params.Hints != nil {
		if params.Hints.EPType != 0 {
			info.EPType = params.Hints.EPType
		}
		info.Caps = params.Hints.Caps
		info.Mode = params.Hints.Mode
	}
	return []*Info{info}, nil
}

func (p *StubProvider) OpenFabric(info *Info) (Fabric, error) {
	return &stubFabric{name: "stub_fabric"}, nil
}

type stubFabric struct {
	name string
}

func (f *stubFabric) Close() error { return nil }
func (f *stubFabric) Name() string { return f.name }

func (f *stubFabric) OpenDomain(info *Info) (Domain, error) {
	return &stubDomain{
		mrsByKey: make(map[uint64]*stubMR),
		nextKey:  1,
	}, nil
}

func (f *stubFabric) OpenEventQueue(depth int) (EventQueue, error) {
	return newStubEQ(depth), nil
}

type stubDomain struct {
	mu       sync.Mutex
	mrsByKey map[uint64]*stubMR
	nextKey  uint64
}

func (d *stubDomain) Close() error { return nil }

func (d *stubDomain) OpenEndpoint(info *Info) (Endpoint, error) {
	port := uint16(stubEndpointSeq.Add(1))
	localAddr := abi.MarshalSockaddrIn(&abi.SockaddrIn{
		Family: uint16(abi.FI_SOCKADDR_IN),
		Port:   port,
		Addr:   [4]byte{127, 0, 0, 1},
	})
	return &stubEndpoint{domain: d, localAddr: localAddr}, nil
}

func (d *stubDomain) OpenPassiveEndpoint(info *Info) (PassiveEndpoint, error) {
	return &stubPassiveEndpoint{}, nil
}

func (d *stubDomain) OpenCompletionQueue(depth int, format uint32) (CompletionQueue, error) {
	return newStubCQ(depth), nil
}

func (d *stubDomain) OpenAddressVector(capacity int) (AddressVector, error) {
	return newStubAV(capacity), nil
}

func (d *stubDomain) OpenCounter() (Counter, error) {
	return newStubCounter(), nil
}

func (d *stubDomain) RegisterMemory(buf []byte, access uint64, requestedKey uint64) (MemoryRegion, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := requestedKey
	if key == 0 {
		key = d.nextKey
		d.nextKey++
	}
	if _, exists := d.mrsByKey[key]; exists {
		return nil, fmt.Errorf("stub: remote key %d already registered", key)
	}

	mr := &stubMR{buf: buf, key: key}
	d.mrsByKey[key] = mr
	return mr, nil
}

func (d *stubDomain) resolve(rma abi.RmaIOV) (*stubMR, error) {
	d.mu.Lock()
	mr, ok := d.mrsByKey[rma.Key]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("stub: unknown remote key %d", rma.Key)
	}
	if rma.Addr+rma.Len > uint64(len(mr.buf)) {
		return nil, fmt.Errorf("stub: rma access [%d,%d) out of bounds for region of length %d", rma.Addr, rma.Addr+rma.Len, len(mr.buf))
	}
	return mr, nil
}

type stubMR struct {
	buf     []byte
	key     uint64
	bound   bool
	enabled bool
}

func (m *stubMR) Close() error         { return nil }
func (m *stubMR) Desc() unsafe.Pointer { return unsafe.Pointer(&m.buf) }
func (m *stubMR) Key() uint64          { return m.key }

func (m *stubMR) Address() uint64 {
	if len(m.buf) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&m.buf[0])))
}

// Bind and Enable model the FI_MR_ENDPOINT activation dance; the loopback
// provider has no separate activation state, so these just record that the
// caller followed the expected order (Enable before Bind is rejected).
func (m *stubMR) Bind(ep Endpoint) error {
	m.bound = true
	return nil
}

func (m *stubMR) Enable() error {
	if !m.bound {
		return fmt.Errorf("stub: memory region must be bound to an endpoint before Enable")
	}
	m.enabled = true
	return nil
}

func (m *stubMR) Refresh() error { return nil }

type stubEndpoint struct {
	domain *stubDomain

	mu        sync.Mutex
	cq        CompletionQueue
	eq        EventQueue
	av        AddressVector
	counter   Counter
	pending   []pendingRecv
	localAddr []byte
	peerAddr  []byte
}

// stubEndpointSeq hands out a distinct loopback port per opened endpoint so
// GetName returns something a caller can tell endpoints apart by, the same
// way a real fi_getname would after an implicit bind to an ephemeral port.
var stubEndpointSeq atomic.Uint32

type pendingRecv struct {
	buf  []byte
	ctx  *abi.Context
}

func (e *stubEndpoint) Close() error { return nil }

func (e *stubEndpoint) Bind(cq CompletionQueue, flags uint64) error {
	e.mu.Lock()
	e.cq = cq
	e.mu.Unlock()
	return nil
}

func (e *stubEndpoint) BindEventQueue(eq EventQueue) error {
	e.mu.Lock()
	e.eq = eq
	e.mu.Unlock()
	return nil
}

func (e *stubEndpoint) BindAddressVector(av AddressVector) error {
	e.mu.Lock()
	e.av = av
	e.mu.Unlock()
	return nil
}

func (e *stubEndpoint) BindCounter(c Counter, flags uint64) error {
	e.mu.Lock()
	e.counter = c
	e.mu.Unlock()
	return nil
}

func (e *stubEndpoint) Enable() error { return nil }

func (e *stubEndpoint) Connect(addr []byte, param []byte) error {
	e.mu.Lock()
	eq := e.eq
	e.peerAddr = append([]byte(nil), addr...)
	e.mu.Unlock()
	if seq, ok := eq.(*stubEQ); ok {
		seq.push(abi.EQCMEntry{}, cmEventConnected)
	}
	return nil
}

func (e *stubEndpoint) Accept(param []byte) error { return nil }

func (e *stubEndpoint) Shutdown() error {
	e.mu.Lock()
	eq := e.eq
	e.mu.Unlock()
	if seq, ok := eq.(*stubEQ); ok {
		seq.push(abi.EQCMEntry{}, cmEventShutdown)
	}
	return nil
}

// GetName returns this endpoint's loopback-assigned local address.
func (e *stubEndpoint) GetName() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.localAddr...), nil
}

// GetPeer returns the address Connect was called with. The stub has no
// acceptor-side path that learns a peer's address the way a real fi_accept
// derived from a FI_CONNREQ event would, so it only ever has one to return
// on the connecting side.
func (e *stubEndpoint) GetPeer() ([]byte, error) {
	e.mu.Lock()
	peer := e.peerAddr
	e.mu.Unlock()
	if peer == nil {
		return nil, fmt.Errorf("stub: endpoint has no connected peer")
	}
	return append([]byte(nil), peer...), nil
}

func (e *stubEndpoint) complete(length uint64, data uint64, ctx *abi.Context) {
	e.mu.Lock()
	cq, counter := e.cq, e.counter
	e.mu.Unlock()
	if scq, ok := cq.(*stubCQ); ok {
		scq.push(abi.CQTaggedEntry{
			OpContext: unsafe.Pointer(ctx),
			Len:       length,
			Data:      data,
		})
	}
	if counter != nil {
		counter.Add(1)
	}
}

// addrNotAvail is FI_ADDR_NOTAVAIL: the sentinel an unresolved address
// vector lookup returns, reused here to let a caller exercise the CQ
// error-delivery path (a send to an address that never resolved) without
// needing a real unreachable peer.
const addrNotAvail uint64 = ^uint64(0)

// completeErr enqueues a completion-error entry for ctx and bumps the
// counter's error count, the stub's analogue of a provider failing a
// posted operation asynchronously through the CQ rather than synchronously
// at post time.
func (e *stubEndpoint) completeErr(errno int32, ctx *abi.Context) {
	e.mu.Lock()
	cq, counter := e.cq, e.counter
	e.mu.Unlock()
	if scq, ok := cq.(*stubCQ); ok {
		scq.pushErr(abi.CQErrEntry{
			OpContext: unsafe.Pointer(ctx),
			Err:       errno,
		})
	}
	if sc, ok := counter.(*stubCounter); ok {
		sc.errs.Add(1)
	}
}

func (e *stubEndpoint) Send(buf []byte, desc unsafe.Pointer, destAddr uint64, ctx *abi.Context) error {
	if destAddr == addrNotAvail {
		e.completeErr(int32(syscall.EADDRNOTAVAIL), ctx)
		return nil
	}

	e.mu.Lock()
	var matched *pendingRecv
	if len(e.pending) > 0 {
		r := e.pending[0]
		e.pending = e.pending[1:]
		matched = &r
	}
	e.mu.Unlock()

	if matched != nil {
		n := copy(matched.buf, buf)
		e.complete(uint64(n), 0, matched.ctx)
	}
	e.complete(uint64(len(buf)), 0, ctx)
	return nil
}

func (e *stubEndpoint) SendMsg(msg *abi.MsgBasic, flags uint64) error {
	var total uint64
	for _, iov := range msg.Iov {
		total += uint64(iov.Len)
	}
	e.complete(total, msg.Data, msg.Context)
	return nil
}

func (e *stubEndpoint) Recv(buf []byte, desc unsafe.Pointer, srcAddr uint64, ctx *abi.Context) error {
	e.mu.Lock()
	e.pending = append(e.pending, pendingRecv{buf: buf, ctx: ctx})
	e.mu.Unlock()
	return nil
}

func (e *stubEndpoint) RecvMsg(msg *abi.MsgBasic, flags uint64) error {
	if len(msg.Iov) == 0 {
		return fmt.Errorf("stub: RecvMsg requires at least one iov")
	}
	buf := unsafe.Slice((*byte)(msg.Iov[0].Base), msg.Iov[0].Len)
	return e.Recv(buf, nil, msg.Addr, msg.Context)
}

func (e *stubEndpoint) TSend(buf []byte, desc unsafe.Pointer, destAddr uint64, tag uint64, ctx *abi.Context) error {
	e.complete(uint64(len(buf)), tag, ctx)
	return nil
}

func (e *stubEndpoint) TRecv(buf []byte, desc unsafe.Pointer, srcAddr uint64, tag, ignore uint64, ctx *abi.Context) error {
	e.complete(uint64(len(buf)), tag, ctx)
	return nil
}

func (e *stubEndpoint) Read(buf []byte, desc unsafe.Pointer, srcAddr uint64, rma abi.RmaIOV, ctx *abi.Context) error {
	mr, err := e.domain.resolve(rma)
	if err != nil {
		return err
	}
	n := copy(buf, mr.buf[rma.Addr:rma.Addr+rma.Len])
	e.complete(uint64(n), 0, ctx)
	return nil
}

func (e *stubEndpoint) Write(buf []byte, desc unsafe.Pointer, destAddr uint64, rma abi.RmaIOV, ctx *abi.Context) error {
	mr, err := e.domain.resolve(rma)
	if err != nil {
		return err
	}
	n := copy(mr.buf[rma.Addr:rma.Addr+rma.Len], buf)
	e.complete(uint64(n), 0, ctx)
	return nil
}

// Cancel accepts cancellation of any context, known or not, without
// searching the pending-receive list: the stub has no way to pull an
// already-posted send back out of flight, so (like a real provider racing
// fi_cancel against in-flight completion) the matching operation still
// completes normally on its own.
func (e *stubEndpoint) Cancel(ctx *abi.Context) error { return nil }

func (e *stubEndpoint) Inject(buf []byte, destAddr uint64) error {
	if uint32(len(buf)) > e.domain.injectLimit() {
		return fmt.Errorf("stub: inject payload of %d bytes exceeds limit", len(buf))
	}
	return nil
}

func (d *stubDomain) injectLimit() uint32 { return 64 }

// applyAtomicOp performs op on dst/src interpreting both as little-endian
// uint64 lanes; it is a simplification appropriate to a loopback test
// backend, not a full libfabric datatype table.
func applyAtomicOp(dst, src []byte, op uint32) uint64 {
	var d, s uint64
	for i := 0; i < 8 && i < len(dst); i++ {
		d |= uint64(dst[i]) << (8 * i)
	}
	for i := 0; i < 8 && i < len(src); i++ {
		s |= uint64(src[i]) << (8 * i)
	}

	var result uint64
	switch op {
	case abi.FI_MIN, abi.FI_BAND, abi.FI_BOR, abi.FI_BXOR, abi.FI_LAND, abi.FI_LOR, abi.FI_LXOR:
		result = applyNonSumOp(d, s, op)
	case abi.FI_ATOMIC_READ:
		result = d
	case abi.FI_ATOMIC_WRITE:
		result = s
	default: // FI_SUM and anything unrecognised add, matching the common case
		result = d + s
	}

	for i := 0; i < 8 && i < len(dst); i++ {
		dst[i] = byte(result >> (8 * i))
	}
	return d
}

func applyNonSumOp(d, s uint64, op uint32) uint64 {
	switch op {
	case abi.FI_MIN:
		if s < d {
			return s
		}
		return d
	case abi.FI_BAND:
		return d & s
	case abi.FI_BOR:
		return d | s
	case abi.FI_BXOR:
		return d ^ s
	case abi.FI_LAND:
		if d != 0 && s != 0 {
			return 1
		}
		return 0
	case abi.FI_LOR:
		if d != 0 || s != 0 {
			return 1
		}
		return 0
	case abi.FI_LXOR:
		if (d != 0) != (s != 0) {
			return 1
		}
		return 0
	}
	return d
}

func (e *stubEndpoint) Atomic(buf []byte, desc unsafe.Pointer, destAddr uint64, rma abi.RmaIOV, datatype, op uint32, ctx *abi.Context) error {
	mr, err := e.domain.resolve(rma)
	if err != nil {
		return err
	}
	applyAtomicOp(mr.buf[rma.Addr:rma.Addr+rma.Len], buf, op)
	e.complete(rma.Len, 0, ctx)
	return nil
}

func (e *stubEndpoint) CompareAtomic(buf, compare, result []byte, desc unsafe.Pointer, destAddr uint64, rma abi.RmaIOV, datatype, op uint32, ctx *abi.Context) error {
	mr, err := e.domain.resolve(rma)
	if err != nil {
		return err
	}
	target := mr.buf[rma.Addr : rma.Addr+rma.Len]
	copy(result, target)
	if string(target) == string(compare) {
		copy(target, buf)
	}
	e.complete(rma.Len, 0, ctx)
	return nil
}

func (e *stubEndpoint) FetchAtomic(buf, result []byte, desc unsafe.Pointer, destAddr uint64, rma abi.RmaIOV, datatype, op uint32, ctx *abi.Context) error {
	mr, err := e.domain.resolve(rma)
	if err != nil {
		return err
	}
	target := mr.buf[rma.Addr : rma.Addr+rma.Len]
	copy(result, target)
	applyAtomicOp(target, buf, op)
	e.complete(rma.Len, 0, ctx)
	return nil
}

func (e *stubEndpoint) QueueTriggered(deferredOp func() error, trigger Counter, threshold uint64) error {
	go func() {
		if err := trigger.Wait(threshold, -1); err != nil {
			return
		}
		_ = deferredOp()
	}()
	return nil
}

type stubPassiveEndpoint struct {
	eq EventQueue
}

func (p *stubPassiveEndpoint) Close() error { return nil }
func (p *stubPassiveEndpoint) BindEventQueue(eq EventQueue) error {
	p.eq = eq
	return nil
}
func (p *stubPassiveEndpoint) Listen() error { return nil }

// Reject declines a pending connection request, delivering FI_SHUTDOWN to
// the bound event queue the same way an aborted accept would.
func (p *stubPassiveEndpoint) Reject(param []byte) error {
	if seq, ok := p.eq.(*stubEQ); ok {
		seq.push(abi.EQCMEntry{}, cmEventShutdown)
	}
	return nil
}

// Event-kind values line up with the root package's EventKind iota order
// (EventConnRequest/EventConnected/EventShutdown/...) so decodeEvent's plain
// EventKind(kind) conversion needs no translation table.
const (
	cmEventConnreq   uint32 = 0
	cmEventConnected uint32 = 1
	cmEventShutdown  uint32 = 2
)

type stubCQ struct {
	mu         sync.Mutex
	cond       *sync.Cond
	entries    []abi.CQTaggedEntry
	errEntries []abi.CQErrEntry
	depth      int
}

func newStubCQ(depth int) *stubCQ {
	if depth <= 0 {
		depth = 1
	}
	c := &stubCQ{depth: depth}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *stubCQ) push(e abi.CQTaggedEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.depth {
		// Drop oldest rather than block the completer goroutine; a full CQ
		// in a real provider backs up the fabric instead, but a loopback
		// stub has nothing upstream to apply backpressure to.
		c.entries = c.entries[1:]
	}
	c.entries = append(c.entries, e)
	c.cond.Signal()
}

func (c *stubCQ) Close() error { return nil }

func (c *stubCQ) Read(out []abi.CQTaggedEntry) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A pending error entry blocks the normal read path until ReadErr
	// drains it, matching fi_cq_read returning -FI_EAVAIL while an error
	// entry is outstanding, ahead of whatever ordinary entries follow it.
	if len(c.errEntries) > 0 {
		return 0, ErrEntryAvailable
	}
	n := copy(out, c.entries)
	c.entries = c.entries[n:]
	if n == 0 {
		return 0, ErrQueueFull // reused as "try again", matching -FI_EAGAIN on an empty CQ
	}
	return n, nil
}

// pushErr enqueues a completion-error entry, the stub's analogue of a
// provider posting a CQE with FI_CQ_ERR_PENDING set. Until ReadErr drains
// it, Read reports -FI_EAVAIL for this CQ.
func (c *stubCQ) pushErr(e abi.CQErrEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errEntries = append(c.errEntries, e)
	c.cond.Signal()
}

func (c *stubCQ) ReadErr() (abi.CQErrEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errEntries) == 0 {
		return abi.CQErrEntry{}, fmt.Errorf("stub: no error entry pending")
	}
	e := c.errEntries[0]
	c.errEntries = c.errEntries[1:]
	return e, nil
}

func (c *stubCQ) Sread(out []abi.CQTaggedEntry, timeoutMs int) (int, error) {
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	c.mu.Lock()
	for len(c.entries) == 0 && len(c.errEntries) == 0 {
		if timeoutMs >= 0 && time.Now().After(deadline) {
			c.mu.Unlock()
			return 0, fmt.Errorf("stub: cq wait timed out")
		}
		c.mu.Unlock()
		time.Sleep(constants.EventQueuePollInterval)
		c.mu.Lock()
	}
	if len(c.errEntries) > 0 {
		c.mu.Unlock()
		return 0, ErrEntryAvailable
	}
	n := copy(out, c.entries)
	c.entries = c.entries[n:]
	c.mu.Unlock()
	return n, nil
}

func (c *stubCQ) Fd() (int, error) {
	return -1, fmt.Errorf("stub: wait-fd not available on loopback provider")
}

type stubEQEvent struct {
	event uint32
	entry abi.EQCMEntry
}

type stubEQ struct {
	mu     sync.Mutex
	events []stubEQEvent
	depth  int
}

func newStubEQ(depth int) *stubEQ {
	if depth <= 0 {
		depth = 1
	}
	return &stubEQ{depth: depth}
}

func (q *stubEQ) push(entry abi.EQCMEntry, event uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= q.depth {
		q.events = q.events[1:]
	}
	q.events = append(q.events, stubEQEvent{event: event, entry: entry})
}

func (q *stubEQ) Close() error { return nil }

func (q *stubEQ) Read() (uint32, abi.EQCMEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return 0, abi.EQCMEntry{}, ErrQueueFull
	}
	ev := q.events[0]
	q.events = q.events[1:]
	return ev.event, ev.entry, nil
}

func (q *stubEQ) ReadErr() (abi.EQErrEntry, error) {
	return abi.EQErrEntry{}, fmt.Errorf("stub: no error entry pending")
}

func (q *stubEQ) Sread(timeoutMs int) (uint32, abi.EQCMEntry, error) {
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		if event, entry, err := q.Read(); err == nil {
			return event, entry, nil
		}
		if timeoutMs >= 0 && time.Now().After(deadline) {
			return 0, abi.EQCMEntry{}, fmt.Errorf("stub: eq wait timed out")
		}
		time.Sleep(constants.EventQueuePollInterval)
	}
}

func (q *stubEQ) Fd() (int, error) {
	return -1, fmt.Errorf("stub: wait-fd not available on loopback provider")
}

type stubAV struct {
	mu        sync.Mutex
	addrs     [][]byte
	nextAddr  uint64
	capacity  int
}

func newStubAV(capacity int) *stubAV {
	return &stubAV{capacity: capacity}
}

func (a *stubAV) Close() error { return nil }

func (a *stubAV) Insert(addrs [][]byte) ([]uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]uint64, len(addrs))
	for i, addr := range addrs {
		fiAddr := a.nextAddr
		a.nextAddr++
		a.addrs = append(a.addrs, addr)
		out[i] = fiAddr
	}
	return out, nil
}

func (a *stubAV) Remove(fiAddrs []uint64) error { return nil }

func (a *stubAV) Lookup(fiAddr uint64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fiAddr >= uint64(len(a.addrs)) {
		return nil, fmt.Errorf("stub: unknown fi_addr %d", fiAddr)
	}
	return a.addrs[fiAddr], nil
}

type stubCounter struct {
	value atomic.Uint64
	errs  atomic.Uint64
	mu    sync.Mutex
	cond  *sync.Cond
}

func newStubCounter() *stubCounter {
	c := &stubCounter{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *stubCounter) Close() error { return nil }

func (c *stubCounter) Read() uint64 { return c.value.Load() }

func (c *stubCounter) ReadErr() uint64 { return c.errs.Load() }

func (c *stubCounter) Add(value uint64) error {
	c.value.Add(value)
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
	return nil
}

func (c *stubCounter) Set(value uint64) error {
	c.value.Store(value)
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
	return nil
}

func (c *stubCounter) Wait(threshold uint64, timeoutMs int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timeoutMs < 0 {
		for c.value.Load() < threshold {
			c.cond.Wait()
		}
		return nil
	}

	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for c.value.Load() < threshold {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("stub: counter wait timed out before reaching threshold %d", threshold)
		}
		timer := time.AfterFunc(remaining, func() {
			c.mu.Lock()
			c.cond.Broadcast()
			c.mu.Unlock()
		})
		c.cond.Wait()
		timer.Stop()
	}
	return nil
}

var _ Provider = (*StubProvider)(nil)
var _ Fabric = (*stubFabric)(nil)
var _ Domain = (*stubDomain)(nil)
var _ Endpoint = (*stubEndpoint)(nil)
var _ PassiveEndpoint = (*stubPassiveEndpoint)(nil)
var _ CompletionQueue = (*stubCQ)(nil)
var _ EventQueue = (*stubEQ)(nil)
var _ AddressVector = (*stubAV)(nil)
var _ Counter = (*stubCounter)(nil)
var _ MemoryRegion = (*stubMR)(nil)
