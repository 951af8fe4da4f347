package ofi

import (
	"sync"
	"unsafe"

	"github.com/ofi-go/ofi/internal/abi"
	"github.com/ofi-go/ofi/internal/provider"
)

// MockProvider wraps provider.StubProvider and counts GetInfo/OpenFabric
// calls, the entry-point analogue to MockEndpoint below.
type MockProvider struct {
	inner *provider.StubProvider

	mu             sync.RWMutex
	getInfoCalls   int
	openFabricCalls int
}

// NewMockProvider constructs a call-tracking loopback provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{inner: provider.NewStubProvider()}
}

func (m *MockProvider) Name() string                    { return m.inner.Name() }
func (m *MockProvider) Capabilities() provider.Capabilities { return m.inner.Capabilities() }

func (m *MockProvider) GetInfo(params provider.GetInfoParams) ([]*provider.Info, error) {
	m.mu.Lock()
	m.getInfoCalls++
	m.mu.Unlock()
	return m.inner.GetInfo(params)
}

func (m *MockProvider) OpenFabric(info *provider.Info) (provider.Fabric, error) {
	m.mu.Lock()
	m.openFabricCalls++
	m.mu.Unlock()
	return m.inner.OpenFabric(info)
}

// CallCounts returns the number of times each entry point was invoked.
func (m *MockProvider) CallCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int{
		"get_info":    m.getInfoCalls,
		"open_fabric": m.openFabricCalls,
	}
}

var _ provider.Provider = (*MockProvider)(nil)

// MockEndpoint wraps a real loopback endpoint (from provider.StubProvider)
// and adds call tracking and error injection, the way applications built on
// this binding can exercise their retry/error-handling paths deterministically
// without needing real hardware or a flaky network peer.
type MockEndpoint struct {
	inner provider.Endpoint

	mu         sync.RWMutex
	closed     bool
	sendCalls  int
	recvCalls  int
	readCalls  int
	writeCalls int
	atomicCalls int

	forceSendErr   error
	forceRecvErr   error
	forceReadErr   error
	forceWriteErr  error
	forceAtomicErr error
}

// NewMockEndpoint builds a mock endpoint backed by a fresh loopback domain,
// useful for unit testing application code that only needs an Endpoint.
func NewMockEndpoint() (*MockEndpoint, error) {
	p := provider.NewStubProvider()
	infos, err := p.GetInfo(provider.GetInfoParams{})
	if err != nil {
		return nil, err
	}
	fabric, err := p.OpenFabric(infos[0])
	if err != nil {
		return nil, err
	}
	domain, err := fabric.OpenDomain(infos[0])
	if err != nil {
		return nil, err
	}
	ep, err := domain.OpenEndpoint(infos[0])
	if err != nil {
		return nil, err
	}
	return &MockEndpoint{inner: ep}, nil
}

func (m *MockEndpoint) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.inner.Close()
}

func (m *MockEndpoint) Bind(cq provider.CompletionQueue, flags uint64) error {
	return m.inner.Bind(cq, flags)
}
func (m *MockEndpoint) BindEventQueue(eq provider.EventQueue) error { return m.inner.BindEventQueue(eq) }
func (m *MockEndpoint) BindAddressVector(av provider.AddressVector) error {
	return m.inner.BindAddressVector(av)
}
func (m *MockEndpoint) BindCounter(c provider.Counter, flags uint64) error {
	return m.inner.BindCounter(c, flags)
}
func (m *MockEndpoint) Enable() error                        { return m.inner.Enable() }
func (m *MockEndpoint) Connect(addr, param []byte) error      { return m.inner.Connect(addr, param) }
func (m *MockEndpoint) Accept(param []byte) error             { return m.inner.Accept(param) }
func (m *MockEndpoint) Shutdown() error                       { return m.inner.Shutdown() }
func (m *MockEndpoint) GetName() ([]byte, error)              { return m.inner.GetName() }
func (m *MockEndpoint) GetPeer() ([]byte, error)              { return m.inner.GetPeer() }

func (m *MockEndpoint) Send(buf []byte, desc unsafe.Pointer, destAddr uint64, ctx *abi.Context) error {
	m.mu.Lock()
	m.sendCalls++
	forced := m.forceSendErr
	m.mu.Unlock()
	if forced != nil {
		return forced
	}
	return m.inner.Send(buf, desc, destAddr, ctx)
}

func (m *MockEndpoint) SendMsg(msg *abi.MsgBasic, flags uint64) error {
	m.mu.Lock()
	m.sendCalls++
	m.mu.Unlock()
	return m.inner.SendMsg(msg, flags)
}

func (m *MockEndpoint) Recv(buf []byte, desc unsafe.Pointer, srcAddr uint64, ctx *abi.Context) error {
	m.mu.Lock()
	m.recvCalls++
	forced := m.forceRecvErr
	m.mu.Unlock()
	if forced != nil {
		return forced
	}
	return m.inner.Recv(buf, desc, srcAddr, ctx)
}

func (m *MockEndpoint) RecvMsg(msg *abi.MsgBasic, flags uint64) error {
	m.mu.Lock()
	m.recvCalls++
	m.mu.Unlock()
	return m.inner.RecvMsg(msg, flags)
}

func (m *MockEndpoint) TSend(buf []byte, desc unsafe.Pointer, destAddr, tag uint64, ctx *abi.Context) error {
	m.mu.Lock()
	m.sendCalls++
	m.mu.Unlock()
	return m.inner.TSend(buf, desc, destAddr, tag, ctx)
}

func (m *MockEndpoint) TRecv(buf []byte, desc unsafe.Pointer, srcAddr, tag, ignore uint64, ctx *abi.Context) error {
	m.mu.Lock()
	m.recvCalls++
	m.mu.Unlock()
	return m.inner.TRecv(buf, desc, srcAddr, tag, ignore, ctx)
}

func (m *MockEndpoint) Read(buf []byte, desc unsafe.Pointer, srcAddr uint64, rma abi.RmaIOV, ctx *abi.Context) error {
	m.mu.Lock()
	m.readCalls++
	forced := m.forceReadErr
	m.mu.Unlock()
	if forced != nil {
		return forced
	}
	return m.inner.Read(buf, desc, srcAddr, rma, ctx)
}

func (m *MockEndpoint) Write(buf []byte, desc unsafe.Pointer, destAddr uint64, rma abi.RmaIOV, ctx *abi.Context) error {
	m.mu.Lock()
	m.writeCalls++
	forced := m.forceWriteErr
	m.mu.Unlock()
	if forced != nil {
		return forced
	}
	return m.inner.Write(buf, desc, destAddr, rma, ctx)
}

func (m *MockEndpoint) Inject(buf []byte, destAddr uint64) error { return m.inner.Inject(buf, destAddr) }

func (m *MockEndpoint) Cancel(ctx *abi.Context) error { return m.inner.Cancel(ctx) }

func (m *MockEndpoint) Atomic(buf []byte, desc unsafe.Pointer, destAddr uint64, rma abi.RmaIOV, datatype, op uint32, ctx *abi.Context) error {
	m.mu.Lock()
	m.atomicCalls++
	forced := m.forceAtomicErr
	m.mu.Unlock()
	if forced != nil {
		return forced
	}
	return m.inner.Atomic(buf, desc, destAddr, rma, datatype, op, ctx)
}

func (m *MockEndpoint) CompareAtomic(buf, compare, result []byte, desc unsafe.Pointer, destAddr uint64, rma abi.RmaIOV, datatype, op uint32, ctx *abi.Context) error {
	m.mu.Lock()
	m.atomicCalls++
	m.mu.Unlock()
	return m.inner.CompareAtomic(buf, compare, result, desc, destAddr, rma, datatype, op, ctx)
}

func (m *MockEndpoint) FetchAtomic(buf, result []byte, desc unsafe.Pointer, destAddr uint64, rma abi.RmaIOV, datatype, op uint32, ctx *abi.Context) error {
	m.mu.Lock()
	m.atomicCalls++
	m.mu.Unlock()
	return m.inner.FetchAtomic(buf, result, desc, destAddr, rma, datatype, op, ctx)
}

func (m *MockEndpoint) QueueTriggered(deferredOp func() error, trigger provider.Counter, threshold uint64) error {
	return m.inner.QueueTriggered(deferredOp, trigger, threshold)
}

// Testing utility methods, mirroring the shape of a call-tracking mock used
// elsewhere in this codebase for backend testing.

// IsClosed reports whether Close has been called.
func (m *MockEndpoint) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// CallCounts returns the number of times each operation family was invoked.
func (m *MockEndpoint) CallCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int{
		"send":   m.sendCalls,
		"recv":   m.recvCalls,
		"read":   m.readCalls,
		"write":  m.writeCalls,
		"atomic": m.atomicCalls,
	}
}

// Reset clears all call counters and forced errors.
func (m *MockEndpoint) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendCalls, m.recvCalls, m.readCalls, m.writeCalls, m.atomicCalls = 0, 0, 0, 0, 0
	m.forceSendErr, m.forceRecvErr, m.forceReadErr, m.forceWriteErr, m.forceAtomicErr = nil, nil, nil, nil, nil
}

// ForceSendError makes subsequent Send calls fail with err until cleared.
func (m *MockEndpoint) ForceSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceSendErr = err
}

// ForceRecvError makes subsequent Recv calls fail with err until cleared.
func (m *MockEndpoint) ForceRecvError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceRecvErr = err
}

// ForceReadError makes subsequent Read (RMA) calls fail with err until cleared.
func (m *MockEndpoint) ForceReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceReadErr = err
}

// ForceWriteError makes subsequent Write (RMA) calls fail with err until cleared.
func (m *MockEndpoint) ForceWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceWriteErr = err
}

// ForceAtomicError makes subsequent Atomic calls fail with err until cleared.
func (m *MockEndpoint) ForceAtomicError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceAtomicErr = err
}

var _ provider.Endpoint = (*MockEndpoint)(nil)
