package provider

import (
	"testing"
	"unsafe"

	"github.com/ofi-go/ofi/internal/abi"
)

func TestStubProviderGetInfoAndOpenFabric(t *testing.T) {
	p := NewStubProvider()

	infos, err := p.GetInfo(GetInfoParams{})
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 info, got %d", len(infos))
	}

	fabric, err := p.OpenFabric(infos[0])
	if err != nil {
		t.Fatalf("OpenFabric failed: %v", err)
	}
	defer fabric.Close()

	if fabric.Name() == "" {
		t.Error("expected non-empty fabric name")
	}
}

func openStubDomain(t *testing.T) Domain {
	t.Helper()
	p := NewStubProvider()
	infos, err := p.GetInfo(GetInfoParams{})
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	fabric, err := p.OpenFabric(infos[0])
	if err != nil {
		t.Fatalf("OpenFabric failed: %v", err)
	}
	domain, err := fabric.OpenDomain(infos[0])
	if err != nil {
		t.Fatalf("OpenDomain failed: %v", err)
	}
	return domain
}

func TestStubSendRecvCompletes(t *testing.T) {
	domain := openStubDomain(t)
	ep, err := domain.OpenEndpoint(&Info{})
	if err != nil {
		t.Fatalf("OpenEndpoint failed: %v", err)
	}
	cq, err := domain.OpenCompletionQueue(16, 0)
	if err != nil {
		t.Fatalf("OpenCompletionQueue failed: %v", err)
	}
	if err := ep.Bind(cq, 0); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	recvBuf := make([]byte, 16)
	recvCtx := &abi.Context{}
	if err := ep.Recv(recvBuf, nil, 0, recvCtx); err != nil {
		t.Fatalf("Recv failed: %v", err)
	}

	sendBuf := []byte("hello fabric!!!!")
	sendCtx := &abi.Context{}
	if err := ep.Send(sendBuf, nil, 0, sendCtx); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	out := make([]abi.CQTaggedEntry, 4)
	n, err := cq.Read(out)
	if err != nil {
		t.Fatalf("cq Read failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 completions (recv+send), got %d", n)
	}

	if string(recvBuf) != string(sendBuf) {
		t.Errorf("expected recv buffer to receive sent data, got %q", recvBuf)
	}
}

func TestStubRMAWriteRead(t *testing.T) {
	domain := openStubDomain(t)
	ep, err := domain.OpenEndpoint(&Info{})
	if err != nil {
		t.Fatalf("OpenEndpoint failed: %v", err)
	}
	cq, err := domain.OpenCompletionQueue(16, 0)
	if err != nil {
		t.Fatalf("OpenCompletionQueue failed: %v", err)
	}
	_ = ep.Bind(cq, 0)

	target := make([]byte, 64)
	mr, err := domain.RegisterMemory(target, 0, 0)
	if err != nil {
		t.Fatalf("RegisterMemory failed: %v", err)
	}
	defer mr.Close()

	rma := abi.RmaIOV{Addr: 0, Len: 8, Key: mr.Key()}
	payload := []byte("deadbeef")
	if err := ep.Write(payload, nil, 0, rma, &abi.Context{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if string(target[:8]) != "deadbeef" {
		t.Errorf("expected target to contain written payload, got %q", target[:8])
	}

	readBack := make([]byte, 8)
	if err := ep.Read(readBack, nil, 0, rma, &abi.Context{}); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(readBack) != "deadbeef" {
		t.Errorf("expected read-back payload, got %q", readBack)
	}

	out := make([]abi.CQTaggedEntry, 4)
	n, _ := cq.Read(out)
	if n != 2 {
		t.Errorf("expected 2 completions (write+read), got %d", n)
	}
}

func TestStubAtomicFetchAndAdd(t *testing.T) {
	domain := openStubDomain(t)
	ep, _ := domain.OpenEndpoint(&Info{})
	cq, _ := domain.OpenCompletionQueue(16, 0)
	_ = ep.Bind(cq, 0)

	buf := make([]byte, 8)
	buf[0] = 10
	mr, err := domain.RegisterMemory(buf, 0, 0)
	if err != nil {
		t.Fatalf("RegisterMemory failed: %v", err)
	}

	rma := abi.RmaIOV{Addr: 0, Len: 8, Key: mr.Key()}
	delta := make([]byte, 8)
	delta[0] = 5
	result := make([]byte, 8)

	if err := ep.FetchAtomic(delta, result, nil, 0, rma, abi.FI_UINT64, abi.FI_SUM, &abi.Context{}); err != nil {
		t.Fatalf("FetchAtomic failed: %v", err)
	}

	if result[0] != 10 {
		t.Errorf("expected fetched old value 10, got %d", result[0])
	}
	if buf[0] != 15 {
		t.Errorf("expected buffer updated to 15 after sum, got %d", buf[0])
	}
}

func TestStubCounterWaitThreshold(t *testing.T) {
	domain := openStubDomain(t)
	counter, err := domain.OpenCounter()
	if err != nil {
		t.Fatalf("OpenCounter failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- counter.Wait(3, 1000)
	}()

	counter.Add(1)
	counter.Add(1)
	counter.Add(1)

	if err := <-done; err != nil {
		t.Errorf("expected Wait to succeed once threshold reached, got %v", err)
	}
}

func TestStubCounterWaitTimesOut(t *testing.T) {
	domain := openStubDomain(t)
	counter, _ := domain.OpenCounter()

	if err := counter.Wait(1, 20); err == nil {
		t.Error("expected Wait to time out when threshold never reached")
	}
}

func TestStubAddressVectorInsertLookup(t *testing.T) {
	domain := openStubDomain(t)
	av, err := domain.OpenAddressVector(16)
	if err != nil {
		t.Fatalf("OpenAddressVector failed: %v", err)
	}

	addrs := [][]byte{[]byte("peer-a"), []byte("peer-b")}
	fiAddrs, err := av.Insert(addrs)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if len(fiAddrs) != 2 {
		t.Fatalf("expected 2 fi_addr_t, got %d", len(fiAddrs))
	}

	resolved, err := av.Lookup(fiAddrs[0])
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if string(resolved) != "peer-a" {
		t.Errorf("expected peer-a, got %q", resolved)
	}
}

func TestStubMemoryRegionDescAndKey(t *testing.T) {
	domain := openStubDomain(t)
	buf := make([]byte, 4096)
	mr, err := domain.RegisterMemory(buf, 0, 42)
	if err != nil {
		t.Fatalf("RegisterMemory failed: %v", err)
	}
	if mr.Key() != 42 {
		t.Errorf("expected requested key 42, got %d", mr.Key())
	}
	if mr.Desc() == unsafe.Pointer(nil) {
		t.Error("expected non-nil descriptor")
	}
}

func TestStubCompletionQueueEmptyReadIsAgain(t *testing.T) {
	domain := openStubDomain(t)
	cq, _ := domain.OpenCompletionQueue(4, 0)

	out := make([]abi.CQTaggedEntry, 4)
	n, err := cq.Read(out)
	if n != 0 || err == nil {
		t.Error("expected empty read to report 0 entries with a retry-style error")
	}
}

func TestStubCompletionQueueErrorEntryBlocksNormalRead(t *testing.T) {
	domain := openStubDomain(t)
	cq, _ := domain.OpenCompletionQueue(4, 0)
	sq := cq.(*stubCQ)

	sq.push(abi.CQTaggedEntry{Len: 64}) // a normal completion queued first
	sq.pushErr(abi.CQErrEntry{Err: 99}) // then an error

	out := make([]abi.CQTaggedEntry, 4)
	if _, err := sq.Read(out); err != ErrEntryAvailable {
		t.Fatalf("expected ErrEntryAvailable while an error entry is pending, got %v", err)
	}

	errEntry, err := sq.ReadErr()
	if err != nil {
		t.Fatalf("ReadErr failed: %v", err)
	}
	if errEntry.Err != 99 {
		t.Errorf("expected Err=99, got %d", errEntry.Err)
	}

	// With the error drained, the normal entry queued earlier is still
	// there to read.
	n, err := sq.Read(out)
	if err != nil || n != 1 {
		t.Fatalf("expected the queued normal entry after draining the error, got n=%d err=%v", n, err)
	}
}
