package ofi

import (
	"fmt"
	"unsafe"

	"github.com/ofi-go/ofi/internal/abi"
	"github.com/ofi-go/ofi/internal/constants"
	queue "github.com/ofi-go/ofi/internal/dispatch"
)

// Posting methods on Endpoint mirror the fi_send/fi_recv/fi_tsend/fi_read/
// fi_write/fi_atomic family directly: each takes a Context the completion
// path later hands back unchanged, and returns as soon as the operation is
// queued (not when it completes — poll or wait on the bound CompletionQueue
// for that).

// MaxIOVCount is the largest scatter/gather list Sendv/Recvv accept in a
// single call; one past this is rejected with ErrcInvalidArgument.
const MaxIOVCount = abi.MaxIOVCount

// Send posts a buffer to destAddr using desc as the local memory
// descriptor (nil if the provider does not require FI_MR_LOCAL for this
// transfer).
func (e *Endpoint) Send(buf []byte, desc LocalDescriptor, destAddr FabricAddr, ctx *Context) error {
	err := e.ep.Send(buf, unsafe.Pointer(desc), uint64(destAddr), ctx.abiPtr())
	e.domain.observeSend(uint64(len(buf)), err == nil)
	if err != nil {
		return WrapError("Endpoint.Send", err)
	}
	return nil
}

// Recv posts a receive buffer matching any send from srcAddr (or any
// source, for providers that allow FI_ADDR_UNSPEC).
func (e *Endpoint) Recv(buf []byte, desc LocalDescriptor, srcAddr FabricAddr, ctx *Context) error {
	err := e.ep.Recv(buf, unsafe.Pointer(desc), uint64(srcAddr), ctx.abiPtr())
	e.domain.observeRecv(uint64(len(buf)), err == nil)
	if err != nil {
		return WrapError("Endpoint.Recv", err)
	}
	return nil
}

// Sendv posts a scatter-gather send (fi_sendv): iovs are sent as a single
// logical message without the caller needing to flatten them into one
// contiguous buffer first. descs, if non-nil, must have one local memory
// descriptor per iov; pass nil when the provider does not require
// FI_MR_LOCAL for this transfer. len(iovs) must not exceed MaxIOVCount.
func (e *Endpoint) Sendv(iovs [][]byte, descs []LocalDescriptor, destAddr FabricAddr, ctx *Context) error {
	msg, total, err := buildMsg(iovs, descs, uint64(destAddr), ctx)
	if err != nil {
		return NewEndpointError("Endpoint.Sendv", 0, ErrcInvalidArgument, err.Error())
	}
	sendErr := e.ep.SendMsg(msg, 0)
	e.domain.observeSend(total, sendErr == nil)
	if sendErr != nil {
		return WrapError("Endpoint.Sendv", sendErr)
	}
	return nil
}

// Recvv posts a scatter-gather receive (fi_recvv): an incoming message is
// scattered across iovs in order. descs and the MaxIOVCount limit behave as
// in Sendv.
func (e *Endpoint) Recvv(iovs [][]byte, descs []LocalDescriptor, srcAddr FabricAddr, ctx *Context) error {
	msg, total, err := buildMsg(iovs, descs, uint64(srcAddr), ctx)
	if err != nil {
		return NewEndpointError("Endpoint.Recvv", 0, ErrcInvalidArgument, err.Error())
	}
	recvErr := e.ep.RecvMsg(msg, 0)
	e.domain.observeRecv(total, recvErr == nil)
	if recvErr != nil {
		return WrapError("Endpoint.Recvv", recvErr)
	}
	return nil
}

// buildMsg assembles an abi.MsgBasic out of a caller-supplied scatter/gather
// list, rejecting lists longer than MaxIOVCount before anything is handed to
// the provider.
func buildMsg(iovs [][]byte, descs []LocalDescriptor, addr uint64, ctx *Context) (*abi.MsgBasic, uint64, error) {
	if len(iovs) > MaxIOVCount {
		return nil, 0, fmt.Errorf("iov count %d exceeds max_iov_count of %d", len(iovs), MaxIOVCount)
	}
	if descs != nil && len(descs) != len(iovs) {
		return nil, 0, fmt.Errorf("desc count %d does not match iov count %d", len(descs), len(iovs))
	}

	iov := make([]abi.IOVec, len(iovs))
	var descPtrs []unsafe.Pointer
	if descs != nil {
		descPtrs = make([]unsafe.Pointer, len(descs))
	}
	var total uint64
	for i, b := range iovs {
		var base unsafe.Pointer
		if len(b) > 0 {
			base = unsafe.Pointer(&b[0])
		}
		iov[i] = abi.IOVec{Base: base, Len: uintptr(len(b))}
		total += uint64(len(b))
		if descs != nil {
			descPtrs[i] = unsafe.Pointer(descs[i])
		}
	}
	return &abi.MsgBasic{Iov: iov, Desc: descPtrs, Addr: addr, Context: ctx.abiPtr()}, total, nil
}

// TaggedSend posts a tagged send; the corresponding TaggedRecv matches on
// tag subject to its own ignore mask.
func (e *Endpoint) TaggedSend(buf []byte, desc LocalDescriptor, destAddr FabricAddr, tag Tag, ctx *Context) error {
	err := e.ep.TSend(buf, unsafe.Pointer(desc), uint64(destAddr), uint64(tag), ctx.abiPtr())
	e.domain.observeSend(uint64(len(buf)), err == nil)
	if err != nil {
		return WrapError("Endpoint.TaggedSend", err)
	}
	return nil
}

// TaggedRecv posts a tagged receive matching any incoming tag t such that
// (t &^ ignore) == (tag &^ ignore).
func (e *Endpoint) TaggedRecv(buf []byte, desc LocalDescriptor, srcAddr FabricAddr, tag Tag, ignore TagIgnoreMask, ctx *Context) error {
	err := e.ep.TRecv(buf, unsafe.Pointer(desc), uint64(srcAddr), uint64(tag), uint64(ignore), ctx.abiPtr())
	e.domain.observeRecv(uint64(len(buf)), err == nil)
	if err != nil {
		return WrapError("Endpoint.TaggedRecv", err)
	}
	return nil
}

// Read performs an RMA read: buf is filled from the peer memory named by
// target.
func (e *Endpoint) Read(buf []byte, desc LocalDescriptor, srcAddr FabricAddr, target RemoteMemoryDescriptor, ctx *Context) error {
	rma := remoteToRmaIOV(target)
	err := e.ep.Read(buf, unsafe.Pointer(desc), uint64(srcAddr), rma, ctx.abiPtr())
	e.domain.observeRMARead(uint64(len(buf)), err == nil)
	if err != nil {
		return WrapError("Endpoint.Read", err)
	}
	return nil
}

// Write performs an RMA write: buf is written into the peer memory named
// by target.
func (e *Endpoint) Write(buf []byte, desc LocalDescriptor, destAddr FabricAddr, target RemoteMemoryDescriptor, ctx *Context) error {
	rma := remoteToRmaIOV(target)
	err := e.ep.Write(buf, unsafe.Pointer(desc), uint64(destAddr), rma, ctx.abiPtr())
	e.domain.observeRMAWrite(uint64(len(buf)), err == nil)
	if err != nil {
		return WrapError("Endpoint.Write", err)
	}
	return nil
}

// Inject posts buf for immediate, uncompleted (no CQE) transmission. buf
// must not exceed the provider's MaxInjectSize (see ProviderTraits).
func (e *Endpoint) Inject(buf []byte, destAddr FabricAddr) error {
	err := e.ep.Inject(buf, uint64(destAddr))
	e.domain.observeSend(uint64(len(buf)), err == nil)
	if err != nil {
		return WrapError("Endpoint.Inject", err)
	}
	return nil
}

// InjectWrite performs fi_inject_write: an RMA write into the peer memory
// named by target with inject semantics: buf may be reused by the caller
// as soon as this call returns, because the provider is given its own copy
// rather than a reference to buf. Go has no libfabric-side buffering
// guarantee to lean on the way the C binding does, so InjectWrite makes
// that copy itself into a pooled staging buffer (see internal/dispatch's
// staging tier) and posts it through the provider's ordinary RMA write
// with a nil context. Unlike Inject, that write can still generate a
// completion: a provider that reports RMA write completions (the loopback
// stub does) puts an entry with a nil context on the bound queue.
func (e *Endpoint) InjectWrite(buf []byte, destAddr FabricAddr, target RemoteMemoryDescriptor) error {
	if len(buf) > constants.StagingBufferSize {
		return NewEndpointError("Endpoint.InjectWrite", 0, ErrcInvalidArgument,
			fmt.Sprintf("payload of %d bytes exceeds inject staging limit of %d", len(buf), constants.StagingBufferSize))
	}
	staging := queue.GetBuffer(uint32(len(buf)))
	defer queue.PutBuffer(staging)
	copy(staging, buf)

	rma := remoteToRmaIOV(target)
	err := e.ep.Write(staging, nil, uint64(destAddr), rma, nil)
	e.domain.observeRMAWrite(uint64(len(buf)), err == nil)
	if err != nil {
		return WrapError("Endpoint.InjectWrite", err)
	}
	return nil
}

func remoteToRmaIOV(r RemoteMemoryDescriptor) abi.RmaIOV {
	return abi.RmaIOV{Addr: r.Addr, Len: r.Len, Key: uint64(r.Key)}
}
