package ofi

import (
	"encoding/binary"
	"unsafe"

	queue "github.com/ofi-go/ofi/internal/dispatch"
	"github.com/ofi-go/ofi/internal/provider"
)

// Atomic dispatch has two execution strategies depending on the resolved
// provider's ProviderTraits: a native path that posts straight through to
// the provider's fi_atomic/fi_fetch_atomic/fi_compareatomic (Verbs, CXI,
// SHM, UCX in this binding's trait table), and a staged path that emulates
// the same operation with an RMA read, a local read-modify-write, and an RMA
// write (EFA, TCP) for providers that cannot hardware-accelerate
// atomics. The staged path is not atomic across concurrent writers to the
// same remote location — exactly the caveat libfabric documents for
// software-emulated atomics — so callers that need true atomicity should
// prefer a provider whose traits report IsNativeAtomicProvider.

// datatypeOf returns the Datatype tag matching the width of a Go numeric
// type, used so callers don't have to hand-pick a Datatype constant for
// the common cases. T is restricted to the widths this package's staged
// compute path actually implements (32- and 64-bit integers and floats).
func datatypeOf[T ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64]() Datatype {
	var zero T
	switch any(zero).(type) {
	case int32:
		return DatatypeInt32
	case uint32:
		return DatatypeUint32
	case int64:
		return DatatypeInt64
	case uint64:
		return DatatypeUint64
	case float32:
		return DatatypeFloat32
	case float64:
		return DatatypeFloat64
	default:
		return DatatypeUint64
	}
}

func datatypeWidth(dt Datatype) int {
	switch dt {
	case DatatypeInt8, DatatypeUint8:
		return 1
	case DatatypeInt16, DatatypeUint16:
		return 2
	case DatatypeInt32, DatatypeUint32, DatatypeFloat32:
		return 4
	case DatatypeInt64, DatatypeUint64, DatatypeFloat64:
		return 8
	default:
		return 8
	}
}

// IsValidAtomicOp reports whether op is a defined, non-fetching atomic
// operation for dt (fi_query_atomic's validity check, simplified to the
// set this binding implements).
func IsValidAtomicOp(dt Datatype, op AtomicOp) bool {
	switch op {
	case OpMin, OpMax, OpSum, OpProd, OpBor, OpBand, OpBxor, OpLor, OpLand, OpLxor, OpAtomicWrite:
		return true
	default:
		return false
	}
}

// IsValidFetchOp reports whether op is valid as a FetchAtomic operation
// (every plain op, plus FI_ATOMIC_READ).
func IsValidFetchOp(dt Datatype, op AtomicOp) bool {
	if op == OpAtomicRead {
		return true
	}
	return IsValidAtomicOp(dt, op)
}

// IsValidCompareOp reports whether op is valid as a CompareAtomic
// (compare-and-swap family) operation.
func IsValidCompareOp(dt Datatype, op AtomicOp) bool {
	return op == OpCswap
}

// Atomic applies op to the remote memory named by target, without
// returning the prior value. buf holds the operand.
func (e *Endpoint) Atomic(buf []byte, desc LocalDescriptor, destAddr FabricAddr, target RemoteMemoryDescriptor, dt Datatype, op AtomicOp, ctx *Context) error {
	if !IsValidAtomicOp(dt, op) {
		return NewError("Endpoint.Atomic", ErrcInvalidArgument, "invalid atomic op/datatype combination")
	}
	traits := e.domain.traits
	var err error
	if traits.IsNativeAtomicProvider() {
		rma := remoteToRmaIOV(target)
		err = e.ep.Atomic(buf, unsafe.Pointer(desc), uint64(destAddr), rma, uint32(dt), uint32(op), ctx.abiPtr())
	} else {
		_, err = e.stagedRMW(buf, destAddr, target, dt, op, ctx)
	}
	e.domain.observeAtomic(err == nil)
	if err != nil {
		return WrapError("Endpoint.Atomic", err)
	}
	return nil
}

// FetchAtomic applies op to the remote memory named by target and copies
// the pre-operation value into result.
func (e *Endpoint) FetchAtomic(buf, result []byte, desc LocalDescriptor, destAddr FabricAddr, target RemoteMemoryDescriptor, dt Datatype, op AtomicOp, ctx *Context) error {
	if !IsValidFetchOp(dt, op) {
		return NewError("Endpoint.FetchAtomic", ErrcInvalidArgument, "invalid fetch-atomic op/datatype combination")
	}
	traits := e.domain.traits
	var err error
	if traits.IsNativeAtomicProvider() {
		rma := remoteToRmaIOV(target)
		err = e.ep.FetchAtomic(buf, result, unsafe.Pointer(desc), uint64(destAddr), rma, uint32(dt), uint32(op), ctx.abiPtr())
	} else {
		var prior []byte
		prior, err = e.stagedRMW(buf, destAddr, target, dt, op, ctx)
		if err == nil {
			copy(result, prior)
		}
	}
	e.domain.observeAtomic(err == nil)
	if err != nil {
		return WrapError("Endpoint.FetchAtomic", err)
	}
	return nil
}

// CompareAtomic performs a compare-and-swap: the remote value is replaced
// with buf only if it currently equals compare, and the pre-operation
// value (whether or not the swap took place) is copied into result.
func (e *Endpoint) CompareAtomic(buf, compare, result []byte, desc LocalDescriptor, destAddr FabricAddr, target RemoteMemoryDescriptor, dt Datatype, ctx *Context) error {
	traits := e.domain.traits
	var err error
	if traits.IsNativeAtomicProvider() {
		rma := remoteToRmaIOV(target)
		err = e.ep.CompareAtomic(buf, compare, result, unsafe.Pointer(desc), uint64(destAddr), rma, uint32(dt), uint32(OpCswap), ctx.abiPtr())
	} else {
		err = e.stagedCompareSwap(buf, compare, result, destAddr, target, dt, ctx)
	}
	e.domain.observeAtomic(err == nil)
	if err != nil {
		return WrapError("Endpoint.CompareAtomic", err)
	}
	return nil
}

// stagedRMW emulates a non-fetching/fetching atomic as an RMA read, a
// local read-modify-write, and an RMA write. It returns the pre-operation
// value read from the remote region. The caller's ctx is attached to the
// write-back, so its completion arrives once the updated value is written.
func (e *Endpoint) stagedRMW(operand []byte, destAddr FabricAddr, target RemoteMemoryDescriptor, dt Datatype, op AtomicOp, ctx *Context) ([]byte, error) {
	width := datatypeWidth(dt)
	staging := queue.GetBuffer(uint32(width))
	defer queue.PutBuffer(staging)
	readCtx := NewContext()
	if err := e.Read(staging, nil, destAddr, target, readCtx); err != nil {
		return nil, err
	}
	prior := append([]byte(nil), staging...)
	updated := computeStagedOp(dt, op, staging, operand)
	// The read-modify-write is only as good as the ordering between the
	// local compute and the write-back becoming visible; fence between them
	// the same way a native atomic's hardware would around its own RMW.
	provider.Mfence()
	if err := e.Write(updated, nil, destAddr, target, ctx); err != nil {
		return nil, err
	}
	return prior, nil
}

// stagedCompareSwap emulates a compare-and-swap the same way stagedRMW
// emulates a plain atomic: read, compare locally, conditionally write
// back. Like all staged atomics, this has a window where a concurrent
// remote writer can race the read/write pair.
func (e *Endpoint) stagedCompareSwap(operand, compare, result []byte, destAddr FabricAddr, target RemoteMemoryDescriptor, dt Datatype, ctx *Context) error {
	width := datatypeWidth(dt)
	staging := queue.GetBuffer(uint32(width))
	defer queue.PutBuffer(staging)
	if err := e.Read(staging, nil, destAddr, target, NewContext()); err != nil {
		return err
	}
	copy(result, staging)
	if bytesEqual(staging, compare) {
		provider.Mfence()
		if err := e.Write(operand, nil, destAddr, target, NewContext()); err != nil {
			return err
		}
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// computeStagedOp applies op to (cur, operand) and returns the new value:
// the local compute step of the client-driven emulation. 1- and 2-byte
// datatypes are widened to a uint64 lane
// and truncated back down rather than given their own bespoke paths.
func computeStagedOp(dt Datatype, op AtomicOp, cur, operand []byte) []byte {
	width := datatypeWidth(dt)
	switch width {
	case 4:
		c := binary.LittleEndian.Uint32(cur)
		s := binary.LittleEndian.Uint32(operand)
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, compute32(op, c, s))
		return out
	case 8:
		c := binary.LittleEndian.Uint64(cur)
		s := binary.LittleEndian.Uint64(operand)
		out := make([]byte, 8)
		binary.LittleEndian.PutUint64(out, compute64(op, c, s))
		return out
	default:
		var c, s uint64
		for i := 0; i < width && i < len(cur); i++ {
			c |= uint64(cur[i]) << (8 * i)
		}
		for i := 0; i < width && i < len(operand); i++ {
			s |= uint64(operand[i]) << (8 * i)
		}
		r := compute64(op, c, s)
		out := make([]byte, width)
		for i := 0; i < width; i++ {
			out[i] = byte(r >> (8 * i))
		}
		return out
	}
}

func compute64(op AtomicOp, d, s uint64) uint64 {
	switch op {
	case OpSum:
		return d + s
	case OpProd:
		return d * s
	case OpMin:
		if s < d {
			return s
		}
		return d
	case OpMax:
		if s > d {
			return s
		}
		return d
	case OpBand:
		return d & s
	case OpBor:
		return d | s
	case OpBxor:
		return d ^ s
	case OpLand:
		return boolToUint64(d != 0 && s != 0)
	case OpLor:
		return boolToUint64(d != 0 || s != 0)
	case OpLxor:
		return boolToUint64((d != 0) != (s != 0))
	case OpAtomicWrite:
		return s
	case OpAtomicRead:
		return d
	default:
		return d
	}
}

func compute32(op AtomicOp, d, s uint32) uint32 {
	return uint32(compute64(op, uint64(d), uint64(s)))
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
