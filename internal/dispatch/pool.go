package queue

import (
	"sync"

	"github.com/ofi-go/ofi/internal/constants"
)

// BufferPool provides pooled byte slices for the small, short-lived
// buffers the staged-atomics path allocates on every submission (see
// atomics.go's stagedRMW/stagedCompareSwap): the staging read of the
// remote value. Bucket sizes are sized for the datatype widths
// atomics.go actually computes with (1/2/4/8 bytes) rather than bulk I/O,
// unlike the size classes a block-transfer buffer pool would use. The
// staging tier is the exception: it is sized for InjectWrite's bounce
// copy of an RMA payload (see submission.go), not an atomic width.
//
// Uses *[]byte pattern to avoid sync.Pool interface allocation overhead.

const (
	size8   = 8
	size16  = 16
	size32  = 32
	size64  = 64
	sizeBig = constants.StagingBufferSize
)

// globalPool is the shared buffer pool for atomic staging buffers.
var globalPool = struct {
	pool8   sync.Pool
	pool16  sync.Pool
	pool32  sync.Pool
	pool64  sync.Pool
	poolBig sync.Pool
}{
	pool8:   sync.Pool{New: func() any { b := make([]byte, size8); return &b }},
	pool16:  sync.Pool{New: func() any { b := make([]byte, size16); return &b }},
	pool32:  sync.Pool{New: func() any { b := make([]byte, size32); return &b }},
	pool64:  sync.Pool{New: func() any { b := make([]byte, size64); return &b }},
	poolBig: sync.Pool{New: func() any { b := make([]byte, sizeBig); return &b }},
}

// GetBuffer returns a pooled buffer of at least the requested size. Sizes
// above the staging tier are allocated fresh rather than pooled, since
// nothing in this module currently bounces payloads that large.
// Caller must call PutBuffer when done.
func GetBuffer(size uint32) []byte {
	switch {
	case size <= size8:
		return (*globalPool.pool8.Get().(*[]byte))[:size]
	case size <= size16:
		return (*globalPool.pool16.Get().(*[]byte))[:size]
	case size <= size32:
		return (*globalPool.pool32.Get().(*[]byte))[:size]
	case size <= size64:
		return (*globalPool.pool64.Get().(*[]byte))[:size]
	case size <= sizeBig:
		return (*globalPool.poolBig.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

// PutBuffer returns a buffer to the pool. The buffer's capacity determines
// which pool it goes to; buffers with a non-standard capacity are simply
// dropped rather than pooled.
func PutBuffer(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case size8:
		globalPool.pool8.Put(&buf)
	case size16:
		globalPool.pool16.Put(&buf)
	case size32:
		globalPool.pool32.Put(&buf)
	case size64:
		globalPool.pool64.Put(&buf)
	case sizeBig:
		globalPool.poolBig.Put(&buf)
	}
}
