// Package abi provides the libfabric (OFI) wire/ABI definitions this binding
// translates to and from: capability and mode bitmasks, endpoint/address
// formats, progress and threading models, and the fixed-layout structures
// that cross the cgo boundary into libfabric's C API.
package abi

// FabricVersion is the (major, minor) version passed to fi_getinfo. Pinning
// this avoids silently picking up ABI changes from a newer libfabric.
const (
	FabricVersionMajor = 1
	FabricVersionMinor = 21
)

// Capability bits (struct fi_info.caps / fi_tx_attr.caps / fi_rx_attr.caps).
const (
	FI_MSG    uint64 = 1 << 1
	FI_RMA    uint64 = 1 << 2
	FI_TAGGED uint64 = 1 << 3
	FI_ATOMIC uint64 = 1 << 4

	FI_READ         uint64 = 1 << 5
	FI_WRITE        uint64 = 1 << 6
	FI_REMOTE_READ  uint64 = 1 << 12
	FI_REMOTE_WRITE uint64 = 1 << 13

	FI_SEND       uint64 = 1 << 7
	FI_RECV       uint64 = 1 << 8
	FI_MULTI_RECV uint64 = 1 << 18

	FI_REMOTE_COMM uint64 = 1 << 22
	FI_FENCE       uint64 = 1 << 27
	FI_LOCAL_COMM  uint64 = 1 << 23
	FI_MSG_PREFIX  uint64 = 1 << 28
	FI_HMEM        uint64 = 1 << 29
)

// Op/mode flags (struct fi_info.mode, and per-call flags arguments).
const (
	FI_CONTEXT    uint64 = 1 << 3
	FI_LOCAL_MR   uint64 = 1 << 1
	FI_RX_CQ_DATA uint64 = 1 << 5
)

// Endpoint types (struct fi_info.ep_attr.type).
const (
	FI_EP_MSG   uint32 = 1
	FI_EP_RDM   uint32 = 3
	FI_EP_DGRAM uint32 = 4
)

// Address formats (struct fi_info.addr_format).
const (
	FI_SOCKADDR_IN  uint32 = 3
	FI_SOCKADDR_IN6 uint32 = 4
	FI_SOCKADDR_IB  uint32 = 6
	FI_ADDR_EFA     uint32 = 17
)

// Progress models (struct fi_domain_attr.control_progress / data_progress).
const (
	FI_PROGRESS_AUTO   uint32 = 1
	FI_PROGRESS_MANUAL uint32 = 2
)

// Threading models (struct fi_domain_attr.threading).
const (
	FI_THREAD_SAFE       uint32 = 1
	FI_THREAD_FID        uint32 = 2
	FI_THREAD_DOMAIN     uint32 = 3
	FI_THREAD_COMPLETION uint32 = 4
)

// Ordering flags (struct fi_tx_attr.msg_order / fi_domain_attr.*_order).
const (
	FI_ORDER_STRICT uint64 = 1 << 0
	FI_ORDER_DATA   uint64 = 1 << 15
	FI_ORDER_RAW    uint64 = 1 << 9
	FI_ORDER_WAR    uint64 = 1 << 11
	FI_ORDER_WAW    uint64 = 1 << 13
)

// CQ bind flags (fi_ep_bind's flags argument when binding a CQ).
const (
	FI_TRANSMIT             uint64 = 1 << 0
	FI_RECV_BIND            uint64 = 1 << 1 // FI_RECV for bind purposes; distinct const to avoid colliding with the FI_RECV capability bit
	FI_SELECTIVE_COMPLETION uint64 = 1 << 24
)

// Per-operation flags (passed to fi_sendmsg/fi_writemsg/etc. via fi_msg*.flags).
const (
	FI_COMPLETION        uint64 = 1 << 24
	FI_INJECT            uint64 = 1 << 26
	FI_OP_FENCE          uint64 = 1 << 27
	FI_TRANSMIT_COMPLETE uint64 = 1 << 32
	FI_DELIVERY_COMPLETE uint64 = 1 << 33
)

// Memory-region mode bits (struct fi_domain_attr.mr_mode).
const (
	FI_MR_SCALABLE   uint32 = 1 << 0
	FI_MR_LOCAL      uint32 = 1 << 1
	FI_MR_VIRT_ADDR  uint32 = 1 << 2
	FI_MR_ALLOCATED  uint32 = 1 << 3
	FI_MR_PROV_KEY   uint32 = 1 << 4
	FI_MR_RAW        uint32 = 1 << 8
	FI_MR_HMEM       uint32 = 1 << 9
	FI_MR_ENDPOINT   uint32 = 1 << 10
	FI_MR_COLLECTIVE uint32 = 1 << 11
)

// Atomic datatypes (enum fi_datatype).
const (
	FI_INT8 uint32 = iota
	FI_UINT8
	FI_INT16
	FI_UINT16
	FI_INT32
	FI_UINT32
	FI_INT64
	FI_UINT64
	FI_FLOAT
	FI_DOUBLE
	FI_FLOAT_COMPLEX
	FI_DOUBLE_COMPLEX
	FI_LONG_DOUBLE
	FI_LONG_DOUBLE_COMPLEX
)

// Atomic operations (enum fi_op).
const (
	FI_MIN uint32 = iota
	FI_MAX
	FI_SUM
	FI_PROD
	FI_LOR
	FI_LAND
	FI_BOR
	FI_BAND
	FI_LXOR
	FI_BXOR
	FI_ATOMIC_READ
	FI_ATOMIC_WRITE
	FI_CSWAP
	FI_CSWAP_NE
	FI_CSWAP_LE
	FI_CSWAP_LT
	FI_CSWAP_GE
	FI_CSWAP_GT
	FI_MSWAP
)

// Trigger flags (struct fi_triggered_context).
const (
	FI_TRIGGER_THRESHOLD uint32 = 1
	FI_TRIGGER_XPU       uint32 = 2
)

// Deferred-work op kinds (fi_deferred_work.op_type).
const (
	FI_OP_SEND uint32 = iota
	FI_OP_RECV
	FI_OP_TSEND
	FI_OP_TRECV
	FI_OP_READ
	FI_OP_WRITE
	FI_OP_ATOMIC
	FI_OP_FETCH_ATOMIC
	FI_OP_COMPARE_ATOMIC
	FI_OP_CNTR_SET
	FI_OP_CNTR_ADD
)

// Domain control opcodes (the argument to fi_control on a struct fid_domain),
// used by the triggered-work path.
const (
	FI_QUEUE_WORK  = 1
	FI_CANCEL_WORK = 2
	FI_FLUSH_WORK  = 3
)

// Fixed structure sizes that matter for wire-compatibility across the cgo
// boundary; these mirror the teacher's "compile-time size check" idiom
// (a zero-length array cast) rather than an unsafe.Sizeof assertion helper.
const (
	SizeofContext       = 64 // struct fi_context2, padded to a cacheline
	SizeofCQTaggedEntry = 48
	SizeofCQErrEntry    = 64
	SizeofEQCMEntry     = 32

	// MaxIOVCount is the largest scatter/gather list this binding accepts in
	// a single sendv/recvv call; one past this is rejected with
	// invalid_argument at submission time (spec boundary test).
	MaxIOVCount = 16
)
