package abi

import "unsafe"

// Context is the fabric's opaque per-operation scratch area. It must sit at
// offset 0 of any submission-context struct the binding embeds it in — the
// completion path recovers the owning context by a reverse offset cast from
// the pointer the fabric hands back unchanged in a CQE's context field (see
// the back-pointer design note). Its layout is otherwise opaque to us; the
// provider writes and reads it, we only carry it.
type Context struct {
	opaque [SizeofContext]byte
}

// Compile-time size check, teacher-style: a mis-sized Context would silently
// corrupt whatever the provider writes past byte 64.
var _ [SizeofContext]byte = [unsafe.Sizeof(Context{})]byte{}

// CQTaggedEntry mirrors struct fi_cq_tagged_entry, the richest of the CQ
// entry formats (a superset of fi_cq_entry/fi_cq_msg_entry/fi_cq_data_entry).
// The provider always fills this variant; callers narrow it as needed.
type CQTaggedEntry struct {
	OpContext unsafe.Pointer // user context pointer from the submission
	Flags     uint64
	Len       uint64
	Buf       unsafe.Pointer
	Data      uint64 // immediate data
	Tag       uint64
}

var _ [SizeofCQTaggedEntry]byte = [unsafe.Sizeof(CQTaggedEntry{})]byte{}

// CQErrEntry mirrors struct fi_cq_err_entry, returned by fi_cq_readerr after
// a negative fi_cq_read.
type CQErrEntry struct {
	OpContext unsafe.Pointer
	Flags     uint64
	Len       uint64
	Buf       unsafe.Pointer
	Data      uint64
	Tag       uint64
	OLen      uint64 // original (requested) length, for truncation errors
	Err       int32  // positive fi_errno
	ProvErrno int32  // provider-specific sub-error
	ErrData   []byte // optional provider error-data payload
}

// EQCMEntry mirrors struct fi_eq_cm_entry (connection-management events).
type EQCMEntry struct {
	Fid  unsafe.Pointer // the fid the event pertains to
	Info unsafe.Pointer // optional struct fi_info* for CONNREQ events
	Data []byte         // optional user data carried with the event
}

var _ [SizeofEQCMEntry]byte = [unsafe.Sizeof(struct {
	Fid  unsafe.Pointer
	Info unsafe.Pointer
	_    [SizeofEQCMEntry - 2*unsafe.Sizeof(unsafe.Pointer(nil))]byte
}{})]byte{}

// EQErrEntry mirrors struct fi_eq_err_entry.
type EQErrEntry struct {
	Fid       unsafe.Pointer
	Context   unsafe.Pointer
	Data      uint64
	Err       int32
	ProvErrno int32
	ErrData   []byte
}

// RmaIOV mirrors struct fi_rma_iov: the remote-memory descriptor triple
// passed out-of-band between peers and used as the target of RMA/atomic
// submissions.
type RmaIOV struct {
	Addr uint64 // remote virtual address (or 0-based offset, FI_MR_VIRT_ADDR dependent)
	Len  uint64
	Key  uint64 // remote key, as handed out by memory_region.Key()
}

// IOVec mirrors struct iovec for local scatter/gather lists.
type IOVec struct {
	Base unsafe.Pointer
	Len  uintptr
}

// MsgBasic mirrors struct fi_msg (used by fi_sendmsg/fi_recvmsg).
type MsgBasic struct {
	Iov       []IOVec
	Desc      []unsafe.Pointer // per-iov local MR descriptors
	Addr      uint64           // destination fabric address (connectionless)
	Context   *Context
	Data      uint64
}

// MsgTagged mirrors struct fi_msg_tagged.
type MsgTagged struct {
	MsgBasic
	Tag    uint64
	Ignore uint64
}

// MsgRMA mirrors struct fi_msg_rma.
type MsgRMA struct {
	MsgBasic
	RmaIov []RmaIOV
}

// MsgAtomic mirrors struct fi_msg_atomic.
type MsgAtomic struct {
	MsgBasic
	RmaIov   []RmaIOV
	Datatype uint32
	Op       uint32
}

// Device/path-style helpers kept for parity with how the teacher names its
// UAPI path helpers; here they format libfabric string identifiers rather
// than /dev nodes.
func FabricProviderPath(name string) string {
	return "ofi+" + name
}
