package ofi

import "github.com/ofi-go/ofi/internal/abi"

// Bitset wrappers give each semantically distinct flag space its own Go
// type so a CapFlags can never be passed where an AccessFlags is expected,
// even though both are backed by uint64. The wrappers expose a small
// algebra instead of relying on callers to remember which raw bits compose
// safely: CapFlags, ModeFlags and AccessFlags have Union/Intersect/
// Difference/Complement/Has/HasAny/Bool; MsgOrderFlags and OpFlags have
// only Union/Intersect/Has/Bool; BindFlags and MRModeFlags have only
// Union/Has/Bool.

// CapFlags is the fi_info.caps / tx_attr.caps / rx_attr.caps capability
// bitset (FI_MSG, FI_RMA, FI_TAGGED, FI_ATOMIC, ...).
type CapFlags uint64

const (
	CapMsg          CapFlags = CapFlags(abi.FI_MSG)
	CapRMA          CapFlags = CapFlags(abi.FI_RMA)
	CapTagged       CapFlags = CapFlags(abi.FI_TAGGED)
	CapAtomic       CapFlags = CapFlags(abi.FI_ATOMIC)
	CapRead         CapFlags = CapFlags(abi.FI_READ)
	CapWrite        CapFlags = CapFlags(abi.FI_WRITE)
	CapRemoteRead   CapFlags = CapFlags(abi.FI_REMOTE_READ)
	CapRemoteWrite  CapFlags = CapFlags(abi.FI_REMOTE_WRITE)
	CapSend         CapFlags = CapFlags(abi.FI_SEND)
	CapRecv         CapFlags = CapFlags(abi.FI_RECV)
	CapMultiRecv    CapFlags = CapFlags(abi.FI_MULTI_RECV)
	CapRemoteComm   CapFlags = CapFlags(abi.FI_REMOTE_COMM)
	CapFence        CapFlags = CapFlags(abi.FI_FENCE)
	CapLocalComm    CapFlags = CapFlags(abi.FI_LOCAL_COMM)
	CapMsgPrefix    CapFlags = CapFlags(abi.FI_MSG_PREFIX)
	CapHmem         CapFlags = CapFlags(abi.FI_HMEM)
)

func (f CapFlags) Union(other CapFlags) CapFlags      { return f | other }
func (f CapFlags) Intersect(other CapFlags) CapFlags  { return f & other }
func (f CapFlags) Difference(other CapFlags) CapFlags { return f &^ other }
func (f CapFlags) Complement() CapFlags               { return ^f }
func (f CapFlags) Has(subset CapFlags) bool            { return f&subset == subset }
func (f CapFlags) HasAny(subset CapFlags) bool         { return f&subset != 0 }
func (f CapFlags) Bool() bool                          { return f != 0 }

// ModeFlags is the fi_info.mode bitset (FI_CONTEXT, FI_LOCAL_MR, FI_RX_CQ_DATA).
type ModeFlags uint64

const (
	ModeContext   ModeFlags = ModeFlags(abi.FI_CONTEXT)
	ModeLocalMR   ModeFlags = ModeFlags(abi.FI_LOCAL_MR)
	ModeRxCQData  ModeFlags = ModeFlags(abi.FI_RX_CQ_DATA)
)

func (f ModeFlags) Union(other ModeFlags) ModeFlags      { return f | other }
func (f ModeFlags) Intersect(other ModeFlags) ModeFlags  { return f & other }
func (f ModeFlags) Difference(other ModeFlags) ModeFlags { return f &^ other }
func (f ModeFlags) Complement() ModeFlags                { return ^f }
func (f ModeFlags) Has(subset ModeFlags) bool            { return f&subset == subset }
func (f ModeFlags) HasAny(subset ModeFlags) bool         { return f&subset != 0 }
func (f ModeFlags) Bool() bool                           { return f != 0 }

// AccessFlags is the memory-region access bitset: a region's permitted
// operations (local read/write, remote read/write).
type AccessFlags uint64

const (
	AccessRead        AccessFlags = AccessFlags(abi.FI_READ)
	AccessWrite       AccessFlags = AccessFlags(abi.FI_WRITE)
	AccessRemoteRead  AccessFlags = AccessFlags(abi.FI_REMOTE_READ)
	AccessRemoteWrite AccessFlags = AccessFlags(abi.FI_REMOTE_WRITE)
	AccessSend        AccessFlags = AccessFlags(abi.FI_SEND)
	AccessRecv        AccessFlags = AccessFlags(abi.FI_RECV)
)

func (f AccessFlags) Union(other AccessFlags) AccessFlags      { return f | other }
func (f AccessFlags) Intersect(other AccessFlags) AccessFlags  { return f & other }
func (f AccessFlags) Difference(other AccessFlags) AccessFlags { return f &^ other }
func (f AccessFlags) Complement() AccessFlags                  { return ^f }
func (f AccessFlags) Has(subset AccessFlags) bool              { return f&subset == subset }
func (f AccessFlags) HasAny(subset AccessFlags) bool           { return f&subset != 0 }
func (f AccessFlags) Bool() bool                               { return f != 0 }

// IsSuperset reports whether f grants everything requested grants; used by
// the MR cache's lookup contract ("cached access bits are a superset of the
// requested access").
func (f AccessFlags) IsSuperset(requested AccessFlags) bool {
	return f&requested == requested
}

// MsgOrderFlags is fi_tx_attr.msg_order: the per-endpoint message ordering
// guarantee in force (FI_ORDER_STRICT/DATA/RAW/WAR/WAW, or none).
type MsgOrderFlags uint64

const (
	OrderNone   MsgOrderFlags = 0
	OrderStrict MsgOrderFlags = MsgOrderFlags(abi.FI_ORDER_STRICT)
	OrderData   MsgOrderFlags = MsgOrderFlags(abi.FI_ORDER_DATA)
	OrderRAW    MsgOrderFlags = MsgOrderFlags(abi.FI_ORDER_RAW)
	OrderWAR    MsgOrderFlags = MsgOrderFlags(abi.FI_ORDER_WAR)
	OrderWAW    MsgOrderFlags = MsgOrderFlags(abi.FI_ORDER_WAW)
)

func (f MsgOrderFlags) Union(other MsgOrderFlags) MsgOrderFlags     { return f | other }
func (f MsgOrderFlags) Intersect(other MsgOrderFlags) MsgOrderFlags { return f & other }
func (f MsgOrderFlags) Has(subset MsgOrderFlags) bool               { return f&subset == subset }
func (f MsgOrderFlags) Bool() bool                                  { return f != 0 }

// CompOrderFlags is the completion-ordering counterpart to MsgOrderFlags,
// sharing the same bit space (the fabric does not give it a separate one).
type CompOrderFlags = MsgOrderFlags

// BindFlags is the flags argument to fi_ep_bind when attaching a CQ
// (FI_TRANSMIT / FI_RECV / FI_SELECTIVE_COMPLETION).
type BindFlags uint64

const (
	BindTransmit             BindFlags = BindFlags(abi.FI_TRANSMIT)
	BindRecv                 BindFlags = BindFlags(abi.FI_RECV_BIND)
	BindSelectiveCompletion  BindFlags = BindFlags(abi.FI_SELECTIVE_COMPLETION)
)

func (f BindFlags) Union(other BindFlags) BindFlags     { return f | other }
func (f BindFlags) Has(subset BindFlags) bool           { return f&subset == subset }
func (f BindFlags) Bool() bool                          { return f != 0 }

// OpFlags is the per-submission flags argument passed via fi_sendmsg /
// fi_writemsg / etc (FI_COMPLETION, FI_INJECT, FI_FENCE, ...).
type OpFlags uint64

const (
	OpCompletion        OpFlags = OpFlags(abi.FI_COMPLETION)
	OpInject            OpFlags = OpFlags(abi.FI_INJECT)
	OpFence             OpFlags = OpFlags(abi.FI_OP_FENCE)
	OpTransmitComplete  OpFlags = OpFlags(abi.FI_TRANSMIT_COMPLETE)
	OpDeliveryComplete  OpFlags = OpFlags(abi.FI_DELIVERY_COMPLETE)
)

func (f OpFlags) Union(other OpFlags) OpFlags     { return f | other }
func (f OpFlags) Intersect(other OpFlags) OpFlags { return f & other }
func (f OpFlags) Has(subset OpFlags) bool         { return f&subset == subset }
func (f OpFlags) Bool() bool                      { return f != 0 }

// SendRecvFlags narrows OpFlags to the subset send/recv postings use; kept
// as a distinct name so call sites read as "this is a send/recv flag", not
// an arbitrary OpFlags value, even though the underlying bits are shared.
type SendRecvFlags = OpFlags

// MRModeFlags is fi_domain_attr.mr_mode: which memory-registration model a
// provider requires (scalable keys, local descriptors, virtual addressing,
// provider-assigned keys, ...).
type MRModeFlags uint32

const (
	MRModeScalable   MRModeFlags = MRModeFlags(abi.FI_MR_SCALABLE)
	MRModeLocal      MRModeFlags = MRModeFlags(abi.FI_MR_LOCAL)
	MRModeVirtAddr   MRModeFlags = MRModeFlags(abi.FI_MR_VIRT_ADDR)
	MRModeAllocated  MRModeFlags = MRModeFlags(abi.FI_MR_ALLOCATED)
	MRModeProvKey    MRModeFlags = MRModeFlags(abi.FI_MR_PROV_KEY)
	MRModeRaw        MRModeFlags = MRModeFlags(abi.FI_MR_RAW)
	MRModeHmem       MRModeFlags = MRModeFlags(abi.FI_MR_HMEM)
	MRModeEndpoint   MRModeFlags = MRModeFlags(abi.FI_MR_ENDPOINT)
	MRModeCollective MRModeFlags = MRModeFlags(abi.FI_MR_COLLECTIVE)
)

func (f MRModeFlags) Union(other MRModeFlags) MRModeFlags { return f | other }
func (f MRModeFlags) Has(subset MRModeFlags) bool         { return f&subset == subset }
func (f MRModeFlags) Bool() bool                          { return f != 0 }

// EndpointType is fi_info.ep_attr.type (FI_EP_MSG/RDM/DGRAM).
type EndpointType uint32

const (
	EndpointTypeMsg   EndpointType = EndpointType(abi.FI_EP_MSG)
	EndpointTypeRDM   EndpointType = EndpointType(abi.FI_EP_RDM)
	EndpointTypeDgram EndpointType = EndpointType(abi.FI_EP_DGRAM)
)

// AddrFormat is fi_info.addr_format (FI_SOCKADDR_IN/IN6/IB, FI_ADDR_EFA).
type AddrFormat uint32

const (
	AddrFormatInet  AddrFormat = AddrFormat(abi.FI_SOCKADDR_IN)
	AddrFormatInet6 AddrFormat = AddrFormat(abi.FI_SOCKADDR_IN6)
	AddrFormatIB    AddrFormat = AddrFormat(abi.FI_SOCKADDR_IB)
	AddrFormatEFA   AddrFormat = AddrFormat(abi.FI_ADDR_EFA)
)

// ProgressMode is fi_domain_attr.control_progress / data_progress
// (FI_PROGRESS_AUTO / FI_PROGRESS_MANUAL).
type ProgressMode uint32

const (
	ProgressAuto   ProgressMode = ProgressMode(abi.FI_PROGRESS_AUTO)
	ProgressManual ProgressMode = ProgressMode(abi.FI_PROGRESS_MANUAL)
)

// ThreadingMode is fi_domain_attr.threading.
type ThreadingMode uint32

const (
	ThreadSafe       ThreadingMode = ThreadingMode(abi.FI_THREAD_SAFE)
	ThreadFID        ThreadingMode = ThreadingMode(abi.FI_THREAD_FID)
	ThreadDomain     ThreadingMode = ThreadingMode(abi.FI_THREAD_DOMAIN)
	ThreadCompletion ThreadingMode = ThreadingMode(abi.FI_THREAD_COMPLETION)
)

// AtomicOp is enum fi_op, the operation code passed to Atomic/CompareAtomic/
// FetchAtomic and to the staged-atomics RMW dispatch.
type AtomicOp uint32

const (
	OpMin          AtomicOp = AtomicOp(abi.FI_MIN)
	OpMax          AtomicOp = AtomicOp(abi.FI_MAX)
	OpSum          AtomicOp = AtomicOp(abi.FI_SUM)
	OpProd         AtomicOp = AtomicOp(abi.FI_PROD)
	OpLor          AtomicOp = AtomicOp(abi.FI_LOR)
	OpLand         AtomicOp = AtomicOp(abi.FI_LAND)
	OpBor          AtomicOp = AtomicOp(abi.FI_BOR)
	OpBand         AtomicOp = AtomicOp(abi.FI_BAND)
	OpLxor         AtomicOp = AtomicOp(abi.FI_LXOR)
	OpBxor         AtomicOp = AtomicOp(abi.FI_BXOR)
	OpAtomicRead   AtomicOp = AtomicOp(abi.FI_ATOMIC_READ)
	OpAtomicWrite  AtomicOp = AtomicOp(abi.FI_ATOMIC_WRITE)
	OpCswap        AtomicOp = AtomicOp(abi.FI_CSWAP)
)

// Datatype is enum fi_datatype, derived at compile time from a Go type
// parameter via the datatypeOf generic helper in atomics.go.
type Datatype uint32

const (
	DatatypeInt8   Datatype = Datatype(abi.FI_INT8)
	DatatypeUint8  Datatype = Datatype(abi.FI_UINT8)
	DatatypeInt16  Datatype = Datatype(abi.FI_INT16)
	DatatypeUint16 Datatype = Datatype(abi.FI_UINT16)
	DatatypeInt32  Datatype = Datatype(abi.FI_INT32)
	DatatypeUint32 Datatype = Datatype(abi.FI_UINT32)
	DatatypeInt64  Datatype = Datatype(abi.FI_INT64)
	DatatypeUint64 Datatype = Datatype(abi.FI_UINT64)
	DatatypeFloat32 Datatype = Datatype(abi.FI_FLOAT)
	DatatypeFloat64 Datatype = Datatype(abi.FI_DOUBLE)
	DatatypeFloatComplex  Datatype = Datatype(abi.FI_FLOAT_COMPLEX)
	DatatypeDoubleComplex Datatype = Datatype(abi.FI_DOUBLE_COMPLEX)
	DatatypeLongDouble        Datatype = Datatype(abi.FI_LONG_DOUBLE)
	DatatypeLongDoubleComplex Datatype = Datatype(abi.FI_LONG_DOUBLE_COMPLEX)
)

// DeferredOpKind is fi_deferred_work.op_type, naming which submission a
// triggered-work object fires once its gating counter crosses threshold.
type DeferredOpKind uint32

const (
	DeferredOpSend          DeferredOpKind = DeferredOpKind(abi.FI_OP_SEND)
	DeferredOpRecv          DeferredOpKind = DeferredOpKind(abi.FI_OP_RECV)
	DeferredOpTSend         DeferredOpKind = DeferredOpKind(abi.FI_OP_TSEND)
	DeferredOpTRecv         DeferredOpKind = DeferredOpKind(abi.FI_OP_TRECV)
	DeferredOpRead          DeferredOpKind = DeferredOpKind(abi.FI_OP_READ)
	DeferredOpWrite         DeferredOpKind = DeferredOpKind(abi.FI_OP_WRITE)
	DeferredOpAtomic        DeferredOpKind = DeferredOpKind(abi.FI_OP_ATOMIC)
	DeferredOpFetchAtomic   DeferredOpKind = DeferredOpKind(abi.FI_OP_FETCH_ATOMIC)
	DeferredOpCompareAtomic DeferredOpKind = DeferredOpKind(abi.FI_OP_COMPARE_ATOMIC)
	DeferredOpCntrSet       DeferredOpKind = DeferredOpKind(abi.FI_OP_CNTR_SET)
	DeferredOpCntrAdd       DeferredOpKind = DeferredOpKind(abi.FI_OP_CNTR_ADD)
)
