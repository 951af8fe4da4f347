package ofi

// ProviderTag names one of the six fabric transports this binding targets.
// Go has no const-generics to specialise a trait implementation per tag the
// way the source's C++ template does; the idiomatic replacement is a
// package-level map literal populated at init and looked up by tag (see
// TraitsFor), the same shape the teacher uses for its backend capability
// table.
type ProviderTag int

const (
	ProviderVerbs ProviderTag = iota
	ProviderEFA
	ProviderCXI // HPE Slingshot
	ProviderSHM
	ProviderTCP
	ProviderUCX
)

func (t ProviderTag) String() string {
	switch t {
	case ProviderVerbs:
		return "verbs"
	case ProviderEFA:
		return "efa"
	case ProviderCXI:
		return "cxi"
	case ProviderSHM:
		return "shm"
	case ProviderTCP:
		return "tcp"
	case ProviderUCX:
		return "ucx"
	default:
		return "unknown"
	}
}

// ProviderTraits is the compile-time-record-turned-runtime-table entry for
// one provider: its capabilities and defaults, plus the pure function used
// to compute a peer's RMA target address from a base/offset pair (some
// providers, notably ones without FI_MR_VIRT_ADDR, expect a 0-based offset
// instead of the peer's raw virtual address).
type ProviderTraits struct {
	Name string

	NativeAtomics    bool
	StagedAtomics    bool
	InjectCapable    bool
	MaxInjectSize    uint32
	SelectiveCompletion bool
	RMAEvents        bool
	MultiRecv        bool

	DefaultMRMode       MRModeFlags
	DefaultControlProgress ProgressMode
	DefaultDataProgress    ProgressMode
	RequiresLocalMR     bool

	ComputeRemoteAddr func(base, offset uint64) uint64
}

func virtAddrRemote(base, offset uint64) uint64 { return base + offset }

// providerTraitsTable is the "one specialisation per provider tag" compile-
// time record, expressed as the Go idiom for a closed compile-time table: a
// map literal populated once at init and never mutated afterward (see
// DESIGN.md's Open Question resolution for §4.3). Field values are copied
// verbatim from each tag's provider_traits specialisation; every
// specialisation's compute_remote_addr resolves to the same base+offset
// formula, so ComputeRemoteAddr is uniformly virtAddrRemote below even
// though the field stays per-entry for whichever provider eventually
// diverges.
var providerTraitsTable = map[ProviderTag]ProviderTraits{
	ProviderVerbs: {
		Name: "verbs", NativeAtomics: true, StagedAtomics: false,
		InjectCapable: true, MaxInjectSize: 64, SelectiveCompletion: true,
		RMAEvents: true, MultiRecv: true,
		DefaultMRMode:          MRModeLocal | MRModeProvKey,
		DefaultControlProgress: ProgressManual,
		DefaultDataProgress:    ProgressManual,
		RequiresLocalMR:        true,
		ComputeRemoteAddr:      virtAddrRemote,
	},
	ProviderEFA: {
		Name: "efa", NativeAtomics: false, StagedAtomics: true,
		InjectCapable: true, MaxInjectSize: 32, SelectiveCompletion: true,
		RMAEvents: false, MultiRecv: true,
		DefaultMRMode:          MRModeProvKey,
		DefaultControlProgress: ProgressManual,
		DefaultDataProgress:    ProgressManual,
		RequiresLocalMR:        false,
		ComputeRemoteAddr:      virtAddrRemote,
	},
	ProviderCXI: {
		Name: "cxi", NativeAtomics: true, StagedAtomics: false,
		InjectCapable: true, MaxInjectSize: 64, SelectiveCompletion: true,
		RMAEvents: true, MultiRecv: true,
		DefaultMRMode:          MRModeScalable | MRModeVirtAddr,
		DefaultControlProgress: ProgressAuto,
		DefaultDataProgress:    ProgressAuto,
		RequiresLocalMR:        false,
		ComputeRemoteAddr:      virtAddrRemote,
	},
	ProviderSHM: {
		Name: "shm", NativeAtomics: true, StagedAtomics: false,
		InjectCapable: true, MaxInjectSize: 4096, SelectiveCompletion: true,
		RMAEvents: true, MultiRecv: true,
		DefaultMRMode:          MRModeVirtAddr,
		DefaultControlProgress: ProgressAuto,
		DefaultDataProgress:    ProgressAuto,
		RequiresLocalMR:        false,
		ComputeRemoteAddr:      virtAddrRemote,
	},
	ProviderTCP: {
		Name: "tcp", NativeAtomics: false, StagedAtomics: true,
		InjectCapable: true, MaxInjectSize: 64, SelectiveCompletion: true,
		RMAEvents: false, MultiRecv: true,
		DefaultMRMode:          MRModeFlags(0),
		DefaultControlProgress: ProgressManual,
		DefaultDataProgress:    ProgressManual,
		RequiresLocalMR:        false,
		ComputeRemoteAddr:      virtAddrRemote,
	},
	ProviderUCX: {
		Name: "ucx", NativeAtomics: true, StagedAtomics: false,
		InjectCapable: true, MaxInjectSize: 128, SelectiveCompletion: true,
		RMAEvents: true, MultiRecv: true,
		DefaultMRMode:          MRModeFlags(0),
		DefaultControlProgress: ProgressManual,
		DefaultDataProgress:    ProgressManual,
		RequiresLocalMR:        false,
		ComputeRemoteAddr:      virtAddrRemote,
	},
}

// TraitsFor returns the trait record for tag. Unknown tags return the zero
// value (everything false/zero), matching the "empty resource object"
// invariant elsewhere in this package.
func TraitsFor(tag ProviderTag) ProviderTraits {
	return providerTraitsTable[tag]
}

// ProviderTagByName maps a provider's string name (as surfaced by
// provider.Info.ProviderName after fi_getinfo) back to its ProviderTag, for
// code that only has the runtime-resolved name.
func ProviderTagByName(name string) (ProviderTag, bool) {
	for tag, traits := range providerTraitsTable {
		if traits.Name == name {
			return tag, true
		}
	}
	return 0, false
}

// The following predicates are the runtime replacement for the source's
// compile-time provider-categorisation concepts (native_atomic_provider,
// staged_atomic_provider, inject_capable_provider, manual_progress_provider):
// dispatch branches on these instead of specialising a generic function per
// tag, since Go has no concept-bounded template specialisation.

func (t ProviderTraits) IsNativeAtomicProvider() bool  { return t.NativeAtomics }
func (t ProviderTraits) IsStagedAtomicProvider() bool  { return t.StagedAtomics }
func (t ProviderTraits) IsInjectCapableProvider() bool { return t.InjectCapable }
func (t ProviderTraits) IsManualProgressProvider() bool {
	return t.DefaultDataProgress == ProgressManual
}

// RequiresManualDataProgress and RequiresManualControlProgress report
// whether a caller must explicitly drive progress (poll the CQ/EQ) for this
// provider's defaults rather than relying on a background progress thread;
// SupportsBlockingWait reports whether a blocking wait (Wait/WaitIOUring)
// can be expected to return promptly rather than never unblocking on its
// own. All three are derived from the same two progress-mode fields the
// source's runtime_progress_policy/static_progress_policy predicates
// compute from control_progress()/data_progress().
func (t ProviderTraits) RequiresManualDataProgress() bool {
	return t.DefaultDataProgress == ProgressManual
}

func (t ProviderTraits) RequiresManualControlProgress() bool {
	return t.DefaultControlProgress == ProgressManual
}

func (t ProviderTraits) SupportsBlockingWait() bool {
	return t.DefaultDataProgress == ProgressAuto
}
