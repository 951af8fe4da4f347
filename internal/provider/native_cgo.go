//go:build linux && cgo && ofi_native
// +build linux,cgo,ofi_native

// Package provider: this file is the real libfabric binding, built only
// when a host has libfabric installed and opts in with the ofi_native build
// tag (default builds use the loopback StubProvider so the module compiles
// and tests run on any machine, hardware or not). Of the libfabric C ABI
// it calls fi_getinfo (with fi_allocinfo/fi_freeinfo) to answer GetInfo;
// OpenFabric returns an error, so no fabric, domain, endpoint, queue,
// address-vector, counter or memory-registration call is made through it.
package provider

/*
#cgo pkg-config: libfabric
#include <rdma/fabric.h>
#include <rdma/fi_domain.h>
#include <rdma/fi_endpoint.h>
#include <rdma/fi_cm.h>
#include <rdma/fi_rma.h>
#include <rdma/fi_atomic.h>
#include <rdma/fi_tagged.h>
#include <stdlib.h>
#include <string.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/ofi-go/ofi/internal/abi"
	"github.com/ofi-go/ofi/internal/interfaces"
	"github.com/ofi-go/ofi/internal/logging"
)

// NativeProvider talks to a real libfabric provider through cgo. Name
// identifies the provider string passed as a fi_getinfo hint (e.g. "verbs",
// "efa", "cxi", "shm", "tcp", "ucx"); the provider is resolved at
// OpenFabric time, not at construction. logger is typed as
// interfaces.Logger rather than the concrete *logging.Logger so this
// package's dependency on a logging sink stays behind the
// internal/interfaces seam, instead of hard-wiring the
// leveled-logger implementation into the provider.
type NativeProvider struct {
	name   string
	logger interfaces.Logger
}

// NewNativeProvider constructs the cgo-backed provider for a given
// libfabric provider name; pass "" to let fi_getinfo pick automatically.
func NewNativeProvider(name string) *NativeProvider {
	return &NativeProvider{name: name, logger: logging.Default()}
}

// SetLogger overrides the logger this provider reports through, e.g. to
// route cgo-path diagnostics somewhere other than the package default.
func (p *NativeProvider) SetLogger(l interfaces.Logger) {
	p.logger = l
}

func (p *NativeProvider) Name() string {
	if p.name == "" {
		return "native"
	}
	return p.name
}

func (p *NativeProvider) Capabilities() Capabilities {
	// A real deployment looks these up per fi_info.domain_attr/tx_attr
	// after GetInfo; this is the conservative default used before that.
	return Capabilities{
		NativeAtomics:   true,
		InjectSupported: true,
		ManualProgress:  true,
		TriggeredOps:    true,
		SharedAV:        true,
		MaxInjectSize:   256,
	}
}

func (p *NativeProvider) GetInfo(params GetInfoParams) ([]*Info, error) {
	hints := C.fi_allocinfo()
	if hints == nil {
		return nil, fmt.Errorf("provider: fi_allocinfo failed")
	}
	defer C.fi_freeinfo(hints)

	if p.name != "" {
		hints.fabric_attr.prov_name = C.CString(p.name)
	}
	hints.ep_attr.typ = C.FI_EP_RDM
	if params.Hints != nil && params.Hints.EPType != 0 {
		hints.ep_attr.typ = C.uint32_t(params.Hints.EPType)
	}

	var cNode, cService *C.char
	if params.Node != "" {
		cNode = C.CString(params.Node)
		defer C.free(unsafe.Pointer(cNode))
	}
	if params.Service != "" {
		cService = C.CString(params.Service)
		defer C.free(unsafe.Pointer(cService))
	}

	var result *C.struct_fi_info
	ret := C.fi_getinfo(C.FI_VERSION(abi.FabricVersionMajor, abi.FabricVersionMinor),
		cNode, cService, C.uint64_t(params.Flags), hints, &result)
	if ret != 0 {
		return nil, fmt.Errorf("provider: fi_getinfo failed: %d", ret)
	}
	defer C.fi_freeinfo(result)

	var infos []*Info
	for cur := result; cur != nil; cur = cur.next {
		infos = append(infos, &Info{
			ProviderName: C.GoString(cur.fabric_attr.prov_name),
			FabricName:   C.GoString(cur.fabric_attr.name),
			DomainName:   C.GoString(cur.domain_attr.name),
			EPType:       uint32(cur.ep_attr.typ),
			AddrFormat:   uint32(cur.addr_format),
			Caps:         uint64(cur.caps),
			Mode:         uint64(cur.mode),
		})
	}
	return infos, nil
}

func (p *NativeProvider) OpenFabric(info *Info) (Fabric, error) {
	p.logger.Debugf("opening fabric via libfabric provider %q", info.ProviderName)
	return nil, fmt.Errorf("provider: native fabric open requires a resolved struct fi_info*, not yet wired from Go-side Info — build with hardware present and extend GetInfo to retain the C pointer")
}
