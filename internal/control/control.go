// Package control resolves a concrete provider and walks the
// fi_getinfo -> fi_fabric -> fi_domain bootstrap sequence every fabric open
// goes through, the way the teacher's control package walked
// ADD_DEV -> SET_PARAMS -> START_DEV for a block device.
package control

import (
	"fmt"

	"github.com/ofi-go/ofi/internal/logging"
	"github.com/ofi-go/ofi/internal/provider"
)

// Resolved is the result of a successful bootstrap: the open fabric and
// domain handles, plus the fi_info that was actually selected (its
// InjectSize, Caps etc. drive downstream trait decisions).
type Resolved struct {
	Provider provider.Provider
	Fabric   provider.Fabric
	Domain   provider.Domain
	Info     *provider.Info
}

// Resolve selects a provider (defaulting to the in-process loopback stub
// when no native build is linked in) and opens the fabric/domain pair
// matching params.
func Resolve(params ResolveParams) (*Resolved, error) {
	logger := logging.Default()

	p := selectProvider(params.ProviderName)
	logger.Debug("resolving provider", "provider", p.Name(), "node", params.Node, "service", params.Service)

	hints := &provider.Info{
		ProviderName: params.ProviderName,
		EPType:       params.EPType,
		Caps:         params.Caps,
	}

	infos, err := p.GetInfo(provider.GetInfoParams{
		Node:    params.Node,
		Service: params.Service,
		Hints:   hints,
	})
	if err != nil {
		return nil, fmt.Errorf("fi_getinfo failed: %v", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("fi_getinfo returned no matching providers")
	}
	info := infos[0]

	logger.Debug("opening fabric", "provider", info.ProviderName, "fabric", info.FabricName)
	fabric, err := p.OpenFabric(info)
	if err != nil {
		return nil, fmt.Errorf("fi_fabric failed: %v", err)
	}

	logger.Debug("opening domain", "domain", info.DomainName)
	domain, err := fabric.OpenDomain(info)
	if err != nil {
		fabric.Close()
		return nil, fmt.Errorf("fi_domain failed: %v", err)
	}

	logger.Info("fabric opened", "provider", info.ProviderName, "fabric", info.FabricName, "domain", info.DomainName)

	return &Resolved{
		Provider: p,
		Fabric:   fabric,
		Domain:   domain,
		Info:     info,
	}, nil
}

// Close tears down the domain and fabric handles in the correct order
// (domain before fabric, matching libfabric's ownership graph).
func (r *Resolved) Close() error {
	var firstErr error
	if r.Domain != nil {
		if err := r.Domain.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("domain close: %v", err)
		}
	}
	if r.Fabric != nil {
		if err := r.Fabric.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("fabric close: %v", err)
		}
	}
	return firstErr
}

// selectProvider picks the native cgo provider when this binary was built
// with the ofi_native tag (see native_cgo.go); otherwise it falls back to
// the in-process loopback stub so the module always runs somewhere.
func selectProvider(name string) provider.Provider {
	if p := nativeProviderOrNil(name); p != nil {
		return p
	}
	return provider.NewStubProvider()
}
