package ofi

import (
	"github.com/ofi-go/ofi/internal/provider"
)

// AddressVector is fi_av: translates peer protocol addresses into the
// compact FabricAddr handles connectionless (FI_EP_RDM/FI_EP_DGRAM)
// transfer operations address peers by.
type AddressVector struct {
	domain *Domain
	av     provider.AddressVector
}

// Insert resolves a single peer address and returns its FabricAddr. A
// failed resolution returns FabricAddrUnavailable, not an error — matching
// fi_av_insert's per-entry failure semantics (the call itself can succeed
// while individual entries fail).
func (v *AddressVector) Insert(addr Address) (FabricAddr, error) {
	addrs, err := v.InsertBatch([]Address{addr})
	if err != nil {
		return FabricAddrUnavailable, err
	}
	return addrs[0], nil
}

// InsertBatch resolves multiple peer addresses in one call.
func (v *AddressVector) InsertBatch(addrs []Address) ([]FabricAddr, error) {
	raw := make([][]byte, len(addrs))
	for i, a := range addrs {
		raw[i] = a.Bytes()
	}
	fiAddrs, err := v.av.Insert(raw)
	if err != nil {
		return nil, WrapError("AddressVector.Insert", err)
	}
	out := make([]FabricAddr, len(fiAddrs))
	for i, a := range fiAddrs {
		out[i] = FabricAddr(a)
	}
	return out, nil
}

// Remove removes a single resolved address from the vector.
func (v *AddressVector) Remove(addr FabricAddr) error {
	return v.RemoveBatch([]FabricAddr{addr})
}

// RemoveBatch removes multiple resolved addresses from the vector.
func (v *AddressVector) RemoveBatch(addrs []FabricAddr) error {
	raw := make([]uint64, len(addrs))
	for i, a := range addrs {
		raw[i] = uint64(a)
	}
	if err := v.av.Remove(raw); err != nil {
		return WrapError("AddressVector.Remove", err)
	}
	return nil
}

// Lookup returns the raw protocol address a FabricAddr was resolved from,
// parsed back into an Address using format (the address vector does not
// track which format it was given, so the caller supplies it — matching
// fi_av_lookup's raw-byte-buffer-out behaviour).
func (v *AddressVector) Lookup(addr FabricAddr, format AddrFormat) (Address, error) {
	raw, err := v.av.Lookup(uint64(addr))
	if err != nil {
		return Address{}, WrapError("AddressVector.Lookup", err)
	}
	return ParseAddress(format, raw)
}

// AddressToString renders addr via Lookup+String, for logging.
func (v *AddressVector) AddressToString(addr FabricAddr, format AddrFormat) string {
	a, err := v.Lookup(addr, format)
	if err != nil {
		return "<unresolved>"
	}
	return a.String()
}

// Close closes the address vector.
func (v *AddressVector) Close() error {
	if v.av == nil {
		return nil
	}
	if err := v.av.Close(); err != nil {
		return WrapError("AddressVector.Close", err)
	}
	return nil
}
