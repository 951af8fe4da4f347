package ofi

import (
	"fmt"
	"net"

	"github.com/ofi-go/ofi/internal/abi"
)

// AddressKind tags which variant an Address holds.
type AddressKind int

const (
	AddressKindInet AddressKind = iota
	AddressKindInet6
	AddressKindIB
	AddressKindEthernet
)

func (k AddressKind) Format() AddrFormat {
	switch k {
	case AddressKindInet:
		return AddrFormatInet
	case AddressKindInet6:
		return AddrFormatInet6
	case AddressKindIB:
		return AddrFormatIB
	case AddressKindEthernet:
		return AddrFormatEFA
	default:
		return 0
	}
}

// Address is a tagged union over the protocol address forms a fi_info's
// addr_format can name. Exactly one of the Inet/Inet6/IB/Ethernet fields is
// meaningful, selected by Kind; the others are zero. This mirrors a Rust
// enum/C++ variant in spirit while staying representable as a plain Go
// struct (no reflection needed for the hot marshal/unmarshal path).
type Address struct {
	Kind AddressKind

	Inet4 [4]byte
	Port  uint16

	Inet6   [16]byte
	FlowInfo uint32
	ScopeID  uint32

	IBSubnetPrefix uint64
	IBInterfaceID  uint64
	IBServiceID    uint64
	IBQPN          uint32
	IBQKey         uint32
	IBPkey         uint16

	Mac [6]byte
}

// NewInetAddress builds an Address from a dotted-quad IPv4 address and port.
func NewInetAddress(ip net.IP, port uint16) (Address, error) {
	v4 := ip.To4()
	if v4 == nil {
		return Address{}, NewError("NewInetAddress", ErrcInvalidArgument, "address is not IPv4")
	}
	var a Address
	a.Kind = AddressKindInet
	copy(a.Inet4[:], v4)
	a.Port = port
	return a, nil
}

// NewInet6Address builds an Address from an IPv6 address and port.
func NewInet6Address(ip net.IP, port uint16) (Address, error) {
	v6 := ip.To16()
	if v6 == nil {
		return Address{}, NewError("NewInet6Address", ErrcInvalidArgument, "address is not IPv6")
	}
	var a Address
	a.Kind = AddressKindInet6
	copy(a.Inet6[:], v6)
	a.Port = port
	return a, nil
}

// NewEthernetAddress builds an Address from a 6-byte MAC (EFA/raw-Ethernet
// address format).
func NewEthernetAddress(mac net.HardwareAddr) (Address, error) {
	if len(mac) != 6 {
		return Address{}, NewError("NewEthernetAddress", ErrcInvalidArgument, "mac address must be 6 bytes")
	}
	var a Address
	a.Kind = AddressKindEthernet
	copy(a.Mac[:], mac)
	return a, nil
}

// Bytes serialises the address into the wire form the matching
// AddrFormat expects (for fi_connect/fi_getname/av_insert payloads).
func (a Address) Bytes() []byte {
	switch a.Kind {
	case AddressKindInet:
		return abi.MarshalSockaddrIn(&abi.SockaddrIn{
			Family: uint16(AddrFormatInet),
			Port:   a.Port,
			Addr:   a.Inet4,
		})
	case AddressKindInet6:
		return abi.MarshalSockaddrIn6(&abi.SockaddrIn6{
			Family:   uint16(AddrFormatInet6),
			Port:     a.Port,
			FlowInfo: a.FlowInfo,
			Addr:     a.Inet6,
			ScopeID:  a.ScopeID,
		})
	case AddressKindIB:
		return abi.MarshalSockaddrIB(&abi.SockaddrIB{
			Family: uint16(AddrFormatIB),
			Pkey:   a.IBPkey,
			SIB:    [2]uint64{a.IBSubnetPrefix, a.IBInterfaceID},
			SID:    a.IBServiceID,
			QPN:    a.IBQPN,
			QKey:   a.IBQKey,
		})
	case AddressKindEthernet:
		return abi.MarshalEthAddr(&abi.EthAddr{Mac: a.Mac})
	default:
		return nil
	}
}

// ParseAddress parses raw bytes produced by Bytes (or received from the
// fabric via GetName/GetPeer/a CONNREQ event) back into an Address, using
// format to select which variant to decode.
func ParseAddress(format AddrFormat, data []byte) (Address, error) {
	var a Address
	switch format {
	case AddrFormatInet:
		var s abi.SockaddrIn
		if err := abi.UnmarshalSockaddrIn(data, &s); err != nil {
			return Address{}, WrapError("ParseAddress", err)
		}
		a.Kind = AddressKindInet
		a.Inet4 = s.Addr
		a.Port = s.Port
	case AddrFormatInet6:
		var s abi.SockaddrIn6
		if err := abi.UnmarshalSockaddrIn6(data, &s); err != nil {
			return Address{}, WrapError("ParseAddress", err)
		}
		a.Kind = AddressKindInet6
		a.Inet6 = s.Addr
		a.Port = s.Port
		a.FlowInfo = s.FlowInfo
		a.ScopeID = s.ScopeID
	case AddrFormatIB:
		var s abi.SockaddrIB
		if err := abi.UnmarshalSockaddrIB(data, &s); err != nil {
			return Address{}, WrapError("ParseAddress", err)
		}
		a.Kind = AddressKindIB
		a.IBPkey = s.Pkey
		a.IBSubnetPrefix = s.SIB[0]
		a.IBInterfaceID = s.SIB[1]
		a.IBServiceID = s.SID
		a.IBQPN = s.QPN
		a.IBQKey = s.QKey
	case AddrFormatEFA:
		var e abi.EthAddr
		if err := abi.UnmarshalEthAddr(data, &e); err != nil {
			return Address{}, WrapError("ParseAddress", err)
		}
		a.Kind = AddressKindEthernet
		a.Mac = e.Mac
	default:
		return Address{}, NewError("ParseAddress", ErrcInvalidArgument, fmt.Sprintf("unknown address format %d", format))
	}
	return a, nil
}

// String renders a human-readable form of the address, for logging and the
// CLI glue (never the wire format).
func (a Address) String() string {
	switch a.Kind {
	case AddressKindInet:
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.Inet4[0], a.Inet4[1], a.Inet4[2], a.Inet4[3], a.Port)
	case AddressKindInet6:
		ip := net.IP(a.Inet6[:])
		return fmt.Sprintf("[%s]:%d", ip.String(), a.Port)
	case AddressKindIB:
		return fmt.Sprintf("ib:%016x%016x:qp=%d", a.IBSubnetPrefix, a.IBInterfaceID, a.IBQPN)
	case AddressKindEthernet:
		return net.HardwareAddr(a.Mac[:]).String()
	default:
		return "invalid-address"
	}
}
