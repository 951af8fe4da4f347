package abi

import (
	"encoding/binary"
	"errors"
)

// ErrInsufficientData is returned when a byte slice is too short to hold the
// structure being unmarshaled.
var ErrInsufficientData = errors.New("abi: insufficient data")

// SockaddrIn mirrors struct sockaddr_in (16 bytes, network byte order).
type SockaddrIn struct {
	Family uint16
	Port   uint16
	Addr   [4]byte
	Zero   [8]byte
}

// MarshalSockaddrIn serializes an IPv4 socket address the way libfabric
// exchanges it on the wire: big-endian port and address, family tag first.
func MarshalSockaddrIn(s *SockaddrIn) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint16(buf[0:2], s.Family)
	binary.BigEndian.PutUint16(buf[2:4], s.Port)
	copy(buf[4:8], s.Addr[:])
	copy(buf[8:16], s.Zero[:])
	return buf
}

// UnmarshalSockaddrIn parses bytes produced by MarshalSockaddrIn (or
// received from the fabric via GetName/GetPeer/CONNREQ).
func UnmarshalSockaddrIn(data []byte, s *SockaddrIn) error {
	if len(data) < 16 {
		return ErrInsufficientData
	}
	s.Family = binary.LittleEndian.Uint16(data[0:2])
	s.Port = binary.BigEndian.Uint16(data[2:4])
	copy(s.Addr[:], data[4:8])
	copy(s.Zero[:], data[8:16])
	return nil
}

// SockaddrIn6 mirrors struct sockaddr_in6 (28 bytes).
type SockaddrIn6 struct {
	Family   uint16
	Port     uint16
	FlowInfo uint32
	Addr     [16]byte
	ScopeID  uint32
}

func MarshalSockaddrIn6(s *SockaddrIn6) []byte {
	buf := make([]byte, 28)
	binary.LittleEndian.PutUint16(buf[0:2], s.Family)
	binary.BigEndian.PutUint16(buf[2:4], s.Port)
	binary.BigEndian.PutUint32(buf[4:8], s.FlowInfo)
	copy(buf[8:24], s.Addr[:])
	binary.LittleEndian.PutUint32(buf[24:28], s.ScopeID)
	return buf
}

func UnmarshalSockaddrIn6(data []byte, s *SockaddrIn6) error {
	if len(data) < 28 {
		return ErrInsufficientData
	}
	s.Family = binary.LittleEndian.Uint16(data[0:2])
	s.Port = binary.BigEndian.Uint16(data[2:4])
	s.FlowInfo = binary.BigEndian.Uint32(data[4:8])
	copy(s.Addr[:], data[8:24])
	s.ScopeID = binary.LittleEndian.Uint32(data[24:28])
	return nil
}

// SockaddrIB mirrors struct sockaddr_ib (the GID + service-id + queue-pair
// number triple libfabric's Verbs provider exchanges for RDM/MSG endpoints).
type SockaddrIB struct {
	Family  uint16
	Pkey    uint16
	Flow    uint32
	SIB     [2]uint64 // subnet-prefix, interface-id (the 128-bit GID)
	SID     uint64    // service ID
	QPN     uint32
	QKey    uint32
}

const sockaddrIBSize = 2 + 2 + 4 + 16 + 8 + 4 + 4

func MarshalSockaddrIB(s *SockaddrIB) []byte {
	buf := make([]byte, sockaddrIBSize)
	binary.LittleEndian.PutUint16(buf[0:2], s.Family)
	binary.LittleEndian.PutUint16(buf[2:4], s.Pkey)
	binary.LittleEndian.PutUint32(buf[4:8], s.Flow)
	binary.BigEndian.PutUint64(buf[8:16], s.SIB[0])
	binary.BigEndian.PutUint64(buf[16:24], s.SIB[1])
	binary.LittleEndian.PutUint64(buf[24:32], s.SID)
	binary.LittleEndian.PutUint32(buf[32:36], s.QPN)
	binary.LittleEndian.PutUint32(buf[36:40], s.QKey)
	return buf
}

func UnmarshalSockaddrIB(data []byte, s *SockaddrIB) error {
	if len(data) < sockaddrIBSize {
		return ErrInsufficientData
	}
	s.Family = binary.LittleEndian.Uint16(data[0:2])
	s.Pkey = binary.LittleEndian.Uint16(data[2:4])
	s.Flow = binary.LittleEndian.Uint32(data[4:8])
	s.SIB[0] = binary.BigEndian.Uint64(data[8:16])
	s.SIB[1] = binary.BigEndian.Uint64(data[16:24])
	s.SID = binary.LittleEndian.Uint64(data[24:32])
	s.QPN = binary.LittleEndian.Uint32(data[32:36])
	s.QKey = binary.LittleEndian.Uint32(data[36:40])
	return nil
}

// EthAddr mirrors the 6-byte MAC address libfabric's EFA/raw-Ethernet
// address format carries, padded to a fixed 16-byte slot so it shares a
// union layout with the other address kinds.
type EthAddr struct {
	Mac [6]byte
	Pad [10]byte
}

func MarshalEthAddr(e *EthAddr) []byte {
	buf := make([]byte, 16)
	copy(buf[0:6], e.Mac[:])
	copy(buf[6:16], e.Pad[:])
	return buf
}

func UnmarshalEthAddr(data []byte, e *EthAddr) error {
	if len(data) < 16 {
		return ErrInsufficientData
	}
	copy(e.Mac[:], data[0:6])
	copy(e.Pad[:], data[6:16])
	return nil
}

// MarshalRmaIOV/UnmarshalRmaIOV round-trip the remote-memory descriptor
// triple for the (rare) case a caller wants to ship it themselves instead of
// using their own out-of-band channel.
func MarshalRmaIOV(v *RmaIOV) []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:8], v.Addr)
	binary.LittleEndian.PutUint64(buf[8:16], v.Len)
	binary.LittleEndian.PutUint64(buf[16:24], v.Key)
	return buf
}

func UnmarshalRmaIOV(data []byte, v *RmaIOV) error {
	if len(data) < 24 {
		return ErrInsufficientData
	}
	v.Addr = binary.LittleEndian.Uint64(data[0:8])
	v.Len = binary.LittleEndian.Uint64(data[8:16])
	v.Key = binary.LittleEndian.Uint64(data[16:24])
	return nil
}
