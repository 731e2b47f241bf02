package ndiface

import (
	"encoding/binary"
	"net"
	"net/netip"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
)

// ICMPv6 message types used by Neighbor Discovery, see RFC 4861.
const (
	icmpv6NeighborSolicit = 135
	icmpv6NeighborAdvert  = 136
)

// Neighbor Discovery option types, RFC 4861 section 4.6.
const (
	ndOptSourceLinkAddr = 1
	ndOptTargetLinkAddr = 2
)

// Neighbor Advertisement flags, RFC 4861 section 4.4.
const (
	naFlagRouter    = 0x80
	naFlagSolicited = 0x40
	naFlagOverride  = 0x20
)

// Offsets into a raw Ethernet frame carrying an IPv6 datagram.
const (
	etherHdrLen  = 14
	etherTypeOff = 12
	ipv6HdrLen   = 40
	// ipv6NextHdrOff is the offset of the Next Header byte within the IPv6
	// header.
	ipv6NextHdrOff  = 6
	ipv6SrcAddrOff  = 8
	ipv6DstAddrOff  = 24
	icmpv6NextHdr   = 58
	etherTypeIPv6   = 0x86dd
	icmpTargetOff   = 8
	icmpOptsOff     = 24
	minSolicitLen   = icmpOptsOff
	linkAddrOptLen  = 8 // type(1) + length(1) + MAC(6)
)

// EncodeSolicit returns the ICMPv6 payload (type/code/checksum/reserved +
// target + Source Link-Layer Address option) for a Neighbor Solicitation
// targeting taddr.  The checksum is left zero: raw ICMPv6 sockets have the
// kernel compute it unconditionally.
func EncodeSolicit(taddr ndaddr.Address, srcMAC net.HardwareAddr) (b []byte) {
	b = make([]byte, icmpOptsOff+linkAddrOptLen)
	b[0] = icmpv6NeighborSolicit

	t := taddr.As16()
	copy(b[icmpTargetOff:icmpOptsOff], t[:])

	b[icmpOptsOff] = ndOptSourceLinkAddr
	b[icmpOptsOff+1] = 1 // length, in units of 8 octets
	copy(b[icmpOptsOff+2:], padMAC(srcMAC))

	return b
}

// EncodeAdvert returns the ICMPv6 payload for a Neighbor Advertisement
// carrying taddr, with the ROUTER flag set iff router and the SOLICITED flag
// set iff solicited.
func EncodeAdvert(taddr ndaddr.Address, router, solicited bool, srcMAC net.HardwareAddr) (b []byte) {
	b = make([]byte, icmpOptsOff+linkAddrOptLen)
	b[0] = icmpv6NeighborAdvert

	var flags byte
	if router {
		flags |= naFlagRouter
	}
	if solicited {
		flags |= naFlagSolicited
	}
	b[4] = flags

	t := taddr.As16()
	copy(b[icmpTargetOff:icmpOptsOff], t[:])

	b[icmpOptsOff] = ndOptTargetLinkAddr
	b[icmpOptsOff+1] = 1
	copy(b[icmpOptsOff+2:], padMAC(srcMAC))

	return b
}

// padMAC returns mac truncated or zero-extended to exactly 6 bytes.
func padMAC(mac net.HardwareAddr) (b [6]byte) {
	copy(b[:], mac)

	return b
}

// DecodeSolicit parses the ICMPv6 payload of a Neighbor Solicitation (as
// delivered by an ICMPv6 raw socket, or sliced out of a raw Ethernet frame by
// [DecodeEtherSolicit]).
func DecodeSolicit(b []byte) (taddr ndaddr.Address, srcMAC net.HardwareAddr, ok bool) {
	if len(b) < minSolicitLen || b[0] != icmpv6NeighborSolicit {
		return ndaddr.Address{}, nil, false
	}

	taddr, ok = addrFromBytes(b[icmpTargetOff:icmpOptsOff])
	if !ok {
		return ndaddr.Address{}, nil, false
	}

	srcMAC = linkAddrOption(b, ndOptSourceLinkAddr)

	return taddr, srcMAC, true
}

// DecodeAdvert parses the ICMPv6 payload of a Neighbor Advertisement.
func DecodeAdvert(b []byte) (taddr ndaddr.Address, router, solicited bool, dstMAC net.HardwareAddr, ok bool) {
	if len(b) < minSolicitLen || b[0] != icmpv6NeighborAdvert {
		return ndaddr.Address{}, false, false, nil, false
	}

	taddr, ok = addrFromBytes(b[icmpTargetOff:icmpOptsOff])
	if !ok {
		return ndaddr.Address{}, false, false, nil, false
	}

	router = b[4]&naFlagRouter != 0
	solicited = b[4]&naFlagSolicited != 0
	dstMAC = linkAddrOption(b, ndOptTargetLinkAddr)

	return taddr, router, solicited, dstMAC, true
}

// linkAddrOption returns the 6-byte MAC carried by the first option of type
// optType, or nil if absent or truncated.
func linkAddrOption(b []byte, optType byte) (mac net.HardwareAddr) {
	if len(b) < icmpOptsOff+linkAddrOptLen || b[icmpOptsOff] != optType {
		return nil
	}

	return net.HardwareAddr(append([]byte(nil), b[icmpOptsOff+2:icmpOptsOff+linkAddrOptLen]...))
}

func addrFromBytes(b []byte) (a ndaddr.Address, ok bool) {
	if len(b) != 16 {
		return ndaddr.Address{}, false
	}

	ip := netip.AddrFrom16([16]byte(b))
	a, err := ndaddr.NewAddress(ip)

	return a, err == nil
}

// DecodeEtherSolicit parses a full Ethernet frame received on the packet
// socket, returning the IPv6 source/target and the requester's MAC, per the
// byte offsets fixed by the BPF filter: Ethernet header at 0, IPv6 header at
// 14, ICMPv6 Neighbor Solicitation at 14+40.
func DecodeEtherSolicit(frame []byte) (saddr, taddr ndaddr.Address, srcMAC net.HardwareAddr, ok bool) {
	if len(frame) < etherHdrLen+ipv6HdrLen+minSolicitLen {
		return ndaddr.Address{}, ndaddr.Address{}, nil, false
	}

	if binary.BigEndian.Uint16(frame[etherTypeOff:etherHdrLen]) != etherTypeIPv6 {
		return ndaddr.Address{}, ndaddr.Address{}, nil, false
	}

	ip6 := frame[etherHdrLen:]
	if ip6[ipv6NextHdrOff] != icmpv6NextHdr {
		return ndaddr.Address{}, ndaddr.Address{}, nil, false
	}

	saddr, ok = addrFromBytes(ip6[ipv6SrcAddrOff : ipv6SrcAddrOff+16])
	if !ok {
		return ndaddr.Address{}, ndaddr.Address{}, nil, false
	}

	icmp := ip6[ipv6HdrLen:]

	taddr, srcMAC, ok = DecodeSolicit(icmp)

	return saddr, taddr, srcMAC, ok
}
