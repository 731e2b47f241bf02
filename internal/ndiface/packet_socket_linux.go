//go:build linux

package ndiface

import (
	"fmt"
	"net"
	"time"
	"unsafe"

	"github.com/mdlayher/ethernet"
	"github.com/mdlayher/packet"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/ndproxy6/ndppd/internal/aghalg"
	"github.com/ndproxy6/ndppd/internal/ndaddr"
	"github.com/ndproxy6/ndppd/internal/ndsock"
)

// solicitFilter is the classic BPF program attached to the packet socket:
// accept iff ether_type==IPv6, next_header==ICMPv6, icmp6_type==Neighbor
// Solicit; drop otherwise.
func solicitFilter() (raw []bpf.RawInstruction, err error) {
	prog := []bpf.Instruction{
		bpf.LoadAbsolute{Off: etherTypeOff, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv6, SkipFalse: 5},
		bpf.LoadAbsolute{Off: etherHdrLen + ipv6NextHdrOff, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: icmpv6NextHdr, SkipFalse: 3},
		bpf.LoadAbsolute{Off: etherHdrLen + ipv6HdrLen, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: icmpv6NeighborSolicit, SkipFalse: 1},
		bpf.RetConstant{Val: 0xffff},
		bpf.RetConstant{Val: 0},
	}

	return bpf.Assemble(prog)
}

// packetSocket is the BPF-filtered AF_PACKET socket used to observe solicits
// on a parent interface, grounded on conn_unix.go's packet.Listen usage.
type packetSocket struct {
	conn   *packet.Conn
	sock   *ndsock.Socket
	ifName string
}

func openPacketSocket(ifName string, pollSet *ndsock.PollSet, handler ndsock.Handler) (s *packetSocket, err error) {
	netIfc, err := net.InterfaceByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("looking up interface: %w", err)
	}

	filter, err := solicitFilter()
	if err != nil {
		return nil, fmt.Errorf("assembling bpf filter: %w", err)
	}

	conn, err := packet.Listen(netIfc, packet.Raw, int(ethernet.EtherTypeIPv6), &packet.Config{
		Filter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("listening: %w", err)
	}

	sock, err := pollSet.Register(conn, handler)
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("registering in poll set: %w", err)
	}

	return &packetSocket{conn: conn, sock: sock, ifName: ifName}, nil
}

func (s *packetSocket) recv() (saddr, taddr ndaddr.Address, srcMAC net.HardwareAddr, ok bool) {
	_ = s.conn.SetReadDeadline(time.Now())

	buf := make([]byte, 1514)

	n, _, err := s.conn.ReadFrom(buf)
	if err != nil {
		return ndaddr.Address{}, ndaddr.Address{}, nil, false
	}

	sa, ta, mac, decOK := DecodeEtherSolicit(buf[:n])
	if !decOK {
		return ndaddr.Address{}, ndaddr.Address{}, nil, false
	}

	return sa, ta, mac, true
}

func (s *packetSocket) Close() (err error) {
	if s.sock != nil {
		_ = s.sock.Close()
	}

	return s.conn.Close()
}

// applyFlags enables ALLMULTI (always, while the packet socket is active)
// and PROMISC (iff ifc.promiscuous), saving previous values on first change.
func (ifc *Interface) applyFlags() (err error) {
	flags, err := getIfFlags(ifc.name)
	if err != nil {
		return fmt.Errorf("reading flags: %w", err)
	}

	want := flags
	want |= unix.IFF_ALLMULTI
	if ifc.promiscuous {
		want |= unix.IFF_PROMISC
	}

	if want == flags {
		return nil
	}

	if ifc.savedAllmulti == aghalg.NBNull {
		ifc.savedAllmulti = aghalg.BoolToNullBool(flags&unix.IFF_ALLMULTI != 0)
	}
	if ifc.promiscuous && ifc.savedPromisc == aghalg.NBNull {
		ifc.savedPromisc = aghalg.BoolToNullBool(flags&unix.IFF_PROMISC != 0)
	}

	return setIfFlags(ifc.name, want)
}

// restoreFlags reverts the ALLMULTI/PROMISC flags to the values observed
// before this interface first changed them.
func (ifc *Interface) restoreFlags() (err error) {
	if ifc.savedAllmulti == aghalg.NBNull && ifc.savedPromisc == aghalg.NBNull {
		return nil
	}

	flags, err := getIfFlags(ifc.name)
	if err != nil {
		return fmt.Errorf("reading flags: %w", err)
	}

	if ifc.savedAllmulti != aghalg.NBNull {
		flags = setFlagBit(flags, unix.IFF_ALLMULTI, ifc.savedAllmulti == aghalg.NBTrue)
	}
	if ifc.savedPromisc != aghalg.NBNull {
		flags = setFlagBit(flags, unix.IFF_PROMISC, ifc.savedPromisc == aghalg.NBTrue)
	}

	ifc.savedAllmulti = aghalg.NBNull
	ifc.savedPromisc = aghalg.NBNull

	return setIfFlags(ifc.name, flags)
}

func setFlagBit(flags int32, bit int32, set bool) (out int32) {
	if set {
		return flags | bit
	}

	return flags &^ bit
}

// ifreq mirrors struct ifreq from <net/if.h> for the subset of fields used
// here (name + short flags field).
type ifreq struct {
	name  [unix.IFNAMSIZ]byte
	flags int16
	_     [22]byte // pad to the kernel's union size
}

func getIfFlags(name string) (flags int32, err error) {
	fd, err := unix.Socket(unix.AF_INET6, unix.SOCK_DGRAM, 0)
	if err != nil {
		return 0, fmt.Errorf("opening control socket: %w", err)
	}
	defer unix.Close(fd)

	var req ifreq
	copy(req.name[:], name)

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(unix.SIOCGIFFLAGS), uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return 0, fmt.Errorf("SIOCGIFFLAGS: %w", errno)
	}

	return int32(req.flags), nil
}

func setIfFlags(name string, flags int32) (err error) {
	fd, err := unix.Socket(unix.AF_INET6, unix.SOCK_DGRAM, 0)
	if err != nil {
		return fmt.Errorf("opening control socket: %w", err)
	}
	defer unix.Close(fd)

	var req ifreq
	copy(req.name[:], name)
	req.flags = int16(flags)

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(unix.SIOCSIFFLAGS), uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return fmt.Errorf("SIOCSIFFLAGS: %w", errno)
	}

	return nil
}
