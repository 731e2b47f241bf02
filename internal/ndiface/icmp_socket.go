package ndiface

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv6"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
	"github.com/ndproxy6/ndppd/internal/ndsock"
)

// icmpHopLimit is the hop limit Neighbor Discovery mandates for both unicast
// and multicast ND traffic, see RFC 4861 section 7.1.1.
const icmpHopLimit = 255

// icmpSocket is the raw, bound ICMPv6 socket used to send/receive Neighbor
// Solicitations and Advertisements on one interface, grounded on the
// icmp.ListenPacket/ipv6.PacketConn idiom used for Router Advertisements.
type icmpSocket struct {
	conn   *icmp.PacketConn
	pconn  *ipv6.PacketConn
	sock   *ndsock.Socket
	ifName string
}

// openICMPSocket opens and configures an ICMPv6 raw socket bound to ifName,
// then registers it in pollSet with handler.
func openICMPSocket(ifName string, pollSet *ndsock.PollSet, handler ndsock.Handler) (s *icmpSocket, err error) {
	conn, err := icmp.ListenPacket("ip6:ipv6-icmp", "::%"+ifName)
	if err != nil {
		return nil, fmt.Errorf("listening: %w", err)
	}

	pconn := conn.IPv6PacketConn()

	if err = pconn.SetHopLimit(icmpHopLimit); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("setting hop limit: %w", err)
	}

	if err = pconn.SetMulticastHopLimit(icmpHopLimit); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("setting multicast hop limit: %w", err)
	}

	filter := &ipv6.ICMPFilter{}
	filter.SetAll(true)
	filter.Accept(ipv6.ICMPTypeNeighborAdvertisement)

	if err = pconn.SetICMPFilter(filter); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("setting icmp filter: %w", err)
	}

	sock, err := pollSet.Register(conn, handler)
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("registering in poll set: %w", err)
	}

	return &icmpSocket{conn: conn, pconn: pconn, sock: sock, ifName: ifName}, nil
}

// send writes an already-encoded ICMPv6 payload to dst.
func (s *icmpSocket) send(payload []byte, dst ndaddr.Address) (err error) {
	b := dst.As16()
	addr := &net.IPAddr{IP: net.IP(b[:]), Zone: s.ifName}

	_, err = s.conn.WriteTo(payload, addr)
	if err != nil {
		return fmt.Errorf("icmp socket %s: writing to %s: %w", s.ifName, dst, err)
	}

	return nil
}

// recv reads one pending datagram and decodes it as a Neighbor Advertisement.
// ok is false once the socket would block (no more datagrams pending) or the
// datagram is malformed/unrelated, which the caller's loop treats the same
// way: stop draining.
func (s *icmpSocket) recv() (taddr ndaddr.Address, router, solicited bool, saddr ndaddr.Address, ok bool) {
	// A past deadline makes ReadFrom return immediately with
	// os.ErrDeadlineExceeded if no datagram is already queued, giving this
	// raw (normally blocking) socket the non-blocking semantics [ndsock]
	// expects.
	_ = s.conn.SetReadDeadline(time.Now())

	buf := make([]byte, 1500)

	n, from, err := s.conn.ReadFrom(buf)
	if err != nil {
		if !errors.Is(err, os.ErrDeadlineExceeded) {
			log.Debug("ndiface: icmpv6 socket %s: read: %s", s.ifName, err)
		}

		return ndaddr.Address{}, false, false, ndaddr.Address{}, false
	}

	ipAddr, ok2 := from.(*net.IPAddr)
	if !ok2 {
		return ndaddr.Address{}, false, false, ndaddr.Address{}, false
	}

	ip, ok2 := netip.AddrFromSlice(ipAddr.IP)
	if !ok2 {
		return ndaddr.Address{}, false, false, ndaddr.Address{}, false
	}

	saddr, err = ndaddr.NewAddress(ip)
	if err != nil {
		return ndaddr.Address{}, false, false, ndaddr.Address{}, false
	}

	taddr, router, solicited, _, decOK := DecodeAdvert(buf[:n])
	if !decOK {
		return ndaddr.Address{}, false, false, ndaddr.Address{}, false
	}

	return taddr, router, solicited, saddr, true
}

func (s *icmpSocket) Close() (err error) {
	if s.sock != nil {
		_ = s.sock.Close()
	}

	return s.conn.Close()
}
