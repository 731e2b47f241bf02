//go:build linux

package ndoracle

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
)

// netlinkOracle is the Linux [Interface] implementation, backed by the
// rtnetlink address dump (for IsLocal) and a one-shot RTM_GETROUTE request
// per call (for RouteIface): a cached local-address set plus an on-demand
// route query.
type netlinkOracle struct {
	local *addrSet
}

func newOracle() (o Interface) {
	return &netlinkOracle{local: newAddrSet()}
}

// type check
var _ Interface = (*netlinkOracle)(nil)

// Refresh implements the [Interface] interface for *netlinkOracle.
func (o *netlinkOracle) Refresh() (err error) {
	defer func() { err = errors.Annotate(err, "netlink oracle: refreshing: %w") }()

	data, err := unix.NetlinkRIB(unix.RTM_GETADDR, unix.AF_INET6)
	if err != nil {
		return fmt.Errorf("dumping addresses: %w", err)
	}

	msgs, err := unix.ParseNetlinkMessage(data)
	if err != nil {
		return fmt.Errorf("parsing netlink messages: %w", err)
	}

	addrs := make([]ndaddr.Address, 0, len(msgs))
	for _, m := range msgs {
		if m.Header.Type != unix.RTM_NEWADDR {
			continue
		}

		if len(m.Data) < unix.SizeofIfAddrmsg {
			continue
		}

		attrs, aerr := unix.ParseNetlinkRouteAttr(&m)
		if aerr != nil {
			log.Debug("netlink oracle: parsing route attrs: %s", aerr)

			continue
		}

		for _, a := range attrs {
			if a.Attr.Type != unix.IFA_ADDRESS || len(a.Value) != 16 {
				continue
			}

			ip, ok := netip.AddrFromSlice(a.Value)
			if !ok {
				continue
			}

			addr, aerr := ndaddr.NewAddress(ip)
			if aerr != nil {
				continue
			}

			addrs = append(addrs, addr)
		}
	}

	o.local.reset(addrs)

	return nil
}

// IsLocal implements the [Interface] interface for *netlinkOracle.
func (o *netlinkOracle) IsLocal(addr ndaddr.Address) (ok bool) {
	return o.local.has(addr)
}

// rtMsgLen is the size of struct rtmsg from <linux/rtnetlink.h>.
const rtMsgLen = 12

// encodeRouteGetRequest builds the body of an RTM_GETROUTE request asking
// the kernel which route it would use to reach addr, equivalent to
// "ip -6 route get addr".
func encodeRouteGetRequest(addr ndaddr.Address) (body []byte) {
	rtm := make([]byte, rtMsgLen)
	rtm[0] = unix.AF_INET6 // rtm_family
	rtm[1] = 128           // rtm_dst_len: exact-match query

	ae := netlink.NewAttributeEncoder()
	b := addr.As16()
	ae.Bytes(unix.RTA_DST, b[:])
	attrs, _ := ae.Encode()

	return append(rtm, attrs...)
}

// RouteIface implements the [Interface] interface for *netlinkOracle.
func (o *netlinkOracle) RouteIface(addr ndaddr.Address) (name string, ok bool) {
	conn, err := netlink.Dial(unix.NETLINK_ROUTE, nil)
	if err != nil {
		log.Debug("netlink oracle: dialing route socket: %s", err)

		return "", false
	}
	defer func() { _ = conn.Close() }()

	req := netlink.Message{
		Header: netlink.Header{
			Type:  netlink.HeaderType(unix.RTM_GETROUTE),
			Flags: netlink.Request,
		},
		Data: encodeRouteGetRequest(addr),
	}

	msgs, err := conn.Execute(req)
	if err != nil {
		log.Debug("netlink oracle: querying route for %s: %s", addr, err)

		return "", false
	}

	for _, m := range msgs {
		if len(m.Data) < rtMsgLen {
			continue
		}

		ad, derr := netlink.NewAttributeDecoder(m.Data[rtMsgLen:])
		if derr != nil {
			continue
		}

		for ad.Next() {
			if ad.Type() != unix.RTA_OIF {
				continue
			}

			idx := int(ad.Uint32())

			iface, ierr := net.InterfaceByIndex(idx)
			if ierr != nil {
				return "", false
			}

			return iface.Name, true
		}
	}

	return "", false
}
