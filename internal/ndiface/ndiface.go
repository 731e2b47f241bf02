// Package ndiface implements the logical network device backing one kernel
// interface: a pair of sockets (ICMPv6 and raw packet), classification of
// inbound Neighbor Discovery messages, and restoration of the
// ALLMULTI/PROMISC flags it temporarily changes.
package ndiface

import (
	"fmt"
	"net"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/golibs/netutil"

	"github.com/ndproxy6/ndppd/internal/aghalg"
	"github.com/ndproxy6/ndppd/internal/ndaddr"
	"github.com/ndproxy6/ndppd/internal/ndoracle"
	"github.com/ndproxy6/ndppd/internal/ndsock"
)

// ProxyBackref is the narrow view of a proxy that an Interface needs for its
// ingress dispatch.  It is declared here, rather than imported from
// ndproxy, because ndproxy needs *Interface (for Rule.Daughter and
// Session.Ifaces) — declaring the reverse dependency here keeps the import
// graph acyclic while still letting Interface call back into its owning
// proxies.
type ProxyBackref interface {
	// HandleSolicit is called for every solicit arriving on an interface this
	// proxy serves.
	HandleSolicit(saddr, taddr ndaddr.Address, ifaceName string)

	// HandleAdvert is called for every advert arriving on an interface that is
	// a daughter (parent-of-advert) for this proxy.
	HandleAdvert(saddr, taddr ndaddr.Address, ifaceName string)

	// HandleStatelessAdvert is called for reverse-path maintenance: a solicit
	// seen on a parent interface whose requester matches one of this proxy's
	// daughter rules.
	HandleStatelessAdvert(saddr, taddr ndaddr.Address, ifaceName string)

	// DaughterAutovia reports whether any rule of this proxy has ifaceName as
	// its daughter and its CIDR contains taddr, returning that rule's autovia
	// flag.
	DaughterAutovia(taddr ndaddr.Address, ifaceName string) (autovia bool, matched bool)
}

// Interface owns the sockets for one kernel network device.
type Interface struct {
	oracle ndoracle.Interface
	pollSet *ndsock.PollSet

	icmpSock *icmpSocket
	pktSock  *packetSocket

	name  string
	index int
	hwAddr net.HardwareAddr

	savedAllmulti aghalg.NullBool
	savedPromisc  aghalg.NullBool

	// serves are proxies that answer solicits arriving on this interface
	// (this interface is their parent).
	serves []ProxyBackref
	// parents are proxies that probe this interface as a daughter and expect
	// adverts/solicit-replies back from it.
	parents []ProxyBackref

	promiscuous bool
}

// Open opens the ICMPv6 socket for name and registers it with pollSet.  The
// packet socket (needed only on interfaces that serve solicits, i.e. parent
// interfaces) is opened separately via [Interface.OpenPacketSocket], since
// daughter-only interfaces never need it.
func Open(name string, oracle ndoracle.Interface, pollSet *ndsock.PollSet) (ifc *Interface, err error) {
	defer func() { err = errors.Annotate(err, "opening interface %s: %w", name) }()

	netIfc, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("looking up interface: %w", err)
	}

	if err = netutil.ValidateMAC(netIfc.HardwareAddr); err != nil {
		// Point-to-point and tunnel devices legitimately have no link-layer
		// address, so this is not fatal; the Source/Target Link-Layer Address
		// options sent from them carry an all-zero address.
		log.Debug("ndiface: interface %s: %s", name, err)
	}

	ifc = &Interface{
		oracle: oracle,
		pollSet: pollSet,
		name:    name,
		index:   netIfc.Index,
		hwAddr:  netIfc.HardwareAddr,
	}

	ifc.icmpSock, err = openICMPSocket(name, pollSet, ifc.dispatchAdvert)
	if err != nil {
		return nil, fmt.Errorf("opening icmpv6 socket: %w", err)
	}

	return ifc, nil
}

// Name returns the interface's device name.
func (ifc *Interface) Name() (name string) {
	return ifc.name
}

// Index returns the interface's kernel index.
func (ifc *Interface) Index() (index int) {
	return ifc.index
}

// OpenPacketSocket opens the BPF-filtered raw packet socket used to observe
// solicits arriving on this interface.  It is a no-op if already open.
func (ifc *Interface) OpenPacketSocket() (err error) {
	if ifc.pktSock != nil {
		return nil
	}

	defer func() { err = errors.Annotate(err, "opening packet socket on %s: %w", ifc.name) }()

	ifc.pktSock, err = openPacketSocket(ifc.name, ifc.pollSet, ifc.dispatchSolicit)
	if err != nil {
		return err
	}

	return ifc.applyFlags()
}

// AddServe registers proxy as answering solicits arriving on ifc, opening the
// packet socket on first reference and enabling promiscuous mode if
// requested by any serving proxy.
func (ifc *Interface) AddServe(proxy ProxyBackref, promiscuous bool) (err error) {
	ifc.serves = append(ifc.serves, proxy)
	if promiscuous {
		ifc.promiscuous = true
	}

	if err = ifc.OpenPacketSocket(); err != nil {
		return err
	}

	return ifc.applyFlags()
}

// RemoveServe deregisters proxy.  When the last serving and parent reference
// is gone, the interface's sockets are closed and its flags restored.
func (ifc *Interface) RemoveServe(proxy ProxyBackref) {
	ifc.serves = removeBackref(ifc.serves, proxy)
	ifc.teardownIfUnreferenced()
}

// AddParent registers proxy as probing ifc as a daughter.
func (ifc *Interface) AddParent(proxy ProxyBackref) {
	ifc.parents = append(ifc.parents, proxy)
}

// RemoveParent deregisters proxy as a daughter user of ifc.
func (ifc *Interface) RemoveParent(proxy ProxyBackref) {
	ifc.parents = removeBackref(ifc.parents, proxy)
	ifc.teardownIfUnreferenced()
}

// Referenced reports whether any proxy still references ifc.
func (ifc *Interface) Referenced() (ok bool) {
	return len(ifc.serves) > 0 || len(ifc.parents) > 0
}

func removeBackref(s []ProxyBackref, target ProxyBackref) (out []ProxyBackref) {
	for _, p := range s {
		if p != target {
			out = append(out, p)
		}
	}

	return out
}

func (ifc *Interface) teardownIfUnreferenced() {
	if ifc.Referenced() {
		return
	}

	if err := ifc.Close(); err != nil {
		log.Error("ndiface: closing unreferenced interface %s: %s", ifc.name, err)
	}
}

// Close closes both sockets and restores any ALLMULTI/PROMISC flags ifc
// changed.
func (ifc *Interface) Close() (err error) {
	var errs []error

	if ifc.pktSock != nil {
		errs = append(errs, ifc.restoreFlags())
		errs = append(errs, ifc.pktSock.Close())
		ifc.pktSock = nil
	}

	if ifc.icmpSock != nil {
		errs = append(errs, ifc.icmpSock.Close())
		ifc.icmpSock = nil
	}

	return errors.Join(errs...)
}

// SendSolicit emits a Neighbor Solicitation for taddr on ifc's ICMPv6 socket,
// destined for the solicited-node multicast address of taddr.
func (ifc *Interface) SendSolicit(taddr ndaddr.Address) (err error) {
	if ifc.icmpSock == nil {
		return fmt.Errorf("interface %s has no icmpv6 socket", ifc.name)
	}

	payload := EncodeSolicit(taddr, ifc.hwAddr)

	return ifc.icmpSock.send(payload, taddr.SolicitedNodeMulticast())
}

// SendAdvert emits a Neighbor Advertisement for taddr to dst on ifc's ICMPv6
// socket, with the ROUTER flag set iff router.
func (ifc *Interface) SendAdvert(taddr, dst ndaddr.Address, router bool) (err error) {
	if ifc.icmpSock == nil {
		return fmt.Errorf("interface %s has no icmpv6 socket", ifc.name)
	}

	payload := EncodeAdvert(taddr, router, dst.IsUnicast(), ifc.hwAddr)

	return ifc.icmpSock.send(payload, dst)
}

// dispatchAdvert drains every pending Neighbor Advertisement on the ICMPv6
// socket, dispatching it to whichever owning proxy treats this interface as
// a daughter for the advertised target.
func (ifc *Interface) dispatchAdvert() {
	for {
		taddr, _, _, saddr, ok := ifc.icmpSock.recv()
		if !ok {
			return
		}

		if ifc.oracle.IsLocal(saddr) {
			continue
		}

		for _, p := range ifc.parents {
			if autovia, matched := p.DaughterAutovia(taddr, ifc.name); matched {
				_ = autovia

				p.HandleAdvert(saddr, taddr, ifc.name)
			}
		}
	}
}

// dispatchSolicit drains every pending Neighbor Solicitation observed on the
// packet socket, dispatching it to whichever owning proxy treats this
// interface as a parent.
func (ifc *Interface) dispatchSolicit() {
	for {
		saddr, taddr, _, ok := ifc.pktSock.recv()
		if !ok {
			return
		}

		if ifc.oracle.IsLocal(saddr) {
			continue
		}

		if ifc.oracle.IsLocal(taddr) {
			if err := ifc.SendAdvert(taddr, saddr, false); err != nil {
				log.Error("ndiface: sending local advert on %s: %s", ifc.name, err)
			}

			continue
		}

		for _, p := range ifc.parents {
			if _, matched := p.DaughterAutovia(saddr, ifc.name); matched {
				p.HandleStatelessAdvert(saddr, saddr, ifc.name)
			}
		}

		for _, p := range ifc.serves {
			p.HandleSolicit(saddr, taddr, ifc.name)
		}
	}
}
