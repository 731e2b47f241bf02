// Package ndoracle implements the read-only "is this address local?" /
// "which interface routes to this prefix?" oracle that the proxy consults
// when dispatching auto-mode rules and suppressing loopback traffic.
//
// It is the neighbor-discovery analogue of [arpdb]: instead of reporting the
// ARP/NDP neighbor table, it reports the kernel's own local-address and
// routing-table view via netlink.
package ndoracle

import (
	"sync"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
)

// Interface is the read-only oracle consulted by [ndproxy.Proxy] for
// loopback suppression and auto-mode daughter resolution.
type Interface interface {
	// Refresh re-reads the kernel's local-address table.  It must be safe
	// for concurrent use.
	Refresh() (err error)

	// IsLocal reports whether addr is configured on any local interface.
	// It must be safe for concurrent use.
	IsLocal(addr ndaddr.Address) (ok bool)

	// RouteIface resolves the egress interface name the kernel routing
	// table would pick for addr.  It must be safe for concurrent use.
	RouteIface(addr ndaddr.Address) (name string, ok bool)
}

// New returns the [Interface] implementation appropriate for the OS.
func New() (oracle Interface) {
	return newOracle()
}

// Empty is the [Interface] implementation that reports nothing local and
// resolves no routes.  It is useful in tests and on platforms without a
// netlink oracle implementation.
type Empty struct{}

// type check
var _ Interface = Empty{}

// Refresh implements the [Interface] interface for Empty.
func (Empty) Refresh() (err error) { return nil }

// IsLocal implements the [Interface] interface for Empty.
func (Empty) IsLocal(ndaddr.Address) (ok bool) { return false }

// RouteIface implements the [Interface] interface for Empty.
func (Empty) RouteIface(ndaddr.Address) (name string, ok bool) { return "", false }

// addrSet is the shared, mutex-protected storage for the local-address
// table, mirroring arpdb's neighs helper.
type addrSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

func newAddrSet() (s *addrSet) {
	return &addrSet{seen: map[string]struct{}{}}
}

func (s *addrSet) reset(addrs []ndaddr.Address) {
	seen := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		seen[a.String()] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = seen
}

func (s *addrSet) has(a ndaddr.Address) (ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok = s.seen[a.String()]

	return ok
}
