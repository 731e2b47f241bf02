//go:build darwin || freebsd || netbsd || openbsd

package ndoracle

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/golibs/osutil/executil"

	"github.com/ndproxy6/ndppd/internal/aghos"
	"github.com/ndproxy6/ndppd/internal/ndaddr"
)

// routeOracle is the BSD/Darwin [Interface] implementation.  These kernels
// expose no netlink-style RIB dump, so IsLocal walks net.Interfaces directly
// and RouteIface shells out to the system "route" utility via
// aghos.RunCommand instead.
type routeOracle struct {
	local *addrSet
}

func newOracle() (o Interface) {
	return &routeOracle{local: newAddrSet()}
}

// type check
var _ Interface = (*routeOracle)(nil)

// Refresh implements the [Interface] interface for *routeOracle.
func (o *routeOracle) Refresh() (err error) {
	defer func() { err = errors.Annotate(err, "route oracle: refreshing: %w") }()

	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("listing interfaces: %w", err)
	}

	var addrs []ndaddr.Address
	for _, ifi := range ifaces {
		ifAddrs, aErr := ifi.Addrs()
		if aErr != nil {
			log.Debug("route oracle: addresses of %s: %s", ifi.Name, aErr)

			continue
		}

		for _, a := range ifAddrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok || ipNet.IP.To4() != nil {
				continue
			}

			ip, ok := netip.AddrFromSlice(ipNet.IP.To16())
			if !ok {
				continue
			}

			addr, nErr := ndaddr.NewAddress(ip.Unmap())
			if nErr != nil {
				continue
			}

			addrs = append(addrs, addr)
		}
	}

	o.local.reset(addrs)

	return nil
}

// IsLocal implements the [Interface] interface for *routeOracle.
func (o *routeOracle) IsLocal(addr ndaddr.Address) (ok bool) {
	return o.local.has(addr)
}

// RouteIface implements the [Interface] interface for *routeOracle by
// parsing "route -n get -inet6 <addr>"'s "interface: <name>" line.
func (o *routeOracle) RouteIface(addr ndaddr.Address) (name string, ok bool) {
	code, out, err := aghos.RunCommand(
		context.Background(),
		executil.SystemCommandConstructor{},
		"route", "-n", "get", "-inet6", addr.String(),
	)
	if err != nil || code != 0 {
		log.Debug("route oracle: querying route for %s: code %d, err %v", addr, code, err)

		return "", false
	}

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)

		const prefix = "interface:"
		if after, found := strings.CutPrefix(line, prefix); found {
			name = strings.TrimSpace(after)

			return name, name != ""
		}
	}

	return "", false
}
