//go:build !linux

package ndiface

import (
	"fmt"
	"net"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
	"github.com/ndproxy6/ndppd/internal/ndsock"
)

// packetSocket is unimplemented outside Linux: BPF-filtered AF_PACKET
// sockets and the ALLMULTI/PROMISC ioctls are Linux-specific. Daughter-only
// deployments, which only ever use the ICMPv6 socket, are unaffected.
type packetSocket struct{}

func openPacketSocket(ifName string, pollSet *ndsock.PollSet, handler ndsock.Handler) (s *packetSocket, err error) {
	return nil, fmt.Errorf("packet socket on %s: raw packet sockets are not supported on this platform", ifName)
}

func (s *packetSocket) recv() (saddr, taddr ndaddr.Address, srcMAC net.HardwareAddr, ok bool) {
	return ndaddr.Address{}, ndaddr.Address{}, nil, false
}

func (s *packetSocket) Close() (err error) {
	return nil
}

func (ifc *Interface) applyFlags() (err error) {
	return nil
}

func (ifc *Interface) restoreFlags() (err error) {
	return nil
}
