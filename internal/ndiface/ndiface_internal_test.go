package ndiface

import (
	"testing"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
	"github.com/stretchr/testify/assert"
)

type fakeBackref struct {
	id int
}

func (f *fakeBackref) HandleSolicit(saddr, taddr ndaddr.Address, ifaceName string)         {}
func (f *fakeBackref) HandleAdvert(saddr, taddr ndaddr.Address, ifaceName string)           {}
func (f *fakeBackref) HandleStatelessAdvert(saddr, taddr ndaddr.Address, ifaceName string) {}
func (f *fakeBackref) DaughterAutovia(taddr ndaddr.Address, ifaceName string) (autovia, matched bool) {
	return false, false
}

func TestInterface_referenceCounting(t *testing.T) {
	ifc := &Interface{name: "eth0"}
	p1, p2 := &fakeBackref{id: 1}, &fakeBackref{id: 2}

	assert.False(t, ifc.Referenced())

	ifc.serves = append(ifc.serves, p1)
	assert.True(t, ifc.Referenced())

	ifc.parents = append(ifc.parents, p2)

	ifc.serves = removeBackref(ifc.serves, p1)
	assert.True(t, ifc.Referenced(), "still referenced as a parent")

	ifc.parents = removeBackref(ifc.parents, p2)
	assert.False(t, ifc.Referenced())
}

func TestInterface_teardownIfUnreferenced_noop(t *testing.T) {
	ifc := &Interface{name: "eth0"}

	// No sockets open: Close must be a cheap no-op, not a nil dereference.
	ifc.teardownIfUnreferenced()

	assert.Nil(t, ifc.icmpSock)
	assert.Nil(t, ifc.pktSock)
}

func TestRemoveBackref_missing(t *testing.T) {
	p1, p2 := &fakeBackref{id: 1}, &fakeBackref{id: 2}

	out := removeBackref([]ProxyBackref{p1}, p2)
	assert.Len(t, out, 1)
	assert.Same(t, p1, out[0])
}
