package ndproxy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
	"github.com/ndproxy6/ndppd/internal/ndiface"
	"github.com/ndproxy6/ndppd/internal/ndoracle"
	"github.com/ndproxy6/ndppd/internal/ndproxy"
)

// fakeIface is an in-memory stand-in for *ndiface.Interface, recording every
// solicit/advert it is asked to send instead of touching a real socket.
type fakeIface struct {
	name string

	solicits []ndaddr.Address
	adverts  []sentAdvert

	serves  []ndiface.ProxyBackref
	parents []ndiface.ProxyBackref
}

type sentAdvert struct {
	taddr, dst ndaddr.Address
	router     bool
}

func newFakeIface(name string) (f *fakeIface) {
	return &fakeIface{name: name}
}

func (f *fakeIface) Name() (name string) { return f.name }

func (f *fakeIface) SendSolicit(taddr ndaddr.Address) (err error) {
	f.solicits = append(f.solicits, taddr)

	return nil
}

func (f *fakeIface) SendAdvert(taddr, dst ndaddr.Address, router bool) (err error) {
	f.adverts = append(f.adverts, sentAdvert{taddr: taddr, dst: dst, router: router})

	return nil
}

func (f *fakeIface) AddServe(proxy ndiface.ProxyBackref, promiscuous bool) (err error) {
	f.serves = append(f.serves, proxy)

	return nil
}

func (f *fakeIface) RemoveServe(proxy ndiface.ProxyBackref) {
	f.serves = removeBackref(f.serves, proxy)
}

func (f *fakeIface) AddParent(proxy ndiface.ProxyBackref) {
	f.parents = append(f.parents, proxy)
}

func (f *fakeIface) RemoveParent(proxy ndiface.ProxyBackref) {
	f.parents = removeBackref(f.parents, proxy)
}

func removeBackref(s []ndiface.ProxyBackref, target ndiface.ProxyBackref) (out []ndiface.ProxyBackref) {
	for _, p := range s {
		if p != target {
			out = append(out, p)
		}
	}

	return out
}

// type check
var _ ndproxy.Interface = (*fakeIface)(nil)

func testParams(t *testing.T) (p ndproxy.Params) {
	t.Helper()

	p = ndproxy.DefaultParams()
	p.Timeout = 500 * time.Millisecond
	p.TTL = 30_000 * time.Millisecond
	p.Deadtime = 3_000 * time.Millisecond
	p.Retries = 3

	return p
}

// TestProxy_firstTouchSuccess verifies that a solicit on the parent triggers
// a probe on the daughter, and that the daughter's advert is relayed back as
// a synthesized advert on the parent.
func TestProxy_firstTouchSuccess(t *testing.T) {
	parent := newFakeIface("eth0")
	daughter := newFakeIface("eth1")

	cidr := ndaddr.MustParseCidr("2001:db8::/64")
	rule := ndproxy.NewIfaceRule(cidr, daughter, false)

	p, err := ndproxy.NewProxy(parent, ndoracle.Empty{}, nil, []ndproxy.Rule{rule}, testParams(t))
	require.NoError(t, err)

	taddr := ndaddr.MustParseAddress("2001:db8::abcd")
	saddr := ndaddr.MustParseAddress("fe80::1")

	p.HandleSolicit(saddr, taddr, "eth0")

	require.Len(t, daughter.solicits, 1)
	assert.Equal(t, taddr.String(), daughter.solicits[0].String())
	assert.Equal(t, 1, p.SessionCount())

	advertSrc := ndaddr.MustParseAddress("fe80::2")
	p.HandleAdvert(advertSrc, taddr, "eth1")

	require.Len(t, parent.adverts, 1)
	got := parent.adverts[0]
	assert.Equal(t, taddr.String(), got.taddr.String())
	assert.Equal(t, saddr.String(), got.dst.String())
	assert.True(t, got.router)

	sess, ok := p.FindOrCreateSession(taddr)
	require.True(t, ok)
	assert.Equal(t, ndproxy.StatusValid, sess.Status())
	assert.Empty(t, sess.Pending())
}

// TestProxy_retryThenInvalidate covers scenario 2: repeated ticks with no
// advert arriving emit retries solicits, then invalidate.
func TestProxy_retryThenInvalidate(t *testing.T) {
	parent := newFakeIface("eth0")
	daughter := newFakeIface("eth1")

	cidr := ndaddr.MustParseCidr("2001:db8::/64")
	rule := ndproxy.NewIfaceRule(cidr, daughter, false)

	params := testParams(t)
	p, err := ndproxy.NewProxy(parent, ndoracle.Empty{}, nil, []ndproxy.Rule{rule}, params)
	require.NoError(t, err)

	taddr := ndaddr.MustParseAddress("2001:db8::abcd")
	saddr := ndaddr.MustParseAddress("fe80::1")

	p.HandleSolicit(saddr, taddr, "eth0")
	require.Len(t, daughter.solicits, 1)

	// Three retries, each timeout later (fails goes 1, 2, 3).
	for i := 0; i < int(params.Retries); i++ {
		p.Tick(params.Timeout)
	}
	assert.Len(t, daughter.solicits, 1+int(params.Retries))

	sess, ok := p.FindOrCreateSession(taddr)
	require.True(t, ok)
	assert.Equal(t, ndproxy.StatusWaiting, sess.Status())

	// One more tick past the timeout boundary applies the final
	// fails>=retries transition to INVALID.
	p.Tick(params.Timeout)

	sess, ok = p.FindOrCreateSession(taddr)
	require.True(t, ok)
	assert.Equal(t, ndproxy.StatusInvalid, sess.Status())

	// Touching an INVALID session restarts probing.
	p.HandleSolicit(saddr, taddr, "eth0")
	sess, ok = p.FindOrCreateSession(taddr)
	require.True(t, ok)
	assert.Equal(t, ndproxy.StatusWaiting, sess.Status())
}

// TestProxy_staticRule covers scenario 3: a static rule answers immediately
// with no probe on any other interface.
func TestProxy_staticRule(t *testing.T) {
	parent := newFakeIface("eth0")

	cidr := ndaddr.MustParseCidr("2001:db8::/64")
	rule := ndproxy.NewStaticRule(cidr, false)

	p, err := ndproxy.NewProxy(parent, ndoracle.Empty{}, nil, []ndproxy.Rule{rule}, testParams(t))
	require.NoError(t, err)

	taddr := ndaddr.MustParseAddress("2001:db8::1")
	saddr := ndaddr.MustParseAddress("fe80::1")

	p.HandleSolicit(saddr, taddr, "eth0")

	require.Len(t, parent.adverts, 1)
	assert.Equal(t, taddr.String(), parent.adverts[0].taddr.String())
	assert.Equal(t, saddr.String(), parent.adverts[0].dst.String())
}

// TestProxy_dadSuppression covers scenario 4: a solicit whose source is the
// unspecified address touches the session (probing continues) but is never
// queued in pending and never answered immediately.
func TestProxy_dadSuppression(t *testing.T) {
	parent := newFakeIface("eth0")
	daughter := newFakeIface("eth1")

	cidr := ndaddr.MustParseCidr("2001:db8::/64")
	rule := ndproxy.NewIfaceRule(cidr, daughter, false)

	p, err := ndproxy.NewProxy(parent, ndoracle.Empty{}, nil, []ndproxy.Rule{rule}, testParams(t))
	require.NoError(t, err)

	taddr := ndaddr.MustParseAddress("2001:db8::1")
	unspecified := ndaddr.MustParseAddress("::")

	p.HandleSolicit(unspecified, taddr, "eth0")

	require.Len(t, daughter.solicits, 1, "a probe is still emitted")
	assert.Empty(t, parent.adverts, "no advert until VALID")

	sess, ok := p.FindOrCreateSession(taddr)
	require.True(t, ok)
	for _, addr := range sess.Pending() {
		assert.NotEqual(t, unspecified.String(), addr.String())
	}
}

// TestProxy_atMostOneSessionPerTarget verifies that repeated lookups for the
// same target always return the same session, never a second one.
func TestProxy_atMostOneSessionPerTarget(t *testing.T) {
	parent := newFakeIface("eth0")
	daughter := newFakeIface("eth1")

	cidr := ndaddr.MustParseCidr("2001:db8::/64")
	rule := ndproxy.NewIfaceRule(cidr, daughter, false)

	p, err := ndproxy.NewProxy(parent, ndoracle.Empty{}, nil, []ndproxy.Rule{rule}, testParams(t))
	require.NoError(t, err)

	taddr := ndaddr.MustParseAddress("2001:db8::1")

	p.HandleSolicit(ndaddr.MustParseAddress("fe80::1"), taddr, "eth0")
	p.HandleSolicit(ndaddr.MustParseAddress("fe80::2"), taddr, "eth0")
	p.HandleSolicit(ndaddr.MustParseAddress("fe80::3"), taddr, "eth0")

	assert.Equal(t, 1, p.SessionCount())
}

// TestProxy_addIfaceIdempotent covers the idempotence property: adding the
// same daughter to a session twice leaves a single entry and sends one
// solicit per tick/touch, not duplicate ones.
func TestProxy_addIfaceIdempotent(t *testing.T) {
	parent := newFakeIface("eth0")
	daughter := newFakeIface("eth1")

	cidr := ndaddr.MustParseCidr("2001:db8::/64")
	ruleA := ndproxy.NewIfaceRule(cidr, daughter, false)
	ruleB := ndproxy.NewIfaceRule(cidr, daughter, false)

	p, err := ndproxy.NewProxy(parent, ndoracle.Empty{}, nil, []ndproxy.Rule{ruleA, ruleB}, testParams(t))
	require.NoError(t, err)

	taddr := ndaddr.MustParseAddress("2001:db8::1")
	p.HandleSolicit(ndaddr.MustParseAddress("fe80::1"), taddr, "eth0")

	sess, ok := p.FindOrCreateSession(taddr)
	require.True(t, ok)
	assert.Len(t, sess.Ifaces(), 1)
	assert.Len(t, daughter.solicits, 1)
}

// TestProxy_reversePathMaintenance covers scenario 5: a solicit observed on
// a daughter interface triggers handle_stateless_advert on the proxy for
// which that interface is registered as a parent (daughter) reference.
func TestProxy_reversePathMaintenance(t *testing.T) {
	eth0 := newFakeIface("eth0")
	eth1 := newFakeIface("eth1")

	cidr := ndaddr.MustParseCidr("2001:db8::/64")

	ruleA := ndproxy.NewIfaceRule(cidr, eth1, false)
	a, err := ndproxy.NewProxy(eth0, ndoracle.Empty{}, nil, []ndproxy.Rule{ruleA}, testParams(t))
	require.NoError(t, err)

	ruleB := ndproxy.NewIfaceRule(cidr, eth0, false)
	b, err := ndproxy.NewProxy(eth1, ndoracle.Empty{}, nil, []ndproxy.Rule{ruleB}, testParams(t))
	require.NoError(t, err)

	requester := ndaddr.MustParseAddress("2001:db8::2")
	target := ndaddr.MustParseAddress("2001:db8::1")

	// A solicit arrives on eth0 from requester for target: A probes eth1.
	a.HandleSolicit(requester, target, "eth0")
	require.Len(t, eth1.solicits, 1)

	// eth0's dispatch logic (simulated here directly) would call B's
	// handle_stateless_advert since requester matches B's rule whose
	// daughter is eth0.
	if autovia, matched := b.DaughterAutovia(requester, "eth0"); matched {
		_ = autovia

		b.HandleStatelessAdvert(requester, requester, "eth0")
	}

	assert.Equal(t, 1, b.SessionCount())
}
