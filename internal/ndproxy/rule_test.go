package ndproxy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
	"github.com/ndproxy6/ndppd/internal/ndproxy"
)

func TestRule_Matches(t *testing.T) {
	cidr := ndaddr.MustParseCidr("2001:db8::/64")
	rule := ndproxy.NewStaticRule(cidr, false)

	assert.True(t, rule.Matches(ndaddr.MustParseAddress("2001:db8::1")))
	assert.False(t, rule.Matches(ndaddr.MustParseAddress("2001:db9::1")))
}

func TestRule_modes(t *testing.T) {
	cidr := ndaddr.MustParseCidr("::/0")

	static := ndproxy.NewStaticRule(cidr, false)
	assert.Equal(t, ndproxy.ModeStatic, static.Mode())
	assert.Nil(t, static.Daughter())
	assert.False(t, static.IsAuto())

	auto := ndproxy.NewAutoRule(cidr, true)
	assert.Equal(t, ndproxy.ModeAuto, auto.Mode())
	assert.True(t, auto.IsAuto())
	assert.True(t, auto.Autovia())

	iface := newFakeIface("eth1")
	r := ndproxy.NewIfaceRule(cidr, iface, false)
	assert.Equal(t, ndproxy.ModeIface, r.Mode())
	assert.Same(t, iface, r.Daughter())
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "iface", ndproxy.ModeIface.String())
	assert.Equal(t, "static", ndproxy.ModeStatic.String())
	assert.Equal(t, "auto", ndproxy.ModeAuto.String())
}
