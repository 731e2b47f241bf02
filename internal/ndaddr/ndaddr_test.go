package ndaddr_test

import (
	"testing"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCidr_Contains(t *testing.T) {
	c := ndaddr.MustParseCidr("2001:db8::/64")

	testCases := []struct {
		name string
		addr string
		want bool
	}{{
		name: "inside",
		addr: "2001:db8::abcd",
		want: true,
	}, {
		name: "boundary",
		addr: "2001:db8::ffff:ffff:ffff:ffff",
		want: true,
	}, {
		name: "outside",
		addr: "2001:db9::1",
		want: false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr := ndaddr.MustParseAddress(tc.addr)
			assert.Equal(t, tc.want, c.Contains(addr))
		})
	}
}

func TestAddress_SolicitedNodeMulticast(t *testing.T) {
	a := ndaddr.MustParseAddress("2001:db8::abcd")
	sn := a.SolicitedNodeMulticast()

	assert.Equal(t, "ff02::1:ff00:abcd", sn.String())
	assert.True(t, sn.IsMulticast())
}

func TestAddress_predicates(t *testing.T) {
	unicast := ndaddr.MustParseAddress("2001:db8::1")
	assert.True(t, unicast.IsUnicast())
	assert.False(t, unicast.IsMulticast())

	multicast := ndaddr.MustParseAddress("ff02::1")
	assert.False(t, multicast.IsUnicast())
	assert.True(t, multicast.IsMulticast())

	unspecified := ndaddr.MustParseAddress("::")
	assert.True(t, unspecified.IsUnspecified())
	assert.False(t, unspecified.IsUnicast())
}

func TestParseCidr_badPrefix(t *testing.T) {
	_, err := ndaddr.ParseCidr("2001:db8::/200")
	require.Error(t, err)
}
