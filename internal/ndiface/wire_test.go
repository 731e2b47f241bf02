package ndiface_test

import (
	"net"
	"testing"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
	"github.com/ndproxy6/ndppd/internal/ndiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolicitRoundTrip(t *testing.T) {
	taddr := ndaddr.MustParseAddress("2001:db8::abcd")
	mac := net.HardwareAddr{0x02, 0x11, 0x22, 0x33, 0x44, 0x55}

	b := ndiface.EncodeSolicit(taddr, mac)

	got, gotMAC, ok := ndiface.DecodeSolicit(b)
	require.True(t, ok)
	assert.Equal(t, taddr.String(), got.String())
	assert.Equal(t, mac, gotMAC)
}

func TestAdvertRoundTrip(t *testing.T) {
	taddr := ndaddr.MustParseAddress("2001:db8::1")
	mac := net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

	b := ndiface.EncodeAdvert(taddr, true, true, mac)

	got, router, solicited, gotMAC, ok := ndiface.DecodeAdvert(b)
	require.True(t, ok)
	assert.Equal(t, taddr.String(), got.String())
	assert.True(t, router)
	assert.True(t, solicited)
	assert.Equal(t, mac, gotMAC)
}

func TestDecodeAdvert_wrongType(t *testing.T) {
	b := ndiface.EncodeSolicit(ndaddr.MustParseAddress("2001:db8::1"), nil)

	_, _, _, _, ok := ndiface.DecodeAdvert(b)
	assert.False(t, ok)
}

func TestDecodeEtherSolicit(t *testing.T) {
	taddr := ndaddr.MustParseAddress("2001:db8::abcd")
	saddr := ndaddr.MustParseAddress("fe80::1")
	mac := net.HardwareAddr{0x02, 0x11, 0x22, 0x33, 0x44, 0x55}

	icmp := ndiface.EncodeSolicit(taddr, mac)

	frame := make([]byte, 14+40+len(icmp))
	// Ethernet: dst(6) src(6) ethertype(2).
	frame[12], frame[13] = 0x86, 0xdd

	ip6 := frame[14:]
	ip6[6] = 58 // next header: ICMPv6
	sb := saddr.As16()
	copy(ip6[8:24], sb[:])
	tb := taddr.As16()
	copy(ip6[24:40], tb[:])

	copy(frame[14+40:], icmp)

	gotSaddr, gotTaddr, gotMAC, ok := ndiface.DecodeEtherSolicit(frame)
	require.True(t, ok)
	assert.Equal(t, saddr.String(), gotSaddr.String())
	assert.Equal(t, taddr.String(), gotTaddr.String())
	assert.Equal(t, mac, gotMAC)
}

func TestDecodeEtherSolicit_tooShort(t *testing.T) {
	_, _, _, ok := ndiface.DecodeEtherSolicit([]byte{1, 2, 3})
	assert.False(t, ok)
}
