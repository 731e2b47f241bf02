// Package ndaddr contains immutable IPv6 address and prefix value types used
// throughout the neighbor discovery proxy.
package ndaddr

import (
	"fmt"
	"net/netip"

	"github.com/AdguardTeam/golibs/errors"
)

// Address is an immutable IPv6 address.
type Address struct {
	addr netip.Addr
}

// NewAddress returns a new Address from a [netip.Addr].  addr must be a valid
// IPv6 address.
func NewAddress(addr netip.Addr) (a Address, err error) {
	if !addr.Is6() && !addr.Is4In6() {
		return Address{}, fmt.Errorf("address %s is not ipv6", addr)
	}

	return Address{addr: addr.Unmap()}, nil
}

// ParseAddress parses s as an IPv6 address.
func ParseAddress(s string) (a Address, err error) {
	defer func() { err = errors.Annotate(err, "parsing address %q: %w", s) }()

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return Address{}, err
	}

	return NewAddress(addr)
}

// MustParseAddress is like [ParseAddress] but panics on error.  It is meant
// for use in variable initializers and tests.
func MustParseAddress(s string) (a Address) {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}

	return a
}

// Netip returns the underlying [netip.Addr].
func (a Address) Netip() (addr netip.Addr) {
	return a.addr
}

// IsValid reports whether a holds an initialized address.
func (a Address) IsValid() (ok bool) {
	return a.addr.IsValid()
}

// IsUnicast reports whether a is a unicast address, i.e. not multicast and
// not the unspecified address.
func (a Address) IsUnicast() (ok bool) {
	return a.addr.IsValid() && !a.addr.IsMulticast() && !a.addr.IsUnspecified()
}

// IsMulticast reports whether a is a multicast address (first byte 0xff).
func (a Address) IsMulticast() (ok bool) {
	return a.addr.IsMulticast()
}

// IsUnspecified reports whether a is the all-zeros address, used during
// Duplicate Address Detection.
func (a Address) IsUnspecified() (ok bool) {
	return a.addr.IsUnspecified()
}

// String returns the textual representation of a.
func (a Address) String() (s string) {
	return a.addr.String()
}

// Compare returns a total order over addresses by byte-wise comparison,
// matching [netip.Addr.Compare].
func (a Address) Compare(other Address) (res int) {
	return a.addr.Compare(other.addr)
}

// As16 returns the 16-byte array representation of a.
func (a Address) As16() (b [16]byte) {
	return a.addr.As16()
}

// SolicitedNodeMulticast returns the solicited-node multicast address for a:
// ff02::1:ff00:0000 with the low 24 bits replaced by the low 24 bits of a.
func (a Address) SolicitedNodeMulticast() (sn Address) {
	b := a.As16()
	snBytes := [16]byte{
		0xff, 0x02, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 1, 0xff, b[13], b[14], b[15],
	}

	snAddr, err := NewAddress(netip.AddrFrom16(snBytes))
	if err != nil {
		// Unreachable: snBytes is always a valid 16-byte address.
		panic(err)
	}

	return snAddr
}

// Cidr is an Address plus a prefix length in 0..=128.
type Cidr struct {
	addr   Address
	prefix int
}

// NewCidr returns a new Cidr.  It returns an error if prefix is out of range.
func NewCidr(addr Address, prefix int) (c Cidr, err error) {
	if prefix < 0 || prefix > 128 {
		return Cidr{}, fmt.Errorf("prefix length %d out of range 0..128", prefix)
	}

	return Cidr{addr: addr, prefix: prefix}, nil
}

// ParseCidr parses s, which must be in "addr/prefix" form.
func ParseCidr(s string) (c Cidr, err error) {
	defer func() { err = errors.Annotate(err, "parsing cidr %q: %w", s) }()

	p, err := netip.ParsePrefix(s)
	if err != nil {
		return Cidr{}, err
	}

	addr, err := NewAddress(p.Addr())
	if err != nil {
		return Cidr{}, err
	}

	return NewCidr(addr, p.Bits())
}

// MustParseCidr is like [ParseCidr] but panics on error.
func MustParseCidr(s string) (c Cidr) {
	c, err := ParseCidr(s)
	if err != nil {
		panic(err)
	}

	return c
}

// Addr returns the address part of c.
func (c Cidr) Addr() (a Address) {
	return c.addr
}

// Prefix returns the prefix length of c.
func (c Cidr) Prefix() (p int) {
	return c.prefix
}

// Contains reports whether the first c.Prefix() bits of addr equal those of
// c's address.  Bits beyond the prefix are ignored on both sides.
func (c Cidr) Contains(addr Address) (ok bool) {
	if !addr.IsValid() {
		return false
	}

	pfx := netip.PrefixFrom(c.addr.addr, c.prefix)
	if !pfx.IsValid() {
		return false
	}

	return pfx.Contains(addr.addr)
}

// String returns the textual "addr/prefix" representation of c.
func (c Cidr) String() (s string) {
	return fmt.Sprintf("%s/%d", c.addr, c.prefix)
}
