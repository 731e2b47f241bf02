package ndproxy

import (
	"github.com/ndproxy6/ndppd/internal/ndaddr"
)

// Mode selects how a Rule resolves the daughter interface(s) a session
// probes.
type Mode int

// Mode values.
const (
	// ModeIface probes a fixed, configured daughter interface.
	ModeIface Mode = iota
	// ModeStatic answers immediately, with no daughter probe.
	ModeStatic
	// ModeAuto resolves the daughter at session-create time via the routing
	// oracle.
	ModeAuto
)

// String implements the fmt.Stringer interface for Mode.
func (m Mode) String() (s string) {
	switch m {
	case ModeIface:
		return "iface"
	case ModeStatic:
		return "static"
	case ModeAuto:
		return "auto"
	default:
		return "invalid"
	}
}

// Rule is a pure data holder binding a CIDR to a daughter-resolution mode,
// owned by exactly one [Proxy].
type Rule struct {
	cidr     ndaddr.Cidr
	daughter Interface
	mode     Mode
	autovia  bool
}

// NewIfaceRule returns a Rule that probes daughter for any target within
// cidr.  daughter must not be nil.
func NewIfaceRule(cidr ndaddr.Cidr, daughter Interface, autovia bool) (r Rule) {
	return Rule{cidr: cidr, daughter: daughter, mode: ModeIface, autovia: autovia}
}

// NewStaticRule returns a Rule that answers immediately for any target
// within cidr, without probing any daughter.
func NewStaticRule(cidr ndaddr.Cidr, autovia bool) (r Rule) {
	return Rule{cidr: cidr, mode: ModeStatic, autovia: autovia}
}

// NewAutoRule returns a Rule that resolves its daughter via the routing
// oracle at session-creation time.
func NewAutoRule(cidr ndaddr.Cidr, autovia bool) (r Rule) {
	return Rule{cidr: cidr, mode: ModeAuto, autovia: autovia}
}

// Matches reports whether addr falls within the rule's CIDR.
func (r Rule) Matches(addr ndaddr.Address) (ok bool) {
	return r.cidr.Contains(addr)
}

// Mode returns the rule's resolution mode.
func (r Rule) Mode() (m Mode) {
	return r.mode
}

// IsAuto reports whether the rule resolves its daughter dynamically.
func (r Rule) IsAuto() (ok bool) {
	return r.mode == ModeAuto
}

// Daughter returns the rule's configured daughter interface, or nil for
// static and auto rules.
func (r Rule) Daughter() (ifc Interface) {
	return r.daughter
}

// Autovia reports whether the reverse path for this rule should carry the
// original source as the advertised target.
func (r Rule) Autovia() (ok bool) {
	return r.autovia
}

// Cidr returns the rule's membership predicate.
func (r Rule) Cidr() (c ndaddr.Cidr) {
	return r.cidr
}
