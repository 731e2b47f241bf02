// Package ndproxy implements rule-based solicit/advert dispatch and the
// per-target session cache: the core proxy pipeline that bridges neighbor
// reachability between a parent interface and its daughters.
package ndproxy

import (
	"fmt"
	"time"

	"github.com/AdguardTeam/golibs/log"

	"github.com/ndproxy6/ndppd/internal/aghalg"
	"github.com/ndproxy6/ndppd/internal/ndaddr"
	"github.com/ndproxy6/ndppd/internal/ndiface"
	"github.com/ndproxy6/ndppd/internal/ndoracle"
)

// Interface is the subset of [*ndiface.Interface] that the proxy/session
// pipeline depends on: an identifying name, Neighbor Discovery send
// primitives, and the back-reference bookkeeping used to share one kernel
// device across multiple proxies.  Accepting this narrow interface (rather
// than the concrete type) keeps the state machine testable without opening
// real raw sockets.
type Interface interface {
	Name() (name string)
	SendSolicit(taddr ndaddr.Address) (err error)
	SendAdvert(taddr, dst ndaddr.Address, router bool) (err error)
	AddServe(proxy ndiface.ProxyBackref, promiscuous bool) (err error)
	RemoveServe(proxy ndiface.ProxyBackref)
	AddParent(proxy ndiface.ProxyBackref)
	RemoveParent(proxy ndiface.ProxyBackref)
}

// type check
var _ Interface = (*ndiface.Interface)(nil)

// InterfaceResolver resolves a daughter interface by kernel device name,
// opening and registering it with the process-wide poll set if necessary.
// It is the shared-ownership seam through which [ModeAuto] rules obtain an
// interface they did not see at configuration time.
type InterfaceResolver interface {
	ResolveDaughter(name string) (ifc Interface, err error)
}

// Proxy is a set of rules bound to one parent interface.
type Proxy struct {
	parent   Interface
	oracle   ndoracle.Interface
	resolver InterfaceResolver

	rules    []Rule
	sessions *aghalg.SortedMap[ndaddr.Address, *Session]

	// registered tracks which daughter interfaces this proxy has already
	// called AddParent on, so auto-mode resolution registers each daughter
	// exactly once regardless of how many sessions use it.
	registered map[Interface]struct{}

	params Params
}

// NewProxy constructs a Proxy bound to parent, registers it as a server on
// parent, and registers it as a parent-side referrer on every rule's fixed
// (iface-mode) daughter.
func NewProxy(
	parent Interface,
	oracle ndoracle.Interface,
	resolver InterfaceResolver,
	rules []Rule,
	params Params,
) (p *Proxy, err error) {
	p = &Proxy{
		parent:     parent,
		oracle:     oracle,
		resolver:   resolver,
		rules:      rules,
		sessions:   aghalg.NewSortedMapFunc[ndaddr.Address, *Session](ndaddr.Address.Compare),
		registered: map[Interface]struct{}{},
		params:     params,
	}

	if err = parent.AddServe(p, params.Promiscuous); err != nil {
		return nil, fmt.Errorf("attaching proxy to parent %s: %w", parent.Name(), err)
	}

	for _, r := range rules {
		if r.Mode() == ModeIface && r.Daughter() != nil {
			p.registerDaughter(r.Daughter())
		}
	}

	return p, nil
}

// Close detaches the proxy from its parent and every daughter it has
// registered with.
func (p *Proxy) Close() {
	p.parent.RemoveServe(p)

	for ifc := range p.registered {
		ifc.RemoveParent(p)
	}
}

// registerDaughter calls AddParent on ifc exactly once for the lifetime of
// p.
func (p *Proxy) registerDaughter(ifc Interface) {
	if _, ok := p.registered[ifc]; ok {
		return
	}

	p.registered[ifc] = struct{}{}
	ifc.AddParent(p)
}

// FindOrCreateSession returns the existing session for taddr, or allocates
// one from the set of rules matching taddr.  ok is false if no rule matches
// at all.
func (p *Proxy) FindOrCreateSession(taddr ndaddr.Address) (sess *Session, ok bool) {
	if sess, ok = p.sessions.Get(taddr); ok {
		return sess, true
	}

	var daughters []Interface
	matched := false
	static := false

	for _, r := range p.rules {
		if !r.Matches(taddr) {
			continue
		}

		matched = true

		switch r.Mode() {
		case ModeStatic:
			static = true
		case ModeIface:
			if d := r.Daughter(); d != nil {
				daughters = appendUniqueIface(daughters, d)
			}
		case ModeAuto:
			if ifc := p.resolveAutoDaughter(taddr); ifc != nil {
				daughters = appendUniqueIface(daughters, ifc)
			}
		}
	}

	if !matched {
		return nil, false
	}

	sess = newSession(p, taddr)
	for _, ifc := range daughters {
		sess.AddIface(ifc)
	}

	if static {
		sess.handleAdvert()
	} else {
		// "(new)" row: WAITING, ttl=proxy.timeout (see newSession), send
		// solicit.
		sess.sendSolicit()
	}

	p.sessions.Set(taddr, sess)

	return sess, true
}

// resolveAutoDaughter consults the routing oracle for taddr and, if the
// resulting egress interface differs from the parent, resolves and
// registers it.
func (p *Proxy) resolveAutoDaughter(taddr ndaddr.Address) (ifc Interface) {
	name, ok := p.oracle.RouteIface(taddr)
	if !ok || name == p.parent.Name() || p.resolver == nil {
		return nil
	}

	ifc, err := p.resolver.ResolveDaughter(name)
	if err != nil {
		log.Error("ndproxy: auto rule: resolving daughter %s for %s: %s", name, taddr, err)

		return nil
	}

	p.registerDaughter(ifc)

	return ifc
}

// HandleSolicit implements the [ndiface.ProxyBackref] interface: it is
// called for every solicit arriving on the parent interface this proxy
// serves.
func (p *Proxy) HandleSolicit(saddr, taddr ndaddr.Address, ifaceName string) {
	_, existed := p.sessions.Get(taddr)

	sess, ok := p.FindOrCreateSession(taddr)
	if !ok {
		return
	}

	before := sess.status

	if existed {
		sess.touch()
	} else {
		// The "(new)" row already applied the WAITING row's ttl-reset and
		// probe; re-running the "touch" column here would send a second,
		// redundant solicit for the very first request.
		sess.touched = true
	}

	// A Duplicate Address Detection probe carries the unspecified address,
	// or repeats the target as its own source; neither is ever added to
	// pending or answered immediately.
	if saddr.IsUnspecified() || saddr.Compare(taddr) == 0 {
		return
	}

	switch before {
	case StatusWaiting, StatusInvalid:
		sess.addPending(saddr)
	case StatusValid, StatusRenewing:
		if err := p.parent.SendAdvert(taddr, saddr, p.params.Router); err != nil {
			log.Error("ndproxy: answering solicit for %s from %s: %s", taddr, saddr, err)
		}
	}
}

// HandleAdvert implements the [ndiface.ProxyBackref] interface: it is called
// for every advert arriving on a daughter interface this proxy probes.
func (p *Proxy) HandleAdvert(saddr, taddr ndaddr.Address, ifaceName string) {
	sess, ok := p.sessions.Get(taddr)
	if !ok {
		log.Debug("ndproxy: advert for %s on %s with no matching session", taddr, ifaceName)

		return
	}

	sess.handleAdvert()
}

// HandleStatelessAdvert implements the [ndiface.ProxyBackref] interface: it
// is reverse-path maintenance triggered by a solicit observed on a daughter
// interface, keeping that leg's session warm.  The session is obtained through
// [Proxy.FindOrCreateSession], so a newly created one sends its initial probe
// like any other.
func (p *Proxy) HandleStatelessAdvert(saddr, taddr ndaddr.Address, ifaceName string) {
	sess, ok := p.FindOrCreateSession(taddr)
	if !ok {
		return
	}

	if p.params.Autowire && sess.status == StatusWaiting {
		// Autowire's interaction with a still-WAITING session is a no-op:
		// there is no advert to graft a reverse path onto yet.
		log.Debug("ndproxy: autowire hook for %s on %s (no-op)", taddr, ifaceName)
	}
}

// DaughterAutovia implements the [ndiface.ProxyBackref] interface: it
// reports whether ifaceName is the fixed daughter of a rule matching taddr,
// and that rule's autovia flag.
func (p *Proxy) DaughterAutovia(taddr ndaddr.Address, ifaceName string) (autovia, matched bool) {
	for _, r := range p.rules {
		d := r.Daughter()
		if d == nil || d.Name() != ifaceName {
			continue
		}

		if r.Matches(taddr) {
			return r.Autovia(), true
		}
	}

	return false, false
}

// Sessions calls cb for every live session, in taddr order.
func (p *Proxy) Sessions(cb func(*Session) (cont bool)) {
	p.sessions.Range(func(_ ndaddr.Address, s *Session) (cont bool) {
		return cb(s)
	})
}

// SessionCount returns the number of live sessions.  It exists mainly for
// tests asserting the at-most-one-session-per-target invariant.
func (p *Proxy) SessionCount() (n int) {
	n = 0
	p.Sessions(func(*Session) (cont bool) {
		n++

		return true
	})

	return n
}

// Tick ages every live session by elapsed, evicting those that expire.
func (p *Proxy) Tick(elapsed time.Duration) {
	var evicted []ndaddr.Address

	p.sessions.Range(func(taddr ndaddr.Address, s *Session) (cont bool) {
		if s.tick(elapsed) {
			evicted = append(evicted, taddr)
		}

		return true
	})

	for _, taddr := range evicted {
		p.sessions.Del(taddr)
	}
}

// Params returns the proxy's tunables.
func (p *Proxy) Params() (params Params) {
	return p.params
}

// Parent returns the proxy's parent interface.
func (p *Proxy) Parent() (ifc Interface) {
	return p.parent
}

// type check
var _ ndiface.ProxyBackref = (*Proxy)(nil)

func appendUniqueIface(s []Interface, ifc Interface) (out []Interface) {
	for _, existing := range s {
		if existing == ifc {
			return s
		}
	}

	return append(s, ifc)
}
