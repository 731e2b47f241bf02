package ndproxy

import (
	"time"

	"github.com/AdguardTeam/golibs/log"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
)

// Status is a Session's position in its four-state reachability lifecycle:
// WAITING, RENEWING, VALID, INVALID.
type Status int

// Status values.
const (
	StatusWaiting Status = iota
	StatusRenewing
	StatusValid
	StatusInvalid
)

// String implements the fmt.Stringer interface for Status.
func (s Status) String() (str string) {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRenewing:
		return "renewing"
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "invalid-status"
	}
}

// Session is the per-target reachability cache entry for one target address
// within one [Proxy].  It is never shared between proxies and never outlives
// its proxy.
type Session struct {
	proxy *Proxy

	taddr   ndaddr.Address
	status  Status
	ttl     time.Duration
	fails   int
	retries int

	keepalive bool
	touched   bool

	// ifaces is the deduplicated list of daughter interfaces probed for
	// taddr.
	ifaces []Interface
	// pending is the set of requester addresses awaiting a synthesized
	// advert, in arrival order; pendingSeen holds the same addresses for
	// deduplication.  It never contains taddr.
	pending     []ndaddr.Address
	pendingSeen map[ndaddr.Address]struct{}
}

// newSession creates a Session in the WAITING state. The per-probe ttl is
// set to the proxy's timeout, not its ttl: the ttl parameter only governs a
// VALID session's renewal period, and using it here would retry at the
// wrong cadence.
func newSession(p *Proxy, taddr ndaddr.Address) (s *Session) {
	s = &Session{
		proxy:       p,
		taddr:       taddr,
		status:      StatusWaiting,
		ttl:         p.params.Timeout,
		keepalive:   p.params.Keepalive,
		retries:     p.params.Retries,
		pendingSeen: map[ndaddr.Address]struct{}{},
	}

	return s
}

// Taddr returns the session's target address.
func (s *Session) Taddr() (taddr ndaddr.Address) {
	return s.taddr
}

// Status returns the session's current state.
func (s *Session) Status() (status Status) {
	return s.status
}

// Ifaces returns the session's daughter interfaces.
func (s *Session) Ifaces() (ifaces []Interface) {
	return s.ifaces
}

// Pending returns the session's pending requester set.
func (s *Session) Pending() (pending []ndaddr.Address) {
	return s.pending
}

// AddIface adds ifc to the session's daughter list.  It is a no-op if ifc is
// already present.
func (s *Session) AddIface(ifc Interface) {
	for _, existing := range s.ifaces {
		if existing == ifc {
			return
		}
	}

	s.ifaces = append(s.ifaces, ifc)
}

// addPending adds saddr to the pending set, unless it equals taddr (a
// session never queues itself as a requester) or is already present.
func (s *Session) addPending(saddr ndaddr.Address) {
	if saddr.Compare(s.taddr) == 0 {
		return
	}

	if _, ok := s.pendingSeen[saddr]; ok {
		return
	}

	s.pendingSeen[saddr] = struct{}{}
	s.pending = append(s.pending, saddr)
}

// sendSolicit emits a Neighbor Solicitation for taddr on every daughter
// interface.
func (s *Session) sendSolicit() {
	for _, ifc := range s.ifaces {
		if err := ifc.SendSolicit(s.taddr); err != nil {
			log.Error("ndproxy: session %s: sending solicit on %s: %s", s.taddr, ifc.Name(), err)
		}
	}
}

// flushPending synthesizes a Neighbor Advertisement on the parent interface
// for every pending requester, then clears the set.
func (s *Session) flushPending() {
	if len(s.pending) == 0 {
		return
	}

	for _, dst := range s.pending {
		err := s.proxy.parent.SendAdvert(s.taddr, dst, s.proxy.params.Router)
		if err != nil {
			log.Error("ndproxy: session %s: sending advert to %s: %s", s.taddr, dst, err)
		}
	}

	s.pending = nil
	s.pendingSeen = map[ndaddr.Address]struct{}{}
}

// touch applies the "handle_solicit touch" column of the state table: a
// fresh probe round for WAITING and a WAITING-reentry for INVALID.  VALID
// and RENEWING sessions are left untouched by this column, but touched is
// recorded regardless so a later tick can decide whether to keep renewing.
func (s *Session) touch() {
	s.touched = true

	switch s.status {
	case StatusWaiting:
		s.ttl = s.proxy.params.Timeout
		s.sendSolicit()
	case StatusInvalid:
		s.status = StatusWaiting
		s.ttl = s.proxy.params.Timeout
		s.sendSolicit()
	case StatusValid, StatusRenewing:
		// Nothing: an already-reachable session does not restart probing on
		// touch.
	}
}

// handleAdvert applies the "handle_advert" column, identical across every
// row: transition to VALID, reset the ttl, and flush pending requesters.
func (s *Session) handleAdvert() {
	s.status = StatusValid
	s.ttl = s.proxy.params.TTL
	s.fails = 0
	s.flushPending()
}

// tick applies one "tick" column entry if the ttl has expired, decrementing
// it by elapsed otherwise.  evict reports whether the caller must remove
// this session from its proxy.
func (s *Session) tick(elapsed time.Duration) (evict bool) {
	s.ttl -= elapsed
	if s.ttl > 0 {
		return false
	}

	switch s.status {
	case StatusWaiting:
		if s.fails < s.retries {
			s.ttl = s.proxy.params.Timeout
			s.fails++
			s.sendSolicit()

			return false
		}

		s.status = StatusInvalid
		s.ttl = s.proxy.params.Deadtime

		return false
	case StatusValid:
		if !s.touched && !s.keepalive {
			return true
		}

		s.status = StatusRenewing
		s.ttl = s.proxy.params.Timeout
		s.fails = 0
		s.touched = false
		s.sendSolicit()

		return false
	case StatusRenewing:
		if s.fails < s.retries {
			s.ttl = s.proxy.params.Timeout
			s.fails++
			s.sendSolicit()

			return false
		}

		return true
	case StatusInvalid:
		return true
	default:
		return true
	}
}
