package ndproxy

import "time"

// Params holds the per-proxy tunables that govern session timing and
// advertisement behavior.
type Params struct {
	// Router sets the ROUTER flag in synthesized adverts.
	Router bool
	// TTL is the lifetime of a VALID session before renewal.
	TTL time.Duration
	// Deadtime is the lifetime of an INVALID session before eviction.
	Deadtime time.Duration
	// Timeout is the per-probe wait before retrying or invalidating.
	Timeout time.Duration
	// Retries is the number of probes per WAITING/RENEWING cycle.
	Retries int
	// Keepalive renews VALID sessions automatically, even when untouched.
	Keepalive bool
	// Autowire installs reverse-path shortcuts on first advert.
	Autowire bool
	// Promiscuous enables promiscuous mode on the parent interface.
	Promiscuous bool
}

// DefaultParams returns the parameter set applied when a configuration
// section omits a value.
func DefaultParams() (p Params) {
	return Params{
		Router:    true,
		TTL:       30_000 * time.Millisecond,
		Deadtime:  3_000 * time.Millisecond,
		Timeout:   500 * time.Millisecond,
		Retries:   3,
		Keepalive: true,
	}
}
