package ndconfig

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
	"github.com/ndproxy6/ndppd/internal/ndproxy"
)

// staticRulePrefix extracts the prefix length out of a "addr/prefix" CIDR
// string for the static-rule-breadth warning.  ok is false if cidr does not
// parse.
func staticRulePrefix(cidr string) (prefix int, ok bool) {
	_, raw, found := strings.Cut(cidr, "/")
	if !found {
		return 0, false
	}

	prefix, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}

	return prefix, true
}

// ToParams translates a *ProxyConfig's tunables into [ndproxy.Params],
// applying every default DefaultParams assigns for a field left nil.
func (p *ProxyConfig) ToParams() (params ndproxy.Params) {
	params = ndproxy.DefaultParams()

	if p.Router != nil {
		params.Router = *p.Router
	}
	if p.TTL != nil {
		params.TTL = millisToDuration(*p.TTL)
	}
	if p.Deadtime != nil {
		params.Deadtime = millisToDuration(*p.Deadtime)
	}
	if p.Timeout != nil {
		params.Timeout = millisToDuration(*p.Timeout)
	}
	if p.Retries != nil {
		params.Retries = *p.Retries
	}
	if p.Keepalive != nil {
		params.Keepalive = *p.Keepalive
	}
	if p.Autowire != nil {
		params.Autowire = *p.Autowire
	}
	if p.Promiscuous != nil {
		params.Promiscuous = *p.Promiscuous
	}

	return params
}

// ToRule translates a validated *RuleConfig into an [ndproxy.Rule].  An
// iface-mode rule resolves its daughter eagerly through resolver, since that
// interface must be registered with the proxy at construction time.
func (r *RuleConfig) ToRule(resolver ndproxy.InterfaceResolver) (rule ndproxy.Rule, err error) {
	cidr, err := ndaddr.ParseCidr(r.Cidr)
	if err != nil {
		return ndproxy.Rule{}, fmt.Errorf("parsing cidr %q: %w", r.Cidr, err)
	}

	switch {
	case r.Static:
		return ndproxy.NewStaticRule(cidr, r.Autovia), nil
	case r.Auto:
		return ndproxy.NewAutoRule(cidr, r.Autovia), nil
	case r.Iface != "":
		daughter, dErr := resolver.ResolveDaughter(r.Iface)
		if dErr != nil {
			return ndproxy.Rule{}, fmt.Errorf("resolving iface %q: %w", r.Iface, dErr)
		}

		return ndproxy.NewIfaceRule(cidr, daughter, r.Autovia), nil
	default:
		// Validate already rejects this; reaching it means ToRule was called
		// on an unvalidated config.
		return ndproxy.Rule{}, fmt.Errorf("rule %q: no mode set", r.Cidr)
	}
}
