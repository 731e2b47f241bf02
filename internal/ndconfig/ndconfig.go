// Package ndconfig parses and validates the YAML configuration file
// describing an ordered list of proxies and the rules each of them serves.
package ndconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/golibs/validate"
	"gopkg.in/yaml.v3"

	"github.com/ndproxy6/ndppd/internal/aghalg"
)

// staticWarnPrefix is the prefix length at or below which a static rule
// produces a log warning: such a rule answers for a very large swath of
// addresses unconditionally, which is usually a configuration mistake.
const staticWarnPrefix = 120

// Config is the root of the configuration file: an ordered list of proxies.
type Config struct {
	Proxies []*ProxyConfig `yaml:"proxies"`
}

// type check
var _ validate.Interface = (*Config)(nil)

// Validate implements the [validate.Interface] interface for *Config.
func (c *Config) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	if len(c.Proxies) == 0 {
		return fmt.Errorf("proxies: %w", errors.ErrEmptyValue)
	}

	var errs []error
	ifaces := make(aghalg.UniqChecker[string], len(c.Proxies))
	for i, p := range c.Proxies {
		errs = validate.Append(errs, fmt.Sprintf("proxies.%d (interface %q)", i, p.Interface), p)
		if p.Interface != "" {
			ifaces.Add(p.Interface)
		}
	}

	if err = ifaces.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("proxies: duplicate interface: %w", err))
	}

	return errors.Join(errs...)
}

// ProxyConfig is one `proxy` section: one parent interface, its tunables,
// and the ordered list of rules it serves.
type ProxyConfig struct {
	// Interface is the parent interface's device name.
	Interface string `yaml:"interface"`

	// Rules is the ordered list of rule sections under this proxy.
	Rules []*RuleConfig `yaml:"rules"`

	// Router sets the ROUTER flag in synthesized adverts.  Defaults to true.
	Router *bool `yaml:"router,omitempty"`

	// TTL is the lifetime of a VALID session before renewal, in
	// milliseconds.  Defaults to 30000.
	TTL *int `yaml:"ttl,omitempty"`

	// Deadtime is the lifetime of an INVALID session before eviction, in
	// milliseconds.  When omitted, [Load] sets it to the proxy's resolved
	// ttl, which is 30000 if ttl is omitted too.
	Deadtime *int `yaml:"deadtime,omitempty"`

	// Timeout is the per-probe wait before retrying or invalidating, in
	// milliseconds.  Defaults to 500.
	Timeout *int `yaml:"timeout,omitempty"`

	// Retries is the number of probes per WAITING/RENEWING cycle.  Defaults
	// to 3.
	Retries *int `yaml:"retries,omitempty"`

	// Keepalive renews VALID sessions automatically.  Defaults to true.
	Keepalive *bool `yaml:"keepalive,omitempty"`

	// Autowire installs reverse-path shortcuts on first advert.  Defaults to
	// false.
	Autowire *bool `yaml:"autowire,omitempty"`

	// Promiscuous enables promiscuous mode on the parent interface.
	// Defaults to false.
	Promiscuous *bool `yaml:"promiscuous,omitempty"`
}

// type check
var _ validate.Interface = (*ProxyConfig)(nil)

// Validate implements the [validate.Interface] interface for *ProxyConfig.
func (p *ProxyConfig) Validate() (err error) {
	if p == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.NotEmpty("interface", p.Interface),
	}

	if len(p.Rules) == 0 {
		errs = append(errs, fmt.Errorf("rules: 'proxy' section %q has no 'rule' entries: %w", p.Interface, errors.ErrEmptyValue))
	}

	for i, r := range p.Rules {
		errs = validate.Append(errs, fmt.Sprintf("rules.%d", i), r)
	}

	return errors.Join(errs...)
}

// RuleConfig is one `rule` section: a CIDR plus exactly one resolution mode.
type RuleConfig struct {
	// Cidr is the rule's membership predicate, in "addr/prefix" form.
	Cidr string `yaml:"cidr"`

	// Iface is the daughter interface name for an iface-mode rule.  Exactly
	// one of Iface, Static, or Auto must be set.
	Iface string `yaml:"iface,omitempty"`

	// Static marks a static-mode rule: answered immediately, no daughter
	// probe.
	Static bool `yaml:"static,omitempty"`

	// Auto marks an auto-mode rule: the daughter is resolved via the routing
	// oracle at session-creation time.
	Auto bool `yaml:"auto,omitempty"`

	// Autovia marks that the reverse path should carry the original source
	// as the advertised target.
	Autovia bool `yaml:"autovia,omitempty"`
}

// type check
var _ validate.Interface = (*RuleConfig)(nil)

// Validate implements the [validate.Interface] interface for *RuleConfig.
func (r *RuleConfig) Validate() (err error) {
	if r == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.NotEmpty("cidr", r.Cidr),
	}

	modes := 0
	if r.Iface != "" {
		modes++
	}
	if r.Static {
		modes++
	}
	if r.Auto {
		modes++
	}

	switch modes {
	case 0:
		errs = append(errs, fmt.Errorf(
			"'rule' section %q must specify exactly one of 'iface', 'static', or 'auto'", r.Cidr,
		))
	case 1:
		// OK.
	default:
		errs = append(errs, fmt.Errorf(
			"'rule' section %q: only one of 'iface', 'auto' and 'static' may be specified", r.Cidr,
		))
	}

	if r.Static {
		if prefix, ok := staticRulePrefix(r.Cidr); ok && prefix <= staticWarnPrefix {
			log.Info(
				"ndconfig: warning: static rule %q has prefix length %d <= %d, "+
					"it will answer for a very broad address range",
				r.Cidr, prefix, staticWarnPrefix,
			)
		}
	}

	return errors.Join(errs...)
}

// Load reads and validates the configuration file at path.
func Load(path string) (c *Config, err error) {
	defer func() { err = errors.Annotate(err, "loading config %q: %w", path) }()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c = &Config{}
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	applyDefaults(c)

	if err = c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// defaultTTLMillis is the resolved ttl a proxy section gets when it omits
// the key, matching [ndproxy.DefaultParams]'s TTL.
const defaultTTLMillis = 30_000

// applyDefaults fills in the deadtime-defaults-to-ttl rule before
// validation/translation to [ndproxy.Params].  ttl is resolved first (to its
// own default when omitted), then deadtime always inherits the *resolved*
// ttl when it is itself omitted, regardless of whether ttl was given
// explicitly.
func applyDefaults(c *Config) {
	for _, p := range c.Proxies {
		if p.TTL == nil {
			ttl := defaultTTLMillis
			p.TTL = &ttl
		}

		if p.Deadtime == nil {
			ttl := *p.TTL
			p.Deadtime = &ttl
		}
	}
}

// millisToDuration converts a millisecond count from the config file into a
// [time.Duration], used by the translation layer that builds
// [ndproxy.Params] from a *ProxyConfig.
func millisToDuration(ms int) (d time.Duration) {
	return time.Duration(ms) * time.Millisecond
}
