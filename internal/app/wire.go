package app

import (
	"fmt"

	"github.com/ndproxy6/ndppd/internal/ndconfig"
	"github.com/ndproxy6/ndppd/internal/ndevent"
	"github.com/ndproxy6/ndppd/internal/ndoracle"
	"github.com/ndproxy6/ndppd/internal/ndproxy"
	"github.com/ndproxy6/ndppd/internal/ndsock"
)

// App owns every proxy built from a configuration file, plus the event loop
// that ages and polls them, and the registry of shared interfaces backing
// them.
type App struct {
	loop     *ndevent.Loop
	registry *registry
	proxies  []*ndproxy.Proxy
}

// Build wires a *Config into a runnable App: every proxy section's parent
// and fixed daughters are opened through a shared registry, auto-mode rules
// defer daughter resolution to that same registry, and every resulting
// [*ndproxy.Proxy] is registered with one event loop.
func Build(cfg *ndconfig.Config) (a *App, err error) {
	pollSet := ndsock.NewPollSet()
	oracle := ndoracle.New()

	if err = oracle.Refresh(); err != nil {
		return nil, fmt.Errorf("refreshing routing oracle: %w", err)
	}

	reg := newRegistry(pollSet, oracle)
	loop := ndevent.New(pollSet)

	a = &App{loop: loop, registry: reg}

	for _, pc := range cfg.Proxies {
		proxy, bErr := buildProxy(pc, reg, oracle)
		if bErr != nil {
			a.closeProxies()
			reg.Close()

			return nil, fmt.Errorf("proxy %s: %w", pc.Interface, bErr)
		}

		a.proxies = append(a.proxies, proxy)
		loop.AddProxy(proxy)
	}

	return a, nil
}

// buildProxy translates one *ndconfig.ProxyConfig into a running
// [*ndproxy.Proxy].
func buildProxy(pc *ndconfig.ProxyConfig, reg *registry, oracle ndoracle.Interface) (proxy *ndproxy.Proxy, err error) {
	parent, err := reg.Open(pc.Interface)
	if err != nil {
		return nil, err
	}

	rules := make([]ndproxy.Rule, 0, len(pc.Rules))
	for _, rc := range pc.Rules {
		rule, rErr := rc.ToRule(reg)
		if rErr != nil {
			return nil, fmt.Errorf("rule %s: %w", rc.Cidr, rErr)
		}

		rules = append(rules, rule)
	}

	return ndproxy.NewProxy(parent, oracle, reg, rules, pc.ToParams())
}

// closeProxies detaches every proxy built so far, used to unwind a partially
// constructed App when a later proxy section fails to build.
func (a *App) closeProxies() {
	for _, p := range a.proxies {
		p.Close()
	}
}

// Run blocks, running the event loop until [App.Stop] is called.
func (a *App) Run() (err error) {
	return a.loop.Run()
}

// Stop requests an orderly shutdown of the event loop.
func (a *App) Stop() {
	a.loop.Stop()
}

// Close tears down every proxy and closes every interface the App opened.
func (a *App) Close() {
	a.closeProxies()
	a.registry.Close()
}

// ProxyCount returns the number of proxies this App is running, mainly for
// diagnostics and tests.
func (a *App) ProxyCount() (n int) {
	return len(a.proxies)
}
