package app

import (
	"fmt"

	"github.com/AdguardTeam/golibs/log"

	"github.com/ndproxy6/ndppd/internal/ndiface"
	"github.com/ndproxy6/ndppd/internal/ndoracle"
	"github.com/ndproxy6/ndppd/internal/ndproxy"
	"github.com/ndproxy6/ndppd/internal/ndsock"
)

// registry opens and shares [*ndiface.Interface] values by device name, so
// that a daughter named by more than one rule — or resolved dynamically by
// more than one auto rule — is only ever opened once.  It implements
// [ndproxy.InterfaceResolver].
type registry struct {
	pollSet *ndsock.PollSet
	oracle  ndoracle.Interface
	opened  map[string]*ndiface.Interface
}

// newRegistry returns a registry sharing pollSet and oracle across every
// interface it opens.
func newRegistry(pollSet *ndsock.PollSet, oracle ndoracle.Interface) (r *registry) {
	return &registry{
		pollSet: pollSet,
		oracle:  oracle,
		opened:  map[string]*ndiface.Interface{},
	}
}

// Open returns the shared *ndiface.Interface for name, opening it if this is
// the first reference.
func (r *registry) Open(name string) (ifc *ndiface.Interface, err error) {
	if ifc, ok := r.opened[name]; ok {
		return ifc, nil
	}

	ifc, err = ndiface.Open(name, r.oracle, r.pollSet)
	if err != nil {
		return nil, fmt.Errorf("opening interface %s: %w", name, err)
	}

	r.opened[name] = ifc

	return ifc, nil
}

// ResolveDaughter implements [ndproxy.InterfaceResolver].
func (r *registry) ResolveDaughter(name string) (ifc ndproxy.Interface, err error) {
	return r.Open(name)
}

// Close closes every interface this registry has opened.
func (r *registry) Close() {
	for name, ifc := range r.opened {
		if err := ifc.Close(); err != nil {
			log.Error("app: closing interface %s: %s", name, err)
		}
	}
}
