// Package ndevent implements a cooperative, single-threaded event loop: one
// bounded poll cycle and one session-aging tick per iteration, with no
// locking since every mutation happens on this one goroutine.
package ndevent

import (
	"fmt"
	"time"

	"github.com/AdguardTeam/golibs/log"

	"github.com/ndproxy6/ndppd/internal/ndsock"
)

// Ticker is the subset of [*ndproxy.Proxy] the loop needs to age sessions
// each iteration.
type Ticker interface {
	Tick(elapsed time.Duration)
}

// Loop owns the poll cycle and the periodic tick that ages every proxy's
// sessions.
type Loop struct {
	pollSet *ndsock.PollSet
	proxies []Ticker
	last    time.Time
	running bool
}

// New returns a Loop polling pollSet.
func New(pollSet *ndsock.PollSet) (l *Loop) {
	return &Loop{pollSet: pollSet}
}

// AddProxy registers p to be aged on every tick.
func (l *Loop) AddProxy(p Ticker) {
	l.proxies = append(l.proxies, p)
}

// RemoveProxy deregisters p.
func (l *Loop) RemoveProxy(p Ticker) {
	for i, existing := range l.proxies {
		if existing == p {
			l.proxies = append(l.proxies[:i], l.proxies[i+1:]...)

			return
		}
	}
}

// Run blocks, iterating [Loop.step] until [Loop.Stop] is called.  A UNIX
// signal handler flipping that flag is the only cancellation primitive.
func (l *Loop) Run() (err error) {
	l.running = true
	l.last = time.Now()

	for l.running {
		if err = l.step(); err != nil {
			return fmt.Errorf("event loop: %w", err)
		}
	}

	return nil
}

// Stop requests an orderly shutdown: the loop returns after the current
// iteration completes.
func (l *Loop) Stop() {
	l.running = false
}

// step runs one iteration: poll_all with its 50ms bound, letting every
// readable socket's handler drain its queue, then ages every registered
// proxy's sessions by the elapsed wall-clock time.
func (l *Loop) step() (err error) {
	_, err = l.pollSet.PollAll()
	if err != nil {
		// A poll syscall failure is fatal: there is no way to keep serving
		// without a working poll set.
		return err
	}

	now := time.Now()
	elapsed := now.Sub(l.last)
	l.last = now

	for _, p := range l.proxies {
		p.Tick(elapsed)
	}

	log.Debug("ndevent: tick: %d proxies, elapsed %s", len(l.proxies), elapsed)

	return nil
}
