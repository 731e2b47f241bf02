// Package ndsock provides a thin, poll-set aware wrapper over a kernel
// socket descriptor, used by [ndiface.Interface] to multiplex its ICMPv6 and
// packet sockets onto a single blocking wait.
package ndsock

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"golang.org/x/sys/unix"
)

// ErrWouldBlock is the sentinel for a non-blocking read that finds no
// datagram available.  Socket has no read path of its own, and no function of
// this package returns it.
const ErrWouldBlock errors.Error = "would block"

// syscallConner is implemented by the net.Conn/net.PacketConn types that back
// a Socket (*icmp.PacketConn, *packet.Conn) and exposes the raw descriptor
// needed for registration in the poll set.
type syscallConner interface {
	SyscallConn() (syscall.RawConn, error)
}

// Handler is invoked once per readable notification for the Socket that owns
// it.  It must drain the socket's queue until no datagram is left or return after
// handling one datagram; the poll loop calls it once per ready descriptor per
// tick.
type Handler func()

// Socket owns one kernel socket descriptor and its registration in a
// [PollSet].  The zero value is not usable; construct with [PollSet.Register].
type Socket struct {
	set     *PollSet
	handler Handler
	fd      int
	closed  bool
}

// Fd returns the underlying file descriptor.
func (s *Socket) Fd() (fd int) {
	return s.fd
}

// Close deregisters s from its poll set.  Close is idempotent.
func (s *Socket) Close() (err error) {
	if s.closed {
		return nil
	}

	s.closed = true
	s.set.deregister(s)

	return nil
}

// PollSet is a process-wide registry of readable-socket handlers, polled in
// one bounded syscall per [ndevent.Loop] tick.  The zero value is ready to use.
type PollSet struct {
	mu      sync.Mutex
	sockets []*Socket
	dirty   bool
	cache   []unix.PollFd
}

// NewPollSet returns an empty, ready to use PollSet.
func NewPollSet() (set *PollSet) {
	return &PollSet{}
}

// Register wraps conn's descriptor in a new Socket and adds it to the poll
// set.  handler must not be nil; it is invoked from [PollSet.PollAll]
// whenever fd becomes readable.
func (set *PollSet) Register(conn syscallConner, handler Handler) (sock *Socket, err error) {
	if handler == nil {
		return nil, fmt.Errorf("registering socket: handler must not be nil")
	}

	rc, err := conn.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("registering socket: %w", err)
	}

	var fd int
	err = rc.Control(func(f uintptr) { fd = int(f) })
	if err != nil {
		return nil, fmt.Errorf("registering socket: %w", err)
	}

	sock = &Socket{set: set, handler: handler, fd: fd}

	set.mu.Lock()
	defer set.mu.Unlock()

	set.sockets = append(set.sockets, sock)
	set.dirty = true

	return sock, nil
}

// deregister removes sock from the poll set.  It is called from Socket.Close.
func (set *PollSet) deregister(sock *Socket) {
	set.mu.Lock()
	defer set.mu.Unlock()

	for i, s := range set.sockets {
		if s == sock {
			set.sockets = append(set.sockets[:i], set.sockets[i+1:]...)
			set.dirty = true

			return
		}
	}
}

// pollTimeout is the bounded wait used by [PollSet.PollAll], matching the
// event loop's tick granularity.
const pollTimeout = 50 * time.Millisecond

// PollAll blocks for up to 50ms waiting for any registered socket to become
// readable, then calls the handler of every socket that is.  It returns the
// number of descriptors that were ready, or a non-nil error if the
// underlying poll syscall failed (a fatal condition per the error taxonomy).
func (set *PollSet) PollAll() (ready int, err error) {
	set.mu.Lock()
	if set.dirty || set.cache == nil {
		set.cache = make([]unix.PollFd, len(set.sockets))
		for i, s := range set.sockets {
			set.cache[i] = unix.PollFd{Fd: int32(s.fd), Events: unix.POLLIN}
		}
		set.dirty = false
	} else {
		for i := range set.cache {
			set.cache[i].Revents = 0
		}
	}
	pollfds := set.cache
	sockets := set.sockets
	set.mu.Unlock()

	if len(pollfds) == 0 {
		time.Sleep(pollTimeout)

		return 0, nil
	}

	n, err := unix.Poll(pollfds, int(pollTimeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}

		return 0, fmt.Errorf("poll: %w", err)
	}

	for i, pfd := range pollfds {
		if pfd.Revents&unix.POLLIN != 0 {
			sockets[i].handler()
		}
	}

	return n, nil
}
