package ndsock_test

import (
	"net"
	"testing"
	"time"

	"github.com/ndproxy6/ndppd/internal/ndsock"
	"github.com/stretchr/testify/require"
)

func TestPollSet_PollAll(t *testing.T) {
	conn, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback})
	require.NoError(t, err)
	defer conn.Close()

	set := ndsock.NewPollSet()

	received := make(chan struct{}, 1)
	sock, err := set.Register(conn, func() {
		buf := make([]byte, 64)
		_, _, _ = conn.ReadFromUDP(buf)
		received <- struct{}{}
	})
	require.NoError(t, err)
	defer sock.Close()

	_, err = conn.WriteToUDP([]byte("ping"), conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	// Give the kernel a moment to enqueue the datagram before polling.
	time.Sleep(10 * time.Millisecond)

	ready, err := set.PollAll()
	require.NoError(t, err)
	require.Equal(t, 1, ready)

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestPollSet_empty(t *testing.T) {
	set := ndsock.NewPollSet()

	ready, err := set.PollAll()
	require.NoError(t, err)
	require.Equal(t, 0, ready)
}

func TestPollSet_deregister(t *testing.T) {
	conn, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback})
	require.NoError(t, err)
	defer conn.Close()

	set := ndsock.NewPollSet()
	sock, err := set.Register(conn, func() {})
	require.NoError(t, err)

	require.NoError(t, sock.Close())
	require.NoError(t, sock.Close())
}
