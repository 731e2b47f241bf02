package ndevent_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ndproxy6/ndppd/internal/ndevent"
	"github.com/ndproxy6/ndppd/internal/ndsock"
)

type fakeTicker struct {
	ticks []time.Duration
}

func (f *fakeTicker) Tick(elapsed time.Duration) {
	f.ticks = append(f.ticks, elapsed)
}

func TestLoop_stopsAfterCurrentIteration(t *testing.T) {
	loop := ndevent.New(ndsock.NewPollSet())
	ticker := &fakeTicker{}
	loop.AddProxy(ticker)

	done := make(chan error, 1)
	go func() {
		done <- loop.Run()
	}()

	// Give the loop a few 50ms-bound iterations to run, then stop it.
	time.Sleep(120 * time.Millisecond)
	loop.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop within 2s of Stop()")
	}

	assert.NotEmpty(t, ticker.ticks)
}

func TestLoop_removeProxy(t *testing.T) {
	loop := ndevent.New(ndsock.NewPollSet())
	a, b := &fakeTicker{}, &fakeTicker{}

	loop.AddProxy(a)
	loop.AddProxy(b)
	loop.RemoveProxy(a)

	done := make(chan error, 1)
	go func() {
		done <- loop.Run()
	}()

	time.Sleep(70 * time.Millisecond)
	loop.Stop()
	<-done

	assert.Empty(t, a.ticks)
	assert.NotEmpty(t, b.ticks)
}
