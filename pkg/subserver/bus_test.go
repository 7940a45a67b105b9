package subserver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBusBroadcastReachesEverySubscriber(t *testing.T) {
	bus := NewBus()
	_, a := bus.Subscribe()
	_, b := bus.Subscribe()

	bus.Broadcast(BusEvent{Kind: BusNewBlock, BlockNumber: 7})

	require.Equal(t, uint64(7), (<-a).BlockNumber)
	require.Equal(t, uint64(7), (<-b).BlockNumber)
}

// A consumer that stops draining misses events instead of blocking the
// intake loop: events are hints to re-read from the store, so dropping
// is safe.
func TestBusDropsEventsForSlowConsumers(t *testing.T) {
	bus := NewBus()
	_, slow := bus.Subscribe()

	for i := 0; i < busCapacity+25; i++ {
		bus.Broadcast(BusEvent{Kind: BusNewBlock, BlockNumber: uint64(i)})
	}

	received := 0
	for {
		select {
		case <-slow:
			received++
			continue
		default:
		}
		break
	}
	require.Equal(t, busCapacity, received)
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	id, ch := bus.Subscribe()
	bus.Unsubscribe(id)
	_, ok := <-ch
	require.False(t, ok)

	// Broadcasting after unsubscribe must not panic on the closed
	// channel.
	bus.Broadcast(BusEvent{Kind: BusNewBlock, BlockNumber: 1})
}

func TestBusCloseTerminatesAllSubscribers(t *testing.T) {
	bus := NewBus()
	_, a := bus.Subscribe()
	bus.Broadcast(BusEvent{Kind: BusError})
	bus.Close()

	ev, ok := <-a
	require.True(t, ok)
	require.Equal(t, BusError, ev.Kind)
	_, ok = <-a
	require.False(t, ok)

	_, late := bus.Subscribe()
	_, ok = <-late
	require.False(t, ok)
}
