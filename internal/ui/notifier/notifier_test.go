package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesBroadcast(t *testing.T) {
	n := New()
	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	n.Broadcast()

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a ping")
	}
}

func TestBroadcastSkipsFullChannels(t *testing.T) {
	n := New()
	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	// Two broadcasts collapse into one pending ping.
	n.Broadcast()
	n.Broadcast()

	<-ch
	select {
	case <-ch:
		t.Fatal("second ping should have been dropped")
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	n := New()
	ch := n.Subscribe()
	require.Equal(t, 1, n.Len())

	n.Unsubscribe(ch)
	assert.Equal(t, 0, n.Len())

	_, open := <-ch
	assert.False(t, open)
}
