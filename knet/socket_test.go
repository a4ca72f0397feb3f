package knet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetwork_SendToDeliversAcrossSockets(t *testing.T) {
	n := NewNetwork()
	a, err := n.Bind(1000)
	require.NoError(t, err)
	defer a.Close()
	b, err := n.Bind(2000)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.SendTo(2000, []byte("ping")))

	payload, from, err := b.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ping", string(payload))
	assert.Equal(t, uint16(1000), from)
}

func TestNetwork_BindEphemeralPortsDontCollide(t *testing.T) {
	n := NewNetwork()
	a, err := n.Bind(0)
	require.NoError(t, err)
	b, err := n.Bind(0)
	require.NoError(t, err)
	assert.NotEqual(t, a.LocalPort(), b.LocalPort())
}

func TestNetwork_SendToUnboundPortFails(t *testing.T) {
	n := NewNetwork()
	a, err := n.Bind(1000)
	require.NoError(t, err)
	defer a.Close()

	assert.ErrorIs(t, a.SendTo(9999, []byte("x")), ErrNoListener)
}

func TestLoopbackSocket_CloseWakesBlockedRecv(t *testing.T) {
	n := NewNetwork()
	a, err := n.Bind(1000)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, _, err := a.Recv()
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, a.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("recv never woke on close")
	}
}
