package kdevice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackUart_WriteThenReadRoundTrips(t *testing.T) {
	u := NewLoopbackUart("uart0")
	defer u.Close()

	n, err := u.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 16)
	n, err = u.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestLoopbackUart_ReadBlocksUntilWrite(t *testing.T) {
	u := NewLoopbackUart("uart0")
	defer u.Close()

	out := make(chan string, 1)
	go func() {
		buf := make([]byte, 16)
		n, err := u.Read(buf)
		if err != nil {
			out <- ""
			return
		}
		out <- string(buf[:n])
	}()

	time.Sleep(10 * time.Millisecond)
	_, err := u.Write([]byte("hi"))
	require.NoError(t, err)

	select {
	case got := <-out:
		assert.Equal(t, "hi", got)
	case <-time.After(time.Second):
		t.Fatal("read never resolved")
	}
}

func TestLoopbackUart_CloseWakesBlockedRead(t *testing.T) {
	u := NewLoopbackUart("uart0")
	done := make(chan struct{})
	go func() {
		buf := make([]byte, 4)
		_, _ = u.Read(buf)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, u.Close())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close never woke the blocked read")
	}
}

func TestNullBlockDevice_WriteThenReadRoundTrips(t *testing.T) {
	d := NewNullBlockDevice("disk0", 4, 512)
	assert.Equal(t, int64(4), d.BlockCount())
	assert.Equal(t, 512, d.BlockSize())

	want := make([]byte, 512)
	for i := range want {
		want[i] = byte(i)
	}
	require.NoError(t, d.WriteBlock(2, want))

	got := make([]byte, 512)
	require.NoError(t, d.ReadBlock(2, got))
	assert.Equal(t, want, got)
}
