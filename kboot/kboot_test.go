package kboot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_WiresAndRunsScheduler(t *testing.T) {
	var gotKernel *Kernel
	k := Start(Config{Cores: 2, TickPeriod: time.Millisecond}, func(k *Kernel) {
		gotKernel = k
	})
	defer k.Shutdown()

	require.NotNil(t, gotKernel)
	assert.Same(t, k, gotKernel)
	assert.Equal(t, 2, k.Scheduler.CoreCount())
	assert.Equal(t, int64(0), k.Syscalls.Dispatch(0, nil))
}

func TestStart_DefaultsToOneCore(t *testing.T) {
	k := Start(Config{}, nil)
	defer k.Shutdown()
	assert.Equal(t, 1, k.Scheduler.CoreCount())
}
