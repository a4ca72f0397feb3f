package ksyscall

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_UnregisteredSlotReturnsEINVAL(t *testing.T) {
	tbl := NewTable()
	assert.Equal(t, int64(EINVAL), tbl.Dispatch(GetTid, nil))
}

func TestTable_DispatchRoutesToRegisteredHandler(t *testing.T) {
	tbl := NewTable()
	tbl.Register(GetTid, func(args []int64) int64 { return 42 })
	assert.Equal(t, int64(42), tbl.Dispatch(GetTid, nil))
}

func TestTable_OutOfRangeNumberReturnsEINVAL(t *testing.T) {
	tbl := NewTable()
	assert.Equal(t, int64(EINVAL), tbl.Dispatch(Number(999), nil))
}

func TestTable_RegisterOutOfRangePanics(t *testing.T) {
	tbl := NewTable()
	assert.Panics(t, func() { tbl.Register(Number(999), func([]int64) int64 { return 0 }) })
}
