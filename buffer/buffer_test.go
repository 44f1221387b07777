package buffer

import (
	"testing"

	"github.com/sebffischer/nditer/iterr"
	"github.com/sebffischer/nditer/ndarray"
	"github.com/stretchr/testify/require"
)

func TestEngine_RefillAndFlush(t *testing.T) {
	src, err := ndarray.NewFromSlice([]int{6}, []int32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	dst := ndarray.New(src.DType(), 6)

	engine, err := New([]Operand{
		{Array: src, Readable: true},
		{Array: dst, Writable: true},
	}, 2, false)
	require.NoError(t, err)
	require.Equal(t, 2, engine.ChunkLen())

	for !engine.Finished() {
		srcBuf, err := engine.Buffer(0)
		require.NoError(t, err)
		dstBuf, err := engine.Buffer(1)
		require.NoError(t, err)
		for k := 0; k < engine.ChunkLen(); k++ {
			v, err := ndarray.Get[int32](srcBuf, k)
			require.NoError(t, err)
			require.NoError(t, ndarray.Set(dstBuf, v*10, k))
		}
		require.NoError(t, engine.Advance())
	}
	require.NoError(t, engine.Finalize())

	for i := 0; i < 6; i++ {
		v, err := ndarray.Get[int32](dst, i)
		require.NoError(t, err)
		require.Equal(t, int32((i+1)*10), v)
	}
}

func TestEngine_GrowinnerWhenNative(t *testing.T) {
	src, err := ndarray.NewFromSlice([]int{5}, []int32{1, 2, 3, 4, 5})
	require.NoError(t, err)

	engine, err := New([]Operand{{Array: src, Readable: true}}, 2, true)
	require.NoError(t, err)
	require.Equal(t, 5, engine.ChunkLen())
}

func TestEngine_NoGrowinnerWithSwappedBacking(t *testing.T) {
	src, err := ndarray.NewSwappedFromSlice([]int{5}, []int32{1, 2, 3, 4, 5})
	require.NoError(t, err)

	engine, err := New([]Operand{{Array: src, Readable: true}}, 2, true)
	require.NoError(t, err)
	require.Equal(t, 2, engine.ChunkLen())
}

func TestEngine_BufferWriteMerge(t *testing.T) {
	// a writable operand broadcasting a size-1 source into a 4-element
	// inner axis has stride 0 and extent > 1 -- not permitted.
	a, err := ndarray.NewFromSlice([]int{1}, []int32{0})
	require.NoError(t, err)
	broadcastView, err := a.BroadcastTo([]int{4})
	require.NoError(t, err)

	_, err = New([]Operand{{Array: broadcastView, Writable: true}}, 4, false)
	require.Error(t, err)
	require.True(t, iterr.Is(err, iterr.BufferWriteMerge))
}

func TestEngine_BufferWriteMerge_SizeOneExempt(t *testing.T) {
	a, err := ndarray.NewFromSlice([]int{1}, []int32{0})
	require.NoError(t, err)
	broadcastView, err := a.BroadcastTo([]int{1})
	require.NoError(t, err)

	_, err = New([]Operand{{Array: broadcastView, Writable: true}}, 1, false)
	require.NoError(t, err)
}
