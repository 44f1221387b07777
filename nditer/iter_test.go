package nditer

import (
	"testing"

	"github.com/sebffischer/nditer/dtype"
	"github.com/sebffischer/nditer/iterr"
	"github.com/sebffischer/nditer/ndarray"
	"github.com/sebffischer/nditer/operand"
	"github.com/stretchr/testify/require"
)

func TestNew_ElementwiseSumIntoAllocatedOutput(t *testing.T) {
	a, err := ndarray.NewFromSlice([]int{3}, []int32{1, 2, 3})
	require.NoError(t, err)
	b, err := ndarray.NewFromSlice([]int{3}, []int32{10, 20, 30})
	require.NoError(t, err)

	specs := []operand.Spec{
		{Backing: a, Flags: operand.Flags{Mode: operand.ReadOnly}},
		{Backing: b, Flags: operand.Flags{Mode: operand.ReadOnly}},
		{Flags: operand.Flags{Mode: operand.ReadWrite, Allocate: true}},
	}
	it, err := New(specs, Options{})
	require.NoError(t, err)
	require.Equal(t, []int{3}, it.Shape())

	var got []int32
	for !it.Finished() {
		av, err := it.Operand(0)
		require.NoError(t, err)
		bv, err := it.Operand(1)
		require.NoError(t, err)
		ov, err := it.Operand(2)
		require.NoError(t, err)
		x, err := ndarray.Get[int32](av)
		require.NoError(t, err)
		y, err := ndarray.Get[int32](bv)
		require.NoError(t, err)
		require.NoError(t, ndarray.Set(ov, x+y))
		got = append(got, x+y)
		require.NoError(t, it.Advance())
	}
	require.Equal(t, []int32{11, 22, 33}, got)
}

func TestNew_Broadcast(t *testing.T) {
	a, err := ndarray.NewFromSlice([]int{2, 3}, []int32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	b, err := ndarray.NewFromSlice([]int{3}, []int32{100, 200, 300})
	require.NoError(t, err)

	specs := []operand.Spec{
		{Backing: a, Flags: operand.Flags{Mode: operand.ReadOnly}},
		{Backing: b, Flags: operand.Flags{Mode: operand.ReadOnly}},
	}
	it, err := New(specs, Options{})
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, it.Shape())

	var sums []int32
	for !it.Finished() {
		av, _ := it.Operand(0)
		bv, _ := it.Operand(1)
		x, _ := ndarray.Get[int32](av)
		y, _ := ndarray.Get[int32](bv)
		sums = append(sums, x+y)
		require.NoError(t, it.Advance())
	}
	require.Equal(t, []int32{101, 202, 303, 104, 205, 306}, sums)
}

func TestNew_BroadcastShapeMismatch(t *testing.T) {
	a, err := ndarray.NewFromSlice([]int{2, 3}, []int32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	b, err := ndarray.NewFromSlice([]int{2, 2}, []int32{1, 2, 3, 4})
	require.NoError(t, err)

	_, err = New([]operand.Spec{
		{Backing: a, Flags: operand.Flags{Mode: operand.ReadOnly}},
		{Backing: b, Flags: operand.Flags{Mode: operand.ReadOnly}},
	}, Options{})
	require.Error(t, err)
	require.True(t, iterr.Is(err, iterr.ShapeMismatch))
}

func TestIterator_VisitsEveryElementOfReversedView(t *testing.T) {
	a, err := ndarray.NewFromSlice([]int{2, 3}, []int32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	reversed := a.Reverse(1)

	it, err := New([]operand.Spec{
		{Backing: reversed, Flags: operand.Flags{Mode: operand.ReadOnly}},
	}, Options{})
	require.NoError(t, err)

	seen := map[int32]bool{}
	count := 0
	for !it.Finished() {
		v, err := it.Operand(0)
		require.NoError(t, err)
		x, err := ndarray.Get[int32](v)
		require.NoError(t, err)
		seen[x] = true
		count++
		require.NoError(t, it.Advance())
	}
	require.Equal(t, 6, count)
	for _, want := range []int32{1, 2, 3, 4, 5, 6} {
		require.True(t, seen[want], "missing value %d", want)
	}
}

func TestIterator_NoInnerIterationCoalescesContiguousAxes(t *testing.T) {
	// A fully C-contiguous array coalesces into one inner chunk, the same
	// way NumPy's external_loop flag exposes the whole flattened run when
	// nothing blocks merging the axes.
	a, err := ndarray.NewFromSlice([]int{2, 3}, []int32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	it, err := New([]operand.Spec{
		{Backing: a, Flags: operand.Flags{Mode: operand.ReadOnly}},
	}, Options{Global: GlobalFlags{NoInnerIteration: true}})
	require.NoError(t, err)

	v, err := it.Operand(0)
	require.NoError(t, err)
	require.Equal(t, 1, v.NumAxes())
	require.Equal(t, 6, v.Shape()[0])
	require.NoError(t, it.Advance())
	require.True(t, it.Finished())
}

func TestIterator_NoInnerIterationKeepsNonCoalescableAxesSeparate(t *testing.T) {
	base, err := ndarray.NewFromSlice([]int{2, 4}, []int32{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	a, err := base.Slice(1, 0, 3) // shape (2,3), stride [4,1]: axis0's stride
	require.NoError(t, err)       // can't fold into axis1's extent (4 != 3*1)

	it, err := New([]operand.Spec{
		{Backing: a, Flags: operand.Flags{Mode: operand.ReadOnly}},
	}, Options{Global: GlobalFlags{NoInnerIteration: true}})
	require.NoError(t, err)

	var rows [][]int32
	for !it.Finished() {
		v, err := it.Operand(0)
		require.NoError(t, err)
		require.Equal(t, 1, v.NumAxes())
		row := make([]int32, v.Shape()[0])
		for k := range row {
			x, err := ndarray.Get[int32](v, k)
			require.NoError(t, err)
			row[k] = x
		}
		rows = append(rows, row)
		require.NoError(t, it.Advance())
	}
	require.Equal(t, [][]int32{{1, 2, 3}, {5, 6, 7}}, rows)
}

func TestIterator_Buffered(t *testing.T) {
	a, err := ndarray.NewFromSlice([]int{5}, []int32{1, 2, 3, 4, 5})
	require.NoError(t, err)
	out := ndarray.New(dtype.Int32, 5)

	it, err := New([]operand.Spec{
		{Backing: a, Flags: operand.Flags{Mode: operand.ReadOnly}},
		{Backing: out, Flags: operand.Flags{Mode: operand.WriteOnly}},
	}, Options{Global: GlobalFlags{Buffered: true}, BufferSize: 2})
	require.NoError(t, err)

	for !it.Finished() {
		src, err := it.Operand(0)
		require.NoError(t, err)
		dst, err := it.Operand(1)
		require.NoError(t, err)
		for k := 0; k < src.Shape()[0]; k++ {
			v, err := ndarray.Get[int32](src, k)
			require.NoError(t, err)
			require.NoError(t, ndarray.Set(dst, v*10, k))
		}
		require.NoError(t, it.Advance())
	}
	require.NoError(t, it.Finalize())

	for i := 0; i < 5; i++ {
		v, err := ndarray.Get[int32](out, i)
		require.NoError(t, err)
		require.Equal(t, int32((i+1)*10), v)
	}
}

func TestIterator_CoordsAndCIndex(t *testing.T) {
	a, err := ndarray.NewFromSlice([]int{2, 2}, []int32{1, 2, 3, 4})
	require.NoError(t, err)

	it, err := New([]operand.Spec{
		{Backing: a, Flags: operand.Flags{Mode: operand.ReadOnly}},
	}, Options{Global: GlobalFlags{Coords: true, CIndex: true}})
	require.NoError(t, err)

	var coordsSeen [][]int
	var cIdx []int
	for !it.Finished() {
		c, err := it.Coords()
		require.NoError(t, err)
		coordsSeen = append(coordsSeen, c)
		ci, err := it.CIndex()
		require.NoError(t, err)
		cIdx = append(cIdx, ci)
		require.NoError(t, it.Advance())
	}
	require.Equal(t, [][]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}}, coordsSeen)
	require.Equal(t, []int{0, 1, 2, 3}, cIdx)
}

func TestIterator_CoordsRequiresFlag(t *testing.T) {
	a, err := ndarray.NewFromSlice([]int{2}, []int32{1, 2})
	require.NoError(t, err)

	it, err := New([]operand.Spec{
		{Backing: a, Flags: operand.Flags{Mode: operand.ReadOnly}},
	}, Options{})
	require.NoError(t, err)
	_, err = it.Coords()
	require.Error(t, err)
	require.True(t, iterr.Is(err, iterr.CapabilityMissing))
}

func TestIterator_RangedSetIterRange(t *testing.T) {
	a, err := ndarray.NewFromSlice([]int{6}, []int32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	it, err := New([]operand.Spec{
		{Backing: a, Flags: operand.Flags{Mode: operand.ReadOnly}},
	}, Options{Global: GlobalFlags{Ranged: true}})
	require.NoError(t, err)

	require.NoError(t, it.SetIterRange(2, 4))
	var vals []int32
	for !it.Finished() {
		v, err := it.Operand(0)
		require.NoError(t, err)
		x, err := ndarray.Get[int32](v)
		require.NoError(t, err)
		vals = append(vals, x)
		require.NoError(t, it.Advance())
	}
	require.Equal(t, []int32{3, 4}, vals)
}

func TestIterator_EmptyIterationOnZeroSizeAxis(t *testing.T) {
	a, err := ndarray.NewFromSlice([]int{0}, []int32{})
	require.NoError(t, err)

	it, err := New([]operand.Spec{
		{Backing: a, Flags: operand.Flags{Mode: operand.ReadOnly}},
	}, Options{})
	require.NoError(t, err)
	require.True(t, it.Finished())

	err = it.Advance()
	require.Error(t, err)
	require.True(t, iterr.Is(err, iterr.EmptyIteration))
}

func TestIterator_UpdateIfCopyWritesBackOnFinalize(t *testing.T) {
	// S3: a float64 backing is iterated as float32 (a same_kind cast) under
	// updateifcopy; doubling every element through the float32 working copy
	// must be visible in the original float64 backing after Finalize.
	a, err := ndarray.NewFromSlice([]int{3}, []float64{1, 2, 3})
	require.NoError(t, err)

	it, err := New([]operand.Spec{
		{
			Backing: a,
			Flags:   operand.Flags{Mode: operand.ReadWrite, UpdateIfCopy: true},
			OpDType: dtype.Float32,
		},
	}, Options{Casting: dtype.SameKind})
	require.NoError(t, err)

	for !it.Finished() {
		v, err := it.Operand(0)
		require.NoError(t, err)
		x, err := ndarray.Get[float32](v)
		require.NoError(t, err)
		require.NoError(t, ndarray.Set(v, x*2))
		require.NoError(t, it.Advance())
	}

	// Before Finalize, the write-back has not happened yet.
	x0, err := ndarray.Get[float64](a, 0)
	require.NoError(t, err)
	require.Equal(t, float64(1), x0)

	require.NoError(t, it.Finalize())

	for i, want := range []float64{2, 4, 6} {
		x, err := ndarray.Get[float64](a, i)
		require.NoError(t, err)
		require.Equal(t, want, x)
	}
}

func TestIterator_BufferedNBOAlignedWritesBackOnFinalize(t *testing.T) {
	// S4: a non-native-byte-order backing is iterated in buffered mode
	// through a native-order working copy (no dtype cast, just NBOAligned,
	// and deliberately without UpdateIfCopy -- an nbo_aligned copy commits
	// back regardless of that flag); writes staged through the buffer
	// engine must reach the working copy on the last chunk's flush, and the
	// working copy must then be byte-swapped back into the original
	// backing on Finalize.
	a, err := ndarray.NewSwappedFromSlice([]int{4}, []int32{1, 2, 3, 4})
	require.NoError(t, err)
	require.False(t, a.NativeByteOrder())

	it, err := New([]operand.Spec{
		{Backing: a, Flags: operand.Flags{Mode: operand.ReadWrite, NBOAligned: true}},
	}, Options{Global: GlobalFlags{Buffered: true}, BufferSize: 2})
	require.NoError(t, err)

	for !it.Finished() {
		v, err := it.Operand(0)
		require.NoError(t, err)
		for k := 0; k < v.Shape()[0]; k++ {
			x, err := ndarray.Get[int32](v, k)
			require.NoError(t, err)
			require.NoError(t, ndarray.Set(v, x+100, k))
		}
		require.NoError(t, it.Advance())
	}
	require.NoError(t, it.Finalize())

	for i, want := range []int32{101, 102, 103, 104} {
		x, err := ndarray.Get[int32](a, i)
		require.NoError(t, err)
		require.Equal(t, want, x)
	}
}

func TestSplitRange(t *testing.T) {
	require.Equal(t, [][2]int{{0, 3}, {3, 5}, {5, 7}}, SplitRange(7, 3))
	require.Equal(t, [][2]int{{0, 1}, {1, 2}, {2, 3}}, SplitRange(3, 5))
	require.Nil(t, SplitRange(0, 3))
}
