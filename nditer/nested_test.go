package nditer

import (
	"testing"

	"github.com/sebffischer/nditer/ndarray"
	"github.com/sebffischer/nditer/operand"
	"github.com/stretchr/testify/require"
)

func TestNestedIters_OuterRowsInnerColumns(t *testing.T) {
	a, err := ndarray.NewFromSlice([]int{2, 3}, []int32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	specs := []operand.Spec{{Backing: a, Flags: operand.Flags{Mode: operand.ReadOnly}}}
	outer, inner, err := NestedIters(specs, []int{0}, []int{1}, Options{})
	require.NoError(t, err)

	var rowSums []int32
	for !outer.Finished() {
		innerIt, err := inner()
		require.NoError(t, err)
		var sum int32
		for !innerIt.Finished() {
			v, err := innerIt.Operand(0)
			require.NoError(t, err)
			x, err := ndarray.Get[int32](v)
			require.NoError(t, err)
			sum += x
			require.NoError(t, innerIt.Advance())
		}
		rowSums = append(rowSums, sum)
		require.NoError(t, outer.Advance())
	}
	require.Equal(t, []int32{6, 15}, rowSums)
}

func TestNestedIters_RequiresConcreteBacking(t *testing.T) {
	type fakeBacking struct{ operand.Backing }
	specs := []operand.Spec{{Backing: fakeBacking{}, Flags: operand.Flags{Mode: operand.ReadOnly}}}
	_, _, err := NestedIters(specs, []int{0}, []int{1}, Options{})
	require.Error(t, err)
}
