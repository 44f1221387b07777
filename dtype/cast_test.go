package dtype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanCast_SpecExamples(t *testing.T) {
	// spec §4.4: "safe: every value in the source type is representable in
	// the destination (e.g. f4→f8, i4→f8)."
	require.True(t, CanCast(Float32, Float64, true, Safe))
	require.True(t, CanCast(Int32, Float64, true, Safe))

	// spec §4.4: "same_kind: safe, or within the same kind family
	// (f8→f4, c16→c8)."
	require.False(t, CanCast(Float64, Float32, true, Safe))
	require.True(t, CanCast(Float64, Float32, true, SameKind))
	require.False(t, CanCast(Complex128, Complex64, true, Safe))
	require.True(t, CanCast(Complex128, Complex64, true, SameKind))

	// no / equiv distinguish only on byte order for identical dtypes.
	require.True(t, CanCast(Float32, Float32, true, No))
	require.False(t, CanCast(Float32, Float32, false, No))
	require.True(t, CanCast(Float32, Float32, false, Equiv))

	// unsafe allows everything.
	require.True(t, CanCast(Complex128, Bool, true, Unsafe))
	require.False(t, CanCast(Complex128, Bool, true, SameKind))
}

func TestCanCast_Ordering(t *testing.T) {
	// Whatever is permitted at a stricter level remains permitted at every
	// looser level (the five levels are totally ordered).
	levels := []CastingLevel{No, Equiv, Safe, SameKind, Unsafe}
	pairs := [][2]DType{{Float32, Float64}, {Int8, Uint64}, {Bool, Complex64}}
	for _, pair := range pairs {
		permittedFrom := -1
		for i, level := range levels {
			if CanCast(pair[0], pair[1], true, level) {
				permittedFrom = i
				break
			}
		}
		require.NotEqual(t, -1, permittedFrom, "every conversion is at least unsafe-permitted")
		for i := permittedFrom; i < len(levels); i++ {
			require.True(t, CanCast(pair[0], pair[1], true, levels[i]))
		}
	}
}

func TestCommonType(t *testing.T) {
	require.Equal(t, Float64, CommonType(Int32, Float64))
	require.Equal(t, Float32, CommonType(Bool, Float32))
	require.Equal(t, Complex128, CommonType(Float64, Complex64))
	require.Equal(t, Int32, CommonType(Int32, Int32))

	// Open question preserved: mixed signed/unsigned promotes to unsigned.
	require.Equal(t, Uint32, CommonType(Int32, Uint32))
	require.Equal(t, Uint64, CommonType(Int8, Uint64))
}
