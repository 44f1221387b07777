package iterr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIs(t *testing.T) {
	err := New(ShapeMismatch, "shapes %v and %v disagree", []int{2, 3}, []int{2, 2})
	require.True(t, Is(err, ShapeMismatch))
	require.False(t, Is(err, AxisMapInvalid))
	require.Contains(t, err.Error(), "ShapeMismatch")
}

func TestWrap(t *testing.T) {
	cause := New(CastNotPermitted, "int64 -> bool needs unsafe")
	wrapped := Wrap(FlagConflict, cause, "while validating operand 0")
	require.True(t, Is(wrapped, FlagConflict))
}
