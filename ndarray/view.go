package ndarray

import "github.com/pkg/errors"

// Reverse returns a view of a with axis's iteration direction flipped: the
// stride for axis is negated and the view's base pointer is shifted to a's
// last element along that axis, per spec invariant 2 ("reversal of an axis
// negates every operand's stride along it and adjusts each operand's base
// pointer to the last element along that axis").
//
// The returned Array shares a's backing Data(); mutating one mutates the
// other.
func (a *Array) Reverse(axis int) *Array {
	if axis < 0 {
		axis += len(a.shape)
	}
	view := *a
	view.shape = append([]int(nil), a.shape...)
	view.strides = append([]int(nil), a.strides...)
	extent := view.shape[axis]
	if extent > 0 {
		view.elemOff = a.elemOff + (extent-1)*a.strides[axis]
	}
	view.strides[axis] = -a.strides[axis]
	return &view
}

// Transpose returns a view of a with axes permuted according to perm, a
// permutation of 0..NumAxes()-1. perm[i] names which axis of a becomes axis
// i of the view.
func (a *Array) Transpose(perm ...int) (*Array, error) {
	if len(perm) != len(a.shape) {
		return nil, errors.Errorf("ndarray.Transpose: perm has %d entries, want %d", len(perm), len(a.shape))
	}
	seen := make([]bool, len(perm))
	newShape := make([]int, len(perm))
	newStrides := make([]int, len(perm))
	for i, axis := range perm {
		if axis < 0 || axis >= len(a.shape) || seen[axis] {
			return nil, errors.Errorf("ndarray.Transpose: invalid or duplicate axis %d in perm %v", axis, perm)
		}
		seen[axis] = true
		newShape[i] = a.shape[axis]
		newStrides[i] = a.strides[axis]
	}
	view := *a
	view.shape = newShape
	view.strides = newStrides
	return &view, nil
}

// T returns the full-reverse transpose (axes in reverse order), the Array
// equivalent of NumPy's `.T`.
func (a *Array) T() *Array {
	perm := make([]int, len(a.shape))
	for i := range perm {
		perm[i] = len(a.shape) - 1 - i
	}
	view, _ := a.Transpose(perm...)
	return view
}

// SwapAxes returns a view with axes i and j exchanged.
func (a *Array) SwapAxes(i, j int) (*Array, error) {
	perm := make([]int, len(a.shape))
	for k := range perm {
		perm[k] = k
	}
	perm[i], perm[j] = perm[j], perm[i]
	return a.Transpose(perm...)
}

// ViewWithStrides returns a new Array sharing a's backing Data(), with an
// arbitrary shape/strides/elemOffset -- the general-purpose constructor the
// iterator core uses to stamp a broadcast-resolved, planned, and
// coalesced layout onto an existing array without recomputing Reverse's or
// Transpose's bookkeeping by hand.
func (a *Array) ViewWithStrides(shape, strides []int, elemOffset int) (*Array, error) {
	if len(shape) != len(strides) {
		return nil, errors.Errorf("ndarray.ViewWithStrides: shape has %d axes, strides has %d", len(shape), len(strides))
	}
	view := *a
	view.shape = append([]int(nil), shape...)
	view.strides = append([]int(nil), strides...)
	view.elemOff = elemOffset
	return &view, nil
}

// BroadcastTo returns a view of a stretched to shape: every axis of a must
// either already equal the corresponding entry of shape or have extent 1,
// in which case its stride becomes 0 (spec §4.3's broadcast-axis rule,
// applied directly to a concrete array rather than through the broadcast
// package's shape-only resolver).
func (a *Array) BroadcastTo(shape []int) (*Array, error) {
	if len(shape) != len(a.shape) {
		return nil, errors.Errorf("ndarray.BroadcastTo: rank mismatch (%d vs %d)", len(a.shape), len(shape))
	}
	newStrides := make([]int, len(shape))
	for i, want := range shape {
		switch a.shape[i] {
		case want:
			newStrides[i] = a.strides[i]
		case 1:
			newStrides[i] = 0
		default:
			return nil, errors.Errorf("ndarray.BroadcastTo: axis %d has extent %d, cannot broadcast to %d", i, a.shape[i], want)
		}
	}
	view := *a
	view.shape = append([]int(nil), shape...)
	view.strides = newStrides
	return &view, nil
}

// Slice returns a view restricted to [lo, hi) along axis, with the same
// stride (no step support needed beyond Reverse, which handles step=-1).
func (a *Array) Slice(axis, lo, hi int) (*Array, error) {
	if axis < 0 {
		axis += len(a.shape)
	}
	if axis < 0 || axis >= len(a.shape) {
		return nil, errors.Errorf("ndarray.Slice: axis %d out of range", axis)
	}
	if lo < 0 || hi > a.shape[axis] || lo > hi {
		return nil, errors.Errorf("ndarray.Slice: invalid range [%d, %d) for axis %d (len %d)", lo, hi, axis, a.shape[axis])
	}
	view := *a
	view.shape = append([]int(nil), a.shape...)
	view.strides = append([]int(nil), a.strides...)
	view.shape[axis] = hi - lo
	view.elemOff = a.elemOff + lo*a.strides[axis]
	return &view, nil
}
