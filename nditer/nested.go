package nditer

import (
	"github.com/sebffischer/nditer/iterr"
	"github.com/sebffischer/nditer/ndarray"
	"github.com/sebffischer/nditer/operand"
	"github.com/sebffischer/nditer/planner"
)

// NestedIters builds a two-level nested iterator pair (spec §4.6, component
// C7): an outer Iterator walking outerAxes (forced to row-major order with
// coalescing and custom op_axes disabled, so each outer position maps back
// to exactly one element offset per operand), and an inner() constructor
// that, called once per outer position, returns a fresh Iterator over
// innerAxes with every operand's outer axes fixed at the outer cursor's
// current coordinate.
//
// Every operand's Backing must already carry exactly len(outerAxes) +
// len(innerAxes) axes -- broadcasting operands of differing rank is not
// supported while nesting; resolve broadcasting with a plain New() (or
// ndarray.BroadcastTo each operand by hand) first. Only one outer/inner
// split is built directly; further nesting levels are produced by calling
// NestedIters again on the axes inner() would otherwise walk.
func NestedIters(specs []operand.Spec, outerAxes, innerAxes []int, opts Options) (outerIter *Iterator, inner func() (*Iterator, error), err error) {
	backings := make([]*ndarray.Array, len(specs))
	for i, spec := range specs {
		if spec.Backing == nil {
			continue
		}
		arr, ok := spec.Backing.(*ndarray.Array)
		if !ok {
			return nil, nil, iterr.New(iterr.CapabilityMissing, "operand %d: nested iteration requires a concrete *ndarray.Array backing", i)
		}
		backings[i] = arr
	}

	outerSpecs := make([]operand.Spec, len(specs))
	for i, spec := range specs {
		outerSpecs[i] = spec
		if backings[i] == nil {
			continue
		}
		view, err := axisSelect(backings[i], outerAxes)
		if err != nil {
			return nil, nil, err
		}
		outerSpecs[i].Backing = view
		outerSpecs[i].OpAxes = nil
	}

	outerOpts := opts
	outerOpts.Order = planner.C
	outerOpts.Global.Coords = true
	outerIter, err = New(outerSpecs, outerOpts)
	if err != nil {
		return nil, nil, err
	}

	inner = func() (*Iterator, error) {
		coords, err := outerIter.Coords()
		if err != nil {
			return nil, err
		}
		innerSpecs := make([]operand.Spec, len(specs))
		for i, spec := range specs {
			innerSpecs[i] = spec
			if backings[i] == nil {
				continue
			}
			fixed, err := fixAxes(backings[i], outerAxes, coords)
			if err != nil {
				return nil, err
			}
			view, err := axisSelect(fixed, innerAxes)
			if err != nil {
				return nil, err
			}
			innerSpecs[i].Backing = view
			innerSpecs[i].OpAxes = nil
		}
		return New(innerSpecs, opts)
	}
	return outerIter, inner, nil
}

// axisSelect returns a view of a restricted to axes, in the order given,
// forgetting every other axis.
func axisSelect(a *ndarray.Array, axes []int) (*ndarray.Array, error) {
	shape := a.Shape()
	strides := a.Strides()
	newShape := make([]int, len(axes))
	newStrides := make([]int, len(axes))
	for i, axis := range axes {
		if axis < 0 || axis >= len(shape) {
			return nil, iterr.New(iterr.AxisMapInvalid, "axis %d out of range for operand with %d axes", axis, len(shape))
		}
		newShape[i] = shape[axis]
		newStrides[i] = strides[axis]
	}
	return a.ViewWithStrides(newShape, newStrides, a.ElemOffset())
}

// fixAxes shifts a's element offset to the position named by coords along
// axes, keeping a's full shape/strides so a subsequent axisSelect can still
// pick out the remaining axes.
func fixAxes(a *ndarray.Array, axes, coords []int) (*ndarray.Array, error) {
	if len(axes) != len(coords) {
		return nil, iterr.New(iterr.ShapeMismatch, "fixAxes: %d axes but %d coords", len(axes), len(coords))
	}
	strides := a.Strides()
	off := a.ElemOffset()
	for i, axis := range axes {
		off += coords[i] * strides[axis]
	}
	return a.ViewWithStrides(a.Shape(), strides, off)
}
