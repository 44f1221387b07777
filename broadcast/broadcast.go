// Package broadcast implements the axis-broadcasting resolver (spec §4.3,
// component C2): aligning heterogeneously shaped operands into one common
// iteration shape, with optional caller-supplied op_axes remapping.
package broadcast

import (
	"github.com/sebffischer/nditer/iterr"
)

// NewAxis is the op_axes sentinel meaning "this iteration axis has no
// corresponding axis on this operand" -- a broadcast size-1 axis is
// inserted, the same way a missing leading axis is in the default mapping.
const NewAxis = -1

// Operand is the broadcasting-relevant slice of one operand's geometry: its
// own shape and element strides, an optional custom op_axes mapping, and
// whether it refuses implicit broadcasting.
type Operand struct {
	// Shape is the operand's own axis extents, in its own axis order.
	Shape []int
	// Strides is the operand's own per-axis element strides, aligned 1:1
	// with Shape.
	Strides []int
	// OpAxes, if non-nil, has length equal to the resolved iteration ndim;
	// OpAxes[i] names which of this operand's own axes maps to iteration
	// axis i, or NewAxis if iteration axis i doesn't exist on this operand.
	// Every operand axis must appear exactly once across OpAxes.
	OpAxes []int
	// NoBroadcast forbids this operand from receiving an implicit stride-0
	// broadcast axis: it must already present the full iteration shape.
	NoBroadcast bool
}

// Result is the per-operand output of Resolve: the operand's element
// strides reindexed (and broadcast/newaxis-filled) into iteration-axis
// order, the same length as the resolved iteration Shape.
type Result struct {
	Strides []int
}

// Resolve aligns all operands into one iteration shape (spec §4.3) and
// returns, per operand, its strides reindexed into that shape's axis order
// with broadcast axes assigned stride 0.
func Resolve(operands []Operand) (shape []int, results []Result, err error) {
	ndim, err := resolveNDim(operands)
	if err != nil {
		return nil, nil, err
	}

	// extents[opIdx][axis], strides[opIdx][axis]: each operand's own
	// (extent, stride) reindexed into iteration-axis order, before
	// cross-operand extent resolution.
	extents := make([][]int, len(operands))
	strides := make([][]int, len(operands))
	for i, op := range operands {
		e, s, err := reindex(op, ndim)
		if err != nil {
			return nil, nil, err
		}
		extents[i] = e
		strides[i] = s
	}

	shape = make([]int, ndim)
	for axis := 0; axis < ndim; axis++ {
		resolved := 1
		for _, e := range extents {
			if e[axis] != 1 {
				if resolved != 1 && resolved != e[axis] {
					return nil, nil, iterr.New(iterr.ShapeMismatch,
						"incompatible shapes at axis %d: %d vs %d", axis, resolved, e[axis])
				}
				resolved = e[axis]
			}
		}
		shape[axis] = resolved
	}

	results = make([]Result, len(operands))
	for i, op := range operands {
		finalStrides := make([]int, ndim)
		for axis := 0; axis < ndim; axis++ {
			switch {
			case extents[i][axis] == shape[axis]:
				finalStrides[axis] = strides[i][axis]
			case extents[i][axis] == 1:
				if op.NoBroadcast {
					return nil, nil, iterr.New(iterr.BroadcastDenied,
						"operand %d forbids broadcasting but axis %d has extent 1 vs iteration extent %d", i, axis, shape[axis])
				}
				finalStrides[axis] = 0
			default:
				return nil, nil, iterr.New(iterr.ShapeMismatch,
					"operand %d axis %d has extent %d, incompatible with iteration extent %d", i, axis, extents[i][axis], shape[axis])
			}
		}
		results[i] = Result{Strides: finalStrides}
	}
	return shape, results, nil
}

func resolveNDim(operands []Operand) (int, error) {
	ndim := -1
	for _, op := range operands {
		if op.OpAxes != nil {
			if ndim == -1 {
				ndim = len(op.OpAxes)
			} else if ndim != len(op.OpAxes) {
				return 0, iterr.New(iterr.AxisMapInvalid, "op_axes length %d disagrees with an earlier operand's %d", len(op.OpAxes), ndim)
			}
		}
	}
	if ndim != -1 {
		return ndim, nil
	}
	for _, op := range operands {
		if len(op.Shape) > ndim {
			ndim = len(op.Shape)
		}
	}
	if ndim < 0 {
		ndim = 0
	}
	return ndim, nil
}

// reindex maps one operand's own (Shape, Strides) into iteration-axis order
// of length ndim, either via its custom OpAxes or via right-alignment.
func reindex(op Operand, ndim int) (extents, strides []int, err error) {
	extents = make([]int, ndim)
	strides = make([]int, ndim)

	if op.OpAxes == nil {
		offset := ndim - len(op.Shape)
		for axis := 0; axis < ndim; axis++ {
			j := axis - offset
			if j < 0 {
				extents[axis] = 1
				strides[axis] = 0
				continue
			}
			extents[axis] = op.Shape[j]
			strides[axis] = op.Strides[j]
		}
		return extents, strides, nil
	}

	covered := make([]bool, len(op.Shape))
	for axis, opAxis := range op.OpAxes {
		if opAxis == NewAxis {
			extents[axis] = 1
			strides[axis] = 0
			continue
		}
		if opAxis < 0 || opAxis >= len(op.Shape) {
			return nil, nil, iterr.New(iterr.AxisMapInvalid, "op_axes[%d] = %d out of range for operand with %d axes", axis, opAxis, len(op.Shape))
		}
		if covered[opAxis] {
			return nil, nil, iterr.New(iterr.AxisMapInvalid, "op_axes maps operand axis %d more than once", opAxis)
		}
		covered[opAxis] = true
		extents[axis] = op.Shape[opAxis]
		strides[axis] = op.Strides[opAxis]
	}
	for opAxis, ok := range covered {
		if !ok {
			return nil, nil, iterr.New(iterr.AxisMapInvalid, "op_axes never maps operand axis %d", opAxis)
		}
	}
	return extents, strides, nil
}
