// Package planner implements the axis planner (spec §4.2, component C3):
// choosing an iteration-axis permutation and per-axis direction across the
// union of operands, honoring an order override, and coalescing adjacent
// axes where every operand's strides allow it.
package planner

// Order selects the planner's axis-ordering strategy.
type Order int8

const (
	// K is the default: derive the best order from operand strides.
	K Order = iota
	// C forces row-major (outer-to-inner = first-to-last axis), no reversal.
	C
	// F forces column-major (outer-to-inner = last-to-first axis), no reversal.
	F
	// A behaves as F if every operand is F-contiguous and none is
	// C-contiguous; otherwise behaves as C.
	//
	// Open question (spec §9): the spec leaves unspecified which order A
	// should prefer for operands that are neither fully C- nor
	// F-contiguous (e.g. a mix of C- and F-contiguous operands, or
	// operands that are neither). This implementation follows the
	// assumed rule stated in the spec: F only if *all* operands are
	// F-contiguous and none is C-contiguous; otherwise C. This is not
	// "fixed" by this package -- it is the documented assumption.
	A
)

// Operand is the planning-relevant geometry of one operand: its per-axis
// element strides in iteration-axis order (after broadcast.Resolve). The
// contiguity checks order=A needs are derived from these strides and the
// shape. There is no per-operand reversal opt-out: the same flip rule
// applies to every operand (broadcast stride-0 axes never block reversal).
type Operand struct {
	Strides []int
}

// Plan is the result of planning: Perm[i] gives, for output axis i, the
// index into the original (pre-plan) axis list it came from; Flip[i]
// reports whether that axis's stride was negated (reversed) relative to
// its original direction.
type Plan struct {
	Perm []int
	Flip []bool
}

// Compute chooses a permutation and per-axis direction for shape/operand
// strides, given in original iteration-axis order, honoring order.
func Compute(shape []int, operands []Operand, order Order) Plan {
	ndim := len(shape)

	switch order {
	case C:
		return Plan{Perm: identity(ndim), Flip: make([]bool, ndim)}
	case F:
		return Plan{Perm: reverseIdentity(ndim), Flip: make([]bool, ndim)}
	case A:
		if allFContiguousNoneC(shape, operands) {
			return Plan{Perm: reverseIdentity(ndim), Flip: make([]bool, ndim)}
		}
		return Plan{Perm: identity(ndim), Flip: make([]bool, ndim)}
	}

	// order == K: flip each axis toward non-negative stride where every
	// non-broadcast (non-zero-stride) operand would benefit, then sort by
	// descending minimum non-zero absolute stride across operands, ties
	// broken by the first operand with a non-zero stride at that axis.
	flip := make([]bool, ndim)
	for axis := 0; axis < ndim; axis++ {
		flip[axis] = shouldFlip(operands, axis)
	}

	perm := identity(ndim)
	sort := func(i, j int) bool {
		return axisLess(operands, flip, perm[i], perm[j])
	}
	insertionSort(perm, sort)

	return Plan{Perm: perm, Flip: reorderFlip(flip, perm)}
}

func identity(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

func reverseIdentity(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = n - 1 - i
	}
	return p
}

// shouldFlip reports whether axis should be reversed: true iff every
// operand with a non-zero stride along axis has stride <= 0 (so reversing
// makes them non-negative and never harms a broadcast/zero-stride operand).
func shouldFlip(operands []Operand, axis int) bool {
	sawNonZero := false
	for _, op := range operands {
		s := op.Strides[axis]
		if s == 0 {
			continue
		}
		sawNonZero = true
		if s > 0 {
			return false
		}
	}
	return sawNonZero
}

// axisLess orders axis a before axis b (a should come later / more-outer)
// under descending minimum non-zero absolute stride, tie-broken by the
// first operand with a non-zero stride at that axis.
func axisLess(operands []Operand, flip []bool, a, b int) bool {
	minA, firstA := axisKey(operands, flip, a)
	minB, firstB := axisKey(operands, flip, b)
	if minA != minB {
		return minA > minB // descending: larger stride sorts first (outer)
	}
	return firstA < firstB
}

func axisKey(operands []Operand, flip []bool, axis int) (minAbsStride, firstNonZeroOperand int) {
	minAbsStride = -1
	firstNonZeroOperand = len(operands)
	for i, op := range operands {
		s := op.Strides[axis]
		if flip[axis] {
			s = -s
		}
		if s == 0 {
			continue
		}
		if s < 0 {
			s = -s
		}
		if firstNonZeroOperand == len(operands) {
			firstNonZeroOperand = i
		}
		if minAbsStride == -1 || s < minAbsStride {
			minAbsStride = s
		}
	}
	return minAbsStride, firstNonZeroOperand
}

func reorderFlip(flip []bool, perm []int) []bool {
	out := make([]bool, len(perm))
	for i, p := range perm {
		out[i] = flip[p]
	}
	return out
}

// insertionSort is a small stable sort over perm driven by less(i, j),
// avoiding a dependency on sort.Slice's non-deterministic-for-equal-keys
// behavior so ties resolve exactly per axisLess's tie-break rule.
func insertionSort(perm []int, less func(i, j int) bool) {
	for i := 1; i < len(perm); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			perm[j], perm[j-1] = perm[j-1], perm[j]
		}
	}
}

func allFContiguousNoneC(shape []int, operands []Operand) bool {
	allF, noneC := true, true
	for _, op := range operands {
		if !isFContiguous(shape, op.Strides) {
			allF = false
		}
		if isCContiguous(shape, op.Strides) {
			noneC = false
		}
	}
	return allF && noneC
}

func isCContiguous(shape, strides []int) bool {
	expected := 1
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] == 1 {
			continue
		}
		if strides[i] != expected {
			return false
		}
		expected *= shape[i]
	}
	return true
}

func isFContiguous(shape, strides []int) bool {
	expected := 1
	for i := 0; i < len(shape); i++ {
		if shape[i] == 1 {
			continue
		}
		if strides[i] != expected {
			return false
		}
		expected *= shape[i]
	}
	return true
}

// Coalesce merges adjacent planned axes (i,i+1) where, for every operand,
// stride[i] == extent[i+1]*stride[i+1] (or either extent is 1), into one
// axis of extent ext[i]*ext[i+1]. blocked lists axis boundaries (between
// axis i and i+1, keyed by i) that must never coalesce because a
// coordinate or mismatched flat-index capability depends on them staying
// distinct (spec §4.2, §4.3).
//
// shape and strides are given in already-planned (post Plan) axis order;
// strides[k] is operand k's per-axis stride vector, same order as shape.
func Coalesce(shape []int, strides [][]int, blocked []bool) (newShape []int, newStrides [][]int) {
	if len(shape) == 0 {
		return shape, strides
	}
	newShape = []int{shape[0]}
	newStrides = make([][]int, len(strides))
	for k := range strides {
		newStrides[k] = []int{strides[k][0]}
	}

	for i := 1; i < len(shape); i++ {
		boundaryBlocked := blocked != nil && i-1 < len(blocked) && blocked[i-1]
		canMerge := !boundaryBlocked
		lastIdx := len(newShape) - 1
		if canMerge {
			for k := range strides {
				outerStride := newStrides[k][lastIdx]
				innerExtent := shape[i]
				innerStride := strides[k][i]
				if newShape[lastIdx] == 1 || innerExtent == 1 {
					continue
				}
				if outerStride != innerExtent*innerStride {
					canMerge = false
					break
				}
			}
		}

		if canMerge {
			if shape[i] != 1 {
				// Keep the inner (smaller-stride) operand stride; the
				// merged axis now walks with that finer granularity. An
				// extent-1 inner axis adds no steps, so the outer stride
				// stays.
				for k := range strides {
					newStrides[k][lastIdx] = strides[k][i]
				}
			}
			newShape[lastIdx] *= shape[i]
			continue
		}

		newShape = append(newShape, shape[i])
		for k := range strides {
			newStrides[k] = append(newStrides[k], strides[k][i])
		}
	}
	return newShape, newStrides
}
