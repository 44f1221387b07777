package nditer

import (
	"github.com/sebffischer/nditer/broadcast"
	"github.com/sebffischer/nditer/buffer"
	"github.com/sebffischer/nditer/iterr"
	"github.com/sebffischer/nditer/ndarray"
	"github.com/sebffischer/nditer/operand"
	"github.com/sebffischer/nditer/planner"
)

// Iterator is a constructed, driveable multi-operand iteration cursor (spec
// §4.1, component C6): the broadcasting, axis planning, operand
// preparation and (optionally) buffering steps have all already run by the
// time New returns one.
type Iterator struct {
	itViews  []*ndarray.Array // final per-operand views: ndim axes, in planned+coalesced order
	readable []bool
	writable []bool
	descs    []*operand.Descriptor // for write-back of updateifcopy/nbo_aligned working copies on Finalize

	shape []int // len ndim, planned + coalesced
	ndim  int

	outerNDim int // axes actually carried by Advance; < ndim when the last axis is a whole-chunk
	coords    []int

	numChunks                int
	iterIndex                int
	iterRangeLo, iterRangeHi int
	finished                 bool

	trackCoords bool
	trackCIndex bool
	trackFIndex bool
	noInner     bool
	ranged      bool

	buffered   bool
	growInner  bool
	bufferSize int
	engine     *buffer.Engine

	cStrides, fStrides []int // row-/col-major strides of shape, for CIndex/FIndex
}

// New resolves broadcasting (C2), plans and coalesces axes (C3), prepares
// every operand's working array (C4), and returns a ready-to-drive cursor.
// If opts.Global.Buffered is set, the innermost axis is staged through a
// buffer.Engine (C5) instead of iterated directly.
func New(specs []operand.Spec, opts Options) (*Iterator, error) {
	bcastOps := make([]broadcast.Operand, len(specs))
	for i, spec := range specs {
		if spec.Backing == nil {
			continue
		}
		bcastOps[i] = broadcast.Operand{
			Shape:       spec.Backing.Shape(),
			Strides:     spec.Backing.Strides(),
			OpAxes:      spec.OpAxes,
			NoBroadcast: spec.Flags.NoBroadcast,
		}
	}
	resolvedShape, bcastResults, err := broadcast.Resolve(bcastOps)
	if err != nil {
		return nil, err
	}
	ndim := len(resolvedShape)

	// Extend every real backing to the full broadcast shape before handing
	// it to operand.Prepare, so casting/copy decisions operate on an array
	// already carrying the broadcast's stride-0 axes.
	extended := make([]operand.Spec, len(specs))
	for i, spec := range specs {
		extended[i] = spec
		if spec.Backing == nil {
			continue
		}
		arr, ok := spec.Backing.(*ndarray.Array)
		if !ok {
			return nil, iterr.New(iterr.CapabilityMissing, "operand %d: nditer requires a concrete *ndarray.Array backing", i)
		}
		view, err := arr.ViewWithStrides(resolvedShape, bcastResults[i].Strides, arr.ElemOffset())
		if err != nil {
			return nil, err
		}
		extended[i].Backing = view
	}

	stridesArg := make([][]int, len(bcastResults))
	for i, r := range bcastResults {
		stridesArg[i] = r.Strides
	}
	descs, err := operand.Prepare(extended, resolvedShape, stridesArg, opts.Casting, opts.Global.CommonDType)
	if err != nil {
		return nil, err
	}

	plannerOps := make([]planner.Operand, len(descs))
	for i, d := range descs {
		plannerOps[i] = planner.Operand{Strides: d.Working.Strides()}
	}
	plan := planner.Compute(resolvedShape, plannerOps, opts.Order)

	plannedShape := make([]int, ndim)
	for j, p := range plan.Perm {
		plannedShape[j] = resolvedShape[p]
	}

	planned := make([]*ndarray.Array, len(descs))
	plannedStrides := make([][]int, len(descs))
	for i, d := range descs {
		view, err := d.Working.Transpose(plan.Perm...)
		if err != nil {
			return nil, err
		}
		for axis, flip := range plan.Flip {
			if flip {
				view = view.Reverse(axis)
			}
		}
		planned[i] = view
		plannedStrides[i] = view.Strides()
	}

	var blocked []bool
	if opts.Global.blocksCoalescing() && ndim > 1 {
		blocked = make([]bool, ndim-1)
		for i := range blocked {
			blocked[i] = true
		}
	}
	finalShape, finalStrides := planner.Coalesce(plannedShape, plannedStrides, blocked)

	itViews := make([]*ndarray.Array, len(descs))
	readable := make([]bool, len(descs))
	writable := make([]bool, len(descs))
	for i, d := range descs {
		view, err := planned[i].ViewWithStrides(finalShape, finalStrides[i], planned[i].ElemOffset())
		if err != nil {
			return nil, err
		}
		itViews[i] = view
		readable[i] = d.Readable()
		writable[i] = d.Writable()
	}

	it := &Iterator{
		itViews:     itViews,
		readable:    readable,
		writable:    writable,
		descs:       descs,
		shape:       finalShape,
		ndim:        len(finalShape),
		trackCoords: opts.Global.Coords,
		trackCIndex: opts.Global.CIndex,
		trackFIndex: opts.Global.FIndex,
		noInner:     opts.Global.NoInnerIteration,
		ranged:      opts.Global.Ranged,
		buffered:    opts.Global.Buffered,
		growInner:   opts.Global.GrowInner,
		bufferSize:  opts.BufferSize,
	}
	it.outerNDim = it.ndim
	if (it.buffered || it.noInner) && it.ndim > 0 {
		it.outerNDim = it.ndim - 1
	}
	it.coords = make([]int, it.outerNDim)
	it.numChunks = productOf(finalShape[:it.outerNDim])
	it.iterRangeLo, it.iterRangeHi = 0, it.numChunks
	it.finished = it.iterIndex >= it.iterRangeHi
	it.cStrides = rowMajorStrides(finalShape)
	it.fStrides = colMajorStrides(finalShape)

	if it.buffered && !it.finished {
		if err := it.rebuildEngine(); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// NDim returns the number of axes after planning and coalescing.
func (it *Iterator) NDim() int { return it.ndim }

// Shape returns the planned, coalesced iteration shape.
func (it *Iterator) Shape() []int { return append([]int(nil), it.shape...) }

// ItViews returns the final per-operand views driving iteration, in
// planned+coalesced axis order. Mutating one via ndarray.Set is visible to
// the next Operand call for unbuffered iteration; for buffered
// iteration, writes must go through the staged buffer (see Operand).
func (it *Iterator) ItViews() []*ndarray.Array { return it.itViews }

// Finished reports whether iteration has reached the end of the configured
// range.
func (it *Iterator) Finished() bool { return it.finished }

// Advance moves the cursor to the next chunk (one element in per-element
// mode, the whole inner axis in no-inner-iteration mode, the next buffer
// chunk of up to BufferSize inner-axis elements in buffered mode).
func (it *Iterator) Advance() error {
	if it.finished {
		return iterr.New(iterr.EmptyIteration, "iterator has no more iterations")
	}
	if it.buffered {
		if err := it.engine.Advance(); err != nil {
			return err
		}
		if !it.engine.Finished() {
			return nil
		}
	}
	return it.advanceOuter()
}

func (it *Iterator) advanceOuter() error {
	for axis := it.outerNDim - 1; axis >= 0; axis-- {
		it.coords[axis]++
		if it.coords[axis] < it.shape[axis] {
			break
		}
		it.coords[axis] = 0
	}
	it.iterIndex++
	it.finished = it.iterIndex >= it.iterRangeHi
	if !it.finished && it.buffered {
		return it.rebuildEngine()
	}
	return nil
}

// Reset returns the cursor to the start of its configured range (spec
// §4.1's reset()), flushing any pending buffered writes and committing any
// updateifcopy/nbo_aligned write-backs first.
func (it *Iterator) Reset() error {
	if err := it.Finalize(); err != nil {
		return err
	}
	it.iterIndex = it.iterRangeLo
	it.coords = unravel(it.iterIndex, it.shape[:it.outerNDim], rowMajorStrides(it.shape[:it.outerNDim]))
	it.finished = it.iterIndex >= it.iterRangeHi
	if it.buffered && !it.finished {
		return it.rebuildEngine()
	}
	return nil
}

// Finalize flushes any pending buffered writes without moving the cursor,
// then casts every operand needing a write-back (spec §4.4's updateifcopy:
// a cast-to-effective-dtype or nbo_aligned working copy that was opened for
// writing) back into its original backing. Callers must invoke it once
// after the last Advance so the final chunk's writes reach the backing
// operands -- without it, writes into a casted or byte-swapped working
// copy are never visible to the caller's own array.
func (it *Iterator) Finalize() error {
	if it.buffered && it.engine != nil {
		if err := it.engine.Finalize(); err != nil {
			return err
		}
	}
	for _, d := range it.descs {
		if err := d.WriteBack(); err != nil {
			return err
		}
	}
	return nil
}

// Coords returns the current outer-axis coordinate. In per-element mode
// (no buffering, no no-inner-iteration) this has NDim() entries and
// identifies a single element; otherwise it has NDim()-1 entries (the
// trailing axis is exposed as a whole chunk, not a single coordinate).
// Requires the iterator to have been built with GlobalFlags.Coords set.
func (it *Iterator) Coords() ([]int, error) {
	if !it.trackCoords {
		return nil, iterr.New(iterr.CapabilityMissing, "iterator was not constructed with coordinate tracking")
	}
	if it.finished {
		return nil, iterr.New(iterr.EmptyIteration, "iterator has no current position")
	}
	return append([]int(nil), it.coords...), nil
}

// fullCoords is Coords() padded with a leading-zero inner-axis coordinate
// when the trailing axis is exposed as a whole chunk, for CIndex/FIndex's
// flat-index computation (always addressing the chunk's first element).
func (it *Iterator) fullCoords() []int {
	if len(it.coords) == it.ndim {
		return it.coords
	}
	full := make([]int, it.ndim)
	copy(full, it.coords)
	return full
}

// CIndex returns the row-major flat index, over the planned (pre-coalesce)
// axis table, of the current position. Requires GlobalFlags.CIndex, which
// also disables coalescing so this index stays meaningful. For any axis
// planner.Plan reversed, this counts forward through the reversed traversal
// order rather than back-translating to the backing operand's own original
// index on that axis, unlike numpy's multi_index -- see DESIGN.md.
func (it *Iterator) CIndex() (int, error) {
	if !it.trackCIndex {
		return 0, iterr.New(iterr.CapabilityMissing, "iterator was not constructed with c_index tracking")
	}
	if it.finished {
		return 0, iterr.New(iterr.EmptyIteration, "iterator has no current position")
	}
	return flatIndex(it.fullCoords(), it.cStrides), nil
}

// FIndex is CIndex's column-major counterpart, requiring GlobalFlags.FIndex.
func (it *Iterator) FIndex() (int, error) {
	if !it.trackFIndex {
		return 0, iterr.New(iterr.CapabilityMissing, "iterator was not constructed with f_index tracking")
	}
	if it.finished {
		return 0, iterr.New(iterr.EmptyIteration, "iterator has no current position")
	}
	return flatIndex(it.fullCoords(), it.fStrides), nil
}

// IterIndex returns the cursor's absolute chunk position (0-based, counted
// from the start of the full iteration space regardless of any configured
// sub-range).
func (it *Iterator) IterIndex() int { return it.iterIndex }

// SetIterIndex jumps the cursor to the given absolute chunk position.
// Requires GlobalFlags.Ranged.
func (it *Iterator) SetIterIndex(i int) error {
	if !it.ranged {
		return iterr.New(iterr.CapabilityMissing, "iterator was not constructed with range support")
	}
	if i < 0 || i > it.numChunks {
		return iterr.New(iterr.ShapeMismatch, "iter index %d out of range [0, %d]", i, it.numChunks)
	}
	if it.buffered && it.engine != nil {
		if err := it.engine.Finalize(); err != nil {
			return err
		}
	}
	it.iterIndex = i
	it.coords = unravel(i, it.shape[:it.outerNDim], rowMajorStrides(it.shape[:it.outerNDim]))
	it.finished = it.iterIndex >= it.iterRangeHi
	if it.buffered && !it.finished {
		return it.rebuildEngine()
	}
	return nil
}

// IterRange returns the cursor's configured [lo, hi) chunk sub-range.
func (it *Iterator) IterRange() (lo, hi int, err error) {
	if !it.ranged {
		return 0, 0, iterr.New(iterr.CapabilityMissing, "iterator was not constructed with range support")
	}
	return it.iterRangeLo, it.iterRangeHi, nil
}

// SetIterRange restricts iteration to [lo, hi) and repositions the cursor
// to lo; SplitRange produces sub-ranges in this form for dividing work
// across separately constructed iterators.
func (it *Iterator) SetIterRange(lo, hi int) error {
	if !it.ranged {
		return iterr.New(iterr.CapabilityMissing, "iterator was not constructed with range support")
	}
	if lo < 0 || hi > it.numChunks || lo > hi {
		return iterr.New(iterr.ShapeMismatch, "invalid iter range [%d, %d) for %d chunks", lo, hi, it.numChunks)
	}
	it.iterRangeLo, it.iterRangeHi = lo, hi
	return it.SetIterIndex(lo)
}

// RemoveCoords stops coordinate tracking; a subsequent Coords() call fails
// with CapabilityMissing. It does not retroactively enable coalescing of
// already-fixed axis boundaries -- the axis table was frozen at
// construction, a documented simplification of spec §4.1's capability
// removal.
func (it *Iterator) RemoveCoords() { it.trackCoords = false }

// RemoveInnerLoop switches a per-element iterator to whole-inner-axis
// exposure (spec §4.1), discarding any partial progress through the
// current inner axis and resetting the configured range to the whole
// (now coarser-grained) chunk space -- the old range's chunk units no
// longer correspond to the new, larger chunks.
func (it *Iterator) RemoveInnerLoop() error {
	if it.noInner || it.buffered || it.ndim == 0 {
		return nil
	}
	it.noInner = true
	it.outerNDim = it.ndim - 1
	it.coords = it.coords[:it.outerNDim]
	it.numChunks = productOf(it.shape[:it.outerNDim])
	it.iterIndex = flatIndex(it.coords, rowMajorStrides(it.shape[:it.outerNDim]))
	it.iterRangeLo, it.iterRangeHi = 0, it.numChunks
	it.finished = it.iterIndex >= it.iterRangeHi
	return nil
}

// Operand returns the view over operand k's current chunk: a 0-axis view
// of a single element in per-element mode, or a 1-D view of the whole
// inner axis in no-inner-iteration mode. In buffered mode this is the
// staged scratch buffer holding the current chunk of up to BufferSize
// inner-axis elements, not the backing array directly.
func (it *Iterator) Operand(k int) (*ndarray.Array, error) {
	if it.finished {
		return nil, iterr.New(iterr.EmptyIteration, "iterator has no current position")
	}
	if it.buffered {
		return it.engine.Buffer(k)
	}
	view := it.itViews[k]
	off := it.elementOffset(view)
	if it.outerNDim == it.ndim {
		return view.ViewWithStrides(nil, nil, off)
	}
	innerExt, innerStride := 1, 0
	if it.ndim > it.outerNDim {
		innerExt = it.shape[it.ndim-1]
		innerStride = view.Strides()[it.ndim-1]
	}
	return view.ViewWithStrides([]int{innerExt}, []int{innerStride}, off)
}

func (it *Iterator) elementOffset(view *ndarray.Array) int {
	off := view.ElemOffset()
	strides := view.Strides()
	for a := 0; a < it.outerNDim; a++ {
		off += it.coords[a] * strides[a]
	}
	return off
}

func (it *Iterator) rebuildEngine() error {
	ops := make([]buffer.Operand, len(it.itViews))
	for k, view := range it.itViews {
		off := it.elementOffset(view)
		innerExt, innerStride := 1, 0
		if it.ndim > it.outerNDim {
			innerExt = it.shape[it.ndim-1]
			innerStride = view.Strides()[it.ndim-1]
		}
		slice, err := view.ViewWithStrides([]int{innerExt}, []int{innerStride}, off)
		if err != nil {
			return err
		}
		ops[k] = buffer.Operand{Array: slice, Readable: it.readable[k], Writable: it.writable[k]}
	}
	engine, err := buffer.New(ops, it.bufferSize, it.growInner)
	if err != nil {
		return err
	}
	it.engine = engine
	return nil
}

func flatIndex(coords, strides []int) int {
	idx := 0
	for a, c := range coords {
		idx += c * strides[a]
	}
	return idx
}

func unravel(flat int, shape, strides []int) []int {
	coords := make([]int, len(shape))
	rem := flat
	for a := range shape {
		if strides[a] == 0 {
			continue
		}
		coords[a] = rem / strides[a]
		rem %= strides[a]
	}
	return coords
}

func productOf(shape []int) int {
	p := 1
	for _, s := range shape {
		p *= s
	}
	return p
}

func rowMajorStrides(shape []int) []int {
	n := len(shape)
	strides := make([]int, n)
	cur := 1
	for axis := n - 1; axis >= 0; axis-- {
		strides[axis] = cur
		cur *= shape[axis]
	}
	return strides
}

func colMajorStrides(shape []int) []int {
	n := len(shape)
	strides := make([]int, n)
	cur := 1
	for axis := 0; axis < n; axis++ {
		strides[axis] = cur
		cur *= shape[axis]
	}
	return strides
}
