// Package buffer implements the chunked staging-buffer engine (spec §4.5,
// component C5): per-operand contiguous scratch buffers staged along the
// innermost iteration axis, refilled/flushed as the cursor advances past a
// chunk boundary.
package buffer

import (
	"github.com/sebffischer/nditer/iterr"
	"github.com/sebffischer/nditer/ndarray"
)

// Operand is one buffered operand's 1-D inner-axis view for the iterator's
// current outer position (NumAxes() == 1): the strided backing the buffer
// engine refills from / flushes to.
type Operand struct {
	Array    *ndarray.Array
	Readable bool
	Writable bool
}

// Engine stages up to bufferSize elements of each operand's inner axis into
// a dense, native-byte-order scratch buffer at a time.
type Engine struct {
	operands   []Operand
	buffers    []*ndarray.Array
	cap        int // buffer capacity (elements)
	innerExt   int
	pos        int // elements of the inner axis already consumed
	chunkLen   int // elements currently staged in buffers
	growinner  bool
	allNative  bool
}

// New validates the operand set and performs the first refill. bufferSize
// is the caller's requested chunk cap; growinner, when true and no operand
// needs a byte-order fix, grows the effective chunk to the full inner
// extent (spec §4.5's "growinner" optimization).
func New(operands []Operand, bufferSize int, growinner bool) (*Engine, error) {
	if err := checkWriteMerge(operands); err != nil {
		return nil, err
	}

	innerExt := 0
	if len(operands) > 0 {
		innerExt = operands[0].Array.Shape()[0]
	}

	allNative := true
	for _, op := range operands {
		if !op.Array.NativeByteOrder() {
			allNative = false
		}
	}

	cap := bufferSize
	if cap <= 0 || cap > innerExt {
		cap = innerExt
	}
	if growinner && allNative {
		cap = innerExt
	}

	e := &Engine{
		operands:  operands,
		cap:       cap,
		innerExt:  innerExt,
		growinner: growinner,
		allNative: allNative,
	}
	e.buffers = make([]*ndarray.Array, len(operands))
	for i, op := range operands {
		e.buffers[i] = ndarray.New(op.Array.DType(), cap)
	}
	if err := e.refill(); err != nil {
		return nil, err
	}
	return e, nil
}

// checkWriteMerge fails with BufferWriteMerge when a writable operand has a
// stride-0 inner axis of extent > 1 (write-back would merge distinct
// logical elements into one storage slot), except the trivial extent-1
// broadcast.
func checkWriteMerge(operands []Operand) error {
	for i, op := range operands {
		if !op.Writable {
			continue
		}
		shape := op.Array.Shape()
		strides := op.Array.Strides()
		if len(shape) != 1 {
			continue
		}
		if strides[0] == 0 && shape[0] > 1 {
			return iterr.New(iterr.BufferWriteMerge,
				"operand %d: write-back through a stride-0 inner axis of extent %d would merge distinct elements", i, shape[0])
		}
	}
	return nil
}

// ChunkLen returns the number of elements currently staged.
func (e *Engine) ChunkLen() int { return e.chunkLen }

// Buffer returns the dense scratch buffer for operand i, sized to ChunkLen.
func (e *Engine) Buffer(i int) (*ndarray.Array, error) {
	buf := e.buffers[i]
	if e.chunkLen == buf.Shape()[0] {
		return buf, nil
	}
	return buf.Slice(0, 0, e.chunkLen)
}

// Finished reports whether every element of the inner axis has been staged
// and flushed.
func (e *Engine) Finished() bool { return e.pos >= e.innerExt }

// Advance implements the buffered advance() protocol (spec §4.5): flush the
// current chunk, move past it, and refill the next one if iteration isn't
// finished.
func (e *Engine) Advance() error {
	if err := e.flush(); err != nil {
		return err
	}
	e.pos += e.chunkLen
	if e.pos >= e.innerExt {
		e.chunkLen = 0
		return nil
	}
	return e.refill()
}

// Reset flushes without advancing and refills at the start of the inner
// axis (spec §4.5's reset() semantics).
func (e *Engine) Reset() error {
	if err := e.flush(); err != nil {
		return err
	}
	e.pos = 0
	return e.refill()
}

// Finalize flushes any pending writes; called on iterator release.
func (e *Engine) Finalize() error { return e.flush() }

func (e *Engine) refill() error {
	remaining := e.innerExt - e.pos
	n := e.cap
	if n > remaining {
		n = remaining
	}
	e.chunkLen = n
	for i, op := range e.operands {
		if !op.Readable || n == 0 {
			continue
		}
		buf := e.buffers[i]
		for k := 0; k < n; k++ {
			copyElement(buf, k, op.Array, e.pos+k)
		}
	}
	return nil
}

func (e *Engine) flush() error {
	for i, op := range e.operands {
		if !op.Writable || e.chunkLen == 0 {
			continue
		}
		buf := e.buffers[i]
		for k := 0; k < e.chunkLen; k++ {
			copyElement(op.Array, e.pos+k, buf, k)
		}
	}
	return nil
}

// copyElement copies one element from src[srcIdx] to dst[dstIdx], reversing
// byte order if the two arrays' stored orders differ. Both arrays must
// share the same dtype (buffer scratch is always allocated with the
// operand's own effective dtype).
func copyElement(dst *ndarray.Array, dstIdx int, src *ndarray.Array, srcIdx int) {
	itemsize := int(src.DType().Memory())
	so := elemByteOffset(src, srcIdx)
	do := elemByteOffset(dst, dstIdx)

	tmp := make([]byte, itemsize)
	copy(tmp, src.Data()[so:so+itemsize])
	if src.NativeByteOrder() != dst.NativeByteOrder() {
		for i, j := 0, itemsize-1; i < j; i, j = i+1, j-1 {
			tmp[i], tmp[j] = tmp[j], tmp[i]
		}
	}
	copy(dst.Data()[do:do+itemsize], tmp)
}

func elemByteOffset(a *ndarray.Array, idx int) int {
	strides := a.Strides()
	off := a.ElemOffset()
	if len(strides) > 0 {
		off += idx * strides[0]
	}
	return off * int(a.DType().Memory())
}
