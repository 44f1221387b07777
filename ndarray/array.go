// Package ndarray provides a minimal strided array container.
//
// spec §1 treats the array container as an external collaborator: "the
// iterator only assumes an operand object exposing shape, strides, a typed
// element format, base-pointer access, and a writeable flag." Array is that
// assumption made concrete, generalizing the teacher's always-contiguous
// ArrayType (backend/atype/atype.go) to explicit, possibly negative or
// zeroed, per-axis element strides.
package ndarray

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sebffischer/nditer/dtype"
)

// ByteOrder distinguishes an array whose elements are stored in the host's
// native byte order from one that needs a swap on read/write (spec §4.4's
// "byte-order correction").
type ByteOrder int8

const (
	NativeEndian ByteOrder = iota
	SwappedEndian
)

// Array is a concrete, strided, single-dtype array. It satisfies the
// operand.Backing assumption directly.
type Array struct {
	dt        dtype.DType
	shape     []int
	strides   []int // element strides, not bytes; may be 0 or negative
	data      []byte
	elemOff   int // element offset of index-0 into data
	writeable bool
	order     ByteOrder
}

// New allocates a fresh, contiguous, native-byte-order, writeable array of
// the given dtype and shape, laid out row-major (C order).
func New(dt dtype.DType, shape ...int) *Array {
	strides := rowMajorStrides(shape)
	size := productOf(shape)
	return &Array{
		dt:        dt,
		shape:     append([]int(nil), shape...),
		strides:   strides,
		data:      make([]byte, size*int(dt.Memory())),
		writeable: true,
		order:     NativeEndian,
	}
}

// NewFromSlice allocates a contiguous row-major array of shape and fills it
// with data in row-major order. len(data) must equal the product of shape.
func NewFromSlice[T dtype.Number](shape []int, data []T) (*Array, error) {
	want := productOf(shape)
	if len(data) != want {
		return nil, errors.Errorf("ndarray.NewFromSlice: shape %v needs %d elements, got %d", shape, want, len(data))
	}
	dt := dtype.FromGenericsType[T]()
	if !dt.Ok() {
		return nil, errors.Errorf("ndarray.NewFromSlice: unsupported element type")
	}
	a := New(dt, shape...)
	for i, v := range data {
		if err := Set(a, v, coordsOf(shape, i)...); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// NewSwappedFromSlice builds an array like NewFromSlice but stores the bytes
// in non-native byte order, for exercising buffer-engine byte swapping
// (scenario S4).
func NewSwappedFromSlice[T dtype.Number](shape []int, data []T) (*Array, error) {
	a, err := NewFromSlice(shape, data)
	if err != nil {
		return nil, err
	}
	swapAllBytes(a.data, int(a.dt.Memory()))
	a.order = SwappedEndian
	return a, nil
}

func swapAllBytes(data []byte, itemsize int) {
	if itemsize <= 1 {
		return
	}
	for off := 0; off+itemsize <= len(data); off += itemsize {
		for i, j := off, off+itemsize-1; i < j; i, j = i+1, j-1 {
			data[i], data[j] = data[j], data[i]
		}
	}
}

// Shape returns the array's axis extents.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Strides returns the array's per-axis element strides (not bytes).
func (a *Array) Strides() []int { return append([]int(nil), a.strides...) }

// DType returns the array's element dtype.
func (a *Array) DType() dtype.DType { return a.dt }

// Writeable reports whether the backing storage may be mutated.
func (a *Array) Writeable() bool { return a.writeable }

// SetWriteable flips the writeable flag (used to build read-only fixtures in
// tests, mirroring a non-writeable backing, spec §6's ReadOnlyOperand case).
func (a *Array) SetWriteable(w bool) { a.writeable = w }

// NativeByteOrder reports whether the array's stored bytes are in the host's
// native order.
func (a *Array) NativeByteOrder() bool { return a.order == NativeEndian }

// NumAxes returns the number of axes.
func (a *Array) NumAxes() int { return len(a.shape) }

// Size returns the total element count (product of shape).
func (a *Array) Size() int { return productOf(a.shape) }

// Base returns a pointer to element (0,0,...,0) of the array -- the
// "base-pointer access" spec §1 requires of an operand.
func (a *Array) Base() unsafe.Pointer {
	if len(a.data) == 0 {
		return nil
	}
	itemsize := int(a.dt.Memory())
	return unsafe.Pointer(&a.data[a.elemOff*itemsize])
}

// Data exposes the raw backing buffer, for the buffer engine and operand
// preparer to read/write directly without going through a typed accessor.
func (a *Array) Data() []byte { return a.data }

// ElemOffset is the element index of index-0 into Data(), for negative-stride
// views whose base pointer has been shifted to the array's last element
// along a reversed axis (spec invariant 2).
func (a *Array) ElemOffset() int { return a.elemOff }

func (a *Array) byteOffset(coords []int) (int, error) {
	if len(coords) != len(a.shape) {
		return 0, errors.Errorf("ndarray: expected %d coords, got %d", len(a.shape), len(coords))
	}
	off := a.elemOff
	for i, c := range coords {
		if c < 0 || c >= a.shape[i] {
			return 0, errors.Errorf("ndarray: coord %d out of bounds for axis %d (len %d)", c, i, a.shape[i])
		}
		off += c * a.strides[i]
	}
	return off * int(a.dt.Memory()), nil
}

// Get reads the element at coords, as the Go type T. T must match the
// array's dtype (dtype.FromGenericsType[T]() == a.DType()).
func Get[T dtype.Number](a *Array, coords ...int) (T, error) {
	var zero T
	if want := dtype.FromGenericsType[T](); want != a.dt {
		return zero, errors.Errorf("ndarray.Get: type mismatch, array dtype is %s, asked for %s", a.dt, want)
	}
	off, err := a.byteOffset(coords)
	if err != nil {
		return zero, err
	}
	itemsize := int(a.dt.Memory())
	raw := a.data[off : off+itemsize]
	if a.order == SwappedEndian {
		tmp := append([]byte(nil), raw...)
		reverseInPlace(tmp)
		raw = tmp
	}
	return readRaw[T](raw), nil
}

// Set writes v at coords. T must match the array's dtype.
func Set[T dtype.Number](a *Array, v T, coords ...int) error {
	if !a.writeable {
		return errors.Errorf("ndarray: array is not writeable")
	}
	if want := dtype.FromGenericsType[T](); want != a.dt {
		return errors.Errorf("ndarray.Set: type mismatch, array dtype is %s, asked for %s", a.dt, want)
	}
	off, err := a.byteOffset(coords)
	if err != nil {
		return err
	}
	itemsize := int(a.dt.Memory())
	writeRaw(a.data[off:off+itemsize], v)
	if a.order == SwappedEndian {
		reverseInPlace(a.data[off : off+itemsize])
	}
	return nil
}

func productOf(shape []int) int {
	p := 1
	for _, s := range shape {
		p *= s
	}
	return p
}

// rowMajorStrides computes C-contiguous element strides for shape, the same
// formula as the teacher's ArrayType.Strides (backend/atype/iter.go).
func rowMajorStrides(shape []int) []int {
	n := len(shape)
	strides := make([]int, n)
	if n == 0 {
		return strides
	}
	cur := 1
	for axis := n - 1; axis >= 0; axis-- {
		strides[axis] = cur
		cur *= shape[axis]
	}
	return strides
}

// colMajorStrides computes F-contiguous element strides for shape.
func colMajorStrides(shape []int) []int {
	n := len(shape)
	strides := make([]int, n)
	if n == 0 {
		return strides
	}
	cur := 1
	for axis := 0; axis < n; axis++ {
		strides[axis] = cur
		cur *= shape[axis]
	}
	return strides
}

// IsZeroSize reports whether any axis has length 0.
func (a *Array) IsZeroSize() bool {
	for _, l := range a.shape {
		if l == 0 {
			return true
		}
	}
	return false
}

// IsCContiguous reports whether the array's strides match row-major layout,
// ignoring axes of length <= 1 (whose stride is never constraining).
func (a *Array) IsCContiguous() bool { return matchesStrides(a.shape, a.strides, rowMajorStrides(a.shape)) }

// IsFContiguous reports whether the array's strides match column-major
// layout, ignoring axes of length <= 1.
func (a *Array) IsFContiguous() bool { return matchesStrides(a.shape, a.strides, colMajorStrides(a.shape)) }

func matchesStrides(shape, actual, want []int) bool {
	for i, l := range shape {
		if l <= 1 {
			continue
		}
		if actual[i] != want[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep, contiguous, native-byte-order copy of a.
func (a *Array) Clone() *Array {
	out := New(a.dt, a.shape...)
	for flat, coords := range rowMajorIndices(a.shape) {
		off, _ := a.byteOffset(coords)
		itemsize := int(a.dt.Memory())
		dstOff, _ := out.byteOffset(coords)
		raw := a.data[off : off+itemsize]
		if a.order == SwappedEndian {
			tmp := append([]byte(nil), raw...)
			for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
				tmp[i], tmp[j] = tmp[j], tmp[i]
			}
			raw = tmp
		}
		copy(out.data[dstOff:dstOff+itemsize], raw)
		_ = flat
	}
	return out
}
