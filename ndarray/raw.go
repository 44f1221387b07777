package ndarray

import (
	"iter"
	"unsafe"
)

// readRaw reinterprets a native-byte-order raw element as T. len(raw) must
// equal unsafe.Sizeof(T) (the caller slices exactly one element's worth).
func readRaw[T any](raw []byte) T {
	return *(*T)(unsafe.Pointer(&raw[0]))
}

// writeRaw encodes v in native byte order into dst. len(dst) must equal
// unsafe.Sizeof(T).
func writeRaw[T any](dst []byte, v T) {
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), len(dst))
	copy(dst, src)
}

func reverseInPlace(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// coordsOf converts a row-major flat index into per-axis coordinates.
func coordsOf(shape []int, flat int) []int {
	n := len(shape)
	coords := make([]int, n)
	rem := flat
	for i := n - 1; i >= 0; i-- {
		if shape[i] == 0 {
			return coords
		}
		coords[i] = rem % shape[i]
		rem /= shape[i]
	}
	return coords
}

// rowMajorIndices yields every coordinate tuple for shape in row-major
// order, along with its flat index. Adapted from the carry/increment
// structure of the teacher's ArrayType.IterOn (backend/atype/iter.go),
// without its trivial/non-trivial-axis fast paths since this helper is only
// used for small fixture/copy operations, not the hot iteration path.
func rowMajorIndices(shape []int) iter.Seq2[int, []int] {
	return func(yield func(int, []int) bool) {
		n := len(shape)
		if n == 0 {
			yield(0, []int{})
			return
		}
		for _, l := range shape {
			if l == 0 {
				return
			}
		}
		coords := make([]int, n)
		flat := 0
		for {
			if !yield(flat, coords) {
				return
			}
			flat++
			axis := n - 1
			for axis >= 0 {
				coords[axis]++
				if coords[axis] < shape[axis] {
					break
				}
				coords[axis] = 0
				axis--
			}
			if axis < 0 {
				return
			}
		}
	}
}
