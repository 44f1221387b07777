package operand

import (
	"github.com/pkg/errors"
	"github.com/sebffischer/nditer/dtype"
	"github.com/sebffischer/nditer/dtype/bfloat16"
	"github.com/sebffischer/nditer/ndarray"
	"github.com/x448/float16"
)

// CopyCast fills dst element-by-element by casting every element of src to
// dst's dtype. dst and src must share the same shape. This supersedes the
// teacher's reflect-based CastAsDType/ConvertTo (backend/atype/dtype.go):
// every dtype here is one of a fixed, closed enum, so dispatch is a type
// switch on dtype.DType rather than a reflect.Value walk.
func CopyCast(dst, src *ndarray.Array) error {
	shape := src.Shape()
	if len(shape) != len(dst.Shape()) {
		return errors.Errorf("operand.CopyCast: rank mismatch (%d vs %d)", len(shape), len(dst.Shape()))
	}
	for i, l := range shape {
		if l != dst.Shape()[i] {
			return errors.Errorf("operand.CopyCast: shape mismatch at axis %d (%d vs %d)", i, l, dst.Shape()[i])
		}
	}
	return forEachCoord(shape, func(coords []int) error {
		v, err := readAny(src, coords)
		if err != nil {
			return err
		}
		return writeAny(dst, coords, fromPivot(dst.DType(), v))
	})
}

// forEachCoord visits every coordinate of shape in row-major order, the
// same carry/increment algorithm ndarray uses internally (ndarray/raw.go's
// rowMajorIndices), reimplemented here against ndarray's exported surface
// only.
func forEachCoord(shape []int, fn func(coords []int) error) error {
	for _, l := range shape {
		if l == 0 {
			return nil
		}
	}
	if len(shape) == 0 {
		return fn(nil)
	}
	coords := make([]int, len(shape))
	for {
		if err := fn(coords); err != nil {
			return err
		}
		axis := len(shape) - 1
		for axis >= 0 {
			coords[axis]++
			if coords[axis] < shape[axis] {
				break
			}
			coords[axis] = 0
			axis--
		}
		if axis < 0 {
			return nil
		}
	}
}

func readAny(a *ndarray.Array, coords []int) (any, error) {
	switch a.DType() {
	case dtype.Bool:
		return readBool(a, coords)
	case dtype.Int8:
		return ndarray.Get[int8](a, coords...)
	case dtype.Int16:
		return ndarray.Get[int16](a, coords...)
	case dtype.Int32:
		return ndarray.Get[int32](a, coords...)
	case dtype.Int64:
		return ndarray.Get[int64](a, coords...)
	case dtype.Uint8:
		return ndarray.Get[uint8](a, coords...)
	case dtype.Uint16:
		return ndarray.Get[uint16](a, coords...)
	case dtype.Uint32:
		return ndarray.Get[uint32](a, coords...)
	case dtype.Uint64:
		return ndarray.Get[uint64](a, coords...)
	case dtype.Float16:
		return ndarray.Get[float16.Float16](a, coords...)
	case dtype.BFloat16:
		return ndarray.Get[bfloat16.BFloat16](a, coords...)
	case dtype.Float32:
		return ndarray.Get[float32](a, coords...)
	case dtype.Float64:
		return ndarray.Get[float64](a, coords...)
	case dtype.Complex64:
		return ndarray.Get[complex64](a, coords...)
	case dtype.Complex128:
		return ndarray.Get[complex128](a, coords...)
	default:
		return nil, errors.Errorf("operand: unsupported dtype %s", a.DType())
	}
}

func writeAny(a *ndarray.Array, coords []int, v any) error {
	switch a.DType() {
	case dtype.Bool:
		return writeBool(a, coords, v.(bool))
	case dtype.Int8:
		return ndarray.Set(a, v.(int8), coords...)
	case dtype.Int16:
		return ndarray.Set(a, v.(int16), coords...)
	case dtype.Int32:
		return ndarray.Set(a, v.(int32), coords...)
	case dtype.Int64:
		return ndarray.Set(a, v.(int64), coords...)
	case dtype.Uint8:
		return ndarray.Set(a, v.(uint8), coords...)
	case dtype.Uint16:
		return ndarray.Set(a, v.(uint16), coords...)
	case dtype.Uint32:
		return ndarray.Set(a, v.(uint32), coords...)
	case dtype.Uint64:
		return ndarray.Set(a, v.(uint64), coords...)
	case dtype.Float16:
		return ndarray.Set(a, v.(float16.Float16), coords...)
	case dtype.BFloat16:
		return ndarray.Set(a, v.(bfloat16.BFloat16), coords...)
	case dtype.Float32:
		return ndarray.Set(a, v.(float32), coords...)
	case dtype.Float64:
		return ndarray.Set(a, v.(float64), coords...)
	case dtype.Complex64:
		return ndarray.Set(a, v.(complex64), coords...)
	case dtype.Complex128:
		return ndarray.Set(a, v.(complex128), coords...)
	default:
		return errors.Errorf("operand: unsupported dtype %s", a.DType())
	}
}

// elemByteOffset recomputes the byte offset of coords into a's backing data,
// duplicating ndarray's unexported byteOffset against its exported surface
// (ElemOffset/Strides/DType) -- needed for the one dtype, Bool, that
// dtype.Number's generic constraint doesn't cover.
func elemByteOffset(a *ndarray.Array, coords []int) int {
	off := a.ElemOffset()
	strides := a.Strides()
	for i, c := range coords {
		off += c * strides[i]
	}
	return off * int(a.DType().Memory())
}

func readBool(a *ndarray.Array, coords []int) (any, error) {
	off := elemByteOffset(a, coords)
	return a.Data()[off] != 0, nil
}

func writeBool(a *ndarray.Array, coords []int, v bool) error {
	if !a.Writeable() {
		return errors.Errorf("operand: array is not writeable")
	}
	off := elemByteOffset(a, coords)
	if v {
		a.Data()[off] = 1
	} else {
		a.Data()[off] = 0
	}
	return nil
}

func isNonZero(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case complex64:
		return x != 0
	case complex128:
		return x != 0
	default:
		return toFloat64(v) != 0
	}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return int64(x)
	case float64:
		return int64(x)
	case float16.Float16:
		return int64(x.Float32())
	case bfloat16.BFloat16:
		return int64(x.Float32())
	case complex64:
		return int64(real(x))
	case complex128:
		return int64(real(x))
	default:
		return 0
	}
}

func toUint64(v any) uint64 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	case int8:
		return uint64(int64(x))
	case int16:
		return uint64(int64(x))
	case int32:
		return uint64(int64(x))
	case int64:
		return uint64(x)
	case float32:
		return uint64(x)
	case float64:
		return uint64(x)
	case float16.Float16:
		return uint64(x.Float32())
	case bfloat16.BFloat16:
		return uint64(x.Float32())
	case complex64:
		return uint64(real(x))
	case complex128:
		return uint64(real(x))
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case float16.Float16:
		return float64(x.Float32())
	case bfloat16.BFloat16:
		return float64(x.Float32())
	case complex64:
		return float64(real(x))
	case complex128:
		return real(x)
	default:
		return 0
	}
}

func toComplex128(v any) complex128 {
	switch x := v.(type) {
	case complex64:
		return complex128(x)
	case complex128:
		return x
	default:
		return complex(toFloat64(v), 0)
	}
}

// fromPivot converts v (one of the concrete Go values produced by readAny)
// into the Go value needed to write an element of dtype to.
func fromPivot(to dtype.DType, v any) any {
	switch to {
	case dtype.Bool:
		return isNonZero(v)
	case dtype.Int8:
		return int8(toInt64(v))
	case dtype.Int16:
		return int16(toInt64(v))
	case dtype.Int32:
		return int32(toInt64(v))
	case dtype.Int64:
		return toInt64(v)
	case dtype.Uint8:
		return uint8(toUint64(v))
	case dtype.Uint16:
		return uint16(toUint64(v))
	case dtype.Uint32:
		return uint32(toUint64(v))
	case dtype.Uint64:
		return toUint64(v)
	case dtype.Float16:
		return float16.Fromfloat32(float32(toFloat64(v)))
	case dtype.BFloat16:
		return bfloat16.FromFloat32(float32(toFloat64(v)))
	case dtype.Float32:
		return float32(toFloat64(v))
	case dtype.Float64:
		return toFloat64(v)
	case dtype.Complex64:
		return complex64(toComplex128(v))
	case dtype.Complex128:
		return toComplex128(v)
	default:
		return nil
	}
}
