// Package dtype describes the element types an iterator operand can carry:
// the DType enum, its Kind classification, and the bit width used to reason
// about casting safety and byte order.
//
// DType switches replace any notion of runtime per-element type checks: every
// casting or buffering decision made by the sibling packages (operand,
// buffer, nditer) dispatches on a DType value, never on a Go `any`.
package dtype

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/sebffischer/nditer/dtype/bfloat16"
	"github.com/x448/float16"
)

// DType is the data type of a single element in an operand.
type DType int32

const (
	// InvalidDType marks an unset or unresolved dtype.
	InvalidDType DType = iota

	Bool

	Int8
	Int16
	Int32
	Int64

	Uint8
	Uint16
	Uint32
	Uint64

	Float16
	BFloat16
	Float32
	Float64

	Complex64
	Complex128
)

// Kind is the coarse type family used by the casting lattice (dtype.CanCast)
// and by the same-kind-family rule it implements.
type Kind int8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindComplex
)

var names = map[DType]string{
	InvalidDType: "invalid",
	Bool:         "bool",
	Int8:         "int8",
	Int16:        "int16",
	Int32:        "int32",
	Int64:        "int64",
	Uint8:        "uint8",
	Uint16:       "uint16",
	Uint32:       "uint32",
	Uint64:       "uint64",
	Float16:      "float16",
	BFloat16:     "bfloat16",
	Float32:      "float32",
	Float64:      "float64",
	Complex64:    "complex64",
	Complex128:   "complex128",
}

// String implements fmt.Stringer.
func (dt DType) String() string {
	if name, ok := names[dt]; ok {
		return name
	}
	return errors.Errorf("dtype.DType(%d)", int32(dt)).Error()
}

// Kind returns the coarse type family of dt.
func (dt DType) Kind() Kind {
	switch dt {
	case Bool:
		return KindBool
	case Int8, Int16, Int32, Int64:
		return KindInt
	case Uint8, Uint16, Uint32, Uint64:
		return KindUint
	case Float16, BFloat16, Float32, Float64:
		return KindFloat
	case Complex64, Complex128:
		return KindComplex
	default:
		return KindInvalid
	}
}

// Memory returns the number of bytes one element of this dtype occupies.
func (dt DType) Memory() uintptr {
	switch dt {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16, Float16, BFloat16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64, Complex64:
		return 8
	case Complex128:
		return 16
	default:
		return 0
	}
}

// Ok reports whether dt is a recognized, non-invalid dtype.
func (dt DType) Ok() bool { return dt != InvalidDType && dt.Kind() != KindInvalid }

// GoType returns the reflect.Type a Go slice/array of dt would use.
func (dt DType) GoType() reflect.Type {
	switch dt {
	case Bool:
		return reflect.TypeOf(false)
	case Int8:
		return reflect.TypeOf(int8(0))
	case Int16:
		return reflect.TypeOf(int16(0))
	case Int32:
		return reflect.TypeOf(int32(0))
	case Int64:
		return reflect.TypeOf(int64(0))
	case Uint8:
		return reflect.TypeOf(uint8(0))
	case Uint16:
		return reflect.TypeOf(uint16(0))
	case Uint32:
		return reflect.TypeOf(uint32(0))
	case Uint64:
		return reflect.TypeOf(uint64(0))
	case Float16:
		return reflect.TypeOf(float16.Float16(0))
	case BFloat16:
		return reflect.TypeOf(bfloat16.BFloat16(0))
	case Float32:
		return reflect.TypeOf(float32(0))
	case Float64:
		return reflect.TypeOf(float64(0))
	case Complex64:
		return reflect.TypeOf(complex64(0))
	case Complex128:
		return reflect.TypeOf(complex128(0))
	default:
		return nil
	}
}

var goTypeToDType = func() map[reflect.Type]DType {
	m := make(map[reflect.Type]DType)
	for dt := Bool; dt <= Complex128; dt++ {
		if t := dt.GoType(); t != nil {
			m[t] = dt
		}
	}
	return m
}()

// FromGoType returns the DType matching a Go reflect.Type, or InvalidDType if
// t isn't one of the supported element types.
func FromGoType(t reflect.Type) DType {
	if dt, ok := goTypeToDType[t]; ok {
		return dt
	}
	return InvalidDType
}

// Number is the set of Go numeric types an operand element can be read into.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 |
		~complex64 | ~complex128
}

// NumberNotComplex excludes the complex types, for conversions that only make
// sense on ordered numeric types.
type NumberNotComplex interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// FromGenericsType returns the DType corresponding to the generic parameter T.
func FromGenericsType[T Number]() DType {
	var zero T
	return FromGoType(reflect.TypeOf(zero))
}

// rank orders dtypes along a single monotone precision axis used by the safe-
// casting rule (dtype.safe): within a kind, wider is higher; across kinds,
// integer < float < complex, matching the "floating > integer; complex >
// floating" promotion rule in spec §4.4. A complex type's rank sits just
// above the float type with the same per-component width (Complex64 pairs
// float32 components, Complex128 pairs float64 components), so promoting a
// float to a same-width complex is safe but promoting a float to a
// lower-precision complex is not.
func rank(dt DType) int {
	switch dt {
	case Bool:
		return 0
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32:
		return 3
	case Int64, Uint64:
		return 4
	case Float16, BFloat16:
		return 5
	case Float32:
		return 6
	case Complex64:
		return 7
	case Float64:
		return 8
	case Complex128:
		return 9
	default:
		return -1
	}
}

// width returns dt.Memory() as an int, for readability at call sites that
// compare byte widths within one Kind.
func width(dt DType) int { return int(dt.Memory()) }
