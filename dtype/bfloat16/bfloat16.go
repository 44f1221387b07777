// Package bfloat16 implements the truncated "brain floating point" format: 1
// sign bit, 8 exponent bits, 7 mantissa bits -- the high 16 bits of an
// IEEE-754 float32.
//
// No published third-party bfloat16 module appears in this project's
// retrieved reference set (the teacher only names one, gomlx/gopjrt, in a
// doc comment, and itself never actually imports it -- it keeps its own
// bfloat16 type in-module). This package does the same: a hand-rolled
// truncate/round-trip, same as the teacher's approach for this one type.
package bfloat16

import (
	"math"
	"strconv"
)

// BFloat16 is a single bfloat16 value, stored as its raw 16-bit pattern.
type BFloat16 uint16

// FromFloat32 truncates (with round-to-nearest-even) a float32 to bfloat16.
func FromFloat32(v float32) BFloat16 {
	bits := math.Float32bits(v)
	if math.IsNaN(float64(v)) {
		// Preserve NaN-ness; don't round a NaN's mantissa into infinity.
		return BFloat16(bits>>16) | 0x0040
	}
	// Round to nearest even: add the rounding bias before truncating.
	const roundBias = 0x7FFF
	lsb := (bits >> 16) & 1
	rounded := bits + roundBias + lsb
	return BFloat16(rounded >> 16)
}

// Float32 widens bf back to a float32 by shifting its bits into the high
// 16 bits and zero-filling the mantissa.
func (bf BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(bf) << 16)
}

func (bf BFloat16) String() string {
	return strconv.FormatFloat(float64(bf.Float32()), 'g', -1, 32)
}
