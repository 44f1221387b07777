// Package operand implements the operand descriptor, per-operand flags, and
// the C4 preparer (spec §3, §4.4, §4.7): resolving each operand's effective
// dtype, materializing working copies for casts/alignment/write-back, and
// allocating "none" placeholder outputs.
package operand

import (
	"github.com/sebffischer/nditer/dtype"
	"github.com/sebffischer/nditer/ndarray"
)

// Backing is the "external collaborator" assumption from spec §1: an
// operand object exposing shape, strides, a typed element format, byte
// order, and a writeable flag. Base-pointer access is not part of the
// interface; Prepare and nditer.New reach element storage by requiring
// the concrete *ndarray.Array, which satisfies this directly.
type Backing interface {
	DType() dtype.DType
	Shape() []int
	Strides() []int
	Writeable() bool
	NativeByteOrder() bool
}

// Subtype is a runtime array subtype that can impose a shape constraint on
// an allocated output and that competes for priority when multiple input
// operands carry different subtypes (spec §4.7).
type Subtype interface {
	// Priority orders competing subtypes; the highest priority wins.
	Priority() int
	// CheckShape reports whether shape satisfies this subtype's
	// constraint (e.g. "exactly 2 axes" for a matrix subtype).
	CheckShape(shape []int) bool
}

// Spec is the caller-supplied description of one operand (spec §6's
// construction-time operand list: a real backing, or a "none" placeholder
// for an operand to be allocated).
type Spec struct {
	// Backing is nil for a "none" placeholder (Flags.Allocate must be set).
	Backing Backing
	Flags   Flags
	// OpDType is the caller's requested dtype override for this operand,
	// or dtype.InvalidDType to defer to common_dtype resolution / the
	// backing's own dtype.
	OpDType dtype.DType
	Subtype Subtype
	// OpAxes, if non-nil, is this operand's custom axis mapping, passed
	// through unchanged to broadcast.Operand.OpAxes (spec §4.3).
	OpAxes []int
	// ScalarLiteral marks a host-language scalar constant coerced
	// read-only (spec §6): requesting write access on one fails with
	// TypeError rather than ReadOnlyOperand.
	ScalarLiteral bool
}

// Descriptor is the prepared, immutable-after-construction state of one
// operand (spec §3's "operand descriptor").
type Descriptor struct {
	Spec           Spec
	EffectiveDType dtype.DType
	// Strides is this operand's effective per-axis element stride vector
	// in iteration-axis order (may contain zeros from broadcasting),
	// matching the working array's own axis order 1:1.
	Strides []int
	// Working is the array the iterator actually reads/writes through:
	// Spec.Backing's own array if no copy was needed, otherwise a freshly
	// allocated working copy (or, for a "none" spec, the allocated
	// output).
	Working *ndarray.Array
	// HasCopy reports whether Working is a copy distinct from Spec.Backing.
	HasCopy bool
	// Original is Spec.Backing's concrete array, set only when HasCopy and
	// Spec.Backing is non-nil -- the updateifcopy/write-back target.
	Original *ndarray.Array
	// NeedsWriteBack reports whether, on release, Working must be cast
	// back into Original (set whenever a working copy was materialized
	// for a writable real operand; never for a read-only copy or for a
	// freshly allocated "none" output, which has no original to write
	// back into).
	NeedsWriteBack bool
}

// Readable reports whether this operand may be read during iteration.
func (d *Descriptor) Readable() bool { return d.Spec.Flags.Mode.readable() }

// Writable reports whether this operand may be written during iteration.
func (d *Descriptor) Writable() bool { return d.Spec.Flags.Mode.writable() }

// WriteBack casts Working's current contents back into Original (spec
// §4.4's updateifcopy commit), a no-op unless NeedsWriteBack is set. The
// caller is responsible for flushing any buffered writes into Working
// before calling this.
func (d *Descriptor) WriteBack() error {
	if !d.NeedsWriteBack {
		return nil
	}
	return CopyCast(d.Original, d.Working)
}
