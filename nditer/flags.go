// Package nditer implements the iterator core (spec §4.1, component C6) and
// nested iterators (spec §4.6, component C7): the object a caller actually
// constructs and drives, wiring together broadcast.Resolve, planner.Compute/
// Coalesce, operand.Prepare and buffer.Engine into one cursor.
package nditer

import (
	"github.com/sebffischer/nditer/dtype"
	"github.com/sebffischer/nditer/operand"
	"github.com/sebffischer/nditer/planner"
)

// GlobalFlags is the construction-time iterator-wide option set (spec §6's
// global flags, as opposed to per-operand Flags).
type GlobalFlags struct {
	// Coords requests tracking of the multi-axis coordinate alongside the
	// flat cursor; disables coalescing across every axis boundary (spec
	// §4.2's coordinate-tracking exclusion rule).
	Coords bool
	// CIndex / FIndex request a row-major / column-major flat index computed
	// over the planned (pre-coalesce) axis table; like Coords, each disables
	// coalescing.
	CIndex bool
	FIndex bool
	// NoInnerIteration exposes the entire innermost axis as one chunk per
	// outer step rather than walking it element by element (spec §4.1).
	NoInnerIteration bool
	// CommonDType forces every operand (not only "none" outputs) to share
	// one promoted dtype (spec §4.4).
	CommonDType bool
	// Buffered stages operands through a buffer.Engine instead of iterating
	// the backing directly (spec §4.5), in chunks of up to BufferSize
	// inner-axis elements. Dtype casts and byte-order fixes do not depend
	// on it: operand.Prepare makes those working copies up front either way.
	Buffered bool
	// GrowInner permits the buffer engine to grow its chunk to the full
	// inner extent when every operand is already native-byte-order.
	GrowInner bool
	// Ranged allows IterRange/SetIterRange to restrict iteration to a
	// sub-range of the flat iteration space (spec §4.1's range-splitting
	// support for parallel iterators).
	Ranged bool
}

// blocksCoalescing reports whether any flag that depends on a stable,
// uncoalesced axis table is set.
func (g GlobalFlags) blocksCoalescing() bool {
	return g.Coords || g.CIndex || g.FIndex
}

// Options bundles every construction-time setting for New.
type Options struct {
	Global     GlobalFlags
	Order      planner.Order
	Casting    dtype.CastingLevel
	BufferSize int
}

// opSpecs is the construction input: one operand.Spec per operand, order
// significant (descriptor index == operand index throughout the API).
type opSpecs = []operand.Spec
