package operand

import "github.com/sebffischer/nditer/dtype"

// AccessMode is the per-operand read/write mode (spec §6: "exactly one of
// readonly/writeonly/readwrite").
type AccessMode int8

const (
	ReadOnly AccessMode = iota
	WriteOnly
	ReadWrite
)

func (m AccessMode) readable() bool  { return m == ReadOnly || m == ReadWrite }
func (m AccessMode) writable() bool  { return m == WriteOnly || m == ReadWrite }

// Flags is the per-operand option set from spec §6.
type Flags struct {
	Mode AccessMode

	// Copy requests a read-only working copy when a cast or alignment fix
	// is needed; required whenever a ReadOnly operand's effective dtype
	// differs from its backing dtype.
	Copy bool
	// UpdateIfCopy requests a read-write working copy whose contents are
	// cast back and written to the original backing on release; required
	// whenever a WriteOnly/ReadWrite operand's effective dtype differs
	// from its backing dtype.
	UpdateIfCopy bool
	// Allocate marks a "none" placeholder operand to be allocated fresh
	// (spec §4.7); mandatory (and only meaningful) when Backing is nil.
	Allocate bool
	// NBOAligned requests a working copy if the backing is non-native byte
	// order (this implementation's stand-in for "misaligned or
	// non-native-byte-order", since ndarray.Array models byte order but not
	// pointer alignment).
	NBOAligned bool
	// NoSubtype opts this allocated output out of subtype-shape checking.
	NoSubtype bool
	// NoBroadcast forbids this operand from receiving an implicit
	// stride-0 broadcast axis. nditer.New passes it to the broadcast
	// package, which enforces it; operand.Prepare does not read it.
	NoBroadcast bool
	// SameKindCasts / UnsafeCasts raise this operand's permitted casting
	// level past the iterator's global casting level.
	SameKindCasts bool
	UnsafeCasts   bool
}

// effectiveLevel combines this operand's per-op casting overrides with the
// iterator's global casting level, picking the loosest of the two.
func (f Flags) effectiveLevel(global dtype.CastingLevel) dtype.CastingLevel {
	level := global
	if f.UnsafeCasts && level < dtype.Unsafe {
		level = dtype.Unsafe
	}
	if f.SameKindCasts && level < dtype.SameKind {
		level = dtype.SameKind
	}
	return level
}
