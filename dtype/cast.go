package dtype

// CastingLevel is the safety bound an iterator applies when deciding whether
// a dtype conversion may happen (spec §4.4). The levels are totally ordered,
// strictest first.
type CastingLevel int8

const (
	// No requires the destination dtype to be byte-for-byte identical,
	// including byte order.
	No CastingLevel = iota
	// Equiv allows the same dtype in a different byte order.
	Equiv
	// Safe allows any conversion that loses no information.
	Safe
	// SameKind allows Safe conversions plus any conversion within the same
	// kind family (e.g. float64->float32, complex128->complex64).
	SameKind
	// Unsafe allows any conversion.
	Unsafe
)

func (l CastingLevel) String() string {
	switch l {
	case No:
		return "no"
	case Equiv:
		return "equiv"
	case Safe:
		return "safe"
	case SameKind:
		return "same_kind"
	case Unsafe:
		return "unsafe"
	default:
		return "unknown"
	}
}

// family groups Int and Uint together: spec §4.4's same_kind example list
// ("f8→f4, c16→c8") treats signed/unsigned integers as castable into one
// another under same_kind, the same way narrowing floats or complex numbers
// are.
func family(k Kind) int {
	switch k {
	case KindBool:
		return 0
	case KindInt, KindUint:
		return 1
	case KindFloat:
		return 2
	case KindComplex:
		return 3
	default:
		return -1
	}
}

// safe reports whether every value representable in `from` is exactly
// representable in `to`, per the monotone rank axis in dtype.rank: within a
// kind wider is safe, and bool widens into anything, and integers widen into
// a float/complex type whose rank already dominates them.
//
// This is a deliberately simplified total order rather than numpy's exact
// per-pair safe-casting table; it reproduces the two examples spec §4.4
// gives verbatim (f4->f8 safe, i4->f8 safe) and the two same_kind examples
// (f8->f4, c16->c8 are NOT safe, only same_kind).
func safe(from, to DType) bool {
	if from == to {
		return true
	}
	fk, tk := from.Kind(), to.Kind()
	if fk == KindBool {
		return true
	}
	if tk == KindBool {
		return false
	}
	return rank(to) >= rank(from)
}

// CanCast reports whether a value of dtype `from` may be converted to dtype
// `to` under the given casting level. sameByteOrder distinguishes the `no`
// level (identical including byte order) from `equiv` (identical dtype, any
// byte order) when from == to; it is ignored for cross-dtype conversions,
// which always require at least Safe.
func CanCast(from, to DType, sameByteOrder bool, level CastingLevel) bool {
	if !from.Ok() || !to.Ok() {
		return false
	}
	if from == to {
		if sameByteOrder {
			return true
		}
		return level >= Equiv
	}
	if safe(from, to) {
		return level >= Safe
	}
	if family(from.Kind()) == family(to.Kind()) {
		return level >= SameKind
	}
	return level >= Unsafe
}

// CommonType resolves the standard promotion lattice over a set of dtypes:
// wider/shared kind wins; floating > integer; complex > floating (spec
// §4.4's "common_dtype" rule). dtypes must be non-empty.
//
// Open question (preserved from spec §9): when promoting a mixed
// signed/unsigned integer pair, this resolves to the unsigned type of the
// greater width, which silently reinterprets negative signed values. Whether
// that is intentional in the original system is unresolved there; this
// implementation keeps the same behavior rather than "fixing" it.
func CommonType(dtypes ...DType) DType {
	if len(dtypes) == 0 {
		return InvalidDType
	}
	common := dtypes[0]
	for _, dt := range dtypes[1:] {
		common = promote2(common, dt)
	}
	return common
}

func promote2(a, b DType) DType {
	if a == b {
		return a
	}
	if !a.Ok() {
		return b
	}
	if !b.Ok() {
		return a
	}
	if a.Kind() == KindBool {
		return b
	}
	if b.Kind() == KindBool {
		return a
	}

	ka, kb := kindRank(a.Kind()), kindRank(b.Kind())
	if ka != kb {
		if ka > kb {
			return widenInto(a, b)
		}
		return widenInto(b, a)
	}

	// Same kind-rank: either genuinely the same Kind, or one Int and one
	// Uint (both rank 1) -- the mixed-signedness open question.
	if a.Kind() != b.Kind() {
		return mixedIntUint(a, b)
	}
	if width(a) >= width(b) {
		return a
	}
	return b
}

// kindRank orders Kind for promotion purposes: integer < float < complex,
// matching spec §4.4 ("floating > integer; complex > floating"). Bool is
// handled separately in promote2 before this is consulted.
func kindRank(k Kind) int {
	switch k {
	case KindInt, KindUint:
		return 1
	case KindFloat:
		return 2
	case KindComplex:
		return 3
	default:
		return 0
	}
}

// widenInto returns winner unchanged if it already dominates loser on the
// rank axis; otherwise it widens winner to the narrowest same-or-wider
// member of its own Kind whose rank dominates loser (falling back to the
// widest member of that Kind if none does).
func widenInto(winner, loser DType) DType {
	if rank(winner) >= rank(loser) {
		return winner
	}
	candidates := kindMembers(winner.Kind())
	best := candidates[len(candidates)-1]
	for _, c := range candidates {
		if width(c) >= width(winner) && rank(c) >= rank(loser) {
			best = c
			break
		}
	}
	return best
}

func kindMembers(k Kind) []DType {
	switch k {
	case KindFloat:
		return []DType{Float16, BFloat16, Float32, Float64}
	case KindComplex:
		return []DType{Complex64, Complex128}
	case KindInt:
		return []DType{Int8, Int16, Int32, Int64}
	case KindUint:
		return []DType{Uint8, Uint16, Uint32, Uint64}
	default:
		return nil
	}
}

// mixedIntUint implements the open question in spec §9: a signed/unsigned
// pair promotes to the unsigned type of the greater width.
func mixedIntUint(a, b DType) DType {
	w := width(a)
	if width(b) > w {
		w = width(b)
	}
	switch w {
	case 1:
		return Uint8
	case 2:
		return Uint16
	case 4:
		return Uint32
	default:
		return Uint64
	}
}
