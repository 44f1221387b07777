package operand

import (
	"github.com/sebffischer/nditer/dtype"
	"github.com/sebffischer/nditer/iterr"
	"github.com/sebffischer/nditer/ndarray"
)

// Prepare resolves every operand's effective dtype and materializes working
// copies (spec §4.4) and allocated outputs (spec §4.7), given the iteration
// shape and per-operand strides already produced by broadcast.Resolve
// (before any axis planning). strides[i] is ignored for a spec whose Backing
// is nil (an allocated output has no pre-existing stride vector).
func Prepare(specs []Spec, iterShape []int, strides [][]int, castingLevel dtype.CastingLevel, commonDType bool) ([]*Descriptor, error) {
	if err := validateFlags(specs); err != nil {
		return nil, err
	}

	promoted, err := promotedInputDType(specs)
	if err != nil {
		return nil, err
	}

	descs := make([]*Descriptor, len(specs))
	for i, spec := range specs {
		d, err := prepareOne(spec, iterShape, stridesFor(strides, i), castingLevel, commonDType, promoted)
		if err != nil {
			return nil, err
		}
		descs[i] = d
	}

	if err := resolveSubtypes(specs, descs, iterShape); err != nil {
		return nil, err
	}

	return descs, nil
}

func stridesFor(strides [][]int, i int) []int {
	if i >= len(strides) {
		return nil
	}
	return strides[i]
}

func validateFlags(specs []Spec) error {
	for i, spec := range specs {
		switch {
		case spec.Mode() < ReadOnly || spec.Mode() > ReadWrite:
			return iterr.New(iterr.FlagConflict, "operand %d: mode must be exactly one of readonly/writeonly/readwrite", i)
		case spec.ScalarLiteral && spec.Flags.Mode.writable():
			return iterr.New(iterr.TypeError, "operand %d: a scalar literal cannot be requested for write access", i)
		case spec.Backing == nil && !spec.Flags.Allocate && !spec.ScalarLiteral:
			return iterr.New(iterr.FlagConflict, "operand %d: a \"none\" operand must set allocate", i)
		case spec.Backing != nil && spec.Flags.Allocate:
			return iterr.New(iterr.FlagConflict, "operand %d: allocate is only valid for a \"none\" operand", i)
		case spec.Flags.Copy && spec.Flags.UpdateIfCopy:
			return iterr.New(iterr.FlagConflict, "operand %d: copy and updateifcopy are mutually exclusive", i)
		case spec.Backing != nil && spec.Flags.Mode.writable() && !spec.Backing.Writeable():
			return iterr.New(iterr.ReadOnlyOperand, "operand %d: backing array is not writeable", i)
		}
	}
	return nil
}

// Mode is a convenience accessor mirroring Spec.Flags.Mode.
func (s Spec) Mode() AccessMode { return s.Flags.Mode }

// promotedInputDType promotes the native dtypes of every operand carrying a
// backing (spec §4.4's "promoting only the inputs, not other outputs").
func promotedInputDType(specs []Spec) (dtype.DType, error) {
	var inputs []dtype.DType
	for _, spec := range specs {
		if spec.Backing != nil {
			inputs = append(inputs, spec.Backing.DType())
		}
	}
	if len(inputs) == 0 {
		return dtype.InvalidDType, nil
	}
	return dtype.CommonType(inputs...), nil
}

func prepareOne(spec Spec, iterShape []int, strides []int, castingLevel dtype.CastingLevel, commonDType bool, promoted dtype.DType) (*Descriptor, error) {
	effective, err := resolveEffectiveDType(spec, commonDType, promoted)
	if err != nil {
		return nil, err
	}

	if spec.Backing == nil {
		working := ndarray.New(effective, iterShape...)
		return &Descriptor{
			Spec:           spec,
			EffectiveDType: effective,
			Strides:        working.Strides(),
			Working:        working,
			HasCopy:        true,
			NeedsWriteBack: false,
		}, nil
	}

	native := spec.Backing.DType()
	needsDTypeCopy := effective != native
	needsAlignCopy := spec.Flags.NBOAligned && !spec.Backing.NativeByteOrder()

	if needsDTypeCopy {
		level := spec.Flags.effectiveLevel(castingLevel)
		if spec.Flags.Mode.readable() {
			if !spec.Flags.Copy && !spec.Flags.UpdateIfCopy {
				return nil, iterr.New(iterr.CastNotPermitted, "operand needs a %s->%s cast but neither copy nor updateifcopy is set", native, effective)
			}
			if !dtype.CanCast(native, effective, true, level) {
				return nil, iterr.New(iterr.CastNotPermitted, "cannot cast %s->%s at casting level %s", native, effective, level)
			}
		}
		if spec.Flags.Mode.writable() {
			if !spec.Flags.UpdateIfCopy {
				return nil, iterr.New(iterr.CastNotPermitted, "operand needs write-back %s->%s but updateifcopy is not set", effective, native)
			}
			if !dtype.CanCast(effective, native, true, level) {
				return nil, iterr.New(iterr.CastNotPermitted, "cannot cast back %s->%s at casting level %s", effective, native, level)
			}
		}
	} else if !needsAlignCopy {
		// No cast, no alignment/byte-order fix needed: iterate directly
		// over the backing.
		array, ok := spec.Backing.(*ndarray.Array)
		if !ok {
			return nil, iterr.New(iterr.CapabilityMissing, "operand: backing does not expose a concrete array to iterate over")
		}
		return &Descriptor{
			Spec:           spec,
			EffectiveDType: effective,
			Strides:        append([]int(nil), strides...),
			Working:        array,
			HasCopy:        false,
			NeedsWriteBack: false,
		}, nil
	}

	array, ok := spec.Backing.(*ndarray.Array)
	if !ok {
		return nil, iterr.New(iterr.AlignmentRequired, "operand: backing needs a working copy but does not expose a concrete array to copy from")
	}

	working := ndarray.New(effective, array.Shape()...)
	if spec.Flags.Mode.readable() {
		if err := CopyCast(working, array); err != nil {
			return nil, err
		}
	}
	return &Descriptor{
		Spec:           spec,
		EffectiveDType: effective,
		Strides:        working.Strides(),
		Working:        working,
		HasCopy:        true,
		Original:       array,
		NeedsWriteBack: spec.Flags.Mode.writable(),
	}, nil
}

func resolveEffectiveDType(spec Spec, commonDType bool, promoted dtype.DType) (dtype.DType, error) {
	if spec.OpDType.Ok() {
		return spec.OpDType, nil
	}
	if commonDType || spec.Backing == nil {
		if promoted.Ok() {
			return promoted, nil
		}
		return dtype.InvalidDType, iterr.New(iterr.TypeError, "no input operands to promote a dtype from, and no op_dtype given")
	}
	return spec.Backing.DType(), nil
}
