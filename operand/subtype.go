package operand

import "github.com/sebffischer/nditer/iterr"

// resolveSubtypes implements the subtype half of spec §4.7: among every
// operand that declares a Subtype, the highest-priority one wins and is
// checked against the iteration shape for each allocated output that
// doesn't opt out with NoSubtype.
func resolveSubtypes(specs []Spec, descs []*Descriptor, iterShape []int) error {
	var winner Subtype
	for _, spec := range specs {
		if spec.Subtype == nil {
			continue
		}
		if winner == nil || spec.Subtype.Priority() > winner.Priority() {
			winner = spec.Subtype
		}
	}
	if winner == nil {
		return nil
	}

	for i, spec := range specs {
		if spec.Backing != nil || !spec.Flags.Allocate || spec.Flags.NoSubtype {
			continue
		}
		if !winner.CheckShape(iterShape) {
			return iterr.New(iterr.SubtypeShapeConflict, "operand %d: allocated output shape %v violates the winning subtype's constraint", i, iterShape)
		}
		_ = descs[i]
	}
	return nil
}
