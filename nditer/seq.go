package nditer

import "iter"

// Seq returns a lazy range-over-func adapter yielding the absolute chunk
// index of each position, in the style of the teacher's ArrayType.Iter
// (iter.Seq2-based). A range loop over Seq() advances the cursor after
// each iteration; an error from Advance (e.g. a buffered write-merge
// failure surfacing late) stops iteration silently, so callers that need
// to observe it should drive Advance directly instead.
func (it *Iterator) Seq() iter.Seq[int] {
	return func(yield func(int) bool) {
		for !it.Finished() {
			if !yield(it.IterIndex()) {
				return
			}
			if err := it.Advance(); err != nil {
				return
			}
		}
	}
}
