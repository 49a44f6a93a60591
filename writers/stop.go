package writers

import "slices"

// StopCondition decides when GenerateIdsUntil is done. It is evaluated after
// each pull with the ids generated so far in the session (prompt excluded)
// and the latest of them.
type StopCondition func(generated []int32, latest int32) bool

// StopAtToken stops as soon as the given token id is generated.
func StopAtToken(id int32) StopCondition {
	return func(_ []int32, latest int32) bool { return latest == id }
}

// StopAtAnyOf stops as soon as any of the given token ids is generated.
func StopAtAnyOf(ids ...int32) StopCondition {
	stops := slices.Clone(ids)
	return func(_ []int32, latest int32) bool { return slices.Contains(stops, latest) }
}

// StopAtSequence stops once the generated ids end with the given sequence.
// An empty sequence never stops.
func StopAtSequence(sequence ...int32) StopCondition {
	end := slices.Clone(sequence)
	return func(generated []int32, _ int32) bool {
		if len(end) == 0 || len(generated) < len(end) {
			return false
		}
		return slices.Equal(generated[len(generated)-len(end):], end)
	}
}

// WithMinLength suppresses the condition until at least minLength tokens
// have been generated, to avoid sequences that are too short.
func (c StopCondition) WithMinLength(minLength int) StopCondition {
	return func(generated []int32, latest int32) bool {
		if len(generated) < minLength {
			return false
		}
		return c(generated, latest)
	}
}
