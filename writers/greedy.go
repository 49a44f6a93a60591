package writers

import "github.com/pkg/errors"

// GreedySearch decodes by always picking the token with the highest logit.
//
// Ties are broken towards the smallest index, so identical logits always
// yield identical output. It has no configuration and no state.
type GreedySearch struct{}

// Name implements Strategy.
func (GreedySearch) Name() string { return "greedy_search" }

// Select implements Strategy: the index of the maximum logit.
func (GreedySearch) Select(logits []float64, _ []int32) (int32, error) {
	if len(logits) == 0 {
		return 0, errors.Wrap(ErrConfig, "greedy search got an empty logits vector")
	}
	best := 0
	for i, v := range logits[1:] {
		if v > logits[best] {
			best = i + 1
		}
	}
	return int32(best), nil
}
