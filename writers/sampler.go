package writers

import (
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/gomlx/txtgen/models"
	"github.com/pkg/errors"
)

// Sampler decodes by drawing from the model's next-token distribution, after
// an optional filtering pipeline:
//
//  1. repetition penalty on tokens already in the context (if configured);
//  2. temperature scaling of the logits;
//  3. top-k truncation to the k highest logits (if configured);
//  4. softmax over what remains;
//  5. nucleus (top-p) truncation to the smallest prefix of the sorted
//     probabilities whose cumulative sum reaches p (if configured);
//  6. renormalization and one categorical draw.
//
// When both k and p are set they apply sequentially -- k first, then p on
// the already-truncated set -- so the candidates are the intersection of the
// two truncations.
//
// The pseudo-random state advances deterministically from its seed, so two
// samplers created with the same WithSeed and fed the same logits produce
// the same tokens.
type Sampler struct {
	vocabSize int

	k                 int     // 0 disables top-k.
	p                 float64 // 1.0 disables nucleus filtering.
	temperature       float64
	repetitionPenalty float64 // 1.0 is a no-op.

	rng *rand.Rand
}

// NewSamplerStrategy creates a sampling strategy for a model with the given
// vocabulary size. Options are validated eagerly; an out-of-range value
// fails with ErrConfig. Without WithSeed the sampler is seeded randomly.
func NewSamplerStrategy(vocabSize int, options ...SamplerOption) (*Sampler, error) {
	if vocabSize <= 0 {
		return nil, errors.Wrapf(ErrConfig, "vocabulary size must be positive, got %d", vocabSize)
	}
	s := &Sampler{
		vocabSize:         vocabSize,
		p:                 1.0,
		temperature:       1.0,
		repetitionPenalty: 1.0,
		rng:               rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Name implements Strategy.
func (s *Sampler) Name() string { return "sampler" }

// Select implements Strategy: one draw from the filtered, renormalized
// distribution.
func (s *Sampler) Select(logits []float64, context []int32) (int32, error) {
	if len(logits) != s.vocabSize {
		return 0, errors.Wrapf(models.ErrModel, "sampler got %d logits for a vocabulary of size %d", len(logits), s.vocabSize)
	}

	scores := slices.Clone(logits)
	if s.repetitionPenalty != 1.0 {
		applyRepetitionPenalty(scores, context, s.repetitionPenalty)
	}
	if s.temperature != 1.0 {
		for i := range scores {
			scores[i] /= s.temperature
		}
	}

	// Work in sorted space: order[i] is the token with the i-th highest
	// score, ties towards the smallest index. Truncations become prefix
	// cuts, and a k of 1 degenerates to greedy search for any seed.
	order := argsortDescending(scores)
	keep := len(order)
	if s.k > 0 && s.k < keep {
		keep = s.k
	}
	probs := softmaxOver(scores, order[:keep])
	if s.p < 1.0 {
		keep = nucleusCut(probs, s.p)
		probs = probs[:keep]
		renormalize(probs)
	}

	draw := s.rng.Float64()
	var cum float64
	for i, prob := range probs {
		cum += prob
		if draw < cum {
			return int32(order[i]), nil
		}
	}
	// Floating-point slack: the cumulative sum may fall epsilon short of 1.
	return int32(order[keep-1]), nil
}

// applyRepetitionPenalty discounts tokens already present in the context:
// positive logits are divided by the penalty, negative ones multiplied.
func applyRepetitionPenalty(scores []float64, context []int32, penalty float64) {
	seen := make(map[int32]bool, len(context))
	for _, id := range context {
		if seen[id] || int(id) >= len(scores) {
			continue
		}
		seen[id] = true
		if scores[id] > 0 {
			scores[id] /= penalty
		} else {
			scores[id] *= penalty
		}
	}
}

// argsortDescending returns token indices sorted by score, highest first,
// ties towards the smallest index.
func argsortDescending(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	return order
}

// softmaxOver computes the softmax of scores restricted to the given token
// indices, which must be sorted by descending score. The result is aligned
// with order and sums to 1; excluded tokens get probability 0 by omission.
func softmaxOver(scores []float64, order []int) []float64 {
	probs := make([]float64, len(order))
	maxScore := scores[order[0]]
	var total float64
	for i, idx := range order {
		probs[i] = math.Exp(scores[idx] - maxScore)
		total += probs[i]
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs
}

// nucleusCut returns the length of the minimal prefix of probs (sorted
// descending) whose cumulative sum reaches p. The prefix is never empty:
// even a p close to zero retains the single most likely token.
func nucleusCut(probs []float64, p float64) int {
	var cum float64
	for i, prob := range probs {
		cum += prob
		if cum >= p {
			return i + 1
		}
	}
	return len(probs)
}

func renormalize(probs []float64) {
	var total float64
	for _, prob := range probs {
		total += prob
	}
	for i := range probs {
		probs[i] /= total
	}
}
