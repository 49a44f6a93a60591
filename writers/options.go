package writers

import (
	"math/rand/v2"

	"github.com/pkg/errors"
)

// SamplerOption configures a Sampler. Options validate their value when
// applied, so NewSampler and NewSamplerStrategy fail fast on out-of-range
// hyperparameters.
type SamplerOption func(*Sampler) error

// WithTopK truncates sampling to the k highest-scoring tokens.
// k must be positive and at most the vocabulary size.
func WithTopK(k int) SamplerOption {
	return func(s *Sampler) error {
		if k <= 0 {
			return errors.Wrapf(ErrConfig, "top-k must be positive, got %d", k)
		}
		if k > s.vocabSize {
			return errors.Wrapf(ErrConfig, "top-k is %d but the vocabulary only has %d tokens", k, s.vocabSize)
		}
		s.k = k
		return nil
	}
}

// WithTopP truncates sampling to the smallest set of highest-probability
// tokens whose cumulative probability reaches p (nucleus sampling).
// p must be in (0, 1]; 1.0 disables the filter.
func WithTopP(p float64) SamplerOption {
	return func(s *Sampler) error {
		if !(p > 0 && p <= 1) {
			return errors.Wrapf(ErrConfig, "top-p must be in (0, 1], got %v", p)
		}
		s.p = p
		return nil
	}
}

// WithTemperature divides the logits by temperature before the softmax:
// below 1 sharpens the distribution, above 1 flattens it. Must be positive.
func WithTemperature(temperature float64) SamplerOption {
	return func(s *Sampler) error {
		if !(temperature > 0) {
			return errors.Wrapf(ErrConfig, "temperature must be positive, got %v", temperature)
		}
		s.temperature = temperature
		return nil
	}
}

// WithRepetitionPenalty discounts tokens already present in the context.
// Must be positive; 1.0 disables the penalty.
func WithRepetitionPenalty(penalty float64) SamplerOption {
	return func(s *Sampler) error {
		if !(penalty > 0) {
			return errors.Wrapf(ErrConfig, "repetition penalty must be positive, got %v", penalty)
		}
		s.repetitionPenalty = penalty
		return nil
	}
}

// WithSeed makes the sampler's pseudo-random stream deterministic: two
// samplers with the same seed, fed the same logits, select the same tokens.
func WithSeed(seed uint64) SamplerOption {
	return func(s *Sampler) error {
		s.rng = rand.New(rand.NewPCG(seed, seed))
		return nil
	}
}
