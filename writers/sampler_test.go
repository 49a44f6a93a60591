package writers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSamplerOptionValidation(t *testing.T) {
	const vocabSize = 5
	testCases := []struct {
		name   string
		option SamplerOption
		valid  bool
	}{
		{"k zero", WithTopK(0), false},
		{"k negative", WithTopK(-1), false},
		{"k larger than vocab", WithTopK(vocabSize + 1), false},
		{"k equal to vocab", WithTopK(vocabSize), true},
		{"p zero", WithTopP(0), false},
		{"p negative", WithTopP(-0.1), false},
		{"p greater than 1", WithTopP(1.1), false},
		{"p exactly 1", WithTopP(1.0), true},
		{"p small", WithTopP(0.0001), true},
		{"temperature zero", WithTemperature(0), false},
		{"temperature negative", WithTemperature(-1), false},
		{"temperature valid", WithTemperature(0.7), true},
		{"repetition penalty zero", WithRepetitionPenalty(0), false},
		{"repetition penalty negative", WithRepetitionPenalty(-1), false},
		{"repetition penalty valid", WithRepetitionPenalty(1.2), true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := NewSamplerStrategy(vocabSize, testCase.option)
			if testCase.valid {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrConfig)
			}
		})
	}

	_, err := NewSamplerStrategy(0)
	require.ErrorIs(t, err, ErrConfig)
}

func TestTopKRestrictsCandidates(t *testing.T) {
	// Vocabulary of 5, k=2: only the two highest logits (ids 1 and 0) may
	// ever be sampled.
	logits := []float64{0.1, 0.9, 0.05, 0.05, 0.0}
	sampler, err := NewSamplerStrategy(5, WithTopK(2), WithSeed(17))
	require.NoError(t, err)

	seen := make(map[int32]int)
	for range 200 {
		token, err := sampler.Select(logits, nil)
		require.NoError(t, err)
		require.Contains(t, []int32{0, 1}, token)
		seen[token]++
	}
	// Both survivors have sizeable renormalized probability, so both should
	// show up over 200 draws.
	require.Len(t, seen, 2)
}

func TestTopKOneMatchesGreedy(t *testing.T) {
	greedy := GreedySearch{}
	logitsRows := [][]float64{
		{0.8, 0.1, 0.7, 0.9},
		{0.9, 0.9, 0.1, 0.2}, // tied maxima
		{-1.5, -0.2, -3.0, -0.2},
	}
	for seed := uint64(0); seed < 10; seed++ {
		sampler, err := NewSamplerStrategy(4, WithTopK(1), WithSeed(seed))
		require.NoError(t, err)
		for _, logits := range logitsRows {
			want, err := greedy.Select(logits, nil)
			require.NoError(t, err)
			got, err := sampler.Select(logits, nil)
			require.NoError(t, err)
			require.Equal(t, want, got, "seed %d, logits %v", seed, logits)
		}
	}
}

func TestSoftmaxSumsToOne(t *testing.T) {
	scores := []float64{2.0, -1.0, 0.5, 0.0, 3.3}
	order := argsortDescending(scores)
	probs := softmaxOver(scores, order)
	var total float64
	for _, prob := range probs {
		total += prob
	}
	require.InDelta(t, 1.0, total, 1e-6)

	// Probabilities come out sorted descending, aligned with order.
	for i := 1; i < len(probs); i++ {
		require.GreaterOrEqual(t, probs[i-1], probs[i])
	}
}

func TestNucleusCutIsMinimal(t *testing.T) {
	testCases := []struct {
		probs []float64 // sorted descending
		p     float64
		want  int
	}{
		{[]float64{0.5, 0.3, 0.2}, 0.71, 2},
		{[]float64{0.5, 0.3, 0.2}, 0.5, 1},
		{[]float64{0.5, 0.3, 0.2}, 0.81, 3},
		{[]float64{0.5, 0.3, 0.2}, 1.0, 3},
		{[]float64{0.7, 0.2, 0.1}, 0.2, 1},
		{[]float64{0.7, 0.2, 0.1}, 0.91, 3},
		// A p adjacent to zero still retains the most likely token.
		{[]float64{0.7, 0.2, 0.1}, 0.0001, 1},
	}
	for _, testCase := range testCases {
		cut := nucleusCut(testCase.probs, testCase.p)
		require.Equal(t, testCase.want, cut, "probs %v, p %v", testCase.probs, testCase.p)

		// Minimality: the retained prefix reaches p, and dropping its last
		// element falls short of p.
		var cum float64
		for _, prob := range testCase.probs[:cut] {
			cum += prob
		}
		require.GreaterOrEqual(t, cum, testCase.p)
		require.Less(t, cum-testCase.probs[cut-1], testCase.p)
	}
}

func TestNucleusRenormalizes(t *testing.T) {
	probs := []float64{0.5, 0.3, 0.2}
	cut := nucleusCut(probs, 0.71)
	kept := probs[:cut]
	renormalize(kept)
	var total float64
	for _, prob := range kept {
		total += prob
	}
	require.InDelta(t, 1.0, total, 1e-6)
}

func TestFullDistributionWhenFiltersDisabled(t *testing.T) {
	// No k, p=1: every token keeps non-zero probability. With uniform
	// logits all four tokens show up.
	sampler, err := NewSamplerStrategy(4, WithSeed(3))
	require.NoError(t, err)
	logits := []float64{0, 0, 0, 0}
	seen := make(map[int32]bool)
	for range 400 {
		token, err := sampler.Select(logits, nil)
		require.NoError(t, err)
		seen[token] = true
	}
	require.Len(t, seen, 4)
}

func TestSeedReproducibility(t *testing.T) {
	logits := []float64{0.3, 0.1, 0.2, 0.4, -0.5}
	first, err := NewSamplerStrategy(5, WithTopP(0.9), WithTemperature(0.8), WithSeed(42))
	require.NoError(t, err)
	second, err := NewSamplerStrategy(5, WithTopP(0.9), WithTemperature(0.8), WithSeed(42))
	require.NoError(t, err)
	for range 50 {
		a, err := first.Select(logits, nil)
		require.NoError(t, err)
		b, err := second.Select(logits, nil)
		require.NoError(t, err)
		require.Equal(t, a, b)
	}
}

func TestLowTemperatureSharpens(t *testing.T) {
	sampler, err := NewSamplerStrategy(2, WithTemperature(0.01), WithSeed(1))
	require.NoError(t, err)
	for range 50 {
		token, err := sampler.Select([]float64{0, 1}, nil)
		require.NoError(t, err)
		require.Equal(t, int32(1), token)
	}
}

func TestRepetitionPenalty(t *testing.T) {
	scores := []float64{2.0, -1.0, 1.0}
	applyRepetitionPenalty(scores, []int32{0, 1, 0}, 4.0)
	// Positive logits are divided, negative ones multiplied; each seen token
	// is penalized once no matter how often it appears in the context.
	require.InDelta(t, 0.5, scores[0], 1e-9)
	require.InDelta(t, -4.0, scores[1], 1e-9)
	require.InDelta(t, 1.0, scores[2], 1e-9)
}

func TestSamplerRejectsWrongLogitsWidth(t *testing.T) {
	sampler, err := NewSamplerStrategy(4, WithSeed(0))
	require.NoError(t, err)
	_, err = sampler.Select([]float64{0.1, 0.2}, nil)
	require.Error(t, err)
}

func TestArgsortDescendingIsStable(t *testing.T) {
	order := argsortDescending([]float64{0.5, math.Inf(-1), 0.5, 1.0})
	require.Equal(t, []int{3, 0, 2, 1}, order)
}
