package writers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGreedySelect(t *testing.T) {
	greedy := GreedySearch{}

	token, err := greedy.Select([]float64{0.8, 0.1, 0.7, 0.9}, nil)
	require.NoError(t, err)
	require.Equal(t, int32(3), token)

	// Ties break towards the smallest index.
	token, err = greedy.Select([]float64{0.5, 0.2, 0.5}, nil)
	require.NoError(t, err)
	require.Equal(t, int32(0), token)

	token, err = greedy.Select([]float64{1.2}, nil)
	require.NoError(t, err)
	require.Equal(t, int32(0), token)

	_, err = greedy.Select(nil, nil)
	require.ErrorIs(t, err, ErrConfig)
}

func TestGreedyIsDeterministic(t *testing.T) {
	greedy := GreedySearch{}
	logits := []float64{-0.3, 2.1, 2.1, 0.9}
	first, err := greedy.Select(logits, nil)
	require.NoError(t, err)
	for range 10 {
		token, err := greedy.Select(logits, nil)
		require.NoError(t, err)
		require.Equal(t, first, token)
	}
}

func TestGreedyIteration(t *testing.T) {
	// The model alternates between two logits rows, so greedy search
	// alternates between tokens 3 and 0.
	model := &stubModel{logits: [][]float32{
		{0.8, 0.1, 0.7, 0.9},
		{0.9, 0.1, 0.7, 0.8},
	}}
	writer, err := NewGreedySearch(model)
	require.NoError(t, err)

	stream := writer.Stream()
	token, err := stream.Next()
	require.NoError(t, err)
	require.Equal(t, int32(3), token)
	token, err = stream.Next()
	require.NoError(t, err)
	require.Equal(t, int32(0), token)

	require.Equal(t, []int32{3, 0}, stream.Context())
	require.Equal(t, 2, stream.NumGenerated())

	// The model saw the context grow one token per pull.
	require.Empty(t, model.calls[0])
	require.Equal(t, []int32{3}, model.calls[1])
}
