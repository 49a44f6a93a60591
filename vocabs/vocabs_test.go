package vocabs

import (
	"testing"

	"github.com/gomlx/gomlx/types/tensors"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/txtgen/models"
)

func TestBytesRoundTrip(t *testing.T) {
	vocab := Bytes{}
	require.Equal(t, 260, vocab.NumIds())

	text := "hello, world!"
	ids := vocab.Encode(text)
	require.Len(t, ids, len(text))
	for _, id := range ids {
		require.GreaterOrEqual(t, id, int32(bytesNumSpecial))
		require.Less(t, int(id), vocab.NumIds())
	}
	require.Equal(t, text, vocab.Decode(ids))
}

func TestBytesDecodeSkipsSpecialIds(t *testing.T) {
	vocab := Bytes{}
	ids := append([]int32{vocab.BeginningOfSentenceId()}, vocab.Encode("hi")...)
	ids = append(ids, vocab.EndOfSentenceId())
	require.Equal(t, "hi", vocab.Decode(ids))
}

// idModel is a minimal token-level model for wrapper tests.
type idModel struct{ vocabSize int }

func (m *idModel) Decode([]int32) (*tensors.Tensor, error) {
	return tensors.FromFlatDataAndDimensions(make([]float32, m.vocabSize), m.vocabSize), nil
}
func (m *idModel) VocabSize() int { return m.vocabSize }

func TestWithVocabulary(t *testing.T) {
	vocab := Bytes{}
	model := WithVocabulary(&idModel{vocabSize: vocab.NumIds()}, vocab)

	// The wrapper adds the text capability probed by the models helpers.
	ids, err := models.TextToIds(model, "ok")
	require.NoError(t, err)
	require.Equal(t, vocab.Encode("ok"), ids)

	text, err := models.IdsToText(model, ids)
	require.NoError(t, err)
	require.Equal(t, "ok", text)

	// The bare model has no such capability.
	_, err = models.TextToIds(&idModel{vocabSize: 4}, "ok")
	require.ErrorIs(t, err, models.ErrTokenizer)

	// The wrapper forwards device attachment as a no-op for models that are
	// not device-aware, and reports no family for models without one.
	require.NoError(t, model.AttachDevice(nil))
	require.Equal(t, "", model.Family())
}

func TestWithVocabularyNilVocab(t *testing.T) {
	model := WithVocabulary(&idModel{vocabSize: 4}, nil)
	_, err := model.TextToIds("x")
	require.ErrorIs(t, err, models.ErrTokenizer)
	_, err = model.IdsToText([]int32{0})
	require.ErrorIs(t, err, models.ErrTokenizer)
}
