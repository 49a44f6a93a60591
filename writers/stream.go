package writers

import (
	"iter"
	"slices"

	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/txtgen/models"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// TokenStream is a lazy, potentially unbounded sequence of token ids: a
// cursor over one generation session. Each Next decodes the context with the
// model, selects a token with the strategy, appends it to the context and
// returns it.
//
// The context is owned exclusively by the stream, and advancing the cursor
// is its sole mutator. A stream holds no resources between pulls, so the
// caller may simply stop pulling at any point; it is not restartable --
// start a new session with Writer.Stream.
type TokenStream struct {
	model    models.Model
	strategy Strategy

	context      []int32
	numGenerated int
}

func newTokenStream(model models.Model, strategy Strategy, prompt []int32) *TokenStream {
	return &TokenStream{
		model:    model,
		strategy: strategy,
		context:  slices.Clone(prompt),
	}
}

// Next generates the next token: one model decode, one strategy selection,
// one append to the context. It blocks only for the duration of the model's
// computation.
func (ts *TokenStream) Next() (int32, error) {
	logitsT, err := ts.model.Decode(ts.context)
	if err != nil {
		return 0, errors.WithMessagef(err, "decoding with a context of %d tokens", len(ts.context))
	}
	logits, err := flatLogits(logitsT, ts.model.VocabSize())
	if err != nil {
		return 0, err
	}
	token, err := ts.strategy.Select(logits, ts.context)
	if err != nil {
		return 0, errors.WithMessagef(err, "selecting token %d of the session", ts.numGenerated)
	}
	if token < 0 || int(token) >= ts.model.VocabSize() {
		return 0, errors.Wrapf(models.ErrModel, "strategy %q selected token %d, outside the vocabulary [0, %d)",
			ts.strategy.Name(), token, ts.model.VocabSize())
	}
	ts.context = append(ts.context, token)
	ts.numGenerated++
	klog.V(2).Infof("writers: step %d selected token %d (context now %d tokens)", ts.numGenerated, token, len(ts.context))
	return token, nil
}

// Context returns a copy of the token ids accumulated so far, prompt
// included. Useful to inspect partial progress after a failure.
func (ts *TokenStream) Context() []int32 { return slices.Clone(ts.context) }

// NumGenerated returns how many tokens this stream has generated, not
// counting the prompt.
func (ts *TokenStream) NumGenerated() int { return ts.numGenerated }

// Tokens returns an iterator over the stream. It yields token ids until the
// caller breaks or an error occurs; a non-nil error is yielded once and the
// iteration ends. The stream remains usable (and its context inspectable)
// after the loop.
func (ts *TokenStream) Tokens() iter.Seq2[int32, error] {
	return func(yield func(int32, error) bool) {
		for {
			token, err := ts.Next()
			if !yield(token, err) || err != nil {
				return
			}
		}
	}
}

// flatLogits validates the logits tensor returned by a model and flattens it
// to a float64 slice of vocabSize entries.
func flatLogits(t *tensors.Tensor, vocabSize int) ([]float64, error) {
	if t == nil {
		return nil, errors.Wrap(models.ErrModel, "model returned nil logits")
	}
	if size := t.Shape().Size(); size != vocabSize {
		return nil, errors.Wrapf(models.ErrModel, "model returned logits shaped %s (%d values) for a vocabulary of size %d",
			t.Shape(), size, vocabSize)
	}
	switch t.DType() {
	case dtypes.Float32:
		logits := make([]float64, vocabSize)
		tensors.ConstFlatData(t, func(flat []float32) {
			for i, v := range flat {
				logits[i] = float64(v)
			}
		})
		return logits, nil
	case dtypes.Float64:
		return tensors.CopyFlatData[float64](t), nil
	default:
		return nil, errors.Wrapf(models.ErrModel, "model returned logits with dtype %s, only Float32 and Float64 are supported",
			t.DType())
	}
}
