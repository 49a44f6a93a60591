// Package models defines the capability contract the txtgen engine requires
// from a language model.
//
// The engine needs very little from a model: given the token ids accumulated
// so far, produce the logits for the next token. Everything else -- text
// conversion, device placement, a model family name -- is an optional
// capability probed at call time with a type assertion, so any model can be
// plugged in without inheriting from anything.
package models

import (
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
)

var (
	// ErrModel tags failures of the model itself: a decode error, a context
	// longer than the model supports, or an unavailable device.
	ErrModel = errors.New("model failure")

	// ErrTokenizer tags text-level requests made to a model without the text
	// capability, or conversions that fail.
	ErrTokenizer = errors.New("text conversion failure")
)

// Model is the minimal capability required for token-level generation.
type Model interface {
	// Decode returns the next-token logits for the given context, as a tensor
	// with VocabSize elements (shaped [vocabSize] or [1, vocabSize], Float32
	// or Float64). Given fixed weights and context the result is
	// deterministic.
	//
	// It must fail -- with an error matching ErrModel -- if the context is
	// longer than the model supports, or if the bound device is unavailable.
	Decode(context []int32) (*tensors.Tensor, error)

	// VocabSize returns the number of distinct token ids the model knows
	// about. Every id handled by the engine lies in [0, VocabSize).
	VocabSize() int
}

// TextEncoder is the optional capability to convert text to token ids.
type TextEncoder interface {
	TextToIds(text string) ([]int32, error)
}

// TextDecoder is the optional capability to convert token ids back to text.
type TextDecoder interface {
	IdsToText(ids []int32) (string, error)
}

// DeviceAware is the optional capability of models that run on an accelerator
// backend. The writer forwards its device binding to the model when present.
type DeviceAware interface {
	AttachDevice(backend backends.Backend) error
}

// FamilyProvider optionally names the model's family (e.g. "ngram",
// "transformer"), consulted by the strategy/model compatibility table.
// Models without a family are accepted by every strategy.
type FamilyProvider interface {
	Family() string
}

// TextToIds encodes text with the model's text capability, or fails with
// ErrTokenizer if the model doesn't have one.
func TextToIds(m Model, text string) ([]int32, error) {
	enc, ok := m.(TextEncoder)
	if !ok {
		return nil, errors.Wrapf(ErrTokenizer, "model %T cannot encode text to ids", m)
	}
	return enc.TextToIds(text)
}

// IdsToText decodes token ids with the model's text capability, or fails with
// ErrTokenizer if the model doesn't have one.
func IdsToText(m Model, ids []int32) (string, error) {
	dec, ok := m.(TextDecoder)
	if !ok {
		return "", errors.Wrapf(ErrTokenizer, "model %T cannot decode ids to text", m)
	}
	return dec.IdsToText(ids)
}
