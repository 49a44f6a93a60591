// Package writers turns a language model into text: it binds a model, a
// decoding strategy, a device and hyperparameters into a Writer, which
// generates token ids (or text, when the model can convert them) one step
// at a time.
//
// Two strategies are provided: GreedySearch, which deterministically picks
// the highest-scoring token at each step, and Sampler, which draws from the
// model's distribution after temperature scaling and top-k / nucleus
// filtering.
//
// Generation itself is driven through a TokenStream, a pull-based lazy
// sequence of token ids. The Generate and GenerateUntil methods are
// conveniences built on top of it.
package writers

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/txtgen/models"
	"github.com/pkg/errors"
)

var (
	// ErrConfig tags hyperparameters outside their valid range and invalid
	// strategy/model combinations. Configuration is validated eagerly, at
	// configuration time, never deferred to generation time.
	ErrConfig = errors.New("invalid configuration")

	// ErrGenerationLimit tags a GenerateUntil call whose stop condition was
	// not met within the given token cap.
	ErrGenerationLimit = errors.New("stop condition not met within the token limit")
)

// Strategy turns one step's logits (plus the accumulated context) into the
// next token id, always in [0, VocabSize).
type Strategy interface {
	// Name identifies the strategy in errors and in the compatibility table.
	Name() string

	// Select picks the next token given the logits for the current step.
	// The context carries every token id accumulated so far, for strategies
	// that condition on it (e.g. repetition penalty).
	Select(logits []float64, context []int32) (int32, error)
}

// Writer binds one model (by reference, not owned), one decoding strategy
// and, optionally, a device. It is the entry point for generation.
//
// A Writer is not safe for concurrent use; create one Writer per generation
// session.
type Writer struct {
	model    models.Model
	strategy Strategy

	device  string
	backend backends.Backend
	closed  bool

	prompt []int32
}

// New creates a Writer for the given model and strategy. It fails with
// ErrConfig if the pair is unsupported (see RestrictStrategy) or if the
// model reports a non-positive vocabulary size.
func New(model models.Model, strategy Strategy) (*Writer, error) {
	if model == nil {
		return nil, errors.Wrap(ErrConfig, "nil model")
	}
	if strategy == nil {
		return nil, errors.Wrap(ErrConfig, "nil strategy")
	}
	if v := model.VocabSize(); v <= 0 {
		return nil, errors.Wrapf(ErrConfig, "model %T reports vocabulary size %d", model, v)
	}
	if err := checkCompatibility(strategy, model); err != nil {
		return nil, err
	}
	return &Writer{model: model, strategy: strategy}, nil
}

// NewGreedySearch creates a Writer that decodes with greedy search.
func NewGreedySearch(model models.Model) (*Writer, error) {
	return New(model, GreedySearch{})
}

// NewSampler creates a Writer that decodes with stochastic sampling,
// configured by the given options. Options are validated here; an
// out-of-range value fails with ErrConfig.
func NewSampler(model models.Model, options ...SamplerOption) (*Writer, error) {
	if model == nil {
		return nil, errors.Wrap(ErrConfig, "nil model")
	}
	strategy, err := NewSamplerStrategy(model.VocabSize(), options...)
	if err != nil {
		return nil, err
	}
	return New(model, strategy)
}

// On binds the writer to the given device for its remaining lifetime.
//
// The device is a backend configuration understood by GoMLX's backends
// registry, e.g. "xla:cpu" or "go". An unknown or unavailable device fails
// with models.ErrModel. Re-binding a writer to a second device is rejected:
// create a fresh Writer instead.
func (w *Writer) On(device string) error {
	if w.closed {
		return errors.Wrap(ErrConfig, "writer is closed")
	}
	if w.backend != nil {
		return errors.Wrapf(ErrConfig, "writer already bound to device %q, re-binding is not supported", w.device)
	}
	var backend backends.Backend
	err := exceptions.TryCatch[error](func() { backend = backends.NewWithConfig(device) })
	if err != nil {
		return errors.Wrapf(models.ErrModel, "device %q unavailable: %v", device, err)
	}
	if da, ok := w.model.(models.DeviceAware); ok {
		if err = da.AttachDevice(backend); err != nil {
			backend.Finalize()
			return errors.WithMessagef(err, "attaching model %T to device %q", w.model, device)
		}
	}
	w.backend = backend
	w.device = device
	return nil
}

// Device returns the device the writer is bound to, or "" if none was set.
func (w *Writer) Device() string { return w.device }

// Close releases the writer's device binding, if any. The writer cannot be
// re-bound afterwards. Close is idempotent.
func (w *Writer) Close() {
	if w.backend != nil {
		w.backend.Finalize()
		w.backend = nil
	}
	w.closed = true
}

// Prompt seeds future generation sessions with the given text, encoded with
// the model's text capability. Fails with models.ErrTokenizer if the model
// has none.
//
// No special tokens are added to the prompt: if the model expects e.g. a
// "bos" token, include it in the text explicitly.
func (w *Writer) Prompt(text string) error {
	ids, err := models.TextToIds(w.model, text)
	if err != nil {
		return err
	}
	return w.PromptIds(ids)
}

// PromptIds seeds future generation sessions with the given token ids.
// Every id must be in [0, VocabSize).
func (w *Writer) PromptIds(ids []int32) error {
	vocabSize := w.model.VocabSize()
	for pos, id := range ids {
		if id < 0 || int(id) >= vocabSize {
			return errors.Wrapf(ErrConfig, "prompt id %d (position %d) outside the vocabulary [0, %d)", id, pos, vocabSize)
		}
	}
	w.prompt = slices.Clone(ids)
	return nil
}

// Stream starts a fresh generation session: a TokenStream whose context is
// initialized with the writer's prompt (empty if none was set). Streams are
// independent of each other and of the writer's later prompt changes.
func (w *Writer) Stream() *TokenStream {
	return newTokenStream(w.model, w.strategy, w.prompt)
}

// GenerateIds generates exactly numTokens token ids from a fresh stream.
// numTokens == 0 returns an empty sequence without invoking the model at
// all. On error no partial result is returned; drive a TokenStream directly
// if partial progress matters.
func (w *Writer) GenerateIds(numTokens int) ([]int32, error) {
	if numTokens < 0 {
		return nil, errors.Wrapf(ErrConfig, "cannot generate %d tokens", numTokens)
	}
	ids := make([]int32, 0, numTokens)
	if numTokens == 0 {
		return ids, nil
	}
	stream := w.Stream()
	for range numTokens {
		token, err := stream.Next()
		if err != nil {
			return nil, err
		}
		ids = append(ids, token)
	}
	return ids, nil
}

// Generate generates numTokens tokens and converts them to text with the
// model's text capability. The prompt is not included in the result.
//
// There is no simple correspondence between tokens and words: treat
// numTokens as an upper bound on the amount of text returned.
func (w *Writer) Generate(numTokens int) (string, error) {
	ids, err := w.GenerateIds(numTokens)
	if err != nil {
		return "", err
	}
	return models.IdsToText(w.model, ids)
}

// GenerateIdsUntil generates token ids from a fresh stream until stop holds,
// and returns the generated ids (the one that triggered the stop included).
//
// maxTokens caps the number of pulls: if it is reached without the condition
// holding, the call fails with ErrGenerationLimit and no partial result.
// maxTokens <= 0 means no cap, in which case the caller is responsible for
// choosing a condition that eventually holds.
func (w *Writer) GenerateIdsUntil(stop StopCondition, maxTokens int) ([]int32, error) {
	if stop == nil {
		return nil, errors.Wrap(ErrConfig, "nil stop condition")
	}
	stream := w.Stream()
	var ids []int32
	for {
		token, err := stream.Next()
		if err != nil {
			return nil, err
		}
		ids = append(ids, token)
		if stop(ids, token) {
			return ids, nil
		}
		if maxTokens > 0 && len(ids) >= maxTokens {
			return nil, errors.Wrapf(ErrGenerationLimit, "after %d tokens", maxTokens)
		}
	}
}

// GenerateUntil generates text until endText has been generated (or
// maxTokens is hit, failing with ErrGenerationLimit). It requires the
// model's text capability both to encode endText and to decode the result.
func (w *Writer) GenerateUntil(endText string, maxTokens int) (string, error) {
	endIds, err := models.TextToIds(w.model, endText)
	if err != nil {
		return "", err
	}
	ids, err := w.GenerateIdsUntil(StopAtSequence(endIds...), maxTokens)
	if err != nil {
		return "", err
	}
	return models.IdsToText(w.model, ids)
}
