package vocabs

import (
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/txtgen/models"
	"github.com/pkg/errors"
)

// TextModel pairs a token-level model with a Vocabulary, providing the
// optional text capability (models.TextEncoder and models.TextDecoder) on
// top of it. The underlying model is shared by reference, not copied.
type TextModel struct {
	models.Model
	vocab Vocabulary
}

// WithVocabulary attaches vocab to model.
func WithVocabulary(model models.Model, vocab Vocabulary) *TextModel {
	return &TextModel{Model: model, vocab: vocab}
}

// TextToIds implements models.TextEncoder.
func (tm *TextModel) TextToIds(text string) ([]int32, error) {
	if tm.vocab == nil {
		return nil, errors.Wrapf(models.ErrTokenizer, "no vocabulary attached to model %T", tm.Model)
	}
	return tm.vocab.Encode(text), nil
}

// IdsToText implements models.TextDecoder.
func (tm *TextModel) IdsToText(ids []int32) (string, error) {
	if tm.vocab == nil {
		return "", errors.Wrapf(models.ErrTokenizer, "no vocabulary attached to model %T", tm.Model)
	}
	return tm.vocab.Decode(ids), nil
}

// AttachDevice forwards the device binding to the underlying model when it
// is device-aware, and is a no-op otherwise.
func (tm *TextModel) AttachDevice(backend backends.Backend) error {
	if da, ok := tm.Model.(models.DeviceAware); ok {
		return da.AttachDevice(backend)
	}
	return nil
}

// Family forwards the underlying model's family, or reports none.
func (tm *TextModel) Family() string {
	if fp, ok := tm.Model.(models.FamilyProvider); ok {
		return fp.Family()
	}
	return ""
}
