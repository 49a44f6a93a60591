package vocabs

import (
	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/gomlx/gomlx/types/xslices"
	"github.com/pkg/errors"
)

// SentencePiece is a Vocabulary backed by a sentencepiece tokenizer model.
type SentencePiece struct {
	proc *esentencepiece.Processor
}

// NewSentencePieceFromPath loads the tokenizer model in vocabPath.
func NewSentencePieceFromPath(vocabPath string) (*SentencePiece, error) {
	proc, err := esentencepiece.NewProcessorFromPath(vocabPath)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create sentencepiece from %q", vocabPath)
	}
	return &SentencePiece{proc: proc}, nil
}

// Encode returns the text encoded into a sequence of ids.
func (p *SentencePiece) Encode(text string) []int32 {
	tokens := p.proc.Encode(text)
	return xslices.Map(tokens, func(t esentencepiece.Token) int32 { return int32(t.ID) })
}

// Decode returns the text from a sequence of ids.
func (p *SentencePiece) Decode(ids []int32) string {
	return p.proc.Decode(xslices.Map(ids, func(id int32) int { return int(id) }))
}

// BeginningOfSentenceId returns the corresponding token, aka "bos".
//
// TODO: read from tokenizer model instead.
func (p *SentencePiece) BeginningOfSentenceId() int32 { return 2 }

// EndOfSentenceId returns the corresponding token, aka "eos".
//
// TODO: read from tokenizer model instead.
func (p *SentencePiece) EndOfSentenceId() int32 { return 1 }

// UnknownId returns the corresponding token, aka "unk".
//
// TODO: read from tokenizer model instead.
func (p *SentencePiece) UnknownId() int32 { return 3 }

// PadId returns the corresponding token, aka "pad".
//
// TODO: read from tokenizer model instead.
func (p *SentencePiece) PadId() int32 { return 0 }
