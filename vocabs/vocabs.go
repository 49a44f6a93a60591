// Package vocabs provides vocabularies: mappings between text and the token
// ids a model consumes, including the special ids models are trained with.
package vocabs

// Vocabulary converts between text and token ids.
type Vocabulary interface {
	Encode(text string) []int32
	Decode(ids []int32) string

	// The methods below define the special ids for the model.

	BeginningOfSentenceId() int32
	EndOfSentenceId() int32
	UnknownId() int32
	PadId() int32
}
