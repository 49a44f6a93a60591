package vocabs

// Bytes is a self-contained byte-level vocabulary: every byte value is its
// own token, shifted up to leave room for the special ids at the bottom of
// the table (pad=0, eos=1, bos=2, unk=3). Useful for experiments and tests
// where no trained tokenizer is available.
type Bytes struct{}

const bytesNumSpecial = 4

// NumIds returns the size of the vocabulary: 256 byte values plus the
// special ids.
func (Bytes) NumIds() int { return 256 + bytesNumSpecial }

// Encode maps each byte of text to its token id.
func (Bytes) Encode(text string) []int32 {
	ids := make([]int32, len(text))
	for i := 0; i < len(text); i++ {
		ids[i] = int32(text[i]) + bytesNumSpecial
	}
	return ids
}

// Decode maps token ids back to bytes, skipping special ids.
func (Bytes) Decode(ids []int32) string {
	buf := make([]byte, 0, len(ids))
	for _, id := range ids {
		if id < bytesNumSpecial || id >= 256+bytesNumSpecial {
			continue
		}
		buf = append(buf, byte(id-bytesNumSpecial))
	}
	return string(buf)
}

func (Bytes) BeginningOfSentenceId() int32 { return 2 }
func (Bytes) EndOfSentenceId() int32       { return 1 }
func (Bytes) UnknownId() int32             { return 3 }
func (Bytes) PadId() int32                 { return 0 }
