// Package ngram implements a count-based n-gram language model over token
// ids. It is small enough to train in-process on a text corpus, which makes
// it useful as a self-contained model for demos and tests, while still going
// through the exact same decoding engine as a real transformer.
//
// Prediction uses stupid backoff: the logits for the next token come from
// the counts of the longest context suffix ever observed, falling back all
// the way to unigram counts, with add-alpha smoothing so every token keeps
// non-zero probability.
package ngram

import (
	"math"
	"os"

	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
	"golang.org/x/exp/slices"
	"k8s.io/klog/v2"

	"github.com/gomlx/txtgen/models"
)

const smoothing = 0.5

// Model is a backoff n-gram language model. It implements models.Model.
//
// Train may be called repeatedly to accumulate counts; Decode is safe to
// call concurrently with other Decodes, but not with Train.
type Model struct {
	order     int
	vocabSize int

	// counts[n] maps an n-token context suffix (encoded by contextKey) to a
	// per-token count vector of vocabSize entries. counts[0] holds the
	// unigram counts under the empty key.
	counts []map[string][]uint32
}

// New creates an untrained model of the given order (the "n" of the n-gram:
// 2 for a bigram model, and so on).
func New(vocabSize, order int) (*Model, error) {
	if vocabSize <= 0 {
		return nil, errors.Errorf("vocabulary size must be positive, got %d", vocabSize)
	}
	if order < 1 {
		return nil, errors.Errorf("order must be at least 1, got %d", order)
	}
	counts := make([]map[string][]uint32, order)
	for n := range counts {
		counts[n] = make(map[string][]uint32)
	}
	return &Model{order: order, vocabSize: vocabSize, counts: counts}, nil
}

// Order returns the model's n-gram order.
func (m *Model) Order() int { return m.order }

// VocabSize implements models.Model.
func (m *Model) VocabSize() int { return m.vocabSize }

// Family implements models.FamilyProvider.
func (m *Model) Family() string { return "ngram" }

// NumContexts returns how many distinct contexts (across all orders) the
// model has counts for.
func (m *Model) NumContexts() int {
	var total int
	for _, byContext := range m.counts {
		total += len(byContext)
	}
	return total
}

// Train accumulates counts from a sequence of token ids, typically a
// vocabulary-encoded corpus.
func (m *Model) Train(ids []int32) error {
	for pos, id := range ids {
		if id < 0 || int(id) >= m.vocabSize {
			return errors.Errorf("corpus id %d (position %d) outside the vocabulary [0, %d)", id, pos, m.vocabSize)
		}
	}
	for pos, id := range ids {
		for n := 0; n < m.order && n <= pos; n++ {
			key := contextKey(ids[pos-n : pos])
			row := m.counts[n][key]
			if row == nil {
				row = make([]uint32, m.vocabSize)
				m.counts[n][key] = row
			}
			row[id]++
		}
	}
	klog.V(1).Infof("ngram: trained on %d tokens, %d contexts known", len(ids), m.NumContexts())
	return nil
}

// Decode implements models.Model: logits are the smoothed log-counts of the
// longest observed context suffix.
func (m *Model) Decode(context []int32) (*tensors.Tensor, error) {
	for pos, id := range context {
		if id < 0 || int(id) >= m.vocabSize {
			return nil, errors.Wrapf(models.ErrModel, "context id %d (position %d) outside the vocabulary [0, %d)", id, pos, m.vocabSize)
		}
	}
	row := m.lookup(context)
	logits := make([]float64, m.vocabSize)
	for i := range logits {
		var count uint32
		if row != nil {
			count = row[i]
		}
		logits[i] = math.Log(float64(count) + smoothing)
	}
	return tensors.FromFlatDataAndDimensions(logits, m.vocabSize), nil
}

// lookup returns the count vector of the longest context suffix with counts,
// or nil when even the unigram table is empty (untrained model: uniform).
func (m *Model) lookup(context []int32) []uint32 {
	longest := m.order - 1
	if len(context) < longest {
		longest = len(context)
	}
	for n := longest; n >= 0; n-- {
		if row, found := m.counts[n][contextKey(context[len(context)-n:])]; found {
			return row
		}
	}
	return nil
}

// contextKey encodes a short id sequence as a map key.
func contextKey(ids []int32) string {
	buf := make([]byte, 0, 4*len(ids))
	for _, id := range ids {
		buf = append(buf, byte(id), byte(id>>8), byte(id>>16), byte(id>>24))
	}
	return string(buf)
}

// checkpoint is the msgpack layout of a saved model.
type checkpoint struct {
	Order     int                   `msgpack:"order"`
	VocabSize int                   `msgpack:"vocab_size"`
	Counts    []map[string][]uint32 `msgpack:"counts"`
}

// Save writes the model's counts to path as a msgpack checkpoint.
func (m *Model) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create checkpoint file %q", path)
	}
	defer func() { _ = f.Close() }()
	enc := msgpack.NewEncoder(f)
	err = enc.Encode(&checkpoint{Order: m.order, VocabSize: m.vocabSize, Counts: m.counts})
	if err != nil {
		return errors.Wrapf(err, "failed to write checkpoint to %q", path)
	}
	return f.Close()
}

// Load reads a model back from a checkpoint written by Save.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read checkpoint file %q", path)
	}
	defer func() { _ = f.Close() }()
	var ckpt checkpoint
	dec := msgpack.NewDecoder(f)
	if err = dec.Decode(&ckpt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse checkpoint %q", path)
	}
	m, err := New(ckpt.VocabSize, ckpt.Order)
	if err != nil {
		return nil, errors.WithMessagef(err, "checkpoint %q", path)
	}
	if len(ckpt.Counts) != ckpt.Order {
		return nil, errors.Errorf("checkpoint %q has counts for %d orders, expected %d", path, len(ckpt.Counts), ckpt.Order)
	}
	for n, byContext := range ckpt.Counts {
		for key, row := range byContext {
			if len(row) != ckpt.VocabSize {
				return nil, errors.Errorf("checkpoint %q has a count row of %d entries, expected %d", path, len(row), ckpt.VocabSize)
			}
			m.counts[n][key] = slices.Clone(row)
		}
	}
	return m, nil
}
