// Package graphmodel adapts a GoMLX computation into a txtgen model: any
// graph function that maps a [1, contextLength] tensor of token ids to
// next-token logits can be driven by the decoding engine.
//
// The adapter takes an already-populated context.Context (weight loading is
// the caller's concern) and compiles the graph lazily against the backend
// the writer binds it to, so the same model value can be created before any
// device exists.
package graphmodel

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"

	"github.com/gomlx/txtgen/models"
)

// GraphFn builds the model's forward graph: inputIds is shaped
// [1, contextLength] (Int32) and the result must hold the next-token
// logits, with exactly VocabSize elements.
type GraphFn func(ctx *context.Context, inputIds *graph.Node) *graph.Node

// Model exposes a GoMLX computation as a models.Model. It implements
// models.DeviceAware: Decode only works after a writer has bound it to a
// device.
type Model struct {
	ctx     *context.Context
	graphFn GraphFn

	vocabSize        int
	maxContextLength int
	family           string

	backend backends.Backend
	exec    *context.Exec
}

// New wraps the computation built by graphFn, with variables (weights) taken
// from ctx. maxContextLength is the longest context the model accepts.
func New(ctx *context.Context, graphFn GraphFn, vocabSize, maxContextLength int) (*Model, error) {
	if ctx == nil || graphFn == nil {
		return nil, errors.Errorf("graphmodel.New requires a context and a graph function")
	}
	if vocabSize <= 0 {
		return nil, errors.Errorf("vocabulary size must be positive, got %d", vocabSize)
	}
	if maxContextLength <= 0 {
		return nil, errors.Errorf("maximum context length must be positive, got %d", maxContextLength)
	}
	return &Model{
		ctx:              ctx,
		graphFn:          graphFn,
		vocabSize:        vocabSize,
		maxContextLength: maxContextLength,
		family:           "graph",
	}, nil
}

// WithFamily overrides the family the model reports to the compatibility
// table (default "graph"). Returns the model to allow chaining after New.
func (m *Model) WithFamily(family string) *Model {
	m.family = family
	return m
}

// VocabSize implements models.Model.
func (m *Model) VocabSize() int { return m.vocabSize }

// MaxContextLength returns the longest context Decode accepts.
func (m *Model) MaxContextLength() int { return m.maxContextLength }

// Family implements models.FamilyProvider.
func (m *Model) Family() string { return m.family }

// AttachDevice implements models.DeviceAware: it compiles the graph function
// against the backend. A model is bound to at most one device.
func (m *Model) AttachDevice(backend backends.Backend) error {
	if m.backend != nil {
		return errors.Wrapf(models.ErrModel, "model already attached to backend %q", m.backend.Name())
	}
	err := exceptions.TryCatch[error](func() {
		m.exec = context.NewExec(backend, m.ctx, func(ctx *context.Context, inputIds *graph.Node) *graph.Node {
			return m.graphFn(ctx, inputIds)
		})
	})
	if err != nil {
		return errors.Wrapf(models.ErrModel, "failed to compile model for backend %q: %v", backend.Name(), err)
	}
	m.backend = backend
	return nil
}

// Decode implements models.Model by executing the compiled graph. Each new
// context length triggers a JIT compilation for that shape, cached by the
// executor.
func (m *Model) Decode(ids []int32) (*tensors.Tensor, error) {
	if m.exec == nil {
		return nil, errors.Wrap(models.ErrModel, "model is not attached to a device, bind the writer with On first")
	}
	if len(ids) == 0 {
		return nil, errors.Wrap(models.ErrModel, "model requires a non-empty context, seed the writer with a prompt")
	}
	if len(ids) > m.maxContextLength {
		return nil, errors.Wrapf(models.ErrModel, "context length %d exceeds the model's maximum of %d", len(ids), m.maxContextLength)
	}
	input := tensors.FromFlatDataAndDimensions(slices.Clone(ids), 1, len(ids))
	var logits *tensors.Tensor
	err := exceptions.TryCatch[error](func() { logits = m.exec.Call(input)[0] })
	if err != nil {
		return nil, errors.Wrapf(models.ErrModel, "decode failed with a context of %d tokens: %v", len(ids), err)
	}
	return logits, nil
}
