package main

import (
	"flag"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/gomlx/txtgen/models/ngram"
	"github.com/gomlx/txtgen/vocabs"
	"github.com/gomlx/txtgen/writers"
)

var (
	flagCorpus             = flag.String("corpus", "", "Text file to train the n-gram model on.")
	flagOrder              = flag.Int("order", 4, "Order of the n-gram model.")
	flagMaxGeneratedTokens = flag.Int("max_tokens", 512, "Maximum number of tokens to generate per prompt.")
	flagGreedy             = flag.Bool("greedy", false, "Decode with greedy search instead of sampling.")
	flagTopK               = flag.Int("k", 40, "Top-k truncation width, 0 to disable.")
	flagTopP               = flag.Float64("p", 0.95, "Nucleus (top-p) threshold, 1.0 to disable.")
	flagTemperature        = flag.Float64("temperature", 0.8, "Sampling temperature.")
	flagRepetitionPenalty  = flag.Float64("repetition_penalty", 1.0, "Penalty for tokens already generated, 1.0 to disable.")
	flagSeed               = flag.Int64("seed", -1, "Sampling seed for reproducible runs; -1 picks a random seed.")
)

type generator struct {
	writer      *writers.Writer
	numContexts int
}

// buildGenerator trains the model from flags and binds it to a writer.
// Panics in case of error.
func buildGenerator() *generator {
	vocab := vocabs.Bytes{}
	corpus := must.M1(os.ReadFile(*flagCorpus))
	model := must.M1(ngram.New(vocab.NumIds(), *flagOrder))
	must.M(model.Train(vocab.Encode(string(corpus))))
	klog.V(1).Infof("trained an order-%d model on %s of text, %s contexts",
		*flagOrder, humanize.Bytes(uint64(len(corpus))), humanize.Comma(int64(model.NumContexts())))

	textModel := vocabs.WithVocabulary(model, vocab)
	var writer *writers.Writer
	if *flagGreedy {
		writer = must.M1(writers.NewGreedySearch(textModel))
	} else {
		options := []writers.SamplerOption{
			writers.WithTemperature(*flagTemperature),
			writers.WithTopP(*flagTopP),
		}
		if *flagTopK > 0 {
			options = append(options, writers.WithTopK(*flagTopK))
		}
		if *flagRepetitionPenalty != 1.0 {
			options = append(options, writers.WithRepetitionPenalty(*flagRepetitionPenalty))
		}
		if *flagSeed >= 0 {
			options = append(options, writers.WithSeed(uint64(*flagSeed)))
		}
		writer = must.M1(writers.NewSampler(textModel, options...))
	}
	return &generator{writer: writer, numContexts: model.NumContexts()}
}

// generate returns the prompt followed by its generated continuation.
func (g *generator) generate(prompt string) (string, error) {
	if prompt != "" {
		if err := g.writer.Prompt(prompt); err != nil {
			return "", err
		}
	}
	continuation, err := g.writer.Generate(*flagMaxGeneratedTokens)
	if err != nil {
		return "", err
	}
	return prompt + continuation, nil
}
