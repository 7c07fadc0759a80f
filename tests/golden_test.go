// Package tests holds end-to-end decode scenarios against the fixtures in
// testdata/: a small frame matrix, a vocabulary, and an n-gram language
// model, standing in for the bundled logit.txt/letter.dict/overfit.arpa this
// suite's numbers are shaped after (see DESIGN.md for why these are
// fabricated rather than the originals).
package tests

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ctcbeam/internal/ctc/decoder"
	"ctcbeam/internal/ctc/lm"
	"ctcbeam/internal/ctc/matrix"
)

const (
	tokenC = int32(0)
	tokenA = int32(1)
	tokenT = int32(2)
	tokenK = int32(3)
	blank  = int32(4)
)

func loadVocab(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read vocab: %v", err)
	}
	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			words = append(words, line)
		}
	}
	// The trailing entry is the blank placeholder; the LM never scores it.
	return words[:len(words)-1]
}

func loadFixtureMatrix(t *testing.T) *matrix.Matrix {
	t.Helper()
	m, err := matrix.Load(filepath.Join("..", "testdata", "matrix.txt"))
	if err != nil {
		t.Fatalf("load matrix: %v", err)
	}
	return m
}

func defaultOpts() decoder.Options {
	return decoder.Options{
		BeamSize:      100,
		BeamSizeToken: 1000,
		BeamThreshold: 1000,
		LMWeight:      0.5,
	}
}

// TestGoldenGreedy reproduces a greedy decode scenario: argmax at every
// frame, collapsed. Frame 1 is acoustically ambiguous between A and K, with
// K a hair ahead, so the collapsed transcript is "CKT" rather than "CAT".
func TestGoldenGreedy(t *testing.T) {
	m := loadFixtureMatrix(t)
	results, err := decoder.Greedy(m)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	collapsed := decoder.Collapse(results[0].Tokens, blank)
	want := []int32{tokenC, tokenK, tokenT}
	if !equalTokens(collapsed, want) {
		t.Fatalf("collapsed = %v, want %v (CKT)", collapsed, want)
	}
}

// TestGoldenBeamNullLM reproduces the null-LM beam scenario: with no
// language model to correct the ambiguous second frame, beam search agrees
// with greedy.
func TestGoldenBeamNullLM(t *testing.T) {
	m := loadFixtureMatrix(t)
	results, err := decoder.BeamSearch(m, int(blank), lm.NewNullModel(), defaultOpts())
	if err != nil {
		t.Fatalf("BeamSearch: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	collapsed := decoder.Collapse(results[0].Tokens, blank)
	want := []int32{tokenC, tokenK, tokenT}
	if !equalTokens(collapsed, want) {
		t.Fatalf("top-1 collapsed = %v, want %v (CKT)", collapsed, want)
	}
}

// TestGoldenBeamCallbackZeroLM exercises the null-LM equivalence law end to
// end: a callback LM that always returns a delta of 0 must produce the same
// top-1 as the null adapter, regardless of LMWeight.
func TestGoldenBeamCallbackZeroLM(t *testing.T) {
	m := loadFixtureMatrix(t)
	zeroModel := lm.NewCallbackModel(
		func() lm.State { return nil },
		func(state lm.State, token int32) (lm.State, float64, error) { return state, 0, nil },
		func(state lm.State) (lm.State, float64, error) { return state, 0, nil },
	)
	results, err := decoder.BeamSearch(m, int(blank), zeroModel, defaultOpts())
	if err != nil {
		t.Fatalf("BeamSearch: %v", err)
	}
	collapsed := decoder.Collapse(results[0].Tokens, blank)
	want := []int32{tokenC, tokenK, tokenT}
	if !equalTokens(collapsed, want) {
		t.Fatalf("top-1 collapsed = %v, want %v (CKT)", collapsed, want)
	}
}

// TestGoldenBeamNGramLM reproduces an LM-correction scenario: the
// n-gram model's training text only ever saw "C A T", so it overwhelms the
// 0.01-nat acoustic edge K held over A and the top-1 transcript becomes
// "CAT" instead of the acoustically-favored but linguistically unseen "CKT".
func TestGoldenBeamNGramLM(t *testing.T) {
	m := loadFixtureMatrix(t)
	vocab := loadVocab(t, filepath.Join("..", "testdata", "vocab.txt"))
	model, err := lm.NewNGramModel(filepath.Join("..", "testdata", "overfit.arpa"), lm.NGramModelOptions{
		Vocab: vocab,
	})
	if err != nil {
		t.Fatalf("NewNGramModel: %v", err)
	}

	results, err := decoder.BeamSearch(m, int(blank), model, defaultOpts())
	if err != nil {
		t.Fatalf("BeamSearch: %v", err)
	}
	collapsed := decoder.Collapse(results[0].Tokens, blank)
	want := []int32{tokenC, tokenA, tokenT}
	if !equalTokens(collapsed, want) {
		t.Fatalf("top-1 collapsed = %v, want %v (CAT)", collapsed, want)
	}
}

// TestGoldenEmptyInput reproduces the T=0 scenario: a single result with an
// empty token sequence and a score equal to lm_weight times the LM's
// end-of-sequence delta from the start state. The n-gram model's start
// context "<s>" has no direct bigram to "</s>", so this also exercises the
// backoff path through the unigram table.
func TestGoldenEmptyInput(t *testing.T) {
	vocab := loadVocab(t, filepath.Join("..", "testdata", "vocab.txt"))
	model, err := lm.NewNGramModel(filepath.Join("..", "testdata", "overfit.arpa"), lm.NGramModelOptions{
		Vocab: vocab,
	})
	if err != nil {
		t.Fatalf("NewNGramModel: %v", err)
	}

	empty, err := matrix.New(nil, 0, 5)
	if err != nil {
		t.Fatalf("matrix.New: %v", err)
	}

	opts := defaultOpts()
	results, err := decoder.BeamSearch(empty, int(blank), model, opts)
	if err != nil {
		t.Fatalf("BeamSearch: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if len(results[0].Tokens) != 0 {
		t.Fatalf("tokens = %v, want empty", results[0].Tokens)
	}

	const ln10 = 2.302585092994046
	wantDelta := -0.3*ln10 + -1.0*ln10 // backoff(<s>) + unigram(</s>)
	wantScore := opts.LMWeight * wantDelta
	if diff := results[0].Score - wantScore; math.Abs(diff) > 1e-9 {
		t.Fatalf("score = %v, want %v", results[0].Score, wantScore)
	}
}

// TestGoldenUniformMatrix reproduces the uniform-matrix scenario: greedy
// always picks token 0 (the first column, since argmax only advances on a
// strictly greater score), and the all-blank prefix survives beam search
// with its own score equal to T times the shared per-frame log-score.
func TestGoldenUniformMatrix(t *testing.T) {
	const frames, vocabSize = 4, 3
	const logScore = -0.75
	data := make([]float64, frames*vocabSize)
	for i := range data {
		data[i] = logScore
	}
	m, err := matrix.New(data, frames, vocabSize)
	if err != nil {
		t.Fatalf("matrix.New: %v", err)
	}

	greedyResults, err := decoder.Greedy(m)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	for t_, tok := range greedyResults[0].Tokens {
		if tok != 0 {
			t.Fatalf("frame %d: greedy token = %d, want 0", t_, tok)
		}
	}

	opts := defaultOpts()
	opts.BeamSize = vocabSize + 5
	results, err := decoder.BeamSearch(m, vocabSize-1, lm.NewNullModel(), opts)
	if err != nil {
		t.Fatalf("BeamSearch: %v", err)
	}

	wantScore := float64(frames) * logScore
	var foundEmpty bool
	for _, r := range results {
		if len(r.Tokens) == 0 {
			foundEmpty = true
			if diff := r.Score - wantScore; math.Abs(diff) > 1e-9 {
				t.Fatalf("all-blank prefix score = %v, want %v", r.Score, wantScore)
			}
		}
	}
	if !foundEmpty {
		t.Fatal("expected the all-blank prefix to survive pruning")
	}
}

func equalTokens(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
