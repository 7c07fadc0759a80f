package decoder

import (
	"math"
	"testing"

	"ctcbeam/internal/ctc/lm"
	"ctcbeam/internal/ctc/matrix"
)

func smallMatrix(t *testing.T) *matrix.Matrix {
	t.Helper()
	// V = 3, blank = 2. Token 0 dominates frame 0 and 2; token 1 dominates
	// frame 1, with blank always a plausible but non-dominant alternative.
	m, err := matrix.New([]float64{
		math.Log(0.7), math.Log(0.2), math.Log(0.1),
		math.Log(0.1), math.Log(0.6), math.Log(0.3),
		math.Log(0.6), math.Log(0.1), math.Log(0.3),
	}, 3, 3)
	if err != nil {
		t.Fatalf("matrix.New: %v", err)
	}
	return m
}

func TestBeamSearch_RejectsInvalidBeamSize(t *testing.T) {
	m := smallMatrix(t)
	opts := DefaultOptions()
	opts.BeamSize = 0
	if _, err := BeamSearch(m, 2, lm.NewNullModel(), opts); err == nil {
		t.Fatal("expected InvalidOption error")
	}
}

func TestBeamSearch_TZeroReturnsSingleEmptyResult(t *testing.T) {
	m, err := matrix.New(nil, 0, 3)
	if err != nil {
		t.Fatalf("matrix.New: %v", err)
	}
	opts := DefaultOptions()
	opts.LMWeight = 0.5

	results, err := BeamSearch(m, 2, lm.NewNullModel(), opts)
	if err != nil {
		t.Fatalf("BeamSearch: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if len(results[0].Tokens) != 0 {
		t.Fatalf("Tokens = %v, want empty", results[0].Tokens)
	}
	if results[0].Score != 0 {
		t.Fatalf("Score = %v, want 0 (null LM finish delta is 0)", results[0].Score)
	}
}

func TestBeamSearch_BlankOnlyVocabularyAlwaysEmptyOutput(t *testing.T) {
	m, err := matrix.New([]float64{0, 0, 0}, 3, 1)
	if err != nil {
		t.Fatalf("matrix.New: %v", err)
	}
	opts := DefaultOptions()

	results, err := BeamSearch(m, 0, lm.NewNullModel(), opts)
	if err != nil {
		t.Fatalf("BeamSearch: %v", err)
	}
	if len(results) != 1 || len(results[0].Tokens) != 0 {
		t.Fatalf("results = %+v, want single empty-token result", results)
	}
}

func TestBeamSearch_NullLMEquivalence(t *testing.T) {
	m := smallMatrix(t)
	opts := DefaultOptions()

	nullResults, err := BeamSearch(m, 2, lm.NewNullModel(), opts)
	if err != nil {
		t.Fatalf("BeamSearch (null): %v", err)
	}

	weighted := opts
	weighted.LMWeight = 0
	fakeLM := lm.NewCallbackModel(nil, func(state lm.State, token int32) (lm.State, float64, error) {
		return state, -5.0, nil // any nonzero delta; weight 0 must cancel it
	}, nil)
	zeroWeightResults, err := BeamSearch(m, 2, fakeLM, weighted)
	if err != nil {
		t.Fatalf("BeamSearch (zero-weight): %v", err)
	}

	if len(nullResults) != len(zeroWeightResults) {
		t.Fatalf("result counts differ: %d vs %d", len(nullResults), len(zeroWeightResults))
	}
	for i := range nullResults {
		if nullResults[i].Score != zeroWeightResults[i].Score {
			t.Fatalf("result %d score differs: %v vs %v", i, nullResults[i].Score, zeroWeightResults[i].Score)
		}
		if !equalTokens(nullResults[i].Tokens, zeroWeightResults[i].Tokens) {
			t.Fatalf("result %d tokens differ: %v vs %v", i, nullResults[i].Tokens, zeroWeightResults[i].Tokens)
		}
	}
}

// TestBeamSearch_LMScoreReflectsRawLMDelta checks Result.LMScore carries
// the undiscounted LM contribution: with a constant per-token LM delta and
// a fixed Finish delta, LMScore for a result with n emitted tokens must
// equal n*delta + finishDelta, independent of LMWeight.
func TestBeamSearch_LMScoreReflectsRawLMDelta(t *testing.T) {
	m := smallMatrix(t)
	const delta = -2.0
	const finishDelta = -0.25
	model := lm.NewCallbackModel(nil,
		func(state lm.State, token int32) (lm.State, float64, error) { return state, delta, nil },
		func(state lm.State) (lm.State, float64, error) { return state, finishDelta, nil },
	)

	opts := DefaultOptions()
	opts.LMWeight = 3.0 // any nonzero weight; LMScore must not scale with it
	results, err := BeamSearch(m, 2, model, opts)
	if err != nil {
		t.Fatalf("BeamSearch: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}

	for _, r := range results {
		// r.Tokens never contains the blank index (2): only non-blank
		// token extensions are appended to a beam's sequence.
		want := float64(len(r.Tokens))*delta + finishDelta
		if math.Abs(r.LMScore-want) > 1e-9 {
			t.Fatalf("tokens=%v LMScore = %v, want %v", r.Tokens, r.LMScore, want)
		}
	}
}

func TestBeamSearch_TopOneScoreAtLeastGreedyScore(t *testing.T) {
	m := smallMatrix(t)
	opts := DefaultOptions()

	beamResults, err := BeamSearch(m, 2, lm.NewNullModel(), opts)
	if err != nil {
		t.Fatalf("BeamSearch: %v", err)
	}
	greedyResults, err := Greedy(m)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}

	if beamResults[0].Score < greedyResults[0].Score-1e-9 {
		t.Fatalf("beam top-1 score %v < greedy score %v", beamResults[0].Score, greedyResults[0].Score)
	}
}

func TestBeamSearch_IncreasingBeamSizeNeverDecreasesTopScore(t *testing.T) {
	m := smallMatrix(t)

	small := DefaultOptions()
	small.BeamSize = 1
	large := DefaultOptions()
	large.BeamSize = 10

	smallResults, err := BeamSearch(m, 2, lm.NewNullModel(), small)
	if err != nil {
		t.Fatalf("BeamSearch (small): %v", err)
	}
	largeResults, err := BeamSearch(m, 2, lm.NewNullModel(), large)
	if err != nil {
		t.Fatalf("BeamSearch (large): %v", err)
	}

	if largeResults[0].Score < smallResults[0].Score-1e-9 {
		t.Fatalf("larger beam_size top score %v < smaller beam_size top score %v", largeResults[0].Score, smallResults[0].Score)
	}
}

func TestBeamSearch_IdempotentAcrossCalls(t *testing.T) {
	m := smallMatrix(t)
	opts := DefaultOptions()

	first, err := BeamSearch(m, 2, lm.NewNullModel(), opts)
	if err != nil {
		t.Fatalf("BeamSearch (first): %v", err)
	}
	second, err := BeamSearch(m, 2, lm.NewNullModel(), opts)
	if err != nil {
		t.Fatalf("BeamSearch (second): %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("result counts differ across calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Score != second[i].Score || !equalTokens(first[i].Tokens, second[i].Tokens) {
			t.Fatalf("result %d differs across calls: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestBeamSearch_ResultsSortedDescendingAndDistinctSequences(t *testing.T) {
	m := smallMatrix(t)
	opts := DefaultOptions()

	results, err := BeamSearch(m, 2, lm.NewNullModel(), opts)
	if err != nil {
		t.Fatalf("BeamSearch: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}

	seen := make(map[string]bool)
	for i, r := range results {
		key := tokensKey(r.Tokens)
		if seen[key] {
			t.Fatalf("duplicate token sequence %v in results", r.Tokens)
		}
		seen[key] = true
		if i > 0 && results[i-1].Score < r.Score {
			t.Fatalf("results not sorted descending at index %d: %v then %v", i, results[i-1].Score, r.Score)
		}
	}
}

func TestBeamSearch_PruningRespectsBeamSizeAndThreshold(t *testing.T) {
	m := smallMatrix(t)
	opts := DefaultOptions()
	opts.BeamSize = 2
	opts.BeamThreshold = 1000

	results, err := BeamSearch(m, 2, lm.NewNullModel(), opts)
	if err != nil {
		t.Fatalf("BeamSearch: %v", err)
	}
	if len(results) > opts.BeamSize {
		t.Fatalf("got %d results, want at most beam_size=%d", len(results), opts.BeamSize)
	}
}

func TestBeamSearch_UniformMatrixGreedyPicksTokenZero(t *testing.T) {
	const t_, v := 4, 3
	data := make([]float64, t_*v)
	logScore := math.Log(1.0 / 3)
	for i := range data {
		data[i] = logScore
	}
	m, err := matrix.New(data, t_, v)
	if err != nil {
		t.Fatalf("matrix.New: %v", err)
	}

	greedyResults, err := Greedy(m)
	if err != nil {
		t.Fatalf("Greedy: %v", err)
	}
	for _, tok := range greedyResults[0].Tokens {
		if tok != 0 {
			t.Fatalf("greedy token = %d, want 0 on a uniform matrix", tok)
		}
	}

	opts := DefaultOptions()
	opts.BeamSize = v
	beamResults, err := BeamSearch(m, v-1, lm.NewNullModel(), opts)
	if err != nil {
		t.Fatalf("BeamSearch: %v", err)
	}

	wantScore := float64(t_) * logScore
	var foundEmpty bool
	for _, r := range beamResults {
		if len(r.Tokens) == 0 {
			foundEmpty = true
			if diff := r.Score - wantScore; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("all-blank prefix score = %v, want %v", r.Score, wantScore)
			}
		}
	}
	if !foundEmpty {
		t.Fatal("expected the all-blank prefix among the surviving beams")
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

func tokensKey(tokens []int32) string {
	b := make([]byte, 0, len(tokens)*2)
	for _, t := range tokens {
		b = append(b, byte(t), ',')
	}
	return string(b)
}
