package decoder

import (
	"sort"

	"ctcbeam/internal/ctc/beam"
	"ctcbeam/internal/ctc/lm"
	"ctcbeam/internal/ctc/logadd"
	"ctcbeam/internal/ctc/matrix"
)

// BeamSearch runs the time-synchronous prefix beam search described by
// §4.4: per frame, every surviving beam is extended by blank, by a repeat
// of its trailing token, and by every other top-BeamSizeToken candidate
// token, with LM scoring applied to every non-blank extension that is not
// a fold-in-place repeat. Pruning keeps at most opts.BeamSize entries
// within opts.BeamThreshold of the best score.
func BeamSearch(m *matrix.Matrix, blank int, model lm.Model, opts Options) (Results, error) {
	if model == nil {
		model = lm.NewNullModel()
	}
	if err := opts.Validate(blank, m.V()); err != nil {
		return nil, err
	}

	if m.T() == 0 {
		return finalizeOnly(model, opts)
	}

	entries := []beam.Entry{{
		Seq:     nil,
		PB:      0,
		PNB:     logadd.NegInf,
		LMState: model.Start(),
	}}

	for t := 0; t < m.T(); t++ {
		row := m.Row(t)
		candidates := topKNonBlank(row, opts.BeamSizeToken, blank)

		curr := beam.NewSet()
		for _, e := range entries {
			if err := expandBlank(curr, e, row[blank]); err != nil {
				return nil, err
			}
			for _, v := range candidates {
				if err := expandToken(curr, e, int32(v), row[v], model, opts.LMWeight); err != nil {
					return nil, err
				}
			}
		}

		entries = beam.Prune(curr.Entries(), opts.BeamSize, opts.BeamThreshold)
	}

	return finalize(entries, model, opts.LMWeight)
}

func expandBlank(curr *beam.Set, e beam.Entry, blankScore float64) error {
	curr.AddPB(e.Seq, e.LMState, e.LMScore, logadd.Add(e.PB, e.PNB)+blankScore)
	return nil
}

func expandToken(curr *beam.Set, e beam.Entry, v int32, tokenScore float64, model lm.Model, lmWeight float64) error {
	isRepeat := len(e.Seq) > 0 && e.Seq[len(e.Seq)-1] == v

	if isRepeat {
		// Case 1: fold the repeat onto the existing tail (no blank
		// separator between emissions). LM state and score untouched.
		curr.AddPNB(e.Seq, e.LMState, e.LMScore, e.PNB+tokenScore)

		// Case 2: a blank separated the two emissions, so this is a
		// genuine second occurrence of v extending the prefix.
		nextState, delta, err := model.Score(e.LMState, v)
		if err != nil {
			return wrapLMError(err, "scoring repeat extension")
		}
		extSeq := appendToken(e.Seq, v)
		curr.AddPNB(extSeq, nextState, e.LMScore+delta, e.PB+tokenScore+lmWeight*delta)
		return nil
	}

	nextState, delta, err := model.Score(e.LMState, v)
	if err != nil {
		return wrapLMError(err, "scoring token extension")
	}
	extSeq := appendToken(e.Seq, v)
	curr.AddPNB(extSeq, nextState, e.LMScore+delta, logadd.Add(e.PB, e.PNB)+tokenScore+lmWeight*delta)
	return nil
}

func appendToken(seq []int32, v int32) []int32 {
	out := make([]int32, len(seq)+1)
	copy(out, seq)
	out[len(seq)] = v
	return out
}

func finalize(entries []beam.Entry, model lm.Model, lmWeight float64) (Results, error) {
	results := make(Results, 0, len(entries))
	for _, e := range entries {
		_, delta, err := model.Finish(e.LMState)
		if err != nil {
			return nil, wrapLMError(err, "scoring end of sequence")
		}
		results = append(results, Result{
			Tokens:  e.Seq,
			Score:   e.Score() + lmWeight*delta,
			LMScore: e.LMScore + delta,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

func finalizeOnly(model lm.Model, opts Options) (Results, error) {
	_, delta, err := model.Finish(model.Start())
	if err != nil {
		return nil, wrapLMError(err, "scoring end of sequence")
	}
	return Results{{Tokens: nil, Score: opts.LMWeight * delta, LMScore: delta}}, nil
}

// topKNonBlank returns up to k non-blank column indices of row, ranked by
// descending score with ties broken by ascending index. The blank column
// is excluded here because every beam always receives a blank extension
// regardless of its rank; this set supplies only the repeat/other-token
// candidates.
func topKNonBlank(row []float64, k, blank int) []int {
	type candidate struct {
		idx   int
		score float64
	}
	candidates := make([]candidate, 0, len(row))
	for i, s := range row {
		if i == blank {
			continue
		}
		candidates = append(candidates, candidate{i, s})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].idx < candidates[j].idx
	})
	if k >= 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.idx
	}
	return out
}
