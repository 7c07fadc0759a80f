package decoder

import "ctcbeam/internal/ctc/matrix"

// Greedy decodes m by taking argmax_v L[t, v] at every frame. The returned
// token sequence has length T exactly, including blanks and repeats; CTC
// collapsing (drop blanks, drop consecutive duplicates) is left to the
// caller. Exactly one Result is returned, its score the sum of per-frame
// maxima.
//
// This is a reference decoder only: it exists to give the beam search
// something to beat, not to be competitive with it.
func Greedy(m *matrix.Matrix) (Results, error) {
	if err := validateMatrix(m); err != nil {
		return nil, err
	}

	tokens := make([]int32, m.T())
	var score float64
	for t := 0; t < m.T(); t++ {
		row := m.Row(t)
		bestV, bestScore := 0, row[0]
		for v := 1; v < len(row); v++ {
			if row[v] > bestScore {
				bestV, bestScore = v, row[v]
			}
		}
		tokens[t] = int32(bestV)
		score += bestScore
	}

	return Results{{Tokens: tokens, Score: score}}, nil
}

func validateMatrix(m *matrix.Matrix) error {
	if m.V() == 0 {
		return newError(DimensionMismatch, "matrix has zero vocabulary columns")
	}
	return nil
}

// Collapse applies the CTC collapse rule to a raw per-frame token
// sequence: consecutive duplicates are merged into one emission, then
// every remaining blank is dropped.
func Collapse(tokens []int32, blank int32) []int32 {
	out := make([]int32, 0, len(tokens))
	var prev int32 = -1
	first := true
	for _, tok := range tokens {
		if !first && tok == prev {
			continue
		}
		first = false
		prev = tok
		if tok != blank {
			out = append(out, tok)
		}
	}
	return out
}
