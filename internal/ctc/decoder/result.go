package decoder

// Result is one decoded token sequence and its log-score. LMScore is the
// raw, undiscounted LM log-probability accumulated for Tokens (including
// the end-of-sequence delta), separated out from Score so a caller can
// see how much of the final ranking came from the acoustic model versus
// the language model.
type Result struct {
	Tokens  []int32
	Score   float64
	LMScore float64
}

// Results is an ordered list of Result, sorted by descending Score.
type Results []Result
