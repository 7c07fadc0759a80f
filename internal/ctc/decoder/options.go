package decoder

// Options configures a beam search decode. Zero-value Options is not
// valid; use DefaultOptions as a base and override individual fields.
type Options struct {
	// BeamSize caps the number of entries kept after per-frame pruning.
	BeamSize int

	// BeamSizeToken caps the number of candidate tokens considered for
	// expansion at each frame, chosen by top log-score with the blank
	// index always implicitly included regardless of its rank.
	BeamSizeToken int

	// BeamThreshold is the log-score window below the best entry's score;
	// entries falling further behind are dropped during pruning.
	BeamThreshold float64

	// LMWeight scales every LM score delta before it is added to the
	// acoustic score.
	LMWeight float64
}

// DefaultOptions mirrors the reference decoder's defaults.
func DefaultOptions() Options {
	return Options{
		BeamSize:      100,
		BeamSizeToken: 1000,
		BeamThreshold: 1000,
		LMWeight:      0.5,
	}
}

// Validate reports an InvalidOption error for any out-of-range field.
// blank and v come from the caller's matrix so blank-range validation can
// happen in the same place as the other option checks.
func (o Options) Validate(blank, v int) error {
	if o.BeamSize <= 0 {
		return newError(InvalidOption, "beam_size must be > 0, got %d", o.BeamSize)
	}
	if o.BeamThreshold < 0 {
		return newError(InvalidOption, "beam_threshold must be >= 0, got %v", o.BeamThreshold)
	}
	if blank < 0 || blank >= v {
		return newError(InvalidOption, "blank index %d out of range [0, %d)", blank, v)
	}
	return nil
}
