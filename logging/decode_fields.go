package logging

import (
	"time"

	"go.uber.org/zap"
)

// DecodeFields builds the common zap.Field set logged around a decode call:
// the beam-search configuration and outcome, without the full DecodeMetrics
// object. Use this for one-line request logs; use zap.Object("decode", ...)
// with DecodeMetrics when the full breakdown is worth a nested object.
func DecodeFields(beamSize int, lmWeight float64, framesProcessed int) []zap.Field {
	return []zap.Field{
		zap.Int("beam_size", beamSize),
		zap.Float64("lm_weight", lmWeight),
		zap.Int("frames_processed", framesProcessed),
	}
}

// TimingFields builds a single duration field, named consistently across
// decode, LM-load, and matrix-load log sites.
func TimingFields(name string, d time.Duration) []zap.Field {
	return []zap.Field{
		zap.Int64(name+"_ms", d.Milliseconds()),
	}
}

// LMFields builds the zap.Field set logged when a language model is
// attached to a decode: its kind (null, callback, n-gram, remote) and, for
// n-gram models, the order and vocabulary size.
func LMFields(kind string, order int, vocabSize int) []zap.Field {
	fields := []zap.Field{zap.String("lm_kind", kind)}
	if order > 0 {
		fields = append(fields, zap.Int("lm_order", order))
	}
	if vocabSize > 0 {
		fields = append(fields, zap.Int("lm_vocab_size", vocabSize))
	}
	return fields
}
