package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// DecodeMetrics captures the shape of one beam-search decode call for
// structured logging. It implements zapcore.ObjectMarshaler so it can be
// attached to a log entry with zap.Object("decode", metrics) instead of
// being exploded into loose fields at every call site.
type DecodeMetrics struct {
	BeamSize        int           `json:"beam_size"`
	FramesProcessed int           `json:"frames_processed"`
	SurvivingBeams  int           `json:"surviving_beams"`
	LMWeight        float64       `json:"lm_weight"`
	Duration        time.Duration `json:"duration"`
	FramesPerSecond float64       `json:"frames_per_second"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (m DecodeMetrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("beam_size", m.BeamSize)
	enc.AddInt("frames_processed", m.FramesProcessed)
	enc.AddInt("surviving_beams", m.SurvivingBeams)
	enc.AddFloat64("lm_weight", m.LMWeight)
	enc.AddInt64("duration_ms", m.Duration.Milliseconds())
	enc.AddFloat64("frames_per_second", m.FramesPerSecond)
	return nil
}
