// Package beam holds the prefix-beam bookkeeping the decoder mutates one
// frame at a time: each Entry tracks a token sequence split into the
// probability mass ending in blank versus ending in a repeated non-blank,
// and the Set merges entries that collapse to the same sequence.
package beam

import (
	"strconv"
	"strings"

	"ctcbeam/internal/ctc/lm"
	"ctcbeam/internal/ctc/logadd"
)

// Entry is one candidate transcript prefix surviving into the current
// frame. PB and PNB are log-probabilities: PB is the mass of paths ending
// in blank at this frame, PNB the mass of paths ending in a non-blank that
// would merge with a repeat of the same token. Score() is their log-sum.
type Entry struct {
	Seq     []int32
	PB      float64
	PNB     float64
	LMState lm.State
	LMScore float64 // accumulated LM log-probability for Seq, undiscounted by LMWeight
}

// Score returns the entry's total log-probability, PB and PNB merged.
func (e Entry) Score() float64 {
	return logadd.Add(e.PB, e.PNB)
}

// Key returns a value suitable for use as a map key uniquely identifying
// Seq. Sequences are typically short (beam widths keep surviving prefixes
// compact), so a joined string key is cheap relative to the per-frame
// score arithmetic it supports.
func (e Entry) Key() string {
	return SeqKey(e.Seq)
}

// SeqKey builds the same key Entry.Key would for an arbitrary sequence,
// letting callers look up or construct an Entry before they have one.
func SeqKey(seq []int32) string {
	var b strings.Builder
	for i, t := range seq {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(int64(t), 10))
	}
	return b.String()
}

// Clone returns a copy of e whose Seq slice does not alias e's, so the
// caller can extend it without mutating the original beam.
func (e Entry) Clone() Entry {
	seq := make([]int32, len(e.Seq))
	copy(seq, e.Seq)
	return Entry{Seq: seq, PB: e.PB, PNB: e.PNB, LMState: e.LMState, LMScore: e.LMScore}
}

// Extended returns a copy of e with token appended to Seq, PB and PNB reset
// to -Inf (the caller fills in whichever one applies), and the given LM
// state and accumulated score attached.
func (e Entry) Extended(token int32, lmState lm.State, lmScore float64) Entry {
	seq := make([]int32, len(e.Seq)+1)
	copy(seq, e.Seq)
	seq[len(e.Seq)] = token
	return Entry{Seq: seq, PB: logadd.NegInf, PNB: logadd.NegInf, LMState: lmState, LMScore: lmScore}
}
