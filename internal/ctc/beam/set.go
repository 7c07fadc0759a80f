package beam

import (
	"math"
	"sort"

	"ctcbeam/internal/ctc/logadd"
)

// Set is a map-backed collection of Entry values keyed by their sequence,
// so extending two different beams into the same merged sequence within a
// frame combines their PB/PNB mass instead of keeping duplicate entries.
type Set struct {
	entries map[string]*Entry
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{entries: make(map[string]*Entry)}
}

// Get returns the entry for seq and whether it exists.
func (s *Set) Get(seq []int32) (Entry, bool) {
	e, ok := s.entries[SeqKey(seq)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// GetOrInit returns the entry for seq, creating one with PB and PNB set to
// -Inf if it does not already exist. lmState and lmScore seed a freshly
// created entry only; they are ignored if seq is already present.
func (s *Set) GetOrInit(seq []int32, lmState interface{}, lmScore float64) *Entry {
	key := SeqKey(seq)
	e, ok := s.entries[key]
	if ok {
		return e
	}
	cp := make([]int32, len(seq))
	copy(cp, seq)
	e = &Entry{Seq: cp, PB: logadd.NegInf, PNB: logadd.NegInf, LMState: lmState, LMScore: lmScore}
	s.entries[key] = e
	return e
}

// AddPB merges delta into the blank-ending mass of the entry for seq.
func (s *Set) AddPB(seq []int32, lmState interface{}, lmScore, delta float64) {
	e := s.GetOrInit(seq, lmState, lmScore)
	e.PB = logadd.Add(e.PB, delta)
}

// AddPNB merges delta into the non-blank-ending mass of the entry for seq.
func (s *Set) AddPNB(seq []int32, lmState interface{}, lmScore, delta float64) {
	e := s.GetOrInit(seq, lmState, lmScore)
	e.PNB = logadd.Add(e.PNB, delta)
}

// Len returns the number of distinct sequences currently tracked.
func (s *Set) Len() int {
	return len(s.entries)
}

// Entries returns a snapshot slice of the set's entries in no particular
// order; callers that need a deterministic order should sort it themselves
// (Top does this for the common case of ranking by score).
func (s *Set) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// Top returns the n highest-scoring entries, sorted by descending score and
// then by ascending sequence key to break ties deterministically.
func (s *Set) Top(n int) []Entry {
	all := s.Entries()
	sort.Slice(all, func(i, j int) bool {
		si, sj := all[i].Score(), all[j].Score()
		if si != sj {
			return si > sj
		}
		return all[i].Key() < all[j].Key()
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Prune discards every entry whose score is more than threshold below the
// best score currently in the set, then keeps only the top beamSize of what
// remains. It returns a new Set; the receiver is left unmodified.
func Prune(entries []Entry, beamSize int, threshold float64) []Entry {
	if len(entries) == 0 {
		return entries
	}
	best := entries[0].Score()
	for _, e := range entries[1:] {
		if s := e.Score(); s > best {
			best = s
		}
	}

	var kept []Entry
	if math.IsInf(best, -1) {
		// Every entry is -Inf (unnormalised input with no mass on any
		// frame seen so far): best-e.Score() is NaN for all of them, which
		// would otherwise discard the whole beam. Keep everything and let
		// beamSize trim it below.
		kept = entries
	} else {
		kept = entries[:0:0]
		for _, e := range entries {
			if best-e.Score() <= threshold {
				kept = append(kept, e)
			}
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		si, sj := kept[i].Score(), kept[j].Score()
		if si != sj {
			return si > sj
		}
		return kept[i].Key() < kept[j].Key()
	})
	if beamSize >= 0 && len(kept) > beamSize {
		kept = kept[:beamSize]
	}
	return kept
}
