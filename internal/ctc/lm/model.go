// Package lm defines the language-model adapter contract the beam search
// decoder scores every prefix extension against, plus the null, callback,
// n-gram, and remote concrete adapters.
package lm

// State is an opaque handle an adapter attaches to a beam. The decoder
// never inspects it; it only threads it through Start, Score, and Finish.
// Adapters whose internal state is naturally reference-shared (e.g. an
// n-gram backoff context) should carry that sharing inside the State value
// rather than exposing it to the decoder.
type State interface{}

// Model is the capability set every LM adapter implements. All three
// methods are assumed total: an adapter that cannot produce a score must
// return an error rather than a sentinel value, and the decoder wraps that
// error as a DecodeError of kind LMFailure.
type Model interface {
	// Start returns the initial state, called once per decode.
	Start() State

	// Score returns the state after emitting token and the LM's log-probability
	// contribution for that emission. The decoder multiplies the returned
	// delta by Options.LMWeight before adding it to the acoustic score.
	Score(state State, token int32) (State, float64, error)

	// Finish returns the end-of-sequence log-probability contribution,
	// applied once per surviving beam after the last frame.
	Finish(state State) (State, float64, error)
}
