package lm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrVocabularyMissing is returned by NGramModel.Score when a decoder
// vocabulary entry has no corresponding word in the language model and the
// adapter was constructed with StrictVocab set. The decoder wraps this as
// DecodeError{Kind: LMVocabularyMissing}; every other adapter error wraps
// as DecodeError{Kind: LMFailure}.
var ErrVocabularyMissing = errors.New("lm: vocabulary entry has no n-gram mapping")

// unknownWordLogProb is the fallback contribution for an out-of-vocabulary
// word when the model has no explicit <unk> unigram entry and strict mode
// is off. It mirrors a conservative but non-fatal unknown-word penalty.
const unknownWordLogProb = -100

const startSymbol = "<s>"
const endSymbol = "</s>"
const unkSymbol = "<unk>"

type ngramEntry struct {
	logProb float64
	backoff float64
}

// NGramModel wraps a parsed ARPA backoff language model behind the Model
// contract, mapping decoder token ids to LM words once at construction.
//
// The ARPA file is opened and parsed once; the resulting tables are
// read-only afterward, so a single *NGramModel may be shared by concurrent
// decoders without locking.
type NGramModel struct {
	maxOrder int
	grams    []map[string]ngramEntry // grams[n] keyed by n space-joined words, 1 <= n <= maxOrder
	vocab    map[int32]string        // decoder token id -> LM word
	strict   bool
}

// ngramState holds the trailing word history (at most maxOrder-1 words)
// used as backoff context for the next Score call.
type ngramState struct {
	history []string
}

// NGramModelOptions configures NGramModel construction.
type NGramModelOptions struct {
	// Vocab maps decoder token id (the index into the non-blank columns of
	// the frame matrix) to the LM's surface word.
	Vocab []string

	// StrictVocab: when true, a vocabulary entry with no known LM word
	// returns ErrVocabularyMissing instead of falling back to the model's
	// unknown-word probability.
	StrictVocab bool
}

// NewNGramModel parses the ARPA file at path and returns an adapter over
// it. The vocabulary mapping from decoder token id to LM word is built and
// cached once here, not on every Score call.
func NewNGramModel(path string, opts NGramModelOptions) (*NGramModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lm: open ARPA file: %w", err)
	}
	defer f.Close()

	grams, maxOrder, err := parseARPA(f)
	if err != nil {
		return nil, fmt.Errorf("lm: parse ARPA file %s: %w", path, err)
	}

	vocab := make(map[int32]string, len(opts.Vocab))
	for id, word := range opts.Vocab {
		vocab[int32(id)] = word
	}

	return &NGramModel{
		maxOrder: maxOrder,
		grams:    grams,
		vocab:    vocab,
		strict:   opts.StrictVocab,
	}, nil
}

func (m *NGramModel) Start() State {
	return ngramState{history: []string{startSymbol}}
}

func (m *NGramModel) Score(state State, token int32) (State, float64, error) {
	st, ok := state.(ngramState)
	if !ok {
		return state, 0, fmt.Errorf("lm: unexpected state type %T", state)
	}

	word, ok := m.vocab[token]
	if !ok {
		if m.strict {
			return state, 0, ErrVocabularyMissing
		}
		word = unkSymbol
	}

	delta := m.logProb(st.history, word)
	next := ngramState{history: appendCapped(st.history, word, m.maxOrder-1)}
	return next, delta, nil
}

func (m *NGramModel) Finish(state State) (State, float64, error) {
	st, ok := state.(ngramState)
	if !ok {
		return state, 0, fmt.Errorf("lm: unexpected state type %T", state)
	}
	delta := m.logProb(st.history, endSymbol)
	return state, delta, nil
}

// logProb returns the backoff log-probability of word following context,
// walking down from the highest matching order as described by the ARPA
// back-off formula: P(w|c) = P_n(w|c) if seen, else backoff(c) * P(w|c[1:]).
func (m *NGramModel) logProb(context []string, word string) float64 {
	n := len(context) + 1
	if n > m.maxOrder {
		context = context[len(context)-(m.maxOrder-1):]
		n = m.maxOrder
	}

	key := joinKey(context, word)
	if e, ok := m.grams[n][key]; ok {
		return e.logProb
	}
	if n == 1 {
		if e, ok := m.grams[1][unkSymbol]; ok {
			return e.logProb
		}
		return unknownWordLogProb
	}

	backoff := 0.0
	if ctxEntry, ok := m.grams[n-1][joinKey(context[:len(context)-1], context[len(context)-1])]; ok {
		backoff = ctxEntry.backoff
	}
	return backoff + m.logProb(context[1:], word)
}

func joinKey(context []string, word string) string {
	if len(context) == 0 {
		return word
	}
	return strings.Join(context, " ") + " " + word
}

func appendCapped(history []string, word string, maxLen int) []string {
	if maxLen <= 0 {
		return nil
	}
	next := make([]string, 0, maxLen)
	next = append(next, history...)
	next = append(next, word)
	if len(next) > maxLen {
		next = next[len(next)-maxLen:]
	}
	return next
}

// parseARPA reads the standard ARPA n-gram text format: a \data\ section
// declaring ngram counts per order, followed by one \N-grams:\ section per
// order listing "logprob word1 ... wordN [backoff]" rows, terminated by
// \end\. Values are given in log10; they are converted to natural log here
// so the rest of the decoder only ever deals in natural-log scores.
func parseARPA(r io.Reader) ([]map[string]ngramEntry, int, error) {
	const ln10 = 2.302585092994046

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	maxOrder := 0
	var grams []map[string]ngramEntry
	currentOrder := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "\\data\\" {
			continue
		}
		if line == "\\end\\" {
			break
		}
		if strings.HasPrefix(line, "ngram ") {
			parts := strings.SplitN(strings.TrimPrefix(line, "ngram "), "=", 2)
			if len(parts) != 2 {
				continue
			}
			order, err := strconv.Atoi(strings.TrimSpace(parts[0]))
			if err != nil {
				continue
			}
			if order > maxOrder {
				maxOrder = order
			}
			continue
		}
		if strings.HasPrefix(line, "\\") && strings.HasSuffix(line, "-grams:") {
			orderStr := strings.TrimSuffix(strings.TrimPrefix(line, "\\"), "-grams:")
			order, err := strconv.Atoi(orderStr)
			if err != nil {
				return nil, 0, fmt.Errorf("malformed section header %q", line)
			}
			currentOrder = order
			continue
		}
		if currentOrder == 0 {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 1+currentOrder {
			continue
		}

		logProb10, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, 0, fmt.Errorf("malformed log-probability %q", fields[0])
		}

		words := fields[1 : 1+currentOrder]
		backoff := 0.0
		if len(fields) > 1+currentOrder {
			if b, err := strconv.ParseFloat(fields[1+currentOrder], 64); err == nil {
				backoff = b * ln10
			}
		}

		for len(grams) <= currentOrder {
			grams = append(grams, nil)
		}
		if grams[currentOrder] == nil {
			grams[currentOrder] = make(map[string]ngramEntry)
		}

		context := words[:len(words)-1]
		key := joinKey(context, words[len(words)-1])
		grams[currentOrder][key] = ngramEntry{
			logProb: logProb10 * ln10,
			backoff: backoff,
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	if maxOrder == 0 {
		maxOrder = len(grams) - 1
	}
	for len(grams) <= maxOrder {
		grams = append(grams, make(map[string]ngramEntry))
	}
	return grams, maxOrder, nil
}
