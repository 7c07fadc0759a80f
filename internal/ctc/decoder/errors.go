package decoder

import "fmt"

// ErrorKind classifies a decode failure. Callers that need to react
// differently to different failure classes should switch on this rather
// than parsing Error's message.
type ErrorKind int

const (
	// InvalidOption means a DecoderOptions field (or the blank index) was
	// out of range: beam_size <= 0, negative beam_threshold, or blank not
	// in [0, V).
	InvalidOption ErrorKind = iota

	// DimensionMismatch means the supplied matrix dimensions and
	// vocabulary length are inconsistent.
	DimensionMismatch

	// LMFailure means the LM adapter returned an error from Score or
	// Finish.
	LMFailure

	// LMVocabularyMissing means the n-gram adapter could not map a
	// vocabulary entry to a known LM word under strict mode.
	LMVocabularyMissing
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidOption:
		return "InvalidOption"
	case DimensionMismatch:
		return "DimensionMismatch"
	case LMFailure:
		return "LMFailure"
	case LMVocabularyMissing:
		return "LMVocabularyMissing"
	default:
		return "Unknown"
	}
}

// Error is the error type every decode failure surfaces as. Nothing is
// retried internally; a failed decode returns an Error and no partial
// result.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped cause, set when Kind is LMFailure
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapLMError(err error, context string) *Error {
	return &Error{Kind: LMFailure, Message: context, Err: err}
}
