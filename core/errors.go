package core

import (
	"fmt"
)

// ConfigError represents a process-configuration or CLI-input error with
// actionable instructions. It is distinct from decoder.DecodeError: a
// ConfigError means the CLI/service couldn't even get to a valid decode
// call (bad matrix file, unwritable DB path, malformed vocab); a
// DecodeError means the decode call itself was rejected or failed.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors.
const (
	ErrCodeMatrixNotFound  = "MATRIX_NOT_FOUND"
	ErrCodeMatrixMalformed = "MATRIX_MALFORMED"
	ErrCodeVocabNotFound   = "VOCAB_NOT_FOUND"
	ErrCodeVocabMismatch   = "VOCAB_MISMATCH"
	ErrCodeARPANotFound    = "ARPA_NOT_FOUND"
	ErrCodeDBUnwritable    = "DB_UNWRITABLE"
	ErrCodeMissingConfig   = "MISSING_CONFIG"
)

// ErrMatrixNotFound returns an error for a missing frame-matrix input file.
func ErrMatrixNotFound(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMatrixNotFound,
		Message: fmt.Sprintf("frame matrix file not found: %s", path),
		Action:  "pass --matrix pointing at a T x V log-probability dump",
	}
}

// ErrMatrixMalformed returns an error for a frame-matrix file that can't be
// parsed as a rectangular T x V table of numbers.
func ErrMatrixMalformed(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMatrixMalformed,
		Message: fmt.Sprintf("frame matrix file %s is malformed: %s", path, reason),
		Action:  "each row must have the same number of whitespace-separated log-score columns",
	}
}

// ErrVocabNotFound returns an error for a missing vocabulary file.
func ErrVocabNotFound(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeVocabNotFound,
		Message: fmt.Sprintf("vocabulary file not found: %s", path),
		Action:  "pass --vocab pointing at a newline-delimited token list (one entry per non-blank column)",
	}
}

// ErrVocabMismatch returns an error when the vocabulary length doesn't
// agree with the matrix width, surfaced at the CLI boundary before a
// decoder.Options is even built.
func ErrVocabMismatch(vocabLen, v int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeVocabMismatch,
		Message: fmt.Sprintf("vocabulary has %d entries but matrix has %d columns (expected %d = vocab + blank)", vocabLen, v, vocabLen+1),
		Action:  "the vocabulary file must list exactly V-1 tokens; the blank column is implicit",
	}
}

// ErrARPANotFound returns an error for a missing ARPA language-model file.
func ErrARPANotFound(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeARPANotFound,
		Message: fmt.Sprintf("ARPA language model file not found: %s", path),
		Action:  "pass --lm pointing at a valid ARPA-format n-gram file",
	}
}

// ErrDBUnwritable returns an error when the decode-history database path
// cannot be created or opened.
func ErrDBUnwritable(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDBUnwritable,
		Message: fmt.Sprintf("cannot open database at %s: %s", path, reason),
		Action:  "set CTCBEAM_DB_PATH to a writable location",
	}
}

// ErrMissingConfig returns an error for missing required configuration.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("missing required configuration: %s", varName),
		Action:  fmt.Sprintf("set %s", varName),
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so.
func IsConfigError(err error) (*ConfigError, bool) {
	if configErr, ok := err.(*ConfigError); ok {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError.
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
