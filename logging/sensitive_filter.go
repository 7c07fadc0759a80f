package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder is the string used to replace sensitive data.
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns contains compiled regex patterns for detecting sensitive
// data that could end up in a log line: the remote LM adapter's OpenAI-
// shaped API key, the HTTP bearer/API-key header serve mode accepts on
// /decode, and generic key=value secret assignments that could leak from a
// decode profile or config dump.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9_-]{20,})`),        // RemoteModel's go-openai API key
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`), // Authorization: Bearer ... headers

	regexp.MustCompile(`(?i)(password\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(secret\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(api_key\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(apikey\s*[:=]\s*[^\s,;]{8,})`),
}

// sensitiveEnvVarPrefixes are environment variable name prefixes that
// indicate sensitive data, matched against ctcbeam's own config surface
// (CTCBEAM_API_KEY_HASH, a remote LM API key) plus generic fallbacks.
var sensitiveEnvVarPrefixes = []string{
	"CTCBEAM_API_KEY_HASH",
	"CTCBEAM_REMOTE_LM_API_KEY",
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"API_KEY",
	"APIKEY",
}

// RedactSensitiveData scans a string value and redacts any detected
// sensitive data. Pure function: takes a string, returns a sanitized one.
//
// Example:
//
//	RedactSensitiveData("remote LM key is sk-abc123def456...")
//	// "remote LM key is [REDACTED]"
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}

	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// RedactField redacts a field value if the field name indicates sensitive
// data, for structured logging where field names are known ahead of time.
//
// Example:
//
//	RedactField("CTCBEAM_API_KEY_HASH", "$2a$12$...")
//	// "[REDACTED]"
//
//	RedactField("matrix_path", "testdata/matrix.txt")
//	// "testdata/matrix.txt" (unchanged)
func RedactField(fieldName, fieldValue string) string {
	upperName := strings.ToUpper(fieldName)

	for _, prefix := range sensitiveEnvVarPrefixes {
		if strings.Contains(upperName, prefix) {
			return RedactedPlaceholder
		}
	}

	return RedactSensitiveData(fieldValue)
}

// IsSensitiveField returns true if the field name indicates sensitive data.
func IsSensitiveField(fieldName string) bool {
	upperName := strings.ToUpper(fieldName)

	for _, prefix := range sensitiveEnvVarPrefixes {
		if strings.Contains(upperName, prefix) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData returns true if the value contains any sensitive
// data patterns.
func ContainsSensitiveData(value string) bool {
	if value == "" {
		return false
	}

	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
