// Package metrics provides pure data types for the decode metrics system.
// This file contains atom-level type definitions with no behavior.
package metrics

import "time"

// DecodeRecord represents a single beam-search decode execution.
// This is a pure data structure for tracking individual decode calls,
// whether issued from the CLI or the serve-mode HTTP handler.
type DecodeRecord struct {
	// ID is the unique identifier for this decode call
	ID string `json:"id"`

	// LMKind identifies which language-model adapter was attached:
	// "none", "callback", "ngram", or "remote"
	LMKind string `json:"lm_kind"`

	// Status indicates the outcome: "success", "error"
	Status string `json:"status"`

	// StartTime is when the decode call began
	StartTime time.Time `json:"start_time"`

	// EndTime is when the decode call completed
	EndTime time.Time `json:"end_time,omitempty"`

	// Duration is the total decode time
	Duration time.Duration `json:"duration"`

	// FramesProcessed is the number of input frames decoded
	FramesProcessed int `json:"frames_processed"`

	// BeamSize is the configured beam width for this call
	BeamSize int `json:"beam_size"`

	// SurvivingBeams is the number of beams still active at the final frame
	SurvivingBeams int `json:"surviving_beams"`

	// ErrorMsg contains error details if Status is "error"
	ErrorMsg string `json:"error_msg,omitempty"`
}

// SystemStatus represents the overall system health and status.
// This is a pure data structure with no behavior.
type SystemStatus struct {
	// Health indicates the system state: "running", "error", "stopped"
	Health string `json:"health"`

	// Version is the application version string
	Version string `json:"version"`

	// Uptime is the duration since the application started
	Uptime time.Duration `json:"uptime"`

	// LastCheck is the timestamp of the last health check
	LastCheck time.Time `json:"last_check"`
}

// DecodeMetrics represents aggregated decode processing statistics.
// This is a pure data structure with no behavior.
type DecodeMetrics struct {
	// TotalProcessed is the total number of decode calls processed
	TotalProcessed int64 `json:"total_processed"`

	// TotalSuccess is the count of successfully completed decodes
	TotalSuccess int64 `json:"total_success"`

	// TotalErrors is the count of failed decodes
	TotalErrors int64 `json:"total_errors"`

	// ByLMKind contains per-LM-kind statistics
	ByLMKind map[string]*LMKindMetrics `json:"by_lm_kind"`
}

// LMKindMetrics represents statistics for decodes using a specific LM kind.
// This is a pure data structure with no behavior.
type LMKindMetrics struct {
	// Count is the total number of decodes using this LM kind
	Count int64 `json:"count"`

	// SuccessRate is the percentage of successful operations (0-100)
	SuccessRate float64 `json:"success_rate"`

	// AvgDuration is the average decode time for this LM kind
	AvgDuration time.Duration `json:"avg_duration"`
}

// Status constants for DecodeRecord
const (
	DecodeStatusSuccess = "success"
	DecodeStatusError   = "error"
)

// Health constants for SystemStatus
const (
	SystemHealthRunning = "running"
	SystemHealthError   = "error"
	SystemHealthStopped = "stopped"
)

// LM kind constants, mirroring the adapter kinds in internal/ctc/lm.
const (
	LMKindNone     = "none"
	LMKindCallback = "callback"
	LMKindNGram    = "ngram"
	LMKindRemote   = "remote"
)
