package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// MissingInputCard indicates a lower-level datacard does not exist for a mass point
	MissingInputCard ErrorCode = "MISSING_INPUT_CARD"
	// EdgeNotFound indicates a rebinning edge has no counterpart in the reference binning
	EdgeNotFound ErrorCode = "EDGE_NOT_FOUND"
	// IntegralMismatch indicates the merged yield differs from the original yield
	IntegralMismatch ErrorCode = "INTEGRAL_MISMATCH"
	// ExternalToolFailure indicates a subprocess returned a non-zero status
	ExternalToolFailure ErrorCode = "EXTERNAL_TOOL_FAILURE"
	// ConfigurationError indicates an unsupported mode, method or era
	ConfigurationError ErrorCode = "CONFIGURATION_ERROR"
	// InvalidHistogram indicates inconsistent edges, contents or errors
	InvalidHistogram ErrorCode = "INVALID_HISTOGRAM"
	// InvalidBinning indicates a degenerate or non-increasing edge list
	InvalidBinning ErrorCode = "INVALID_BINNING"
	// ParseError indicates a file name or flag could not be parsed
	ParseError ErrorCode = "PARSE_ERROR"
	// HistogramNotFound indicates a named histogram is absent from a store
	HistogramNotFound ErrorCode = "HISTOGRAM_NOT_FOUND"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Field       string        `json:"field,omitempty"`
	Description string        `json:"description,omitempty"`
}

// AnaError represents an analysis error with code, message, and suggestions
type AnaError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates an AnaError with the default fixes for its code.
func New(code ErrorCode, message string, cause error) *AnaError {
	return NewAnaError(code, message, cause, GetSuggestedFixes(code))
}

// NewAnaError creates a new AnaError
func NewAnaError(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *AnaError {
	return &AnaError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *AnaError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AnaError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AnaError) WithDetails(details interface{}) *AnaError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first AnaError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var ae *AnaError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	MissingInputCard: {
		{
			Type:        RunCommand,
			Command:     "zastat points --input ${input_dir}",
			Description: "List the mass points that have leaf datacards",
		},
	},
	ExternalToolFailure: {
		{
			Type:        RunCommand,
			Command:     "which combineCards.py",
			Description: "Check that the combine environment is set up (cmsenv)",
		},
	},
	ConfigurationError: {
		{
			Type:        EditConfig,
			Field:       "analysis.mode",
			Description: "Use one of the supported modes: dnn, mbb, mllbb",
		},
	},
	IntegralMismatch: {
		{
			Type:        EditConfig,
			Field:       "rebin.includeOverflow",
			Description: "Include the overflow bin in the last merged bin",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
