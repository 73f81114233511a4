// Package errors provides the error taxonomy for the matching service.
//
// The taxonomy mirrors how failures are handled: input errors fail a request
// immediately, lookup errors are recovered per strategy, infrastructure
// errors surface to the caller with no result, and audit errors are warnings
// only. Errors carry a category, a code, optional context and a suggestion,
// and a stack trace for debugging.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category represents different categories of errors
type Category string

const (
	// CategoryInput covers billing records that are missing or structurally
	// unusable. The request fails immediately.
	CategoryInput Category = "input"

	// CategoryLookup covers a single strategy's store call failing. The
	// strategy contributes zero candidates and the request proceeds.
	CategoryLookup Category = "lookup"

	// CategoryInfrastructure covers the store being unreachable or the
	// request deadline expiring. No result is produced.
	CategoryInfrastructure Category = "infrastructure"

	// CategoryAudit covers audit-log write failures. Warning only.
	CategoryAudit Category = "audit"

	// CategoryConfiguration covers invalid service configuration.
	CategoryConfiguration Category = "configuration"

	// CategoryParse covers billing-file parsing failures in the CLI path.
	CategoryParse Category = "parse"

	// CategoryInternal covers unexpected internal failures.
	CategoryInternal Category = "internal"
)

// Code represents specific error codes within categories
type Code string

const (
	// Input errors
	CodeMissingRecord Code = "missing_record"
	CodeInvalidRecord Code = "invalid_record"

	// Lookup errors
	CodeLookupFailed   Code = "lookup_failed"
	CodeMalformedQuery Code = "malformed_query"

	// Infrastructure errors
	CodeStoreUnreachable Code = "store_unreachable"
	CodeDeadlineExceeded Code = "deadline_exceeded"

	// Audit errors
	CodeAuditWriteFailed Code = "audit_write_failed"

	// Configuration errors
	CodeInvalidConfig Code = "invalid_config"
	CodeMissingConfig Code = "missing_config"

	// Parse errors
	CodeInvalidFormat Code = "invalid_format"
	CodeMissingColumn Code = "missing_column"
	CodeInvalidData   Code = "invalid_data"

	// Internal errors
	CodeUnexpectedError Code = "unexpected_error"
)

// MatchError is the base error type for all application errors
type MatchError struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *MatchError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *MatchError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate CLI exit code for the error
func (e *MatchError) GetExitCode() int {
	switch e.Category {
	case CategoryInput, CategoryParse:
		return 2
	case CategoryConfiguration:
		return 3
	case CategoryInfrastructure:
		return 4
	case CategoryLookup, CategoryAudit, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *MatchError) WithContext(key string, value interface{}) *MatchError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *MatchError) WithSuggestion(suggestion string) *MatchError {
	e.Suggestion = suggestion
	return e
}

// New creates a new MatchError
func New(category Category, code Code, message string) *MatchError {
	return &MatchError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with MatchError context
func Wrap(err error, category Category, code Code, message string) *MatchError {
	if err == nil {
		return nil
	}

	return &MatchError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// InputError creates an error for a missing or structurally unusable
// billing record.
func InputError(code Code, detail string, err error) *MatchError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingRecord:
		message = "billing record is missing"
		suggestion = "supply a billing record with at least one populated field"
	case CodeInvalidRecord:
		message = fmt.Sprintf("billing record is unusable: %s", detail)
		suggestion = "check the invoice line for malformed fields"
	default:
		message = fmt.Sprintf("input error: %s", detail)
		suggestion = "check the billing record and try again"
	}

	result := wrapOrNew(err, CategoryInput, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("detail", detail)
}

// LookupError creates an error for a single strategy's failed store call.
// These errors are recovered locally; the strategy contributes no candidates.
func LookupError(strategy, field string, err error) *MatchError {
	message := fmt.Sprintf("lookup via %s on field %s failed", strategy, field)

	result := wrapOrNew(err, CategoryLookup, CodeLookupFailed, message)
	return result.
		WithSuggestion("the match proceeds without this technique; check store health if persistent").
		WithContext("strategy", strategy).
		WithContext("field", field)
}

// InfrastructureError creates an error for a store that is fully unreachable
// or an expired request deadline. These fail the whole request.
func InfrastructureError(code Code, operation string, err error) *MatchError {
	var message string
	var suggestion string

	switch code {
	case CodeStoreUnreachable:
		message = fmt.Sprintf("record store unreachable during %s", operation)
		suggestion = "check store connectivity and retry"
	case CodeDeadlineExceeded:
		message = fmt.Sprintf("deadline exceeded during %s", operation)
		suggestion = "increase the request timeout or reduce batch size"
	default:
		message = fmt.Sprintf("infrastructure error during %s", operation)
		suggestion = "check service health and retry"
	}

	result := wrapOrNew(err, CategoryInfrastructure, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// AuditError creates an error for a failed audit-log write. Recovered
// locally; the match result is still returned to the caller.
func AuditError(sink string, err error) *MatchError {
	message := fmt.Sprintf("audit write to %s failed", sink)

	result := wrapOrNew(err, CategoryAudit, CodeAuditWriteFailed, message)
	return result.
		WithSuggestion("the match result is unaffected; check the audit sink").
		WithContext("sink", sink)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code Code, setting string, value interface{}, err error) *MatchError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	result := wrapOrNew(err, CategoryConfiguration, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ParseError creates a billing-file parsing error
func ParseError(code Code, file string, line int, column string, value string, err error) *MatchError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in file %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "check the data format and ensure it matches the expected structure"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in file %s", column, file)
		suggestion = "verify the file has all required columns with correct headers"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in file %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "correct the data format or remove the invalid entry"
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	result := wrapOrNew(err, CategoryParse, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *MatchError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	result := wrapOrNew(err, CategoryInternal, CodeUnexpectedError, message)
	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

func wrapOrNew(err error, category Category, code Code, message string) *MatchError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// Summary aggregates multiple errors, used by the CLI to report per-line
// parse failures without aborting the batch.
type Summary struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"by_category"`
	ByCode     map[Code]int     `json:"by_code"`
	Errors     []*MatchError    `json:"errors"`
}

// NewSummary creates a new error summary
func NewSummary(errs []*MatchError) *Summary {
	summary := &Summary{
		Total:      len(errs),
		ByCategory: make(map[Category]int),
		ByCode:     make(map[Code]int),
		Errors:     errs,
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

// Error returns a formatted error message for the summary
func (s *Summary) Error() string {
	if s.Total == 0 {
		return "no errors"
	}

	if s.Total == 1 {
		return s.Errors[0].Error()
	}

	var categories []string
	for category, count := range s.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", s.Total, strings.Join(categories, ", "))
}

// HasCategory checks if the summary contains errors of the given category
func (s *Summary) HasCategory(category Category) bool {
	return s.ByCategory[category] > 0
}

// GetExitCode returns the highest priority exit code from all errors
func (s *Summary) GetExitCode() int {
	if s.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range s.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// Utility functions

// IsMatchError checks if an error is a MatchError
func IsMatchError(err error) bool {
	_, ok := err.(*MatchError)
	return ok
}

// AsMatchError extracts a MatchError from an error chain
func AsMatchError(err error) (*MatchError, bool) {
	var matchErr *MatchError
	if errors.As(err, &matchErr) {
		return matchErr, true
	}
	return nil, false
}

// IsCategory reports whether err is a MatchError of the given category.
func IsCategory(err error, category Category) bool {
	if matchErr, ok := AsMatchError(err); ok {
		return matchErr.Category == category
	}
	return false
}
