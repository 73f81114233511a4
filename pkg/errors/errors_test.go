package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestMatchErrorBasics(t *testing.T) {
	err := New(CategoryInput, CodeInvalidRecord, "record is unusable")

	if err.Category != CategoryInput {
		t.Errorf("Category = %s", err.Category)
	}
	if err.Code != CodeInvalidRecord {
		t.Errorf("Code = %s", err.Code)
	}
	if err.Error() != "record is unusable" {
		t.Errorf("Error() = %s", err.Error())
	}
	if err.StackTrace == nil {
		t.Error("expected a stack trace")
	}
}

func TestMatchErrorSuggestionInMessage(t *testing.T) {
	err := New(CategoryInput, CodeInvalidRecord, "record is unusable").
		WithSuggestion("fix the record")

	want := "record is unusable (suggestion: fix the record)"
	if err.Error() != want {
		t.Errorf("Error() = %s, want %s", err.Error(), want)
	}
}

func TestMatchErrorContext(t *testing.T) {
	err := New(CategoryLookup, CodeLookupFailed, "lookup failed").
		WithContext("strategy", "tracking_number").
		WithContext("field", "confirmation.tracking_number")

	if err.Context["strategy"] != "tracking_number" {
		t.Errorf("Context = %v", err.Context)
	}
	if len(err.Context) != 2 {
		t.Errorf("expected 2 context entries, got %d", len(err.Context))
	}
}

func TestMatchErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, CategoryInfrastructure, CodeStoreUnreachable, "store down")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause must be reachable through errors.Is")
	}

	if Wrap(nil, CategoryInternal, CodeUnexpectedError, "x") != nil {
		t.Error("wrapping nil must yield nil")
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category Category
		want     int
	}{
		{CategoryInput, 2},
		{CategoryParse, 2},
		{CategoryConfiguration, 3},
		{CategoryInfrastructure, 4},
		{CategoryLookup, 5},
		{CategoryAudit, 5},
		{CategoryInternal, 5},
	}

	for _, tt := range tests {
		err := New(tt.category, CodeUnexpectedError, "x")
		if got := err.GetExitCode(); got != tt.want {
			t.Errorf("GetExitCode(%s) = %d, want %d", tt.category, got, tt.want)
		}
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *MatchError
		category Category
		code     Code
	}{
		{"input", InputError(CodeMissingRecord, "", nil), CategoryInput, CodeMissingRecord},
		{"lookup", LookupError("tracking_number", "tracking_number", fmt.Errorf("x")), CategoryLookup, CodeLookupFailed},
		{"infrastructure", InfrastructureError(CodeStoreUnreachable, "lookup", nil), CategoryInfrastructure, CodeStoreUnreachable},
		{"deadline", InfrastructureError(CodeDeadlineExceeded, "lookup", nil), CategoryInfrastructure, CodeDeadlineExceeded},
		{"audit", AuditError("file", fmt.Errorf("disk full")), CategoryAudit, CodeAuditWriteFailed},
		{"configuration", ConfigurationError(CodeInvalidConfig, "review_threshold", 1.5, nil), CategoryConfiguration, CodeInvalidConfig},
		{"parse", ParseError(CodeInvalidData, "f.csv", 3, "amount", "abc", nil), CategoryParse, CodeInvalidData},
		{"internal", InternalError("merge", fmt.Errorf("x")), CategoryInternal, CodeUnexpectedError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Category = %s, want %s", tt.err.Category, tt.category)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Suggestion == "" {
				t.Error("constructors should attach a suggestion")
			}
		})
	}
}

func TestAsMatchError(t *testing.T) {
	inner := InputError(CodeInvalidRecord, "bad", nil)
	wrapped := fmt.Errorf("outer: %w", inner)

	me, ok := AsMatchError(wrapped)
	if !ok {
		t.Fatal("expected to find the MatchError through the chain")
	}
	if me.Code != CodeInvalidRecord {
		t.Errorf("Code = %s", me.Code)
	}

	if _, ok := AsMatchError(fmt.Errorf("plain")); ok {
		t.Error("a plain error is not a MatchError")
	}

	if !IsMatchError(inner) {
		t.Error("IsMatchError should accept a direct MatchError")
	}
}

func TestIsCategory(t *testing.T) {
	err := InfrastructureError(CodeStoreUnreachable, "lookup", nil)

	if !IsCategory(err, CategoryInfrastructure) {
		t.Error("expected infrastructure category")
	}
	if IsCategory(err, CategoryInput) {
		t.Error("wrong category matched")
	}
	if IsCategory(fmt.Errorf("plain"), CategoryInput) {
		t.Error("plain errors have no category")
	}
}

func TestSummary(t *testing.T) {
	errs := []*MatchError{
		ParseError(CodeInvalidData, "f.csv", 2, "amount", "x", nil),
		ParseError(CodeInvalidData, "f.csv", 5, "date", "y", nil),
		InputError(CodeInvalidRecord, "bad", nil),
	}

	summary := NewSummary(errs)
	if summary.Total != 3 {
		t.Errorf("Total = %d", summary.Total)
	}
	if summary.ByCategory[CategoryParse] != 2 {
		t.Errorf("parse count = %d", summary.ByCategory[CategoryParse])
	}
	if !summary.HasCategory(CategoryInput) {
		t.Error("input category missing")
	}
	if summary.GetExitCode() != 2 {
		t.Errorf("exit code = %d", summary.GetExitCode())
	}

	empty := NewSummary(nil)
	if empty.Error() != "no errors" {
		t.Errorf("empty summary Error() = %s", empty.Error())
	}
	if empty.GetExitCode() != 0 {
		t.Errorf("empty summary exit code = %d", empty.GetExitCode())
	}
}
