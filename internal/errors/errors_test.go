package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestDocGateError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DocGateError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestDocGateError_WithContext(t *testing.T) {
	err := New(CategoryGit, SeverityWarning, "status failed").
		WithContext("repository", "test-repo").
		WithContext("branch", "main")

	if err.Context == nil {
		t.Fatal("Context should not be nil")
	}

	if err.Context["repository"] != "test-repo" {
		t.Errorf("Context[repository] = %v, want test-repo", err.Context["repository"])
	}

	if err.Context["branch"] != "main" {
		t.Errorf("Context[branch] = %v, want main", err.Context["branch"])
	}
}

func TestIsCategory(t *testing.T) {
	configErr := New(CategoryConfig, SeverityFatal, "config error")
	gitErr := New(CategoryGit, SeverityWarning, "git error")
	wrappedDrift := fmt.Errorf("stage failed: %w", SourcesDrift("docs_build"))
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"config error matches config category", configErr, CategoryConfig, true},
		{"config error doesn't match git category", configErr, CategoryGit, false},
		{"git error matches git category", gitErr, CategoryGit, true},
		{"wrapped drift error matches drift category", wrappedDrift, CategoryDrift, true},
		{"standard error doesn't match any category", standardErr, CategoryConfig, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsCategory(test.err, test.category)
			if result != test.expected {
				t.Errorf("IsCategory() = %v, want %v", result, test.expected)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	retryableErr := Retryable(CategoryNetwork, SeverityWarning, "timeout")
	nonRetryableErr := New(CategoryConfig, SeverityFatal, "invalid")
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"retryable error", retryableErr, true},
		{"non-retryable error", nonRetryableErr, false},
		{"standard error", standardErr, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsRetryable(test.err)
			if result != test.expected {
				t.Errorf("IsRetryable() = %v, want %v", result, test.expected)
			}
		})
	}
}

func TestExitCodes(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"sources drift exits 1", SourcesDrift("docs_build"), 1},
		{"published drift exits 1", PublishedDrift("docs/latest", "?? docs/latest/index.html\n"), 1},
		{"wrapped drift still exits 1", fmt.Errorf("run failed: %w", SourcesDrift("docs_build")), 1},
		{"validation error", ValidationFailed("package", "empty"), 2},
		{"config error", ConfigNotFound("docgate.yaml"), 7},
		{"git error", GitStatusError(fmt.Errorf("bad object")), 8},
		{"generator error", GeneratorError(fmt.Errorf("exit 2")), 11},
		{"render error", RenderError(fmt.Errorf("exit 2")), 11},
		{"plain error", fmt.Errorf("boom"), 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(test.err); got != test.expected {
				t.Errorf("ExitCodeFor() = %d, want %d", got, test.expected)
			}
		})
	}
}

func TestConvenienceFunctions(t *testing.T) {
	// Test a few convenience functions
	t.Run("ConfigNotFound", func(t *testing.T) {
		err := ConfigNotFound("/path/to/docgate.yaml")
		if err.Category != CategoryConfig {
			t.Errorf("Category = %v, want %v", err.Category, CategoryConfig)
		}
		if err.Severity != SeverityFatal {
			t.Errorf("Severity = %v, want %v", err.Severity, SeverityFatal)
		}
		if err.Context["path"] != "/path/to/docgate.yaml" {
			t.Errorf("Context[path] = %v, want /path/to/docgate.yaml", err.Context["path"])
		}
	})

	t.Run("GeneratorError", func(t *testing.T) {
		cause := fmt.Errorf("exit status 2")
		err := GeneratorError(cause)
		if err.Category != CategoryGenerator {
			t.Errorf("Category = %v, want %v", err.Category, CategoryGenerator)
		}
		if !stdErrors.Is(err, cause) {
			t.Errorf("Cause should match wrapped cause: %v", cause)
		}
	})

	t.Run("SourcesDrift", func(t *testing.T) {
		err := SourcesDrift("docs_build")
		if err.Category != CategoryDrift {
			t.Errorf("Category = %v, want %v", err.Category, CategoryDrift)
		}
		if err.Context["dir"] != "docs_build" {
			t.Errorf("Context[dir] = %v, want docs_build", err.Context["dir"])
		}
		if !strings.Contains(err.Message, "check in") {
			t.Errorf("Message %q should instruct the operator to check in", err.Message)
		}
	})

	t.Run("PublishedDrift", func(t *testing.T) {
		err := PublishedDrift("docs/latest", " M docs/latest/index.html\n?? docs/latest/new.html\n")
		if err.Category != CategoryDrift {
			t.Errorf("Category = %v, want %v", err.Category, CategoryDrift)
		}
		if !strings.Contains(err.Message, "?? docs/latest/new.html") {
			t.Errorf("Message %q should carry the status listing", err.Message)
		}
		if strings.HasSuffix(err.Message, "\n") {
			t.Errorf("Message %q should not end with a newline", err.Message)
		}
	})

	t.Run("ValidationFailed", func(t *testing.T) {
		err := ValidationFailed("package", "unsupported value")
		if err.Category != CategoryValidation {
			t.Errorf("Category = %v, want %v", err.Category, CategoryValidation)
		}
		if err.Context["field"] != "package" {
			t.Errorf("Context[field] = %v, want package", err.Context["field"])
		}
		if err.Context["reason"] != "unsupported value" {
			t.Errorf("Context[reason] = %v, want unsupported value", err.Context["reason"])
		}
	})
}
