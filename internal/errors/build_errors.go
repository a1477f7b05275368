package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the category of error
type ErrorCategory string

const (
	// ErrorCategoryConfiguration represents task graph, flag and config file errors
	ErrorCategoryConfiguration ErrorCategory = "CONFIGURATION"
	// ErrorCategoryTool represents failures reported by a transformation tool
	ErrorCategoryTool ErrorCategory = "TOOL"
	// ErrorCategoryIO represents filesystem errors
	ErrorCategoryIO ErrorCategory = "IO"
	// ErrorCategoryServer represents development/preview server errors
	ErrorCategoryServer ErrorCategory = "SERVER"
)

// BuildError represents a structured error with context and troubleshooting information
type BuildError struct {
	Category        ErrorCategory
	Code            string
	Message         string
	Operation       string
	Context         map[string]interface{}
	Troubleshooting []string
	OriginalError   error
}

// Error implements the error interface
func (e *BuildError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s-%s: %s", e.Category, e.Code, e.Message))

	if e.Operation != "" {
		sb.WriteString(fmt.Sprintf("\nOperation: %s", e.Operation))
	}

	if len(e.Context) > 0 {
		sb.WriteString("\nContext:")
		for _, key := range e.contextKeys() {
			sb.WriteString(fmt.Sprintf("\n  %s: %v", key, e.Context[key]))
		}
	}

	if len(e.Troubleshooting) > 0 {
		sb.WriteString("\nTroubleshooting:")
		for i, step := range e.Troubleshooting {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}

	if e.OriginalError != nil {
		sb.WriteString(fmt.Sprintf("\nUnderlying error: %v", e.OriginalError))
	}

	return sb.String()
}

// Unwrap returns the original error for error chain compatibility
func (e *BuildError) Unwrap() error {
	return e.OriginalError
}

func (e *BuildError) contextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for key := range e.Context {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// NewBuildError creates a new build error with the specified parameters
func NewBuildError(category ErrorCategory, code, message, operation string) *BuildError {
	return &BuildError{
		Category:        category,
		Code:            code,
		Message:         message,
		Operation:       operation,
		Context:         make(map[string]interface{}),
		Troubleshooting: []string{},
	}
}

// WithContext adds context information to the error
func (e *BuildError) WithContext(key string, value interface{}) *BuildError {
	e.Context[key] = value
	return e
}

// WithTroubleshooting adds troubleshooting steps to the error
func (e *BuildError) WithTroubleshooting(steps ...string) *BuildError {
	e.Troubleshooting = append(e.Troubleshooting, steps...)
	return e
}

// WithOriginalError adds the original error to the build error
func (e *BuildError) WithOriginalError(err error) *BuildError {
	e.OriginalError = err
	return e
}

// Common error constructors

// NewConfigurationError creates a new configuration error
func NewConfigurationError(code, message, operation string) *BuildError {
	return NewBuildError(ErrorCategoryConfiguration, code, message, operation)
}

// NewToolError creates a new tool error
func NewToolError(code, message, operation string) *BuildError {
	return NewBuildError(ErrorCategoryTool, code, message, operation)
}

// NewIOError creates a new filesystem error
func NewIOError(code, message, operation string) *BuildError {
	return NewBuildError(ErrorCategoryIO, code, message, operation)
}

// NewServerError creates a new server error
func NewServerError(code, message, operation string) *BuildError {
	return NewBuildError(ErrorCategoryServer, code, message, operation)
}

// AsBuildError finds the first BuildError in err's chain
func AsBuildError(err error) (*BuildError, bool) {
	var buildErr *BuildError
	if errors.As(err, &buildErr) {
		return buildErr, true
	}
	return nil, false
}

// IsCategory reports whether err's chain contains a BuildError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	buildErr, ok := AsBuildError(err)
	return ok && buildErr.Category == category
}
