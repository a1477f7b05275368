package errors

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildErrorFormatting(t *testing.T) {
	err := NewUndefinedTaskError("bundel", "build")

	msg := err.Error()
	assert.Contains(t, msg, "CONFIGURATION-001: Task 'bundel' is not defined")
	assert.Contains(t, msg, "referenced_by: build")
	assert.Contains(t, msg, "Troubleshooting:")
}

func TestContextKeysAreSorted(t *testing.T) {
	err := NewToolError(CodeToolFailed, "boom", "style").
		WithContext("zeta", 1).
		WithContext("alpha", 2)

	msg := err.Error()
	assert.Less(t, strings.Index(msg, "alpha"), strings.Index(msg, "zeta"))
}

func TestIsCategoryThroughWrapping(t *testing.T) {
	base := NewPathError("source", "Selecting files", os.ErrNotExist)
	wrapped := fmt.Errorf("task style: %w", base)

	assert.True(t, IsCategory(wrapped, ErrorCategoryIO))
	assert.False(t, IsCategory(wrapped, ErrorCategoryTool))
	assert.False(t, IsUserError(wrapped))
	assert.Equal(t, "IO-002", GetErrorCode(wrapped))
}

func TestPathErrorDetectsMissingPath(t *testing.T) {
	_, statErr := os.Stat("/definitely/not/here")
	require.Error(t, statErr)

	err := NewPathError("/definitely/not/here", "Selecting files", statErr)
	assert.Equal(t, CodePathMissing, err.Code)
	assert.Equal(t, "CRITICAL", GetErrorSeverity(err))
}

func TestToolFailedTroubleshooting(t *testing.T) {
	missing := NewToolFailedError("sass", "assets/styles/main.scss", fmt.Errorf(`"sass": executable file not found in $PATH`))
	assert.Contains(t, missing.Troubleshooting[0], "Install the external tool")

	syntax := NewToolFailedError("esbuild", "assets/scripts/main.js", fmt.Errorf("Expected \";\""))
	assert.Contains(t, syntax.Troubleshooting[0], "Fix the reported problem")
	assert.ErrorContains(t, syntax.Unwrap(), "Expected")
}

func TestFormatForCLI(t *testing.T) {
	err := NewInvalidOptionError("--port", 70000, "must be between 1 and 65535")

	out := FormatForCLI(err)
	assert.Contains(t, out, "[CONFIGURATION-004]")
	assert.Contains(t, out, "How to resolve:")

	plain := FormatForCLI(fmt.Errorf("plain failure"))
	assert.Equal(t, "\nError: plain failure\n", plain)
}

func TestDisplayErrorSummaryTruncates(t *testing.T) {
	long := fmt.Errorf("%0150d", 0)
	summary := DisplayErrorSummary(long)
	assert.Len(t, summary, 100)
	assert.Equal(t, "...", summary[97:])
}
