package errors

import (
	"fmt"
	"strings"
)

// Common error codes
const (
	// Configuration error codes
	CodeUndefinedTask  = "001"
	CodeDuplicateTask  = "002"
	CodeEmptyComposite = "003"
	CodeInvalidOption  = "004"
	CodeConfigFile     = "005"

	// Tool error codes
	CodeToolFailed     = "001"
	CodeToolSyntax     = "002"
	CodeLintViolations = "003"

	// IO error codes
	CodePathMissing = "001"
	CodePathAccess  = "002"
	CodeWriteFailed = "003"

	// Server error codes
	CodeListenFailed   = "001"
	CodeShutdownFailed = "002"
)

// NewUndefinedTaskError creates an error for a reference to a task that was never defined
func NewUndefinedTaskError(name, referencedBy string) *BuildError {
	err := NewConfigurationError(CodeUndefinedTask,
		fmt.Sprintf("Task '%s' is not defined", name),
		"Task graph construction").
		WithContext("task", name)
	if referencedBy != "" {
		err = err.WithContext("referenced_by", referencedBy)
	}
	return err.WithTroubleshooting(
		"Define leaf tasks before composing them",
		"Run 'sitebuild tasks' to list the registered task names",
	)
}

// NewDuplicateTaskError creates an error for registering the same task name twice
func NewDuplicateTaskError(name string) *BuildError {
	return NewConfigurationError(CodeDuplicateTask,
		fmt.Sprintf("Task '%s' is already defined", name),
		"Task graph construction").
		WithContext("task", name)
}

// NewEmptyCompositeError creates an error for a composite task with no children
func NewEmptyCompositeError(name string) *BuildError {
	return NewConfigurationError(CodeEmptyComposite,
		fmt.Sprintf("Composite task '%s' has no children", name),
		"Task graph construction").
		WithContext("task", name)
}

// NewInvalidOptionError creates an error for a malformed option value
func NewInvalidOptionError(option string, value interface{}, reason string) *BuildError {
	return NewConfigurationError(CodeInvalidOption,
		fmt.Sprintf("Invalid value for %s: '%v' (%s)", option, value, reason),
		"Configuration validation").
		WithContext("option", option).
		WithContext("value", value).
		WithTroubleshooting(
			"Use --help to see available options and their defaults",
		)
}

// NewConfigFileError creates an error for an unreadable or malformed config file
func NewConfigFileError(path string, originalErr error) *BuildError {
	return NewConfigurationError(CodeConfigFile,
		fmt.Sprintf("Failed to load config file '%s'", path),
		"Configuration loading").
		WithContext("path", path).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Check the YAML syntax of the config file",
			"Tool options must be nested under 'tools.<name>'",
		)
}

// NewToolFailedError creates an error for a transformation tool that rejected its input
func NewToolFailedError(tool, path string, originalErr error) *BuildError {
	err := NewToolError(CodeToolFailed,
		fmt.Sprintf("%s failed on '%s'", tool, path),
		tool).
		WithContext("tool", tool).
		WithContext("file", path).
		WithOriginalError(originalErr)

	if originalErr != nil {
		errStr := strings.ToLower(originalErr.Error())
		if strings.Contains(errStr, "not found") || strings.Contains(errStr, "executable file") {
			err = err.WithTroubleshooting(
				"Install the external tool and make sure it is on PATH",
				"Override the command under 'tools' in sitebuild.yaml",
			)
		} else {
			err = err.WithTroubleshooting(
				"Fix the reported problem in the source file and rebuild",
			)
		}
	}
	return err
}

// NewLintError creates an error summarising lint findings
func NewLintError(findings []string) *BuildError {
	return NewToolError(CodeLintViolations,
		fmt.Sprintf("%d lint problem(s) found", len(findings)),
		"lint").
		WithContext("findings", strings.Join(findings, "; ")).
		WithTroubleshooting(
			"Fix the listed problems; whitespace issues were already corrected in place",
		)
}

// NewPathError creates an error for a missing or inaccessible path
func NewPathError(path, operation string, originalErr error) *BuildError {
	code := CodePathAccess
	message := fmt.Sprintf("Cannot access '%s'", path)
	if originalErr != nil && strings.Contains(strings.ToLower(originalErr.Error()), "no such file") {
		code = CodePathMissing
		message = fmt.Sprintf("Path '%s' does not exist", path)
	}
	return NewIOError(code, message, operation).
		WithContext("path", path).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Run sitebuild from the project root or pass --dir",
			"Check file permissions",
		)
}

// NewWriteError creates an error for a failed write into a build directory
func NewWriteError(path string, originalErr error) *BuildError {
	return NewIOError(CodeWriteFailed,
		fmt.Sprintf("Failed to write '%s'", path),
		"Writing build output").
		WithContext("path", path).
		WithOriginalError(originalErr)
}

// NewListenError creates an error for a server that cannot bind its port
func NewListenError(addr string, originalErr error) *BuildError {
	return NewServerError(CodeListenFailed,
		fmt.Sprintf("Failed to listen on %s", addr),
		"Starting HTTP server").
		WithContext("address", addr).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Pick another port with --port",
			"Stop the process already listening on this port",
		)
}

// IsUserError determines if an error is due to user input/configuration
func IsUserError(err error) bool {
	return IsCategory(err, ErrorCategoryConfiguration)
}

// GetErrorSeverity returns the severity level of an error
func GetErrorSeverity(err error) string {
	if buildErr, ok := AsBuildError(err); ok {
		switch buildErr.Category {
		case ErrorCategoryConfiguration:
			return "WARNING"
		case ErrorCategoryTool, ErrorCategoryServer:
			return "ERROR"
		case ErrorCategoryIO:
			return "CRITICAL"
		default:
			return "ERROR"
		}
	}
	return "ERROR"
}
