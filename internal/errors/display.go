package errors

import (
	"fmt"
	"strings"
)

const summaryLimit = 100

// DisplayErrorSummary is a one-line form of err for log lines, truncated
// to summaryLimit characters for errors without a code.
func DisplayErrorSummary(err error) string {
	if be, ok := AsBuildError(err); ok {
		return GetErrorCode(be) + ": " + be.Message
	}
	s := err.Error()
	if len(s) <= summaryLimit {
		return s
	}
	return s[:summaryLimit-3] + "..."
}

// GetErrorCode returns CATEGORY-CODE, or UNKNOWN for foreign errors
func GetErrorCode(err error) string {
	be, ok := AsBuildError(err)
	if !ok {
		return "UNKNOWN"
	}
	return string(be.Category) + "-" + be.Code
}

// FormatForCLI renders err as the block printed before a non-zero exit
func FormatForCLI(err error) string {
	be, ok := AsBuildError(err)
	if !ok {
		return fmt.Sprintf("\nError: %v\n", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s error [%s]\n  %s\n",
		strings.ToLower(string(be.Category)), GetErrorCode(be), be.Message)

	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", title)
		for _, line := range lines {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	if be.Operation != "" {
		section("Failed operation", []string{be.Operation})
	}

	details := make([]string, 0, len(be.Context))
	for _, key := range be.contextKeys() {
		details = append(details, fmt.Sprintf("%s: %v", key, be.Context[key]))
	}
	section("Details", details)

	steps := make([]string, len(be.Troubleshooting))
	for i, step := range be.Troubleshooting {
		steps[i] = fmt.Sprintf("%d. %s", i+1, step)
	}
	section("How to resolve", steps)

	if be.OriginalError != nil {
		section("Cause", []string{be.OriginalError.Error()})
	}
	return b.String()
}
