//go:build integration

package integration

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/maxkimambo/sitebuild/integration_tests/internal/testutil"
)

type runResult struct {
	stdout   string
	stderr   string
	exitCode int
}

// run executes the binary and waits for it to exit
func run(t *testing.T, args ...string) runResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, testutil.GetBinaryPath(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(cmd.Environ(), "LOG_FORMAT=text")

	err := cmd.Run()
	result := runResult{stdout: stdout.String(), stderr: stderr.String()}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.exitCode = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("failed to run sitebuild: %v", err)
	}

	t.Logf("sitebuild %v exited %d\nstdout:\n%s\nstderr:\n%s", args, result.exitCode, result.stdout, result.stderr)
	return result
}
