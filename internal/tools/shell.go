package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/maxkimambo/sitebuild/internal/logger"
)

// ShellCommand is a POSIX shell command line run by the embedded
// interpreter, so the same command works on every platform. It runs with
// errexit set: the first failing command fails the whole line.
type ShellCommand struct {
	Command string
	Dir     string
	Env     map[string]string
}

// Run executes the command. Stdout is returned; stderr is folded into the
// error when the command fails.
func (c ShellCommand) Run(ctx context.Context, stdin io.Reader) ([]byte, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(c.Command), "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse command %q: %w", c.Command, err)
	}

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.Params("-e"),
		interp.Dir(c.Dir),
		interp.Env(c.environ()),
		interp.ExecHandler(interp.DefaultExecHandler(2*time.Second)),
		interp.StdIO(stdin, &stdout, &stderr),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize shell: %w", err)
	}

	logger.Op.WithFields(map[string]interface{}{
		"command": c.Command,
		"dir":     c.Dir,
	}).Debug("Running shell command")

	if err := runner.Run(ctx, file); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, msg)
		}
		return stdout.Bytes(), err
	}

	return stdout.Bytes(), nil
}

func (c ShellCommand) environ() expand.Environ {
	envVars := os.Environ()
	for name, value := range c.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", name, value))
	}
	return expand.ListEnviron(envVars...)
}
