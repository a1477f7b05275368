package testutil

import (
	"os"
	"path/filepath"
)

// GetBinaryPath returns the absolute path of the sitebuild binary under test.
// It checks, in order: $SITEBUILD_BINARY, ./sitebuild, ../sitebuild and
// ../bin/sitebuild.
func GetBinaryPath() string {
	if env := os.Getenv("SITEBUILD_BINARY"); env != "" {
		return absolute(env)
	}

	for _, candidate := range []string{
		"sitebuild",
		filepath.Join("..", "sitebuild"),
		filepath.Join("..", "bin", "sitebuild"),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return absolute(candidate)
		}
	}

	return absolute(filepath.Join("..", "sitebuild"))
}

func absolute(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
