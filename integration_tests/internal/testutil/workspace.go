package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// SetupTestWorkspace copies the project under testdata/<scenario> into a
// fresh directory and returns its path. The directory is removed when the
// test ends unless PRESERVE_TEST_WORKSPACE is true.
func SetupTestWorkspace(t *testing.T, scenario string) string {
	t.Helper()

	parent, err := filepath.Abs(filepath.Join("..", "tmp_integration_tests"))
	require.NoError(t, err, "failed to resolve workspace parent")
	require.NoError(t, os.MkdirAll(parent, 0755), "failed to create workspace parent")

	name := strings.ReplaceAll(t.Name(), "/", "_")
	workspace, err := os.MkdirTemp(parent, name+"-")
	require.NoError(t, err, "failed to create test workspace")

	err = CopyTree(filepath.Join("testdata", scenario), workspace)
	require.NoError(t, err, "failed to copy scenario %s", scenario)

	t.Cleanup(func() {
		if os.Getenv("PRESERVE_TEST_WORKSPACE") == "true" {
			t.Logf("Test workspace preserved in: %s", workspace)
			return
		}
		if err := os.RemoveAll(workspace); err != nil {
			t.Logf("Warning: failed to clean up workspace %s: %v", workspace, err)
		}
	})

	return workspace
}

// CopyTree copies every regular file below src into dst
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
}

// Snapshot reads every file below dir, keyed by slash-separated relative path
func Snapshot(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	files := map[string][]byte{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	require.NoError(t, err)
	return files
}
