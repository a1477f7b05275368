//go:build integration

package integration

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxkimambo/sitebuild/integration_tests/internal/testutil"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func get(url string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return string(body), fmt.Errorf("status %d", resp.StatusCode)
	}
	return string(body), nil
}

func TestServe_LiveReloadAndInterrupt(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := testutil.SetupTestWorkspace(t, "basic")
	port := freePort(t)
	base := fmt.Sprintf("http://localhost:%d", port)

	cmd := exec.Command(testutil.GetBinaryPath(), "serve", "--dir", dir, "--port", fmt.Sprint(port))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Start())
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()
	defer func() { _ = cmd.Process.Kill() }()

	var page string
	require.Eventually(t, func() bool {
		body, err := get(base + "/")
		page = body
		return err == nil
	}, 30*time.Second, 100*time.Millisecond)

	assert.Contains(t, page, "<h1>Welcome</h1>")
	assert.Contains(t, page, "/__sitebuild/livereload.js")

	css, err := get(base + "/assets/styles/main.css")
	require.NoError(t, err)
	assert.Contains(t, css, "#333333")

	// the partial is served straight from source/
	_, err = get(base + "/assets/styles/_vars.scss")
	assert.NoError(t, err)

	robots, err := get(base + "/robots.txt")
	require.NoError(t, err)
	assert.Equal(t, "User-agent: *\n", robots)

	// editing a page re-renders it
	index := filepath.Join(dir, "source", "index.html")
	edited := strings.Replace(string(mustRead(t, index)), "Welcome", "Edited", 1)
	require.NoError(t, os.WriteFile(index, []byte(edited), 0644))
	assert.Eventually(t, func() bool {
		body, err := get(base + "/")
		return err == nil && strings.Contains(body, "<h1>Edited</h1>")
	}, 10*time.Second, 100*time.Millisecond)

	require.NoError(t, cmd.Process.Signal(syscall.SIGINT))
	select {
	case err := <-exited:
		assert.NoError(t, err, stderr.String())
	case <-time.After(15 * time.Second):
		t.Fatal("sitebuild serve did not stop after SIGINT")
	}

	// the port is released
	l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	require.NoError(t, err)
	l.Close()
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
