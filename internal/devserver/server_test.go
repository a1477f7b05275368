package devserver

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/metrics"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func devTree(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "intermediate", "index.html"), "<html><body><h1>compiled</h1></body></html>")
	writeFile(t, filepath.Join(root, "source", "index.html"), "<html><body>{{ raw }}</body></html>")
	writeFile(t, filepath.Join(root, "source", "assets", "images", "logo.svg"), "<svg></svg>")
	writeFile(t, filepath.Join(root, "public", "favicon.ico"), "ico")
	writeFile(t, filepath.Join(root, "public", "docs", "index.html"), "<p>docs</p>")
	writeFile(t, filepath.Join(root, "node_modules", "reset", "reset.css"), "html{}")
	return root
}

func devOptions(root string) Options {
	return Options{
		Address: "127.0.0.1:0",
		Roots: []string{
			filepath.Join(root, "intermediate"),
			filepath.Join(root, "source"),
			filepath.Join(root, "public"),
		},
		Routes:     map[string]string{"/node_modules": filepath.Join(root, "node_modules")},
		LiveReload: true,
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_OrderedRoots(t *testing.T) {
	s := New(devOptions(devTree(t)))
	h := s.Handler()

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "compiled", "intermediate wins over source")

	rec = get(t, h, "/assets/images/logo.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<svg></svg>", rec.Body.String())

	rec = get(t, h, "/favicon.ico")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ico", rec.Body.String())

	rec = get(t, h, "/docs/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<p>docs</p>")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/missing.css").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/../../etc/passwd").Code)
}

func TestServer_NodeModulesRoute(t *testing.T) {
	s := New(devOptions(devTree(t)))

	rec := get(t, s.Handler(), "/node_modules/reset/reset.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "html{}", rec.Body.String())
}

func TestServer_InjectsLiveReloadIntoHTML(t *testing.T) {
	s := New(devOptions(devTree(t)))

	rec := get(t, s.Handler(), "/index.html")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`<html><body><h1>compiled</h1><script src="/__sitebuild/livereload.js"></script></body></html>`,
		rec.Body.String())

	rec = get(t, s.Handler(), LiveReloadScriptPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "EventSource")
}

func TestServer_PreviewHasNoLiveReload(t *testing.T) {
	root := devTree(t)
	s := New(Options{Address: "127.0.0.1:0", Roots: []string{filepath.Join(root, "intermediate")}})

	rec := get(t, s.Handler(), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "livereload")
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), LiveReloadScriptPath).Code)
}

func TestServer_Metrics(t *testing.T) {
	opts := devOptions(devTree(t))
	opts.Metrics = metrics.New()
	s := New(opts)

	s.Reload()

	rec := get(t, s.Handler(), MetricsPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sitebuild_livereload_notifications_total{type="reload"} 1`)
}

func TestServer_RunLifecycleAndEvents(t *testing.T) {
	s := New(devOptions(devTree(t)))
	assert.Equal(t, StateIdle, s.State())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server never became ready")
	}
	assert.Equal(t, StateWatching, s.State())

	resp, err := http.Get(s.URL() + LiveReloadPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	s.ReloadCSS([]string{"assets/styles/main.css"})

	var data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
	assert.JSONEq(t, `{"type":"css","paths":["assets/styles/main.css"]}`, data)

	addr := s.Addr()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "interrupt is a normal stop")
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, StateStopped, s.State())

	_, _ = io.Copy(io.Discard, resp.Body)

	// the port is released
	l, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	l.Close()
}

func TestServer_ListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	opts := devOptions(devTree(t))
	opts.Address = busy.Addr().String()

	err = New(opts).Run(context.Background())
	require.Error(t, err)
	assert.True(t, builderrors.IsCategory(err, builderrors.ErrorCategoryServer))
}

func TestServer_OpenBrowser(t *testing.T) {
	opened := make(chan string, 1)
	original := openBrowser
	openBrowser = func(url string) error { opened <- url; return nil }
	defer func() { openBrowser = original }()

	opts := devOptions(devTree(t))
	opts.Open = true
	s := New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case url := <-opened:
		assert.Equal(t, s.URL(), url)
	case <-time.After(2 * time.Second):
		t.Fatal("browser was not opened")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestInjectClient(t *testing.T) {
	assert.Equal(t, `<p>x</p><script src="/__sitebuild/livereload.js"></script>`, string(InjectClient([]byte("<p>x</p>"))))
	assert.Equal(t,
		`<BODY>a<script src="/__sitebuild/livereload.js"></script></BODY>`,
		string(InjectClient([]byte("<BODY>a</BODY>"))))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "watching", StateWatching.String())
	assert.Equal(t, "stopped", StateStopped.String())
}
