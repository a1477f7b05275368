package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	runs     map[string]int
	notified [][]string
	triggers []string
}

func newRecorder() *recorder {
	return &recorder{runs: make(map[string]int)}
}

func (r *recorder) run(fail map[string]bool) func(ctx context.Context, task string) error {
	return func(ctx context.Context, task string) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.runs[task]++
		if fail[task] {
			return errors.New("syntax error")
		}
		return nil
	}
}

func (r *recorder) onChange(changed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, changed)
}

func (r *recorder) WatchTriggered(rule string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, rule)
}

func (r *recorder) count(task string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[task]
}

func (r *recorder) notifications() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.notified...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func startWatcher(t *testing.T, opts Options) *Watcher {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := New(opts)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	select {
	case <-w.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never became ready")
	}
	return w
}

func siteTree(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "source", "assets", "styles", "main.scss"), "body {}")
	writeFile(t, filepath.Join(root, "source", "assets", "scripts", "main.js"), "var a;")
	writeFile(t, filepath.Join(root, "source", "index.html"), "<html></html>")
	return root
}

func TestRule_Matches(t *testing.T) {
	rule := Rule{Patterns: []string{"source/*.html", "source/**/layouts/**"}}

	assert.True(t, rule.Matches("source/index.html"))
	assert.True(t, rule.Matches("source/layouts/basic.html"))
	assert.True(t, rule.Matches("source/docs/layouts/page.html"))
	assert.False(t, rule.Matches("source/docs/index.html"))
	assert.False(t, rule.Matches("public/index.html"))
}

func TestWatcher_StyleChangeRunsOnlyStyle(t *testing.T) {
	root := siteTree(t)
	rec := newRecorder()

	startWatcher(t, Options{
		Root:     root,
		Debounce: 50 * time.Millisecond,
		Run:      rec.run(nil),
		Observer: rec,
		Rules: []Rule{
			{Name: "styles", Patterns: []string{"source/assets/styles/*.scss"}, Task: "style", OnChange: rec.onChange},
			{Name: "scripts", Patterns: []string{"source/assets/scripts/*.js"}, Task: "script"},
			{Name: "pages", Patterns: []string{"source/*.html"}, Task: "page"},
		},
	})

	writeFile(t, filepath.Join(root, "source", "assets", "styles", "main.scss"), "body { color: red; }")

	require.Eventually(t, func() bool { return len(rec.notifications()) == 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, 1, rec.count("style"))
	assert.Equal(t, 0, rec.count("page"))
	assert.Equal(t, 0, rec.count("script"))
	assert.Equal(t, [][]string{{"source/assets/styles/main.scss"}}, rec.notifications())
	assert.Equal(t, []string{"styles"}, rec.triggers)
}

func TestWatcher_DebouncesPerRuleAndMergesPaths(t *testing.T) {
	root := siteTree(t)
	rec := newRecorder()

	startWatcher(t, Options{
		Root:     root,
		Debounce: 300 * time.Millisecond,
		Run:      rec.run(nil),
		Rules: []Rule{
			{Name: "styles", Patterns: []string{"source/assets/styles/*.scss"}, Task: "style", OnChange: rec.onChange},
		},
	})

	writeFile(t, filepath.Join(root, "source", "assets", "styles", "main.scss"), "body { color: red; }")
	writeFile(t, filepath.Join(root, "source", "assets", "styles", "print.scss"), "body { color: black; }")

	require.Eventually(t, func() bool { return len(rec.notifications()) == 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)

	assert.Equal(t, 1, rec.count("style"))
	assert.Equal(t, [][]string{{
		"source/assets/styles/main.scss",
		"source/assets/styles/print.scss",
	}}, rec.notifications())
}

func TestWatcher_FailedRunSkipsNotification(t *testing.T) {
	root := siteTree(t)
	rec := newRecorder()

	startWatcher(t, Options{
		Root:     root,
		Debounce: 20 * time.Millisecond,
		Run:      rec.run(map[string]bool{"script": true}),
		Rules: []Rule{
			{Name: "scripts", Patterns: []string{"source/assets/scripts/*.js"}, Task: "script", OnChange: rec.onChange},
			{Name: "pages", Patterns: []string{"source/*.html"}, Task: "page", OnChange: rec.onChange},
		},
	})

	writeFile(t, filepath.Join(root, "source", "assets", "scripts", "main.js"), "var = ;")
	require.Eventually(t, func() bool { return rec.count("script") >= 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.notifications())

	// the loop keeps watching after a failure
	writeFile(t, filepath.Join(root, "source", "index.html"), "<html><body></body></html>")
	require.Eventually(t, func() bool { return len(rec.notifications()) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"source/index.html"}, rec.notifications()[0])
}

func TestWatcher_ReloadOnlyRuleAndNewDirectories(t *testing.T) {
	root := siteTree(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "public"), 0755))
	rec := newRecorder()

	w := startWatcher(t, Options{
		Root:     root,
		Debounce: 20 * time.Millisecond,
		Run:      rec.run(nil),
		Rules: []Rule{
			{Name: "static", Patterns: []string{"public/**"}, OnChange: rec.onChange},
		},
	})
	assert.Contains(t, w.WatchedDirs(), filepath.Join(root, "public"))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "public", "docs"), 0755))
	require.Eventually(t, func() bool {
		for _, dir := range w.WatchedDirs() {
			if dir == filepath.Join(root, "public", "docs") {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)

	writeFile(t, filepath.Join(root, "public", "docs", "guide.txt"), "hello")
	require.Eventually(t, func() bool { return len(rec.notifications()) >= 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Contains(t, rec.notifications()[0], "public/docs/guide.txt")
	assert.Empty(t, rec.runs)
}

func TestWatcher_MissingDirectoriesAreSkipped(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, Options{
		Root:  root,
		Rules: []Rule{{Name: "fonts", Patterns: []string{"source/assets/fonts/**"}}},
	})
	assert.Empty(t, w.WatchedDirs())
}

func TestRule_String(t *testing.T) {
	assert.Equal(t, "public/** -> reload", Rule{Patterns: []string{"public/**"}}.String())
	assert.Equal(t, "source/*.html -> page", Rule{Patterns: []string{"source/*.html"}, Task: "page"}.String())
}
