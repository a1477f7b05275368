package devserver

import (
	"bytes"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// staticHandler serves files from an ordered list of roots; the first
// root containing the requested path wins.
type staticHandler struct {
	roots  []string
	inject bool
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name, ok := h.resolve(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, err := os.ReadFile(name)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	info, err := os.Stat(name)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	modTime := info.ModTime()
	ext := strings.ToLower(filepath.Ext(name))
	if h.inject && (ext == ".html" || ext == ".htm") {
		data = InjectClient(data)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		modTime = time.Time{}
	}

	http.ServeContent(w, r, filepath.Base(name), modTime, bytes.NewReader(data))
}

// resolve maps a URL path onto the first root that has it. Directories
// resolve to their index.html.
func (h *staticHandler) resolve(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	for _, root := range h.roots {
		candidate := filepath.Join(root, filepath.FromSlash(clean))
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.IsDir() {
			candidate = filepath.Join(candidate, "index.html")
			info, err = os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
		}
		return candidate, true
	}
	return "", false
}
