package devserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

const (
	// LiveReloadPath is the server-sent events endpoint
	LiveReloadPath = "/__sitebuild/livereload"
	// LiveReloadScriptPath serves the browser client
	LiveReloadScriptPath = "/__sitebuild/livereload.js"
	// MetricsPath serves Prometheus metrics
	MetricsPath = "/__sitebuild/metrics"
)

// Message types
const (
	MessageReload = "reload"
	MessageCSS    = "css"
)

// Message is pushed to every connected browser
type Message struct {
	Type  string   `json:"type"`
	Paths []string `json:"paths,omitempty"`
}

// ClientObserver is told about connections and broadcasts
type ClientObserver interface {
	ClientConnected()
	ClientDisconnected()
	ReloadSent(kind string)
}

// Hub fans live-reload messages out to server-sent event streams
type Hub struct {
	mu       sync.Mutex
	clients  map[chan Message]struct{}
	closed   bool
	done     chan struct{}
	observer ClientObserver
}

// NewHub creates a Hub; observer may be nil
func NewHub(observer ClientObserver) *Hub {
	return &Hub{
		clients:  make(map[chan Message]struct{}),
		done:     make(chan struct{}),
		observer: observer,
	}
}

// Subscribe registers a client. The returned func unregisters it.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, 8)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	if h.observer != nil {
		h.observer.ClientConnected()
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
			if h.observer != nil {
				h.observer.ClientDisconnected()
			}
		})
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends msg to every client. Slow clients miss messages rather
// than block the build.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
	if h.observer != nil {
		h.observer.ReloadSent(msg.Type)
	}
}

// Close ends every open stream
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.closed {
		h.closed = true
		close(h.done)
	}
}

// ServeHTTP streams messages as server-sent events
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	messages, unsubscribe := h.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case msg := <-messages:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

const clientScript = `(function () {
  if (!window.EventSource) { return; }
  var source = new EventSource('` + LiveReloadPath + `');
  function refreshStyles(paths) {
    var links = document.querySelectorAll('link[rel="stylesheet"]');
    for (var i = 0; i < links.length; i++) {
      var link = links[i];
      var href = link.getAttribute('href');
      if (!href) { continue; }
      var bare = href.split('?')[0];
      var match = !paths || paths.length === 0 || paths.some(function (p) {
        return bare.slice(-p.length) === p;
      });
      if (match) {
        link.setAttribute('href', bare + '?livereload=' + Date.now());
      }
    }
  }
  source.onmessage = function (event) {
    var msg = JSON.parse(event.data);
    if (msg.type === 'css') {
      refreshStyles(msg.paths);
    } else {
      window.location.reload();
    }
  };
})();
`

var (
	scriptTag = []byte(`<script src="` + LiveReloadScriptPath + `"></script>`)
	bodyClose = []byte("</body>")
)

// InjectClient inserts the live-reload script before the last </body>,
// or appends it when the page has no body end tag.
func InjectClient(page []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), bodyClose)
	out := make([]byte, 0, len(page)+len(scriptTag))
	if idx < 0 {
		out = append(out, page...)
		return append(out, scriptTag...)
	}
	out = append(out, page[:idx]...)
	out = append(out, scriptTag...)
	return append(out, page[idx:]...)
}
