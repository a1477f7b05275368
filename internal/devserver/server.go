// Package devserver serves the site during development and for release
// previews, pushing live-reload messages to connected browsers.
package devserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/browser"

	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/logger"
	"github.com/maxkimambo/sitebuild/internal/metrics"
)

// ShutdownTimeout bounds graceful shutdown before connections are force closed
const ShutdownTimeout = 5 * time.Second

// State is the server lifecycle state
type State int

const (
	// StateIdle is a server that has not started listening
	StateIdle State = iota
	// StateWatching is a server that is listening
	StateWatching
	// StateStopped is a server that has shut down
	StateStopped
)

// String returns a string representation of the State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configure a Server
type Options struct {
	// Address is the host:port to listen on
	Address string
	// Roots are searched in order for each request
	Roots []string
	// Routes maps a URL prefix onto a directory, e.g. /node_modules
	Routes map[string]string
	// LiveReload injects the client and enables the event stream
	LiveReload bool
	// Open launches the default browser once listening
	Open bool
	// Metrics is optional; when set it is exposed and fed
	Metrics *metrics.Metrics
}

// Server is a static file server with optional live reload
type Server struct {
	opts   Options
	hub    *Hub
	router chi.Router

	mu    sync.Mutex
	state State
	addr  string
	ready chan struct{}
}

var openBrowser = browser.OpenURL

// New creates a Server in the Idle state
func New(opts Options) *Server {
	var observer ClientObserver
	if opts.Metrics != nil {
		observer = opts.Metrics
	}

	s := &Server{
		opts:  opts,
		hub:   NewHub(observer),
		state: StateIdle,
		ready: make(chan struct{}),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	if s.opts.LiveReload {
		r.Get(LiveReloadPath, s.hub.ServeHTTP)
		r.Get(LiveReloadScriptPath, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			_, _ = w.Write([]byte(clientScript))
		})
	}
	if s.opts.Metrics != nil {
		r.Handle(MetricsPath, s.opts.Metrics.Handler())
	}

	for prefix, dir := range s.opts.Routes {
		prefix = "/" + strings.Trim(prefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, &staticHandler{roots: []string{dir}}))
	}

	r.Handle("/*", &staticHandler{roots: s.opts.Roots, inject: s.opts.LiveReload})
	return r
}

// requestLogger logs each request at debug level
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Op.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("HTTP request")
	})
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// State returns the lifecycle state
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Ready is closed once the server is listening
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address once listening
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// URL returns the http URL of the bound address
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// Reload asks every browser for a full page reload
func (s *Server) Reload() {
	logger.User.Reloadf("Reloading browsers")
	s.hub.Broadcast(Message{Type: MessageReload})
}

// ReloadCSS asks every browser to refresh the given stylesheets in place;
// no paths means all stylesheets
func (s *Server) ReloadCSS(paths []string) {
	if len(paths) == 0 {
		logger.User.Reloadf("Refreshing all stylesheets")
	} else {
		logger.User.Reloadf("Refreshing %s", strings.Join(paths, ", "))
	}
	s.hub.Broadcast(Message{Type: MessageCSS, Paths: paths})
}

// Run listens and serves until ctx is cancelled, then shuts down
// gracefully. Cancellation is a normal stop and returns nil.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		s.setState(StateStopped)
		return builderrors.NewListenError(s.opts.Address, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.state = StateWatching
	s.mu.Unlock()
	close(s.ready)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	logger.User.Successf("Serving at %s", s.URL())
	if s.opts.Open {
		if err := openBrowser(s.URL()); err != nil {
			logger.User.Warnf("Could not open browser: %v", err)
		}
	}

	select {
	case err := <-serveErr:
		s.hub.Close()
		s.setState(StateStopped)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return builderrors.NewServerError(builderrors.CodeListenFailed, "HTTP server stopped unexpectedly", "Serving").
				WithOriginalError(err)
		}
		return nil

	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Op.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Warn("Graceful shutdown timed out, closing connections")
		_ = srv.Close()
	}
	<-serveErr

	s.setState(StateStopped)
	logger.User.Infof("Server at %s stopped", s.opts.Address)
	return nil
}
