// Package logger provides the two output channels of the CLI. User carries
// short progress lines for people on stdout; Op carries levelled
// diagnostics with structured fields on stderr.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Channel tells the output router where an entry goes
type Channel string

const (
	ChannelUser Channel = "user"
	ChannelOp   Channel = "op"
)

const (
	channelKey = "log_type"
	markerKey  = "marker"
	taskKey    = "task"
)

// Markers prefix user lines
const (
	MarkerError   = "✗"
	MarkerWarn    = "!"
	MarkerStart   = "▶"
	MarkerSuccess = "✓"
	MarkerCleanup = "~"
	MarkerCreate  = "+"
	MarkerWatch   = "◉"
	MarkerReload  = "↻"
)

var (
	User *UserLogger // progress lines (stdout)
	Op   *OpLogger   // diagnostics (stderr)

	mu     sync.Mutex
	base   = logrus.New()
	router = NewOutputRouterHook()
)

func init() {
	base.SetOutput(io.Discard)
	base.SetLevel(logrus.InfoLevel)
	base.AddHook(router)
	User = &UserLogger{logger: base}
	Op = &OpLogger{logger: base}
}

// Setup configures level and format for the whole process. LOG_MODE
// (quiet|verbose|debug) and LOG_FORMAT (json|text) take precedence over
// the flags.
func Setup(verbose bool, jsonLogs bool, quiet bool) {
	switch os.Getenv("LOG_MODE") {
	case "quiet":
		quiet, verbose = true, false
	case "verbose", "debug":
		verbose, quiet = true, false
	}
	switch os.Getenv("LOG_FORMAT") {
	case "json":
		jsonLogs = true
	case "text":
		jsonLogs = false
	}

	level := logrus.InfoLevel
	switch {
	case quiet:
		level = logrus.ErrorLevel
	case verbose:
		level = logrus.DebugLevel
	}

	hook := NewOutputRouterHook()
	switch {
	case jsonLogs:
		hook.UserFormatter = &logrus.JSONFormatter{}
		hook.OpFormatter = &logrus.JSONFormatter{}
	case verbose:
		hook.OpFormatter = &logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   isatty.IsTerminal(os.Stderr.Fd()),
		}
	default:
		hook.OpFormatter = &CLIFormatter{
			DisableTimestamp: true,
			DisableColors:    !isatty.IsTerminal(os.Stderr.Fd()),
		}
	}

	mu.Lock()
	defer mu.Unlock()
	hook.UserWriter, hook.OpWriter = router.UserWriter, router.OpWriter
	router = hook
	base.ReplaceHooks(logrus.LevelHooks{})
	base.AddHook(router)
	base.SetLevel(level)
}

// SetOutput redirects the user and op channels
func SetOutput(user, op io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	router.SetWriters(user, op)
}

// Level returns the active level
func Level() logrus.Level {
	return base.GetLevel()
}

// UserLogger writes progress lines, each optionally prefixed by a marker
type UserLogger struct {
	logger *logrus.Logger
}

func (u *UserLogger) mark(marker string) *logrus.Entry {
	fields := logrus.Fields{channelKey: string(ChannelUser)}
	if marker != "" {
		fields[markerKey] = marker
	}
	return u.logger.WithFields(fields)
}

func (u *UserLogger) Info(msg string)                           { u.mark("").Info(msg) }
func (u *UserLogger) Infof(format string, args ...interface{})  { u.mark("").Infof(format, args...) }
func (u *UserLogger) Error(msg string)                          { u.mark(MarkerError).Error(msg) }
func (u *UserLogger) Errorf(format string, args ...interface{}) { u.mark(MarkerError).Errorf(format, args...) }
func (u *UserLogger) Warn(msg string)                           { u.mark(MarkerWarn).Warn(msg) }
func (u *UserLogger) Warnf(format string, args ...interface{})  { u.mark(MarkerWarn).Warnf(format, args...) }

// Task lifecycle lines

func (u *UserLogger) Starting(msg string) { u.mark(MarkerStart).Info(msg) }
func (u *UserLogger) Startingf(format string, args ...interface{}) {
	u.mark(MarkerStart).Infof(format, args...)
}
func (u *UserLogger) Success(msg string) { u.mark(MarkerSuccess).Info(msg) }
func (u *UserLogger) Successf(format string, args ...interface{}) {
	u.mark(MarkerSuccess).Infof(format, args...)
}
func (u *UserLogger) Cleanupf(format string, args ...interface{}) {
	u.mark(MarkerCleanup).Infof(format, args...)
}
func (u *UserLogger) Createf(format string, args ...interface{}) {
	u.mark(MarkerCreate).Infof(format, args...)
}
func (u *UserLogger) Watchf(format string, args ...interface{}) {
	u.mark(MarkerWatch).Infof(format, args...)
}
func (u *UserLogger) Reloadf(format string, args ...interface{}) {
	u.mark(MarkerReload).Infof(format, args...)
}

// OpLogger writes levelled diagnostics
type OpLogger struct {
	logger *logrus.Logger
}

func (o *OpLogger) entry() *logrus.Entry {
	return o.logger.WithField(channelKey, string(ChannelOp))
}

func (o *OpLogger) Info(msg string)                           { o.entry().Info(msg) }
func (o *OpLogger) Infof(format string, args ...interface{})  { o.entry().Infof(format, args...) }
func (o *OpLogger) Error(msg string)                          { o.entry().Error(msg) }
func (o *OpLogger) Errorf(format string, args ...interface{}) { o.entry().Errorf(format, args...) }
func (o *OpLogger) Warn(msg string)                           { o.entry().Warn(msg) }
func (o *OpLogger) Warnf(format string, args ...interface{})  { o.entry().Warnf(format, args...) }
func (o *OpLogger) Debug(msg string)                          { o.entry().Debug(msg) }
func (o *OpLogger) Debugf(format string, args ...interface{}) { o.entry().Debugf(format, args...) }

// WithFields returns an entry carrying fields. The map is not modified.
func (o *OpLogger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return o.entry().WithFields(fields)
}

// WithTask returns an entry tagged with a task name
func (o *OpLogger) WithTask(name string) *logrus.Entry {
	return o.entry().WithField(taskKey, name)
}
