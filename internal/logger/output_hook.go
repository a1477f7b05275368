package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// OutputRouterHook formats and writes each entry to the writer of its
// channel. Parallel tasks log concurrently, so writes are serialised.
type OutputRouterHook struct {
	UserFormatter logrus.Formatter
	OpFormatter   logrus.Formatter
	UserWriter    io.Writer
	OpWriter      io.Writer

	mu sync.Mutex
}

// NewOutputRouterHook routes user lines to stdout and diagnostics to stderr
func NewOutputRouterHook() *OutputRouterHook {
	return &OutputRouterHook{
		UserFormatter: &CLIFormatter{DisableTimestamp: true, DisableLevel: true},
		OpFormatter:   &CLIFormatter{DisableTimestamp: true},
		UserWriter:    os.Stdout,
		OpWriter:      os.Stderr,
	}
}

// SetWriters replaces both destinations
func (h *OutputRouterHook) SetWriters(user, op io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.UserWriter, h.OpWriter = user, op
}

// Levels implements logrus.Hook
func (h *OutputRouterHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook
func (h *OutputRouterHook) Fire(entry *logrus.Entry) error {
	formatter, writer := h.OpFormatter, h.OpWriter
	if channel, _ := entry.Data[channelKey].(string); channel == string(ChannelUser) {
		formatter, writer = h.UserFormatter, h.UserWriter
		if marker, _ := entry.Data[markerKey].(string); marker != "" {
			// other hooks see the same entry
			dup := *entry
			dup.Message = marker + " " + entry.Message
			entry = &dup
		}
	}

	line, err := formatter.Format(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = writer.Write(line)
	return err
}
