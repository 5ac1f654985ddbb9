package cli

import (
	"strings"
	"sync"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/buffer"
)

// LogWriter is an io.Writer keeping the most recent log lines, served by
// the debug endpoint. It is safe for concurrent use.
type LogWriter struct {
	mu  sync.Mutex
	buf *buffer.RingBuffer[string]
}

// NewLogWriter keeps up to maxLines lines.
func NewLogWriter(maxLines int) *LogWriter {
	return &LogWriter{buf: buffer.RingN[string](maxLines)}
}

// Write splits p into lines and stores them. Lines of one write stay
// together.
func (w *LogWriter) Write(p []byte) (int, error) {
	text := strings.TrimRight(string(p), "\n")
	w.mu.Lock()
	defer w.mu.Unlock()
	for line := range strings.SplitSeq(text, "\n") {
		w.buf.Add(line)
	}
	return len(p), nil
}

// Lines returns the stored lines, oldest first.
func (w *LogWriter) Lines() []string {
	return w.buf.Items()
}
