package computer

import (
	"strings"
	"sync"
)

// TruncationMarker ends output that exceeded the configured maximum.
const TruncationMarker = "\n... [output truncated]"

// cappedWriter collects combined process output up to limit bytes and
// forwards each accepted chunk to onChunk as it arrives.
type cappedWriter struct {
	mu        sync.Mutex
	buf       strings.Builder
	limit     int
	truncated bool
	onChunk   func(string)
}

func newCappedWriter(limit int, onChunk func(string)) *cappedWriter {
	return &cappedWriter{limit: limit, onChunk: onChunk}
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.truncated {
		return len(p), nil
	}
	chunk := p
	if w.limit > 0 {
		if room := w.limit - w.buf.Len(); len(chunk) > room {
			chunk = chunk[:room]
			w.truncated = true
		}
	}
	w.buf.Write(chunk)
	if w.onChunk != nil && len(chunk) > 0 {
		w.onChunk(string(chunk))
	}
	if w.truncated && w.onChunk != nil {
		w.onChunk(TruncationMarker)
	}
	return len(p), nil
}

// String returns the collected output, with the marker if it was cut.
func (w *cappedWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.truncated {
		return w.buf.String() + TruncationMarker
	}
	return w.buf.String()
}
