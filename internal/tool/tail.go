package tool

import "sync"

// maxOutputTailBytes bounds how much tool output is retained for diagnostics.
const maxOutputTailBytes = 4096

// tailWriter keeps only the trailing portion of everything written to it.
// Both streams of a subprocess may write concurrently, hence the mutex.
type tailWriter struct {
	mu        sync.Mutex
	buf       []byte
	limit     int
	truncated bool
}

// newTailWriter returns a writer retaining at most limit bytes.
func newTailWriter(limit int) *tailWriter {
	return &tailWriter{
		limit: limit,
	}
}

// Write appends p, discarding the oldest bytes beyond the limit.
func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	if len(w.buf) > w.limit {
		w.buf = w.buf[len(w.buf)-w.limit:]
		w.truncated = true
	}

	return len(p), nil
}

// String returns the retained tail, prefixed with an ellipsis when older
// output was discarded.
func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.truncated {
		return "..." + string(w.buf)
	}

	return string(w.buf)
}
