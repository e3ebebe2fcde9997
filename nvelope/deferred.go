package nvelope

import (
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// DeferredWriter is an http.ResponseWriter that holds the status,
// header, and body until Flush is called.  Until then everything
// written can be thrown away with Reset.  After Flush, writes go
// straight through to the underlying writer.
type DeferredWriter struct {
	base        http.ResponseWriter
	passthrough bool
	header      http.Header
	resetHeader http.Header
	buffer      []byte
	status      int
}

var _ http.ResponseWriter = &DeferredWriter{}

// NewDeferredWriter wraps w.  The header of w is copied so that
// changes made before Flush do not leak into w.
func NewDeferredWriter(w http.ResponseWriter) *DeferredWriter {
	return &DeferredWriter{
		base:        w,
		header:      w.Header().Clone(),
		resetHeader: w.Header().Clone(),
		buffer:      make([]byte, 0, 4*1024),
	}
}

// Header returns the buffered header until Flush.
func (w *DeferredWriter) Header() http.Header {
	if w.passthrough {
		return w.base.Header()
	}
	return w.header
}

func (w *DeferredWriter) Write(b []byte) (int, error) {
	if w.passthrough {
		return w.base.Write(b)
	}
	w.buffer = append(w.buffer, b...)
	return len(b), nil
}

func (w *DeferredWriter) WriteHeader(statusCode int) {
	if w.passthrough {
		w.base.WriteHeader(statusCode)
		return
	}
	w.status = statusCode
}

// Reset discards everything written so far.  The header goes back
// to what it was at creation or at the last PreserveHeader.  Reset
// fails once Flush has been called.
func (w *DeferredWriter) Reset() error {
	if w.passthrough {
		return errors.New("cannot reset, output already flushed")
	}
	w.buffer = w.buffer[:0]
	w.status = 0
	w.header = w.resetHeader.Clone()
	return nil
}

// PreserveHeader makes the current header the one that Reset
// returns to.
func (w *DeferredWriter) PreserveHeader() {
	w.resetHeader = w.header.Clone()
}

// Status returns the status set with WriteHeader before Flush, or
// 0 if there was none.
func (w *DeferredWriter) Status() int {
	return w.status
}

// Done reports if Flush has been called.
func (w *DeferredWriter) Done() bool {
	return w.passthrough
}

// UnderlyingWriter returns the wrapped http.ResponseWriter.
func (w *DeferredWriter) UnderlyingWriter() http.ResponseWriter {
	return w.base
}

// Flush sends the buffered header, status, and body to the
// underlying writer.  It may only be called once.
func (w *DeferredWriter) Flush() error {
	if w.passthrough {
		return errors.New("duplicate flush")
	}
	w.passthrough = true
	h := w.base.Header()
	for k := range h {
		if _, ok := w.header[k]; !ok {
			delete(h, k)
		}
	}
	for k, v := range w.header {
		h[k] = v
	}
	if w.status != 0 {
		w.base.WriteHeader(w.status)
	}
	for len(w.buffer) != 0 {
		n, err := w.base.Write(w.buffer)
		w.buffer = w.buffer[n:]
		if err != nil {
			if errors.Is(err, io.ErrShortWrite) && n > 0 {
				continue
			}
			return errors.Wrap(err, "flush deferred output")
		}
	}
	return nil
}
