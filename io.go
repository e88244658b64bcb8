package stepwire

import (
	"io"
)

// Waker is notified when a sink or source that reported ErrWouldBlock may
// be able to make progress.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to Waker.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

// Context is the suspend context threaded through every codec call. Sinks
// and sources that cannot make progress register its waker before
// returning ErrWouldBlock.
type Context struct {
	waker Waker
}

// NewContext returns a context that wakes w. A nil w is allowed for callers
// that poll in a loop.
func NewContext(w Waker) *Context {
	return &Context{waker: w}
}

func (cx *Context) Waker() Waker {
	if cx == nil {
		return nil
	}
	return cx.waker
}

// Wake notifies the waker, if any.
func (cx *Context) Wake() {
	if cx != nil && cx.waker != nil {
		cx.waker.Wake()
	}
}

// Signal is a Waker backed by a one slot channel. Wakes coalesce.
type Signal struct {
	ch chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

func (s *Signal) Wake() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// C is readable after at least one Wake.
func (s *Signal) C() <-chan struct{} {
	return s.ch
}

// Sink is a non-blocking byte sink.
//
// TryWrite accepts a prefix of p and returns how many bytes it took. When it
// cannot take any byte right now it returns ErrWouldBlock after arranging for
// cx to be woken. Returning (0, nil) means the sink is permanently full.
type Sink interface {
	TryWrite(cx *Context, p []byte) (int, error)
	TryFlush(cx *Context) error
	TryClose(cx *Context) error
}

// Source is a non-blocking byte source. TryRead returns io.EOF at the end of
// input and ErrWouldBlock, after arranging for cx to be woken, when no byte
// is available yet.
type Source interface {
	TryRead(cx *Context, p []byte) (int, error)
}

// Peeker is a Source that exposes its buffered window. Peek returns the
// bytes available without consuming them; Consume drops n of them.
type Peeker interface {
	Source
	TryPeek(cx *Context) ([]byte, error)
	Consume(n int)
}

type writerSink struct {
	w io.Writer
}

// WriterSink adapts a blocking io.Writer. It never suspends.
func WriterSink(w io.Writer) Sink {
	return &writerSink{w: w}
}

func (s *writerSink) TryWrite(_ *Context, p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *writerSink) TryFlush(_ *Context) error {
	if f, ok := s.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (s *writerSink) TryClose(cx *Context) error {
	if err := s.TryFlush(cx); err != nil {
		return err
	}
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type readerSource struct {
	r io.Reader
}

// ReaderSource adapts a blocking io.Reader. It never suspends.
func ReaderSource(r io.Reader) Source {
	return &readerSource{r: r}
}

func (s *readerSource) TryRead(_ *Context, p []byte) (int, error) {
	n, err := s.r.Read(p)
	if n > 0 {
		return n, nil
	}
	if err == nil {
		// io.Reader may return 0, nil; report it as an empty step.
		return 0, io.ErrNoProgress
	}
	return 0, err
}

// BytesReader is a Peeker over an in-memory slice.
type BytesReader struct {
	b   []byte
	off int
}

func BytesSource(b []byte) *BytesReader {
	return &BytesReader{b: b}
}

func (r *BytesReader) TryRead(_ *Context, p []byte) (int, error) {
	if r.off >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.off:])
	r.off += n
	return n, nil
}

func (r *BytesReader) TryPeek(_ *Context) ([]byte, error) {
	if r.off >= len(r.b) {
		return nil, io.EOF
	}
	return r.b[r.off:], nil
}

func (r *BytesReader) Consume(n int) {
	r.off = min(r.off+n, len(r.b))
}

// Len is the number of unread bytes.
func (r *BytesReader) Len() int {
	return len(r.b) - r.off
}
