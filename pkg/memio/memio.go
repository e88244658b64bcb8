// Package memio provides in-memory sinks and sources: bounded slices with
// position counters, adapters that make every other call block, and a
// goroutine-safe pipe.
package memio

import (
	"errors"
	"io"
	"sync"

	"github.com/rawbytedev/stepwire"
)

var ErrClosed = errors.New("memio: closed")

// SliceSink writes into a fixed buffer. Once the buffer is full TryWrite
// accepts nothing and returns (0, nil).
type SliceSink struct {
	buf    []byte
	pos    int
	closed bool
}

func NewSliceSink(capacity int) *SliceSink {
	return &SliceSink{buf: make([]byte, capacity)}
}

func (s *SliceSink) TryWrite(_ *stepwire.Context, p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	return n, nil
}

func (s *SliceSink) TryFlush(*stepwire.Context) error { return nil }

func (s *SliceSink) TryClose(*stepwire.Context) error {
	s.closed = true
	return nil
}

// Pos is the number of bytes written.
func (s *SliceSink) Pos() int { return s.pos }

// Bytes returns the bytes written so far.
func (s *SliceSink) Bytes() []byte { return s.buf[:s.pos] }

func (s *SliceSink) Closed() bool { return s.closed }

// SliceSource reads from a slice. It implements stepwire.Peeker.
type SliceSource struct {
	buf []byte
	pos int
}

func NewSliceSource(b []byte) *SliceSource {
	return &SliceSource{buf: b}
}

func (s *SliceSource) TryRead(_ *stepwire.Context, p []byte) (int, error) {
	if s.pos >= len(s.buf) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += n
	return n, nil
}

func (s *SliceSource) TryPeek(*stepwire.Context) ([]byte, error) {
	if s.pos >= len(s.buf) {
		return nil, io.EOF
	}
	return s.buf[s.pos:], nil
}

func (s *SliceSource) Consume(n int) {
	s.pos = min(s.pos+n, len(s.buf))
}

// Pos is the number of bytes consumed.
func (s *SliceSource) Pos() int { return s.pos }

// Trickle makes a sink accept at most one byte per call, and only on every
// other call; the calls in between wake the context and return
// stepwire.ErrWouldBlock.
type Trickle struct {
	w       stepwire.Sink
	blocked bool
	Blocks  int
}

func TrickleSink(w stepwire.Sink) *Trickle {
	return &Trickle{w: w}
}

func (t *Trickle) TryWrite(cx *stepwire.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return t.w.TryWrite(cx, p)
	}
	if t.blocked = !t.blocked; t.blocked {
		t.Blocks++
		cx.Wake()
		return 0, stepwire.ErrWouldBlock
	}
	return t.w.TryWrite(cx, p[:1])
}

func (t *Trickle) TryFlush(cx *stepwire.Context) error { return t.w.TryFlush(cx) }

func (t *Trickle) TryClose(cx *stepwire.Context) error { return t.w.TryClose(cx) }

// TrickleReader is the source side of Trickle. It hides any Peeker of the
// wrapped source.
type TrickleReader struct {
	r       stepwire.Source
	blocked bool
	Blocks  int
}

func TrickleSource(r stepwire.Source) *TrickleReader {
	return &TrickleReader{r: r}
}

func (t *TrickleReader) TryRead(cx *stepwire.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return t.r.TryRead(cx, p)
	}
	if t.blocked = !t.blocked; t.blocked {
		t.Blocks++
		cx.Wake()
		return 0, stepwire.ErrWouldBlock
	}
	return t.r.TryRead(cx, p[:1])
}

// Pipe connects a writer and a reader running in different goroutines
// through a buffer of at most size bytes. Each side blocks with
// stepwire.ErrWouldBlock and is woken by the other.
func Pipe(size int) (*PipeWriter, *PipeReader) {
	if size < 1 {
		panic("pipe size can't be < 1")
	}
	p := &pipe{buf: make([]byte, 0, size), limit: size}
	return &PipeWriter{p}, &PipeReader{p}
}

type pipe struct {
	mu         sync.Mutex
	buf        []byte
	limit      int
	closed     bool
	readWaker  stepwire.Waker
	writeWaker stepwire.Waker
}

type PipeWriter struct{ p *pipe }

type PipeReader struct{ p *pipe }

func wake(w stepwire.Waker) {
	if w != nil {
		w.Wake()
	}
}

func (w *PipeWriter) TryWrite(cx *stepwire.Context, b []byte) (int, error) {
	p := w.p
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	room := p.limit - len(p.buf)
	if room == 0 {
		p.writeWaker = cx.Waker()
		p.mu.Unlock()
		return 0, stepwire.ErrWouldBlock
	}
	n := min(room, len(b))
	p.buf = append(p.buf, b[:n]...)
	rw := p.readWaker
	p.readWaker = nil
	p.mu.Unlock()
	wake(rw)
	return n, nil
}

func (w *PipeWriter) TryFlush(*stepwire.Context) error { return nil }

// TryClose ends the stream. The reader sees io.EOF once it drained the
// buffer.
func (w *PipeWriter) TryClose(*stepwire.Context) error {
	p := w.p
	p.mu.Lock()
	p.closed = true
	rw := p.readWaker
	p.readWaker = nil
	p.mu.Unlock()
	wake(rw)
	return nil
}

func (r *PipeReader) TryRead(cx *stepwire.Context, b []byte) (int, error) {
	p := r.p
	p.mu.Lock()
	if len(p.buf) == 0 {
		if p.closed {
			p.mu.Unlock()
			return 0, io.EOF
		}
		p.readWaker = cx.Waker()
		p.mu.Unlock()
		return 0, stepwire.ErrWouldBlock
	}
	n := copy(b, p.buf)
	p.buf = p.buf[:copy(p.buf, p.buf[n:])]
	ww := p.writeWaker
	p.writeWaker = nil
	p.mu.Unlock()
	wake(ww)
	return n, nil
}
