package stepwire

import (
	"errors"
	"io"
	"slices"
)

// fillChunk bounds how much a FillSlice grows the destination ahead of the
// bytes actually read, so a hostile length prefix cannot force a huge
// allocation.
const fillChunk = 64 << 10

// Cursor tracks progress over an externally owned byte window: off is how
// far the transfer got, end the logical length. off <= end always holds.
// A cursor with end == 0 is in the error state and refuses to resume.
type Cursor struct {
	off int
	end int
}

func NewCursor(end int) Cursor {
	return Cursor{end: end}
}

func (c *Cursor) Offset() int { return c.off }

func (c *Cursor) End() int { return c.end }

func (c *Cursor) Remaining() int { return c.end - c.off }

func (c *Cursor) Failed() bool { return c.end == 0 }

func (c *Cursor) MarkFailed() {
	c.off, c.end = 0, 0
}

// WriteRemaining writes data[off:end] to w. A sink that accepts zero bytes
// fails the cursor with io.ErrShortWrite.
func (c *Cursor) WriteRemaining(w Sink, data []byte, cx *Context) Poll[Unit] {
	if c.Failed() {
		return PollFail[Unit](InputError("write after failure"))
	}
	if c.end > len(data) {
		c.MarkFailed()
		return PollFail[Unit](InputError("cursor past buffer"))
	}
	for c.off < c.end {
		n, err := w.TryWrite(cx, data[c.off:c.end])
		c.off += n
		switch {
		case errors.Is(err, ErrWouldBlock):
			if c.off < c.end {
				return PollSuspend[Unit]()
			}
		case err != nil:
			c.MarkFailed()
			return PollFail[Unit](err)
		case n == 0:
			c.MarkFailed()
			return PollFail[Unit](DataError("write", io.ErrShortWrite))
		}
	}
	return PollComplete(Unit{})
}

// ReadRemaining fills data[off:end] from r. End of input before end fails
// the cursor with io.ErrUnexpectedEOF.
func (c *Cursor) ReadRemaining(r Source, data []byte, cx *Context) Poll[Unit] {
	if c.Failed() {
		return PollFail[Unit](InputError("read after failure"))
	}
	if c.end > len(data) {
		c.MarkFailed()
		return PollFail[Unit](InputError("cursor past buffer"))
	}
	for c.off < c.end {
		n, err := r.TryRead(cx, data[c.off:c.end])
		c.off += n
		if p := c.readStep(n, err); p.State != Complete {
			return p
		}
	}
	return PollComplete(Unit{})
}

// FillSlice appends the remaining end-off bytes to *buf. A Peeker source is
// copied from directly and only the needed bytes are consumed.
func (c *Cursor) FillSlice(r Source, buf *[]byte, cx *Context) Poll[Unit] {
	if c.Failed() {
		return PollFail[Unit](InputError("read after failure"))
	}
	if pk, ok := r.(Peeker); ok {
		for c.off < c.end {
			window, err := pk.TryPeek(cx)
			take := min(len(window), c.end-c.off)
			if take > 0 {
				*buf = append(*buf, window[:take]...)
				pk.Consume(take)
				c.off += take
				continue
			}
			if p := c.readStep(0, err); p.State != Complete {
				return p
			}
		}
		return PollComplete(Unit{})
	}
	for c.off < c.end {
		need := min(c.end-c.off, fillChunk)
		base := len(*buf)
		*buf = slices.Grow(*buf, need)
		n, err := r.TryRead(cx, (*buf)[base:base+need])
		*buf = (*buf)[:base+n]
		c.off += n
		if p := c.readStep(n, err); p.State != Complete {
			return p
		}
	}
	return PollComplete(Unit{})
}

// readStep classifies one read attempt. Complete means keep going.
func (c *Cursor) readStep(n int, err error) Poll[Unit] {
	switch {
	case errors.Is(err, ErrWouldBlock):
		if c.off < c.end {
			return PollSuspend[Unit]()
		}
	case errors.Is(err, io.EOF), err == nil && n == 0:
		if c.off < c.end {
			c.MarkFailed()
			return PollFail[Unit](DataError("read", io.ErrUnexpectedEOF))
		}
	case err != nil:
		if c.off < c.end || n == 0 {
			c.MarkFailed()
			return PollFail[Unit](err)
		}
	}
	return PollComplete(Unit{})
}
