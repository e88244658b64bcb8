package stepwire

// MaxWidth is the capacity of a BufferState, enough for any fixed-width
// primitive or a 64-bit varint.
const MaxWidth = 16

// BufferState owns a small fixed array and a cursor over it. Primitive
// codecs stage their bytes here so a partial transfer can resume.
type BufferState struct {
	buf [MaxWidth]byte
	cur Cursor
}

// BufferWith stages b for writing. b must fit in MaxWidth.
func BufferWith(b []byte) BufferState {
	if len(b) > MaxWidth {
		panic("stepwire: primitive wider than buffer state")
	}
	var s BufferState
	copy(s.buf[:], b)
	s.cur = NewCursor(len(b))
	return s
}

// BufferFor prepares to read n bytes.
func BufferFor(n int) BufferState {
	if n > MaxWidth {
		panic("stepwire: primitive wider than buffer state")
	}
	return BufferState{cur: NewCursor(n)}
}

func (s *BufferState) Write(w Sink, cx *Context) Poll[Unit] {
	return s.cur.WriteRemaining(w, s.buf[:], cx)
}

func (s *BufferState) Read(r Source, cx *Context) Poll[Unit] {
	return s.cur.ReadRemaining(r, s.buf[:], cx)
}

// Bytes returns the staged bytes. After a complete Read it is the value read.
func (s *BufferState) Bytes() []byte {
	return s.buf[:s.cur.end]
}

func (s *BufferState) Failed() bool {
	return s.cur.Failed()
}
