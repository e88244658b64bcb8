package stepwire

import (
	"bytes"
	"context"
)

// Encode writes *v to w, waiting on the context's waker whenever w is not
// ready. It returns ctx.Err() if ctx ends first; the sink may then hold a
// partial item. The sink is not flushed.
func Encode[T any](ctx context.Context, f Format, w Sink, c Codec[T], v *T) error {
	sig := NewSignal()
	cx := NewContext(sig)
	s := c.StartEncode(f, w, v, cx)
	if s.State != Suspended {
		return s.Err
	}
	e := s.Cont
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sig.C():
		}
		if p := e.PollEncode(f, w, v, cx); p.Done() {
			return p.Err
		}
	}
}

// Decode reads one T from r, waiting whenever r is not ready.
func Decode[T any](ctx context.Context, f Format, r Source, c Codec[T]) (T, error) {
	sig := NewSignal()
	cx := NewContext(sig)
	s := c.StartDecode(f, r, cx)
	if s.State != Suspended {
		return s.Value, s.Err
	}
	d := s.Cont
	for {
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-sig.C():
		}
		if p := d.PollDecode(f, r, cx); p.Done() {
			return p.Value, p.Err
		}
	}
}

// Marshal encodes v into a new byte slice.
func Marshal[T any](f Format, c Codec[T], v T) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 64))
	if err := Encode(context.Background(), f, WriterSink(buf), c, &v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes exactly one T from data. Bytes left over after the
// value are invalid data.
func Unmarshal[T any](f Format, c Codec[T], data []byte) (T, error) {
	src := BytesSource(data)
	v, err := Decode(context.Background(), f, src, c)
	if err != nil {
		return v, err
	}
	if src.Len() != 0 {
		var zero T
		return zero, f.InvalidData("trailing bytes")
	}
	return v, nil
}
