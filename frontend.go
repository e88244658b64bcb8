package stepwire

import (
	"errors"
	"io"

	"go.uber.org/zap"
)

type streamState uint8

const (
	stateReady streamState = iota
	statePending
	stateFailed
	stateClosed
)

func (s streamState) String() string {
	switch s {
	case stateReady:
		return "ready"
	case statePending:
		return "pending"
	case stateFailed:
		return "failed"
	default:
		return "closed"
	}
}

// Serializer writes a stream of T values to a Sink, one item in flight at
// a time. A new item is accepted only once the previous one has been fully
// written, which gives the caller backpressure.
//
// Any failure is terminal: later calls return the same error.
type Serializer[T any] struct {
	f     Format
	c     Codec[T]
	w     *meteredSink
	cfg   *config
	state streamState
	item  T
	enc   Encoder[T]
	err   error
}

func NewSerializer[T any](f Format, c Codec[T], w Sink, options ...FrontOption) *Serializer[T] {
	cfg := newConfig(options...)
	return &Serializer[T]{
		f:   f,
		c:   c,
		w:   &meteredSink{Sink: w, bytes: cfg.metrics.bytes.WithLabelValues(dirEncode)},
		cfg: cfg,
	}
}

// Ready reports whether StartSend would accept an item now.
func (s *Serializer[T]) Ready() bool {
	return s.state == stateReady
}

// PollReady drives the pending item. It returns nil once a new item can be
// sent, ErrWouldBlock while the sink is not ready, or the terminal error.
func (s *Serializer[T]) PollReady(cx *Context) error {
	switch s.state {
	case stateReady:
		return nil
	case stateFailed:
		return s.err
	case stateClosed:
		return s.f.InvalidInput("serializer closed")
	}
	p := s.enc.PollEncode(s.f, s.w, &s.item, cx)
	switch p.State {
	case Complete:
		var zero T
		s.item, s.enc = zero, nil
		s.state = stateReady
		s.cfg.metrics.items.WithLabelValues(dirEncode).Inc()
		return nil
	case Suspended:
		s.cfg.metrics.suspensions.WithLabelValues(dirEncode).Inc()
		return ErrWouldBlock
	default:
		return s.fail(p.Err)
	}
}

// StartSend takes ownership of item and begins encoding it. It is valid
// only while Ready; the bytes are written by the following polls.
func (s *Serializer[T]) StartSend(item T) error {
	if s.state != stateReady {
		if s.state == stateFailed {
			return s.err
		}
		return s.fail(s.f.InvalidInput("send while " + s.state.String()))
	}
	s.item = item
	s.enc = s.c.NewEncoder(s.f, &s.item)
	s.state = statePending
	return nil
}

// PollFlush finishes the pending item and flushes the sink.
func (s *Serializer[T]) PollFlush(cx *Context) error {
	if err := s.PollReady(cx); err != nil {
		return err
	}
	if err := s.w.TryFlush(cx); err != nil {
		if errors.Is(err, ErrWouldBlock) {
			return err
		}
		return s.fail(err)
	}
	return nil
}

// PollClose finishes the pending item and closes the sink. Closing twice is
// a no-op.
func (s *Serializer[T]) PollClose(cx *Context) error {
	if s.state == stateClosed {
		return nil
	}
	if err := s.PollReady(cx); err != nil {
		return err
	}
	if err := s.w.TryClose(cx); err != nil {
		if errors.Is(err, ErrWouldBlock) {
			return err
		}
		return s.fail(err)
	}
	s.state = stateClosed
	s.cfg.logger.Debug("serializer closed")
	return nil
}

// IntoSink releases the underlying sink. It fails while an item is pending.
func (s *Serializer[T]) IntoSink() (Sink, error) {
	if s.state == statePending {
		return nil, s.f.InvalidInput("item pending")
	}
	return s.w.Sink, nil
}

func (s *Serializer[T]) fail(err error) error {
	s.state, s.err, s.enc = stateFailed, err, nil
	s.cfg.metrics.failed(dirEncode, err)
	s.cfg.logger.Warn("serializer failed", zap.Error(err), zap.String("kind", string(KindOf(err))))
	return err
}

// Deserializer reads a stream of T values from a Source.
type Deserializer[T any] struct {
	f     Format
	c     Codec[T]
	r     Source
	count *int64
	cfg   *config
	state streamState
	mark  int64
	dec   Decoder[T]
	err   error
	inner Source
}

func NewDeserializer[T any](f Format, c Codec[T], r Source, options ...FrontOption) *Deserializer[T] {
	cfg := newConfig(options...)
	d := &Deserializer[T]{f: f, c: c, cfg: cfg, inner: r}
	d.r, d.count = counting(r, cfg)
	return d
}

// Ready reports whether no item is partially decoded.
func (d *Deserializer[T]) Ready() bool {
	return d.state == stateReady
}

// PollNext decodes the next item. It returns ErrWouldBlock while the source
// is not ready and io.EOF once the source ends cleanly between items.
func (d *Deserializer[T]) PollNext(cx *Context) (T, error) {
	var zero T
	switch d.state {
	case stateFailed:
		return zero, d.err
	case stateClosed:
		return zero, io.EOF
	case stateReady:
		d.mark = *d.count
		s := d.c.StartDecode(d.f, d.r, cx)
		if s.State == Suspended {
			d.dec = s.Cont
		}
		return d.settle(Forget(s))
	default:
		return d.settle(d.dec.PollDecode(d.f, d.r, cx))
	}
}

func (d *Deserializer[T]) settle(p Poll[T]) (T, error) {
	switch p.State {
	case Complete:
		d.state, d.dec = stateReady, nil
		d.cfg.metrics.items.WithLabelValues(dirDecode).Inc()
		return p.Value, nil
	case Suspended:
		d.state = statePending
		d.cfg.metrics.suspensions.WithLabelValues(dirDecode).Inc()
		return p.Value, ErrWouldBlock
	}
	d.dec = nil
	if *d.count == d.mark && errors.Is(p.Err, io.ErrUnexpectedEOF) {
		d.state = stateClosed
		d.cfg.logger.Debug("deserializer reached end of input")
		return p.Value, io.EOF
	}
	d.state, d.err = stateFailed, p.Err
	d.cfg.metrics.failed(dirDecode, p.Err)
	d.cfg.logger.Warn("deserializer failed", zap.Error(p.Err), zap.String("kind", string(KindOf(p.Err))))
	return p.Value, p.Err
}

// IntoSource releases the underlying source. It fails while an item is
// partially decoded.
func (d *Deserializer[T]) IntoSource() (Source, error) {
	if d.state == statePending {
		return nil, d.f.InvalidInput("item pending")
	}
	return d.inner, nil
}
