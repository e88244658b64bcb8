package stepwire

import "github.com/prometheus/client_golang/prometheus"

type meteredSink struct {
	Sink
	bytes prometheus.Counter
}

func (s *meteredSink) TryWrite(cx *Context, p []byte) (int, error) {
	n, err := s.Sink.TryWrite(cx, p)
	if n > 0 {
		s.bytes.Add(float64(n))
	}
	return n, err
}

// countingSource tracks how many bytes were consumed, so a Deserializer
// can tell a clean end of stream from a truncated item.
type countingSource struct {
	src   Source
	n     int64
	bytes prometheus.Counter
}

func (s *countingSource) TryRead(cx *Context, p []byte) (int, error) {
	n, err := s.src.TryRead(cx, p)
	s.add(n)
	return n, err
}

func (s *countingSource) add(n int) {
	if n > 0 {
		s.n += int64(n)
		s.bytes.Add(float64(n))
	}
}

type countingPeeker struct {
	countingSource
	pk Peeker
}

func (s *countingPeeker) TryPeek(cx *Context) ([]byte, error) {
	return s.pk.TryPeek(cx)
}

func (s *countingPeeker) Consume(n int) {
	s.pk.Consume(n)
	s.add(n)
}

// counting wraps r, keeping the Peeker fast path when r has one.
func counting(r Source, cfg *config) (Source, *int64) {
	bytes := cfg.metrics.bytes.WithLabelValues(dirDecode)
	if pk, ok := r.(Peeker); ok {
		cp := &countingPeeker{countingSource: countingSource{src: r, bytes: bytes}, pk: pk}
		return cp, &cp.n
	}
	cs := &countingSource{src: r, bytes: bytes}
	return cs, &cs.n
}
