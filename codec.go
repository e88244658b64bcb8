package stepwire

// Codec binds a shape T to its resumable encoder and decoder.
//
// StartEncode must behave exactly like NewEncoder followed by one PollEncode,
// and StartDecode like NewDecoder followed by one PollDecode. Composite
// codecs rely on this to call nested StartX directly and only hold a
// continuation once a nested call suspends.
//
// The data passed to StartEncode must not be mutated until the encode
// completes; every PollEncode must be given the same pointer.
type Codec[T any] interface {
	NewEncoder(f Format, data *T) Encoder[T]
	StartEncode(f Format, w Sink, data *T, cx *Context) Start[Unit, Encoder[T]]
	NewDecoder(f Format) Decoder[T]
	StartDecode(f Format, r Source, cx *Context) Start[T, Decoder[T]]
}

// Encoder is an in-flight encode. Polling after Complete or Failed fails.
type Encoder[T any] interface {
	PollEncode(f Format, w Sink, data *T, cx *Context) Poll[Unit]
}

// Decoder is an in-flight decode. Polling after Complete or Failed fails.
type Decoder[T any] interface {
	PollDecode(f Format, r Source, cx *Context) Poll[T]
}

// finished is the continuation left behind by a codec that already
// completed or failed.
type finished[T any] struct{}

func (finished[T]) PollEncode(f Format, _ Sink, _ *T, _ *Context) Poll[Unit] {
	return PollFail[Unit](f.InvalidInput("poll after finish"))
}

func (finished[T]) PollDecode(f Format, _ Source, _ *Context) Poll[T] {
	return PollFail[T](f.InvalidInput("poll after finish"))
}

// startedEncoder runs a Codec's StartEncode on its first poll. It is the
// generic NewEncoder for codecs whose start has nothing to prepare.
type startedEncoder[T any] struct {
	c    Codec[T]
	cont Encoder[T]
}

func lazyEncoder[T any](c Codec[T]) Encoder[T] {
	return &startedEncoder[T]{c: c}
}

func (e *startedEncoder[T]) PollEncode(f Format, w Sink, data *T, cx *Context) Poll[Unit] {
	if e.cont != nil {
		p := e.cont.PollEncode(f, w, data, cx)
		if p.Done() {
			e.cont = finished[T]{}
		}
		return p
	}
	s := e.c.StartEncode(f, w, data, cx)
	if s.State == Suspended {
		e.cont = s.Cont
	} else {
		e.cont = finished[T]{}
	}
	return Forget(s)
}

type startedDecoder[T any] struct {
	c    Codec[T]
	cont Decoder[T]
}

func lazyDecoder[T any](c Codec[T]) Decoder[T] {
	return &startedDecoder[T]{c: c}
}

func (d *startedDecoder[T]) PollDecode(f Format, r Source, cx *Context) Poll[T] {
	if d.cont != nil {
		p := d.cont.PollDecode(f, r, cx)
		if p.Done() {
			d.cont = finished[T]{}
		}
		return p
	}
	s := d.c.StartDecode(f, r, cx)
	if s.State == Suspended {
		d.cont = s.Cont
	} else {
		d.cont = finished[T]{}
	}
	return Forget(s)
}

// settle re-types a start that did not suspend.
func settle[T, C, D any](s Start[T, C]) Start[T, D] {
	return Start[T, D]{State: s.State, Value: s.Value, Err: s.Err}
}

// failedEncoder is an encoder whose init already found the data unusable.
type failedEncoder[T any] struct {
	err error
}

func (e failedEncoder[T]) PollEncode(Format, Sink, *T, *Context) Poll[Unit] {
	return PollFail[Unit](e.err)
}
