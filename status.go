package stepwire

// State tags the outcome of a codec step.
type State uint8

const (
	// Complete means the operation finished and the value is valid.
	Complete State = iota
	// Suspended means the sink or source was not ready. The caller keeps the
	// continuation and polls it again once woken.
	Suspended
	// Failed means the operation stopped for good with Err.
	Failed
)

func (s State) String() string {
	switch s {
	case Complete:
		return "complete"
	case Suspended:
		return "suspended"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Unit is the value produced by an encode.
type Unit = struct{}

// Start is the result of the first attempt at an operation. A Suspended
// start carries the continuation that resumes it.
type Start[T, C any] struct {
	State State
	Value T
	Cont  C
	Err   error
}

// Poll is the result of resuming a continuation. It carries no continuation
// since the receiver being polled is the continuation.
type Poll[T any] struct {
	State State
	Value T
	Err   error
}

func StartComplete[T, C any](v T) Start[T, C] {
	return Start[T, C]{State: Complete, Value: v}
}

func StartSuspend[T, C any](c C) Start[T, C] {
	return Start[T, C]{State: Suspended, Cont: c}
}

func StartFail[T, C any](err error) Start[T, C] {
	return Start[T, C]{State: Failed, Err: err}
}

func PollComplete[T any](v T) Poll[T] {
	return Poll[T]{State: Complete, Value: v}
}

func PollSuspend[T any]() Poll[T] {
	return Poll[T]{State: Suspended}
}

func PollFail[T any](err error) Poll[T] {
	return Poll[T]{State: Failed, Err: err}
}

// Done reports whether the start finished, successfully or not.
func (s Start[T, C]) Done() bool { return s.State != Suspended }

// Done reports whether the poll finished, successfully or not.
func (p Poll[T]) Done() bool { return p.State != Suspended }

// MapStart transforms the value of a complete start.
func MapStart[T, U, C any](s Start[T, C], f func(T) U) Start[U, C] {
	switch s.State {
	case Complete:
		return StartComplete[U, C](f(s.Value))
	case Suspended:
		return StartSuspend[U](s.Cont)
	default:
		return StartFail[U, C](s.Err)
	}
}

// MapPending transforms the continuation of a suspended start.
func MapPending[T, C, D any](s Start[T, C], g func(C) D) Start[T, D] {
	switch s.State {
	case Complete:
		return StartComplete[T, D](s.Value)
	case Suspended:
		return StartSuspend[T](g(s.Cont))
	default:
		return StartFail[T, D](s.Err)
	}
}

// Bimap transforms both the value and the continuation.
func Bimap[T, U, C, D any](s Start[T, C], f func(T) U, g func(C) D) Start[U, D] {
	switch s.State {
	case Complete:
		return StartComplete[U, D](f(s.Value))
	case Suspended:
		return StartSuspend[U](g(s.Cont))
	default:
		return StartFail[U, D](s.Err)
	}
}

// ThenStart chains the next step after a complete start. A suspended start
// has its continuation wrapped by g so the enclosing codec can store it.
func ThenStart[T, U, C, D any](s Start[T, C], f func(T) Start[U, D], g func(C) D) Start[U, D] {
	switch s.State {
	case Complete:
		return f(s.Value)
	case Suspended:
		return StartSuspend[U](g(s.Cont))
	default:
		return StartFail[U, D](s.Err)
	}
}

// Lift turns a poll into a start by attaching the continuation that was
// just polled.
func Lift[T, C any](p Poll[T], c C) Start[T, C] {
	switch p.State {
	case Complete:
		return StartComplete[T, C](p.Value)
	case Suspended:
		return StartSuspend[T](c)
	default:
		return StartFail[T, C](p.Err)
	}
}

// Forget drops the continuation of a start, keeping only its outcome.
func Forget[T, C any](s Start[T, C]) Poll[T] {
	return Poll[T]{State: s.State, Value: s.Value, Err: s.Err}
}

func MapPoll[T, U any](p Poll[T], f func(T) U) Poll[U] {
	switch p.State {
	case Complete:
		return PollComplete(f(p.Value))
	case Suspended:
		return PollSuspend[U]()
	default:
		return PollFail[U](p.Err)
	}
}

func ThenPoll[T, U any](p Poll[T], f func(T) Poll[U]) Poll[U] {
	switch p.State {
	case Complete:
		return f(p.Value)
	case Suspended:
		return PollSuspend[U]()
	default:
		return PollFail[U](p.Err)
	}
}

// MapErr rewrites the error of a failed poll.
func MapErr[T any](p Poll[T], f func(error) error) Poll[T] {
	if p.State == Failed {
		p.Err = f(p.Err)
	}
	return p
}
