package stepwire

import (
	"errors"
	"strings"
)

// Kind separates misuse of the library from bad input bytes.
type Kind string

const (
	// KindInvalidInput is a protocol violation by the calling code, such as
	// polling a finished codec or encoding data that contradicts a committed
	// discriminant.
	KindInvalidInput Kind = "invalid_input"
	// KindInvalidData is a problem visible only from the bytes: unknown
	// discriminants, malformed text, truncated streams.
	KindInvalidData Kind = "invalid_data"
)

var (
	ErrInvalidInput error = &Error{Kind: KindInvalidInput}
	ErrInvalidData  error = &Error{Kind: KindInvalidData}

	// ErrWouldBlock is returned by sinks, sources and front ends that cannot
	// make progress right now. The context passed to the call is woken once
	// they can.
	ErrWouldBlock = errors.New("operation would block")

	ErrNotStruct   = errors.New("expected struct")
	ErrUnsupported = errors.New("unsupported field type")
)

// Error is the structured error returned by codecs and cursors.
type Error struct {
	Kind Kind
	// Op names the codec step that failed, e.g. "discriminant" or "utf8".
	Op    string
	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrInvalidData)
// holds for every data error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind && (t.Op == "" || t.Op == e.Op)
	}
	return false
}

// InputError builds an invalid input error for op.
func InputError(op string) error {
	return &Error{Kind: KindInvalidInput, Op: op}
}

// DataError builds an invalid data error for op. cause may be nil.
func DataError(op string, cause error) error {
	return &Error{Kind: KindInvalidData, Op: op, Cause: cause}
}

// KindOf reports the kind of err, or "" when err is not a codec error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
