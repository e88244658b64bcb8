package stepwire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type cont struct{ id int }

func TestStartCombinators(t *testing.T) {
	double := func(v int) int { return v * 2 }
	wrap := func(c cont) cont { return cont{c.id + 100} }

	s := MapStart(StartComplete[int, cont](21), double)
	require.Equal(t, Complete, s.State)
	assert.Equal(t, 42, s.Value)

	s = MapStart(StartSuspend[int](cont{1}), double)
	require.Equal(t, Suspended, s.State)
	assert.Equal(t, cont{1}, s.Cont)

	s = MapStart(StartFail[int, cont](errBoom), double)
	require.Equal(t, Failed, s.State)
	assert.ErrorIs(t, s.Err, errBoom)

	p := MapPending(StartSuspend[int](cont{1}), wrap)
	assert.Equal(t, cont{101}, p.Cont)
	p = MapPending(StartComplete[int, cont](3), wrap)
	assert.Equal(t, 3, p.Value)

	b := Bimap(StartComplete[int, cont](4), double, wrap)
	assert.Equal(t, 8, b.Value)
	b = Bimap(StartSuspend[int](cont{2}), double, wrap)
	assert.Equal(t, cont{102}, b.Cont)
}

func TestThenStartShortCircuits(t *testing.T) {
	called := false
	next := func(v int) Start[string, cont] {
		called = true
		return StartComplete[string, cont]("ok")
	}
	wrap := func(c cont) cont { return c }

	s := ThenStart(StartFail[int, cont](errBoom), next, wrap)
	assert.False(t, called)
	assert.Equal(t, Failed, s.State)
	assert.ErrorIs(t, s.Err, errBoom)

	s = ThenStart(StartSuspend[int](cont{7}), next, wrap)
	assert.False(t, called)
	assert.Equal(t, cont{7}, s.Cont)

	s = ThenStart(StartComplete[int, cont](1), next, wrap)
	assert.True(t, called)
	assert.Equal(t, "ok", s.Value)
}

func TestPollCombinators(t *testing.T) {
	l := Lift[int](PollSuspend[int](), cont{5})
	assert.Equal(t, Suspended, l.State)
	assert.Equal(t, cont{5}, l.Cont)

	l = Lift[int](PollComplete(9), cont{5})
	assert.Equal(t, cont{}, l.Cont)
	assert.Equal(t, 9, l.Value)

	f := Forget(StartSuspend[int](cont{1}))
	assert.False(t, f.Done())

	m := MapPoll(PollComplete(2), func(v int) string { return "x" })
	assert.Equal(t, "x", m.Value)

	th := ThenPoll(PollFail[int](errBoom), func(int) Poll[int] {
		t.Fatal("must not run on failure")
		return PollComplete(0)
	})
	assert.ErrorIs(t, th.Err, errBoom)

	e := MapErr(PollFail[int](errBoom), func(err error) error { return DataError("wrapped", err) })
	assert.ErrorIs(t, e.Err, ErrInvalidData)
	assert.ErrorIs(t, e.Err, errBoom)

	ok := MapErr(PollComplete(1), func(error) error { return errBoom })
	assert.NoError(t, ok.Err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "complete", Complete.String())
	assert.Equal(t, "suspended", Suspended.String())
	assert.Equal(t, "failed", Failed.String())
}

func TestErrorKinds(t *testing.T) {
	err := DataError("discriminant", nil)
	assert.ErrorIs(t, err, ErrInvalidData)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, &Error{Kind: KindInvalidData, Op: "discriminant"})
	assert.NotErrorIs(t, err, &Error{Kind: KindInvalidData, Op: "utf8"})
	assert.Equal(t, KindInvalidData, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errBoom))
	assert.Equal(t, "invalid_input: poll after finish", InputError("poll after finish").Error())
	assert.Contains(t, DataError("read", errBoom).Error(), "caused by: boom")
}
