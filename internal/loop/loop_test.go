package loop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfterFuncRunsOnLoop(t *testing.T) {
	l := New()
	defer l.Close()

	fired := make(chan struct{})
	l.AfterFunc(5*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestTimerStop(t *testing.T) {
	l := New()
	defer l.Close()

	var n atomic.Int32
	tm := l.AfterFunc(30*time.Millisecond, func() { n.Add(1) })
	require.NoError(t, l.DoSync(context.Background(), func() error {
		tm.Stop()
		return nil
	}))
	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, n.Load())
}

func TestDoSyncOrdering(t *testing.T) {
	l := New()
	defer l.Close()

	var seen []int
	for i := range 5 {
		l.Do(func() { seen = append(seen, i) })
	}
	var got []int
	require.NoError(t, l.DoSync(context.Background(), func() error {
		got = append(got, seen...)
		return nil
	}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestDoSyncPropagatesError(t *testing.T) {
	l := New()
	defer l.Close()

	boom := errors.New("boom")
	err := l.DoSync(context.Background(), func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestClosedLoopRejectsWork(t *testing.T) {
	l := New()
	l.Close()
	l.Close()

	assert.False(t, l.Do(func() {}))
	assert.ErrorIs(t, l.DoSync(context.Background(), func() error { return nil }), ErrStopped)
	select {
	case <-l.Done():
	default:
		t.Fatal("Done not closed")
	}
}
