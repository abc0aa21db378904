package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestWins(t *testing.T) {
	l := NewLatest[int]()
	for i := 1; i <= 5; i++ {
		assert.True(t, l.Put(i))
	}
	v, err := l.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.Equal(t, uint64(4), l.Dropped())
}

func TestNextBlocks(t *testing.T) {
	l := NewLatest[string]()
	got := make(chan string)
	go func() {
		v, err := l.Next(context.Background())
		assert.NoError(t, err)
		got <- v
	}()

	select {
	case <-got:
		t.Fatal("Next returned before Put")
	case <-time.After(20 * time.Millisecond):
	}
	l.Put("frame")
	assert.Equal(t, "frame", <-got)
}

func TestCloseDrains(t *testing.T) {
	l := NewLatest[int]()
	l.Put(1)
	l.Close()
	l.Close()
	assert.False(t, l.Put(2))

	v, err := l.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = l.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseWakesNext(t *testing.T) {
	l := NewLatest[int]()
	errs := make(chan error)
	go func() {
		_, err := l.Next(context.Background())
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	l.Close()
	assert.ErrorIs(t, <-errs, ErrClosed)
}

func TestNextContext(t *testing.T) {
	l := NewLatest[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := l.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlowConsumer(t *testing.T) {
	l := NewLatest[int]()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			l.Put(i)
		}
		l.Close()
	}()

	last := -1
	for {
		v, err := l.Next(context.Background())
		if err != nil {
			break
		}
		assert.Greater(t, v, last, "values arrive in order")
		last = v
		time.Sleep(time.Microsecond)
	}
	<-done
	assert.Equal(t, 999, last)
}
