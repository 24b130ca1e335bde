package slogx

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestChanWriter_SplitsLines(t *testing.T) {
	ch := make(chan string, 4)
	w := &ChanWriter{Ch: ch}

	_, _ = w.Write([]byte("first\nsec"))
	_, _ = w.Write([]byte("ond\n"))

	assert.Equal(t, "first", <-ch)
	assert.Equal(t, "second", <-ch)
	assert.Empty(t, w.Buf)
}

func TestChanWriter_DropsWhenFull(t *testing.T) {
	ch := make(chan string, 1)
	w := &ChanWriter{Ch: ch}
	n, err := w.Write([]byte("a\nb\n"))
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "a", <-ch)
	assert.Len(t, ch, 0)
}

func TestNewChanLogger_RespectsLevel(t *testing.T) {
	ch := make(chan string, 4)
	l := NewChanLogger(ch, slog.LevelWarn)
	l.Info("hidden")
	l.Warn("shown", "eid", "320193")
	line := <-ch
	assert.Contains(t, line, "shown")
	assert.Contains(t, line, "eid=320193")
	assert.Len(t, ch, 0)
}

func TestFromContext(t *testing.T) {
	assert.Same(t, Default, FromContext(context.Background()))

	l := slog.New(slog.NewTextHandler(nil, nil))
	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}
