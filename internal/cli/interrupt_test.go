package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestNewInterruptHandler(t *testing.T) {
	tests := []struct {
		writer io.Writer
		name   string
	}{
		{name: "with custom writer", writer: &bytes.Buffer{}},
		{name: "with nil writer", writer: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewInterruptHandler(tt.writer)
			assert.NotNil(t, handler.writer)
			assert.False(t, handler.WasInterrupted())
		})
	}
}

func TestHandleInterrupts_ParentCancel(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output)

	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := handler.HandleInterrupts(parent)
	defer stop()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled initially")
	default:
	}

	cancel()
	<-ctx.Done()

	assert.False(t, handler.WasInterrupted())
	assert.Empty(t, output.String())
}

func TestHandleInterrupts_Signal(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output)

	ctx, stop := handler.HandleInterrupts(context.Background())
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not canceled by the signal")
	}

	assert.Eventually(t, handler.WasInterrupted, time.Second, 10*time.Millisecond)
	assert.Contains(t, output.String(), "Interrupted, shutting down")
}

func TestInterrupt_MessageOnce(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output)

	handler.interrupt()
	handler.interrupt()

	assert.Equal(t, 1, strings.Count(output.String(), "Interrupted"))
}
