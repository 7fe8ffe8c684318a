package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels a context on SIGINT or SIGTERM and tells the user.
type InterruptHandler struct {
	writer      io.Writer
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a handler that writes its notice to writer.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stderr
	}
	return &InterruptHandler{writer: writer}
}

// HandleInterrupts returns a context canceled on the first interrupt signal.
// The returned stop function releases the signal subscription.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			h.interrupt()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func (h *InterruptHandler) interrupt() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.interrupted {
		return
	}
	h.interrupted = true

	if _, err := fmt.Fprintln(h.writer, "\n"+FormatInfo("Interrupted, shutting down...")); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted reports whether a signal was received.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
