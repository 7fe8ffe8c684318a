package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// LineReader reads lines from an input stream and gives up when its context ends.
type LineReader struct {
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewLineReader creates a reader over r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{reader: bufio.NewReader(r)}
}

// ReadLine returns the next line without surrounding whitespace. A final line
// without a newline is returned with a nil error; io.EOF follows it.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		value, err := r.reader.ReadString('\n')
		if errors.Is(err, io.EOF) && value != "" {
			err = nil
		}
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		// The pending read finishes in the background.
		return "", ErrInputCancelled
	case res := <-resultCh:
		return strings.TrimSpace(res.value), res.err
	}
}
