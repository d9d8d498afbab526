package bulk

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// ErrIncompleteStream is returned when a stream ends without a terminal event.
var ErrIncompleteStream = errors.New("progress stream ended without a terminal event")

// RunError is returned by Collect when a run ended with an error event.
type RunError struct {
	Message string
}

func (e *RunError) Error() string {
	return "bulk run failed: " + e.Message
}

var dataPrefix = []byte("data: ")

// WriteEvent writes ev as one server-sent event and flushes w when it buffers.
func WriteEvent(w io.Writer, ev ProgressEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode progress event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return err
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// ReadEvents decodes a server-sent event stream up to and including its terminal
// event. Lines without the data prefix are ignored. The events read so far are
// returned together with ErrIncompleteStream when the stream ends early.
func ReadEvents(r io.Reader) ([]ProgressEvent, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 10<<20) // allow large lines

	var events []ProgressEvent
	for sc.Scan() {
		line := sc.Bytes()
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		var ev ProgressEvent
		if err := json.Unmarshal(bytes.TrimPrefix(line, dataPrefix), &ev); err != nil {
			return events, fmt.Errorf("failed to decode progress event: %w", err)
		}
		events = append(events, ev)
		if ev.Phase.Terminal() {
			return events, nil
		}
	}
	if err := sc.Err(); err != nil {
		return events, err
	}
	return events, ErrIncompleteStream
}

// Collect drains ch and returns the terminal result. An error event yields its
// partial result together with a *RunError.
func Collect(ch <-chan ProgressEvent) (*Result, error) {
	for ev := range ch {
		if !ev.Phase.Terminal() {
			continue
		}
		result := ev.Result
		if result == nil {
			result = &Result{}
		}
		// Drain anything after the terminal event so the producer can exit
		for range ch {
		}
		if ev.Phase == PhaseError {
			return result, &RunError{Message: ev.Message}
		}
		return result, nil
	}
	return nil, ErrIncompleteStream
}
