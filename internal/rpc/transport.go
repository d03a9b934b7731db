package rpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize is the maximum size for a single message. Requests carry
// whole editor buffers, so this is well above bufio's 64KB default.
const MaxMessageSize = 8 * 1024 * 1024

// errParse marks a line that was read but is not a JSON-RPC message
type errParse struct {
	err error
}

func (e *errParse) Error() string { return "error parsing JSON-RPC message: " + e.err.Error() }
func (e *errParse) Unwrap() error { return e.err }

type reader struct {
	scanner *bufio.Scanner
}

func newReader(r io.Reader) *reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	return &reader{scanner: scanner}
}

// readMessage reads one newline-delimited JSON-RPC message. Blank lines are
// skipped; io.EOF is returned at end of input.
func (r *reader) readMessage() (*Message, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, &errParse{err: err}
		}
		return &msg, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	return nil, io.EOF
}

// writeMessage writes a JSON-RPC message followed by a newline. The caller
// serializes concurrent writers.
func writeMessage(w io.Writer, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling JSON-RPC message: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}
	return nil
}
