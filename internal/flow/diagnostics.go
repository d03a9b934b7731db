package flow

import (
	"encoding/json"
	"strings"

	"flowbridge/internal/errors"
)

// Diagnostic is one error or warning reported by the worker
type Diagnostic struct {
	Kind    string        `json:"kind,omitempty" yaml:"kind,omitempty"`
	Level   string        `json:"level" yaml:"level"`
	Message []MessagePart `json:"message" yaml:"message"`
}

// MessagePart is a fragment of a diagnostic message, optionally anchored to
// a source range (1-based, as reported by the worker).
type MessagePart struct {
	Descr   string `json:"descr" yaml:"descr"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	EndLine int    `json:"endline,omitempty" yaml:"endline,omitempty"`
	Start   int    `json:"start,omitempty" yaml:"start,omitempty"`
	End     int    `json:"end,omitempty" yaml:"end,omitempty"`
}

// Text joins the message descriptions
func (d Diagnostic) Text() string {
	parts := make([]string, 0, len(d.Message))
	for _, m := range d.Message {
		if m.Descr != "" {
			parts = append(parts, m.Descr)
		}
	}
	return strings.Join(parts, " ")
}

// Location returns the first anchored message part, if any
func (d Diagnostic) Location() (MessagePart, bool) {
	for _, m := range d.Message {
		if m.Path != "" {
			return m, true
		}
	}
	return MessagePart{}, false
}

var diagnosticsRequest = requestSpec[[]Diagnostic]{
	kind: KindDiagnostics,
	build: func(q Query) ([]string, *string) {
		if q.Contents != nil {
			return []string{"check-contents", "--json", q.File}, q.Contents
		}
		return []string{"status", "--json", q.File}, nil
	},
	decode: decodeDiagnostics,
	empty:  []Diagnostic{},
}

// decodeDiagnostics treats a failed command with an exit code as a normal
// result: the worker exits non-zero whenever errors exist.
func decodeDiagnostics(_ Query, out *Output, err error) ([]Diagnostic, error) {
	payload := ""
	if err != nil {
		var cmdErr *CommandError
		if !errors.As(err, &cmdErr) || !cmdErr.HasExitCode() {
			return nil, err
		}
		payload = cmdErr.Stdout
	} else {
		payload = out.Stdout
	}

	var result struct {
		Errors []Diagnostic `json:"errors"`
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, decodeError(KindDiagnostics, err)
	}
	if result.Errors == nil {
		return []Diagnostic{}, nil
	}
	return result.Errors, nil
}
