package flow

import (
	"context"
	"log/slog"

	"flowbridge/internal/errors"
)

// RequestKind identifies one of the request shapes sent to the worker
type RequestKind int

const (
	KindDefinition RequestKind = iota
	KindDiagnostics
	KindAutocomplete
	KindTypeAtPos
)

func (k RequestKind) String() string {
	switch k {
	case KindDefinition:
		return "definition"
	case KindDiagnostics:
		return "diagnostics"
	case KindAutocomplete:
		return "autocomplete"
	case KindTypeAtPos:
		return "type-at-pos"
	default:
		return "unknown"
	}
}

// Query is the caller-side input shared by all request kinds.
// Line and Col are 0-based.
type Query struct {
	File     string
	Contents *string
	Line     int
	Col      int
	Prefix   string
}

// requestSpec is one request kind: how to build the invocation and how to
// decode its result. decode receives the executor error so a kind can
// salvage output from a failed command.
type requestSpec[T any] struct {
	kind   RequestKind
	build  func(q Query) (args []string, stdin *string)
	decode func(q Query, out *Output, err error) (T, error)
	empty  T
}

// runRequest is the single build, execute, decode pipeline. It never fails:
// every problem is logged and degrades to spec.empty.
func runRequest[T any](ctx context.Context, e *Executor, logger *slog.Logger, spec requestSpec[T], q Query) T {
	args, stdin := spec.build(q)
	out, err := e.Execute(ctx, args, stdin, q.File)
	if out == nil && err == nil {
		return spec.empty
	}

	v, err := spec.decode(q, out, err)
	if err != nil {
		level := slog.LevelWarn
		if errors.CodeOf(err) == errors.ShuttingDown {
			level = slog.LevelDebug
		}
		logger.Log(ctx, level, "Request produced no result",
			"kind", spec.kind.String(),
			"file", q.File,
			"code", string(errors.CodeOf(err)),
			"error", err.Error(),
		)
		return spec.empty
	}
	return v
}

func decodeError(kind RequestKind, cause error) error {
	return errors.NewBridgeError(errors.DecodeFailed, "malformed "+kind.String()+" output", cause, nil)
}
