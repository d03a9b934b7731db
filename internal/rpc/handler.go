package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Position params are 0-based
type fileParams struct {
	File     string  `json:"file"`
	Contents *string `json:"contents,omitempty"`
	Line     int     `json:"line"`
	Column   int     `json:"column"`
	Prefix   string  `json:"prefix,omitempty"`
}

// TypeResult is the typeAtPos response; Type is null when unknown
type TypeResult struct {
	Type *string `json:"type"`
}

type handlerFunc func(ctx context.Context, p *fileParams) (interface{}, error)

// handleMessage handles one request or notification and returns the
// response, or nil for notifications.
func (s *Server) handleMessage(ctx context.Context, msg *Message) *Message {
	start := time.Now()
	s.logger.Debug("Handling request", "method", msg.Method, "id", msg.Id)

	result, rpcErr := s.call(ctx, msg)

	s.logger.Debug("Handled request",
		"method", msg.Method,
		"id", msg.Id,
		"duration", time.Since(start).String(),
	)

	if msg.IsNotification() {
		return nil
	}
	if rpcErr != nil {
		return NewErrorMessage(msg.Id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	resp, err := NewResultMessage(msg.Id, result)
	if err != nil {
		return NewErrorMessage(msg.Id, InternalError, err.Error(), nil)
	}
	return resp
}

func (s *Server) call(ctx context.Context, msg *Message) (interface{}, *Error) {
	switch msg.Method {
	case "status":
		return s.backend.Status(), nil
	case "shutdown":
		if err := s.backend.Shutdown(); err != nil {
			return nil, &Error{Code: InternalError, Message: err.Error()}
		}
		s.requestStop()
		return nil, nil
	}

	h, ok := s.fileHandlers()[msg.Method]
	if !ok {
		return nil, &Error{Code: MethodNotFound, Message: fmt.Sprintf("Method not found: %s", msg.Method)}
	}

	p, rpcErr := parseFileParams(msg.Method, msg.Params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	result, err := h(ctx, p)
	if err != nil {
		return nil, &Error{Code: InternalError, Message: err.Error()}
	}
	return result, nil
}

func (s *Server) fileHandlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		"definition": func(ctx context.Context, p *fileParams) (interface{}, error) {
			return s.backend.Definition(ctx, p.File, p.Contents, p.Line, p.Column), nil
		},
		"diagnostics": func(ctx context.Context, p *fileParams) (interface{}, error) {
			return s.backend.Diagnostics(ctx, p.File, p.Contents), nil
		},
		"autocomplete": func(ctx context.Context, p *fileParams) (interface{}, error) {
			return s.backend.Autocomplete(ctx, p.File, *p.Contents, p.Line, p.Column, p.Prefix), nil
		},
		"typeAtPos": func(ctx context.Context, p *fileParams) (interface{}, error) {
			typ, ok := s.backend.TypeAtPosition(ctx, p.File, p.Contents, p.Line, p.Column)
			if !ok {
				return TypeResult{}, nil
			}
			return TypeResult{Type: &typ}, nil
		},
	}
}

func parseFileParams(method string, raw json.RawMessage) (*fileParams, *Error) {
	if len(raw) == 0 {
		return nil, &Error{Code: InvalidParams, Message: "params are required"}
	}
	var p fileParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &Error{Code: InvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	if p.File == "" {
		return nil, &Error{Code: InvalidParams, Message: "missing required parameter: file", Data: map[string]string{"field": "file"}}
	}
	if p.Line < 0 || p.Column < 0 {
		return nil, &Error{Code: InvalidParams, Message: "line and column must be non-negative"}
	}
	if method == "autocomplete" && p.Contents == nil {
		return nil, &Error{Code: InvalidParams, Message: "missing required parameter: contents", Data: map[string]string{"field": "contents"}}
	}
	return &p, nil
}
