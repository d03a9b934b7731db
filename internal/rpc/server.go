package rpc

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"flowbridge/internal/flow"
)

// Backend is the set of supervisor operations exposed over JSON-RPC
type Backend interface {
	Definition(ctx context.Context, file string, contents *string, line, col int) *flow.Definition
	Diagnostics(ctx context.Context, file string, contents *string) []flow.Diagnostic
	Autocomplete(ctx context.Context, file, contents string, line, col int, prefix string) []flow.Completion
	TypeAtPosition(ctx context.Context, file string, contents *string, line, col int) (string, bool)
	Status() flow.Status
	Shutdown() error
}

// Server answers newline-delimited JSON-RPC 2.0 requests. Requests are
// handled concurrently; responses may arrive out of order.
type Server struct {
	backend Backend
	logger  *slog.Logger
	session string

	writeMu sync.Mutex
	out     io.Writer

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

// NewServer creates a server over backend
func NewServer(backend Backend, logger *slog.Logger) *Server {
	session := uuid.NewString()
	return &Server{
		backend: backend,
		logger:  logger.With("session", session[:8]),
		session: session,
		stop:    make(chan struct{}),
	}
}

// Session returns the unique ID of this server instance
func (s *Server) Session() string {
	return s.session
}

// Serve reads requests from r and writes responses to w until r is
// exhausted, ctx is cancelled or a shutdown request is handled. In-flight
// requests are allowed to finish before Serve returns.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.out = w
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Info("RPC server starting")

	type readResult struct {
		msg *Message
		err error
	}
	incoming := make(chan readResult)
	rd := newReader(r)
	go func() {
		for {
			msg, err := rd.readMessage()
			select {
			case incoming <- readResult{msg, err}:
			case <-ctx.Done():
				return
			}
			var perr *errParse
			if err != nil && !stderrors.As(err, &perr) {
				return
			}
		}
	}()

	var serveErr error
loop:
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("RPC server stopping", "reason", ctx.Err().Error())
			break loop
		case <-s.stop:
			s.logger.Info("RPC server stopping", "reason", "shutdown requested")
			break loop
		case res := <-incoming:
			if res.err != nil {
				var perr *errParse
				if stderrors.As(res.err, &perr) {
					s.logger.Warn("Malformed message", "error", res.err.Error())
					s.write(NewErrorMessage(nil, ParseError, res.err.Error(), nil))
					continue
				}
				if res.err != io.EOF {
					serveErr = res.err
					s.logger.Error("Error reading message", "error", res.err.Error())
				} else {
					s.logger.Info("RPC server stopping", "reason", "EOF")
				}
				break loop
			}
			s.dispatch(ctx, res.msg)
		}
	}

	s.wg.Wait()
	return serveErr
}

func (s *Server) dispatch(ctx context.Context, msg *Message) {
	if msg.Jsonrpc != "2.0" || !(msg.IsRequest() || msg.IsNotification()) {
		if msg.Id != nil {
			s.write(NewErrorMessage(msg.Id, InvalidRequest, "Invalid request: expected a JSON-RPC 2.0 method call", nil))
		}
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		resp := s.handleMessage(ctx, msg)
		if resp != nil {
			s.write(resp)
		}
	}()
}

func (s *Server) write(msg *Message) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := writeMessage(s.out, msg); err != nil {
		s.logger.Error("Error writing response", "error", err.Error())
	}
}

// requestStop ends the read loop after the current message
func (s *Server) requestStop() {
	s.once.Do(func() { close(s.stop) })
}
