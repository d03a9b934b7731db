package flow

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"flowbridge/internal/config"
	"flowbridge/internal/errors"
	"flowbridge/internal/slogutil"
)

// Supervisor owns all per-process state for talking to Flow workers: the
// root blacklist, the worker registry and the executor. Construct one per
// process and call Shutdown exactly once on exit.
type Supervisor struct {
	cfg    *config.Config
	logger *slog.Logger

	resolver *RootResolver
	health   *HealthTracker
	registry *WorkerRegistry
	executor *Executor

	autocomplete requestSpec[[]Completion]

	shutdownOnce sync.Once
}

// Option customizes a Supervisor
type Option func(*options)

type options struct {
	runner   Runner
	spawner  Spawner
	lookPath func(string) (string, error)
}

// WithRunner replaces the one-shot process runner
func WithRunner(r Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithSpawner replaces the background worker spawner
func WithSpawner(s Spawner) Option {
	return func(o *options) { o.spawner = s }
}

// WithLookPath replaces the $PATH lookup used to find the flow binary
func WithLookPath(fn func(string) (string, error)) Option {
	return func(o *options) { o.lookPath = fn }
}

// Status is a point-in-time view of the supervisor
type Status struct {
	BlacklistedRoots []string     `json:"blacklistedRoots" yaml:"blacklistedRoots"`
	Workers          []WorkerInfo `json:"workers" yaml:"workers"`
	Spawned          int64        `json:"spawned" yaml:"spawned"`
}

// NewSupervisor validates cfg and builds a supervisor around it
func NewSupervisor(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewBridgeError(errors.ConfigInvalid, "invalid configuration", err, nil)
	}

	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	o := options{
		runner:   ExecRunner{},
		spawner:  ExecSpawner{},
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(&o)
	}

	resolver := NewRootResolver(cfg.Flow)
	resolver.lookPath = o.lookPath
	health := NewHealthTracker()
	registry := NewWorkerRegistry()

	executor, err := NewExecutor(cfg.Flow, resolver, health, registry, o.runner, o.spawner, logger)
	if err != nil {
		return nil, err
	}

	return &Supervisor{
		cfg:          cfg,
		logger:       logger,
		resolver:     resolver,
		health:       health,
		registry:     registry,
		executor:     executor,
		autocomplete: autocompleteRequest(cfg.Flow.Sentinel),
	}, nil
}

// Definition returns the definition of the symbol at 0-based (line, col),
// or nil. When contents is nil the file is read from disk.
func (s *Supervisor) Definition(ctx context.Context, file string, contents *string, line, col int) *Definition {
	contents, ok := s.buffer(file, contents)
	if !ok {
		return nil
	}
	return runRequest(ctx, s.executor, s.logger, definitionRequest, Query{
		File: file, Contents: contents, Line: line, Col: col,
	})
}

// Diagnostics checks contents when given, otherwise the file as saved on disk
func (s *Supervisor) Diagnostics(ctx context.Context, file string, contents *string) []Diagnostic {
	return runRequest(ctx, s.executor, s.logger, diagnosticsRequest, Query{
		File: file, Contents: contents,
	})
}

// Autocomplete returns suggestions at 0-based (line, col) of contents
func (s *Supervisor) Autocomplete(ctx context.Context, file, contents string, line, col int, prefix string) []Completion {
	return runRequest(ctx, s.executor, s.logger, s.autocomplete, Query{
		File: file, Contents: &contents, Line: line, Col: col, Prefix: prefix,
	})
}

// TypeAtPosition returns the type at 0-based (line, col). When contents is
// nil the file is read from disk.
func (s *Supervisor) TypeAtPosition(ctx context.Context, file string, contents *string, line, col int) (string, bool) {
	contents, ok := s.buffer(file, contents)
	if !ok {
		return "", false
	}
	typ := runRequest(ctx, s.executor, s.logger, typeAtPosRequest, Query{
		File: file, Contents: contents, Line: line, Col: col,
	})
	return typ, typ != ""
}

func (s *Supervisor) buffer(file string, contents *string) (*string, bool) {
	if contents != nil {
		return contents, true
	}
	data, err := os.ReadFile(file)
	if err != nil {
		s.logger.Warn("Cannot read file", "file", file, "error", err.Error())
		return nil, false
	}
	text := string(data)
	return &text, true
}

// Lookup resolves file to its execution options, explaining any absence
func (s *Supervisor) Lookup(file string) (*ExecOptions, error) {
	opts, err := s.resolver.Lookup(file)
	if err != nil {
		return nil, err
	}
	if s.health.IsBlacklisted(opts.Root) {
		return opts, errors.NewBridgeError(
			errors.RootBlacklisted,
			"worker for "+opts.Root+" crashed earlier",
			nil,
			errors.GetSuggestedFixes(errors.RootBlacklisted),
		)
	}
	return opts, nil
}

// Resolver exposes the root resolver
func (s *Supervisor) Resolver() *RootResolver {
	return s.resolver
}

// Status returns the blacklist and the live workers
func (s *Supervisor) Status() Status {
	return Status{
		BlacklistedRoots: s.health.Blacklisted(),
		Workers:          s.registry.Snapshot(),
		Spawned:          s.executor.Spawned(),
	}
}

// Shutdown kills every worker started by this supervisor. It is safe to call
// more than once; only the first call does anything.
func (s *Supervisor) Shutdown() error {
	s.shutdownOnce.Do(func() {
		killed := s.executor.Close()
		s.logger.Info("Supervisor shut down", "workersKilled", killed)
	})
	return nil
}
