package flow

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"flowbridge/internal/config"
	"flowbridge/internal/errors"
)

// maxLogLine caps a single forwarded worker output line
const maxLogLine = 1024 * 1024

// Executor runs one-shot worker invocations and brings up a background worker
// for the root whenever the invocation reports that none is running.
type Executor struct {
	resolver   *RootResolver
	health     *HealthTracker
	registry   *WorkerRegistry
	classifier *CrashClassifier
	runner     Runner
	spawner    Spawner
	logger     *slog.Logger

	maxAttempts int
	retryDelay  time.Duration
	noAutoStart string
	noServer    *regexp.Regexp
	serverArgs  []string
	dedupe      bool

	spawns  singleflight.Group
	spawned atomic.Int64

	// mu orders spawns against Close so no worker escapes teardown
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewExecutor wires an executor over the shared resolver, tracker and registry
func NewExecutor(
	cfg config.FlowConfig,
	resolver *RootResolver,
	health *HealthTracker,
	registry *WorkerRegistry,
	runner Runner,
	spawner Spawner,
	logger *slog.Logger,
) (*Executor, error) {
	noServer, err := regexp.Compile(cfg.NoServerPattern)
	if err != nil {
		return nil, errors.NewBridgeError(errors.ConfigInvalid, "invalid flow.noServerPattern", err, nil)
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = config.DefaultConfig().Flow.MaxAttempts
	}

	return &Executor{
		resolver:    resolver,
		health:      health,
		registry:    registry,
		classifier:  NewCrashClassifier(cfg.CrashSignatures),
		runner:      runner,
		spawner:     spawner,
		logger:      logger,
		maxAttempts: maxAttempts,
		retryDelay:  time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		noAutoStart: cfg.NoAutoStartFlag,
		noServer:    noServer,
		serverArgs:  append([]string(nil), cfg.ServerArgs...),
		dedupe:      cfg.DedupeSpawns,
	}, nil
}

// Execute runs the worker binary with args for file.
//
// A nil Output with a nil error means "no result": there is no config root
// or binary for file, or its root is blacklisted. Failures are returned as
// *errors.BridgeError wrapping the last *CommandError.
func (e *Executor) Execute(ctx context.Context, args []string, stdin *string, file string) (*Output, error) {
	opts, ok := e.resolver.Resolve(file)
	if !ok {
		e.logger.Debug("No config root or binary, skipping", "file", file)
		return nil, nil
	}
	if e.health.IsBlacklisted(opts.Root) {
		e.logger.Debug("Root is blacklisted, skipping", "root", opts.Root)
		return nil, nil
	}
	if e.isClosed() {
		return nil, errors.NewBridgeError(errors.ShuttingDown, "supervisor is shutting down", nil, nil)
	}

	fullArgs := make([]string, 0, len(args)+1)
	fullArgs = append(fullArgs, args...)
	if e.noAutoStart != "" {
		fullArgs = append(fullArgs, e.noAutoStart)
	}
	inv := &Invocation{
		Binary: opts.Binary,
		Args:   fullArgs,
		Stdin:  stdin,
		Dir:    opts.Dir,
		Env:    opts.Env,
		File:   file,
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		out, err := e.runner.Run(ctx, inv)
		if err == nil {
			return out, nil
		}
		lastErr = err

		var cmdErr *CommandError
		if !errors.As(err, &cmdErr) || !e.noServer.MatchString(cmdErr.Stderr) {
			return nil, errors.NewBridgeError(
				errors.CommandFailed,
				fmt.Sprintf("%s failed", subcommand(args)),
				err,
				nil,
			)
		}
		if attempt == e.maxAttempts {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if e.health.IsBlacklisted(opts.Root) {
			e.logger.Info("Root blacklisted during retry, giving up", "root", opts.Root, "attempt", attempt)
			return nil, nil
		}

		e.logger.Debug("No worker running, starting one",
			"root", opts.Root,
			"attempt", attempt,
		)
		if err := e.ensureWorker(opts); err != nil {
			return nil, err
		}
		if err := pause(ctx, e.retryDelay); err != nil {
			return nil, err
		}
	}

	return nil, errors.NewBridgeError(
		errors.CommandFailed,
		fmt.Sprintf("no worker became available for %s after %d attempts", opts.Root, e.maxAttempts),
		lastErr,
		errors.GetSuggestedFixes(errors.CommandFailed),
	).WithDetails(map[string]interface{}{
		"root":     opts.Root,
		"attempts": e.maxAttempts,
	})
}

// ensureWorker spawns a worker for the root unless deduplication finds one
// already tracked or being started.
func (e *Executor) ensureWorker(opts *ExecOptions) error {
	if !e.dedupe {
		return e.spawnWorker(opts)
	}
	_, err, _ := e.spawns.Do(opts.Root, func() (interface{}, error) {
		if e.registry.HasLive(opts.Root) {
			return nil, nil
		}
		return nil, e.spawnWorker(opts)
	})
	return err
}

func (e *Executor) spawnWorker(opts *ExecOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errors.NewBridgeError(errors.ShuttingDown, "supervisor is shutting down", nil, nil)
	}

	args := make([]string, 0, len(e.serverArgs)+1)
	args = append(args, e.serverArgs...)
	args = append(args, opts.Root)

	proc, err := e.spawner.Spawn(SpawnSpec{
		Binary: opts.Binary,
		Args:   args,
		Dir:    opts.Dir,
		Env:    opts.Env,
	})
	if err != nil {
		return errors.NewBridgeError(
			errors.WorkerUnavailable,
			fmt.Sprintf("failed to start worker for %s", opts.Root),
			err,
			errors.GetSuggestedFixes(errors.WorkerUnavailable),
		)
	}

	h := newWorkerHandle(opts.Root, proc)
	e.registry.Register(h)
	e.spawned.Add(1)

	log := e.logger.With("root", h.Root, "worker", shortID(h.ID))
	log.Info("Started worker", "pid", h.Pid)

	e.wg.Add(3)
	go e.forward(proc.Stdout(), log, slog.LevelInfo)
	go e.forward(proc.Stderr(), log, slog.LevelWarn)
	go e.observe(h, log)
	return nil
}

// forward copies worker output into the log line by line until EOF
func (e *Executor) forward(r io.Reader, log *slog.Logger, level slog.Level) {
	defer e.wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	for scanner.Scan() {
		log.Log(context.Background(), level, scanner.Text())
	}
	// an over-long line stops the scanner; keep draining so the worker never blocks
	_, _ = io.Copy(io.Discard, r)
}

// observe waits for the worker to exit and classifies the exit
func (e *Executor) observe(h *WorkerHandle, log *slog.Logger) {
	defer e.wg.Done()

	status := h.proc.Wait()

	// blacklist before leaving the registry so a retry loop never sees the
	// root with no live worker and no crash mark
	if e.classifier.IsCrash(status) {
		if e.health.MarkCrashed(h.Root) {
			log.Error("Worker crashed, blacklisting root", "exit", status.String())
		}
	} else {
		log.Info("Worker exited", "exit", status.String())
	}
	e.registry.Remove(h.ID)
}

// Spawned returns how many workers this executor has started
func (e *Executor) Spawned() int64 {
	return e.spawned.Load()
}

func (e *Executor) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Close stops further spawns, kills every tracked worker and waits for their
// observers to finish. It returns the number of workers killed.
func (e *Executor) Close() int {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0
	}
	e.closed = true
	e.mu.Unlock()

	n := e.registry.KillAll()
	e.wg.Wait()
	return n
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func subcommand(args []string) string {
	if len(args) == 0 {
		return "flow"
	}
	return "flow " + args[0]
}
