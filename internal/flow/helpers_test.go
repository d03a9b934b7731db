package flow

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flowbridge/internal/config"
	"flowbridge/internal/paths"
	"flowbridge/internal/slogutil"
)

const fakeBinary = "/fake/bin/flow"

// fakeProcess is a worker that runs until exit or Kill is called
type fakeProcess struct {
	pid int

	stdoutR, stderrR *io.PipeReader
	stdoutW, stderrW *io.PipeWriter

	once   sync.Once
	done   chan struct{}
	status ExitStatus
	kills  atomic.Int32
}

func newFakeProcess(pid int) *fakeProcess {
	p := &fakeProcess{pid: pid, done: make(chan struct{})}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *fakeProcess) Pid() int          { return p.pid }
func (p *fakeProcess) Stdout() io.Reader { return p.stdoutR }
func (p *fakeProcess) Stderr() io.Reader { return p.stderrR }

func (p *fakeProcess) Wait() ExitStatus {
	<-p.done
	return p.status
}

func (p *fakeProcess) Kill() error {
	p.kills.Add(1)
	p.exit(ExitStatus{Code: -1, Signal: "SIGKILL"})
	return nil
}

// exit ends the process with status; later calls are ignored
func (p *fakeProcess) exit(status ExitStatus) {
	p.once.Do(func() {
		p.status = status
		_ = p.stdoutW.Close()
		_ = p.stderrW.Close()
		close(p.done)
	})
}

type fakeSpawner struct {
	mu    sync.Mutex
	specs []SpawnSpec
	procs []*fakeProcess
	err   error
}

func (s *fakeSpawner) Spawn(spec SpawnSpec) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p := newFakeProcess(1000 + len(s.procs))
	s.specs = append(s.specs, spec)
	s.procs = append(s.procs, p)
	return p, nil
}

func (s *fakeSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

func (s *fakeSpawner) proc(i int) *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[i]
}

func (s *fakeSpawner) spec(i int) SpawnSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.specs[i]
}

// fakeRunner answers invocations through fn; n is the 1-based call number
type fakeRunner struct {
	mu    sync.Mutex
	calls []*Invocation
	fn    func(n int, inv *Invocation) (*Output, error)
}

func (r *fakeRunner) Run(_ context.Context, inv *Invocation) (*Output, error) {
	r.mu.Lock()
	r.calls = append(r.calls, inv)
	n := len(r.calls)
	fn := r.fn
	r.mu.Unlock()
	if fn == nil {
		return &Output{}, nil
	}
	return fn(n, inv)
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *fakeRunner) call(i int) *Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

func stdout(s string) func(int, *Invocation) (*Output, error) {
	return func(int, *Invocation) (*Output, error) {
		return &Output{Stdout: s}, nil
	}
}

func noServerErr(args []string) error {
	return &CommandError{
		Args:     args,
		ExitCode: 6,
		Stderr:   "There is no flow server running in '/tmp/project'.\n",
	}
}

// newProject creates a root holding .flowconfig and one source file
func newProject(t *testing.T) (root, file string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".flowconfig"), []byte("[options]\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	file = filepath.Join(dir, "src", "index.js")
	if err := os.WriteFile(file, []byte("// @flow\nconst x = 1;\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	root, err := paths.Canonical(dir)
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	return root, file
}

func testConfig() *config.Config {
	return config.DefaultConfig()
}

func newTestSupervisor(t *testing.T, runner Runner, spawner Spawner, mutate func(*config.Config)) *Supervisor {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	sup, err := NewSupervisor(cfg, slogutil.NewDiscardLogger(),
		WithRunner(runner),
		WithSpawner(spawner),
		WithLookPath(func(string) (string, error) { return fakeBinary, nil }),
	)
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	t.Cleanup(func() { _ = sup.Shutdown() })
	return sup
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var errNotFound = errors.New("executable file not found in $PATH")

func strPtr(s string) *string {
	return &s
}
