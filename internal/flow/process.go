package flow

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// pipeDrainDelay bounds how long Wait blocks on worker output after exit,
// in case a grandchild still holds the pipes open.
const pipeDrainDelay = 2 * time.Second

// ExitStatus describes how a worker process ended
type ExitStatus struct {
	// Code is the exit code, or -1 when the process did not exit normally
	Code int `json:"code"`
	// Signal is the terminating signal name (e.g. "SIGTERM"), or "" for none
	Signal string `json:"signal,omitempty"`
}

func (s ExitStatus) String() string {
	code := "none"
	if s.Code >= 0 {
		code = fmt.Sprint(s.Code)
	}
	signal := s.Signal
	if signal == "" {
		signal = "none"
	}
	return "code=" + code + " signal=" + signal
}

// Process is a running background worker
type Process interface {
	Pid() int
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the process exits and reports how it ended
	Wait() ExitStatus
	// Kill forcefully terminates the process (and its process group)
	Kill() error
}

// SpawnSpec describes a background worker launch
type SpawnSpec struct {
	Binary string
	Args   []string
	Dir    string
	Env    []string
}

// Spawner starts background workers without waiting for them
type Spawner interface {
	Spawn(spec SpawnSpec) (Process, error)
}

// ExecSpawner starts workers as real OS processes
type ExecSpawner struct{}

// Spawn starts the worker in its own process group. Its stdout and stderr
// must be read until EOF by the caller.
func (ExecSpawner) Spawn(spec SpawnSpec) (Process, error) {
	cmd := exec.Command(spec.Binary, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.SysProcAttr = workerProcAttr()
	cmd.WaitDelay = pipeDrainDelay

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		_ = outW.Close()
		_ = errW.Close()
		return nil, fmt.Errorf("start %s: %w", spec.Binary, err)
	}

	p := &execProcess{
		cmd:    cmd,
		stdout: outR,
		stderr: errR,
		done:   make(chan struct{}),
	}
	go func() {
		// mark the exit while the pid is still unreaped, so Kill never
		// signals a process group id the kernel has handed out again
		if awaitExit(cmd.Process.Pid) {
			p.markExited()
		}
		_ = cmd.Wait()
		p.markExited()
		p.status = exitStatusOf(cmd.ProcessState)
		_ = outW.Close()
		_ = errW.Close()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader
	done   chan struct{}
	status ExitStatus

	mu     sync.Mutex
	exited bool
}

func (p *execProcess) markExited() {
	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()
}

func (p *execProcess) Pid() int          { return p.cmd.Process.Pid }
func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }

func (p *execProcess) Wait() ExitStatus {
	<-p.done
	return p.status
}

// Kill signals the worker's group unless the worker has already exited.
// The check and the signal share a lock with markExited.
func (p *execProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited {
		return nil
	}
	return killWorker(p.cmd.Process)
}

func exitStatusOf(ps *os.ProcessState) ExitStatus {
	if ps == nil {
		return ExitStatus{Code: -1, Signal: ""}
	}
	return ExitStatus{Code: ps.ExitCode(), Signal: signalOf(ps)}
}

// WorkerHandle is the supervisor's record of one spawned worker
type WorkerHandle struct {
	ID        string
	Root      string
	Pid       int
	StartedAt time.Time

	proc     Process
	killOnce sync.Once
	killErr  error
}

func newWorkerHandle(root string, proc Process) *WorkerHandle {
	return &WorkerHandle{
		ID:        uuid.NewString(),
		Root:      root,
		Pid:       proc.Pid(),
		StartedAt: time.Now(),
		proc:      proc,
	}
}

// Kill sends the forceful termination at most once per handle
func (h *WorkerHandle) Kill() error {
	h.killOnce.Do(func() {
		h.killErr = h.proc.Kill()
	})
	return h.killErr
}

// Info returns a snapshot suitable for status output
func (h *WorkerHandle) Info() WorkerInfo {
	return WorkerInfo{
		ID:        h.ID,
		Root:      h.Root,
		Pid:       h.Pid,
		StartedAt: h.StartedAt,
	}
}

// WorkerInfo is the serializable view of a WorkerHandle
type WorkerInfo struct {
	ID        string    `json:"id"`
	Root      string    `json:"root"`
	Pid       int       `json:"pid"`
	StartedAt time.Time `json:"startedAt"`
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
