//go:build !windows

package flow

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"flowbridge/internal/config"
	"flowbridge/internal/slogutil"
)

// fakeFlowScript behaves like the flow CLI: one-shot commands fail until
// "flow server" has started for the root.
const fakeFlowScript = `#!/bin/sh
state="$FLOWBRIDGE_TEST_STATE"
case "$1" in
server)
  if [ -n "$FLOWBRIDGE_TEST_CRASH" ]; then
    echo "out of shared memory" >&2
    exit 2
  fi
  echo "Server is READY"
  touch "$state/running"
  exec sleep 600
  ;;
type-at-pos)
  cat >/dev/null
  if [ ! -f "$state/running" ]; then
    echo "There is no flow server running in '$PWD'." >&2
    exit 6
  fi
  echo "number"
  ;;
*)
  echo "unknown command $1" >&2
  exit 64
  ;;
esac
`

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
}

func newScriptSupervisor(t *testing.T, crash bool) (*Supervisor, string) {
	t.Helper()
	requireShell(t)

	binDir := t.TempDir()
	bin := filepath.Join(binDir, "flow")
	if err := os.WriteFile(bin, []byte(fakeFlowScript), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Flow.Binary = bin
	cfg.Flow.MaxAttempts = 50
	cfg.Flow.RetryDelayMs = 50
	cfg.Flow.Env = map[string]string{"FLOWBRIDGE_TEST_STATE": t.TempDir()}
	if crash {
		cfg.Flow.Env["FLOWBRIDGE_TEST_CRASH"] = "1"
	}

	sup, err := NewSupervisor(cfg, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	t.Cleanup(func() { _ = sup.Shutdown() })

	_, file := newProject(t)
	return sup, file
}

func TestRealWorker_StartsAndIsKilledOnShutdown(t *testing.T) {
	sup, file := newScriptSupervisor(t, false)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	typ, ok := sup.TypeAtPosition(ctx, file, strPtr("const x = 1;"), 0, 6)
	if !ok || typ != "number" {
		t.Fatalf("TypeAtPosition() = %q, %v; want number, true", typ, ok)
	}

	st := sup.Status()
	if st.Spawned != 1 || len(st.Workers) != 1 {
		t.Fatalf("Status() = %+v, want one live worker", st)
	}
	pid := st.Workers[0].Pid

	if err := sup.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if len(sup.Status().BlacklistedRoots) != 0 {
		t.Error("a worker killed on shutdown must not blacklist its root")
	}
	if p, err := os.FindProcess(pid); err == nil {
		// signal 0 only probes; the reaped worker must be gone
		if err := p.Signal(syscall.Signal(0)); err == nil {
			t.Errorf("worker pid %d still alive after Shutdown", pid)
		}
	}
}

func TestRealWorker_CrashBlacklistsRoot(t *testing.T) {
	sup, file := newScriptSupervisor(t, true)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, ok := sup.TypeAtPosition(ctx, file, strPtr("x"), 0, 0); ok {
		t.Fatal("TypeAtPosition() should fail while the worker keeps crashing")
	}
	waitFor(t, "root to be blacklisted", func() bool {
		return len(sup.Status().BlacklistedRoots) == 1
	})

	spawned := sup.Status().Spawned
	if _, ok := sup.TypeAtPosition(ctx, file, strPtr("x"), 0, 0); ok {
		t.Error("blacklisted root should yield no result")
	}
	if sup.Status().Spawned != spawned {
		t.Error("blacklisted root must not spawn again")
	}
}

func TestExecRunner(t *testing.T) {
	requireShell(t)
	ctx := context.Background()

	input := "hello"
	out, err := ExecRunner{}.Run(ctx, &Invocation{Binary: "sh", Args: []string{"-c", "cat; echo err >&2"}, Stdin: &input})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Stdout != "hello" || out.Stderr != "err\n" || out.ExitCode != 0 {
		t.Errorf("Run() = %+v", out)
	}

	_, err = ExecRunner{}.Run(ctx, &Invocation{Binary: "sh", Args: []string{"-c", "echo '{\"errors\":[]}'; exit 2"}})
	cmdErr, ok := err.(*CommandError)
	if !ok {
		t.Fatalf("Run() error = %T, want *CommandError", err)
	}
	if cmdErr.ExitCode != 2 || cmdErr.Stdout != "{\"errors\":[]}\n" {
		t.Errorf("CommandError = %+v", cmdErr)
	}

	_, err = ExecRunner{}.Run(ctx, &Invocation{Binary: filepath.Join(t.TempDir(), "missing")})
	if cmdErr, ok := err.(*CommandError); !ok || cmdErr.HasExitCode() {
		t.Errorf("Run() of a missing binary = %v, want CommandError without exit code", err)
	}
}

func TestExecSpawner_ReportsSignal(t *testing.T) {
	requireShell(t)

	proc, err := ExecSpawner{}.Spawn(SpawnSpec{Binary: "sh", Args: []string{"-c", "echo up; exec sleep 600"}})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	go func() { _, _ = io.Copy(io.Discard, proc.Stdout()) }()
	go func() { _, _ = io.Copy(io.Discard, proc.Stderr()) }()

	if err := proc.Kill(); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	status := proc.Wait()
	if status.Code != -1 || status.Signal != "SIGKILL" {
		t.Errorf("Wait() = %v, want code=none signal=SIGKILL", status)
	}
	if err := proc.Kill(); err != nil {
		t.Errorf("Kill() after exit error = %v", err)
	}
}

func TestExecSpawner_ReportsExitCode(t *testing.T) {
	requireShell(t)

	proc, err := ExecSpawner{}.Spawn(SpawnSpec{Binary: "sh", Args: []string{"-c", "exit 2"}})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	go func() { _, _ = io.Copy(io.Discard, proc.Stdout()) }()
	go func() { _, _ = io.Copy(io.Discard, proc.Stderr()) }()

	if status := proc.Wait(); status.Code != 2 || status.Signal != "" {
		t.Errorf("Wait() = %v, want code=2 signal=none", status)
	}
}
