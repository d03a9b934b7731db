//go:build !windows

package flow

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// workerProcAttr puts the worker in its own process group so teardown
// reaches anything it forks.
func workerProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// killWorker sends SIGKILL to the worker's process group, falling back to
// the process itself.
func killWorker(p *os.Process) error {
	if err := unix.Kill(-p.Pid, unix.SIGKILL); err == nil {
		return nil
	}
	return p.Kill()
}

func signalOf(ps *os.ProcessState) string {
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	if name := unix.SignalName(ws.Signal()); name != "" {
		return name
	}
	return ws.Signal().String()
}
