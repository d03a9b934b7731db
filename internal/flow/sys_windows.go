//go:build windows

package flow

import (
	"os"
	"syscall"
)

func workerProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

func killWorker(p *os.Process) error {
	return p.Kill()
}

// Windows has no terminating signals; exits are described by code only.
func signalOf(ps *os.ProcessState) string {
	return ""
}
