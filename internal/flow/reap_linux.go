package flow

import (
	"golang.org/x/sys/unix"
)

// awaitExit blocks until pid has exited without reaping it. The pid and its
// process group id stay reserved until exec.Cmd.Wait collects the status.
func awaitExit(pid int) bool {
	var info unix.Siginfo
	for {
		err := unix.Waitid(unix.P_PID, pid, &info, unix.WEXITED|unix.WNOWAIT, nil)
		if err == unix.EINTR {
			continue
		}
		return err == nil
	}
}
