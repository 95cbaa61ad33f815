//go:build linux

package supervisor

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr places the backend in its own process group so the
// whole tree can be signaled, and asks the kernel to deliver SIGKILL to the
// child if the shell dies abruptly without running its shutdown path.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}
