//go:build windows

package supervisor

import "os/exec"

func configureSysProcAttr(cmd *exec.Cmd) {}
