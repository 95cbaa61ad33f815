//go:build windows

package supervisor

import "os"

// Windows has no process groups or TERM/KILL distinction; both paths use
// the hard kill the os package provides.

func terminateGroup(pid int) error { return killGroup(pid) }

func killGroup(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func processAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}
