// Package sysinfo reports static facts about the shell process and its
// host, surfaced to the UI layer alongside backend status.
package sysinfo

import (
	"os"
	"runtime"
)

// Info describes the shell's runtime environment. The values are fixed
// for the life of the process.
type Info struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	NumCPU    int    `json:"num_cpu"`
	GoVersion string `json:"go_version"`
	Hostname  string `json:"hostname"`
	PID       int    `json:"pid"`
}

// Get returns the current process's system information.
func Get() Info {
	host, _ := os.Hostname()
	return Info{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		GoVersion: runtime.Version(),
		Hostname:  host,
		PID:       os.Getpid(),
	}
}
