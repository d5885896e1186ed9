//go:build windows

package main

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr starts the server in a new process group so console
// control events sent to the CLI do not reach it
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
