package runner

import (
	"os/exec"
	"syscall"
)

// configureProcAttr configures the process attributes for creating a new process group
func configureProcAttr(cmd *exec.Cmd) {
	// Configure the process to run in its own process group
	// This allows us to kill the entire process group (parent + children) later
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // Create new process group with this process as leader
	}
}

// killProcessGroup sends a signal to an entire process group so that helpers
// which forked workers do not leave strays behind. Best effort; the group may
// already be gone.
func killProcessGroup(pid int, sig syscall.Signal) {
	// Kill the process group (negative PID kills the entire process group)
	_ = syscall.Kill(-pid, sig)
}
