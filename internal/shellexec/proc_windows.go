//go:build windows

package shellexec

import "os/exec"

func buildShellCommand(shell string, command string) *exec.Cmd {
	if shell == "" {
		shell = "cmd"
	}
	return exec.Command(shell, "/C", command)
}

func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
