//go:build unix

package apprunner

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup puts the command in its own group so wrappers such as
// go run take their children down with them.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalGroup(p *os.Process, sig syscall.Signal) error {
	return syscall.Kill(-p.Pid, sig)
}
