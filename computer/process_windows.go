//go:build windows

package computer

import "os/exec"

// setProcessGroup keeps the default cancellation, which kills the process.
func setProcessGroup(cmd *exec.Cmd) {}
