//go:build unix

package launch

import "syscall"

// detachedAttr places the child in a new session without a controlling
// terminal.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
