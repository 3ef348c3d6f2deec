//go:build linux

package core

import "golang.org/x/sys/unix"

// osThreadID returns the kernel thread id of the calling thread. Only
// meaningful while the goroutine is locked with runtime.LockOSThread.
func osThreadID() int {
	return unix.Gettid()
}
