//go:build linux

// Package procinfo resolves the OS-level thread identifier that goes
// into a LocalPacketHeader's ThreadInfo.
package procinfo

import "golang.org/x/sys/unix"

// OSThreadID returns the kernel thread id of the calling OS thread.
//
// The caller must have called runtime.LockOSThread, or the result may
// describe a different OS thread than the one the calling goroutine
// runs on by the time it is read.
func OSThreadID() uint64 {
	return uint64(unix.Gettid())
}
