//go:build !linux

package procinfo

import "os"

// OSThreadID returns a process-wide identifier on platforms where the
// kernel thread id isn't cheaply available through the standard
// library. It is stable enough for display purposes but, unlike the
// linux implementation, does not distinguish OS threads within a
// process.
func OSThreadID() uint64 {
	return uint64(os.Getpid())
}
