//go:build !windows

package heapdb

import (
	"os"

	"golang.org/x/sys/unix"
)

// On Unix-like platforms HeapFile takes an OS-level advisory lock around
// each page read/write, underneath BufferPool's in-memory strict-2PL
// locking. BufferPool only serializes access within one process; flock
// additionally guards the .dat file against a second OS process opening it
// concurrently (see SPEC_FULL.md DOMAIN STACK).

func flockShared(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_SH)
}

func flockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

func flockUnlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
