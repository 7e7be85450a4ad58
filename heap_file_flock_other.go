//go:build windows

package heapdb

import "os"

// Windows has no flock-equivalent wired here; the BufferPool's in-process
// locking remains the only serialization. See heap_file_flock_unix.go.

func flockShared(f *os.File) error    { return nil }
func flockExclusive(f *os.File) error { return nil }
func flockUnlock(f *os.File) error    { return nil }
