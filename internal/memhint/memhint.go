// Package memhint issues best-effort hints to release memory back to the OS
// after an eviction pass.
//
// The hint has no correctness guarantee: it forces a garbage collection,
// returns freed heap to the OS, and on Linux flushes filesystem buffers so a
// following cache measurement reflects the deletions. Callers treat failures
// as advisory-only and log at debug level.
package memhint

import (
	"runtime"
	"runtime/debug"
)

// Release runs the reclamation hint.
func Release() error {
	runtime.GC()
	debug.FreeOSMemory()
	return flush()
}
