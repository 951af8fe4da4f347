// Package interfaces provides internal interface definitions for the ofi
// binding. These are separate from the public package's interfaces to avoid
// import cycles between the root package and the internal provider/dispatch
// packages.
package interfaces

import "unsafe"

// Logger is the minimal logging surface internal packages depend on.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// MetricsObserver receives per-operation measurements from the Domain's
// posting-path hooks. Implementations must be thread-safe: methods are
// called concurrently from every goroutine that posts operations.
type MetricsObserver interface {
	ObserveSend(bytes uint64, latencyNs uint64, success bool)
	ObserveRecv(bytes uint64, latencyNs uint64, success bool)
	ObserveRMARead(bytes uint64, latencyNs uint64, success bool)
	ObserveRMAWrite(bytes uint64, latencyNs uint64, success bool)
	ObserveAtomic(latencyNs uint64, success bool)
	ObserveCompletionQueueDepth(depth uint32)
}

// NativeContext is the minimal view the dispatch loop needs of a completed
// operation's context pointer, without depending on the root package (which
// owns the actual Context/continuation type and would create an import
// cycle back into provider/dispatch).
type NativeContext = unsafe.Pointer
