// Package interfaces provides internal interface definitions shared across
// eventpipe's packages. These are separate from the public package to avoid
// import cycles between the root package and internal/transport.
package interfaces

// Logger is the minimal logging surface the transport and rendezvous
// layers depend on.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Observer receives hot-path telemetry from a running transport.
// Implementations must be safe to call from the producer's single thread
// with no additional synchronization required on the caller's side, but
// must not assume they're called from any particular goroutine across
// process lifetime.
type Observer interface {
	ObserveEvent(kind string, poolBytes uint32)
	ObserveRotation(stallNs uint64, blocked bool)
	ObserveShutdown()
}

// AbortFunc terminates the process after logging a fatal condition. The
// transport never attempts local recovery; every contract violation and
// unrecoverable I/O error is routed through this capability. Tests inject
// a recording AbortFunc instead of the default os.Exit-based one.
type AbortFunc func(op string, err error)
