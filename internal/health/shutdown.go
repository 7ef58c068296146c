package health

import "sync/atomic"

// ready reports whether the process should accept traffic. It starts true and
// flips to false when graceful shutdown begins so load balancers drain us.
var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady toggles the readiness gate.
func SetReady(v bool) {
	ready.Store(v)
}

// Ready reports the current readiness gate state.
func Ready() bool {
	return ready.Load()
}
