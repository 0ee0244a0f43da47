package driver

import "time"

// TimeoutCapable is the capability spec.md calls TimeoutChild: a child
// that may carry its own chunk/total timeout defaults, which the Driver
// prefers over its own when iterating. *child.Child implements this
// directly (returning ok=false unless constructed with
// child.WithTimeouts), so every member is automatically a TimeoutChild --
// modeled as a capability rather than a separate type, per spec.md §9.
type TimeoutCapable interface {
	ChunkTimeout() (time.Duration, bool)
	TotalTimeout() (time.Duration, bool)
}
