//go:build !unix

package sink

// lockPath is a no-op where flock is unavailable; the scheduler's
// skip-if-still-running policy is the only writer serialization there.
func lockPath(string) (func(), error) { return func() {}, nil }
