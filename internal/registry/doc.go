// Package registry owns the extraction profiles of a session and dispatches
// every eligible payload to all of them. Settings and per-profile pattern
// sets are immutable snapshots swapped atomically; each profile's result
// store is written by one extraction at a time.
package registry
