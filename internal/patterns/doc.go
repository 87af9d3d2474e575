// Package patterns parses and compiles extraction profiles: an ordered set of
// named rules whose first capture group is the extracted value, plus a list of
// exclusion patterns. Compiled sets are immutable and safe to share between
// goroutines; reconfiguring a profile means compiling a new Set.
package patterns
