// Package engine contains the core extraction logic. It runs a compiled
// pattern set over decoded text, drops excluded values, removes values the
// result store already holds, and renders labeled result lines.
package engine
