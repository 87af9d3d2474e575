// Package core provides a small, stable facade over the dataextractor
// internals for external integrations. It re-exports a narrow API surface so
// other tools can depend on a stable import path without importing internal
// implementation packages.
//
// Example:
//
//	reg := core.New(core.Options{Threads: 4})
//	defer reg.Stop(context.Background())
//	id, _ := reg.AddProfile("keys", `{"aws": "(AKIA[0-9A-Z]{16})"}`, `[]`)
//	_, _ = reg.Dispatch("https://example.com/app.js", body)
//	_ = reg.Export(id, os.Stdout)
package core
