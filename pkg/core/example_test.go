package core_test

import (
	"context"
	"fmt"
	"os"

	"github.com/redactyl/dataextractor/pkg/core"
)

// ExampleExtract runs a one-off extraction over a string.
func ExampleExtract() {
	results, _ := core.Extract(
		"api_key=abc123 ?token=xyz",
		`{"api": "api_key=(\\w+)", "?token": "token=(\\w+)"}`,
		`[]`,
		true,
	)
	for _, r := range results {
		fmt.Println(r.Line())
	}
	// Output:
	// api: abc123
	// xyz
}

// ExampleNew keeps results across payloads and exports them.
func ExampleNew() {
	settings := core.DefaultSettings()
	settings.ScopeOnly = false
	reg := core.New(core.Options{Threads: 2, Settings: &settings})
	defer reg.Stop(context.Background())

	id, _ := reg.AddProfile("emails", `{"?mail": "([\\w.]+@[\\w.]+\\.\\w+)"}`, `["@example\\."]`)
	_, _ = reg.Dispatch("https://site.test/contact.html", []byte("ops@corp.test admin@example.com"))
	_, _ = reg.Dispatch("https://site.test/about.html", []byte("ops@corp.test"))
	_ = reg.Export(id, os.Stdout)
	// Output:
	// ops@corp.test
}
