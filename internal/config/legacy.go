package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var errLegacyInvalid = errors.New("legacy settings are not a JSON object")

// ParseLegacy converts the saved settings blob of the original extension:
//
//	{"scopeOnly":true,"removeDuplicates":true,"ignoreExtensions":"css,png",
//	 "ignoreFiles":"[\"jquery.*\\.js\"]",
//	 "extractors":{"1":{"name":"Keys","config":"{...}","exclude":"[...]"}}}
//
// Extractors are ordered by their numeric key. Missing fields keep their
// defaults by staying nil.
func ParseLegacy(blob string) (FileConfig, error) {
	if !gjson.Valid(blob) {
		return FileConfig{}, errLegacyInvalid
	}
	doc := gjson.Parse(blob)
	if !doc.IsObject() {
		return FileConfig{}, errLegacyInvalid
	}
	s := &SettingsConfig{}
	if v := doc.Get("scopeOnly"); v.Exists() {
		b := v.Bool()
		s.ScopeOnly = &b
	}
	if v := doc.Get("removeDuplicates"); v.Exists() {
		b := v.Bool()
		s.RemoveDuplicates = &b
	}
	if v := doc.Get("ignoreExtensions"); v.Exists() {
		s.IgnoreExtensions = legacyList(v)
	}
	if v := doc.Get("ignoreFiles"); v.Exists() {
		s.IgnoreFiles = legacyList(v)
	}

	type numbered struct {
		n int
		p ProfileConfig
	}
	var exts []numbered
	doc.Get("extractors").ForEach(func(k, v gjson.Result) bool {
		n, err := strconv.Atoi(k.String())
		if err != nil {
			n = int(^uint(0) >> 1)
		}
		exts = append(exts, numbered{n: n, p: ProfileConfig{
			Name:    v.Get("name").String(),
			Config:  v.Get("config").String(),
			Exclude: v.Get("exclude").String(),
		}})
		return true
	})
	sort.SliceStable(exts, func(i, j int) bool { return exts[i].n < exts[j].n })

	out := FileConfig{Version: CurrentVersion, Settings: s}
	taken := map[string]bool{}
	for _, e := range exts {
		// tabs could share a name; profiles cannot
		if e.p.Name != "" {
			name := e.p.Name
			for n := 2; taken[name]; n++ {
				name = fmt.Sprintf("%s-%d", e.p.Name, n)
			}
			taken[name] = true
			e.p.Name = name
		}
		out.Profiles = append(out.Profiles, e.p)
	}
	return out, nil
}

// legacyList keeps string forms raw so List.Resolve applies the same
// comma/JSON handling as YAML input; arrays become items.
func legacyList(v gjson.Result) *List {
	if v.IsArray() {
		l := &List{}
		for _, it := range v.Array() {
			l.Items = append(l.Items, it.String())
		}
		return l
	}
	raw := strings.TrimSpace(v.String())
	if raw == "" {
		return &List{}
	}
	return &List{Raw: raw}
}
