package patterns

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redactyl/dataextractor/internal/types"
	"github.com/tidwall/gjson"
)

var (
	errInvalidJSON = errors.New("invalid JSON")
	errNotObject   = errors.New("expected a JSON object of label to regexp")
	errNotArray    = errors.New("expected a JSON array of regexps")
	errNotString   = errors.New("value is not a string")
)

// Entry is one raw rule as written by the operator, before compilation.
type Entry struct {
	Key     string `yaml:"key" json:"key"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// ParseConfig reads a flat JSON object of key to pattern, keeping document
// order. Blank text is an empty configuration. Malformed JSON yields no
// entries and a single config_parse warning; a non-string value only drops
// that key.
func ParseConfig(text string) ([]Entry, []types.Warning) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if !gjson.Valid(text) {
		return nil, []types.Warning{parseWarning("config", "", errInvalidJSON)}
	}
	doc := gjson.Parse(text)
	if !doc.IsObject() {
		return nil, []types.Warning{parseWarning("config", "", errNotObject)}
	}
	var (
		out  []Entry
		warn []types.Warning
	)
	doc.ForEach(func(k, v gjson.Result) bool {
		if v.Type != gjson.String {
			warn = append(warn, parseWarning("config", k.String(), errNotString))
			return true
		}
		out = append(out, Entry{Key: k.String(), Pattern: v.String()})
		return true
	})
	return out, warn
}

// ParseList reads a JSON array of strings. section names the configuration
// area in warnings (exclude, ignore_files).
func ParseList(text, section string) ([]string, []types.Warning) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if !gjson.Valid(text) {
		return nil, []types.Warning{parseWarning(section, "", errInvalidJSON)}
	}
	doc := gjson.Parse(text)
	if !doc.IsArray() {
		return nil, []types.Warning{parseWarning(section, "", errNotArray)}
	}
	var (
		out  []string
		warn []types.Warning
	)
	for i, v := range doc.Array() {
		if v.Type != gjson.String {
			warn = append(warn, parseWarning(section, fmt.Sprintf("#%d", i), errNotString))
			continue
		}
		out = append(out, v.String())
	}
	return out, warn
}

func parseWarning(section, key string, err error) types.Warning {
	return types.Warning{Kind: types.ConfigParse, Section: section, Key: key, Err: err}
}
