package lifecycle

import (
	"fmt"
	"sort"
	"strings"
)

// excludedParameters never appear in a decorated test name.
var excludedParameters = map[string]bool{
	"url":             true,
	"URL":             true,
	"BrowserType":     true,
	"BrowserVersion":  true,
	"Platform":        true,
	"TestDescription": true,
}

const (
	paramDescription = "TestDescription"
	paramURL         = "url"
)

// describeAttributes renders one "name: value" line per non-blank attribute,
// sorted by name.
func describeAttributes(attrs map[string]string) []string {
	var lines []string
	for _, k := range sortedKeys(attrs) {
		v := strings.TrimSpace(attrs[k])
		if v == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", k, v))
	}
	return lines
}

// decorateName derives the report name of a parameterized execution. A
// TestDescription parameter is appended to the name; otherwise the remaining
// parameters are listed after "with parameters".
func decorateName(name string, params map[string]string) string {
	if len(params) == 0 {
		return name
	}
	if desc := strings.TrimSpace(params[paramDescription]); desc != "" {
		return name + " - " + desc
	}

	var parts []string
	for _, k := range sortedKeys(params) {
		if excludedParameters[k] {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, params[k]))
	}
	if len(parts) == 0 {
		return name
	}
	return name + " with parameters - " + strings.Join(parts, ", ")
}

// describeParameters returns the extra description lines for params. The URL is
// always shown; the full parameter set only for failures.
func describeParameters(params map[string]string, failed bool) []string {
	var lines []string
	if u := strings.TrimSpace(params[paramURL]); u != "" {
		lines = append(lines, "URL: "+u)
	}
	if failed && len(params) > 0 {
		pairs := make([]string, 0, len(params))
		for _, k := range sortedKeys(params) {
			pairs = append(pairs, k+"="+params[k])
		}
		lines = append(lines, "parameters: {"+strings.Join(pairs, ", ")+"}")
	}
	return lines
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
