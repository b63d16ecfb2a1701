package env

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadSystemEnv returns the process environment variables whose name starts
// with prefix, keyed by the rest of the name. An empty prefix returns everything.
func LoadSystemEnv(prefix string) map[string]string {
	result := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if prefix == "" {
			result[key] = value
		} else if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			result[key[len(prefix):]] = value
		}
	}
	return result
}

// MergeVariables merges sources left to right; later sources win.
func MergeVariables(sources ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// DotEnvFiles lists the dotenv files LoadDotEnvFiles looks for, in load order.
var DotEnvFiles = []string{".env", ".env.local"}

// LoadDotEnvFiles exports the dotenv files of dir that exist and returns the
// names of the files loaded. Later files in DotEnvFiles override earlier ones;
// the process environment overrides both.
func LoadDotEnvFiles(dir string) ([]string, error) {
	var (
		loaded  []string
		sources []map[string]string
	)
	for _, name := range DotEnvFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		vars, err := LoadDotEnv(path)
		if err != nil {
			return loaded, err
		}
		sources = append(sources, vars)
		loaded = append(loaded, path)
	}
	export(MergeVariables(sources...))
	return loaded, nil
}

// SortedKeys returns the keys of vars in lexical order.
func SortedKeys(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
