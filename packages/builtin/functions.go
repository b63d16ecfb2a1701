package builtin

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Func computes a template value from its call arguments.
type Func func(args []string) any

// Registry holds the functions callable from configuration templates.
type Registry struct {
	funcs map[string]Func
	now   func() time.Time
	runID string
}

// NewRegistry returns a registry with the default functions. A nil clock uses time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	r := &Registry{
		funcs: make(map[string]Func),
		now:   now,
		runID: uuid.NewString(),
	}
	r.funcs["now"] = func([]string) any { return r.now().UTC().Format(time.RFC3339) }
	r.funcs["timestamp"] = func([]string) any { return r.now().Unix() }
	r.funcs["date"] = r.date
	r.funcs["runid"] = func([]string) any { return r.runID }
	r.funcs["uuid"] = func([]string) any { return uuid.NewString() }
	r.funcs["env"] = lookupEnv
	r.funcs["hostname"] = hostname
	r.funcs["slug"] = slug
	return r
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

var callPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// Call evaluates an expression such as date(2006-01). It reports false when
// expr is not a call to a registered function.
func (r *Registry) Call(expr string) (any, bool) {
	m := callPattern.FindStringSubmatch(expr)
	if m == nil {
		return nil, false
	}
	fn, ok := r.funcs[m[1]]
	if !ok {
		return nil, false
	}
	return fn(splitArgs(m[2])), true
}

// date formats the clock with a Go layout, "2006-01-02" by default
func (r *Registry) date(args []string) any {
	if len(args) > 0 && args[0] != "" {
		return r.now().Format(args[0])
	}
	return r.now().Format("2006-01-02")
}

// splitArgs splits on commas outside single or double quotes and strips the quotes.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var (
		args  []string
		cur   strings.Builder
		quote rune
	)
	for _, ch := range s {
		switch {
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && ch == ',':
			args = append(args, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(ch)
		}
	}
	return append(args, strings.TrimSpace(cur.String()))
}

func lookupEnv(args []string) any {
	if len(args) == 0 {
		return ""
	}
	if v, ok := os.LookupEnv(args[0]); ok {
		return v
	}
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

func hostname([]string) any {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slug lowercases its arguments and joins them with dashes, for use in paths
func slug(args []string) any {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(strings.Join(args, " ")), "-"), "-")
}
