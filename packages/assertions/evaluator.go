package assertions

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Kind selects how a Check compares Actual against Expected
type Kind string

const (
	KindEquals         Kind = "equals"
	KindNotEquals      Kind = "notEquals"
	KindTrue           Kind = "true"
	KindFalse          Kind = "false"
	KindNil            Kind = "nil"
	KindNotNil         Kind = "notNil"
	KindContains       Kind = "contains"
	KindNotContains    Kind = "notContains"
	KindStartsWith     Kind = "startsWith"
	KindEndsWith       Kind = "endsWith"
	KindMatches        Kind = "matches"
	KindGreater        Kind = "greater"
	KindGreaterOrEqual Kind = "greaterOrEqual"
	KindLess           Kind = "less"
	KindLessOrEqual    Kind = "lessOrEqual"
	KindLength         Kind = "length"
	KindIn             Kind = "in"
	KindIncludes       Kind = "includes"
	KindType           Kind = "type"
	KindJSONPath       Kind = "jsonPath"
	KindSchema         Kind = "schema"
	// KindPredicate records an outcome computed by the caller; Passed is taken as-is.
	KindPredicate Kind = "predicate"
)

// Check is a single assertion. Path is only used by KindJSONPath.
// Passed is only used by KindPredicate.
type Check struct {
	Kind     Kind
	Message  string
	Expected any
	Actual   any
	Path     string
	Passed   bool
}

type Result struct {
	Kind     Kind
	Message  string
	Expected any
	Actual   any
	Passed   bool
	// Detail explains a failure, e.g. "expected 'Login' to contain 'Dash'"
	Detail string
}

type Evaluator struct {
	baseDir string // Base directory for resolving schema file paths
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithBaseDir restricts schema files to dir and resolves relative paths against it.
func WithBaseDir(dir string) EvaluatorOption {
	return func(e *Evaluator) {
		e.baseDir = dir
	}
}

func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs c with a default Evaluator.
func Evaluate(c Check) *Result {
	return NewEvaluator().Evaluate(c)
}

func (e *Evaluator) Evaluate(c Check) *Result {
	result := &Result{
		Kind:     c.Kind,
		Message:  c.Message,
		Expected: c.Expected,
		Actual:   c.Actual,
	}

	if c.Kind == KindJSONPath {
		actual, found, err := jsonPathValue(c.Actual, c.Path)
		if err != nil {
			result.Detail = err.Error()
			return result
		}
		result.Actual = actual
		if c.Expected == nil {
			result.Passed = found
			if !found {
				result.Detail = fmt.Sprintf("expected path %q to exist", c.Path)
			}
			return result
		}
		result.Passed, result.Detail = e.equals(actual, c.Expected)
		return result
	}

	result.Passed, result.Detail = e.compare(c)

	// For length checks, show the computed length as the actual value
	if c.Kind == KindLength {
		result.Actual = computeLength(c.Actual)
	}
	return result
}

func (e *Evaluator) compare(c Check) (bool, string) {
	actual, expected := c.Actual, c.Expected
	switch c.Kind {
	case KindPredicate:
		if c.Passed {
			return true, ""
		}
		return false, fmt.Sprintf("expected %v, got %v", expected, actual)
	case KindEquals:
		return e.equals(actual, expected)
	case KindNotEquals:
		passed, _ := e.equals(actual, expected)
		if passed {
			return false, fmt.Sprintf("expected not to equal %v", expected)
		}
		return true, ""
	case KindTrue:
		return e.equals(actual, true)
	case KindFalse:
		return e.equals(actual, false)
	case KindNil:
		if isNil(actual) {
			return true, ""
		}
		return false, fmt.Sprintf("expected nil, got %v", actual)
	case KindNotNil:
		if isNil(actual) {
			return false, "expected to exist"
		}
		return true, ""
	case KindGreater:
		return e.compareNumeric(actual, expected, ">")
	case KindGreaterOrEqual:
		return e.compareNumeric(actual, expected, ">=")
	case KindLess:
		return e.compareNumeric(actual, expected, "<")
	case KindLessOrEqual:
		return e.compareNumeric(actual, expected, "<=")
	case KindContains:
		return e.contains(actual, expected)
	case KindNotContains:
		passed, _ := e.contains(actual, expected)
		if passed {
			return false, fmt.Sprintf("expected not to contain %v", expected)
		}
		return true, ""
	case KindStartsWith:
		return e.startsWith(actual, expected)
	case KindEndsWith:
		return e.endsWith(actual, expected)
	case KindMatches:
		return e.matches(actual, expected)
	case KindLength:
		return e.length(actual, expected)
	case KindIn:
		return e.in(actual, expected)
	case KindIncludes:
		return e.includes(actual, expected)
	case KindType:
		return e.typeCheck(actual, expected)
	case KindSchema:
		return e.schema(actual, expected)
	default:
		return false, fmt.Sprintf("unknown assertion kind: %q", c.Kind)
	}
}

func (e *Evaluator) equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk && eOk && actualNum == expectedNum {
		return true, ""
	}

	if isNil(actual) || isNil(expected) {
		return false, fmt.Sprintf("expected %v, got %v", expected, actual)
	}

	actualStr := fmt.Sprintf("%v", actual)
	expectedStr := fmt.Sprintf("%v", expected)
	if actualStr == expectedStr {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func (e *Evaluator) compareNumeric(actual, expected any, op string) (bool, string) {
	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)

	if !aOk || !eOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	var passed bool
	switch op {
	case ">":
		passed = actualNum > expectedNum
	case ">=":
		passed = actualNum >= expectedNum
	case "<":
		passed = actualNum < expectedNum
	case "<=":
		passed = actualNum <= expectedNum
	}

	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v %s %v", actual, op, expected)
}

func (e *Evaluator) contains(actual, expected any) (bool, string) {
	actualStr := fmt.Sprintf("%v", actual)
	expectedStr := fmt.Sprintf("%v", expected)
	if strings.Contains(actualStr, expectedStr) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to contain '%v'", actual, expected)
}

func (e *Evaluator) startsWith(actual, expected any) (bool, string) {
	actualStr := fmt.Sprintf("%v", actual)
	expectedStr := fmt.Sprintf("%v", expected)
	if strings.HasPrefix(actualStr, expectedStr) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to start with '%v'", actual, expected)
}

func (e *Evaluator) endsWith(actual, expected any) (bool, string) {
	actualStr := fmt.Sprintf("%v", actual)
	expectedStr := fmt.Sprintf("%v", expected)
	if strings.HasSuffix(actualStr, expectedStr) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to end with '%v'", actual, expected)
}

func (e *Evaluator) matches(actual, expected any) (bool, string) {
	actualStr := fmt.Sprintf("%v", actual)
	pattern := fmt.Sprintf("%v", expected)

	pattern = strings.TrimPrefix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}

	if re.MatchString(actualStr) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to match /%v/", actual, pattern)
}

// computeLength returns the length of a value, or -1 if length cannot be computed
func computeLength(actual any) int {
	switch v := actual.(type) {
	case string:
		return len(v)
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	case nil:
		return -1
	default:
		rv := reflect.ValueOf(actual)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String, reflect.Chan:
			return rv.Len()
		default:
			return -1
		}
	}
}

func (e *Evaluator) length(actual, expected any) (bool, string) {
	expectedLen, ok := toInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}

	actualLen := computeLength(actual)
	if actualLen == -1 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}

	if actualLen == expectedLen {
		return true, ""
	}
	return false, fmt.Sprintf("expected length %d, got %d", expectedLen, actualLen)
}

func (e *Evaluator) includes(actual, expected any) (bool, string) {
	items, ok := toSlice(actual)
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}

	for _, item := range items {
		if passed, _ := e.equals(item, expected); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected array to include %v", expected)
}

func (e *Evaluator) in(actual, expected any) (bool, string) {
	items, ok := toSlice(expected)
	if !ok {
		return false, fmt.Sprintf("expected array for 'in' check, got %T", expected)
	}

	for _, item := range items {
		if passed, _ := e.equals(actual, item); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected %v to be in %v", actual, expected)
}

func (e *Evaluator) typeCheck(actual, expected any) (bool, string) {
	expectedType := fmt.Sprintf("%v", expected)
	actualType := typeName(actual)

	if actualType == expectedType {
		return true, ""
	}
	return false, fmt.Sprintf("expected type %s, got %s", expectedType, actualType)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	}
	return reflect.TypeOf(v).String()
}

func (e *Evaluator) schema(actual, expected any) (bool, string) {
	schemaLoader, err := e.schemaLoader(expected)
	if err != nil {
		return false, err.Error()
	}

	var documentLoader gojsonschema.JSONLoader
	switch v := actual.(type) {
	case string:
		documentLoader = gojsonschema.NewStringLoader(v)
	case []byte:
		documentLoader = gojsonschema.NewBytesLoader(v)
	default:
		documentLoader = gojsonschema.NewGoLoader(v)
	}

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}

	if result.Valid() {
		return true, ""
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(errors, "; "))
}

// schemaLoader accepts an inline JSON schema string, raw bytes, a Go value,
// or a path to a schema file.
func (e *Evaluator) schemaLoader(expected any) (gojsonschema.JSONLoader, error) {
	switch v := expected.(type) {
	case []byte:
		return gojsonschema.NewBytesLoader(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "{") {
			return gojsonschema.NewStringLoader(trimmed), nil
		}
		path := trimmed
		if !filepath.IsAbs(path) && e.baseDir != "" {
			path = filepath.Join(e.baseDir, path)
		}
		if err := validatePathWithinBase(path, e.baseDir); err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve schema path: %v", err)
		}
		return gojsonschema.NewReferenceLoader("file://" + filepath.ToSlash(abs)), nil
	case nil:
		return nil, fmt.Errorf("schema check requires a schema")
	default:
		return gojsonschema.NewGoLoader(v), nil
	}
}

// validatePathWithinBase checks that the resolved path stays within the base directory
// to prevent path traversal attacks
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}

// jsonPathValue looks up path in a JSON document given as string, bytes or any
// value that marshals to JSON.
func jsonPathValue(doc any, path string) (any, bool, error) {
	var raw string
	switch v := doc.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("failed to marshal document: %v", err)
		}
		raw = string(data)
	}
	if !gjson.Valid(raw) {
		return nil, false, fmt.Errorf("document is not valid JSON")
	}

	result := gjson.Get(raw, convertBracketNotation(path))
	if !result.Exists() {
		return nil, false, nil
	}
	return result.Value(), true, nil
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "items[0].tags[1]" -> "items.0.tags.1"
func convertBracketNotation(path string) string {
	result := bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(result, ".")
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func toSlice(v any) ([]any, bool) {
	if arr, ok := v.([]any); ok {
		return arr, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}
