// Package builtin provides the functions available in configuration templates.
//
// Available functions:
//   - now(): Current time in RFC 3339
//   - timestamp(): Current Unix timestamp
//   - date(format): Current date, "2006-01-02" by default
//   - uuid(): Random UUID v4
//   - runid(): One UUID per registry, the same in every field of a run
//   - slug(text...): Lowercase dash-separated form of the arguments
//   - env(name, default): Environment variable value
//   - hostname(): Name of the machine running the tests
//
// Functions are invoked as {{date(2006-01-02)}} in values such as the report
// directory, so each run can write to its own folder.
package builtin
