// Package assertions evaluates assertion checks used by soft-assertion sessions.
//
// Every assertion is one tagged Check value {Kind, Message, Expected, Actual, Path},
// evaluated by a single Evaluate entry point. Supported kinds:
//   - Equality (equals, notEquals, true, false, nil, notNil)
//   - Strings (contains, notContains, startsWith, endsWith, matches)
//   - Numbers (greater, greaterOrEqual, less, lessOrEqual)
//   - Collections (length, in, includes)
//   - Types (type: string, number, boolean, array, object, null)
//   - JSON documents (jsonPath via gjson, schema via JSON Schema)
//
// Evaluation never panics and never returns an error: a check that cannot be
// evaluated is reported as a failed Result with an explanatory Detail.
package assertions
