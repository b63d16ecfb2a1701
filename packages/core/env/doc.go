// Package env handles environment variables and template resolution for
// hitreport configuration.
//
// It provides functionality for:
//   - Loading dotenv files (.env, .env.local, etc.)
//   - Reading prefixed process environment variables as configuration overrides
//   - Template interpolation of {{variable}}, {{$ENV_VAR}} and {{func(args)}}
package env
