// Package cmd implements the hitreport CLI commands using Cobra.
//
// Available commands:
//   - init: Write a hitreport.yaml with the default settings
//   - validate: Load and validate the configuration
//   - report: Render a stored run as console, JSON, JUnit, HTML or TAP
//   - history: List stored runs
//   - version: Show hitreport version information
//
// Exit codes are listed in exitcodes.go.
package cmd
