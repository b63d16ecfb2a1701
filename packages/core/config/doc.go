// Package config handles configuration loading and management for hitreport.
//
// It provides functionality for:
//   - Loading configuration from hitreport.yaml or hitreport.config.json files
//   - Default configuration values
//   - HITREPORT_ environment variable overrides
//   - {{...}} templates in report and evidence paths
//   - Validation, reported as *ConfigurationError
package config
