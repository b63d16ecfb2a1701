package config

import (
	"errors"
	"fmt"
	"net/url"
)

// ConfigurationError reports an invalid or missing configuration value. It is
// fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// KnownReporters are the reporter names accepted in Reporters.
var KnownReporters = []string{"console", "json", "junit", "html", "tap", "history", "metrics"}

// NotifyPolicies are the accepted values of Notify.On.
var NotifyPolicies = []string{"always", "failure", "success", "recovery", "never"}

// Validate checks c and returns every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if c.ReportDir == "" {
		add("reportDir", "is required")
	}
	if c.GetEvidenceEnabled() && c.Evidence.Directory == "" {
		add("evidence.directory", "is required when evidence is enabled")
	}
	if c.Concurrency < 0 {
		add("concurrency", "must not be negative, got %d", c.Concurrency)
	}
	if c.StartRate < 0 {
		add("startRate", "must not be negative, got %v", c.StartRate)
	}
	for _, r := range c.Reporters {
		if !contains(KnownReporters, r) {
			add("reporters", "unknown reporter %q", r)
		}
	}
	if contains(c.Reporters, "history") && c.HistoryDSN == "" {
		add("historyDSN", "is required by the history reporter")
	}
	if c.WebDriverURL != "" {
		if u, err := url.Parse(c.WebDriverURL); err != nil || u.Scheme == "" || u.Host == "" {
			add("webdriverURL", "must be an absolute URL, got %q", c.WebDriverURL)
		}
	}
	if c.Notify.On != "" && !contains(NotifyPolicies, c.Notify.On) {
		add("notify.on", "unknown policy %q", c.Notify.On)
	}

	return errors.Join(errs...)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
