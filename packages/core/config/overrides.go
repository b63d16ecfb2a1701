package config

import (
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitreport/packages/core/env"
)

// EnvPrefix prefixes environment variables that override configuration values,
// e.g. HITREPORT_REPORT_DIR.
const EnvPrefix = "HITREPORT_"

// ApplyEnv overrides c with the HITREPORT_ variables of the process environment.
func (c *Config) ApplyEnv() error {
	return c.ApplyOverrides(env.LoadSystemEnv(EnvPrefix))
}

// ApplyOverrides sets fields from vars, keyed by the name without EnvPrefix.
// Unknown keys are ignored.
func (c *Config) ApplyOverrides(vars map[string]string) error {
	for _, key := range env.SortedKeys(vars) {
		value := strings.TrimSpace(vars[key])
		var err error
		switch key {
		case "REPORT_NAME":
			c.ReportName = value
		case "REPORT_DIR":
			c.ReportDir = value
		case "ENVIRONMENT":
			c.Environment = value
		case "CONCURRENCY":
			c.Concurrency, err = strconv.Atoi(value)
		case "START_RATE":
			c.StartRate, err = strconv.ParseFloat(value, 64)
		case "REPORTERS":
			c.Reporters = splitList(value)
		case "EVIDENCE_ENABLED":
			c.Evidence.Enabled, err = parseBool(value)
		case "EVIDENCE_ON_SUCCESS":
			c.Evidence.OnSuccess, err = parseBool(value)
		case "EVIDENCE_DIR":
			c.Evidence.Directory = value
		case "HISTORY_DSN":
			c.HistoryDSN = value
		case "WEBDRIVER_URL":
			c.WebDriverURL = value
		case "NOTIFY_ON":
			c.Notify.On = value
		case "SLACK_WEBHOOK":
			c.Notify.SlackWebhook = value
		case "SLACK_CHANNEL":
			c.Notify.SlackChannel = value
		case "VERBOSE":
			c.Verbose, err = parseBool(value)
		case "NO_COLOR":
			c.NoColor, err = parseBool(value)
		}
		if err != nil {
			return &ConfigurationError{Field: EnvPrefix + key, Reason: err.Error()}
		}
	}
	return nil
}

// ResolveTemplates expands {{...}} templates in the path-like values, so a
// report directory such as "reports/{{date(2006-01-02)}}" is fixed once per run.
func (c *Config) ResolveTemplates(r *env.Resolver) {
	c.ReportName = r.Resolve(c.ReportName)
	c.ReportDir = r.Resolve(c.ReportDir)
	c.Evidence.Directory = r.Resolve(c.Evidence.Directory)
	c.HistoryDSN = r.Resolve(c.HistoryDSN)
	c.WebDriverURL = r.Resolve(c.WebDriverURL)
	c.Notify.SlackWebhook = r.Resolve(c.Notify.SlackWebhook)
	if len(c.Attributes) > 0 {
		c.Attributes = r.ResolveAll(c.Attributes)
	}
}

func parseBool(v string) (*bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
