package config

const (
	DefaultReportName  = "Test Automation Report"
	DefaultReportDir   = "reports"
	DefaultEvidenceDir = "evidence"
	DefaultConcurrency = 5
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		ReportName:  DefaultReportName,
		ReportDir:   DefaultReportDir,
		Environment: "dev",
		Concurrency: DefaultConcurrency,
		StartRate:   0, // unlimited
		Reporters:   []string{"console"},
		Evidence: EvidenceConfig{
			Enabled:   BoolPtr(true),
			OnSuccess: BoolPtr(false),
			Directory: DefaultEvidenceDir,
		},
		Notify: NotifyConfig{
			On: "failure",
		},
		Verbose: BoolPtr(false),
		NoColor: BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.ReportName == defaults.ReportName &&
		c.ReportDir == defaults.ReportDir &&
		c.Environment == defaults.Environment &&
		c.Concurrency == defaults.Concurrency &&
		c.StartRate == defaults.StartRate &&
		len(c.Reporters) == 1 && c.Reporters[0] == defaults.Reporters[0] &&
		c.GetEvidenceEnabled() == defaults.GetEvidenceEnabled() &&
		c.GetEvidenceOnSuccess() == defaults.GetEvidenceOnSuccess() &&
		c.Evidence.Directory == defaults.Evidence.Directory &&
		c.HistoryDSN == "" &&
		c.WebDriverURL == "" &&
		len(c.Attributes) == 0 &&
		c.Notify == defaults.Notify &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
