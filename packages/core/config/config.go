package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the hitreport configuration
type Config struct {
	ReportName   string            `json:"reportName,omitempty" yaml:"reportName,omitempty"`
	ReportDir    string            `json:"reportDir,omitempty" yaml:"reportDir,omitempty"`
	Environment  string            `json:"environment,omitempty" yaml:"environment,omitempty"`
	Concurrency  int               `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	StartRate    float64           `json:"startRate,omitempty" yaml:"startRate,omitempty"` // test starts per second
	Reporters    []string          `json:"reporters,omitempty" yaml:"reporters,omitempty"`
	Evidence     EvidenceConfig    `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	HistoryDSN   string            `json:"historyDSN,omitempty" yaml:"historyDSN,omitempty"`
	WebDriverURL string            `json:"webdriverURL,omitempty" yaml:"webdriverURL,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"` // Added to every test description
	Notify       NotifyConfig      `json:"notify,omitempty" yaml:"notify,omitempty"`
	Verbose      *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor      *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

type EvidenceConfig struct {
	Enabled   *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	OnSuccess *bool  `json:"onSuccess,omitempty" yaml:"onSuccess,omitempty"`
	Directory string `json:"directory,omitempty" yaml:"directory,omitempty"`
}

type NotifyConfig struct {
	On           string `json:"on,omitempty" yaml:"on,omitempty"` // always, failure, success, recovery
	SlackWebhook string `json:"slackWebhook,omitempty" yaml:"slackWebhook,omitempty"`
	SlackChannel string `json:"slackChannel,omitempty" yaml:"slackChannel,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetEvidenceEnabled returns whether evidence is captured on failure, defaulting to true
func (c *Config) GetEvidenceEnabled() bool {
	return getBool(c.Evidence.Enabled, true)
}

// GetEvidenceOnSuccess returns whether evidence is also captured for passing tests, defaulting to false
func (c *Config) GetEvidenceOnSuccess() bool {
	return getBool(c.Evidence.OnSuccess, false)
}

func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// EvidenceDir returns the evidence directory. A relative directory is inside ReportDir.
func (c *Config) EvidenceDir() string {
	if c.Evidence.Directory == "" || filepath.IsAbs(c.Evidence.Directory) {
		return c.Evidence.Directory
	}
	return filepath.Join(c.ReportDir, c.Evidence.Directory)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	"hitreport.yaml",
	"hitreport.yml",
	".hitreport.yaml",
	"hitreport.config.json",
	".hitreport.config.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file over the defaults
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fileConfig := &Config{}
	if isYAML(path) {
		err = yaml.Unmarshal(data, fileConfig)
	} else {
		err = json.Unmarshal(data, fileConfig)
	}
	if err != nil {
		return nil, &ConfigurationError{Field: filepath.Base(path), Reason: err.Error()}
	}

	return DefaultConfig().Merge(fileConfig), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.ReportName != "" {
		result.ReportName = other.ReportName
	}
	if other.ReportDir != "" {
		result.ReportDir = other.ReportDir
	}
	if other.Environment != "" {
		result.Environment = other.Environment
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}
	if other.StartRate > 0 {
		result.StartRate = other.StartRate
	}
	if other.Evidence.Directory != "" {
		result.Evidence.Directory = other.Evidence.Directory
	}
	if other.HistoryDSN != "" {
		result.HistoryDSN = other.HistoryDSN
	}
	if other.WebDriverURL != "" {
		result.WebDriverURL = other.WebDriverURL
	}
	if other.Notify.On != "" {
		result.Notify.On = other.Notify.On
	}
	if other.Notify.SlackWebhook != "" {
		result.Notify.SlackWebhook = other.Notify.SlackWebhook
	}
	if other.Notify.SlackChannel != "" {
		result.Notify.SlackChannel = other.Notify.SlackChannel
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Evidence.Enabled != nil {
		result.Evidence.Enabled = other.Evidence.Enabled
	}
	if other.Evidence.OnSuccess != nil {
		result.Evidence.OnSuccess = other.Evidence.OnSuccess
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	// Merge attributes
	if len(other.Attributes) > 0 {
		attrs := make(map[string]string, len(result.Attributes)+len(other.Attributes))
		for k, v := range result.Attributes {
			attrs[k] = v
		}
		for k, v := range other.Attributes {
			attrs[k] = v
		}
		result.Attributes = attrs
	}

	// Merge reporters
	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

// SaveConfig saves the configuration to a file, as YAML or JSON by extension
func (c *Config) SaveConfig(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// String renders the effective configuration as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
