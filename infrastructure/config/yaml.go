package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlOverlay mirrors the subset of Config that operators may want to
// override from a file instead of the environment. Zero-value fields
// are left untouched; only fields explicitly present in the YAML
// document overwrite cfg.
type yamlOverlay struct {
	ServerAddress           *string   `yaml:"serverAddress"`
	Environment             *string   `yaml:"environment"`
	LogLevel                *string   `yaml:"logLevel"`
	AuthRequired            *bool     `yaml:"authRequired"`
	HubThresholdH           *int      `yaml:"hubThresholdH"`
	JournalRetentionEvents  *int      `yaml:"journalRetentionEvents"`
	JournalBackend          *string   `yaml:"journalBackend"`
	JournalBadgerPath       *string   `yaml:"journalBadgerPath"`
	SubscriberQueueCapacity *int      `yaml:"subscriberQueueCapacity"`
	HeartbeatSeconds        *int      `yaml:"heartbeatSeconds"`
	IdleTimeoutSeconds      *int      `yaml:"idleTimeoutSeconds"`
	BatchDeadlineSeconds    *int      `yaml:"batchDeadlineSeconds"`
	ProgressRateLimitMs     *int      `yaml:"progressRateLimitMs"`
	WorkspaceRoot           *string   `yaml:"workspaceRoot"`
	IgnorePatterns          *[]string `yaml:"ignorePatterns"`
	EnableMetrics           *bool     `yaml:"enableMetrics"`
	EnableTracing           *bool     `yaml:"enableTracing"`
	OTLPEndpoint            *string   `yaml:"otlpEndpoint"`
}

func applyYAMLOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var overlay yamlOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	mergeOverlay(cfg, &overlay)
	return nil
}

func mergeOverlay(cfg *Config, o *yamlOverlay) {
	if o.ServerAddress != nil {
		cfg.ServerAddress = *o.ServerAddress
	}
	if o.Environment != nil {
		cfg.Environment = *o.Environment
	}
	if o.LogLevel != nil {
		cfg.LogLevel = *o.LogLevel
	}
	if o.AuthRequired != nil {
		cfg.AuthRequired = *o.AuthRequired
	}
	if o.HubThresholdH != nil {
		cfg.HubThresholdH = *o.HubThresholdH
	}
	if o.JournalRetentionEvents != nil {
		cfg.JournalRetentionEvents = *o.JournalRetentionEvents
	}
	if o.JournalBackend != nil {
		cfg.JournalBackend = *o.JournalBackend
	}
	if o.JournalBadgerPath != nil {
		cfg.JournalBadgerPath = *o.JournalBadgerPath
	}
	if o.SubscriberQueueCapacity != nil {
		cfg.SubscriberQueueCapacity = *o.SubscriberQueueCapacity
	}
	if o.HeartbeatSeconds != nil {
		cfg.HeartbeatSeconds = *o.HeartbeatSeconds
	}
	if o.IdleTimeoutSeconds != nil {
		cfg.IdleTimeoutSeconds = *o.IdleTimeoutSeconds
	}
	if o.BatchDeadlineSeconds != nil {
		cfg.BatchDeadlineSeconds = *o.BatchDeadlineSeconds
	}
	if o.ProgressRateLimitMs != nil {
		cfg.ProgressRateLimitMs = *o.ProgressRateLimitMs
	}
	if o.WorkspaceRoot != nil {
		cfg.WorkspaceRoot = *o.WorkspaceRoot
	}
	if o.IgnorePatterns != nil {
		cfg.IgnorePatterns = *o.IgnorePatterns
	}
	if o.EnableMetrics != nil {
		cfg.EnableMetrics = *o.EnableMetrics
	}
	if o.EnableTracing != nil {
		cfg.EnableTracing = *o.EnableTracing
	}
	if o.OTLPEndpoint != nil {
		cfg.OTLPEndpoint = *o.OTLPEndpoint
	}
}
