// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package risk_engine

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full riskwatch configuration: connection settings for the
// two external services plus the scoring tables. It is loaded once at
// startup and passed explicitly into the components that need it; there is
// no process-wide mutable configuration state.
type Config struct {
	TheHive TheHiveConfig `yaml:"thehive"`
	Cortex  CortexConfig  `yaml:"cortex"`
	Scoring ScoringConfig `yaml:"scoring"`
	Watch   WatchConfig   `yaml:"watch"`
}

// TheHiveConfig holds connection settings for the case source.
type TheHiveConfig struct {
	URL    string `yaml:"url" validate:"required,url"`
	APIKey string `yaml:"api_key"`
}

// CortexConfig holds connection settings for the enrichment source.
type CortexConfig struct {
	URL    string `yaml:"url" validate:"required,url"`
	APIKey string `yaml:"api_key"`

	// RateLimit caps enrichment requests per second. Cortex instances are
	// commonly shared across SOC tooling; a runaway poll cycle must not
	// starve the analysts' own jobs.
	RateLimit float64 `yaml:"rate_limit" validate:"gt=0"`
}

// WatchConfig controls the polling loop.
type WatchConfig struct {
	// IntervalSeconds is the delay between poll cycles.
	IntervalSeconds int `yaml:"interval_seconds" validate:"min=1"`

	// MaxConcurrent bounds how many cases a single poll batch processes
	// in parallel.
	MaxConcurrent int `yaml:"max_concurrent" validate:"min=1"`

	// MetricsAddr is the listen address for the /metrics and /healthz
	// endpoints exposed while watching. Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Thresholds is an ordered set of lower bounds for risk classification.
// A score is classified into the highest tier whose bound it meets;
// anything below Low is Info.
type Thresholds struct {
	Critical float64 `yaml:"critical" validate:"gt=0"`
	High     float64 `yaml:"high" validate:"gt=0"`
	Medium   float64 `yaml:"medium" validate:"gt=0"`
	Low      float64 `yaml:"low" validate:"gt=0"`
}

// ScoringConfig holds every table the scoring math reads. All lookups are
// case-insensitive (keys are normalized to lowercase on load) and degrade
// to the configured defaults on a miss, never to an error.
type ScoringConfig struct {
	// VerdictWeights maps an analyzer verdict level to a likelihood
	// weight in [0,1]. Levels absent from the table weigh 0.
	VerdictWeights map[string]float64 `yaml:"verdict_weights" validate:"required,min=1"`

	// ConsensusThreshold is the number of distinct analyzers that must
	// agree on "malicious" before the boost applies.
	ConsensusThreshold int `yaml:"consensus_threshold" validate:"min=1"`

	// ConsensusBoost multiplies the base likelihood when the threshold
	// is met. The result is still capped at 1.0.
	ConsensusBoost float64 `yaml:"consensus_boost" validate:"gt=0"`

	// AssetValues maps a B2B asset type to its base dollar value.
	AssetValues       map[string]float64 `yaml:"asset_values" validate:"required,min=1"`
	DefaultAssetValue float64            `yaml:"default_asset_value" validate:"gt=0"`

	// SensitivityMultipliers scale the base asset value by data
	// sensitivity. DefaultSensitivity must be a key of the table.
	SensitivityMultipliers map[string]float64 `yaml:"sensitivity_multipliers" validate:"required,min=1"`
	DefaultSensitivity     string             `yaml:"default_sensitivity" validate:"required"`

	// ExposureWeights maps a B2C exposure type to a severity score on a
	// 0-100 scale. DefaultExposureType must be a key of the table.
	ExposureWeights     map[string]float64 `yaml:"exposure_weights" validate:"required,min=1"`
	DefaultExposureType string             `yaml:"default_exposure_type" validate:"required"`

	// RiskThresholds classify B2B composite scores (ALE in dollars).
	RiskThresholds Thresholds `yaml:"risk_thresholds"`

	// SeverityThresholds classify consumer composite scores (0-100).
	SeverityThresholds Thresholds `yaml:"severity_thresholds"`

	// DefaultAssetType is assumed when a B2B case carries no asset tag.
	DefaultAssetType string `yaml:"default_asset_type" validate:"required"`

	// ScoredTag marks a case as processed so it is not rescored.
	ScoredTag string `yaml:"scored_tag" validate:"required"`
}

// DefaultConfig returns the configuration used when no config file is
// present. The scoring tables carry the stock valuation tiers; deployments
// tune them per environment.
func DefaultConfig() *Config {
	return &Config{
		TheHive: TheHiveConfig{
			URL: "http://localhost:9000",
		},
		Cortex: CortexConfig{
			URL:       "http://localhost:9001",
			RateLimit: 10,
		},
		Watch: WatchConfig{
			IntervalSeconds: 30,
			MaxConcurrent:   4,
			MetricsAddr:     ":9321",
		},
		Scoring: ScoringConfig{
			VerdictWeights: map[string]float64{
				"malicious":  1.0,
				"suspicious": 0.6,
				"safe":       0.1,
				"info":       0.0,
			},
			ConsensusThreshold: 2,
			ConsensusBoost:     1.25,
			AssetValues: map[string]float64{
				"workstation":    5_000,
				"server":         50_000,
				"database":       500_000,
				"critical_infra": 2_000_000,
			},
			DefaultAssetValue: 50_000,
			SensitivityMultipliers: map[string]float64{
				"public":       1.0,
				"internal":     2.0,
				"confidential": 5.0,
				"restricted":   10.0,
			},
			DefaultSensitivity: "internal",
			ExposureWeights: map[string]float64{
				"email_only":      15,
				"phone":           25,
				"credit_card":     40,
				"bank_account":    60,
				"drivers_license": 70,
				"medical_records": 80,
				"ssn":             85,
				"ssn_and_dl":      95,
			},
			DefaultExposureType: "email_only",
			RiskThresholds: Thresholds{
				Critical: 500_000,
				High:     100_000,
				Medium:   10_000,
				Low:      1_000,
			},
			SeverityThresholds: Thresholds{
				Critical: 80,
				High:     60,
				Medium:   35,
				Low:      15,
			},
			DefaultAssetType: "server",
			ScoredTag:        "risk:scored",
		},
	}
}

// LoadConfig reads configuration from a YAML file, layered over the
// defaults. A missing file is not an error: the defaults are returned so
// the CLI works out of the box against a local TheHive/Cortex pair.
//
// Environment variables override file values for connection settings, so
// API keys stay out of config files:
//
//	THEHIVE_URL, THEHIVE_API_KEY, CORTEX_URL, CORTEX_API_KEY,
//	WATCH_INTERVAL (seconds)
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.Scoring.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural constraints and cross-field consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// The fallback defaults must themselves resolve, otherwise a lookup
	// miss could cascade into a second miss.
	s := &c.Scoring
	if _, ok := s.SensitivityMultipliers[s.DefaultSensitivity]; !ok {
		return fmt.Errorf("invalid config: default_sensitivity %q is not in sensitivity_multipliers", s.DefaultSensitivity)
	}
	if _, ok := s.ExposureWeights[s.DefaultExposureType]; !ok {
		return fmt.Errorf("invalid config: default_exposure_type %q is not in exposure_weights", s.DefaultExposureType)
	}
	return nil
}

// normalize lowercases all table keys and default names so lookups can be
// case-insensitive without re-normalizing on every call.
func (s *ScoringConfig) normalize() {
	s.VerdictWeights = lowerKeys(s.VerdictWeights)
	s.AssetValues = lowerKeys(s.AssetValues)
	s.SensitivityMultipliers = lowerKeys(s.SensitivityMultipliers)
	s.ExposureWeights = lowerKeys(s.ExposureWeights)
	s.DefaultSensitivity = strings.ToLower(s.DefaultSensitivity)
	s.DefaultExposureType = strings.ToLower(s.DefaultExposureType)
	s.DefaultAssetType = strings.ToLower(s.DefaultAssetType)
}

func lowerKeys(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("THEHIVE_URL"); v != "" {
		cfg.TheHive.URL = v
	}
	if v := os.Getenv("THEHIVE_API_KEY"); v != "" {
		cfg.TheHive.APIKey = v
	}
	if v := os.Getenv("CORTEX_URL"); v != "" {
		cfg.Cortex.URL = v
	}
	if v := os.Getenv("CORTEX_API_KEY"); v != "" {
		cfg.Cortex.APIKey = v
	}
	if v := os.Getenv("WATCH_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Watch.IntervalSeconds = n
		}
	}
}
