package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edupulse/student-insight-hub/internal/domain/cohort"
	"github.com/edupulse/student-insight-hub/internal/domain/scoring"
)

// LoadProfile loads a scoring profile from a YAML file. Fields absent
// from the file keep their reference-profile values, so a partial
// override file only tweaks the weights it names. An empty path returns
// the built-in reference profile.
//
// Example profile file:
//
//	name: pilot-2026
//	engagement_weights:
//	  login_frequency: 0.25
//	  inactivity: 0.10
//	thresholds:
//	  risk_high_min: 55
func LoadProfile(path string) (scoring.Profile, error) {
	profile := scoring.DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("read scoring profile %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("parse scoring profile %s: %w", path, err)
	}

	if err := profile.Validate(); err != nil {
		return profile, fmt.Errorf("invalid scoring profile %s: %w", path, err)
	}

	return profile, nil
}

// LoadScanConfig reads the alert thresholds from the same profile file.
// Fields absent from the file keep the default thresholds, so the alert
// knobs can be tuned alongside the scoring weights:
//
//	alerts:
//	  inactivity_days: 10
//	  drop_delta: 15
func LoadScanConfig(path string) (cohort.ScanConfig, error) {
	cfg := cohort.DefaultScanConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read scoring profile %s: %w", path, err)
	}

	var doc struct {
		Alerts struct {
			InactivityDays *int     `yaml:"inactivity_days"`
			DropDelta      *float64 `yaml:"drop_delta"`
		} `yaml:"alerts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cfg, fmt.Errorf("parse scoring profile %s: %w", path, err)
	}

	if doc.Alerts.InactivityDays != nil {
		cfg.InactivityDays = *doc.Alerts.InactivityDays
	}
	if doc.Alerts.DropDelta != nil {
		cfg.DropDelta = *doc.Alerts.DropDelta
	}

	if cfg.InactivityDays < 0 || cfg.DropDelta < 0 {
		return cohort.DefaultScanConfig(), fmt.Errorf("invalid alert thresholds in %s: values must be non-negative", path)
	}

	return cfg, nil
}
