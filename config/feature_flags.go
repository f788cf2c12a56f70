package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages runtime toggles for optional subsystems. Flags let
// operators run the hub degraded (no cache, no warehouse sync) without a
// rebuild.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool
}

// Predefined feature flag names.
const (
	// === Insight Features ===
	FeatureInsightCache = "insights.cache" // memoize KPI/alert scans in Redis

	// === Worker Features ===
	FeatureWarehouseSync    = "worker.warehouse_sync"    // pull feature batches from postgres
	FeatureAlertScanJob     = "worker.alert_scan"        // periodic cohort anomaly scan
	FeatureScheduledRescore = "worker.scheduled_rescore" // periodic full rescore

	// === Event Features ===
	FeatureRedisEventFanout = "events.redis_fanout" // publish domain events across instances

	// === Development Features ===
	FeatureSyntheticSeed = "dev.synthetic_seed" // seed the population with generated students
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureInsightCache] = &Feature{
		Name:        FeatureInsightCache,
		Description: "Memoize KPI and alert scans in Redis",
		Enabled:     true,
	}

	ff.features[FeatureWarehouseSync] = &Feature{
		Name:        FeatureWarehouseSync,
		Description: "Sync feature batches from the warehouse",
		Enabled:     true,
	}

	ff.features[FeatureAlertScanJob] = &Feature{
		Name:        FeatureAlertScanJob,
		Description: "Run the periodic cohort anomaly scan",
		Enabled:     true,
	}

	ff.features[FeatureScheduledRescore] = &Feature{
		Name:        FeatureScheduledRescore,
		Description: "Re-apply the scoring engine on a schedule",
		Enabled:     true,
	}

	ff.features[FeatureRedisEventFanout] = &Feature{
		Name:        FeatureRedisEventFanout,
		Description: "Fan out domain events across instances via Redis",
		Enabled:     false, // single-instance deployments don't need it
	}

	ff.features[FeatureSyntheticSeed] = &Feature{
		Name:        FeatureSyntheticSeed,
		Description: "Seed the population with synthetic students on boot",
		Enabled:     false,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false
// Example: FEATURE_INSIGHTS_CACHE=false
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "insights.cache" -> "FEATURE_INSIGHTS_CACHE"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}
	return feature.Enabled
}

// EnableFeature enables a feature.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.set(featureName, true)
}

// DisableFeature disables a feature.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.set(featureName, false)
}

func (ff *FeatureFlags) set(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
