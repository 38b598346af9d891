package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles. Flags are read from the environment
// once and may be flipped at runtime.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// Predefined feature flag names.
const (
	FeatureInterpreter = "interpreter.enabled"  // POST /api/v1/commands
	FeatureReportXLSX  = "report.xlsx_export"   // spreadsheet download
	FeatureBulkImport  = "students.bulk_import" // roster import
	FeatureSeedStudent = "archive.seed_student" // sample student in an empty archive
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureInterpreter] = &Feature{
		Name:        FeatureInterpreter,
		Description: "Free-text grade instructions through the interpreter",
		Enabled:     false, // needs an API key
	}

	ff.features[FeatureReportXLSX] = &Feature{
		Name:        FeatureReportXLSX,
		Description: "Course report download as .xlsx",
		Enabled:     true,
	}

	ff.features[FeatureBulkImport] = &Feature{
		Name:        FeatureBulkImport,
		Description: "Create students from a pasted roster",
		Enabled:     true,
	}

	ff.features[FeatureSeedStudent] = &Feature{
		Name:        FeatureSeedStudent,
		Description: "Insert a sample student when the archive is empty",
		Enabled:     true,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false
// Example: FEATURE_INTERPRETER_ENABLED=true
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "report.xlsx_export" -> "FEATURE_REPORT_XLSX_EXPORT"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled now. Unknown features are off.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}
	return true
}

// SetEnabled flips a feature. Thread-safe for live updates.
func (ff *FeatureFlags) SetEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// EnableFeature enables a feature.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetEnabled(featureName, true)
}

// DisableFeature disables a feature.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetEnabled(featureName, false)
}

// Snapshot returns the enabled state of every feature, for /health and logs.
func (ff *FeatureFlags) Snapshot() map[string]bool {
	names := ff.Names()
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = ff.IsEnabled(name)
	}
	return out
}

// Names returns the known feature names, sorted.
func (ff *FeatureFlags) Names() []string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	names := make([]string, 0, len(ff.features))
	for name := range ff.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --- Errors ---

var (
	ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
