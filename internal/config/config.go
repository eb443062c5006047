// Package config loads the driver's runtime tunables: a viper-driven
// CLI/env/file layer for the things an operator flips per-invocation
// (concurrency, worker/planner command, sleep interval), and a small
// rarely-touched TOML file for the numeric retry/threshold constants a
// human tunes once and leaves alone.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"golang.org/x/mod/semver"
)

// SchemaVersion is the config schema this binary understands. A walk
// created by a newer binary (higher schema_version) is still loaded, with
// a warning — see CheckSchemaVersion.
const SchemaVersion = "v1"

var v *viper.Viper

// Initialize sets up the viper configuration singleton. Should be called
// once at process startup, mirroring the teacher's precedence chain:
// project .walk/config.yaml > ~/.config/walk/config.yaml > ~/.walk/config.yaml,
// then WALK_-prefixed environment variables, then flags bound by the
// caller via BindPFlag.
func Initialize() error {
	v = V()
	v.SetConfigType("yaml")

	configFileSet := false
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".walk", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "walk", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".walk", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("WALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("max-concurrency", 1)
	v.SetDefault("worker-command", "")
	v.SetDefault("planner-command", "")
	v.SetDefault("sleep-interval", "5s")
	v.SetDefault("shutdown-drain-timeout", "30s")
	v.SetDefault("planning-threshold", 15000)
	v.SetDefault("planner-byte-budget", 20000)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// V returns the initialized viper instance (for cobra flag binding).
func V() *viper.Viper {
	if v == nil {
		v = viper.New()
	}
	return v
}

// Thresholds are the numeric retry/planning constants from spec §4.2/§4.6,
// overridable via .walk/thresholds.toml.
type Thresholds struct {
	MaxFailures          int     `toml:"max_failures"`
	MaxPlanningRounds    int     `toml:"max_planning_rounds"`
	PlanningThresholdMin int     `toml:"planning_threshold_min"`
	PlanningThresholdMax int     `toml:"planning_threshold_max"`
	GrowthFactor         float64 `toml:"growth_factor"`
	ShrinkFactor         float64 `toml:"shrink_factor"`
}

// DefaultThresholds matches the defaults named in spec §4.2/§4.6.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxFailures:          3,
		MaxPlanningRounds:    3,
		PlanningThresholdMin: 5000,
		PlanningThresholdMax: 50000,
		GrowthFactor:         1.5,
		ShrinkFactor:         0.75,
	}
}

// LoadThresholds reads .walk/thresholds.toml under walkDir if present,
// falling back to DefaultThresholds for any field the file omits.
func LoadThresholds(walkDir string) (Thresholds, error) {
	t := DefaultThresholds()
	path := filepath.Join(walkDir, ".walk", "thresholds.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return t, nil
	}
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return Thresholds{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return t, nil
}

// SleepInterval returns the configured between-iteration sleep duration.
func SleepInterval() time.Duration {
	return V().GetDuration("sleep-interval")
}

// ShutdownDrainTimeout returns the configured concurrent-mode drain bound.
func ShutdownDrainTimeout() time.Duration {
	return V().GetDuration("shutdown-drain-timeout")
}

// MaxConcurrency returns the configured worker concurrency (1 = sequential).
func MaxConcurrency() int {
	return V().GetInt("max-concurrency")
}

// WorkerCommand and PlannerCommand are the subprocess commands to invoke.
func WorkerCommand() string  { return V().GetString("worker-command") }
func PlannerCommand() string { return V().GetString("planner-command") }

// CheckSchemaVersion warns (via the returned bool) rather than fails when a
// walk's recorded config.schema_version is newer than this binary supports.
func CheckSchemaVersion(walkSchemaVersion string) (compatible bool, warning string) {
	if walkSchemaVersion == "" {
		return true, ""
	}
	a, b := "v"+strings.TrimPrefix(walkSchemaVersion, "v"), "v"+strings.TrimPrefix(SchemaVersion, "v")
	if !semver.IsValid(a) || !semver.IsValid(b) {
		return true, ""
	}
	if semver.Compare(a, b) > 0 {
		return false, fmt.Sprintf("walk config schema %s is newer than this binary's %s; some fields may be ignored", walkSchemaVersion, SchemaVersion)
	}
	return true, ""
}
