package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/activity.report/internal/fsutil"
)

// DefaultConfigPath is the path to the canonical activity tuning defaults file.
const DefaultConfigPath = "config/activity.defaults.json"

// ActivityConfig holds the aggregator tuning values. Every field is optional;
// the Get* methods fall back to the built-in defaults for unset fields.
type ActivityConfig struct {
	// Milestone rule
	MilestoneSize *int `json:"milestone_size,omitempty"`

	// Inactivity rule
	InactivityTimeout      *string  `json:"inactivity_timeout,omitempty"`       // duration string like "1800s"
	InactivityTickInterval *string  `json:"inactivity_tick_interval,omitempty"` // duration string like "10s"
	MovementAccelThreshold *float64 `json:"movement_accel_threshold,omitempty"` // g

	// Motion sampling
	AccelSampleRateHz *float64 `json:"accel_sample_rate_hz,omitempty"`
	GyroSampleRateHz  *float64 `json:"gyro_sample_rate_hz,omitempty"`

	// Distance estimate
	StrideLengthMeters *float64 `json:"stride_length_meters,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultActivityConfig returns an ActivityConfig with every field populated
// with its default value.
func DefaultActivityConfig() *ActivityConfig {
	return &ActivityConfig{
		MilestoneSize:          ptrInt(500),
		InactivityTimeout:      ptrString("1800s"),
		InactivityTickInterval: ptrString("10s"),
		MovementAccelThreshold: ptrFloat64(0.03),
		AccelSampleRateHz:      ptrFloat64(50),
		GyroSampleRateHz:       ptrFloat64(50),
		StrideLengthMeters:     ptrFloat64(0.78),
	}
}

// LoadActivityConfig loads an ActivityConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted from
// the file keep their defaults, so partial configs are safe.
func LoadActivityConfig(path string) (*ActivityConfig, error) {
	return LoadActivityConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadActivityConfigFS is LoadActivityConfig reading from fsys.
func LoadActivityConfigFS(fsys fsutil.FileSystem, path string) (*ActivityConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ActivityConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *ActivityConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadActivityConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values can build an aggregator.
func (c *ActivityConfig) Validate() error {
	if c.MilestoneSize != nil && *c.MilestoneSize <= 0 {
		return fmt.Errorf("milestone_size must be positive, got %d", *c.MilestoneSize)
	}

	for name, value := range map[string]*string{
		"inactivity_timeout":       c.InactivityTimeout,
		"inactivity_tick_interval": c.InactivityTickInterval,
	} {
		if value == nil || *value == "" {
			continue
		}
		d, err := time.ParseDuration(*value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *value, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *value)
		}
	}

	if c.MovementAccelThreshold != nil && *c.MovementAccelThreshold < 0 {
		return fmt.Errorf("movement_accel_threshold must be non-negative, got %f", *c.MovementAccelThreshold)
	}
	if c.AccelSampleRateHz != nil && *c.AccelSampleRateHz <= 0 {
		return fmt.Errorf("accel_sample_rate_hz must be positive, got %f", *c.AccelSampleRateHz)
	}
	if c.GyroSampleRateHz != nil && *c.GyroSampleRateHz <= 0 {
		return fmt.Errorf("gyro_sample_rate_hz must be positive, got %f", *c.GyroSampleRateHz)
	}
	if c.StrideLengthMeters != nil && *c.StrideLengthMeters <= 0 {
		return fmt.Errorf("stride_length_meters must be positive, got %f", *c.StrideLengthMeters)
	}

	return nil
}

// GetMilestoneSize returns the milestone_size value or the default.
func (c *ActivityConfig) GetMilestoneSize() int {
	if c.MilestoneSize == nil {
		return 500
	}
	return *c.MilestoneSize
}

// GetInactivityTimeout parses and returns the InactivityTimeout as a time.Duration.
func (c *ActivityConfig) GetInactivityTimeout() time.Duration {
	return parseDurationOr(c.InactivityTimeout, 1800*time.Second)
}

// GetInactivityTickInterval parses and returns the InactivityTickInterval as a time.Duration.
func (c *ActivityConfig) GetInactivityTickInterval() time.Duration {
	return parseDurationOr(c.InactivityTickInterval, 10*time.Second)
}

// GetMovementAccelThreshold returns the movement_accel_threshold value or the default.
func (c *ActivityConfig) GetMovementAccelThreshold() float64 {
	if c.MovementAccelThreshold == nil {
		return 0.03
	}
	return *c.MovementAccelThreshold
}

func (c *ActivityConfig) GetAccelSampleRateHz() float64 {
	if c.AccelSampleRateHz == nil {
		return 50
	}
	return *c.AccelSampleRateHz
}

func (c *ActivityConfig) GetGyroSampleRateHz() float64 {
	if c.GyroSampleRateHz == nil {
		return 50
	}
	return *c.GyroSampleRateHz
}

// GetStrideLengthMeters returns the stride_length_meters value or the default.
func (c *ActivityConfig) GetStrideLengthMeters() float64 {
	if c.StrideLengthMeters == nil {
		return 0.78
	}
	return *c.StrideLengthMeters
}

func parseDurationOr(value *string, fallback time.Duration) time.Duration {
	if value == nil || *value == "" {
		return fallback
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fallback // default on parse error
	}
	return d
}
