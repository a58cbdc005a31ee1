package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/activity.report/internal/fsutil"
)

func TestDefaultActivityConfig(t *testing.T) {
	cfg := DefaultActivityConfig()

	if cfg.MilestoneSize == nil || *cfg.MilestoneSize != 500 {
		t.Errorf("Expected MilestoneSize 500, got %v", cfg.MilestoneSize)
	}
	if cfg.InactivityTimeout == nil || *cfg.InactivityTimeout != "1800s" {
		t.Errorf("Expected InactivityTimeout '1800s', got %v", cfg.InactivityTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	if cfg.GetInactivityTickInterval() != 10*time.Second {
		t.Errorf("GetInactivityTickInterval() = %v, want 10s", cfg.GetInactivityTickInterval())
	}
	if cfg.GetMovementAccelThreshold() != 0.03 {
		t.Errorf("GetMovementAccelThreshold() = %f, want 0.03", cfg.GetMovementAccelThreshold())
	}
}

func TestEmptyConfigGetters(t *testing.T) {
	cfg := &ActivityConfig{}

	if got := cfg.GetMilestoneSize(); got != 500 {
		t.Errorf("GetMilestoneSize() = %d, want 500", got)
	}
	if got := cfg.GetInactivityTimeout(); got != 30*time.Minute {
		t.Errorf("GetInactivityTimeout() = %v, want 30m", got)
	}
	if got := cfg.GetAccelSampleRateHz(); got != 50 {
		t.Errorf("GetAccelSampleRateHz() = %f, want 50", got)
	}
	if got := cfg.GetGyroSampleRateHz(); got != 50 {
		t.Errorf("GetGyroSampleRateHz() = %f, want 50", got)
	}
	if got := cfg.GetStrideLengthMeters(); got != 0.78 {
		t.Errorf("GetStrideLengthMeters() = %f, want 0.78", got)
	}

	bad := "soon"
	cfg.InactivityTimeout = &bad
	if got := cfg.GetInactivityTimeout(); got != 30*time.Minute {
		t.Errorf("unparseable timeout should fall back to default, got %v", got)
	}
}

func TestLoadActivityConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "activity.json")

	testJSON := `{
  "milestone_size": 1000,
  "inactivity_timeout": "45m",
  "movement_accel_threshold": 0.05
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadActivityConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetMilestoneSize() != 1000 {
		t.Errorf("GetMilestoneSize() = %d, want 1000", cfg.GetMilestoneSize())
	}
	if cfg.GetInactivityTimeout() != 45*time.Minute {
		t.Errorf("GetInactivityTimeout() = %v, want 45m", cfg.GetInactivityTimeout())
	}
	if cfg.GetMovementAccelThreshold() != 0.05 {
		t.Errorf("GetMovementAccelThreshold() = %f, want 0.05", cfg.GetMovementAccelThreshold())
	}
	// Omitted fields keep their defaults.
	if cfg.GetInactivityTickInterval() != 10*time.Second {
		t.Errorf("GetInactivityTickInterval() = %v, want 10s", cfg.GetInactivityTickInterval())
	}
}

func TestLoadActivityConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"wrong extension", write("activity.yaml", "{}"), ".json extension"},
		{"missing file", filepath.Join(tmpDir, "missing.json"), "failed to stat"},
		{"bad json", write("bad.json", "{"), "failed to parse"},
		{"zero milestone", write("zero.json", `{"milestone_size": 0}`), "milestone_size must be positive"},
		{"negative timeout", write("neg.json", `{"inactivity_timeout": "-5s"}`), "inactivity_timeout must be positive"},
		{"bad tick", write("tick.json", `{"inactivity_tick_interval": "often"}`), "invalid inactivity_tick_interval"},
		{"negative threshold", write("thr.json", `{"movement_accel_threshold": -1}`), "movement_accel_threshold"},
		{"zero gyro rate", write("gyro.json", `{"gyro_sample_rate_hz": 0}`), "gyro_sample_rate_hz"},
		{"zero stride", write("stride.json", `{"stride_length_meters": 0}`), "stride_length_meters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadActivityConfig(tt.path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadActivityConfig_TooLarge(t *testing.T) {
	p := filepath.Join(t.TempDir(), "big.json")
	if err := os.WriteFile(p, make([]byte, 1024*1024+1), 0644); err != nil {
		t.Fatalf("Failed to write big config: %v", err)
	}
	if _, err := LoadActivityConfig(p); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected too large error, got %v", err)
	}
}

func TestLoadActivityConfigFS(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("/etc/activity/tuning.json", []byte(`{"milestone_size": 1000, "gyro_sample_rate_hz": 25}`))
	fsys.WriteFile("/etc/activity/bad.json", []byte(`{"milestone_size": 0}`))

	cfg, err := LoadActivityConfigFS(fsys, "/etc/activity/tuning.json")
	if err != nil {
		t.Fatalf("LoadActivityConfigFS() error = %v", err)
	}
	if cfg.GetMilestoneSize() != 1000 || cfg.GetGyroSampleRateHz() != 25 {
		t.Errorf("unexpected values: milestone %d, gyro %v", cfg.GetMilestoneSize(), cfg.GetGyroSampleRateHz())
	}
	if cfg.GetAccelSampleRateHz() != 50 {
		t.Errorf("omitted field should keep its default, got %v", cfg.GetAccelSampleRateHz())
	}

	if _, err := LoadActivityConfigFS(fsys, "/etc/activity/bad.json"); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := LoadActivityConfigFS(fsys, "/etc/activity/missing.json"); err == nil || !strings.Contains(err.Error(), "failed to stat") {
		t.Errorf("expected stat error, got %v", err)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	want := DefaultActivityConfig()

	if cfg.GetMilestoneSize() != want.GetMilestoneSize() {
		t.Errorf("milestone_size = %d, want %d", cfg.GetMilestoneSize(), want.GetMilestoneSize())
	}
	if cfg.GetInactivityTimeout() != want.GetInactivityTimeout() {
		t.Errorf("inactivity_timeout = %v, want %v", cfg.GetInactivityTimeout(), want.GetInactivityTimeout())
	}
	if cfg.GetStrideLengthMeters() != want.GetStrideLengthMeters() {
		t.Errorf("stride_length_meters = %f, want %f", cfg.GetStrideLengthMeters(), want.GetStrideLengthMeters())
	}
}
