package conf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"veil/internal/flog"
)

// TestPCAPConfigValidation tests the PCAP configuration validation
func TestPCAPConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		pcap    PCAP
		wantErr bool
	}{
		{
			name:    "valid config",
			pcap:    PCAP{Snaplen: 65535, Level: 3},
			wantErr: false,
		},
		{
			name:    "snaplen too small",
			pcap:    PCAP{Snaplen: 10, Level: 3},
			wantErr: true,
		},
		{
			name:    "snaplen too large",
			pcap:    PCAP{Snaplen: 1 << 20, Level: 3},
			wantErr: true,
		},
		{
			name:    "level zero",
			pcap:    PCAP{Snaplen: 65535, Level: 0},
			wantErr: true,
		},
		{
			name:    "level too high",
			pcap:    PCAP{Snaplen: 65535, Level: 6},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.pcap.validate()
			hasErr := len(errs) > 0
			if hasErr != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v, errors: %v", hasErr, tt.wantErr, errs)
			}
		})
	}
}

// TestPCAPSetDefaults tests the PCAP default values
func TestPCAPSetDefaults(t *testing.T) {
	tests := []struct {
		name            string
		initial         PCAP
		expectedSnaplen int
		expectedLevel   int
		expectedSkip    bool
	}{
		{
			name:            "defaults",
			initial:         PCAP{},
			expectedSnaplen: 65535,
			expectedLevel:   3,
			expectedSkip:    true,
		},
		{
			name:            "custom values preserved",
			initial:         PCAP{Snaplen: 1600, Level: 5, SkipNonTCP: boolPtr(false)},
			expectedSnaplen: 1600,
			expectedLevel:   5,
			expectedSkip:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcap := tt.initial
			pcap.setDefaults()

			if pcap.Snaplen != tt.expectedSnaplen {
				t.Errorf("Snaplen = %v, want %v", pcap.Snaplen, tt.expectedSnaplen)
			}
			if pcap.Level != tt.expectedLevel {
				t.Errorf("Level = %v, want %v", pcap.Level, tt.expectedLevel)
			}
			if *pcap.SkipNonTCP != tt.expectedSkip {
				t.Errorf("SkipNonTCP = %v, want %v", *pcap.SkipNonTCP, tt.expectedSkip)
			}
		})
	}
}

func TestSecurityValidation(t *testing.T) {
	tests := []struct {
		name     string
		security Security
		wantErrs int
	}{
		{"valid", Security{FragmentationBytes: 300, DelayMS: 50, RandomizationLevel: 3}, 0},
		{"fragment low", Security{FragmentationBytes: 99, DelayMS: 50, RandomizationLevel: 3}, 1},
		{"fragment high", Security{FragmentationBytes: 501, DelayMS: 50, RandomizationLevel: 3}, 1},
		{"delay low", Security{FragmentationBytes: 300, DelayMS: 9, RandomizationLevel: 3}, 1},
		{"level high", Security{FragmentationBytes: 300, DelayMS: 50, RandomizationLevel: 6}, 1},
		{"all wrong", Security{FragmentationBytes: 1, DelayMS: 1000, RandomizationLevel: 9}, 3},
		{"browser casing", Security{FragmentationBytes: 300, DelayMS: 50, RandomizationLevel: 3, SNICasing: "firefox"}, 0},
		{"unknown casing", Security{FragmentationBytes: 300, DelayMS: 50, RandomizationLevel: 3, SNICasing: "netscape"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.security
			s.setDefaults()
			if errs := s.validate(); len(errs) != tt.wantErrs {
				t.Errorf("validate() returned %d errors, want %d: %v", len(errs), tt.wantErrs, errs)
			}
		})
	}
}

func TestEngineValidation(t *testing.T) {
	tests := []struct {
		name    string
		engine  Engine
		wantErr bool
	}{
		{"defaults", Engine{}, false},
		{"seeded", Engine{Seed: "fixed"}, false},
		{"level out of range", Engine{DefaultLevel: 8}, true},
		{"delay out of range", Engine{DefaultDelayMS: 5}, true},
		{"unknown profile", Engine{Profiles: []string{"linux", "plan9"}}, true},
		{"short interval", Engine{RotationInterval: time.Millisecond}, true},
		{"timeout below interval", Engine{RotationInterval: 2 * time.Hour, SessionTimeout: time.Hour}, true},
		{"custom interval", Engine{RotationInterval: 10 * time.Minute, SessionTimeout: time.Hour}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.engine
			e.setDefaults()
			errs := e.validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("validate() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
log:
  level: debug
security:
  fragmentation_bytes: 200
  randomization_level: 1
  enable_sni_obfuscation: false
  sni_casing: chrome
engine:
  seed: "test"
  profiles: [windows]
  rotation_interval: 30m
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if c.Log.Level() != flog.Debug {
		t.Errorf("Log.Level() = %v, want %v", c.Log.Level(), flog.Debug)
	}
	if c.Security.FragmentationBytes != 200 || c.Security.DelayMS != 50 {
		t.Errorf("Security = %+v", c.Security)
	}
	if *c.Security.EnableSNIObfuscation || !*c.Security.EnableTLSFragmentation {
		t.Errorf("toggles = sni %v, frag %v", *c.Security.EnableSNIObfuscation, *c.Security.EnableTLSFragmentation)
	}
	if c.Security.SNICasing != "chrome" {
		t.Errorf("Security.SNICasing = %q", c.Security.SNICasing)
	}
	if c.Engine.RotationInterval != 30*time.Minute || !*c.Engine.StickySessions {
		t.Errorf("Engine rotation = %v, sticky %v", c.Engine.RotationInterval, *c.Engine.StickySessions)
	}
	if len(c.Engine.Profiles) != 1 || c.Engine.Profiles[0] != "windows" {
		t.Errorf("Engine.Profiles = %v", c.Engine.Profiles)
	}
}

func TestLoadAggregatesErrors(t *testing.T) {
	_, err := Load([]byte("log:\n  level: loud\nsecurity:\n  delay_ms: 500\n"))
	if err == nil {
		t.Fatal("Load() succeeded, want validation error")
	}
	msg := err.Error()
	for _, want := range []string{"validation failed", "unknown log level", "delay_ms"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	if _, err := Load([]byte("secrity:\n  delay_ms: 20\n")); err == nil {
		t.Error("Load() accepted an unknown section")
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}
