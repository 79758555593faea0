package conf

import (
	"fmt"

	"veil/internal/sni"
)

// Security mirrors the per-call transform options.
type Security struct {
	FragmentationBytes     int   `yaml:"fragmentation_bytes"`
	DelayMS                int   `yaml:"delay_ms"`
	RandomizationLevel     int   `yaml:"randomization_level"`
	EnableSNIObfuscation   *bool `yaml:"enable_sni_obfuscation"`
	EnableTLSFragmentation *bool `yaml:"enable_tls_fragmentation"`
	EnablePatternRotation  *bool `yaml:"enable_pattern_rotation"`
	// SNICasing is random, lower, or a browser name (chrome, firefox, edge,
	// safari, ios) whose casing to copy.
	SNICasing string `yaml:"sni_casing"`
}

func (s *Security) setDefaults() {
	if s.FragmentationBytes == 0 {
		s.FragmentationBytes = 300
	}
	if s.DelayMS == 0 {
		s.DelayMS = 50
	}
	if s.RandomizationLevel == 0 {
		s.RandomizationLevel = 3
	}
	if s.EnableSNIObfuscation == nil {
		s.EnableSNIObfuscation = boolPtr(true)
	}
	if s.EnableTLSFragmentation == nil {
		s.EnableTLSFragmentation = boolPtr(true)
	}
	if s.EnablePatternRotation == nil {
		s.EnablePatternRotation = boolPtr(false)
	}
	if s.SNICasing == "" {
		s.SNICasing = "random"
	}
}

func (s *Security) validate() []error {
	var errors []error

	if s.FragmentationBytes < 100 || s.FragmentationBytes > 500 {
		errors = append(errors, fmt.Errorf("security fragmentation_bytes must be between 100-500"))
	}
	if s.DelayMS < 10 || s.DelayMS > 100 {
		errors = append(errors, fmt.Errorf("security delay_ms must be between 10-100"))
	}
	if s.RandomizationLevel < 1 || s.RandomizationLevel > 5 {
		errors = append(errors, fmt.Errorf("security randomization_level must be between 1-5"))
	}
	if _, err := sni.ParseCasing(s.SNICasing); err != nil {
		errors = append(errors, fmt.Errorf("security sni_casing: %v", err))
	}

	return errors
}

func boolPtr(b bool) *bool {
	return &b
}
