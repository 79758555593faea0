package conf

import (
	"fmt"
	"slices"
	"time"

	"veil/internal/flog"
)

var validProfiles = []string{"linux", "windows", "macos"}

type Engine struct {
	// Seed is a passphrase for reproducible output. Empty means a random seed.
	Seed           string   `yaml:"seed"`
	DefaultLevel   int      `yaml:"default_level"`
	DefaultDelayMS int      `yaml:"default_delay_ms"`
	Profiles       []string `yaml:"profiles"`
	// StickySessions keeps one set of header values per TCP flow for
	// RotationInterval instead of drawing new ones for every packet.
	StickySessions   *bool         `yaml:"sticky_sessions"`
	RotationInterval time.Duration `yaml:"rotation_interval"`
	SessionTimeout   time.Duration `yaml:"session_timeout"`
}

func (e *Engine) setDefaults() {
	if e.DefaultLevel == 0 {
		e.DefaultLevel = 3
	}
	if e.DefaultDelayMS == 0 {
		e.DefaultDelayMS = 50
	}
	if len(e.Profiles) == 0 {
		e.Profiles = slices.Clone(validProfiles)
	}
	if e.StickySessions == nil {
		e.StickySessions = boolPtr(true)
	}
	if e.RotationInterval == 0 {
		e.RotationInterval = time.Hour
	}
	if e.SessionTimeout == 0 {
		e.SessionTimeout = 24 * time.Hour
	}
}

func (e *Engine) validate() []error {
	var errors []error

	if e.DefaultLevel < 1 || e.DefaultLevel > 5 {
		errors = append(errors, fmt.Errorf("engine default_level must be between 1-5"))
	}
	if e.DefaultDelayMS < 10 || e.DefaultDelayMS > 100 {
		errors = append(errors, fmt.Errorf("engine default_delay_ms must be between 10-100"))
	}
	for i, p := range e.Profiles {
		if !slices.Contains(validProfiles, p) {
			errors = append(errors, fmt.Errorf("engine profiles[%d] '%s' must be one of %v", i, p, validProfiles))
		}
	}
	if e.RotationInterval < time.Second {
		errors = append(errors, fmt.Errorf("engine rotation_interval must be at least 1s"))
	}
	if e.SessionTimeout < e.RotationInterval {
		errors = append(errors, fmt.Errorf("engine session_timeout must not be shorter than rotation_interval"))
	}
	if e.Seed != "" {
		flog.Warnf("engine seed is set: output is reproducible and must not be used outside testing")
	}

	return errors
}
