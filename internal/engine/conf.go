package engine

import (
	"fmt"

	"veil/internal/conf"
	"veil/internal/rng"
	"veil/internal/rotate"
	"veil/internal/sni"
)

// NewFromConf builds an engine from the engine section. A seed passphrase
// makes every run reproducible.
func NewFromConf(cfg *conf.Engine) (*Engine, error) {
	c := Config{
		DefaultLevel:   cfg.DefaultLevel,
		DefaultDelayMS: cfg.DefaultDelayMS,
	}
	if cfg.StickySessions != nil && *cfg.StickySessions {
		c.RotationInterval = cfg.RotationInterval
		c.SessionTimeout = cfg.SessionTimeout
	}
	if cfg.Seed != "" {
		c.Source = rng.SourceFromPassphrase(cfg.Seed)
	}
	for _, name := range cfg.Profiles {
		p, ok := rotate.ProfileByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown rotation profile '%s'", ErrInvalidParameter, name)
		}
		c.Profiles = append(c.Profiles, p)
	}
	return New(c)
}

// OptionsFromConf expects a validated section.
func OptionsFromConf(s *conf.Security) Options {
	casing, _ := sni.ParseCasing(s.SNICasing)
	return Options{
		FragmentationBytes:     s.FragmentationBytes,
		DelayMS:                s.DelayMS,
		RandomizationLevel:     s.RandomizationLevel,
		EnableSNIObfuscation:   s.EnableSNIObfuscation != nil && *s.EnableSNIObfuscation,
		EnableTLSFragmentation: s.EnableTLSFragmentation != nil && *s.EnableTLSFragmentation,
		EnablePatternRotation:  s.EnablePatternRotation != nil && *s.EnablePatternRotation,
		SNICasing:              casing,
	}
}
