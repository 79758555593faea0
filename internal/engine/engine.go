// Package engine composes the handshake transforms into the outgoing and
// incoming pipelines and owns the random source they draw from.
package engine

import (
	"fmt"
	"sync"
	"time"

	"veil/internal/envelope"
	"veil/internal/flog"
	"veil/internal/rng"
	"veil/internal/rotate"
)

type Config struct {
	// Source seeds every call. Nil means a fresh random seed.
	Source *rng.Source
	// DefaultLevel is the randomization level for ApplySNIObfuscation and
	// ApplyDynamicPatternRotation, which take no Options.
	DefaultLevel int
	// DefaultDelayMS is the delay recorded by ApplyTLSFragmentation.
	DefaultDelayMS int
	// Profiles overrides the pattern rotation profiles.
	Profiles []rotate.Profile
	// RotationInterval pins rotation parameters to each TCP flow for this
	// long. Zero rotates every packet independently.
	RotationInterval time.Duration
	// SessionTimeout evicts flows first seen longer ago than this.
	SessionTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.DefaultLevel == 0 {
		c.DefaultLevel = DefaultRandomizationLevel
	}
	if c.DefaultDelayMS == 0 {
		c.DefaultDelayMS = DefaultDelayMS
	}
}

func (c *Config) validate() error {
	if c.DefaultLevel < rng.MinLevel || c.DefaultLevel > rng.MaxLevel {
		return fmt.Errorf("%w: default level %d must be between %d-%d", ErrInvalidParameter, c.DefaultLevel, rng.MinLevel, rng.MaxLevel)
	}
	if c.DefaultDelayMS < envelope.MinDelayMS || c.DefaultDelayMS > envelope.MaxDelayMS {
		return fmt.Errorf("%w: default delay %dms must be between %d-%d", ErrInvalidParameter, c.DefaultDelayMS, envelope.MinDelayMS, envelope.MaxDelayMS)
	}
	if c.RotationInterval < 0 || c.SessionTimeout < 0 {
		return fmt.Errorf("%w: negative rotation interval or session timeout", ErrInvalidParameter)
	}
	return nil
}

// Engine is safe for concurrent use. The zero value is not initialized and
// fails every call with ErrNotInitialized.
type Engine struct {
	mu      sync.RWMutex
	source  *rng.Source
	rotator *rotate.Rotator
	cfg     Config

	errMu   sync.Mutex
	lastErr string
}

func New(cfg Config) (*Engine, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg}
	src := cfg.Source
	if src == nil {
		var err error
		if src, err = rng.NewRandomSource(); err != nil {
			return nil, fmt.Errorf("failed to seed engine: %w", err)
		}
	}
	e.start(src)
	return e, nil
}

// Init re-initializes a shut-down engine with a fresh random seed. It is a
// no-op on a running engine.
func (e *Engine) Init() error {
	e.mu.Lock()
	running := e.source != nil
	e.mu.Unlock()
	if running {
		return nil
	}
	src, err := rng.NewRandomSource()
	if err != nil {
		return e.fail("init", fmt.Errorf("failed to seed engine: %w", err))
	}
	e.start(src)
	return nil
}

func (e *Engine) start(src *rng.Source) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source != nil {
		return
	}
	e.cfg.setDefaults()
	e.source = src
	if e.cfg.RotationInterval > 0 {
		e.rotator = rotate.NewWithSessions(rotate.SessionConfig{
			Interval: e.cfg.RotationInterval,
			Timeout:  e.cfg.SessionTimeout,
		}, e.cfg.Profiles...)
	} else {
		e.rotator = rotate.New(e.cfg.Profiles...)
	}
	flog.Infof("engine initialized: default level %d, default delay %dms, %d rotation profiles, rotation interval %v",
		e.cfg.DefaultLevel, e.cfg.DefaultDelayMS, e.rotator.Len(), e.cfg.RotationInterval)
}

// Shutdown drops the random source. Later calls fail until Init.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source == nil {
		return
	}
	flog.Infof("engine shut down after %d calls, %d rotation draws", e.source.Calls(), e.rotator.Draws())
	e.source = nil
	e.rotator = nil
}

func (e *Engine) Initialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.source != nil
}

// RotationStats reports the flows pattern rotation is tracking. It is zero
// when rotation is per packet or the engine is shut down.
func (e *Engine) RotationStats() rotate.SessionStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.rotator == nil || e.rotator.Sessions() == nil {
		return rotate.SessionStats{}
	}
	return e.rotator.Sessions().Stats()
}

// LastError is the message of the most recent failing call, or "".
func (e *Engine) LastError() string {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.lastErr
}

// state returns a per-call context and the rotator, or ErrNotInitialized.
func (e *Engine) state(level int) (*rng.Context, *rotate.Rotator, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.source == nil {
		return nil, nil, ErrNotInitialized
	}
	ctx, err := e.source.Context(level)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return ctx, e.rotator, nil
}

func (e *Engine) defaults() (level, delayMS int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.DefaultLevel, e.cfg.DefaultDelayMS
}

func (e *Engine) fail(op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	e.errMu.Lock()
	e.lastErr = err.Error()
	e.errMu.Unlock()
	flog.Debugf("%v", err)
	return err
}
