package engine

import (
	"fmt"

	"veil/internal/envelope"
	"veil/internal/rng"
	"veil/internal/sni"
)

const (
	DefaultFragmentationBytes = 300
	DefaultDelayMS            = 50
	DefaultRandomizationLevel = 3
)

// Options configures one ProcessOutgoing call. It is read-only for the call.
type Options struct {
	FragmentationBytes     int
	DelayMS                int
	RandomizationLevel     int
	EnableSNIObfuscation   bool
	EnableTLSFragmentation bool
	// EnablePatternRotation treats the input as an IP+TCP packet and rotates
	// its headers after the payload has been transformed.
	EnablePatternRotation bool
	// SNICasing should match the browser a parroted hello imitates.
	SNICasing sni.Casing
}

func DefaultOptions() Options {
	return Options{
		FragmentationBytes:     DefaultFragmentationBytes,
		DelayMS:                DefaultDelayMS,
		RandomizationLevel:     DefaultRandomizationLevel,
		EnableSNIObfuscation:   true,
		EnableTLSFragmentation: true,
	}
}

// NewOptions builds Options from the integer encoding used at the call
// boundary, where each toggle must be 0 or 1.
func NewOptions(fragmentationBytes, delayMS, level, sniObfuscation, tlsFragmentation int) (Options, error) {
	sniOn, err := flag("enable_sni_obfuscation", sniObfuscation)
	if err != nil {
		return Options{}, err
	}
	frag, err := flag("enable_tls_fragmentation", tlsFragmentation)
	if err != nil {
		return Options{}, err
	}
	o := Options{
		FragmentationBytes:     fragmentationBytes,
		DelayMS:                delayMS,
		RandomizationLevel:     level,
		EnableSNIObfuscation:   sniOn,
		EnableTLSFragmentation: frag,
	}
	return o, o.Validate()
}

func (o Options) Validate() error {
	if o.FragmentationBytes < envelope.MinFragmentSize || o.FragmentationBytes > envelope.MaxFragmentSize {
		return fmt.Errorf("%w: fragmentation_bytes %d must be between %d-%d", ErrInvalidParameter,
			o.FragmentationBytes, envelope.MinFragmentSize, envelope.MaxFragmentSize)
	}
	if o.DelayMS < envelope.MinDelayMS || o.DelayMS > envelope.MaxDelayMS {
		return fmt.Errorf("%w: delay_ms %d must be between %d-%d", ErrInvalidParameter,
			o.DelayMS, envelope.MinDelayMS, envelope.MaxDelayMS)
	}
	if o.RandomizationLevel < rng.MinLevel || o.RandomizationLevel > rng.MaxLevel {
		return fmt.Errorf("%w: randomization_level %d must be between %d-%d", ErrInvalidParameter,
			o.RandomizationLevel, rng.MinLevel, rng.MaxLevel)
	}
	return nil
}

func flag(name string, v int) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("%w: %s must be 0 or 1, got %d", ErrInvalidParameter, name, v)
}
