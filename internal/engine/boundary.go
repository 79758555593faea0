package engine

import (
	"veil/internal/envelope"
	"veil/internal/sni"
)

// ApplyTLSFragmentation splits handshake into an envelope at the engine's
// default level and delay.
func (e *Engine) ApplyTLSFragmentation(handshake, out []byte, fragmentSize int) (int, error) {
	level, delay := e.defaults()
	ctx, _, err := e.state(level)
	if err != nil {
		return 0, e.fail("apply tls fragmentation", err)
	}
	n, err := envelope.Encode(handshake, fragmentSize, delay, ctx, out)
	if err != nil {
		return 0, e.fail("apply tls fragmentation", err)
	}
	return n, nil
}

// ApplySNIObfuscation writes the SNI encoding of hostname at the engine's
// default level. Per-call tuning is not available for this operation.
func (e *Engine) ApplySNIObfuscation(hostname string, out []byte) (int, error) {
	level, _ := e.defaults()
	ctx, _, err := e.state(level)
	if err != nil {
		return 0, e.fail("apply sni obfuscation", err)
	}
	enc, err := sni.Encode(hostname, ctx)
	if err != nil {
		return 0, e.fail("apply sni obfuscation", err)
	}
	n, err := copyOut(enc, out)
	if err != nil {
		return 0, e.fail("apply sni obfuscation", err)
	}
	return n, nil
}

// ApplyDynamicPatternRotation rotates the IP+TCP headers of packet at the
// engine's default level.
func (e *Engine) ApplyDynamicPatternRotation(packet, out []byte) (int, error) {
	level, _ := e.defaults()
	ctx, rot, err := e.state(level)
	if err != nil {
		return 0, e.fail("apply dynamic pattern rotation", err)
	}
	rotated, err := rot.Rotate(packet, ctx)
	if err != nil {
		return 0, e.fail("apply dynamic pattern rotation", err)
	}
	n, err := copyOut(rotated, out)
	if err != nil {
		return 0, e.fail("apply dynamic pattern rotation", err)
	}
	return n, nil
}
