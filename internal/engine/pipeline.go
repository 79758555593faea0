package engine

import (
	"errors"

	"veil/internal/envelope"
	"veil/internal/pkg/buffer"
	"veil/internal/rng"
	"veil/internal/rotate"
	"veil/internal/sni"
	"veil/internal/tlshello"
)

// staged is a pipeline result not yet committed to the caller's buffer.
type staged struct {
	env    *envelope.Envelope
	packet []byte
}

func (s staged) Len() int {
	if s.packet != nil {
		return len(s.packet)
	}
	return s.env.Len()
}

func (s staged) writeTo(dst []byte) (int, error) {
	if s.packet == nil {
		return s.env.MarshalTo(dst)
	}
	return copyOut(s.packet, dst)
}

func copyOut(b, dst []byte) (int, error) {
	if len(dst) < len(b) {
		return 0, &envelope.OutputTooSmallError{Required: len(b), Have: len(dst)}
	}
	return copy(dst, b), nil
}

// ProcessOutgoing runs SNI obfuscation, fragmentation and pattern rotation as
// enabled by opts, in that order, and writes the result into out. When
// fragmentation is off the handshake still travels in a one-fragment
// envelope. Nothing is written to out unless the whole pipeline succeeds.
func (e *Engine) ProcessOutgoing(in, out []byte, opts Options) (int, error) {
	s, err := e.outgoing(in, opts)
	if err != nil {
		return 0, e.fail("process outgoing", err)
	}
	n, err := s.writeTo(out)
	if err != nil {
		return 0, e.fail("process outgoing", err)
	}
	return n, nil
}

// Outgoing is ProcessOutgoing into a pooled buffer the caller must Free.
func (e *Engine) Outgoing(in []byte, opts Options) (*buffer.Buffer, error) {
	s, err := e.outgoing(in, opts)
	if err != nil {
		return nil, e.fail("process outgoing", err)
	}
	b := buffer.Get(s.Len())
	n, err := s.writeTo(b.Bytes())
	if err != nil {
		b.Free()
		return nil, e.fail("process outgoing", err)
	}
	b.Truncate(n)
	return b, nil
}

func (e *Engine) outgoing(in []byte, opts Options) (staged, error) {
	if err := e.ready(); err != nil {
		return staged{}, err
	}
	if err := opts.Validate(); err != nil {
		return staged{}, err
	}
	ctx, rot, err := e.state(opts.RandomizationLevel)
	if err != nil {
		return staged{}, err
	}

	payload := in
	if opts.EnablePatternRotation {
		if payload, err = rotate.Payload(in); err != nil {
			return staged{}, err
		}
	}

	if opts.EnableSNIObfuscation {
		if payload, err = obfuscateSNI(payload, opts.SNICasing, ctx); err != nil {
			return staged{}, err
		}
	}

	var env *envelope.Envelope
	if opts.EnableTLSFragmentation {
		if env, err = envelope.Split(payload, opts.FragmentationBytes, opts.DelayMS, ctx); err != nil {
			return staged{}, err
		}
	} else {
		env = envelope.Single(payload, opts.DelayMS)
	}

	if !opts.EnablePatternRotation {
		return staged{env: env}, nil
	}
	packet, err := rot.RotateWithPayload(in, env.Marshal(), ctx)
	if err != nil {
		return staged{}, err
	}
	return staged{packet: packet}, nil
}

// obfuscateSNI rewrites TLS records carrying a ClientHello with a server name.
// Anything else passes through untouched, and so do resumption hellos, whose
// PSK binders would no longer verify.
func obfuscateSNI(b []byte, casing sni.Casing, ctx *rng.Context) ([]byte, error) {
	if !tlshello.IsClientHello(b) {
		return b, nil
	}
	v, err := tlshello.Parse(b)
	switch {
	case errors.Is(err, tlshello.ErrExtensionNotFound), errors.Is(err, tlshello.ErrNotClientHello):
		return b, nil
	case err != nil:
		return nil, err
	case v.HasPSK:
		return b, nil
	}
	return casing.Rewrite(b, v, ctx)
}

// ProcessIncoming reassembles an envelope into out. Input without the
// envelope magic is copied through unchanged. Pattern rotation is not undone.
func (e *Engine) ProcessIncoming(in, out []byte) (int, error) {
	if err := e.ready(); err != nil {
		return 0, e.fail("process incoming", err)
	}
	n, err := envelope.Decode(in, out)
	if err != nil {
		return 0, e.fail("process incoming", err)
	}
	return n, nil
}

// Incoming is ProcessIncoming into a pooled buffer the caller must Free.
func (e *Engine) Incoming(in []byte) (*buffer.Buffer, error) {
	if err := e.ready(); err != nil {
		return nil, e.fail("process incoming", err)
	}
	n, err := envelope.DecodedLen(in)
	if err != nil {
		return nil, e.fail("process incoming", err)
	}
	b := buffer.Get(n)
	if _, err := envelope.Decode(in, b.Bytes()); err != nil {
		b.Free()
		return nil, e.fail("process incoming", err)
	}
	return b, nil
}

func (e *Engine) ready() error {
	if !e.Initialized() {
		return ErrNotInitialized
	}
	return nil
}
