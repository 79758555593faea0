package engine

import (
	"testing"
	"time"

	"veil/internal/conf"
	"veil/internal/sni"

	"github.com/stretchr/testify/require"
)

func TestNewFromConfSeeded(t *testing.T) {
	c := conf.Default()
	c.Engine.Seed = "reproducible"
	c.Engine.Profiles = []string{"macos"}

	a, err := NewFromConf(&c.Engine)
	require.NoError(t, err)
	b, err := NewFromConf(&c.Engine)
	require.NoError(t, err)

	o := OptionsFromConf(&c.Security)
	require.NoError(t, o.Validate())
	require.True(t, o.EnableSNIObfuscation)
	require.False(t, o.EnablePatternRotation)

	in := handshake(1000)
	outA, outB := make([]byte, 2000), make([]byte, 2000)
	na, err := a.ProcessOutgoing(in, outA, o)
	require.NoError(t, err)
	nb, err := b.ProcessOutgoing(in, outB, o)
	require.NoError(t, err)
	require.Equal(t, outA[:na], outB[:nb])
}

func TestNewFromConfUnknownProfile(t *testing.T) {
	c := conf.Default()
	c.Engine.Profiles = []string{"beos"}
	_, err := NewFromConf(&c.Engine)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestNewFromConfStickySessions(t *testing.T) {
	c := conf.Default()
	e, err := NewFromConf(&c.Engine)
	require.NoError(t, err)
	require.Equal(t, time.Hour, e.cfg.RotationInterval)
	require.Equal(t, 24*time.Hour, e.cfg.SessionTimeout)

	off := false
	c.Engine.StickySessions = &off
	e, err = NewFromConf(&c.Engine)
	require.NoError(t, err)
	require.Zero(t, e.cfg.RotationInterval)
}

func TestOptionsFromConfCasing(t *testing.T) {
	c := conf.Default()
	require.Equal(t, sni.CaseRandom, OptionsFromConf(&c.Security).SNICasing)
	c.Security.SNICasing = "safari"
	require.Equal(t, sni.CaseSafari, OptionsFromConf(&c.Security).SNICasing)
}
