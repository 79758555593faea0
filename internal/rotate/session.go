package rotate

import (
	"net/netip"
	"sync"
	"time"
)

const (
	DefaultRotationInterval = time.Hour
	DefaultSessionTimeout   = 24 * time.Hour
)

// Flow identifies one direction of a TCP connection.
type Flow struct {
	Src, Dst         netip.Addr
	SrcPort, DstPort uint16
}

func (f Flow) String() string {
	return netip.AddrPortFrom(f.Src, f.SrcPort).String() + " -> " + netip.AddrPortFrom(f.Dst, f.DstPort).String()
}

type SessionConfig struct {
	// Interval is how long a flow keeps its parameters.
	Interval time.Duration
	// Timeout evicts flows first seen longer ago than this.
	Timeout time.Duration
	// Now replaces time.Now in tests.
	Now func() time.Time
}

func (c *SessionConfig) setDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultRotationInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultSessionTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

type session struct {
	params    Params
	created   time.Time
	rotated   time.Time
	rotations int
	packets   uint64
}

// Sessions pins rotation parameters to flows. It is safe for concurrent use.
type Sessions struct {
	mu        sync.Mutex
	cfg       SessionConfig
	flows     map[Flow]*session
	lastSweep time.Time
	evicted   int
}

func NewSessions(cfg SessionConfig) *Sessions {
	cfg.setDefaults()
	return &Sessions{
		cfg:       cfg,
		flows:     make(map[Flow]*session),
		lastSweep: cfg.Now(),
	}
}

// params returns the parameters of f, drawing new ones for an unseen flow or
// once the flow's interval has elapsed.
func (s *Sessions) params(f Flow, draw func() Params) Params {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Now()
	if now.Sub(s.lastSweep) >= s.cfg.Interval {
		s.sweep(now)
	}

	ss, ok := s.flows[f]
	switch {
	case !ok:
		ss = &session{params: draw(), created: now, rotated: now}
		s.flows[f] = ss
	case now.Sub(ss.rotated) >= s.cfg.Interval:
		ss.params = draw()
		ss.rotated = now
		ss.rotations++
	}
	ss.packets++
	return ss.params
}

func (s *Sessions) sweep(now time.Time) {
	for f, ss := range s.flows {
		if now.Sub(ss.created) >= s.cfg.Timeout {
			delete(s.flows, f)
			s.evicted++
		}
	}
	s.lastSweep = now
}

// SessionStats is a snapshot of the tracked flows.
type SessionStats struct {
	Sessions  int
	Rotations int
	Packets   uint64
	Evicted   int
}

func (s SessionStats) AvgRotations() float64 {
	if s.Sessions == 0 {
		return 0
	}
	return float64(s.Rotations) / float64(s.Sessions)
}

func (s *Sessions) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SessionStats{Sessions: len(s.flows), Evicted: s.evicted}
	for _, ss := range s.flows {
		st.Rotations += ss.rotations
		st.Packets += ss.packets
	}
	return st
}
