package envelope

import "fmt"

// Stats summarises an envelope for logging and the inspect command.
type Stats struct {
	Fragments    int
	PayloadBytes int
	WireBytes    int
	MinFragment  int
	MaxFragment  int
	TotalDelayMS uint64
}

func (e *Envelope) Stats() Stats {
	s := Stats{
		Fragments:    len(e.Fragments),
		PayloadBytes: e.PayloadLen(),
		WireBytes:    e.Len(),
	}
	for i, f := range e.Fragments {
		n := len(f.Payload)
		if i == 0 || n < s.MinFragment {
			s.MinFragment = n
		}
		s.MaxFragment = max(s.MaxFragment, n)
		s.TotalDelayMS += uint64(f.DelayMS)
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("fragments=%d payload=%dB wire=%dB size=[%d,%d] delay=%dms",
		s.Fragments, s.PayloadBytes, s.WireBytes, s.MinFragment, s.MaxFragment, s.TotalDelayMS)
}
