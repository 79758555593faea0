package conf

import (
	"fmt"
	"veil/internal/flog"
)

// PCAP configures capture file rewriting.
type PCAP struct {
	Snaplen int `yaml:"snaplen"`
	Level   int `yaml:"level"`
	// SkipNonTCP copies packets that are not IP+TCP through unchanged instead of failing.
	SkipNonTCP *bool `yaml:"skip_non_tcp"`
}

func (p *PCAP) setDefaults() {
	if p.Snaplen == 0 {
		p.Snaplen = 65535
	}
	if p.Level == 0 {
		p.Level = 3
	}
	if p.SkipNonTCP == nil {
		p.SkipNonTCP = boolPtr(true)
	}
}

func (p *PCAP) validate() []error {
	var errors []error

	if p.Snaplen < 64 || p.Snaplen > 262144 {
		errors = append(errors, fmt.Errorf("PCAP snaplen must be between 64 and 262144"))
	}

	if p.Snaplen < 1514 {
		flog.Warnf("PCAP snaplen (%d bytes) is below a full Ethernet frame - rotated packets may be truncated", p.Snaplen)
	}

	if p.Level < 1 || p.Level > 5 {
		errors = append(errors, fmt.Errorf("PCAP level must be between 1-5"))
	}

	return errors
}
