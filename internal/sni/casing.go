package sni

import (
	"fmt"
	"sort"

	"veil/internal/rng"
)

// Casing decides how the letters of a hostname are cased before it is sent.
// A hello parroting a browser should carry the casing that browser uses.
type Casing int

const (
	// CaseRandom flips every letter with probability one half.
	CaseRandom Casing = iota
	// CaseLower is what Chromium, Edge and Firefox send.
	CaseLower
	// CaseSafari is lower case, or title case for about three hellos in ten.
	CaseSafari
)

var casings = map[string]Casing{
	"random":  CaseRandom,
	"lower":   CaseLower,
	"chrome":  CaseLower,
	"edge":    CaseLower,
	"firefox": CaseLower,
	"safari":  CaseSafari,
	"ios":     CaseSafari,
}

// ParseCasing accepts a casing name or the browser whose casing to copy.
func ParseCasing(name string) (Casing, error) {
	if c, ok := casings[name]; ok {
		return c, nil
	}
	return CaseRandom, fmt.Errorf("unknown SNI casing '%s' (want one of %v)", name, CasingNames())
}

func CasingNames() []string {
	names := make([]string, 0, len(casings))
	for name := range casings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c Casing) String() string {
	switch c {
	case CaseRandom:
		return "random"
	case CaseLower:
		return "lower"
	case CaseSafari:
		return "safari"
	}
	return fmt.Sprintf("Casing(%d)", int(c))
}

// apply recases host in place and returns the mask of the bytes it changed.
func (c Casing) apply(host []byte, ctx *rng.Context) []byte {
	if c == CaseRandom {
		return randomizeCase(host, ctx)
	}
	title := c == CaseSafari && ctx.Intn(10) < 3

	mask := make([]byte, maskLen(len(host)))
	start := true
	for i, ch := range host {
		want := toLower(ch)
		if title && start {
			want = toUpper(ch)
		}
		if ch == '.' {
			start = true
		} else if isLetter(ch) {
			start = false
		}
		if want != ch {
			host[i] = want
			mask[i/8] |= 0x80 >> (i % 8)
		}
	}
	return mask
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
