package rotate

import "veil/internal/rng"

// Profile describes the TCP/IP header values a given OS stack typically emits.
type Profile struct {
	Name string
	// TTL is the initial hop limit; rotated packets appear a few hops away.
	TTL         uint8
	Windows     []uint16
	MSS         []uint16
	WindowScale []uint8
}

func Linux() Profile {
	return Profile{
		Name: "linux",
		TTL:  64,
		// 29200 and 64240 are the common Linux defaults for a 1460 MSS.
		Windows:     []uint16{29200, 29200, 64240, 65535, 32768},
		MSS:         []uint16{1460, 1460, 1460, 1440, 1380},
		WindowScale: []uint8{7, 7, 8, 9},
	}
}

func Windows() Profile {
	return Profile{
		Name:        "windows",
		TTL:         128,
		Windows:     []uint16{64240, 64240, 65535, 8192},
		MSS:         []uint16{1460, 1460, 1440},
		WindowScale: []uint8{8, 8, 2},
	}
}

func MacOS() Profile {
	return Profile{
		Name:        "macos",
		TTL:         64,
		Windows:     []uint16{65535, 65535, 32768, 16384},
		MSS:         []uint16{1460, 1440},
		WindowScale: []uint8{6, 6, 5},
	}
}

func DefaultProfiles() []Profile {
	return []Profile{Linux(), Windows(), MacOS()}
}

// Params are the header values one rotation applies.
type Params struct {
	Profile     string
	TTL         uint8
	Window      uint16
	MSS         uint16 // SYN only; 0 leaves the option alone
	WindowScale uint8  // SYN only; 0 leaves the option alone
	NOPs        int
}

func (p Profile) draw(ctx *rng.Context) Params {
	return Params{
		Profile:     p.Name,
		TTL:         p.ttl(ctx),
		Window:      p.window(ctx),
		MSS:         p.mss(ctx),
		WindowScale: p.windowScale(ctx),
		NOPs:        ctx.InRange(0, ctx.Level()),
	}
}

// ttl places the packet 0..level*4 hops away from the profile's origin.
func (p Profile) ttl(ctx *rng.Context) uint8 {
	hops := ctx.InRange(0, ctx.Level()*4)
	return uint8(max(int(p.TTL)-hops, 1))
}

func (p Profile) window(ctx *rng.Context) uint16 {
	w := ctx.Jitter(int(rng.Pick(ctx, p.Windows)))
	return uint16(max(1024, min(w, 65535)))
}

func (p Profile) mss(ctx *rng.Context) uint16 {
	return rng.Pick(ctx, p.MSS)
}

func (p Profile) windowScale(ctx *rng.Context) uint8 {
	return rng.Pick(ctx, p.WindowScale)
}

// ProfileByName resolves linux, windows or macos.
func ProfileByName(name string) (Profile, bool) {
	for _, p := range DefaultProfiles() {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}
