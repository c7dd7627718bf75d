package rotation

import (
	"math/rand/v2"
)

// Profile is one backend-access configuration. Profiles are immutable after
// construction; the rotator hands out copies of list entries.
type Profile struct {
	Proxy            string
	UserAgent        string
	SocketTimeoutSec int
	ExtraOptions     map[string]string
}

// DefaultProfile matches the options the upstream extractor is driven with
// when no pool is configured.
var DefaultProfile = Profile{
	UserAgent:        "Mozilla/5.0",
	SocketTimeoutSec: 30,
}

// Rotator selects a backend profile per extraction attempt. The pool is
// read-only after New, so Next is safe for concurrent callers.
type Rotator struct {
	profiles []Profile
}

func New(profiles []Profile) *Rotator {
	if len(profiles) == 0 {
		profiles = []Profile{DefaultProfile}
	}
	return &Rotator{profiles: profiles}
}

// Next picks uniformly at random. A single-entry pool behaves identically to
// rotation being disabled.
func (r *Rotator) Next() Profile {
	if len(r.profiles) == 1 {
		return r.profiles[0]
	}
	return r.profiles[rand.IntN(len(r.profiles))]
}

// Size reports the pool size, for logging at startup.
func (r *Rotator) Size() int { return len(r.profiles) }
