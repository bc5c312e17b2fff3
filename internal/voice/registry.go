package voice

import (
	"errors"
	"strings"

	"github.com/podforge/podforge-core/internal/config"
)

// Profile binds a script speaker to a synthesis voice. A PitchFactor other
// than 1.0 marks the voice for post-synthesis pitch alteration.
type Profile struct {
	Speaker     string
	Voice       string
	PitchFactor float64
}

// Pitched reports whether this voice needs pitch post-processing.
func (p Profile) Pitched() bool {
	return p.PitchFactor != 0 && p.PitchFactor != 1.0
}

type entry struct {
	profile Profile
	aliases []string
}

// Registry resolves script speaker tags to voice profiles. Tags rarely match
// configuration exactly (scripts say "진행자", config says "Host"), so
// resolution checks case-insensitive alias substrings and falls back to the
// default profile.
type Registry struct {
	entries  []entry
	fallback Profile
}

func NewRegistry(cfgs []config.VoiceConfig) (*Registry, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("at least one voice must be configured")
	}
	r := &Registry{}
	for _, vc := range cfgs {
		factor := vc.PitchFactor
		if factor == 0 {
			factor = 1.0
		}
		p := Profile{Speaker: vc.Speaker, Voice: vc.Voice, PitchFactor: factor}
		aliases := make([]string, 0, len(vc.Aliases)+1)
		aliases = append(aliases, strings.ToLower(vc.Speaker))
		for _, a := range vc.Aliases {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				aliases = append(aliases, a)
			}
		}
		r.entries = append(r.entries, entry{profile: p, aliases: aliases})
		if vc.Default {
			r.fallback = p
		}
	}
	if r.fallback.Voice == "" {
		return nil, errors.New("no default voice configured")
	}
	return r, nil
}

// Resolve maps a speaker tag to its profile. An unknown tag gets the default
// profile rather than failing the run.
func (r *Registry) Resolve(speakerTag string) Profile {
	tag := strings.ToLower(strings.TrimSpace(speakerTag))
	if tag == "" {
		return r.fallback
	}
	for _, e := range r.entries {
		for _, alias := range e.aliases {
			if strings.Contains(tag, alias) || strings.Contains(alias, tag) {
				return e.profile
			}
		}
	}
	return r.fallback
}
