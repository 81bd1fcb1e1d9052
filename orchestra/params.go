package orchestra

import "math"

// NumSections is the fixed ensemble size.
const NumSections = 5

// SectionIndex identifies one of the five orchestral sections.
type SectionIndex int

const (
	Strings SectionIndex = iota
	Brass
	Woodwinds
	Percussion
	Choir
)

var sectionNames = [NumSections]string{"strings", "brass", "woodwinds", "percussion", "choir"}

// Name returns the stable lower-case section identifier used for persistence.
func (s SectionIndex) Name() string {
	if s < 0 || s >= NumSections {
		return "unknown"
	}
	return sectionNames[s]
}

// SectionByName maps a persistence key back to a section index.
func SectionByName(name string) (SectionIndex, bool) {
	for i, n := range sectionNames {
		if n == name {
			return SectionIndex(i), true
		}
	}
	return 0, false
}

// SectionParams is the user-facing parameter block of one section. The block
// is published whole through an atomic pointer and read once per audio block;
// fields are never mutated in place after publication.
type SectionParams struct {
	Gain             float32 // linear amplitude, baked into voice level at note-on
	Pan              float32 // -1 (left) .. 1 (right)
	Cutoff           float32 // Hz, applied when articulation 0 is active
	Resonance        float32 // filter Q, applied when articulation 0 is active
	AttackMs         float32 // envelope attack, applied when articulation 0 is active
	ReleaseMs        float32 // envelope release, applied when articulation 0 is active
	ReverbSend       float32 // 0..1 wet send into the shared convolution bus
	OversampleFactor float32 // advisory; the post chain runs a fixed 2x wrapper
	MaxVoices        int     // pool capacity, clamped to the per-section slab
	Articulation     int     // stored articulation slot, 0..NumArticulations-1
}

// NewDefaultSectionParams returns the section defaults. Strings carry a
// larger pool than the other four sections.
func NewDefaultSectionParams(idx SectionIndex) SectionParams {
	p := SectionParams{
		Gain:             0.8,
		Pan:              0.0,
		Cutoff:           12000.0,
		Resonance:        0.7,
		AttackMs:         5.0,
		ReleaseMs:        200.0,
		ReverbSend:       0.3,
		OversampleFactor: 2.0,
		MaxVoices:        32,
		Articulation:     0,
	}
	if idx == Strings {
		p.MaxVoices = 48
	}
	return p
}

// sanitize clamps a parameter block into its documented ranges and replaces
// non-finite fields with the section defaults. The engine applies it on every
// SetSectionParams so the render thread never observes NaN/Inf.
func (p SectionParams) sanitize(idx SectionIndex) SectionParams {
	def := NewDefaultSectionParams(idx)
	if !isFinite(p.Gain) || p.Gain < 0 {
		p.Gain = def.Gain
	}
	if !isFinite(p.Pan) {
		p.Pan = def.Pan
	}
	p.Pan = clampF(p.Pan, -1, 1)
	if !isFinite(p.Cutoff) || p.Cutoff <= 0 {
		p.Cutoff = def.Cutoff
	}
	if !isFinite(p.Resonance) || p.Resonance <= 0 {
		p.Resonance = def.Resonance
	}
	if !isFinite(p.AttackMs) || p.AttackMs <= 0 {
		p.AttackMs = def.AttackMs
	}
	if !isFinite(p.ReleaseMs) || p.ReleaseMs <= 0 {
		p.ReleaseMs = def.ReleaseMs
	}
	if !isFinite(p.ReverbSend) {
		p.ReverbSend = def.ReverbSend
	}
	p.ReverbSend = clampF(p.ReverbSend, 0, 1)
	if !isFinite(p.OversampleFactor) || p.OversampleFactor < 1 {
		p.OversampleFactor = def.OversampleFactor
	}
	if p.MaxVoices < 1 {
		p.MaxVoices = def.MaxVoices
	}
	if p.MaxVoices > maxPoolVoices {
		p.MaxVoices = maxPoolVoices
	}
	if p.Articulation < 0 || p.Articulation >= NumArticulations {
		p.Articulation = 0
	}
	return p
}

func clampF(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func isFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}
