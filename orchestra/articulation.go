package orchestra

// NumArticulations is the fixed number of playing-style slots per section.
const NumArticulations = 3

// KeyswitchBaseNote is the lowest MIDI note reserved as an articulation
// switch. Notes KeyswitchBaseNote..KeyswitchBaseNote+NumArticulations-1 are
// consumed as control messages and never sound.
const KeyswitchBaseNote = 24

// Articulation is one envelope/filter preset representing a playing style.
// Tables are fixed before Prepare and selected by index at run time, never
// edited.
type Articulation struct {
	Name      string
	AttackMs  float32
	DecayMs   float32
	Sustain   float32 // 0..1
	ReleaseMs float32
	Cutoff    float32 // Hz
	Resonance float32 // Q
}

// DefaultArticulations returns the built-in three-slot table for a section:
// slot 0 sustain (envelope/filter follow the section parameter block), slot 1
// staccato, slot 2 legato. The per-section differences follow the character
// of the instrument group (percussion decays hard, choir swells slowly).
func DefaultArticulations(idx SectionIndex) [NumArticulations]Articulation {
	switch idx {
	case Strings:
		return [NumArticulations]Articulation{
			{Name: "sustain", AttackMs: 5, DecayMs: 120, Sustain: 0.85, ReleaseMs: 200, Cutoff: 12000, Resonance: 0.7},
			{Name: "staccato", AttackMs: 2, DecayMs: 60, Sustain: 0.0, ReleaseMs: 80, Cutoff: 9000, Resonance: 0.9},
			{Name: "legato", AttackMs: 40, DecayMs: 200, Sustain: 0.9, ReleaseMs: 350, Cutoff: 7000, Resonance: 0.6},
		}
	case Brass:
		return [NumArticulations]Articulation{
			{Name: "sustain", AttackMs: 12, DecayMs: 150, Sustain: 0.8, ReleaseMs: 180, Cutoff: 12000, Resonance: 0.7},
			{Name: "staccato", AttackMs: 3, DecayMs: 70, Sustain: 0.0, ReleaseMs: 60, Cutoff: 10000, Resonance: 1.1},
			{Name: "legato", AttackMs: 55, DecayMs: 240, Sustain: 0.85, ReleaseMs: 300, Cutoff: 6500, Resonance: 0.6},
		}
	case Woodwinds:
		return [NumArticulations]Articulation{
			{Name: "sustain", AttackMs: 8, DecayMs: 100, Sustain: 0.8, ReleaseMs: 160, Cutoff: 12000, Resonance: 0.7},
			{Name: "staccato", AttackMs: 2, DecayMs: 50, Sustain: 0.0, ReleaseMs: 70, Cutoff: 8500, Resonance: 0.9},
			{Name: "legato", AttackMs: 35, DecayMs: 180, Sustain: 0.88, ReleaseMs: 280, Cutoff: 6000, Resonance: 0.5},
		}
	case Percussion:
		return [NumArticulations]Articulation{
			{Name: "sustain", AttackMs: 1, DecayMs: 300, Sustain: 0.2, ReleaseMs: 150, Cutoff: 12000, Resonance: 0.7},
			{Name: "staccato", AttackMs: 1, DecayMs: 90, Sustain: 0.0, ReleaseMs: 40, Cutoff: 11000, Resonance: 1.3},
			{Name: "legato", AttackMs: 4, DecayMs: 500, Sustain: 0.35, ReleaseMs: 400, Cutoff: 8000, Resonance: 0.8},
		}
	default: // Choir
		return [NumArticulations]Articulation{
			{Name: "sustain", AttackMs: 25, DecayMs: 200, Sustain: 0.9, ReleaseMs: 300, Cutoff: 12000, Resonance: 0.7},
			{Name: "staccato", AttackMs: 6, DecayMs: 90, Sustain: 0.0, ReleaseMs: 120, Cutoff: 7500, Resonance: 0.8},
			{Name: "legato", AttackMs: 90, DecayMs: 320, Sustain: 0.92, ReleaseMs: 500, Cutoff: 5000, Resonance: 0.5},
		}
	}
}
