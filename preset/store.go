// Package preset snapshots and restores section parameter blocks as JSON.
// Records use pointer fields so a file missing a key leaves that parameter
// untouched on load.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/cwbudde/algo-orchestra/orchestra"
)

// SectionRecord is one section's stored parameter block. Nil fields are
// absent from the file and keep their current value when applied.
type SectionRecord struct {
	Gain             *float32 `json:"gain,omitempty"`
	Pan              *float32 `json:"pan,omitempty"`
	Cutoff           *float32 `json:"cutoff,omitempty"`
	Resonance        *float32 `json:"resonance,omitempty"`
	AttackMs         *float32 `json:"attackMs,omitempty"`
	ReleaseMs        *float32 `json:"releaseMs,omitempty"`
	ReverbSend       *float32 `json:"reverbSend,omitempty"`
	OversampleFactor *float32 `json:"oversampleFactor,omitempty"`
	MaxVoices        *int     `json:"maxVoices,omitempty"`
	Articulation     *int     `json:"articulation,omitempty"`
}

// File is the JSON schema for an orchestra preset: one record per section,
// keyed by the stable section names.
type File struct {
	Name     string                   `json:"name,omitempty"`
	Sections map[string]SectionRecord `json:"sections"`
}

// Capture snapshots every section's current parameters into a preset file.
func Capture(e *orchestra.Engine, name string) File {
	f := File{
		Name:     name,
		Sections: make(map[string]SectionRecord, orchestra.NumSections),
	}
	for i := 0; i < orchestra.NumSections; i++ {
		idx := orchestra.SectionIndex(i)
		p, err := e.SectionParams(idx)
		if err != nil {
			continue
		}
		art := e.ActiveArticulation(idx)
		f.Sections[idx.Name()] = SectionRecord{
			Gain:             ptr(p.Gain),
			Pan:              ptr(p.Pan),
			Cutoff:           ptr(p.Cutoff),
			Resonance:        ptr(p.Resonance),
			AttackMs:         ptr(p.AttackMs),
			ReleaseMs:        ptr(p.ReleaseMs),
			ReverbSend:       ptr(p.ReverbSend),
			OversampleFactor: ptr(p.OversampleFactor),
			MaxVoices:        ptr(p.MaxVoices),
			Articulation:     ptr(art),
		}
	}
	return f
}

// Apply restores a preset onto the engine. Unknown section names are an
// error; missing sections and missing fields keep their current values.
// Validation happens before any section is touched, so a bad file changes
// nothing.
func Apply(e *orchestra.Engine, f *File) error {
	if f == nil {
		return nil
	}

	names := make([]string, 0, len(f.Sections))
	for name := range f.Sections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := orchestra.SectionByName(name); !ok {
			return fmt.Errorf("unknown section %q", name)
		}
		if err := validate(name, f.Sections[name]); err != nil {
			return err
		}
	}

	for _, name := range names {
		idx, _ := orchestra.SectionByName(name)
		rec := f.Sections[name]
		p, err := e.SectionParams(idx)
		if err != nil {
			return err
		}
		if rec.Gain != nil {
			p.Gain = *rec.Gain
		}
		if rec.Pan != nil {
			p.Pan = *rec.Pan
		}
		if rec.Cutoff != nil {
			p.Cutoff = *rec.Cutoff
		}
		if rec.Resonance != nil {
			p.Resonance = *rec.Resonance
		}
		if rec.AttackMs != nil {
			p.AttackMs = *rec.AttackMs
		}
		if rec.ReleaseMs != nil {
			p.ReleaseMs = *rec.ReleaseMs
		}
		if rec.ReverbSend != nil {
			p.ReverbSend = *rec.ReverbSend
		}
		if rec.OversampleFactor != nil {
			p.OversampleFactor = *rec.OversampleFactor
		}
		if rec.MaxVoices != nil {
			p.MaxVoices = *rec.MaxVoices
		}
		if rec.Articulation != nil {
			p.Articulation = *rec.Articulation
			e.SetActiveArticulation(idx, *rec.Articulation)
		}
		if err := e.SetSectionParams(idx, p); err != nil {
			return err
		}
	}
	return nil
}

func validate(name string, rec SectionRecord) error {
	if rec.Gain != nil && *rec.Gain < 0 {
		return fmt.Errorf("%s: gain must be >= 0", name)
	}
	if rec.Pan != nil && (*rec.Pan < -1 || *rec.Pan > 1) {
		return fmt.Errorf("%s: pan must be in [-1,1]", name)
	}
	if rec.Cutoff != nil && *rec.Cutoff <= 0 {
		return fmt.Errorf("%s: cutoff must be > 0", name)
	}
	if rec.Resonance != nil && *rec.Resonance <= 0 {
		return fmt.Errorf("%s: resonance must be > 0", name)
	}
	if rec.AttackMs != nil && *rec.AttackMs <= 0 {
		return fmt.Errorf("%s: attackMs must be > 0", name)
	}
	if rec.ReleaseMs != nil && *rec.ReleaseMs <= 0 {
		return fmt.Errorf("%s: releaseMs must be > 0", name)
	}
	if rec.ReverbSend != nil && (*rec.ReverbSend < 0 || *rec.ReverbSend > 1) {
		return fmt.Errorf("%s: reverbSend must be in [0,1]", name)
	}
	if rec.OversampleFactor != nil && *rec.OversampleFactor < 1 {
		return fmt.Errorf("%s: oversampleFactor must be >= 1", name)
	}
	if rec.MaxVoices != nil && *rec.MaxVoices < 1 {
		return fmt.Errorf("%s: maxVoices must be >= 1", name)
	}
	if rec.Articulation != nil && (*rec.Articulation < 0 || *rec.Articulation >= orchestra.NumArticulations) {
		return fmt.Errorf("%s: articulation must be in [0,%d]", name, orchestra.NumArticulations-1)
	}
	return nil
}

// LoadJSONFile reads and parses a preset file.
func LoadJSONFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// WriteJSONFile writes a preset file with stable indentation.
func WriteJSONFile(path string, f *File) error {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// Manager keeps named presets in memory. Save overwrites; Load of a missing
// name is a no-op, matching a live set where a stale preset button should
// never blank the mixer.
type Manager struct {
	mu      sync.Mutex
	presets map[string]File
}

func NewManager() *Manager {
	return &Manager{presets: make(map[string]File)}
}

// Save captures the engine's current state under the given name.
func (m *Manager) Save(e *orchestra.Engine, name string) {
	f := Capture(e, name)
	m.mu.Lock()
	m.presets[name] = f
	m.mu.Unlock()
}

// Load applies the named preset if it exists. Missing names do nothing.
func (m *Manager) Load(e *orchestra.Engine, name string) error {
	m.mu.Lock()
	f, ok := m.presets[name]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return Apply(e, &f)
}

// Names lists the stored preset names, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.presets))
	for n := range m.presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func ptr[T any](v T) *T { return &v }
