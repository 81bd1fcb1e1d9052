package orchestra

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Engine is the whole instrument: five sections behind a channel router, a
// shared stereo bus, and the post chain (send-bus convolution reverb followed
// by the oversampling wrapper). One Engine serves one audio stream.
//
// Threading contract: Render runs on the audio thread. Everything else may
// run on control threads; parameter and IR handoff goes through atomics, and
// incoming events through a small locked queue drained at block start.
type Engine struct {
	logger Logger

	sections [NumSections]*section
	router   router

	reverb      atomic.Pointer[ReverbConvolver]
	oversampler *Oversampler
	monitor     *PerformanceMonitor

	sampleRate float64
	maxBlock   int
	prepared   atomic.Bool

	send []float32

	evMu     sync.Mutex
	pending  []Event
	draining []Event
}

// NewEngine builds an unprepared engine with default parameters. A nil
// logger is replaced by a no-op one.
func NewEngine(logger Logger) *Engine {
	if logger == nil {
		logger = NopLogger()
	}
	e := &Engine{
		logger:      logger,
		oversampler: NewOversampler(),
		monitor:     NewPerformanceMonitor(),
	}
	for i := range e.sections {
		e.sections[i] = newSection(SectionIndex(i))
		e.router.sections[i] = e.sections[i]
	}
	return e
}

// Prepare readies the engine for rendering at the given rate and maximum
// block size. It may be called again to change either; all voices are
// cleared.
func (e *Engine) Prepare(sampleRate float64, maxBlock int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %g", sampleRate)
	}
	if maxBlock <= 0 {
		return fmt.Errorf("invalid max block size %d", maxBlock)
	}

	e.sampleRate = sampleRate
	e.maxBlock = maxBlock
	e.send = make([]float32, 2*maxBlock)

	for _, s := range e.sections {
		s.prepare(sampleRate, maxBlock)
	}
	if e.reverb.Load() == nil {
		e.reverb.Store(NewReverbConvolver(int(sampleRate)))
	}
	e.oversampler.Prepare(sampleRate)
	e.oversampler.Reset()
	e.monitor.BeginSession()

	e.prepared.Store(true)
	e.logger.Infof("engine prepared: %g Hz, max block %d", sampleRate, maxBlock)
	return nil
}

// Enqueue appends events for the next render block. Events arriving faster
// than blocks drain are kept; order is preserved.
func (e *Engine) Enqueue(events ...Event) {
	e.evMu.Lock()
	e.pending = append(e.pending, events...)
	e.evMu.Unlock()
}

// NoteOn queues a note-on for the 1-based MIDI channel.
func (e *Engine) NoteOn(channel, note, velocity int) {
	e.Enqueue(Event{Kind: NoteOn, Channel: channel, Note: note, Velocity: velocity})
}

// NoteOff queues a note-off for the 1-based MIDI channel.
func (e *Engine) NoteOff(channel, note int) {
	e.Enqueue(Event{Kind: NoteOff, Channel: channel, Note: note})
}

// Render fills out (interleaved stereo, len >= 2n) with the next n frames.
// Before Prepare it writes silence and returns. The pending event queue is
// drained once at block start, so events always land on block boundaries.
func (e *Engine) Render(out []float32, n int) {
	if n <= 0 {
		return
	}
	for i := 0; i < 2*n; i++ {
		out[i] = 0
	}
	if !e.prepared.Load() {
		return
	}

	e.monitor.beginBlock()

	e.evMu.Lock()
	e.draining, e.pending = e.pending, e.draining[:0]
	e.evMu.Unlock()
	e.router.route(e.draining)

	reverb := e.reverb.Load()

	done := 0
	for done < n {
		chunk := n - done
		if chunk > e.maxBlock {
			chunk = e.maxBlock
		}
		dry := out[done*2 : (done+chunk)*2]
		send := e.send[:2*chunk]
		for i := range send {
			send[i] = 0
		}

		for _, s := range e.sections {
			s.renderAdd(dry, send, chunk)
		}
		reverb.ProcessAdd(dry, send, chunk)
		e.oversampler.Process(dry, chunk)

		done += chunk
	}

	e.monitor.endBlock()
}

// SetSectionParams publishes a sanitized parameter snapshot for the section.
func (e *Engine) SetSectionParams(idx SectionIndex, p SectionParams) error {
	if idx < 0 || idx >= NumSections {
		return fmt.Errorf("invalid section index %d", idx)
	}
	e.sections[idx].setParams(p)
	return nil
}

// SectionParams returns the section's current parameter snapshot.
func (e *Engine) SectionParams(idx SectionIndex) (SectionParams, error) {
	if idx < 0 || idx >= NumSections {
		return SectionParams{}, fmt.Errorf("invalid section index %d", idx)
	}
	return e.sections[idx].getParams(), nil
}

// SetActiveArticulation selects the section's articulation slot, exactly as
// the keyswitch notes do.
func (e *Engine) SetActiveArticulation(idx SectionIndex, slot int) {
	if idx < 0 || idx >= NumSections {
		return
	}
	e.sections[idx].setActiveArticulation(slot)
}

// ActiveArticulation reports the section's selected articulation slot.
func (e *Engine) ActiveArticulation(idx SectionIndex) int {
	if idx < 0 || idx >= NumSections {
		return 0
	}
	return e.sections[idx].activeArticulation()
}

// SetArticulationTable replaces a section's articulation presets. Only legal
// before Prepare; the table is immutable once audio can run.
func (e *Engine) SetArticulationTable(idx SectionIndex, arts [NumArticulations]Articulation) error {
	if idx < 0 || idx >= NumSections {
		return fmt.Errorf("invalid section index %d", idx)
	}
	if e.prepared.Load() {
		return fmt.Errorf("articulation table is fixed after prepare")
	}
	e.sections[idx].arts = arts
	return nil
}

// ArticulationTable returns a copy of the section's presets.
func (e *Engine) ArticulationTable(idx SectionIndex) [NumArticulations]Articulation {
	if idx < 0 || idx >= NumSections {
		return [NumArticulations]Articulation{}
	}
	return e.sections[idx].arts
}

// SetReverbIR hands the render thread a fully built convolver for the given
// stereo impulse response, which must already be at the engine sample rate.
// Empty IRs restore the inert reverb.
func (e *Engine) SetReverbIR(left, right []float32) error {
	if !e.prepared.Load() {
		return fmt.Errorf("engine not prepared")
	}
	c := NewReverbConvolver(int(e.sampleRate))
	if err := c.SetIR(left, right); err != nil {
		return err
	}
	e.reverb.Store(c)
	return nil
}

// LoadReverbIR decodes a WAV impulse response and swaps it in. Decoding and
// resampling complete before the render thread sees the new convolver.
func (e *Engine) LoadReverbIR(path string) error {
	if !e.prepared.Load() {
		return fmt.Errorf("engine not prepared")
	}
	c := NewReverbConvolver(int(e.sampleRate))
	if err := c.SetIRFromWAV(path); err != nil {
		return err
	}
	e.reverb.Store(c)
	e.logger.Infof("reverb IR loaded: %s (%d samples)", path, c.IRLength())
	return nil
}

// SetOversamplingEnabled toggles the post-chain oversampling wrapper.
func (e *Engine) SetOversamplingEnabled(enabled bool) {
	e.oversampler.SetEnabled(enabled)
}

// OversamplerSnapshot reports the wrapper's prepared/enabled state.
func (e *Engine) OversamplerSnapshot() OversamplerSnapshot {
	return e.oversampler.Snapshot()
}

// ActiveVoices counts sounding voices across all sections.
func (e *Engine) ActiveVoices() int {
	total := 0
	for _, s := range e.sections {
		total += s.activeVoices()
	}
	return total
}

// SectionActiveVoices counts sounding voices for one section.
func (e *Engine) SectionActiveVoices(idx SectionIndex) int {
	if idx < 0 || idx >= NumSections {
		return 0
	}
	return e.sections[idx].activeVoices()
}

// BlockStats reports render timing collected since Prepare.
func (e *Engine) BlockStats() BlockStats {
	return e.monitor.Snapshot()
}

// Reset drops all sounding voices, clears reverb and filter history, and
// empties the event queue. Parameters and articulation selections survive.
func (e *Engine) Reset() {
	e.evMu.Lock()
	e.pending = e.pending[:0]
	e.evMu.Unlock()

	for _, s := range e.sections {
		s.reset()
	}
	if c := e.reverb.Load(); c != nil {
		c.Reset()
	}
	e.oversampler.Reset()
	e.logger.Debugf("engine reset")
}
