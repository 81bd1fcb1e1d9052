package orchestra

import "sync/atomic"

// section is one of the five fixed instrument groups. The control thread
// publishes parameter snapshots through an atomic pointer; the audio thread
// only ever loads, so no lock sits on the render path.
type section struct {
	index SectionIndex

	params    atomic.Pointer[SectionParams]
	arts      [NumArticulations]Articulation
	activeArt atomic.Int32

	pool       *voicePool
	sampleRate float64
	scratch    []float32
}

func newSection(index SectionIndex) *section {
	s := &section{
		index: index,
		arts:  DefaultArticulations(index),
	}
	p := NewDefaultSectionParams(index)
	s.params.Store(&p)
	s.pool = newVoicePool(p.MaxVoices)
	return s
}

// prepare sizes the scratch bus for maxBlock frames and clears all voices.
func (s *section) prepare(sampleRate float64, maxBlock int) {
	s.sampleRate = sampleRate
	if need := 2 * maxBlock; len(s.scratch) < need {
		s.scratch = make([]float32, need)
	}
	s.pool.reset()
	s.pool.setCapacity(s.params.Load().MaxVoices)
}

// setParams sanitizes and publishes a fresh snapshot. The audio thread picks
// it up on its next load; sounding voices keep their note-on values. The
// snapshot's articulation index also selects the runtime slot, so a parameter
// write and a keyswitch are equivalent ways to switch articulations.
func (s *section) setParams(p SectionParams) {
	p = p.sanitize(s.index)
	s.params.Store(&p)
	s.activeArt.Store(int32(p.Articulation))
}

func (s *section) getParams() SectionParams {
	return *s.params.Load()
}

// setActiveArticulation selects an articulation slot, as a keyswitch would,
// and republishes the snapshot so its stored index stays in step. Concurrent
// control-thread writes are last-writer-wins, same as any snapshot store.
func (s *section) setActiveArticulation(slot int) {
	if slot < 0 || slot >= NumArticulations {
		return
	}
	s.activeArt.Store(int32(slot))
	if p := *s.params.Load(); p.Articulation != slot {
		p.Articulation = slot
		s.params.Store(&p)
	}
}

func (s *section) activeArticulation() int {
	return int(s.activeArt.Load())
}

// currentArticulation resolves the sounding articulation for new notes. Slot
// 0 follows the live section parameters so cutoff, resonance, attack, and
// release edits remain audible; slots 1 and 2 keep their preset envelopes.
func (s *section) currentArticulation(p *SectionParams) Articulation {
	art := s.arts[s.activeArt.Load()]
	if s.activeArt.Load() == 0 {
		art.AttackMs = p.AttackMs
		art.ReleaseMs = p.ReleaseMs
		art.Cutoff = p.Cutoff
		art.Resonance = p.Resonance
	}
	return art
}

// handleNoteOn consumes keyswitch notes (24..26) as articulation selectors;
// any other note claims a voice.
func (s *section) handleNoteOn(note, velocity int) {
	if note >= KeyswitchBaseNote && note < KeyswitchBaseNote+NumArticulations {
		s.setActiveArticulation(note - KeyswitchBaseNote)
		return
	}
	p := s.params.Load()
	if p.MaxVoices != s.pool.capacity {
		s.pool.setCapacity(p.MaxVoices)
	}
	art := s.currentArticulation(p)
	s.pool.noteOn(note, velocity, art, p.Gain, p.Pan, s.sampleRate)
}

// handleNoteOff releases matching voices. Keyswitch note-offs carry no
// articulation meaning and pass through; they can match no sounding voice
// because the corresponding note-ons were consumed.
func (s *section) handleNoteOff(note int) {
	s.pool.noteOff(note)
}

// renderAdd mixes n frames onto the shared dry bus and, scaled by the reverb
// send, onto the send bus.
func (s *section) renderAdd(dry, send []float32, n int) {
	p := s.params.Load()
	if p.MaxVoices != s.pool.capacity {
		s.pool.setCapacity(p.MaxVoices)
	}

	buf := s.scratch[:2*n]
	for i := range buf {
		buf[i] = 0
	}
	s.pool.renderAdd(buf, n)

	wet := p.ReverbSend
	for i := 0; i < 2*n; i++ {
		dry[i] += buf[i]
		send[i] += buf[i] * wet
	}
}

func (s *section) activeVoices() int {
	return s.pool.activeCount()
}

// reset drops all sounding voices and their filter and envelope state. The
// selected articulation is control state and survives.
func (s *section) reset() {
	s.pool.reset()
}
