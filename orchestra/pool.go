package orchestra

// maxPoolVoices is the hard upper bound on voices per section. MaxVoices in
// the section parameters may shrink the usable window but never exceeds it.
const maxPoolVoices = 48

// voicePool owns a fixed slab of voices for one section. Allocation never
// happens after construction; note-on either claims an idle slot or steals a
// sounding one.
type voicePool struct {
	voices   [maxPoolVoices]Voice
	capacity int
}

func newVoicePool(capacity int) *voicePool {
	p := &voicePool{}
	p.setCapacity(capacity)
	return p
}

// setCapacity clamps to [1, maxPoolVoices] and kills any voice outside the
// new window so a shrink frees slots immediately.
func (p *voicePool) setCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if capacity > maxPoolVoices {
		capacity = maxPoolVoices
	}
	for i := capacity; i < p.capacity; i++ {
		p.voices[i].kill()
	}
	p.capacity = capacity
}

// noteOn claims a voice for the note. Preference order: an idle slot, then
// the quietest sounding voice, with the oldest voice breaking amplitude ties.
// A stolen voice fades out briefly before the new note takes over.
func (p *voicePool) noteOn(note, velocity int, art Articulation, gain, pan float32, sampleRate float64) {
	for i := 0; i < p.capacity; i++ {
		if !p.voices[i].active {
			p.voices[i].start(note, velocity, art, gain, pan, sampleRate)
			return
		}
	}

	victim := 0
	for i := 1; i < p.capacity; i++ {
		v, w := &p.voices[i], &p.voices[victim]
		if v.amplitude() < w.amplitude() || (v.amplitude() == w.amplitude() && v.age > w.age) {
			victim = i
		}
	}
	p.voices[victim].steal(note, velocity, art, gain, pan)
}

// noteOff releases every active voice playing the note, including a note
// still waiting behind a steal fade. Unmatched note-offs are ignored.
func (p *voicePool) noteOff(note int) {
	for i := 0; i < p.capacity; i++ {
		v := &p.voices[i]
		if !v.active {
			continue
		}
		if v.fadeRemain > 0 && v.pendingNote == note {
			v.releasePending()
			continue
		}
		if v.note == note && !v.released {
			v.noteOff()
		}
	}
}

// renderAdd accumulates n frames from every active voice into dst
// (interleaved stereo).
func (p *voicePool) renderAdd(dst []float32, n int) {
	for i := 0; i < p.capacity; i++ {
		p.voices[i].renderAdd(dst, n)
	}
}

// activeCount reports sounding voices, release tails included.
func (p *voicePool) activeCount() int {
	c := 0
	for i := 0; i < p.capacity; i++ {
		if p.voices[i].active {
			c++
		}
	}
	return c
}

// reset kills everything, clearing oscillator, filter, and envelope state.
func (p *voicePool) reset() {
	for i := range p.voices {
		p.voices[i].kill()
	}
}
