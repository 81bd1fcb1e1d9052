package orchestra

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// detuneRatio is the frequency ratio of the second sine partial relative to
// the fundamental. The two partials are averaged for a gentle ensemble beat.
const detuneRatio = 1.01

// stealFadeSamples is the forced fade length applied to a stolen voice before
// its slot is retriggered with the new note.
const stealFadeSamples = 48

const twoPi = 2.0 * math.Pi

// Voice is one monophonic generator: two detuned sine partials through a
// lowpass biquad, shaped by a linear ADSR. Level and pan gains are baked in
// at note-on from the section parameters; a mid-note gain change does not
// retroactively affect sounding voices (the per-sample path stays cheap).
type Voice struct {
	sampleRate float64

	note     int
	velocity int

	phase1 float64 // radians, wrapped at 2π
	phase2 float64
	step1  float64
	step2  float64

	filter biquad.Section
	env    adsr

	level float32
	panL  float32
	panR  float32

	active   bool
	released bool
	age      uint64 // samples since note-on, for oldest-voice fallback

	// Steal handoff: the old note fades over fadeRemain samples, then the
	// pending note starts in the same slot. pendingRel records a note-off
	// that arrived for the pending note before the handoff completed.
	fadeRemain  int
	pendingNote int
	pendingVel  int
	pendingArt  Articulation
	pendingGain float32
	pendingPan  float32
	pendingRel  bool
}

// start initializes the slot for a new note using the active articulation and
// the section parameter block captured at note-on time.
func (v *Voice) start(note, velocity int, art Articulation, gain, pan float32, sampleRate float64) {
	v.sampleRate = sampleRate
	v.note = note
	v.velocity = velocity

	freq := midiNoteToFreq(note)
	v.step1 = twoPi * freq / sampleRate
	v.step2 = twoPi * freq * detuneRatio / sampleRate
	v.phase1 = 0
	v.phase2 = 0

	v.filter = *biquad.NewSection(voiceLowpass(art.Cutoff, art.Resonance, sampleRate))
	v.env.trigger(art, sampleRate)

	v.level = gain * clampVelocity(velocity)
	v.panL, v.panR = panGains(pan)

	v.active = true
	v.released = false
	v.age = 0
	v.fadeRemain = 0
	v.pendingRel = false
}

// steal schedules a click-free handoff: the sounding note fades over
// stealFadeSamples, then the slot restarts with the new note.
func (v *Voice) steal(note, velocity int, art Articulation, gain, pan float32) {
	v.fadeRemain = stealFadeSamples
	v.pendingNote = note
	v.pendingVel = velocity
	v.pendingArt = art
	v.pendingGain = gain
	v.pendingPan = pan
	v.pendingRel = false
}

// releasePending marks the pending stolen note as already released. The note
// still starts when the handoff completes, then goes straight into its
// release tail.
func (v *Voice) releasePending() {
	v.pendingRel = true
}

// noteOff transitions the envelope into its release tail.
func (v *Voice) noteOff() {
	v.released = true
	v.env.release()
}

// kill silences the voice immediately with no tail.
func (v *Voice) kill() {
	v.active = false
	v.released = false
	v.fadeRemain = 0
	v.pendingRel = false
	v.env.reset()
	v.filter.Reset()
}

// amplitude is the current audible level, used by the steal-quietest policy.
func (v *Voice) amplitude() float32 {
	return v.env.level * v.level
}

// renderAdd accumulates n frames into dst (interleaved stereo, len >= 2n).
func (v *Voice) renderAdd(dst []float32, n int) {
	if !v.active {
		return
	}
	for i := 0; i < n; i++ {
		s := (math.Sin(v.phase1) + math.Sin(v.phase2)) * 0.5
		v.phase1 += v.step1
		if v.phase1 >= twoPi {
			v.phase1 -= twoPi
		}
		v.phase2 += v.step2
		if v.phase2 >= twoPi {
			v.phase2 -= twoPi
		}

		s = v.filter.ProcessSample(s)
		out := float32(s) * v.env.next() * v.level

		if v.fadeRemain > 0 {
			out *= float32(v.fadeRemain) / float32(stealFadeSamples)
			v.fadeRemain--
			if v.fadeRemain == 0 {
				dst[i*2] += out * v.panL
				dst[i*2+1] += out * v.panR
				rel := v.pendingRel
				v.start(v.pendingNote, v.pendingVel, v.pendingArt, v.pendingGain, v.pendingPan, v.sampleRate)
				if rel {
					v.noteOff()
				}
				continue
			}
		}

		dst[i*2] += out * v.panL
		dst[i*2+1] += out * v.panR
		v.age++

		// A pending steal keeps the slot alive until the new note starts.
		if !v.env.active() && v.fadeRemain == 0 {
			v.active = false
			return
		}
	}
}

// voiceLowpass designs the per-voice lowpass, clamping the cutoff below
// Nyquist so articulation presets stay valid at any sample rate.
func voiceLowpass(cutoff, resonance float32, sampleRate float64) biquad.Coefficients {
	fc := float64(cutoff)
	if maxFc := 0.49 * sampleRate; fc > maxFc {
		fc = maxFc
	}
	if fc < 10 {
		fc = 10
	}
	q := float64(resonance)
	if q < 0.1 {
		q = 0.1
	}
	return design.Lowpass(fc, q, sampleRate)
}
