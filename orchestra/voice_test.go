package orchestra

import (
	"math"
	"testing"
)

const voiceTestRate = 48000.0

func voiceTestArticulation() Articulation {
	return Articulation{
		Name:      "sustain",
		AttackMs:  5,
		DecayMs:   50,
		Sustain:   0.8,
		ReleaseMs: 100,
		Cutoff:    12000,
		Resonance: 0.7,
	}
}

func renderVoice(v *Voice, frames int) []float32 {
	dst := make([]float32, frames*2)
	v.renderAdd(dst, frames)
	return dst
}

func TestVoicePitchFollowsNote(t *testing.T) {
	for _, note := range []int{48, 60, 72} {
		var v Voice
		v.start(note, 100, voiceTestArticulation(), 0.8, 0, voiceTestRate)

		buf := renderVoice(&v, 16384)
		got := measureFundamentalFreq(leftChannel(buf), float32(voiceTestRate))
		want := midiNoteToFreq(note)
		// The detuned partial pulls the zero-crossing estimate slightly.
		if math.Abs(float64(got)-want) > want*0.03 {
			t.Fatalf("note %d: measured %v Hz, want ~%v Hz", note, got, want)
		}
	}
}

func TestVoiceVelocityScalesLevel(t *testing.T) {
	var soft, loud Voice
	soft.start(60, 32, voiceTestArticulation(), 0.8, 0, voiceTestRate)
	loud.start(60, 127, voiceTestArticulation(), 0.8, 0, voiceTestRate)

	softRMS := stereoRMS(renderVoice(&soft, 8192))
	loudRMS := stereoRMS(renderVoice(&loud, 8192))
	if loudRMS <= softRMS {
		t.Fatalf("velocity 127 RMS %v not above velocity 32 RMS %v", loudRMS, softRMS)
	}
}

func TestVoiceHardPanSilencesOppositeChannel(t *testing.T) {
	var v Voice
	v.start(60, 100, voiceTestArticulation(), 0.8, -1, voiceTestRate)

	buf := renderVoice(&v, 4096)
	var leftSum, rightSum float64
	for i := 0; i < len(buf); i += 2 {
		leftSum += math.Abs(float64(buf[i]))
		rightSum += math.Abs(float64(buf[i+1]))
	}
	if leftSum == 0 {
		t.Fatalf("hard-left voice produced no left signal")
	}
	if rightSum > leftSum*1e-4 {
		t.Fatalf("hard-left voice leaked right: left %v right %v", leftSum, rightSum)
	}
}

func TestVoiceStealRestartsWithPendingNote(t *testing.T) {
	var v Voice
	v.start(48, 100, voiceTestArticulation(), 0.8, 0, voiceTestRate)
	renderVoice(&v, 2048)

	v.steal(72, 100, voiceTestArticulation(), 0.8, 0)
	// Render past the fade so the pending note takes over.
	renderVoice(&v, stealFadeSamples*2)
	if v.note != 72 {
		t.Fatalf("note after steal = %d, want 72", v.note)
	}
	if !v.active {
		t.Fatalf("voice inactive after steal handoff")
	}

	buf := renderVoice(&v, 16384)
	got := findPeakNear(leftChannel(buf), int(voiceTestRate), midiNoteToFreq(72), 100)
	if math.Abs(got-midiNoteToFreq(72)) > 25 {
		t.Fatalf("post-steal peak at %v Hz, want near %v Hz", got, midiNoteToFreq(72))
	}
}

func TestVoiceStealDuringReleaseStillHandsOff(t *testing.T) {
	var v Voice
	v.start(48, 100, voiceTestArticulation(), 0.8, 0, voiceTestRate)
	renderVoice(&v, 2048)
	v.noteOff()

	v.steal(60, 90, voiceTestArticulation(), 0.8, 0)
	renderVoice(&v, stealFadeSamples*2)
	if !v.active || v.note != 60 || v.released {
		t.Fatalf("steal during release lost the pending note: active=%v note=%d released=%v",
			v.active, v.note, v.released)
	}
}

func TestVoiceReleaseEventuallyDeactivates(t *testing.T) {
	var v Voice
	v.start(60, 100, voiceTestArticulation(), 0.8, 0, voiceTestRate)
	renderVoice(&v, 4096)
	v.noteOff()

	// Release tail is 100ms; half a second is ample.
	renderVoice(&v, int(voiceTestRate/2))
	if v.active {
		t.Fatalf("voice still active long after release")
	}
	if out := renderVoice(&v, 256); stereoRMS(out) != 0 {
		t.Fatalf("inactive voice produced output")
	}
}

func TestVoiceKillSilencesImmediately(t *testing.T) {
	var v Voice
	v.start(60, 100, voiceTestArticulation(), 0.8, 0, voiceTestRate)
	renderVoice(&v, 1024)

	v.kill()
	if v.active {
		t.Fatalf("voice active after kill")
	}
	if out := renderVoice(&v, 256); stereoRMS(out) != 0 {
		t.Fatalf("killed voice produced output")
	}
}

func TestVoiceAmplitudeTracksEnvelope(t *testing.T) {
	var v Voice
	v.start(60, 100, voiceTestArticulation(), 0.8, 0, voiceTestRate)
	if v.amplitude() != 0 {
		t.Fatalf("amplitude before first sample = %v, want 0", v.amplitude())
	}
	renderVoice(&v, 4096)
	peak := v.amplitude()
	if peak <= 0 {
		t.Fatalf("amplitude after attack = %v, want > 0", peak)
	}

	v.noteOff()
	renderVoice(&v, 2048)
	if v.amplitude() >= peak {
		t.Fatalf("amplitude did not fall during release: %v -> %v", peak, v.amplitude())
	}
}
