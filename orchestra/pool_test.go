package orchestra

import "testing"

const poolTestRate = 48000.0

func poolNoteOn(p *voicePool, note, velocity int) {
	p.noteOn(note, velocity, voiceTestArticulation(), 0.8, 0, poolTestRate)
}

func poolRender(p *voicePool, frames int) []float32 {
	dst := make([]float32, frames*2)
	p.renderAdd(dst, frames)
	return dst
}

func TestPoolCapacityClampedToSlab(t *testing.T) {
	p := newVoicePool(500)
	if p.capacity != maxPoolVoices {
		t.Fatalf("capacity = %d, want %d", p.capacity, maxPoolVoices)
	}
	p.setCapacity(0)
	if p.capacity != 1 {
		t.Fatalf("capacity = %d, want 1", p.capacity)
	}
}

func TestPoolShrinkKillsTrailingVoices(t *testing.T) {
	p := newVoicePool(8)
	for n := 0; n < 8; n++ {
		poolNoteOn(p, 60+n, 100)
	}
	poolRender(p, 512)
	if got := p.activeCount(); got != 8 {
		t.Fatalf("active = %d, want 8", got)
	}

	p.setCapacity(3)
	if got := p.activeCount(); got != 3 {
		t.Fatalf("active after shrink = %d, want 3", got)
	}
}

func TestPoolFullCapacityStealsQuietest(t *testing.T) {
	p := newVoicePool(3)
	poolNoteOn(p, 60, 120)
	poolNoteOn(p, 64, 120)
	poolNoteOn(p, 67, 10) // quietest once the envelopes settle
	poolRender(p, 8192)

	poolNoteOn(p, 72, 100)
	if got := p.activeCount(); got != 3 {
		t.Fatalf("active = %d, want 3", got)
	}
	if p.voices[2].fadeRemain == 0 || p.voices[2].pendingNote != 72 {
		t.Fatalf("quietest voice not chosen: fadeRemain=%d pending=%d",
			p.voices[2].fadeRemain, p.voices[2].pendingNote)
	}
	if p.voices[0].fadeRemain != 0 || p.voices[1].fadeRemain != 0 {
		t.Fatalf("louder voices were stolen")
	}

	poolRender(p, stealFadeSamples*2)
	if p.voices[2].note != 72 {
		t.Fatalf("stolen slot plays %d, want 72", p.voices[2].note)
	}
}

func TestPoolStealTieBreaksOnOldest(t *testing.T) {
	p := newVoicePool(2)
	poolNoteOn(p, 60, 100)
	poolRender(p, 4096)
	poolNoteOn(p, 64, 100)
	poolRender(p, 8192)

	// Both voices sit at the same sustain level; the first is older.
	if a, b := p.voices[0].amplitude(), p.voices[1].amplitude(); a != b {
		t.Fatalf("amplitudes diverged: %v vs %v", a, b)
	}

	poolNoteOn(p, 72, 100)
	if p.voices[0].fadeRemain == 0 {
		t.Fatalf("oldest voice not stolen on amplitude tie")
	}
	if p.voices[1].fadeRemain != 0 {
		t.Fatalf("younger voice stolen on amplitude tie")
	}
}

func TestPoolNoteOffDuringStealFadeStillReleases(t *testing.T) {
	p := newVoicePool(1)
	poolNoteOn(p, 60, 100)
	poolRender(p, 4096)

	poolNoteOn(p, 72, 100)
	poolRender(p, 16) // block shorter than the steal fade
	if p.voices[0].fadeRemain == 0 {
		t.Fatalf("handoff finished early, fade gone after 16 frames")
	}

	// The note-off lands while note 72 is still pending; it must not be lost.
	p.noteOff(72)
	poolRender(p, 16384)
	if got := p.activeCount(); got != 0 {
		t.Fatalf("active = %d after releasing pending note, want 0", got)
	}
}

func TestPoolNoteOffReleasesAllMatching(t *testing.T) {
	p := newVoicePool(4)
	poolNoteOn(p, 60, 100)
	poolNoteOn(p, 60, 100)
	poolNoteOn(p, 64, 100)
	poolRender(p, 256)

	p.noteOff(60)
	released := 0
	for i := 0; i < p.capacity; i++ {
		if p.voices[i].active && p.voices[i].released {
			released++
		}
	}
	if released != 2 {
		t.Fatalf("released = %d, want 2", released)
	}
	if p.voices[2].released {
		t.Fatalf("note 64 released by noteOff(60)")
	}
}

func TestPoolUnmatchedNoteOffIsIgnored(t *testing.T) {
	p := newVoicePool(4)
	poolNoteOn(p, 60, 100)
	poolRender(p, 256)

	p.noteOff(61)
	if p.voices[0].released {
		t.Fatalf("unmatched noteOff released a voice")
	}
	if got := p.activeCount(); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}
}

func TestPoolResetClearsEverything(t *testing.T) {
	p := newVoicePool(8)
	for n := 0; n < 5; n++ {
		poolNoteOn(p, 60+n, 100)
	}
	poolRender(p, 1024)

	p.reset()
	if got := p.activeCount(); got != 0 {
		t.Fatalf("active after reset = %d, want 0", got)
	}
	if out := poolRender(p, 512); stereoRMS(out) != 0 {
		t.Fatalf("reset pool produced output")
	}
}
