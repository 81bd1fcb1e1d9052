package orchestra

import (
	"math"
	"testing"
)

const envTestRate = 48000.0

func envTicks(e *adsr, n int) float32 {
	var last float32
	for i := 0; i < n; i++ {
		last = e.next()
	}
	return last
}

func TestADSRAttackReachesFullLevel(t *testing.T) {
	var e adsr
	e.trigger(Articulation{AttackMs: 10, DecayMs: 50, Sustain: 0.7, ReleaseMs: 100}, envTestRate)

	attackSamples := int(envTestRate * 10 / 1000)
	level := envTicks(&e, attackSamples+2)
	if level < 0.99 {
		t.Fatalf("level after attack = %v, want >= 0.99", level)
	}
	if e.stage == stageAttack {
		t.Fatalf("still in attack after %d samples", attackSamples+2)
	}
}

func TestADSRDecaysToSustain(t *testing.T) {
	var e adsr
	e.trigger(Articulation{AttackMs: 1, DecayMs: 20, Sustain: 0.5, ReleaseMs: 100}, envTestRate)

	// Past attack plus decay.
	level := envTicks(&e, int(envTestRate*30/1000))
	if math.Abs(float64(level)-0.5) > 1e-3 {
		t.Fatalf("sustain level = %v, want 0.5", level)
	}
	// Holds until released.
	level = envTicks(&e, int(envTestRate))
	if math.Abs(float64(level)-0.5) > 1e-3 {
		t.Fatalf("level after 1s hold = %v, want 0.5", level)
	}
}

func TestADSRReleaseRampsToIdle(t *testing.T) {
	var e adsr
	e.trigger(Articulation{AttackMs: 1, DecayMs: 10, Sustain: 0.8, ReleaseMs: 50}, envTestRate)
	envTicks(&e, int(envTestRate*20/1000))

	e.release()
	releaseSamples := int(envTestRate * 50 / 1000)

	mid := envTicks(&e, releaseSamples/2)
	if mid <= 0 || mid >= 0.8 {
		t.Fatalf("mid-release level = %v, want in (0, 0.8)", mid)
	}

	envTicks(&e, releaseSamples)
	if e.active() {
		t.Fatalf("envelope still active after full release")
	}
	if got := e.next(); got != 0 {
		t.Fatalf("idle output = %v, want 0", got)
	}
}

func TestADSRReleaseMidAttackDoesNotJump(t *testing.T) {
	var e adsr
	e.trigger(Articulation{AttackMs: 100, DecayMs: 10, Sustain: 0.7, ReleaseMs: 30}, envTestRate)

	before := envTicks(&e, int(envTestRate*20/1000))
	e.release()
	after := e.next()
	if after > before {
		t.Fatalf("level rose across release: %v -> %v", before, after)
	}
	if before-after > 0.01 {
		t.Fatalf("level jumped across release: %v -> %v", before, after)
	}
}

func TestADSRZeroSustainEndsWithoutRelease(t *testing.T) {
	var e adsr
	e.trigger(Articulation{AttackMs: 2, DecayMs: 60, Sustain: 0, ReleaseMs: 80}, envTestRate)

	envTicks(&e, int(envTestRate*100/1000))
	if e.active() {
		t.Fatalf("zero-sustain envelope still active after decay")
	}
}

func TestADSRRetriggerResumesFromCurrentLevel(t *testing.T) {
	var e adsr
	e.trigger(Articulation{AttackMs: 50, DecayMs: 10, Sustain: 0.7, ReleaseMs: 30}, envTestRate)
	before := envTicks(&e, int(envTestRate*25/1000))

	e.trigger(Articulation{AttackMs: 50, DecayMs: 10, Sustain: 0.7, ReleaseMs: 30}, envTestRate)
	after := e.next()
	if diff := math.Abs(float64(after - before)); diff > 0.01 {
		t.Fatalf("retrigger snapped level: %v -> %v", before, after)
	}
	if e.stage != stageAttack {
		t.Fatalf("retrigger did not restart attack")
	}
}
