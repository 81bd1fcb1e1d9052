package orchestra

type envStage uint8

const (
	stageIdle envStage = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

// releaseDoneLevel is the output level below which a releasing envelope is
// considered finished and its voice slot is returned to the pool.
const releaseDoneLevel = 1e-4

// adsr is a linear-segment ADSR generator. All four segments ramp linearly:
// attack current→1 over attackMs, decay 1→sustain over decayMs, release
// current→0 over releaseMs. Retriggering resumes the attack from the current
// output level, so neither retrigger nor steal can snap.
type adsr struct {
	attackStep  float32
	decayStep   float32
	releaseMs   float32
	sustain     float32
	releaseStep float32

	sampleRate float64
	stage      envStage
	level      float32
}

func (e *adsr) trigger(art Articulation, sampleRate float64) {
	e.sampleRate = sampleRate
	e.attackStep = 1.0 / msToSamples(art.AttackMs, sampleRate)
	e.decayStep = (1.0 - art.Sustain) / msToSamples(art.DecayMs, sampleRate)
	e.sustain = art.Sustain
	e.releaseMs = art.ReleaseMs
	e.stage = stageAttack
}

// release switches to the release stage, ramping from the current level so a
// note released mid-attack fades without a jump.
func (e *adsr) release() {
	if e.stage == stageIdle || e.stage == stageRelease {
		return
	}
	e.releaseStep = e.level / msToSamples(e.releaseMs, e.sampleRate)
	e.stage = stageRelease
}

func (e *adsr) reset() {
	e.stage = stageIdle
	e.level = 0
}

func (e *adsr) active() bool {
	return e.stage != stageIdle
}

func (e *adsr) next() float32 {
	switch e.stage {
	case stageAttack:
		e.level += e.attackStep
		if e.level >= 1.0 {
			e.level = 1.0
			e.stage = stageDecay
		}
	case stageDecay:
		e.level -= e.decayStep
		if e.level <= e.sustain {
			e.level = e.sustain
			e.stage = stageSustain
		}
	case stageSustain:
		e.level = e.sustain
		if e.level <= releaseDoneLevel {
			// Zero-sustain styles (staccato) end once the decay completes.
			e.level = 0
			e.stage = stageIdle
		}
	case stageRelease:
		e.level -= e.releaseStep
		if e.level <= releaseDoneLevel {
			e.level = 0
			e.stage = stageIdle
		}
	case stageIdle:
		e.level = 0
	}
	return e.level
}

func msToSamples(ms float32, sampleRate float64) float32 {
	n := float32(sampleRate) * ms / 1000.0
	if n < 1 {
		n = 1
	}
	return n
}
