package orchestra

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// midiNoteToFreq converts a MIDI note number to frequency in Hz
// (12-TET, A4 = note 69 = 440 Hz).
func midiNoteToFreq(note int) float64 {
	const a4Freq = 440.0
	const a4Note = 69
	exponent := float32(note-a4Note) / 12.0
	return a4Freq * float64(pow2Approx(exponent))
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

// panGains maps pan in [-1,1] to equal-power stereo gains.
func panGains(pan float32) (left, right float32) {
	p := clampF(pan, -1, 1)
	angle := float64(p+1) * math.Pi / 4.0
	return float32(math.Cos(angle)), float32(math.Sin(angle))
}

func clampVelocity(velocity int) float32 {
	if velocity < 0 {
		return 0
	}
	if velocity > 127 {
		return 1
	}
	return float32(velocity) / 127.0
}
