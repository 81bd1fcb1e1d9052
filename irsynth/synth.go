// Package irsynth generates synthetic concert-hall impulse responses for the
// send-bus reverb. Mode frequencies come from the eigenspectrum of the
// room's acoustics rather than random draws, so two renders with the same
// seed and geometry are identical.
package irsynth

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	pdefd "github.com/cwbudde/algo-pde/fd"
	pdepoisson "github.com/cwbudde/algo-pde/poisson"
)

// speedOfSound in air at room temperature, m/s.
const speedOfSound = 343.0

// HallConfig controls synthetic hall IR generation.
type HallConfig struct {
	SampleRate int
	DurationS  float64
	Seed       int64

	// Room geometry in meters. Mode frequencies are eigenfrequencies of
	// this box with rigid walls.
	RoomX float64
	RoomY float64
	RoomZ float64
	GridN int // finite-difference resolution per axis

	MaxModes   int
	ModeMaxHz  float64 // modal region upper bound; above it the tail is diffuse
	Brightness float64

	StereoWidth float64
	DirectLevel float64
	EarlyCount  int
	LateLevel   float64

	LowDecayS  float64
	HighDecayS float64
	FadeOutS   float64

	NormalizePeak float64
}

// DefaultHallConfig describes a mid-sized concert hall.
func DefaultHallConfig() HallConfig {
	return HallConfig{
		SampleRate:    48000,
		DurationS:     2.5,
		Seed:          1,
		RoomX:         30.0,
		RoomY:         20.0,
		RoomZ:         12.0,
		GridN:         48,
		MaxModes:      160,
		ModeMaxHz:     1200.0,
		Brightness:    0.9,
		StereoWidth:   0.7,
		DirectLevel:   0.5,
		EarlyCount:    24,
		LateLevel:     0.05,
		LowDecayS:     2.2,
		HighDecayS:    0.4,
		FadeOutS:      0.02,
		NormalizePeak: 0.9,
	}
}

func (c *HallConfig) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.DurationS <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if c.RoomX <= 0 || c.RoomY <= 0 || c.RoomZ <= 0 {
		return fmt.Errorf("room dimensions must be > 0")
	}
	if c.GridN < 4 {
		return fmt.Errorf("grid resolution must be >= 4")
	}
	if c.MaxModes < 1 {
		return fmt.Errorf("max modes must be >= 1")
	}
	if c.ModeMaxHz <= 0 {
		return fmt.Errorf("mode max Hz must be > 0")
	}
	if c.Brightness <= 0 {
		return fmt.Errorf("brightness must be > 0")
	}
	if c.StereoWidth < 0 {
		return fmt.Errorf("stereo width must be >= 0")
	}
	if c.DirectLevel < 0 {
		return fmt.Errorf("direct level must be >= 0")
	}
	if c.EarlyCount < 0 {
		return fmt.Errorf("early count must be >= 0")
	}
	if c.LateLevel < 0 {
		return fmt.Errorf("late level must be >= 0")
	}
	if c.LowDecayS <= 0 || c.HighDecayS <= 0 {
		return fmt.Errorf("decay seconds must be > 0")
	}
	if c.NormalizePeak <= 0 {
		return fmt.Errorf("normalize peak must be > 0")
	}
	return nil
}

// roomModeFreqs builds the hall's modal frequencies from the Dirichlet
// eigenspectrum of the 1D Laplacian along each axis: for an axis of length L
// sampled at n points, the eigenvalues approximate (kπ/L)², and a 3D box
// mode is f = c·sqrt(λx+λy+λz)/(2π). Frequencies above maxF are discarded;
// the list is sorted and capped at maxModes.
func roomModeFreqs(cfg HallConfig, maxF float64) []float64 {
	ex := pdefd.Eigenvalues(cfg.GridN, cfg.RoomX/float64(cfg.GridN), pdepoisson.Dirichlet)
	ey := pdefd.Eigenvalues(cfg.GridN, cfg.RoomY/float64(cfg.GridN), pdepoisson.Dirichlet)
	ez := pdefd.Eigenvalues(cfg.GridN, cfg.RoomZ/float64(cfg.GridN), pdepoisson.Dirichlet)

	limit := 2.0 * math.Pi * maxF / speedOfSound
	limit *= limit

	freqs := make([]float64, 0, cfg.MaxModes)
	for _, lx := range ex {
		if lx > limit {
			break
		}
		for _, ly := range ey {
			if lx+ly > limit {
				break
			}
			for _, lz := range ez {
				sum := lx + ly + lz
				if sum > limit {
					break
				}
				freqs = append(freqs, speedOfSound*math.Sqrt(sum)/(2.0*math.Pi))
			}
		}
	}

	sort.Float64s(freqs)
	if len(freqs) > cfg.MaxModes {
		freqs = freqs[:cfg.MaxModes]
	}
	return freqs
}

// GenerateHall synthesizes a stereo hall IR: direct sound, box-mode body,
// an early-reflection cluster, and a diffuse late tail.
func GenerateHall(cfg HallConfig) ([]float32, []float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	n := int(math.Round(cfg.DurationS * float64(cfg.SampleRate)))
	if n < 1 {
		n = 1
	}
	left := make([]float64, n)
	right := make([]float64, n)

	rng := rand.New(rand.NewSource(cfg.Seed))

	left[0] += cfg.DirectLevel * (1.0 - 0.05*cfg.StereoWidth)
	right[0] += cfg.DirectLevel * (1.0 + 0.05*cfg.StereoWidth)

	maxF := cfg.ModeMaxHz
	if nyq := 0.47 * float64(cfg.SampleRate); maxF > nyq {
		maxF = nyq
	}
	freqs := roomModeFreqs(cfg, maxF)

	// Modal body: eigenfrequency placement, RNG only for the non-critical
	// amplitude jitter, phase, and pan.
	brightnessExp := 0.7 + 0.9*cfg.Brightness
	for _, f := range freqs {
		amp := 0.9 / math.Pow(1.0+f/120.0, brightnessExp)
		amp *= 0.7 + 0.6*rng.Float64()

		tau := lerp(cfg.LowDecayS, cfg.HighDecayS, math.Sqrt(f/maxF))
		decay := math.Exp(-1.0 / (tau * float64(cfg.SampleRate)))

		pan := (rng.Float64()*2.0 - 1.0) * cfg.StereoWidth
		lGain := 1.0 - 0.45*pan
		rGain := 1.0 + 0.45*pan
		fSkew := 0.004 * pan

		phi := rng.Float64() * 2.0 * math.Pi
		addModeRec(left, amp*lGain, f*(1.0-fSkew), phi, decay, cfg.SampleRate)
		addModeRec(right, amp*rGain, f*(1.0+fSkew), phi+0.01*pan, decay, cfg.SampleRate)
	}

	// Early reflections, 1-50 ms.
	for i := 0; i < cfg.EarlyCount; i++ {
		t := 0.001 + 0.049*rng.Float64()
		idx := int(t * float64(cfg.SampleRate))
		if idx <= 0 || idx >= n {
			continue
		}
		amp := (0.10 + 0.35*rng.Float64()) * math.Exp(-t*20.0)
		pan := (rng.Float64()*2.0 - 1.0) * cfg.StereoWidth
		left[idx] += amp * (1.0 - 0.5*pan)
		right[idx] += amp * (1.0 + 0.5*pan)
	}

	// Diffuse late tail above the modal region.
	if cfg.LateLevel > 0 {
		lpL, lpR := 0.0, 0.0
		for i := 0; i < n; i++ {
			t := float64(i) / float64(cfg.SampleRate)
			env := math.Exp(-t / (0.75 * cfg.LowDecayS))
			lpL = 0.985*lpL + 0.015*rng.NormFloat64()
			lpR = 0.985*lpR + 0.015*rng.NormFloat64()
			left[i] += cfg.LateLevel * env * lpL
			right[i] += cfg.LateLevel * env * lpR
		}
	}

	highpassDC(left, 0.995)
	highpassDC(right, 0.995)
	applyFadeOut(left, cfg.FadeOutS, cfg.SampleRate)
	applyFadeOut(right, cfg.FadeOutS, cfg.SampleRate)

	peak := maxAbs(left)
	if rp := maxAbs(right); rp > peak {
		peak = rp
	}
	if peak < 1e-12 {
		peak = 1e-12
	}
	s := cfg.NormalizePeak / peak
	outL := make([]float32, n)
	outR := make([]float32, n)
	for i := 0; i < n; i++ {
		outL[i] = float32(left[i] * s)
		outR[i] = float32(right[i] * s)
	}
	return outL, outR, nil
}

// addModeRec accumulates an exponentially decaying cosine via the standard
// two-term recurrence, avoiding a per-sample trig call.
func addModeRec(out []float64, amp, freq, phase, decay float64, sampleRate int) {
	if len(out) == 0 {
		return
	}
	w := 2.0 * math.Pi * freq / float64(sampleRate)
	cw := math.Cos(w)
	x0 := math.Cos(phase)
	x1 := math.Cos(phase + w)
	env := 1.0

	out[0] += amp * env * x0
	env *= decay
	if len(out) == 1 {
		return
	}
	out[1] += amp * env * x1
	env *= decay
	for i := 2; i < len(out); i++ {
		x2 := 2.0*cw*x1 - x0
		x0 = x1
		x1 = x2
		out[i] += amp * env * x2
		env *= decay
	}
}

func highpassDC(x []float64, r float64) {
	if len(x) == 0 {
		return
	}
	prevIn := 0.0
	prevOut := 0.0
	for i := range x {
		y := x[i] - prevIn + r*prevOut
		prevIn = x[i]
		prevOut = y
		x[i] = y
	}
}

// applyFadeOut applies a cosine fade to the last fadeS seconds of buf.
func applyFadeOut(buf []float64, fadeS float64, sampleRate int) {
	if fadeS <= 0 || len(buf) == 0 {
		return
	}
	fadeSamples := int(math.Round(fadeS * float64(sampleRate)))
	if fadeSamples > len(buf) {
		fadeSamples = len(buf)
	}
	start := len(buf) - fadeSamples
	for i := 0; i < fadeSamples; i++ {
		t := float64(i) / float64(fadeSamples)
		buf[start+i] *= 0.5 * (1.0 + math.Cos(t*math.Pi))
	}
}

func maxAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func lerp(a, b, t float64) float64 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return a + (b-a)*t
}
