package orchestra

import (
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// oversampleFactor is fixed at 2x. The wrapper exists as the anti-alias hook
// ahead of any future nonlinear stage on the master bus.
const oversampleFactor = 2

// Butterworth Q values for a 4th-order lowpass split into two biquads.
var antiAliasQ = [2]float64{0.54119610, 1.30656296}

// Oversampler runs the mixed bus through a 2x up/down round trip with
// anti-alias filtering on both paths. Block length in equals block length
// out; only the filters' group delay remains. Enable state is atomic so the
// control thread can toggle it while audio runs.
type Oversampler struct {
	prepared atomic.Bool
	enabled  atomic.Bool

	// Two cascaded sections per channel per direction, running at 2x rate.
	up   [2][2]biquad.Section
	down [2][2]biquad.Section
}

// OversamplerSnapshot is a point-in-time view for diagnostics.
type OversamplerSnapshot struct {
	IsPrepared bool
	Enabled    bool
	Factor     int
}

func NewOversampler() *Oversampler {
	o := &Oversampler{}
	o.enabled.Store(true)
	return o
}

// Prepare designs the anti-alias filters for the given base rate. The
// cutoff sits at 0.45 of the base rate, just under the original Nyquist.
func (o *Oversampler) Prepare(sampleRate float64) {
	upRate := sampleRate * oversampleFactor
	cutoff := 0.45 * sampleRate
	for ch := 0; ch < 2; ch++ {
		for s := 0; s < 2; s++ {
			c := design.Lowpass(cutoff, antiAliasQ[s], upRate)
			o.up[ch][s] = *biquad.NewSection(c)
			o.down[ch][s] = *biquad.NewSection(c)
		}
	}
	o.prepared.Store(true)
}

func (o *Oversampler) SetEnabled(enabled bool) {
	o.enabled.Store(enabled)
}

func (o *Oversampler) Enabled() bool {
	return o.enabled.Load()
}

// Process runs n frames of the interleaved stereo buffer through the 2x
// round trip in place. A no-op before Prepare, when disabled, or on an
// empty block.
func (o *Oversampler) Process(buf []float32, n int) {
	if !o.prepared.Load() || !o.enabled.Load() || n <= 0 {
		return
	}
	for i := 0; i < n; i++ {
		for ch := 0; ch < 2; ch++ {
			x := float64(buf[i*2+ch]) * oversampleFactor

			// Zero-stuffed upsample: the sample then a zero, both
			// filtered at the 2x rate on the way up and down.
			u := o.up[ch][1].ProcessSample(o.up[ch][0].ProcessSample(x))
			o.down[ch][1].ProcessSample(o.down[ch][0].ProcessSample(u))

			u = o.up[ch][1].ProcessSample(o.up[ch][0].ProcessSample(0))
			y := o.down[ch][1].ProcessSample(o.down[ch][0].ProcessSample(u))

			buf[i*2+ch] = float32(y)
		}
	}
}

// Reset clears filter state without touching the designed coefficients.
func (o *Oversampler) Reset() {
	for ch := 0; ch < 2; ch++ {
		for s := 0; s < 2; s++ {
			o.up[ch][s].Reset()
			o.down[ch][s].Reset()
		}
	}
}

// Snapshot reports prepared/enabled state and the effective factor.
func (o *Oversampler) Snapshot() OversamplerSnapshot {
	factor := 1
	if o.prepared.Load() && o.enabled.Load() {
		factor = oversampleFactor
	}
	return OversamplerSnapshot{
		IsPrepared: o.prepared.Load(),
		Enabled:    o.enabled.Load(),
		Factor:     factor,
	}
}
