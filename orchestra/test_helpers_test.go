package orchestra

import (
	"math"
	"os"
	"testing"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

func stereoRMS(interleaved []float32) float64 {
	if len(interleaved) == 0 {
		return 0
	}
	var sum float64
	for _, s := range interleaved {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(interleaved)))
}

// renderFrames drives the engine in fixed blocks and returns the interleaved
// stereo result.
func renderFrames(e *Engine, total, block int) []float32 {
	out := make([]float32, 0, total*2)
	buf := make([]float32, block*2)
	for rendered := 0; rendered < total; {
		n := block
		if rendered+n > total {
			n = total - rendered
		}
		e.Render(buf, n)
		out = append(out, buf[:2*n]...)
		rendered += n
	}
	return out
}

func leftChannel(interleaved []float32) []float32 {
	out := make([]float32, len(interleaved)/2)
	for i := range out {
		out[i] = interleaved[i*2]
	}
	return out
}

func measureFundamentalFreq(samples []float32, sampleRate float32) float32 {
	startIdx := len(samples) / 10
	crossings := 0
	for i := startIdx + 1; i < len(samples); i++ {
		if (samples[i-1] < 0 && samples[i] >= 0) || (samples[i-1] >= 0 && samples[i] < 0) {
			crossings++
		}
	}
	if crossings == 0 {
		return 0
	}
	duration := float32(len(samples)-startIdx) / sampleRate
	return float32(crossings) / (2.0 * duration)
}

func dftBinMagnitude(samples []float32, bin int) float64 {
	n := len(samples)
	var re, im float64
	for i := 0; i < n; i++ {
		phase := -2.0 * math.Pi * float64(bin*i) / float64(n)
		x := float64(samples[i])
		re += x * math.Cos(phase)
		im += x * math.Sin(phase)
	}
	return math.Hypot(re, im)
}

func findPeakNear(samples []float32, sampleRate int, centerHz, spanHz float64) float64 {
	n := len(samples)
	minBin := int((centerHz - spanHz) * float64(n) / float64(sampleRate))
	maxBin := int((centerHz + spanHz) * float64(n) / float64(sampleRate))
	if minBin < 1 {
		minBin = 1
	}
	if maxBin > n/2-1 {
		maxBin = n/2 - 1
	}
	if minBin >= maxBin {
		return 0
	}

	bestBin := minBin
	bestMag := 0.0
	for k := minBin; k <= maxBin; k++ {
		if mag := dftBinMagnitude(samples, k); mag > bestMag {
			bestMag = mag
			bestBin = k
		}
	}
	return float64(bestBin) * float64(sampleRate) / float64(n)
}

func directConvolve(x, h []float32) []float32 {
	y := make([]float32, len(x)+len(h)-1)
	for i := 0; i < len(x); i++ {
		for j := 0; j < len(h); j++ {
			y[i+j] += x[i] * h[j]
		}
	}
	return y
}

func maxAbsDiff(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	max := 0.0
	for i := 0; i < n; i++ {
		if d := math.Abs(float64(a[i] - b[i])); d > max {
			max = d
		}
	}
	return max
}

func writeTempIRWav(t *testing.T, left, right []float32, sampleRate int) string {
	t.Helper()
	f, err := os.CreateTemp("", "ir-*.wav")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	numCh := 1
	data := make([]float32, len(left))
	copy(data, left)
	if right != nil {
		numCh = 2
		if len(right) != len(left) {
			t.Fatalf("left/right length mismatch")
		}
		data = make([]float32, len(left)*2)
		for i := range left {
			data[i*2] = left[i]
			data[i*2+1] = right[i]
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, numCh, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: numCh,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("wav write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("wav close: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(f.Name()) })
	return f.Name()
}
