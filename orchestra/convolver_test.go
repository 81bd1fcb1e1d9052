package orchestra

import (
	"math"
	"math/rand"
	"testing"
)

func convProcess(c *ReverbConvolver, send []float32, frames, block int) []float32 {
	dst := make([]float32, frames*2)
	for off := 0; off < frames; {
		n := block
		if off+n > frames {
			n = frames - off
		}
		c.ProcessAdd(dst[off*2:], send[off*2:], n)
		off += n
	}
	return dst
}

func TestConvolverBypassLeavesMixUntouched(t *testing.T) {
	c := NewReverbConvolver(48000)
	if c.Latency() != 0 {
		t.Fatalf("bypass latency = %d, want 0", c.Latency())
	}

	rng := rand.New(rand.NewSource(7))
	const frames = 1000
	send := make([]float32, frames*2)
	dst := make([]float32, frames*2)
	want := make([]float32, frames*2)
	for i := range send {
		send[i] = float32(rng.Float64()*2 - 1)
		dst[i] = float32(rng.Float64()*2 - 1)
		want[i] = dst[i]
	}

	for off := 0; off < frames; {
		n := 313
		if off+n > frames {
			n = frames - off
		}
		c.ProcessAdd(dst[off*2:], send[off*2:], n)
		off += n
	}
	for i := range dst {
		if dst[i] != want[i] {
			t.Fatalf("sample %d: bypass wrote to the mix, %v != %v", i, dst[i], want[i])
		}
	}
}

func TestConvolverMatchesDirectConvolution(t *testing.T) {
	c := NewReverbConvolver(48000)
	ir := []float32{1.0, 0.5, -0.25, 0.125, 0.0625}
	if err := c.SetIR(ir, ir); err != nil {
		t.Fatalf("SetIR: %v", err)
	}
	if c.Latency() != convPartSize {
		t.Fatalf("latency = %d, want %d", c.Latency(), convPartSize)
	}

	rng := rand.New(rand.NewSource(11))
	const frames = 2048
	mono := make([]float32, frames)
	send := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		v := float32(rng.Float64()*2 - 1)
		mono[i] = v
		send[i*2] = v
		send[i*2+1] = v
	}

	// Odd block size exercises the staging FIFO across partition edges.
	out := convProcess(c, send, frames, 160)
	want := directConvolve(mono, ir)

	for i := convPartSize; i < frames; i++ {
		got := float64(out[i*2])
		ref := float64(want[i-convPartSize])
		if math.Abs(got-ref) > 1e-4 {
			t.Fatalf("sample %d: wet %v, direct %v", i, got, ref)
		}
		if out[i*2] != out[i*2+1] {
			t.Fatalf("sample %d: channels diverged on identical IRs", i)
		}
	}
	for i := 0; i < convPartSize; i++ {
		if out[i*2] != 0 {
			t.Fatalf("sample %d: output before wet latency elapsed", i)
		}
	}
}

func TestConvolverResetClearsTail(t *testing.T) {
	c := NewReverbConvolver(48000)
	ir := make([]float32, 512)
	for i := range ir {
		ir[i] = float32(math.Exp(-float64(i) / 100))
	}
	if err := c.SetIR(ir, ir); err != nil {
		t.Fatalf("SetIR: %v", err)
	}

	send := make([]float32, 1024*2)
	for i := range send {
		send[i] = 0.5
	}
	convProcess(c, send, 1024, 256)

	c.Reset()
	silence := make([]float32, 1024*2)
	out := convProcess(c, silence, 1024, 256)
	if rms := stereoRMS(out); rms != 0 {
		t.Fatalf("tail survived Reset: RMS %v", rms)
	}
}

func TestConvolverEmptyIRRestoresBypass(t *testing.T) {
	c := NewReverbConvolver(48000)
	if err := c.SetIR([]float32{1, 0.5}, []float32{1, 0.5}); err != nil {
		t.Fatalf("SetIR: %v", err)
	}
	if err := c.SetIR(nil, nil); err != nil {
		t.Fatalf("SetIR(nil): %v", err)
	}
	if c.Latency() != 0 {
		t.Fatalf("latency after clearing IR = %d, want 0", c.Latency())
	}

	send := []float32{0.25, -0.25, 0.5, -0.5}
	dst := make([]float32, 4)
	c.ProcessAdd(dst, send, 2)
	for i := range dst {
		if dst[i] != 0 {
			t.Fatalf("sample %d: bypassed convolver wrote %v", i, dst[i])
		}
	}
}

func TestConvolverMonoIRFeedsBothChannels(t *testing.T) {
	c := NewReverbConvolver(48000)
	if err := c.SetIR([]float32{1, 0.5, 0.25}, nil); err != nil {
		t.Fatalf("SetIR: %v", err)
	}

	const frames = 512
	send := make([]float32, frames*2)
	send[0] = 1
	send[1] = 1

	out := convProcess(c, send, frames, frames)
	for i := 0; i < frames; i++ {
		if out[i*2] != out[i*2+1] {
			t.Fatalf("sample %d: mirrored mono IR produced unequal channels", i)
		}
	}
	if got := float64(out[convPartSize*2]); math.Abs(got-1.0) > 1e-4 {
		t.Fatalf("impulse response head = %v, want 1.0", got)
	}
}

func TestConvolverLoadsAndResamplesWAV(t *testing.T) {
	const fileRate = 96000
	ir := make([]float32, 4096)
	for i := range ir {
		ir[i] = float32(math.Exp(-float64(i)/500)) * float32(math.Cos(float64(i)/7))
	}
	path := writeTempIRWav(t, ir, ir, fileRate)

	c := NewReverbConvolver(48000)
	if err := c.SetIRFromWAV(path); err != nil {
		t.Fatalf("SetIRFromWAV: %v", err)
	}
	if c.Latency() != convPartSize {
		t.Fatalf("latency = %d, want %d", c.Latency(), convPartSize)
	}

	// 96k source halves in length at the 48k engine rate.
	got := c.IRLength()
	want := len(ir) / 2
	if got < want-64 || got > want+64 {
		t.Fatalf("resampled IR length = %d, want ~%d", got, want)
	}
}

func TestConvolverRejectsMissingWAV(t *testing.T) {
	c := NewReverbConvolver(48000)
	if err := c.SetIRFromWAV("/nonexistent/ir.wav"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
