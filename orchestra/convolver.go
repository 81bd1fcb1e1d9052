package orchestra

import (
	"fmt"
	"os"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
)

// convPartSize is the partition length of the streaming convolvers. It is
// also the fixed latency of the wet path once an impulse response is loaded.
const convPartSize = 128

// ReverbConvolver is the shared send-bus reverb: partitioned convolution of
// the stereo send with a loaded impulse response. Without an IR the stage is
// inert and contributes nothing to the mix; the dry bus already carries the
// full signal, so the send level is inaudible until a room is loaded.
type ReverbConvolver struct {
	sampleRate int
	irLen      int
	bypass     bool

	leftOLA  *dspconv.StreamingOverlapAddT[float32, complex64]
	rightOLA *dspconv.StreamingOverlapAddT[float32, complex64]

	// Staging FIFO so arbitrary render block sizes map onto fixed-size
	// partitions without padding artifacts.
	stageL []float32
	stageR []float32
	readyL []float32
	readyR []float32
	pos    int
}

// NewReverbConvolver creates a bypassed reverb for the given sample rate.
func NewReverbConvolver(sampleRate int) *ReverbConvolver {
	c := &ReverbConvolver{
		sampleRate: sampleRate,
		bypass:     true,
		irLen:      1,
		stageL:     make([]float32, convPartSize),
		stageR:     make([]float32, convPartSize),
		readyL:     make([]float32, convPartSize),
		readyR:     make([]float32, convPartSize),
	}
	return c
}

// ProcessAdd convolves n frames of the interleaved send bus and accumulates
// the wet signal onto dst. In bypass dst is left untouched.
func (c *ReverbConvolver) ProcessAdd(dst, send []float32, n int) {
	if c.bypass {
		return
	}

	for i := 0; i < n; i++ {
		dst[i*2] += c.readyL[c.pos]
		dst[i*2+1] += c.readyR[c.pos]
		c.stageL[c.pos] = send[i*2]
		c.stageR[c.pos] = send[i*2+1]
		c.pos++
		if c.pos == convPartSize {
			errL := c.leftOLA.ProcessBlockTo(c.readyL, c.stageL)
			errR := c.rightOLA.ProcessBlockTo(c.readyR, c.stageR)
			if errL != nil || errR != nil {
				copy(c.readyL, c.stageL)
				copy(c.readyR, c.stageR)
			}
			c.pos = 0
		}
	}
}

// SetIR configures left/right impulse responses. Empty IRs restore bypass.
func (c *ReverbConvolver) SetIR(leftIR, rightIR []float32) error {
	if len(leftIR) == 0 && len(rightIR) == 0 {
		c.bypass = true
		c.irLen = 1
		c.Reset()
		return nil
	}
	if len(leftIR) == 0 {
		leftIR = rightIR
	}
	if len(rightIR) == 0 {
		rightIR = leftIR
	}

	leftOLA, errL := dspconv.NewStreamingOverlapAdd32(leftIR, convPartSize)
	if errL != nil {
		return errL
	}
	rightOLA, errR := dspconv.NewStreamingOverlapAdd32(rightIR, convPartSize)
	if errR != nil {
		return errR
	}
	c.leftOLA = leftOLA
	c.rightOLA = rightOLA
	c.irLen = max(len(leftIR), len(rightIR))
	c.bypass = false
	c.Reset()
	return nil
}

// SetIRFromWAV loads a mono or stereo IR from a WAV file, resampling to the
// engine rate when needed.
func (c *ReverbConvolver) SetIRFromWAV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return fmt.Errorf("invalid wav buffer: %s", path)
	}

	numCh := buf.Format.NumChannels
	srcRate := buf.Format.SampleRate
	if srcRate <= 0 {
		return fmt.Errorf("invalid wav sample-rate: %d", srcRate)
	}
	frames := len(buf.Data) / numCh
	if frames == 0 {
		return fmt.Errorf("empty wav data: %s", path)
	}

	left := make([]float32, frames)
	right := make([]float32, frames)
	if numCh == 1 {
		for i := range frames {
			v := buf.Data[i]
			left[i] = v
			right[i] = v
		}
	} else {
		for i := range frames {
			left[i] = buf.Data[i*numCh]
			right[i] = buf.Data[i*numCh+1]
		}
	}

	left, err = c.resampleIfNeeded(left, srcRate)
	if err != nil {
		return err
	}
	right, err = c.resampleIfNeeded(right, srcRate)
	if err != nil {
		return err
	}
	return c.SetIR(left, right)
}

// Latency reports the wet-path delay in samples.
func (c *ReverbConvolver) Latency() int {
	if c.bypass {
		return 0
	}
	return convPartSize
}

// IRLength reports the configured impulse-response length.
func (c *ReverbConvolver) IRLength() int {
	return c.irLen
}

// Reset clears convolver history and the staging FIFO.
func (c *ReverbConvolver) Reset() {
	if c.leftOLA != nil {
		c.leftOLA.Reset()
	}
	if c.rightOLA != nil {
		c.rightOLA.Reset()
	}
	for i := 0; i < convPartSize; i++ {
		c.stageL[i] = 0
		c.stageR[i] = 0
		c.readyL[i] = 0
		c.readyR[i] = 0
	}
	c.pos = 0
}

func (c *ReverbConvolver) resampleIfNeeded(in []float32, inRate int) ([]float32, error) {
	if inRate == c.sampleRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(inRate),
		float64(c.sampleRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}

	in64 := make([]float64, len(in))
	for i, v := range in {
		in64[i] = float64(v)
	}
	out64 := r.Process(in64)
	out := make([]float32, len(out64))
	for i, v := range out64 {
		out[i] = float32(v)
	}
	return out, nil
}
