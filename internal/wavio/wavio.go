// Package wavio holds the WAV and resampling helpers shared by the command
// line tools.
package wavio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// ReadWAVMono decodes a WAV file to a mono float64 buffer, averaging
// channels, and returns it with the file's sample rate.
func ReadWAVMono(path string) ([]float64, int, error) {
	buf, ch, rate, err := readPCM(path)
	if err != nil {
		return nil, 0, err
	}
	frames := len(buf) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf[i*ch+c])
		}
		out[i] = sum / float64(ch)
	}
	return out, rate, nil
}

// ReadWAVStereo decodes a WAV file to separate left/right float32 buffers.
// Mono files are duplicated to both channels.
func ReadWAVStereo(path string) (left, right []float32, rate int, err error) {
	buf, ch, rate, err := readPCM(path)
	if err != nil {
		return nil, nil, 0, err
	}
	frames := len(buf) / ch
	left = make([]float32, frames)
	right = make([]float32, frames)
	if ch == 1 {
		copy(left, buf)
		copy(right, buf)
		return left, right, rate, nil
	}
	for i := 0; i < frames; i++ {
		left[i] = buf[i*ch]
		right[i] = buf[i*ch+1]
	}
	return left, right, rate, nil
}

func readPCM(path string) ([]float32, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, 0, 0, fmt.Errorf("invalid wav sample-rate: %d", buf.Format.SampleRate)
	}
	if len(buf.Data) == 0 {
		return nil, 0, 0, fmt.Errorf("empty wav data: %s", path)
	}
	return buf.Data, buf.Format.NumChannels, buf.Format.SampleRate, nil
}

// ResampleIfNeeded converts in from fromRate to toRate; identity when the
// rates already match.
func ResampleIfNeeded(in []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// WriteStereoWAVLR writes separate left/right buffers as a 16-bit stereo WAV.
func WriteStereoWAVLR(path string, left, right []float32, sampleRate int) error {
	if len(left) != len(right) {
		return fmt.Errorf("left/right length mismatch: %d vs %d", len(left), len(right))
	}
	data := make([]float32, len(left)*2)
	for i := 0; i < len(left); i++ {
		data[i*2] = left[i]
		data[i*2+1] = right[i]
	}
	return WriteStereoInterleavedWAV(path, data, sampleRate)
}

// WriteStereoInterleavedWAV writes interleaved stereo samples as 16-bit WAV.
func WriteStereoInterleavedWAV(path string, samples []float32, sampleRate int) error {
	return writeWAV(path, samples, sampleRate, 2)
}

// WriteMonoWAV writes mono samples as 16-bit WAV.
func WriteMonoWAV(path string, samples []float32, sampleRate int) error {
	return writeWAV(path, samples, sampleRate, 1)
}

func writeWAV(path string, samples []float32, sampleRate, channels int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	defer enc.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}

// StereoToMono64 downmixes interleaved stereo to mono float64.
func StereoToMono64(st []float32) []float64 {
	if len(st) < 2 {
		return nil
	}
	n := len(st) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = 0.5 * (float64(st[i*2]) + float64(st[i*2+1]))
	}
	return out
}

// StereoRMS is the RMS level of an interleaved stereo buffer.
func StereoRMS(interleaved []float32) float64 {
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
