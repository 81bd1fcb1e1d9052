package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-orchestra/orchestra"
	"github.com/ebitengine/oto/v3"
	"github.com/spf13/cobra"
)

var playFlags struct {
	sampleRate   int
	block        int
	channel      int
	notes        string
	velocity     int
	duration     float64
	presetPath   string
	irPath       string
	articulation int
	demo         bool
	verbose      bool
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play notes through the default audio device",
	Long: `Play one or more notes on a section in real time.

Examples:
  orchestra play --channel 5 --notes 60,64,67 --duration 5
  orchestra play --channel 1 --notes 48 --ir hall.wav`,
	RunE: runPlay,
}

func init() {
	f := playCmd.Flags()
	f.IntVar(&playFlags.sampleRate, "sample-rate", 48000, "Playback sample rate in Hz")
	f.IntVar(&playFlags.block, "block", 512, "Render block size in frames")
	f.IntVar(&playFlags.channel, "channel", 1, "MIDI channel 1-5 (selects the section)")
	f.StringVar(&playFlags.notes, "notes", "60", "Comma-separated MIDI note numbers")
	f.IntVar(&playFlags.velocity, "velocity", 100, "MIDI velocity (1-127)")
	f.Float64Var(&playFlags.duration, "duration", 3.0, "Hold time in seconds before release")
	f.StringVar(&playFlags.presetPath, "preset", "", "Preset JSON file to apply before playing")
	f.StringVar(&playFlags.irPath, "ir", "", "Reverb impulse response WAV (optional)")
	f.IntVar(&playFlags.articulation, "articulation", -1, "Articulation slot 0-2 (-1 keeps the default)")
	f.BoolVar(&playFlags.demo, "demo", false, "Play a short sequence across all five sections")
	f.BoolVar(&playFlags.verbose, "verbose", false, "Log engine activity to stderr")
	rootCmd.AddCommand(playCmd)
}

// engineReader streams rendered blocks to oto as little-endian float32.
type engineReader struct {
	engine *orchestra.Engine
	block  int
	buf    []float32
}

func (r *engineReader) Read(p []byte) (int, error) {
	const bytesPerFrame = 8 // 2 channels * 4 bytes
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}

	written := 0
	for frames > 0 {
		n := frames
		if n > r.block {
			n = r.block
		}
		r.engine.Render(r.buf, n)
		for i := 0; i < 2*n; i++ {
			binary.LittleEndian.PutUint32(p[written+i*4:], math.Float32bits(r.buf[i]))
		}
		written += n * bytesPerFrame
		frames -= n
	}
	return written, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	notes, err := parseNoteList(playFlags.notes)
	if err != nil {
		return err
	}
	if playFlags.channel < 1 || playFlags.channel > orchestra.NumSections {
		return fmt.Errorf("channel must be 1-%d", orchestra.NumSections)
	}

	engine, err := buildEngine(playFlags.sampleRate, playFlags.block,
		playFlags.presetPath, playFlags.irPath, playFlags.verbose)
	if err != nil {
		return err
	}
	if playFlags.articulation >= 0 {
		engine.SetActiveArticulation(
			orchestra.SectionIndex(playFlags.channel-1), playFlags.articulation)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   playFlags.sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	reader := &engineReader{
		engine: engine,
		block:  playFlags.block,
		buf:    make([]float32, playFlags.block*2),
	}
	player := ctx.NewPlayer(reader)
	defer player.Close()

	player.Play()
	if playFlags.demo {
		playDemoSequence(engine)
	} else {
		for _, n := range notes {
			engine.NoteOn(playFlags.channel, n, playFlags.velocity)
		}
		time.Sleep(time.Duration(playFlags.duration * float64(time.Second)))
		for _, n := range notes {
			engine.NoteOff(playFlags.channel, n)
		}
	}

	// Let release tails and the reverb decay before tearing down.
	for engine.ActiveVoices() > 0 {
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(300 * time.Millisecond)
	return nil
}

// playDemoSequence walks a C-major cadence through the five sections.
func playDemoSequence(engine *orchestra.Engine) {
	type step struct {
		channel int
		notes   []int
		holdMs  int
	}
	// Strings, woodwinds, brass, a percussion hit, then the full choir.
	steps := []step{
		{channel: 1, notes: []int{48, 55, 64}, holdMs: 1600},
		{channel: 3, notes: []int{72, 76}, holdMs: 1200},
		{channel: 2, notes: []int{43, 50, 59}, holdMs: 1400},
		{channel: 4, notes: []int{36}, holdMs: 400},
		{channel: 5, notes: []int{60, 64, 67, 72}, holdMs: 2200},
	}
	for _, st := range steps {
		for _, n := range st.notes {
			engine.NoteOn(st.channel, n, 100)
		}
		time.Sleep(time.Duration(st.holdMs) * time.Millisecond)
		for _, n := range st.notes {
			engine.NoteOff(st.channel, n)
		}
	}
}
