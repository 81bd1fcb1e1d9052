package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-orchestra/internal/wavio"
	"github.com/cwbudde/algo-orchestra/orchestra"
	"github.com/cwbudde/algo-orchestra/preset"
	"github.com/spf13/cobra"
)

var renderFlags struct {
	sampleRate   int
	block        int
	channel      int
	notes        string
	velocity     int
	duration     float64
	releaseAfter float64
	presetPath   string
	irPath       string
	articulation int
	noOversample bool
	output       string
	verbose      bool
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render notes offline to a WAV file",
	Long: `Render one or more notes on a section offline and write the stereo
result to a WAV file.

Examples:
  orchestra render --channel 1 --notes 60 --output strings-c4.wav
  orchestra render --channel 2 --notes 48,52,55 --duration 4 --ir hall.wav
  orchestra render --channel 4 --notes 36 --articulation 1 --output hit.wav`,
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.IntVar(&renderFlags.sampleRate, "sample-rate", 48000, "Render sample rate in Hz")
	f.IntVar(&renderFlags.block, "block", 512, "Render block size in frames")
	f.IntVar(&renderFlags.channel, "channel", 1, "MIDI channel 1-5 (selects the section)")
	f.StringVar(&renderFlags.notes, "notes", "60", "Comma-separated MIDI note numbers")
	f.IntVar(&renderFlags.velocity, "velocity", 100, "MIDI velocity (1-127)")
	f.Float64Var(&renderFlags.duration, "duration", 3.0, "Total render duration in seconds")
	f.Float64Var(&renderFlags.releaseAfter, "release-after", 1.5, "Send note-offs after this many seconds")
	f.StringVar(&renderFlags.presetPath, "preset", "", "Preset JSON file to apply before rendering")
	f.StringVar(&renderFlags.irPath, "ir", "", "Reverb impulse response WAV (optional)")
	f.IntVar(&renderFlags.articulation, "articulation", -1, "Articulation slot 0-2 (-1 keeps the default)")
	f.BoolVar(&renderFlags.noOversample, "no-oversample", false, "Disable the 2x anti-alias stage")
	f.StringVar(&renderFlags.output, "output", "output.wav", "Output WAV file path")
	f.BoolVar(&renderFlags.verbose, "verbose", false, "Log engine activity to stderr")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	notes, err := parseNoteList(renderFlags.notes)
	if err != nil {
		return err
	}
	if renderFlags.channel < 1 || renderFlags.channel > orchestra.NumSections {
		return fmt.Errorf("channel must be 1-%d", orchestra.NumSections)
	}

	engine, err := buildEngine(renderFlags.sampleRate, renderFlags.block,
		renderFlags.presetPath, renderFlags.irPath, renderFlags.verbose)
	if err != nil {
		return err
	}
	if renderFlags.noOversample {
		engine.SetOversamplingEnabled(false)
	}
	if renderFlags.articulation >= 0 {
		engine.SetActiveArticulation(
			orchestra.SectionIndex(renderFlags.channel-1), renderFlags.articulation)
	}

	for _, n := range notes {
		engine.NoteOn(renderFlags.channel, n, renderFlags.velocity)
	}

	totalFrames := int(float64(renderFlags.sampleRate) * renderFlags.duration)
	if totalFrames < 1 {
		totalFrames = 1
	}
	releaseFrame := int(float64(renderFlags.sampleRate) * renderFlags.releaseAfter)

	samples := make([]float32, 0, totalFrames*2)
	buf := make([]float32, renderFlags.block*2)

	released := false
	for rendered := 0; rendered < totalFrames; {
		n := renderFlags.block
		if rendered+n > totalFrames {
			n = totalFrames - rendered
		}
		if !released && rendered >= releaseFrame {
			for _, note := range notes {
				engine.NoteOff(renderFlags.channel, note)
			}
			released = true
		}
		engine.Render(buf, n)
		samples = append(samples, buf[:2*n]...)
		rendered += n

		// Stop early once the release and reverb tails have died.
		if released && engine.ActiveVoices() == 0 && wavio.StereoRMS(buf[:2*n]) < 1e-5 {
			break
		}
	}

	if err := wavio.WriteStereoInterleavedWAV(renderFlags.output, samples, renderFlags.sampleRate); err != nil {
		return fmt.Errorf("write %s: %w", renderFlags.output, err)
	}

	stats := engine.BlockStats()
	fmt.Printf("Wrote %s: %d frames at %d Hz (avg block %.3f ms)\n",
		renderFlags.output, len(samples)/2, renderFlags.sampleRate, stats.AverageBlockMs)
	return nil
}

// buildEngine constructs and prepares an engine with the shared preset/IR
// flags applied.
func buildEngine(sampleRate, block int, presetPath, irPath string, verbose bool) (*orchestra.Engine, error) {
	var logger orchestra.Logger
	if verbose {
		logger = orchestra.NewWriterLogger(os.Stderr)
	}
	engine := orchestra.NewEngine(logger)
	if err := engine.Prepare(float64(sampleRate), block); err != nil {
		return nil, err
	}
	if presetPath != "" {
		f, err := preset.LoadJSONFile(presetPath)
		if err != nil {
			return nil, fmt.Errorf("load preset %s: %w", presetPath, err)
		}
		if err := preset.Apply(engine, f); err != nil {
			return nil, fmt.Errorf("apply preset %s: %w", presetPath, err)
		}
	}
	if irPath != "" {
		if err := engine.LoadReverbIR(irPath); err != nil {
			return nil, fmt.Errorf("load IR %s: %w", irPath, err)
		}
	}
	return engine, nil
}

func parseNoteList(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	notes := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 127 {
			return nil, fmt.Errorf("invalid note %q (expected 0..127)", p)
		}
		notes = append(notes, n)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	return notes, nil
}
