package main

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/algo-orchestra/analysis"
	"github.com/cwbudde/algo-orchestra/internal/wavio"
	"github.com/cwbudde/algo-orchestra/orchestra"
	"github.com/cwbudde/algo-orchestra/preset"
	"github.com/cwbudde/mayfly"
	"github.com/spf13/cobra"
)

var fitFlags struct {
	reference  string
	section    string
	note       int
	velocity   int
	sampleRate int
	hold       float64
	tail       float64
	variant    string
	pop        int
	iterations int
	seed       int64
	output     string
}

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit section parameters to a reference recording",
	Long: `Optimize one section's tone parameters (gain, cutoff, resonance,
attack, release) so a rendered note matches a reference WAV as closely as
possible, then write the result as a preset file.

Examples:
  orchestra fit --reference cello-c3.wav --section strings --note 48
  orchestra fit --reference horn.wav --section brass --note 53 --iterations 60`,
	RunE: runFit,
}

func init() {
	f := fitCmd.Flags()
	f.StringVar(&fitFlags.reference, "reference", "", "Reference WAV file (required)")
	f.StringVar(&fitFlags.section, "section", "strings", "Section name to fit")
	f.IntVar(&fitFlags.note, "note", 60, "MIDI note to render during fitting")
	f.IntVar(&fitFlags.velocity, "velocity", 100, "MIDI velocity (1-127)")
	f.IntVar(&fitFlags.sampleRate, "sample-rate", 48000, "Render sample rate in Hz")
	f.Float64Var(&fitFlags.hold, "hold", 1.5, "Note hold time in seconds")
	f.Float64Var(&fitFlags.tail, "tail", 1.0, "Release tail render time in seconds")
	f.StringVar(&fitFlags.variant, "variant", "desma", "Mayfly variant: ma, desma, olce, eobbma, gsasma, mpma, aoblmoa")
	f.IntVar(&fitFlags.pop, "pop", 12, "Mayfly population size")
	f.IntVar(&fitFlags.iterations, "iterations", 40, "Mayfly iterations")
	f.Int64Var(&fitFlags.seed, "seed", 1, "Random seed")
	f.StringVar(&fitFlags.output, "output", "fitted.json", "Output preset JSON path")
	_ = fitCmd.MarkFlagRequired("reference")
	rootCmd.AddCommand(fitCmd)
}

// knobDef maps one normalized optimizer dimension onto a parameter range.
type knobDef struct {
	name string
	lo   float64
	hi   float64
	log  bool
}

var fitKnobs = []knobDef{
	{name: "gain", lo: 0.05, hi: 1.5},
	{name: "cutoff", lo: 200, hi: 16000, log: true},
	{name: "resonance", lo: 0.3, hi: 4.0},
	{name: "attackMs", lo: 1, hi: 200, log: true},
	{name: "releaseMs", lo: 20, hi: 1000, log: true},
}

func (k knobDef) value(norm float64) float64 {
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	if k.log {
		return k.lo * math.Pow(k.hi/k.lo, norm)
	}
	return k.lo + (k.hi-k.lo)*norm
}

func paramsFromKnobs(idx orchestra.SectionIndex, pos []float64) orchestra.SectionParams {
	p := orchestra.NewDefaultSectionParams(idx)
	p.Gain = float32(fitKnobs[0].value(pos[0]))
	p.Cutoff = float32(fitKnobs[1].value(pos[1]))
	p.Resonance = float32(fitKnobs[2].value(pos[2]))
	p.AttackMs = float32(fitKnobs[3].value(pos[3]))
	p.ReleaseMs = float32(fitKnobs[4].value(pos[4]))
	p.ReverbSend = 0
	return p
}

// renderCandidate renders the fit note with the candidate parameters on a
// fresh engine and returns the mono downmix.
func renderCandidate(idx orchestra.SectionIndex, p orchestra.SectionParams) ([]float64, error) {
	const block = 512
	engine := orchestra.NewEngine(nil)
	if err := engine.Prepare(float64(fitFlags.sampleRate), block); err != nil {
		return nil, err
	}
	if err := engine.SetSectionParams(idx, p); err != nil {
		return nil, err
	}

	holdFrames := int(float64(fitFlags.sampleRate) * fitFlags.hold)
	tailFrames := int(float64(fitFlags.sampleRate) * fitFlags.tail)
	total := holdFrames + tailFrames

	engine.NoteOn(int(idx)+1, fitFlags.note, fitFlags.velocity)

	out := make([]float32, 0, total*2)
	buf := make([]float32, block*2)
	released := false
	for rendered := 0; rendered < total; {
		n := block
		if rendered+n > total {
			n = total - rendered
		}
		if !released && rendered >= holdFrames {
			engine.NoteOff(int(idx)+1, fitFlags.note)
			released = true
		}
		engine.Render(buf, n)
		out = append(out, buf[:2*n]...)
		rendered += n
	}
	return wavio.StereoToMono64(out), nil
}

func runFit(cmd *cobra.Command, args []string) error {
	idx, ok := orchestra.SectionByName(fitFlags.section)
	if !ok {
		return fmt.Errorf("unknown section %q", fitFlags.section)
	}

	ref, refRate, err := wavio.ReadWAVMono(fitFlags.reference)
	if err != nil {
		return fmt.Errorf("read reference %s: %w", fitFlags.reference, err)
	}
	ref, err = wavio.ResampleIfNeeded(ref, refRate, fitFlags.sampleRate)
	if err != nil {
		return err
	}

	cfg, err := newMayflyConfig(fitFlags.variant, fitFlags.pop, len(fitKnobs), fitFlags.iterations)
	if err != nil {
		return err
	}
	cfg.Rand = rand.New(rand.NewSource(fitFlags.seed))

	start := time.Now()
	evals := 0
	best := orchestra.NewDefaultSectionParams(idx)
	bestMetrics := analysis.Metrics{Score: math.Inf(1)}

	cfg.ObjectiveFunc = func(pos []float64) float64 {
		evals++
		p := paramsFromKnobs(idx, pos)
		cand, err := renderCandidate(idx, p)
		if err != nil {
			return bestMetrics.Score + 0.8
		}
		m := analysis.Compare(ref, cand, fitFlags.sampleRate)
		if m.Score < bestMetrics.Score {
			best = p
			bestMetrics = m
			fmt.Printf("Improved eval=%d score=%.4f similarity=%.2f%%\n",
				evals, m.Score, m.Similarity*100.0)
		}
		return m.Score
	}

	if _, err := runMayfly(cfg); err != nil {
		return err
	}

	fmt.Printf("Done: %d evals in %.1fs, score=%.4f similarity=%.2f%%\n",
		evals, time.Since(start).Seconds(), bestMetrics.Score, bestMetrics.Similarity*100.0)
	fmt.Printf("Best %s: gain=%.3f cutoff=%.0f resonance=%.2f attack=%.1fms release=%.0fms\n",
		fitFlags.section, best.Gain, best.Cutoff, best.Resonance, best.AttackMs, best.ReleaseMs)

	out := preset.File{
		Name: fmt.Sprintf("fit-%s-note%d", fitFlags.section, fitFlags.note),
		Sections: map[string]preset.SectionRecord{
			idx.Name(): sectionRecordFromParams(best),
		},
	}
	if err := preset.WriteJSONFile(fitFlags.output, &out); err != nil {
		return fmt.Errorf("write %s: %w", fitFlags.output, err)
	}
	fmt.Printf("Wrote %s\n", fitFlags.output)
	return nil
}

func sectionRecordFromParams(p orchestra.SectionParams) preset.SectionRecord {
	return preset.SectionRecord{
		Gain:      &p.Gain,
		Cutoff:    &p.Cutoff,
		Resonance: &p.Resonance,
		AttackMs:  &p.AttackMs,
		ReleaseMs: &p.ReleaseMs,
	}
}

func newMayflyConfig(variant string, pop, dims, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	// Mayfly assumes NC/2 parent pairs are available from both populations.
	cfg.NC = 2 * pop
	cfg.NM = maxInt(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
