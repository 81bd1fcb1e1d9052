package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "orchestra",
	Short: "Multi-timbral orchestral synthesizer",
	Long: `Orchestra is a five-section software instrument: Strings, Brass,
Woodwinds, Percussion, and Choir, each with its own voice pool,
articulations, and parameter block, mixed through a shared convolution
reverb and anti-alias stage.

MIDI channels 1-5 address the sections; notes 24-26 switch articulations.`,
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
