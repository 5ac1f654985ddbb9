package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/cli"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/fallback"
)

var toneCmd = &cobra.Command{
	Use:   "tone",
	Short: "Render the fallback tone as raw μ-law",
	Long: `Render the tone played to callers when no AI or prompt audio is
available, as raw 8 kHz μ-law.

Example:
  callbridge tone -o tone.ulaw
  callbridge tone --frequency 440 --count 2 -o tone.ulaw
  callbridge tone -f tone.yaml -o tone.ulaw`,
	RunE: runTone,
}

func init() {
	toneCmd.Flags().Float64("frequency", 0, "tone frequency in Hz (default 425)")
	toneCmd.Flags().Int("count", 0, "number of beeps (default 3)")
	toneCmd.Flags().Duration("beep", 0, "beep length (default 250ms)")
	toneCmd.Flags().Duration("gap", 0, "gap between beeps (default 250ms)")
}

func runTone(cmd *cobra.Command, args []string) error {
	var cfg fallback.ToneConfig
	if inputFile != "" {
		if err := cli.LoadRequest(inputFile, &cfg); err != nil {
			return err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("frequency") {
		cfg.Frequency, _ = flags.GetFloat64("frequency")
	}
	if flags.Changed("count") {
		cfg.Count, _ = flags.GetInt("count")
	}
	if flags.Changed("beep") {
		cfg.Beep, _ = flags.GetDuration("beep")
	}
	if flags.Changed("gap") {
		cfg.Gap, _ = flags.GetDuration("gap")
	}

	mu := fallback.Tone(cfg)
	if outputFile == "" {
		if _, err := os.Stdout.Write(mu); err != nil {
			return err
		}
	} else {
		if err := cli.OutputBytes(mu, outputFile); err != nil {
			return err
		}
		cli.PrintSuccess("Wrote %s (%s, %s)", outputFile, cli.FormatBytes(int64(len(mu))),
			cli.FormatDuration(pcm.MuLaw8K.Duration(int64(len(mu)))))
	}
	return nil
}
