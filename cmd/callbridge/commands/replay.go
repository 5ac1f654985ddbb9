package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/transcode"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/bargein"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/cli"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/jsontime"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/vad"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run VAD and barge-in over a recorded call",
	Long: `Replay raw 8 kHz μ-law caller audio through the voice activity detector
and the barge-in classifier, and report the utterances and interruptions
a live call would have produced.

Request file example (replay.yaml):

  audio: caller.ulaw
  vad:
    silence_gap: 900ms
  barge_in:
    echo_window: 400ms
  ai_audio:          # when the AI was talking
    - start: 0s
      end: 2.5s

Example:
  callbridge replay -f replay.yaml
  callbridge replay -f replay.yaml --json | jq '.barge_ins'`,
	RunE: runReplay,
}

type replayRequest struct {
	// Audio is a raw μ-law file, relative to the request file.
	Audio   string         `yaml:"audio" json:"audio"`
	VAD     vad.Config     `yaml:"vad" json:"vad"`
	BargeIn bargein.Config `yaml:"barge_in" json:"barge_in"`
	AIAudio []aiWindow     `yaml:"ai_audio" json:"ai_audio"`
}

// aiWindow is a stretch of the recording during which AI audio played.
type aiWindow struct {
	Start time.Duration `yaml:"start" json:"start"`
	End   time.Duration `yaml:"end" json:"end"`
}

type replayReport struct {
	Audio      string            `json:"audio"`
	Duration   jsontime.Duration `json:"duration"`
	Frames     int               `json:"frames"`
	NoiseFloor float64           `json:"noise_floor"`
	Threshold  float64           `json:"threshold"`
	Utterances []replayUtterance `json:"utterances"`
	Discarded  int               `json:"discarded"`
	BargeIns   []replayBargeIn   `json:"barge_ins,omitempty"`
}

type replayUtterance struct {
	Start    jsontime.Duration `json:"start"`
	Duration jsontime.Duration `json:"duration"`
	Voiced   jsontime.Duration `json:"voiced"`
	Reason   string            `json:"reason"`
}

type replayBargeIn struct {
	At     jsontime.Duration `json:"at"`
	Speech jsontime.Duration `json:"speech"`
	Reason string            `json:"reason"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	if inputFile == "" {
		return fmt.Errorf("request file is required, use -f flag")
	}
	var req replayRequest
	if err := cli.LoadRequest(inputFile, &req); err != nil {
		return err
	}
	if req.Audio == "" {
		return fmt.Errorf("request has no audio file")
	}
	path := req.Audio
	if !filepath.IsAbs(path) && inputFile != "-" {
		path = filepath.Join(filepath.Dir(inputFile), path)
	}
	mu, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	report, err := replay(&req, mu, slog.Default())
	if err != nil {
		return err
	}
	report.Audio = path

	if err := outputResult(report, outputFile, outputJSON); err != nil {
		return err
	}
	if !outputJSON {
		fmt.Fprintln(os.Stderr, replaySummary(report).Render())
	}
	return nil
}

// replay runs the inbound path of a call over mu.
func replay(req *replayRequest, mu []byte, logger *slog.Logger) (*replayReport, error) {
	in, err := transcode.NewInbound(pcm.L16Mono8K, logger)
	if err != nil {
		return nil, err
	}
	seg := vad.New(req.VAD)
	report := &replayReport{}

	addUtterance := func(u *vad.Utterance) {
		report.Utterances = append(report.Utterances, replayUtterance{
			Start:    jsontime.Duration(u.Start),
			Duration: jsontime.Duration(u.Duration),
			Voiced:   jsontime.Duration(u.Voiced),
			Reason:   u.Reason.String(),
		})
	}

	interrupted := false
	for _, chunk := range pcm.Split(mu, transcode.TelephonyFrameBytes) {
		at := seg.Position()
		fr, err := in.Decode(chunk)
		if err != nil {
			return nil, err
		}
		res := seg.Process(fr)
		report.Frames++
		if res.Utterance != nil {
			addUtterance(res.Utterance)
		}
		if res.Discarded != nil {
			report.Discarded++
		}

		if !res.Speech {
			interrupted = false
			continue
		}
		if interrupted {
			continue
		}
		d := req.BargeIn.Classify(aiInput(req.AIAudio, at, res.SpeechRun))
		// Speech while the AI is quiet is an ordinary turn.
		if d.Verified && d.Reason != bargein.AISilent {
			interrupted = true
			report.BargeIns = append(report.BargeIns, replayBargeIn{
				At:     jsontime.Duration(at),
				Speech: jsontime.Duration(res.SpeechRun),
				Reason: d.Reason.String(),
			})
		}
	}
	if u := seg.Flush(); u != nil {
		addUtterance(u)
	}

	report.Duration = jsontime.Duration(seg.Position())
	report.NoiseFloor = seg.NoiseFloor()
	report.Threshold = seg.Threshold()
	return report, nil
}

// aiInput derives the playback timing at offset at from the AI windows.
func aiInput(windows []aiWindow, at, speech time.Duration) bargein.Input {
	in := bargein.Input{Speech: speech}
	var last time.Duration
	for _, w := range windows {
		if w.Start > at {
			continue
		}
		in.AIAudioSeen = true
		if at < w.End {
			in.PlaybackPending = true
			last = at
			continue
		}
		last = max(last, w.End)
	}
	if in.AIAudioSeen {
		in.SinceLastAIAudio = at - last
	}
	return in
}

func replaySummary(r *replayReport) cli.Summary {
	var voiced time.Duration
	for _, u := range r.Utterances {
		voiced += u.Voiced.Std()
	}
	s := cli.Summary{
		Title: "Replay",
		Rows: []cli.Row{
			{Label: "Audio", Value: r.Audio},
			{Label: "Duration", Value: cli.FormatDuration(r.Duration.Std())},
			{Label: "Frames", Value: fmt.Sprint(r.Frames)},
			{Label: "Threshold", Value: fmt.Sprintf("%.4f (floor %.4f)", r.Threshold, r.NoiseFloor)},
			{Label: "Utterances", Value: fmt.Sprintf("%d (%s voiced)", len(r.Utterances), cli.FormatDuration(voiced))},
			{Label: "Discarded", Value: fmt.Sprint(r.Discarded)},
			{Label: "Barge-ins", Value: fmt.Sprint(len(r.BargeIns))},
		},
	}
	for _, b := range r.BargeIns {
		s.Notes = append(s.Notes, fmt.Sprintf("barge-in at %s after %s (%s)", b.At, b.Speech, b.Reason))
	}
	return s
}
