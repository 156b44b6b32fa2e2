package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/magicat777/vocal-prime/engine"
	"github.com/magicat777/vocal-prime/logging"
	"github.com/magicat777/vocal-prime/transcode"
)

var (
	analyzeChunkMS int
	analyzeGainDB  float64
	analyzePerHop  bool
)

// analysisReport is the offline analysis output, either a final snapshot
// summary or every per-hop snapshot
type analysisReport struct {
	File       string             `json:"file" yaml:"file"`
	SampleRate int                `json:"sample_rate" yaml:"sample_rate"`
	Channels   int                `json:"channels" yaml:"channels"`
	DurationMS float64            `json:"duration_ms" yaml:"duration_ms"`
	Hops       int                `json:"hops" yaml:"hops"`
	Final      *engine.Snapshot   `json:"final,omitempty" yaml:"final,omitempty"`
	PerHop     []*engine.Snapshot `json:"per_hop,omitempty" yaml:"per_hop,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.wav>",
	Short: "Run the analysis engine over a local audio file",
	Long: `Decodes a WAV file and feeds it through the engine in fixed-size
chunks, exactly as a live capture source would, then reports the analysis
output as JSON or YAML.

By default only the final snapshot is reported; --per-hop emits every
voice-hop snapshot for offline inspection of pitch and vibrato contours.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeChunkMS, "chunk-ms", 10,
		"feed size in milliseconds, emulating capture callback cadence")
	analyzeCmd.Flags().Float64Var(&analyzeGainDB, "gain-db", 0,
		"spectrum display gain in dB (clamped to the configured range)")
	analyzeCmd.Flags().BoolVar(&analyzePerHop, "per-hop", false,
		"report every voice-hop snapshot instead of only the final one")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.WithFields(logging.Fields{"command": "analyze"})

	decoder := transcode.NewDecoder()
	audio, err := decoder.DecodeFile(args[0])
	if err != nil {
		return err
	}

	if audio.SampleRate != cfg.Audio.SampleRate {
		logger.Warn("file sample rate differs from engine configuration", logging.Fields{
			"file_rate":   audio.SampleRate,
			"engine_rate": cfg.Audio.SampleRate,
		})
		cfg.Audio.SampleRate = audio.SampleRate
	}

	eng, err := engine.NewEngine(cfg)
	if err != nil {
		return err
	}

	report := &analysisReport{
		File:       args[0],
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
		DurationMS: float64(audio.Duration.Microseconds()) / 1000.0,
	}

	if analyzePerHop {
		eng.SetOnHop(func(snap *engine.Snapshot) {
			// Spectrum bars dominate payload size; per-hop output is about
			// pitch/vibrato/quality contours
			snap.Spectrum.Bars = nil
			report.PerHop = append(report.PerHop, snap)
			report.Hops++
		})
	} else {
		eng.SetOnHop(func(snap *engine.Snapshot) {
			report.Hops++
		})
	}

	eng.StartCapture()
	eng.SetSpectrumGain(analyzeGainDB)

	stereo := audio.ToStereo()
	chunkFrames := audio.SampleRate * analyzeChunkMS / 1000
	if chunkFrames < 1 {
		chunkFrames = 1
	}
	for start := 0; start < len(stereo); start += chunkFrames * 2 {
		end := start + chunkFrames*2
		if end > len(stereo) {
			end = len(stereo)
		}
		eng.ProcessAudio(stereo[start:end])
	}

	if !analyzePerHop {
		report.Final = eng.Snapshot()
	}

	logger.Debug("analysis complete", logging.Fields{
		"hops":   report.Hops,
		"frames": audio.Frames(),
	})

	return writeReport(report)
}

func writeReport(report *analysisReport) error {
	switch outputFormat {
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(report)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}
