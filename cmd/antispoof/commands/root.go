package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/antispoof/pkg/cli"
)

var (
	// Global flags
	verbose      bool
	formatOutput string
	outputFile   string
)

var rootCmd = &cobra.Command{
	Use:   "antispoof",
	Short: "Detect synthetic speech in audio recordings",
	Long: `antispoof - classify speech as genuine (REAL) or synthetic (FAKE).

Each channel of a recording is scored independently by a pretrained ONNX
classifier. Audio is decoded with ffmpeg when available and with built-in
WAV, MP3 and FLAC decoders otherwise, then resampled to 16 kHz.

Examples:
  # Classify a few files with a pinned segment offset
  antispoof predict --model weights/model.onnx --seed 7 call.wav memo.mp3

  # Run the HTTP API
  antispoof serve -c config.yaml

  # Show the last predictions made by the server
  antispoof history list --db data/history`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "table", "output format: table, yaml, json")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write output to file instead of stdout")
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

func outputOptions() (cli.OutputOptions, error) {
	f, err := cli.ParseFormat(formatOutput)
	if err != nil {
		return cli.OutputOptions{}, err
	}
	return cli.OutputOptions{Format: f, File: outputFile}, nil
}
