package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haivivi/antispoof/pkg/antispoof"
	"github.com/haivivi/antispoof/pkg/audio/decode"
	"github.com/haivivi/antispoof/pkg/cli"
	"github.com/haivivi/antispoof/pkg/onnx"
)

var (
	predictModel    string
	predictORTLib   string
	predictInput    string
	predictOutput   string
	predictSeed     uint64
	predictNoFFmpeg bool
	predictFFmpeg   string
)

// testModelOverride replaces the ONNX classifier in tests.
var testModelOverride antispoof.Model

var predictCmd = &cobra.Command{
	Use:   "predict FILE...",
	Short: "Classify audio files",
	Long: `Run the anti-spoofing pipeline on each file and print one row per channel.

A file that cannot be decoded or classified is reported and the remaining
files are still processed; the command exits non-zero if any file failed.

The ONNX Runtime shared library is taken from --ort-lib, then the
ANTISPOOF_ORT_LIB environment variable, then the platform default.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPredict,
}

func init() {
	f := predictCmd.Flags()
	f.StringVar(&predictModel, "model", "weights/model.onnx", "path to the ONNX model")
	f.StringVar(&predictORTLib, "ort-lib", "", "path to the ONNX Runtime shared library")
	f.StringVar(&predictInput, "input-name", onnx.DefaultInputName, "model input tensor name")
	f.StringVar(&predictOutput, "output-name", onnx.DefaultOutputName, "model output tensor name")
	f.Uint64Var(&predictSeed, "seed", 0, "seed for segment offsets (random when unset)")
	f.BoolVar(&predictNoFFmpeg, "no-ffmpeg", false, "decode with the built-in decoders only")
	f.StringVar(&predictFFmpeg, "ffmpeg", "", "path to the ffmpeg executable")
	rootCmd.AddCommand(predictCmd)
}

// predictReport is the command output.
type predictReport struct {
	Files []filePrediction `json:"files"`
}

type filePrediction struct {
	File    string                    `json:"file"`
	Results []antispoof.ChannelResult `json:"results,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

func (r predictReport) failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Error != "" {
			n++
		}
	}
	return n
}

// Table implements cli.Tabler.
func (r predictReport) Table() cli.Table {
	t := cli.Table{Headers: []string{"FILE", "CHANNEL", "PREDICTION", "CONFIDENCE", "FAKE", "REAL"}}
	for _, f := range r.Files {
		if f.Error != "" {
			t.Rows = append(t.Rows, []string{f.File, "-", "ERROR", f.Error, "", ""})
			continue
		}
		for _, res := range f.Results {
			t.Rows = append(t.Rows, []string{
				f.File,
				strconv.Itoa(res.Channel),
				string(res.Label),
				cli.FormatPercent(res.Confidence),
				cli.FormatProb(res.FakeProb),
				cli.FormatProb(res.RealProb),
			})
		}
	}
	return t
}

func runPredict(cmd *cobra.Command, args []string) error {
	opts, err := outputOptions()
	if err != nil {
		return err
	}
	logger := cliLogger()

	model := testModelOverride
	if model == nil {
		lib := predictORTLib
		if lib == "" {
			lib = os.Getenv("ANTISPOOF_ORT_LIB")
		}
		c, err := onnx.Open(onnx.Config{
			Path:              predictModel,
			SharedLibraryPath: lib,
			InputName:         predictInput,
			OutputName:        predictOutput,
		})
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}
		defer func() {
			c.Close()
			onnx.Shutdown()
		}()
		model = c
	}

	decoders := []decode.Decoder{decode.NewNative()}
	if !predictNoFFmpeg {
		decoders = append([]decode.Decoder{&decode.FFmpeg{FFmpegPath: predictFFmpeg}}, decoders...)
	}
	loader := decode.NewLoader(decode.WithDecoders(decoders...), decode.WithLogger(logger))

	engineOpts := []antispoof.Option{antispoof.WithLoader(loader), antispoof.WithLogger(logger)}
	if cmd.Flags().Changed("seed") {
		engineOpts = append(engineOpts, antispoof.WithSeed(predictSeed))
	}
	engine := antispoof.NewEngine(model, engineOpts...)

	ctx := cmd.Context()
	var report predictReport
	for _, path := range args {
		fp := filePrediction{File: filepath.Base(path)}
		results, err := engine.PredictFile(ctx, path)
		if err != nil {
			logger.Debug("prediction failed", "file", path, "error", err)
			fp.Error = err.Error()
		} else {
			fp.Results = results
		}
		report.Files = append(report.Files, fp)
	}

	if err := cli.Output(report, opts); err != nil {
		return err
	}
	if n := report.failed(); n > 0 {
		return fmt.Errorf("%d of %d files failed", n, len(args))
	}
	return nil
}
