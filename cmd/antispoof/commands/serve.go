package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haivivi/antispoof/cmd/antispoof/internal/build"
	"github.com/haivivi/antispoof/cmd/antispoof/internal/config"
	"github.com/haivivi/antispoof/cmd/antispoof/internal/server"
	"github.com/haivivi/antispoof/pkg/antispoof"
	"github.com/haivivi/antispoof/pkg/audio/decode"
	"github.com/haivivi/antispoof/pkg/audio/resampler"
	"github.com/haivivi/antispoof/pkg/cli"
	"github.com/haivivi/antispoof/pkg/history"
	"github.com/haivivi/antispoof/pkg/metrics"
	"github.com/haivivi/antispoof/pkg/onnx"
	"github.com/haivivi/antispoof/pkg/storage"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the anti-spoofing HTTP API.

Settings come from the YAML file given with -c; fields left out keep their
defaults. A .env file in the working directory is loaded first, so archive
credentials can be supplied as ANTISPOOF_S3_ACCESS_KEY and
ANTISPOOF_S3_SECRET_KEY.

If the model cannot be loaded the server still starts and reports itself
degraded on /health. With model.watch enabled the model is loaded as soon
as the file appears or changes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "path to config file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("antispoof starting",
		"version", build.Version,
		"config", serveConfigPath,
		"model", cfg.Model.Path,
		"max_upload", cli.FormatBytes(cfg.Server.MaxUploadBytes),
		"history", cfg.History.Enabled,
		"archive", cfg.Storage.Archive.Enabled,
	)

	if a.watcher != nil {
		go func() {
			if err := a.watcher.Run(ctx); err != nil {
				logger.Error("model watcher stopped", "error", err)
			}
		}()
	}
	return a.server.Run(ctx)
}

// app is the wired service.
type app struct {
	server  *server.Server
	model   *antispoof.SwapModel
	watcher *onnx.Watcher
	history history.Store
	onnx    bool
}

func newApp(cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	modelCfg := onnx.Config{
		Path:              cfg.Model.Path,
		SharedLibraryPath: cfg.Model.SharedLibrary,
		InputName:         cfg.Model.InputName,
		OutputName:        cfg.Model.OutputName,
	}
	a.model = antispoof.NewSwapModel(nil)
	if testModelOverride != nil {
		a.model.Swap(testModelOverride)
	} else {
		a.onnx = true
		if c, err := onnx.OpenModel(modelCfg); err != nil {
			logger.Error("model not loaded, serving degraded", "path", cfg.Model.Path, "error", err)
		} else {
			a.model.Swap(c)
			logger.Info("model loaded", "path", cfg.Model.Path)
		}
		if cfg.Model.Watch {
			a.watcher = &onnx.Watcher{
				Config: modelCfg,
				Model:  a.model,
				Logger: logger.With("component", "model"),
				OnReload: func(error) {
					if m != nil {
						m.SetModelLoaded(a.model.Loaded())
					}
				},
			}
		}
	}
	if m != nil {
		m.SetModelLoaded(a.model.Loaded())
	}

	staging, err := storage.NewLocal(cfg.Storage.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("staging dir: %w", err)
	}

	var archive storage.FileStore
	if ac := cfg.Storage.Archive; ac.Enabled {
		client, err := storage.NewS3Client(storage.S3Config{
			Region:    ac.Region,
			Endpoint:  ac.Endpoint,
			AccessKey: ac.AccessKey,
			SecretKey: ac.SecretKey,
			PathStyle: ac.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		archive = storage.NewS3(client, ac.Bucket, ac.Prefix)
		logger.Info("archiving uploads", "bucket", ac.Bucket, "prefix", ac.Prefix)
	}

	if cfg.History.Enabled {
		db, err := history.NewBadger(history.BadgerOptions{Dir: cfg.History.Dir, Logger: logger})
		if err != nil {
			return nil, err
		}
		a.history = db
	}

	loader := newServeLoader(cfg.Decode, staging.Root(), logger)
	engineOpts := []antispoof.Option{antispoof.WithLoader(loader), antispoof.WithLogger(logger)}
	if cfg.Model.Seed != nil {
		engineOpts = append(engineOpts, antispoof.WithSeed(*cfg.Model.Seed))
	}

	deps := server.Deps{
		Engine:  antispoof.NewEngine(a.model, engineOpts...),
		Loader:  loader,
		Model:   a.model,
		Staging: staging,
		Archive: archive,
		History: a.history,
		Metrics: m,
		Logger:  logger,
	}
	a.server, err = server.New(server.Config{
		Address:           cfg.Server.Address,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		MaxUploadBytes:    cfg.Server.MaxUploadBytes,
		AllowedExtensions: cfg.Server.AllowedExtensions,
		MaxFileAge:        cfg.Storage.MaxFileAge,
		CleanupInterval:   cfg.Storage.CleanupInterval,
	}, deps)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newServeLoader(cfg config.DecodeConfig, tempDir string, logger *slog.Logger) *decode.Loader {
	var decoders []decode.Decoder
	if !cfg.DisableFFmpeg {
		decoders = append(decoders, &decode.FFmpeg{FFmpegPath: cfg.FFmpegPath, FFprobePath: cfg.FFprobePath})
	}
	if !cfg.DisableNative {
		decoders = append(decoders, decode.NewNative())
	}
	q := resampler.QualityHigh
	switch cfg.ResampleQuality {
	case "medium":
		q = resampler.QualityMedium
	case "very_high":
		q = resampler.QualityVeryHigh
	}
	return decode.NewLoader(
		decode.WithDecoders(decoders...),
		decode.WithQuality(q),
		decode.WithTempDir(tempDir),
		decode.WithLogger(logger.With("component", "decode")),
	)
}

// Close releases the model and the history store.
func (a *app) Close() error {
	var errs []error
	if a.model != nil {
		errs = append(errs, a.model.Close())
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	if a.onnx {
		errs = append(errs, onnx.Shutdown())
	}
	return errors.Join(errs...)
}
