package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/menta2k/brafit"
	"github.com/menta2k/brafit/internal/config"
	"github.com/menta2k/brafit/internal/logging"
	"github.com/menta2k/brafit/internal/utils"
	"github.com/menta2k/brafit/pkg/anthropometry"
	"github.com/menta2k/brafit/pkg/client"
	"github.com/menta2k/brafit/pkg/landmark"
	"github.com/menta2k/brafit/pkg/llamacpp"
	"github.com/menta2k/brafit/pkg/ollama"
	"github.com/menta2k/brafit/pkg/processing"
	"github.com/menta2k/brafit/pkg/types"
)

type options struct {
	front, side   string
	weeks         float64
	band          int
	refKind       string
	refCM         float64
	configPath    string
	writeConfig   string
	backend       string
	url           string
	model         string
	logLevel      string
	out           string
	debugDir      string
	debugFormat   string
	debugQuality  int
	explicitFlags map[string]bool
}

func main() {
	var o options
	flag.StringVar(&o.front, "front", "", "front photo (path or URL) or landmark JSON file")
	flag.StringVar(&o.side, "side", "", "side photo (path or URL) or landmark JSON file")
	flag.Float64Var(&o.weeks, "weeks", 0, "weeks since delivery (required)")
	flag.IntVar(&o.band, "band", 0, "band size, e.g. 34 (0 = descriptor only)")
	flag.StringVar(&o.refKind, "ref-kind", "", "reference measurement: height|shoulder_width|torso_length|band (band uses -band unless -ref-cm gives the underbust girth)")
	flag.Float64Var(&o.refCM, "ref-cm", 0, "reference measurement in centimeters")
	flag.StringVar(&o.configPath, "config", "", "config file (default "+config.GetConfigPath()+" when present)")
	flag.StringVar(&o.writeConfig, "write-config", "", "write the effective config to this path and exit")
	flag.StringVar(&o.backend, "backend", "", "vision backend: ollama or llamacpp")
	flag.StringVar(&o.url, "url", "", "vision server URL")
	flag.StringVar(&o.model, "model", "", "vision model name")
	flag.StringVar(&o.logLevel, "log-level", "", "log level: debug|info|warn|error")
	flag.StringVar(&o.out, "out", "", "write the JSON report here instead of stdout")
	flag.StringVar(&o.debugDir, "debug-dir", "", "write landmark overlay images to this directory")
	flag.StringVar(&o.debugFormat, "dbgext", "png", "debug overlay format: png|jpg|webp")
	flag.IntVar(&o.debugQuality, "dbgquality", 92, "debug overlay quality (for jpg/webp)")
	flag.Parse()

	o.explicitFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { o.explicitFlags[f.Name] = true })

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if o.writeConfig != "" {
		if err := cfg.SaveToFile(o.writeConfig); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", o.writeConfig)
		return
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if o.front == "" || o.side == "" || !o.explicitFlags["weeks"] {
		logger.Fatalf("usage: %s -front front.jpg|front.json -side side.jpg|side.json -weeks N [-band 34] [-ref-kind height -ref-cm 165] [-backend ollama|llamacpp] [-url server_url] [-model name]",
			filepath.Base(os.Args[0]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, cfg, logger); err != nil {
		logger.WithError(err).Fatal("sizing failed")
	}
}

func loadConfig(o options) (*config.Config, error) {
	path := o.configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if o.explicitFlags["backend"] {
		cfg.Detector.Backend = o.backend
		if !o.explicitFlags["url"] {
			cfg.Detector.URL = defaultURL(o.backend)
		}
	}
	if o.explicitFlags["url"] {
		cfg.Detector.URL = o.url
	}
	if o.explicitFlags["model"] {
		cfg.Detector.Model = o.model
	}
	if o.explicitFlags["log-level"] {
		cfg.Log.Level = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, o options, cfg *config.Config, logger *logrus.Logger) error {
	table, err := cfg.Table()
	if err != nil {
		return err
	}

	photos := !utils.IsLandmarkFile(o.front) || !utils.IsLandmarkFile(o.side)
	if photos && (utils.IsLandmarkFile(o.front) || utils.IsLandmarkFile(o.side)) {
		return fmt.Errorf("front and side must both be photos or both be landmark JSON files")
	}

	if photos {
		for _, path := range []string{o.front, o.side} {
			if !utils.IsURL(path) && !utils.IsImageFile(path) {
				return fmt.Errorf("unsupported photo %q: expected an image file, a URL or a landmark .json export", path)
			}
		}
	}

	photoCfg := cfg.Processing()
	opts := brafit.Options{
		Policy: &cfg.Policy,
		Table:  table,
		Photo:  &photoCfg,
		Logger: logger,
	}
	if photos {
		vc, err := newVisionClient(cfg.Detector)
		if err != nil {
			return err
		}
		opts.Client = vc
		opts.Model = cfg.Detector.Model
	}

	sizer, err := brafit.NewWithConfig(opts)
	if err != nil {
		return err
	}

	in := brafit.Input{
		PostpartumWeeks: o.weeks,
		BandSize:        o.band,
	}
	if o.refKind != "" || o.refCM != 0 {
		in.Reference = &anthropometry.ReferenceScale{Kind: anthropometry.ReferenceKind(o.refKind), CM: o.refCM}
	}

	var report brafit.Report
	if photos {
		if cfg.Detector.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Detector.Timeout)
			defer cancel()
		}

		processor := processing.NewProcessorWithConfig(photoCfg)
		front, err := processor.LoadImageSmart(o.front)
		if err != nil {
			return fmt.Errorf("failed to load front photo: %w", err)
		}
		side, err := processor.LoadImageSmart(o.side)
		if err != nil {
			return fmt.Errorf("failed to load side photo: %w", err)
		}

		report, err = sizer.EstimateFromPhotos(ctx, front, side, in)
		if err != nil {
			return err
		}
		if o.debugDir != "" {
			writeOverlays(sizer, o, logger, report, map[types.Photo]image.Image{types.Front: front, types.Side: side})
		}
	} else {
		front, err := readLandmarks(o.front)
		if err != nil {
			return err
		}
		side, err := readLandmarks(o.side)
		if err != nil {
			return err
		}
		in.FrontAspect, in.SideAspect = 1, 1
		report, err = sizer.EstimateFromLandmarks(ctx, front, side, in)
		if err != nil {
			return err
		}
	}

	return writeReport(o.out, report)
}

func newVisionClient(cfg config.DetectorConfig) (client.VisionClient, error) {
	switch cfg.Backend {
	case "ollama":
		c, err := ollama.NewClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case "llamacpp":
		c, err := llamacpp.NewClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", cfg.Backend)
	}
}

func defaultURL(backend string) string {
	if backend == "ollama" {
		return "http://localhost:11434"
	}
	return llamacpp.DefaultURL
}

func readLandmarks(path string) ([]landmark.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open landmark file: %w", err)
	}
	defer f.Close()

	raws, err := landmark.ParseJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raws, nil
}

func writeOverlays(sizer *brafit.Sizer, o options, logger *logrus.Logger, report brafit.Report, imgs map[types.Photo]image.Image) {
	if err := utils.EnsureDir(o.debugDir); err != nil {
		logger.WithError(err).Warn("debug directory unavailable")
		return
	}

	sources := map[types.Photo]string{types.Front: o.front, types.Side: o.side}
	raws := map[types.Photo][]landmark.Raw{types.Front: report.FrontLandmarks, types.Side: report.SideLandmarks}
	for photo, img := range imgs {
		overlay := sizer.DebugOverlay(img, photo, raws[photo])
		path := utils.GenerateOutputFilename(sources[photo], o.debugDir, shortID(report.RequestID)+"_", "_landmarks", o.debugFormat)
		if err := sizer.SaveImage(overlay, path, o.debugFormat, o.debugQuality); err != nil {
			logger.WithError(err).Warnf("debug overlay save failed: %s", path)
			continue
		}
		logger.Infof("wrote %s", path)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeReport(path string, report brafit.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
