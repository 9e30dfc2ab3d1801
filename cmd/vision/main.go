package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvr-ai/vehicle-vision/codec"
	"github.com/nvr-ai/vehicle-vision/compress"
	"github.com/nvr-ai/vehicle-vision/config"
	"github.com/nvr-ai/vehicle-vision/detection"
	"github.com/nvr-ai/vehicle-vision/detection/yolo"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/nvr-ai/vehicle-vision/logging"
	"github.com/nvr-ai/vehicle-vision/pipeline"
	"github.com/nvr-ai/vehicle-vision/profiler"
	"github.com/nvr-ai/vehicle-vision/service"
	"github.com/nvr-ai/vehicle-vision/util"
	"github.com/nvr-ai/vehicle-vision/watermark"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// DefaultOutputDir is where processed images are written.
	DefaultOutputDir = "output"
	// ServiceName tags every log line.
	ServiceName = "vehicle-vision"
)

// flags holds the command line.
type flags struct {
	envFile      string
	imagePath    string
	dirPath      string
	outputDir    string
	detect       string
	format       string
	targetBytes  int
	noCompress   bool
	useWatermark bool
	randomCorner bool
	seed         int64
	grayscale    bool
	keepAlpha    bool
	thumbnail    string
	profile      bool
}

func main() {
	var f flags
	flag.StringVar(&f.envFile, "env", "", "Path to a .env file with VISION_* settings")
	flag.StringVar(&f.imagePath, "image", "", "Path to an image file")
	flag.StringVar(&f.dirPath, "dir", "", "Path to a directory of image files")
	flag.StringVar(&f.outputDir, "output-dir", DefaultOutputDir, "Output directory for processed images")
	flag.StringVar(&f.detect, "detect", "", "Run a detection endpoint: plate, vehicle or damage")
	flag.StringVar(&f.format, "format", "", "Output format (jpeg, png or webp); defaults to the compression target format")
	flag.IntVar(&f.targetBytes, "target-bytes", 0, "Compression byte budget; overrides VISION_TARGET_BYTES")
	flag.BoolVar(&f.noCompress, "no-compress", false, "Skip the adaptive compressor")
	flag.BoolVar(&f.useWatermark, "watermark", false, "Apply the watermark from VISION_WATERMARK_PATH")
	flag.BoolVar(&f.randomCorner, "random-corner", true, "Place the watermark in a random corner instead of bottom-right")
	flag.Int64Var(&f.seed, "seed", 0, "Seed for watermark placement; 0 uses the clock")
	flag.BoolVar(&f.grayscale, "grayscale", false, "Decode to a single gray channel")
	flag.BoolVar(&f.keepAlpha, "keep-alpha", false, "Keep the source alpha in formats that support it")
	flag.StringVar(&f.thumbnail, "thumbnail", "", "Also write a JPEG thumbnail with this longest side, in pixels or as a preset (720p, 1080p, 4k...)")
	flag.BoolVar(&f.profile, "profile", false, "Report stage timings and memory usage")
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	inputs, err := validateInputFlags(f.imagePath, f.dirPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.envFile)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: ServiceName})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts, err := buildOptions(f, cfg)
	if err != nil {
		return err
	}

	var svc *service.Service
	if f.detect != "" {
		registry, err := buildRegistry(f.detect, cfg, logger)
		if err != nil {
			return err
		}
		if err := registry.Init(ctx); err != nil {
			return err
		}
		defer func() {
			if err := registry.Shutdown(); err != nil {
				logger.Error().Err(err).Msg("registry shutdown failed")
			}
		}()
		svc = service.New(registry, codec.NewDecoder(logger), logger)
	}

	p := pipeline.New(logger)
	files, err := loadInputs(inputs)
	if err != nil {
		return err
	}

	prof := profiler.New(logger, profiler.Options{})
	if f.profile {
		prof.Start(ctx)
		defer func() {
			prof.Stop()
			prof.Report()
		}()
	}

	start := time.Now()
	failed := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := processFile(ctx, p, svc, prof, file, f, opts, logger); err != nil {
			failed++
			logger.Error().Err(err).Str("path", file.Path).Msg("image failed")
		}
	}

	logger.Info().Int("images", len(files)).Int("failed", failed).
		Dur("elapsed", time.Since(start)).Msg("done")
	if failed > 0 {
		return errors.Errorf("%d of %d images failed", failed, len(files))
	}
	return nil
}

func buildOptions(f flags, cfg *config.Config) (pipeline.Options, error) {
	opts := pipeline.Options{Grayscale: f.grayscale, KeepAlpha: f.keepAlpha, Format: cfg.TargetFormat}

	if !f.noCompress {
		target := compress.Target{Bytes: cfg.TargetBytes, Format: cfg.TargetFormat}
		if f.targetBytes > 0 {
			target.Bytes = f.targetBytes
		}
		opts.Target = &target
	}

	if f.format != "" {
		format, ok := images.ParseFormat(f.format)
		if !ok || (format != images.FormatJPEG && format != images.FormatPNG && format != images.FormatWebP) {
			return opts, errors.Errorf("unsupported output format %q", f.format)
		}
		opts.Format = format
	}

	if f.useWatermark {
		if cfg.WatermarkPath == "" {
			return opts, errors.New("-watermark needs VISION_WATERMARK_PATH")
		}
		src, err := watermark.LoadSource(cfg.WatermarkPath)
		if err != nil {
			return opts, err
		}
		var policy watermark.Policy = watermark.BottomRight{}
		if f.randomCorner {
			seed := f.seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			policy = watermark.RandomCorner{Rand: rand.New(rand.NewSource(seed))}
		}
		opts.Watermark = &watermark.Spec{
			Source:     src,
			Margin:     cfg.WatermarkMargin,
			WidthScale: cfg.WatermarkScale,
			Policy:     policy,
		}
	}

	return opts, nil
}

func buildRegistry(endpoint string, cfg *config.Config, logger zerolog.Logger) (*detection.Registry, error) {
	provider, err := yolo.ParseProvider(cfg.ExecutionProvider)
	if err != nil {
		return nil, err
	}
	base := yolo.DefaultConfig()
	base.SharedLibPath = cfg.ONNXLibPath
	base.Provider = provider
	base.InputSize = cfg.InputSize
	base.Confidence = float32(cfg.Confidence)
	base.IoU = float32(cfg.IoU)

	registry := detection.NewRegistry(logger)
	switch endpoint {
	case service.EndpointPlate, service.EndpointVehicle:
		labels := detection.PlateVehicleLabels
		if cfg.PlateLabelsPath != "" {
			if labels, err = detection.LoadLabels(cfg.PlateLabelsPath); err != nil {
				return nil, err
			}
		}
		plate := base
		plate.ModelPath, plate.Labels = cfg.PlateModelPath, labels
		registry.Register(detection.PlateModel, yolo.Factory(plate))
	case service.EndpointDamage:
		labels, err := detection.LoadLabels(cfg.DamageLabelsPath)
		if err != nil {
			return nil, err
		}
		damage := base
		damage.ModelPath, damage.Labels = cfg.DamageModelPath, labels
		registry.Register(detection.DamageModel, yolo.Factory(damage))
	default:
		return nil, errors.Errorf("unknown endpoint %q", endpoint)
	}
	return registry, nil
}

func processFile(
	ctx context.Context,
	p *pipeline.Pipeline,
	svc *service.Service,
	prof *profiler.Profiler,
	file util.ImageFile,
	f flags,
	opts pipeline.Options,
	logger zerolog.Logger,
) error {
	name := strings.TrimSuffix(filepath.Base(file.Path), filepath.Ext(file.Path))

	done := prof.StartOperation("pipeline")
	out, err := p.Process(file.Data, opts)
	done()
	if err != nil {
		return err
	}
	prof.RecordMetric("input_bytes", float64(len(file.Data)))
	prof.RecordMetric("output_bytes", float64(out.Encoded.Len()))
	path, err := util.SaveImageBytes(f.outputDir, name+out.Encoded.Format.Extension(), out.Encoded.Data)
	if err != nil {
		return err
	}
	event := logger.Info().Str("input", file.Path).Str("output", path).Int("bytes", out.Encoded.Len())
	if out.Compression != nil {
		event = event.Int("param", out.Compression.Param).Bool("converged", out.Compression.Converged)
		prof.RecordMetric("compress_iterations", float64(out.Compression.Iterations))
	}
	event.Msg("image written")

	if f.thumbnail != "" {
		maxSide, err := images.ParseMaxSide(f.thumbnail)
		if err != nil {
			return errors.Wrap(err, "thumbnail")
		}
		done := prof.StartOperation("thumbnail")
		err = writeThumbnail(out.Pixels, maxSide, f.outputDir, name)
		done()
		if err != nil {
			return err
		}
	}

	if svc != nil {
		req := service.Request{Image: base64.StdEncoding.EncodeToString(file.Data), Origin: "cli"}
		done := prof.StartOperation("detect")
		outcome, err := svc.Detect(ctx, f.detect, req)
		done()
		if err != nil {
			return err
		}
		report, err := json.Marshal(outcome)
		if err != nil {
			return err
		}
		if _, err := util.SaveImageBytes(f.outputDir, name+"_"+f.detect+".json", report); err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", file.Path, report)
	}

	return nil
}

// writeThumbnail downscales px so its longest side is maxSide and writes it
// as name_thumb.jpg.
func writeThumbnail(px *images.PixelBuffer, maxSide int, dir, name string) error {
	thumb, err := compress.Downscale(px, maxSide, compress.DefaultDownscaleQuality)
	if err != nil {
		return errors.Wrap(err, "thumbnail")
	}
	enc, err := codec.EncodeJPEG(thumb, compress.DefaultDownscaleQuality)
	if err != nil {
		return errors.Wrap(err, "thumbnail")
	}
	_, err = util.SaveImageBytes(dir, name+"_thumb"+enc.Format.Extension(), enc.Data)
	return err
}
