// Package config - environment based configuration of the vision service.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
)

// Config holds every runtime setting.
type Config struct {
	// Log level name (debug, info, warn, error).
	LogLevel string `json:"logLevel" yaml:"logLevel"`
	// Human readable console logs instead of JSON.
	LogPretty bool `json:"logPretty" yaml:"logPretty"`

	// Watermark image file; empty disables watermarking.
	WatermarkPath string `json:"watermarkPath" yaml:"watermarkPath"`
	// Watermark inset from the image edges, in pixels.
	WatermarkMargin int `json:"watermarkMargin" yaml:"watermarkMargin"`
	// Watermark width relative to the image width.
	WatermarkScale float64 `json:"watermarkScale" yaml:"watermarkScale"`

	// Compression byte budget.
	TargetBytes int `json:"targetBytes" yaml:"targetBytes"`
	// Compression output format (jpeg or png).
	TargetFormat images.ImageFormat `json:"targetFormat" yaml:"targetFormat"`

	// Plate/vehicle model and optional label file (the static plate/vehicle
	// map is used when empty).
	PlateModelPath  string `json:"plateModelPath" yaml:"plateModelPath"`
	PlateLabelsPath string `json:"plateLabelsPath" yaml:"plateLabelsPath"`
	// Damage model and its label file.
	DamageModelPath  string `json:"damageModelPath" yaml:"damageModelPath"`
	DamageLabelsPath string `json:"damageLabelsPath" yaml:"damageLabelsPath"`

	// ONNX Runtime shared library; empty uses the platform default.
	ONNXLibPath string `json:"onnxLibPath" yaml:"onnxLibPath"`
	// Execution provider (cpu, cuda, coreml, openvino).
	ExecutionProvider string `json:"executionProvider" yaml:"executionProvider"`
	// Detection thresholds and model input size.
	Confidence float64 `json:"confidence" yaml:"confidence"`
	IoU        float64 `json:"iou" yaml:"iou"`
	InputSize  int     `json:"inputSize" yaml:"inputSize"`
}

// Load reads the configuration from the environment. When envFile is not
// empty it is loaded first; variables already set in the environment win.
//
// Arguments:
//   - envFile: Optional .env file path.
//
// Returns:
//   - *Config: The configuration with defaults applied.
//   - error: An error if envFile cannot be read or a value is malformed.
//
// Example:
//
// ```go
//
//	cfg, err := config.Load(".env")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// ```
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrapf(err, "load %s", envFile)
		}
	}

	var p parser
	cfg := &Config{
		LogLevel:          getEnv("VISION_LOG_LEVEL", "info"),
		LogPretty:         p.bool("VISION_LOG_PRETTY", false),
		WatermarkPath:     getEnv("VISION_WATERMARK_PATH", ""),
		WatermarkMargin:   p.int("VISION_WATERMARK_MARGIN", 20),
		WatermarkScale:    p.float("VISION_WATERMARK_SCALE", 0.3),
		TargetBytes:       p.int("VISION_TARGET_BYTES", 1<<20),
		PlateModelPath:    getEnv("VISION_PLATE_MODEL_PATH", "models/licence_plate_detector.onnx"),
		PlateLabelsPath:   getEnv("VISION_PLATE_LABELS_PATH", ""),
		DamageModelPath:   getEnv("VISION_DAMAGE_MODEL_PATH", "models/vehicle_damage.onnx"),
		DamageLabelsPath:  getEnv("VISION_DAMAGE_LABELS_PATH", "models/vehicle_damage.txt"),
		ONNXLibPath:       getEnv("VISION_ONNX_LIB_PATH", ""),
		ExecutionProvider: getEnv("VISION_EXECUTION_PROVIDER", "cpu"),
		Confidence:        p.float("VISION_CONFIDENCE", 0.25),
		IoU:               p.float("VISION_IOU", 0.7),
		InputSize:         p.int("VISION_INPUT_SIZE", 640),
	}

	format := getEnv("VISION_TARGET_FORMAT", "jpeg")
	if f, ok := images.ParseFormat(format); ok && (f == images.FormatJPEG || f == images.FormatPNG) {
		cfg.TargetFormat = f
	} else if p.err == nil {
		p.err = errors.Errorf("VISION_TARGET_FORMAT: unsupported format %q", format)
	}

	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser reads typed variables and keeps the first parse error.
type parser struct {
	err error
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value)
		return defaultValue
	}
	return v
}

func (p *parser) float(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(key, value)
		return defaultValue
	}
	return v
}

func (p *parser) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value)
		return defaultValue
	}
	return v
}

func (p *parser) fail(key, value string) {
	if p.err == nil {
		p.err = errors.Errorf("%s: invalid value %q", key, value)
	}
}
