// Package yolo - YOLOv8 detectors on ONNX Runtime.
package yolo

import (
	"fmt"
	"strings"

	"github.com/nvr-ai/vehicle-vision/detection"
)

// ExecutionProvider selects the ONNX Runtime backend.
type ExecutionProvider string

const (
	ProviderCPU      ExecutionProvider = "cpu"
	ProviderCUDA     ExecutionProvider = "cuda"
	ProviderCoreML   ExecutionProvider = "coreml"
	ProviderOpenVINO ExecutionProvider = "openvino"
)

// ParseProvider maps a configuration value to an ExecutionProvider. Empty
// selects the CPU.
func ParseProvider(s string) (ExecutionProvider, error) {
	switch p := ExecutionProvider(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProviderCPU, nil
	case ProviderCPU, ProviderCUDA, ProviderCoreML, ProviderOpenVINO:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported execution provider: %q", s)
	}
}

// Config configures one detector.
type Config struct {
	// The ONNX model file.
	ModelPath string `json:"modelPath" yaml:"modelPath"`
	// The ONNX Runtime shared library. Empty uses SharedLibPath().
	SharedLibPath string `json:"sharedLibPath" yaml:"sharedLibPath"`
	// The execution provider.
	Provider ExecutionProvider `json:"provider" yaml:"provider"`
	// The square model input size (640 for stock YOLOv8).
	InputSize int `json:"inputSize" yaml:"inputSize"`
	// The class labels. Their count fixes the output tensor shape.
	Labels detection.Labels `json:"-" yaml:"-"`
	// Minimum class score to keep a candidate.
	Confidence float32 `json:"confidence" yaml:"confidence"`
	// IoU above which overlapping candidates of the same class are merged.
	IoU float32 `json:"iou" yaml:"iou"`
	// Intra-op and inter-op thread counts; 0 lets ONNX Runtime decide.
	IntraOpThreads int `json:"intraOpThreads" yaml:"intraOpThreads"`
	InterOpThreads int `json:"interOpThreads" yaml:"interOpThreads"`
}

// DefaultConfig returns the stock YOLOv8 settings.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderCPU,
		InputSize:  640,
		Confidence: 0.25,
		IoU:        0.7,
	}
}

// Validate checks the settings that determine tensor shapes.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("model path is empty")
	}
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		return fmt.Errorf("input size %d is not a positive multiple of 32", c.InputSize)
	}
	if c.Labels.Len() == 0 {
		return fmt.Errorf("no class labels for %s", c.ModelPath)
	}
	if c.Confidence < 0 || c.Confidence > 1 || c.IoU < 0 || c.IoU > 1 {
		return fmt.Errorf("thresholds out of range: confidence=%v iou=%v", c.Confidence, c.IoU)
	}
	return nil
}

// Anchors returns the number of candidate boxes a YOLOv8 head emits for a
// square input: one per cell of the stride 8, 16 and 32 grids.
func Anchors(inputSize int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		cells := inputSize / stride
		n += cells * cells
	}
	return n
}
