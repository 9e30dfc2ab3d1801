package yolo

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// SharedLibPath returns the default ONNX Runtime library location for the
// current platform.
//
// Returns:
//   - string: The path to the shared library.
//   - error: An error for platforms without a bundled library.
func SharedLibPath() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "./third_party/onnxruntime.dll", nil
		}
	case "darwin":
		return "./third_party/libonnxruntime.1.21.0.dylib", nil
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", fmt.Errorf("no onnxruntime library for %s/%s", runtime.GOOS, runtime.GOARCH)
}

// The ONNX Runtime environment is process-wide; detectors share it and the
// last one to close tears it down.
var env struct {
	sync.Mutex
	refs int
}

func acquireEnvironment(libPath string) error {
	env.Lock()
	defer env.Unlock()

	if env.refs == 0 && !ort.IsInitialized() {
		if libPath == "" {
			var err error
			if libPath, err = SharedLibPath(); err != nil {
				return err
			}
		}
		if _, err := os.Stat(libPath); os.IsNotExist(err) {
			return errors.Wrapf(images.ErrAssetMissing, "onnxruntime library %s", libPath)
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return errors.Wrap(err, "initialize onnxruntime environment")
		}
	}
	env.refs++
	return nil
}

func releaseEnvironment() error {
	env.Lock()
	defer env.Unlock()

	if env.refs == 0 {
		return nil
	}
	env.refs--
	if env.refs == 0 && ort.IsInitialized() {
		return ort.DestroyEnvironment()
	}
	return nil
}

// appendProvider enables the configured execution provider on options.
// The CPU provider is always available and needs no setup.
func appendProvider(options *ort.SessionOptions, provider ExecutionProvider) error {
	switch provider {
	case ProviderCPU, "":
		return nil
	case ProviderCUDA:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return errors.Wrap(err, "create CUDA provider options")
		}
		defer cuda.Destroy()
		if err := cuda.Update(map[string]string{"device_id": "0"}); err != nil {
			return errors.Wrap(err, "update CUDA provider options")
		}
		return errors.Wrap(options.AppendExecutionProviderCUDA(cuda), "enable CUDA")
	case ProviderCoreML:
		return errors.Wrap(options.AppendExecutionProviderCoreML(0), "enable CoreML")
	case ProviderOpenVINO:
		return errors.Wrap(options.AppendExecutionProviderOpenVINO(map[string]string{
			"device_type": "CPU",
			"precision":   "FP32",
		}), "enable OpenVINO")
	default:
		return fmt.Errorf("unsupported execution provider: %q", provider)
	}
}

// session holds a model session and its bound tensors.
type session struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func newSession(cfg Config, shape Output) (*session, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(cfg.InputSize), int64(cfg.InputSize)))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+shape.Classes), int64(shape.Anchors)))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	s := &session{input: input, output: output}

	options, err := ort.NewSessionOptions()
	if err != nil {
		s.close()
		return nil, errors.Wrap(err, "create session options")
	}
	defer options.Destroy()

	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			s.close()
			return nil, errors.Wrap(err, "set intra-op threads")
		}
	}
	if cfg.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
			s.close()
			return nil, errors.Wrap(err, "set inter-op threads")
		}
	}
	if err := appendProvider(options, cfg.Provider); err != nil {
		s.close()
		return nil, err
	}

	s.session, err = ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		s.close()
		return nil, errors.Wrapf(err, "create session for %s", cfg.ModelPath)
	}
	return s, nil
}

// close releases the session and tensors. It is safe to call more than once.
func (s *session) close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if s.session != nil {
		keep(s.session.Destroy())
		s.session = nil
	}
	if s.input != nil {
		keep(s.input.Destroy())
		s.input = nil
	}
	if s.output != nil {
		keep(s.output.Destroy())
		s.output = nil
	}
	return first
}
