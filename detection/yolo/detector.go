package yolo

import (
	"context"
	"os"
	"sync"

	"github.com/nvr-ai/vehicle-vision/detection"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
)

// Detector runs a YOLOv8 ONNX model. Predict calls are serialized because the
// session's tensors are reused between runs.
type Detector struct {
	mu      sync.Mutex
	cfg     Config
	shape   Output
	session *session
}

var _ detection.Detector = (*Detector)(nil)

// New loads a model and creates its session.
//
// Arguments:
//   - cfg: The detector configuration.
//
// Returns:
//   - *Detector: The detector; Close it to release native resources.
//   - error: ErrAssetMissing when the model or runtime library is absent, or
//     a runtime error.
func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, errors.Wrapf(images.ErrAssetMissing, "model %s", cfg.ModelPath)
	}

	if err := acquireEnvironment(cfg.SharedLibPath); err != nil {
		return nil, err
	}

	shape := Output{Classes: cfg.Labels.Len(), Anchors: Anchors(cfg.InputSize), InputSize: cfg.InputSize}
	s, err := newSession(cfg, shape)
	if err != nil {
		releaseEnvironment()
		return nil, err
	}

	return &Detector{cfg: cfg, shape: shape, session: s}, nil
}

// Factory adapts New to a registry factory.
func Factory(cfg Config) detection.Factory {
	return func(context.Context) (detection.Detector, error) {
		return New(cfg)
	}
}

// Predict runs the model over a 3 channel buffer.
//
// Arguments:
//   - ctx: Checked before inference starts.
//   - px: The RGB image.
//
// Returns:
//   - []detection.Detection: Boxes in px coordinates, highest confidence first.
//   - error: ErrUnsupportedChannelLayout, a closed detector, or a runtime error.
func (d *Detector) Predict(ctx context.Context, px *images.PixelBuffer) ([]detection.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if px == nil || px.Channels != 3 {
		return nil, errors.Wrap(images.ErrUnsupportedChannelLayout, "detector input must be RGB")
	}
	img, err := px.Image()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, errors.New("detector is closed")
	}
	if err := PrepareInput(img, d.cfg.InputSize, d.session.input.GetData()); err != nil {
		return nil, errors.Wrap(err, "prepare input")
	}
	if err := d.session.session.Run(); err != nil {
		return nil, errors.Wrap(err, "run inference")
	}

	return Decode(d.session.output.GetData(), d.shape, px.Width, px.Height, d.cfg.Confidence, d.cfg.IoU)
}

// Names returns the class labels.
func (d *Detector) Names() detection.Labels {
	return d.cfg.Labels
}

// Close releases the session. Subsequent Predict calls fail.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}
	err := d.session.close()
	d.session = nil
	if rerr := releaseEnvironment(); err == nil {
		err = rerr
	}
	return err
}
