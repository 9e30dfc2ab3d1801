// Package detection - detector abstraction, label maps and match outcomes
// shared by the detection endpoints.
package detection

import (
	"context"
	"fmt"

	"github.com/nvr-ai/vehicle-vision/images"
)

// Detection is one raw model detection.
type Detection struct {
	// Box is x1, y1, x2, y2 in source image pixels.
	Box [4]float32 `json:"box" yaml:"box"`
	// Confidence is the class score in [0, 1].
	Confidence float32 `json:"confidence" yaml:"confidence"`
	// ClassIndex is the model's class id.
	ClassIndex int `json:"class_index" yaml:"class_index"`
}

func (d Detection) String() string {
	return fmt.Sprintf("class %d (confidence %f): (%f, %f), (%f, %f)",
		d.ClassIndex, d.Confidence, d.Box[0], d.Box[1], d.Box[2], d.Box[3])
}

// Detector runs a detection model over RGB images.
//
// Implementations must accept 3 channel buffers; they may reject others with
// images.ErrUnsupportedChannelLayout. A Detector that holds native resources
// also implements io.Closer.
type Detector interface {
	// Predict returns the detections for one image.
	Predict(ctx context.Context, px *images.PixelBuffer) ([]Detection, error)
	// Names maps the model's class ids to labels.
	Names() Labels
}

// Labeled is a detection with its class id translated to a label.
type Labeled struct {
	Label      string     `json:"label" yaml:"label"`
	Confidence float32    `json:"confidence" yaml:"confidence"`
	Box        [4]float32 `json:"box" yaml:"box"`
}

// Label translates the class ids of dets with labels, keeping order.
//
// Arguments:
//   - dets: The raw detections.
//   - labels: The class id to label map. Unmapped ids become UnknownLabel.
//
// Returns:
//   - []Labeled: One entry per detection.
func Label(dets []Detection, labels Labels) []Labeled {
	out := make([]Labeled, 0, len(dets))
	for _, d := range dets {
		out = append(out, Labeled{
			Label:      labels.Translate(d.ClassIndex),
			Confidence: d.Confidence,
			Box:        d.Box,
		})
	}
	return out
}
