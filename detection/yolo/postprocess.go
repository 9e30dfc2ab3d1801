package yolo

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/vehicle-vision/detection"
)

// Output describes a YOLOv8 output tensor of shape 1 x (4+Classes) x Anchors.
type Output struct {
	Classes   int
	Anchors   int
	InputSize int
}

// Decode converts raw output rows into detections in source image pixels.
//
// For each anchor the best class score is taken; anchors below confidence are
// dropped. Boxes are center/size in input pixels and are scaled back to the
// source dimensions, clamped to the image, then merged with class-aware NMS.
//
// Arguments:
//   - data: The flattened output tensor.
//   - shape: The tensor layout.
//   - srcWidth, srcHeight: The source image dimensions.
//   - confidence: The minimum class score.
//   - iou: The NMS overlap threshold.
//
// Returns:
//   - []detection.Detection: The detections, highest confidence first.
//   - error: An error if data does not match shape.
func Decode(data []float32, shape Output, srcWidth, srcHeight int, confidence, iou float32) ([]detection.Detection, error) {
	n := shape.Anchors
	if want := (4 + shape.Classes) * n; len(data) < want {
		return nil, fmt.Errorf("output holds %d floats, needs %d", len(data), want)
	}

	sx := float32(srcWidth) / float32(shape.InputSize)
	sy := float32(srcHeight) / float32(shape.InputSize)
	maxX, maxY := float32(srcWidth), float32(srcHeight)

	var candidates []detection.Detection
	for idx := 0; idx < n; idx++ {
		classID, probability := 0, float32(-1e9)
		for col := 0; col < shape.Classes; col++ {
			if p := data[n*(col+4)+idx]; p > probability {
				probability, classID = p, col
			}
		}
		if probability < confidence {
			continue
		}

		xc, yc := data[idx], data[n+idx]
		w, h := data[2*n+idx], data[3*n+idx]
		candidates = append(candidates, detection.Detection{
			Box: [4]float32{
				clamp((xc-w/2)*sx, maxX),
				clamp((yc-h/2)*sy, maxY),
				clamp((xc+w/2)*sx, maxX),
				clamp((yc+h/2)*sy, maxY),
			},
			Confidence: probability,
			ClassIndex: classID,
		})
	}

	return detection.NMS(candidates, detection.NMSConfig{IoUThreshold: iou, ClassAware: true}), nil
}

func clamp(v, hi float32) float32 {
	return math32.Min(math32.Max(v, 0), hi)
}
