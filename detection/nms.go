package detection

import (
	"sort"

	"github.com/chewxy/math32"
)

// IoU returns the intersection over union of two x1, y1, x2, y2 boxes.
// Degenerate or disjoint boxes yield 0.
func IoU(a, b [4]float32) float32 {
	iw := math32.Min(a[2], b[2]) - math32.Max(a[0], b[0])
	ih := math32.Min(a[3], b[3]) - math32.Max(a[1], b[1])
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func area(b [4]float32) float32 {
	return math32.Max(b[2]-b[0], 0) * math32.Max(b[3]-b[1], 0)
}

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap above which a weaker box is suppressed.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// ClassAware restricts suppression to boxes of the same class.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
}

// NMS performs greedy Non-Maximum Suppression.
//
// Arguments:
//   - dets: The candidate detections, in any order. The slice is not modified.
//   - config: The suppression parameters.
//
// Returns:
//   - []Detection: The kept detections, highest confidence first.
func NMS(dets []Detection, config NMSConfig) []Detection {
	n := len(dets)
	if n == 0 {
		return nil
	}

	sorted := make([]Detection, n)
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Detection, 0, n)
	used := make([]bool, n)
	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}
		anchor := sorted[i]
		kept = append(kept, anchor)

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && sorted[j].ClassIndex != anchor.ClassIndex {
				continue
			}
			if IoU(anchor.Box, sorted[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return kept
}
