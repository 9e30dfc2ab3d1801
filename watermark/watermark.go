// Package watermark - overlays a logo onto images at a proportional size in
// one of four corners.
package watermark

import (
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
)

const (
	// DefaultMargin is the inset of the watermark from the image edges.
	DefaultMargin = 20
	// DefaultWidthScale is the watermark width relative to the base width.
	DefaultWidthScale = 0.3
)

// Spec describes one watermark application.
type Spec struct {
	// Source is the watermark with its own alpha.
	Source image.Image
	// Margin insets the watermark from both edges of its corner.
	Margin int
	// WidthScale sets the watermark width to WidthScale * base width.
	WidthScale float64
	// Policy chooses the corner. Nil means BottomRight.
	Policy Policy
}

// Placement reports where a watermark was drawn.
type Placement struct {
	Corner Corner
	Bounds image.Rectangle
}

// Apply resizes the watermark to WidthScale of the base width (Lanczos,
// aspect ratio kept, sizes truncated), blends it over the base at the corner
// picked by the policy and flattens the result to opaque RGB.
//
// Arguments:
//   - base: A 1, 3 or 4 channel buffer. Alpha of a 4 channel base is discarded.
//   - spec: The watermark and its placement.
//
// Returns:
//   - *images.PixelBuffer: A new 3 channel buffer.
//   - error: An error if the spec has no source or the base is unusable.
//
// Example:
//
// ```go
//
//	out, err := watermark.Apply(px, watermark.Spec{
//		Source:     logo,
//		Margin:     watermark.DefaultMargin,
//		WidthScale: watermark.DefaultWidthScale,
//		Policy:     watermark.BottomRight{},
//	})
//
// ```
func Apply(base *images.PixelBuffer, spec Spec) (*images.PixelBuffer, error) {
	out, _, err := ApplyWithPlacement(base, spec)
	return out, err
}

// ApplyWithPlacement is Apply that also reports the drawn rectangle.
func ApplyWithPlacement(base *images.PixelBuffer, spec Spec) (*images.PixelBuffer, Placement, error) {
	if spec.Source == nil {
		return nil, Placement{}, errors.New("watermark source is nil")
	}
	if spec.WidthScale <= 0 {
		return nil, Placement{}, errors.Errorf("invalid watermark width scale %v", spec.WidthScale)
	}

	canvas, err := base.Image()
	if err != nil {
		return nil, Placement{}, err
	}

	policy := spec.Policy
	if policy == nil {
		policy = BottomRight{}
	}
	corner := policy.Corner()

	srcSize := spec.Source.Bounds().Size()
	width := int(float64(base.Width) * spec.WidthScale)
	height := 0
	if srcSize.X > 0 {
		height = int(float64(width) * float64(srcSize.Y) / float64(srcSize.X))
	}
	if width <= 0 || height <= 0 {
		// Nothing visible to draw.
		return images.FromImage(canvas), Placement{Corner: corner}, nil
	}

	mark := imaging.Resize(spec.Source, width, height, imaging.Lanczos)
	pos := corner.Point(image.Pt(base.Width, base.Height), image.Pt(width, height), spec.Margin)

	blended := imaging.Overlay(canvas, mark, pos, 1.0)
	placement := Placement{Corner: corner, Bounds: image.Rectangle{Min: pos, Max: pos.Add(image.Pt(width, height))}}

	return images.FromImage(blended), placement, nil
}

// LoadSource reads a watermark image file and converts it to NRGBA.
//
// Arguments:
//   - path: The watermark file path.
//
// Returns:
//   - image.Image: The watermark.
//   - error: ErrAssetMissing when the file does not exist, or a decode error.
func LoadSource(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(images.ErrAssetMissing, "watermark %s", path)
		}
		return nil, errors.Wrapf(err, "open watermark %s", path)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(images.ErrDecode, "watermark %s: %v", path, err)
	}
	return imaging.Clone(img), nil
}
