package codec

import (
	"bytes"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Orientation is the EXIF orientation tag value (1-8).
type Orientation int

const (
	OrientationNormal     Orientation = 1
	OrientationFlipH      Orientation = 2
	OrientationRotate180  Orientation = 3
	OrientationFlipV      Orientation = 4
	OrientationTranspose  Orientation = 5
	OrientationRotate90   Orientation = 6 // 90° clockwise to display upright
	OrientationTransverse Orientation = 7
	OrientationRotate270  Orientation = 8 // 90° counter-clockwise to display upright
)

// readOrientation finds the EXIF orientation of an encoded image.
//
// Arguments:
//   - data: The container bytes.
//   - format: The sniffed container format.
//   - chunks: Pre-parsed PNG chunks (PNG only, may be nil).
//
// Returns:
//   - Orientation: The tag value, 0 when the container carries no EXIF data.
//   - error: A description of malformed EXIF data.
func readOrientation(data []byte, format images.ImageFormat, chunks []pngChunk) (Orientation, error) {
	switch format {
	case images.FormatJPEG, images.FormatTIFF:
		return orientationFromExif(data)
	case images.FormatPNG:
		for _, c := range chunks {
			if c.Type == "eXIf" {
				return orientationFromExif(c.Data)
			}
		}
		return 0, nil
	default:
		return 0, nil
	}
}

// orientationFromExif reads the orientation tag from a JPEG stream or a raw TIFF
// structure. A JPEG without an APP1 segment and an IFD0 without the tag both
// yield 0.
func orientationFromExif(data []byte) (Orientation, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "decode exif")
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		if exif.IsTagNotPresentError(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "read exif orientation")
	}
	if tag.Type != tiff.DTShort || tag.Count != 1 {
		return 0, errors.Errorf("exif orientation has type %d count %d, want one SHORT", tag.Type, tag.Count)
	}

	v, err := tag.Int(0)
	if err != nil {
		return 0, errors.Wrap(err, "read exif orientation")
	}
	o := Orientation(v)
	if o < OrientationNormal || o > OrientationRotate270 {
		return 0, errors.Errorf("exif orientation %d out of range", o)
	}
	return o, nil
}

// applyOrientation transforms img so it displays upright. Orientations 0 and
// 1 return img unchanged.
func applyOrientation(img image.Image, o Orientation) image.Image {
	switch o {
	case OrientationFlipH:
		return imaging.FlipH(img)
	case OrientationRotate180:
		return imaging.Rotate180(img)
	case OrientationFlipV:
		return imaging.FlipV(img)
	case OrientationTranspose:
		return imaging.Transpose(img)
	case OrientationRotate90:
		return imaging.Rotate270(img)
	case OrientationTransverse:
		return imaging.Transverse(img)
	case OrientationRotate270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
