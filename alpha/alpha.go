// Package alpha - splits and recombines the alpha channel of RGBA buffers.
package alpha

import (
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
)

// Recombine attaches an alpha plane to an RGB buffer.
//
// A nil plane means the source had no alpha: rgb is returned as-is (the same
// pointer). When the plane's dimensions differ from the buffer's (the RGB part
// was resized or recompressed at another size) the plane is resampled
// bilinearly to the buffer's exact width and height first.
//
// Arguments:
//   - rgb: A 3 channel buffer.
//   - a: The alpha plane or nil.
//
// Returns:
//   - *images.PixelBuffer: A 4 channel buffer with alpha last, or rgb.
//   - error: ErrUnsupportedChannelLayout when rgb is not 3 channel.
//
// Example:
//
// ```go
//
//	rgba, err := alpha.Recombine(compressed.Pixels, decoded.Alpha)
//
// ```
func Recombine(rgb *images.PixelBuffer, a *images.Plane) (*images.PixelBuffer, error) {
	if a == nil {
		return rgb, nil
	}
	if rgb == nil || rgb.Channels != 3 {
		channels := 0
		if rgb != nil {
			channels = rgb.Channels
		}
		return nil, errors.Wrapf(images.ErrUnsupportedChannelLayout, "recombine needs 3 channels, got %d", channels)
	}

	if !a.SameSize(rgb) {
		a = images.ResizePlane(a, rgb.Width, rgb.Height, images.BilinearFilter)
	}

	out := &images.PixelBuffer{
		Pix:      make([]uint8, rgb.Width*rgb.Height*4),
		Width:    rgb.Width,
		Height:   rgb.Height,
		Channels: 4,
	}

	images.Parallel(rgb.Height, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			for x := 0; x < rgb.Width; x++ {
				src := rgb.Offset(x, y)
				dst := out.Offset(x, y)
				copy(out.Pix[dst:dst+3], rgb.Pix[src:src+3])
				out.Pix[dst+3] = a.Pix[y*a.Width+x]
			}
		}
	})

	return out, nil
}

// Split separates a 4 channel buffer into its RGB samples and alpha plane.
// Buffers with 1 or 3 channels are returned unchanged with a nil plane.
//
// Arguments:
//   - buf: The buffer to split.
//
// Returns:
//   - *images.PixelBuffer: The color samples.
//   - *images.Plane: The alpha plane, nil when buf has none.
//   - error: ErrUnsupportedChannelLayout for any other channel count.
func Split(buf *images.PixelBuffer) (*images.PixelBuffer, *images.Plane, error) {
	switch buf.Channels {
	case 1, 3:
		return buf, nil, nil
	case 4:
	default:
		return nil, nil, errors.Wrapf(images.ErrUnsupportedChannelLayout, "split of %d channels", buf.Channels)
	}

	rgb := &images.PixelBuffer{
		Pix:      make([]uint8, buf.Width*buf.Height*3),
		Width:    buf.Width,
		Height:   buf.Height,
		Channels: 3,
	}
	a := images.NewPlane(buf.Width, buf.Height)

	images.Parallel(buf.Height, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			for x := 0; x < buf.Width; x++ {
				src := buf.Offset(x, y)
				dst := rgb.Offset(x, y)
				copy(rgb.Pix[dst:dst+3], buf.Pix[src:src+3])
				a.Pix[y*buf.Width+x] = buf.Pix[src+3]
			}
		}
	})

	return rgb, a, nil
}
