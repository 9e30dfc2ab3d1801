// Package images - Pixel buffer definitions shared by the ingestion pipeline.
package images

import (
	"fmt"
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// PixelBuffer is a decoded image laid out as height x width x channels of
// 8-bit samples, row-major and interleaved.
//
// Buffers are treated as immutable by every consumer: transformations always
// return a new buffer.
type PixelBuffer struct {
	// The interleaved samples, len(Pix) == Width*Height*Channels.
	Pix []uint8 `json:"-" yaml:"-"`
	// The width of the image in pixels.
	Width int `json:"width" yaml:"width"`
	// The height of the image in pixels.
	Height int `json:"height" yaml:"height"`
	// The number of samples per pixel (1 gray, 3 RGB, 4 RGBA).
	Channels int `json:"channels" yaml:"channels"`
}

// NewPixelBuffer allocates a zeroed buffer.
//
// Arguments:
//   - width: The width in pixels.
//   - height: The height in pixels.
//   - channels: The number of channels (1, 3 or 4).
//
// Returns:
//   - *PixelBuffer: The allocated buffer.
//   - error: ErrUnsupportedChannelLayout for any other channel count.
func NewPixelBuffer(width, height, channels int) (*PixelBuffer, error) {
	if channels != 1 && channels != 3 && channels != 4 {
		return nil, errors.Wrapf(ErrUnsupportedChannelLayout, "%d channels", channels)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: width=%d, height=%d", width, height)
	}
	return &PixelBuffer{
		Pix:      make([]uint8, width*height*channels),
		Width:    width,
		Height:   height,
		Channels: channels,
	}, nil
}

// Shape returns the (height, width, channels) triple.
func (p *PixelBuffer) Shape() (int, int, int) {
	return p.Height, p.Width, p.Channels
}

// Stride is the number of samples per row.
func (p *PixelBuffer) Stride() int {
	return p.Width * p.Channels
}

// Offset returns the index of the first sample of pixel (x, y).
func (p *PixelBuffer) Offset(x, y int) int {
	return y*p.Stride() + x*p.Channels
}

// Clone returns a deep copy of the buffer.
func (p *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(p.Pix))
	copy(pix, p.Pix)
	return &PixelBuffer{Pix: pix, Width: p.Width, Height: p.Height, Channels: p.Channels}
}

// Encodable reports whether the buffer can be handed to an encoder directly.
// Four channel buffers must be split into (RGB, alpha) first.
func (p *PixelBuffer) Encodable() error {
	if p == nil || len(p.Pix) == 0 {
		return errors.New("pixel buffer is empty")
	}
	if p.Channels != 1 && p.Channels != 3 {
		return errors.Wrapf(ErrUnsupportedChannelLayout, "cannot encode %d channels", p.Channels)
	}
	if len(p.Pix) != p.Width*p.Height*p.Channels {
		return fmt.Errorf("pixel buffer size mismatch: have %d samples, want %d",
			len(p.Pix), p.Width*p.Height*p.Channels)
	}
	return nil
}

// Image wraps the buffer as a Go image without copying where the layout
// allows it (gray and RGBA). RGB buffers are expanded to opaque NRGBA.
//
// Returns:
//   - image.Image: The image view.
//   - error: ErrUnsupportedChannelLayout for unknown channel counts.
func (p *PixelBuffer) Image() (image.Image, error) {
	rect := image.Rect(0, 0, p.Width, p.Height)
	switch p.Channels {
	case 1:
		return &image.Gray{Pix: p.Pix, Stride: p.Width, Rect: rect}, nil
	case 3:
		dst := image.NewNRGBA(rect)
		Parallel(p.Height, func(partStart, partEnd int) {
			for y := partStart; y < partEnd; y++ {
				src := p.Pix[y*p.Stride() : (y+1)*p.Stride()]
				row := dst.Pix[y*dst.Stride : y*dst.Stride+p.Width*4]
				for x := 0; x < p.Width; x++ {
					row[x*4+0] = src[x*3+0]
					row[x*4+1] = src[x*3+1]
					row[x*4+2] = src[x*3+2]
					row[x*4+3] = 0xff
				}
			}
		})
		return dst, nil
	case 4:
		return &image.NRGBA{Pix: p.Pix, Stride: p.Width * 4, Rect: rect}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedChannelLayout, "%d channels", p.Channels)
	}
}

// FromImage converts any Go image into an RGB buffer (alpha dropped, colors
// un-premultiplied).
//
// Arguments:
//   - img: The source image.
//
// Returns:
//   - *PixelBuffer: A 3 channel buffer with the image's dimensions.
func FromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	dst := &PixelBuffer{Pix: make([]uint8, width*height*3), Width: width, Height: height, Channels: 3}

	Parallel(height, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			for x := 0; x < width; x++ {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				i := dst.Offset(x, y)
				dst.Pix[i+0] = c.R
				dst.Pix[i+1] = c.G
				dst.Pix[i+2] = c.B
			}
		}
	})

	return dst
}

// Plane is a single 8-bit channel such as an alpha mask.
//
// A Plane split from a PixelBuffer has no meaning on its own: it is only ever
// recombined with the buffer it came from, after being resized to match it.
type Plane struct {
	// The samples, len(Pix) == Width*Height.
	Pix []uint8 `json:"-" yaml:"-"`
	// The width of the plane in pixels.
	Width int `json:"width" yaml:"width"`
	// The height of the plane in pixels.
	Height int `json:"height" yaml:"height"`
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{Pix: make([]uint8, width*height), Width: width, Height: height}
}

// Shape returns the (height, width) pair.
func (p *Plane) Shape() (int, int) {
	return p.Height, p.Width
}

// SameSize reports whether the plane matches the buffer's spatial dimensions.
func (p *Plane) SameSize(buf *PixelBuffer) bool {
	return p.Width == buf.Width && p.Height == buf.Height
}
