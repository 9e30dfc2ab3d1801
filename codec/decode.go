// Package codec - turns encoded image bytes into pixel buffers and back.
package codec

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/gabriel-vasile/mimetype"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Decoded is the result of decoding one source image.
type Decoded struct {
	// Pixels is a 3 channel RGB buffer, or 1 channel when grayscale was requested.
	Pixels *images.PixelBuffer
	// Alpha is the source's alpha plane, nil when the source has none or
	// grayscale was requested.
	Alpha *images.Plane
	// Metadata holds the text fields of the source container.
	Metadata *images.Metadata
	// Format is the sniffed source container format.
	Format images.ImageFormat
	// Orientation is the EXIF orientation that was applied (0 when absent).
	Orientation Orientation
}

// Option configures a single Decode call.
type Option func(*decodeOptions)

type decodeOptions struct {
	grayscale bool
}

// WithGrayscale converts the result to a single channel and drops alpha.
func WithGrayscale() Option {
	return func(o *decodeOptions) {
		o.grayscale = true
	}
}

// Decoder decodes encoded images into pixel buffers.
//
// A Decoder holds no mutable state and is safe for concurrent use.
type Decoder struct {
	logger zerolog.Logger
}

// NewDecoder creates a decoder that reports non-fatal problems (such as
// malformed orientation metadata) to logger.
func NewDecoder(logger zerolog.Logger) *Decoder {
	return &Decoder{logger: logger.With().Str("component", "decoder").Logger()}
}

// DecodeString decodes base64 text, optionally prefixed by a data-URI scheme.
//
// Arguments:
//   - s: The base64 text.
//   - opts: Decode options.
//
// Returns:
//   - *Decoded: The pixel buffer, optional alpha and metadata.
//   - error: ErrDecode when the text or the container is invalid.
func (d *Decoder) DecodeString(s string, opts ...Option) (*Decoded, error) {
	data, err := DecodeBase64(s)
	if err != nil {
		return nil, err
	}
	return d.Decode(data, opts...)
}

// Decode decodes container bytes. The input slice is never modified.
//
// Steps: sniff the container, decode it, apply EXIF orientation (failures are
// logged and skipped), then either convert to gray or split alpha from RGB.
//
// Arguments:
//   - data: The container bytes.
//   - opts: Decode options.
//
// Returns:
//   - *Decoded: The pixel buffer, optional alpha and metadata.
//   - error: ErrDecode when the container is unknown or corrupt.
func (d *Decoder) Decode(data []byte, opts ...Option) (*Decoded, error) {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	if len(data) == 0 {
		return nil, errors.Wrap(images.ErrDecode, "empty image data")
	}

	format, ok := sniffFormat(data)
	if !ok {
		return nil, errors.Wrapf(images.ErrDecode, "unsupported container %q", mimetype.Detect(data).String())
	}

	img, err := decodeContainer(data, format)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.Wrapf(images.ErrDecode, "invalid dimensions %dx%d", b.Dx(), b.Dy())
	}

	var chunks []pngChunk
	if format == images.FormatPNG {
		chunks = readPNGChunks(data)
	}

	// Alpha presence is a property of the source, not of the oriented copy.
	alpha := hasAlpha(img)
	if rgba, ok := pngHasAlpha(chunks); ok {
		alpha = rgba
	}

	orientation, err := readOrientation(data, format, chunks)
	if err != nil {
		d.logger.Warn().Err(err).Str("format", string(format)).Msg("exif orientation skipped")
		orientation = 0
	}
	img = applyOrientation(img, orientation)

	out := &Decoded{
		Format:      format,
		Orientation: orientation,
		Metadata:    readPNGText(chunks),
	}

	switch {
	case o.grayscale:
		out.Pixels = images.Grayscale(images.FromImage(img))
	case alpha:
		out.Pixels, out.Alpha = splitAlpha(img)
	default:
		out.Pixels = images.FromImage(img)
	}

	return out, nil
}

// sniffFormat maps the detected media type, or the nearest parent type
// (e.g. APNG -> PNG), to a supported format.
func sniffFormat(data []byte) (images.ImageFormat, bool) {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if format, ok := images.ParseFormat(m.String()); ok {
			return format, true
		}
	}
	return "", false
}

// decodeContainer decodes bytes of a sniffed format into a Go image.
func decodeContainer(data []byte, format images.ImageFormat) (image.Image, error) {
	if format == images.FormatWebP {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrapf(images.ErrDecode, "webp: %v", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(images.ErrDecode, "%s: %v", format, err)
	}
	return img, nil
}

// hasAlpha reports whether the decoded image carries a 4th channel.
//
// Non-premultiplied models always come from a container with an alpha
// channel. Premultiplied models are also what the standard decoders return
// for plain truecolor data, so those count only when some pixel is
// translucent. Paletted images with transparent entries are treated as opaque.
// PNG sources are decided by pngHasAlpha instead.
func hasAlpha(img image.Image) bool {
	switch m := img.(type) {
	case *image.NRGBA, *image.NRGBA64:
		return true
	case *image.RGBA:
		return !m.Opaque()
	case *image.RGBA64:
		return !m.Opaque()
	}
	return false
}

// pngColorTypeRGBA is the IHDR color type of truecolor PNG data with an alpha
// channel.
const pngColorTypeRGBA = 6

// pngHasAlpha reports whether the IHDR chunk declares a 4-channel layout.
// Gray+alpha data and tRNS transparency decode to the same Go image types as
// RGBA data but are not 4-channel sources. ok is false when IHDR is missing.
func pngHasAlpha(chunks []pngChunk) (alpha, ok bool) {
	if len(chunks) == 0 || chunks[0].Type != "IHDR" || len(chunks[0].Data) < 13 {
		return false, false
	}
	return chunks[0].Data[9] == pngColorTypeRGBA, true
}

// splitAlpha separates a (non-premultiplied) alpha plane from the RGB samples.
func splitAlpha(img image.Image) (*images.PixelBuffer, *images.Plane) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				nrgba.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
	}
	origin := nrgba.Bounds().Min

	rgb := &images.PixelBuffer{Pix: make([]uint8, width*height*3), Width: width, Height: height, Channels: 3}
	alpha := images.NewPlane(width, height)

	images.Parallel(height, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			start := nrgba.PixOffset(origin.X, origin.Y+y)
			row := nrgba.Pix[start : start+width*4]
			for x := 0; x < width; x++ {
				i := rgb.Offset(x, y)
				rgb.Pix[i+0] = row[x*4+0]
				rgb.Pix[i+1] = row[x*4+1]
				rgb.Pix[i+2] = row[x*4+2]
				alpha.Pix[y*width+x] = row[x*4+3]
			}
		}
	})

	return rgb, alpha
}
