package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const (
	// DefaultQuality is the JPEG quality used when none is given.
	DefaultQuality = 95
	// DefaultLevel is the PNG compression level used when none is given.
	DefaultLevel = 6
)

// Encoded is an encoded image in a named container format.
type Encoded struct {
	// The container bytes.
	Data []byte `json:"data" yaml:"data"`
	// The container format.
	Format images.ImageFormat `json:"format" yaml:"format"`
}

// Len returns the encoded size in bytes.
func (e *Encoded) Len() int {
	return len(e.Data)
}

// EncodeOptions tunes Encode.
type EncodeOptions struct {
	// Quality is the JPEG or WebP quality in [1, 100]. Zero selects
	// DefaultQuality.
	Quality int
	// Lossless selects lossless WebP; other formats ignore it.
	Lossless bool
	// Level is the PNG compression level in [0, 9]. Nil selects DefaultLevel.
	Level *int
	// Metadata is written where the container can represent it (PNG text
	// chunks). Keys the container cannot hold are dropped.
	Metadata *images.Metadata
	// Alpha is stored as a 4th channel by PNG and WebP and ignored by JPEG.
	// It must match the size of an RGB buffer.
	Alpha *images.Plane
}

// Encode encodes a gray or RGB buffer, with an optional alpha plane.
//
// Arguments:
//   - buf: A 1 or 3 channel buffer. Split RGBA sources first and pass the
//     plane in opts.Alpha.
//   - format: FormatJPEG, FormatPNG or FormatWebP.
//   - opts: Encoder options.
//
// Returns:
//   - *Encoded: The encoded image.
//   - error: ErrUnsupportedChannelLayout, or an encoder failure.
func Encode(buf *images.PixelBuffer, format images.ImageFormat, opts EncodeOptions) (*Encoded, error) {
	switch format {
	case images.FormatJPEG:
		quality := opts.Quality
		if quality == 0 {
			quality = DefaultQuality
		}
		return EncodeJPEG(buf, quality)
	case images.FormatPNG:
		level := DefaultLevel
		if opts.Level != nil {
			level = *opts.Level
		}
		return EncodePNGAlpha(buf, opts.Alpha, level, opts.Metadata)
	case images.FormatWebP:
		quality := opts.Quality
		if quality == 0 {
			quality = DefaultQuality
		}
		return encodeWebP(buf, opts.Alpha, quality, opts.Lossless)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// EncodeJPEG encodes a buffer as JPEG at the given quality.
//
// Arguments:
//   - buf: A 1 or 3 channel buffer.
//   - quality: JPEG quality, clamped to [1, 100].
//
// Returns:
//   - *Encoded: The JPEG bytes.
//   - error: An error if the buffer cannot be encoded.
func EncodeJPEG(buf *images.PixelBuffer, quality int) (*Encoded, error) {
	quality = clampInt(quality, 1, 100)
	data, err := imencode(buf, nil, gocv.JPEGFileExt, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, errors.Wrapf(err, "jpeg encode at quality %d", quality)
	}
	return &Encoded{Data: data, Format: images.FormatJPEG}, nil
}

// EncodePNG encodes a buffer as PNG at the given compression level and
// embeds metadata as text chunks.
//
// Arguments:
//   - buf: A 1 or 3 channel buffer.
//   - level: zlib compression level, clamped to [0, 9].
//   - md: Optional metadata; nil writes none.
//
// Returns:
//   - *Encoded: The PNG bytes.
//   - error: An error if the buffer cannot be encoded.
func EncodePNG(buf *images.PixelBuffer, level int, md *images.Metadata) (*Encoded, error) {
	return EncodePNGAlpha(buf, nil, level, md)
}

// EncodePNGAlpha is EncodePNG with an alpha plane. A non-nil plane produces an
// RGBA (color type 6) stream.
//
// Arguments:
//   - buf: A 3 channel buffer, or any encodable buffer when a is nil.
//   - a: The alpha plane, same size as buf, or nil.
//   - level: zlib compression level, clamped to [0, 9].
//   - md: Optional metadata; nil writes none.
//
// Returns:
//   - *Encoded: The PNG bytes.
//   - error: ErrUnsupportedChannelLayout, a size mismatch, or an encoder failure.
func EncodePNGAlpha(buf *images.PixelBuffer, a *images.Plane, level int, md *images.Metadata) (*Encoded, error) {
	level = clampInt(level, 0, 9)
	data, err := imencode(buf, a, gocv.PNGFileExt, []int{gocv.IMWritePngCompression, level})
	if err != nil {
		return nil, errors.Wrapf(err, "png encode at level %d", level)
	}

	if md.Len() > 0 {
		if data, err = insertTextChunks(data, md); err != nil {
			return nil, err
		}
	}

	return &Encoded{Data: data, Format: images.FormatPNG}, nil
}

// AddPNGText attaches metadata fields as text chunks to an existing PNG
// stream. The input slice is not modified.
//
// Arguments:
//   - png: A PNG stream.
//   - md: The fields to add. Keys that are not valid PNG keywords are dropped.
//
// Returns:
//   - []byte: The new PNG stream.
//   - error: An error if png has no IHDR chunk.
func AddPNGText(png []byte, md *images.Metadata) ([]byte, error) {
	if md.Len() == 0 {
		return append([]byte{}, png...), nil
	}
	return insertTextChunks(png, md)
}

// EncodeWebP encodes a gray or RGB buffer as WebP.
func EncodeWebP(buf *images.PixelBuffer, quality int, lossless bool) (*Encoded, error) {
	return encodeWebP(buf, nil, quality, lossless)
}

func encodeWebP(buf *images.PixelBuffer, a *images.Plane, quality int, lossless bool) (*Encoded, error) {
	var img image.Image
	if a != nil {
		rgba, err := interleaveAlpha(buf, a)
		if err != nil {
			return nil, err
		}
		img = &image.NRGBA{Pix: rgba, Stride: buf.Width * 4, Rect: image.Rect(0, 0, buf.Width, buf.Height)}
	} else {
		if err := buf.Encodable(); err != nil {
			return nil, err
		}
		var err error
		if img, err = buf.Image(); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	opts := &webp.Options{Lossless: lossless, Quality: float32(clampInt(quality, 1, 100))}
	if err := webp.Encode(&out, img, opts); err != nil {
		return nil, errors.Wrap(err, "webp encode")
	}
	return &Encoded{Data: out.Bytes(), Format: images.FormatWebP}, nil
}

// EncodeLossless encodes at the highest-fidelity settings of each format
// (JPEG quality 100, PNG level 0, lossless WebP).
func EncodeLossless(buf *images.PixelBuffer, format images.ImageFormat) (*Encoded, error) {
	level := 0
	return Encode(buf, format, EncodeOptions{Quality: 100, Level: &level, Lossless: true})
}

// EncodeBase64 encodes a buffer as PNG with metadata and returns the base64
// text of the container.
func EncodeBase64(buf *images.PixelBuffer, md *images.Metadata) (string, error) {
	enc, err := EncodePNG(buf, DefaultLevel, md)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(enc.Data), nil
}

// DecodeBuffer decodes JPEG or PNG bytes produced by this package back into a
// buffer with the requested channel count, without orientation handling or
// metadata extraction.
//
// Arguments:
//   - data: The container bytes.
//   - channels: 1 for gray, 3 for RGB.
//
// Returns:
//   - *images.PixelBuffer: The decoded buffer.
//   - error: ErrDecode if the bytes cannot be decoded.
func DecodeBuffer(data []byte, channels int) (*images.PixelBuffer, error) {
	flag := gocv.IMReadColor
	if channels == 1 {
		flag = gocv.IMReadGrayScale
	}

	mat, err := gocv.IMDecode(data, flag)
	if err != nil {
		return nil, errors.Wrapf(images.ErrDecode, "imdecode: %v", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, errors.Wrap(images.ErrDecode, "imdecode returned an empty image")
	}

	return fromMat(mat)
}

// imencode runs gocv.IMEncodeWithParams and copies the native buffer out.
// A non-nil alpha plane is encoded as a 4th channel.
func imencode(buf *images.PixelBuffer, a *images.Plane, ext gocv.FileExt, params []int) ([]byte, error) {
	mat, err := toMatWithAlpha(buf, a)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	native, err := gocv.IMEncodeWithParams(ext, mat, params)
	if err != nil {
		return nil, err
	}
	defer native.Close()

	out := make([]byte, native.Len())
	copy(out, native.GetBytes())
	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
