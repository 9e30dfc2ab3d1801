// Package pipeline - runs decoded images through compression, watermarking
// and alpha recombination, and encodes the result.
package pipeline

import (
	"time"

	"github.com/nvr-ai/vehicle-vision/alpha"
	"github.com/nvr-ai/vehicle-vision/codec"
	"github.com/nvr-ai/vehicle-vision/compress"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/nvr-ai/vehicle-vision/watermark"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Options selects the optional stages of a run.
type Options struct {
	// Grayscale decodes to a single channel (and drops alpha).
	Grayscale bool `json:"grayscale" yaml:"grayscale"`
	// Target enables the adaptive compressor.
	Target *compress.Target `json:"target,omitempty" yaml:"target,omitempty"`
	// Watermark enables the watermark compositor.
	Watermark *watermark.Spec `json:"-" yaml:"-"`
	// KeepAlpha recombines the source alpha into Output.Composite and writes
	// it into Output.Encoded when Format supports alpha.
	KeepAlpha bool `json:"keep_alpha" yaml:"keep_alpha"`
	// Format is the container of Output.Encoded. Empty skips encoding.
	Format images.ImageFormat `json:"format,omitempty" yaml:"format,omitempty"`
}

// Output is the result of a run.
type Output struct {
	// Pixels is the processed gray or RGB buffer.
	Pixels *images.PixelBuffer
	// Alpha is the source alpha resized to Pixels, nil when there is none or
	// the compressor produced a format without alpha.
	Alpha *images.Plane
	// Composite is Pixels with Alpha attached when KeepAlpha is set and
	// alpha survived, otherwise Pixels itself.
	Composite *images.PixelBuffer
	// Metadata holds the source text fields.
	Metadata *images.Metadata
	// Compression is the compressor result, nil when disabled.
	Compression *compress.Result
	// Encoded is the final container, nil when Options.Format is empty.
	Encoded *codec.Encoded
}

// Pipeline wires the decoder to the processing stages.
type Pipeline struct {
	decoder *codec.Decoder
	logger  zerolog.Logger
}

// New creates a pipeline.
//
// Arguments:
//   - logger: The logger for per-stage diagnostics.
//
// Returns:
//   - *Pipeline: A pipeline safe for concurrent use as long as the policies
//     of the watermark specs passed to Process are not shared.
func New(logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		decoder: codec.NewDecoder(logger),
		logger:  logger.With().Str("component", "pipeline").Logger(),
	}
}

// Decoder returns the decoder used by the pipeline.
func (p *Pipeline) Decoder() *codec.Decoder {
	return p.decoder
}

// ProcessString decodes base64 text (optionally a data URI) and processes it.
func (p *Pipeline) ProcessString(src string, opts Options) (*Output, error) {
	data, err := codec.DecodeBase64(src)
	if err != nil {
		return nil, err
	}
	return p.Process(data, opts)
}

// Process decodes src and runs the enabled stages in order: compress,
// watermark, alpha recombination, encode.
//
// Arguments:
//   - src: The encoded source image.
//   - opts: The stages to run.
//
// Returns:
//   - *Output: The processed image.
//   - error: ErrDecode for bad input, or the first failing stage's error.
func (p *Pipeline) Process(src []byte, opts Options) (*Output, error) {
	start := time.Now()

	var decodeOpts []codec.Option
	if opts.Grayscale {
		decodeOpts = append(decodeOpts, codec.WithGrayscale())
	}
	decoded, err := p.decoder.Decode(src, decodeOpts...)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Pixels:   decoded.Pixels,
		Alpha:    decoded.Alpha,
		Metadata: decoded.Metadata,
	}

	if opts.Target != nil {
		res, err := compress.Compress(out.Pixels, *opts.Target)
		if err != nil {
			return nil, errors.Wrap(err, "compress")
		}
		if !res.Converged {
			p.logger.Warn().
				Int("target_bytes", opts.Target.Bytes).
				Int("bytes", len(res.Encoded)).
				Int("param", res.Param).
				Msg("compression target not met")
		}
		out.Pixels, out.Compression = res.Pixels, res
		if !opts.Target.Format.SupportsAlpha() {
			out.Alpha = nil
		}
	}

	if opts.Watermark != nil {
		marked, err := watermark.Apply(out.Pixels, *opts.Watermark)
		if err != nil {
			return nil, errors.Wrap(err, "watermark")
		}
		out.Pixels = marked
	}

	out.Composite = out.Pixels
	if out.Alpha != nil {
		if !out.Alpha.SameSize(out.Pixels) {
			out.Alpha = images.ResizePlane(out.Alpha, out.Pixels.Width, out.Pixels.Height, images.BilinearFilter)
		}
		if opts.KeepAlpha {
			if out.Composite, err = alpha.Recombine(out.Pixels, out.Alpha); err != nil {
				return nil, err
			}
		}
	}

	if opts.Format != "" {
		if out.Encoded, err = p.encode(out, opts); err != nil {
			return nil, err
		}
	}

	p.logger.Debug().
		Str("format", string(decoded.Format)).
		Int("width", out.Pixels.Width).
		Int("height", out.Pixels.Height).
		Int("channels", out.Pixels.Channels).
		Bool("alpha", out.Alpha != nil).
		Dur("elapsed", time.Since(start)).
		Msg("image processed")

	return out, nil
}

// encode reuses the compressor's bytes when nothing changed after it ran.
// With KeepAlpha the alpha plane is written as a 4th channel by formats that
// can store it.
func (p *Pipeline) encode(out *Output, opts Options) (*codec.Encoded, error) {
	keepAlpha := opts.KeepAlpha && out.Alpha != nil && opts.Format.SupportsAlpha()

	if out.Compression != nil && !keepAlpha && opts.Watermark == nil && opts.Target.Format == opts.Format &&
		(opts.Format == images.FormatJPEG || out.Metadata.Len() == 0) {
		return &codec.Encoded{Data: out.Compression.Encoded, Format: opts.Format}, nil
	}

	encOpts := codec.EncodeOptions{Metadata: out.Metadata}
	if out.Compression != nil && opts.Target.Format == opts.Format {
		param := out.Compression.Param
		encOpts.Quality, encOpts.Level = param, &param
	}
	if keepAlpha {
		encOpts.Alpha = out.Alpha
	}

	enc, err := codec.Encode(out.Pixels, opts.Format, encOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", opts.Format)
	}
	return enc, nil
}
