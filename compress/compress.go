// Package compress - searches encoder parameters so encoded images fit a
// byte budget.
package compress

import (
	"fmt"

	"github.com/nvr-ai/vehicle-vision/codec"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
)

const (
	// MaxIterations caps every search loop. The parameter scans terminate on
	// their own well before this.
	MaxIterations = 32

	// JPEGStartQuality, JPEGMinQuality, JPEGMaxQuality and JPEGStep define the
	// stepped quality scan.
	JPEGStartQuality = 95
	JPEGMinQuality   = 1
	JPEGMaxQuality   = 100
	JPEGStep         = 5

	// PNGStartLevel, PNGMinLevel and PNGMaxLevel define the level search.
	PNGStartLevel = 6
	PNGMinLevel   = 0
	PNGMaxLevel   = 9
)

// Target is a byte budget for a given output format.
type Target struct {
	// The maximum encoded size in bytes.
	Bytes int `json:"bytes" yaml:"bytes"`
	// The output format (FormatJPEG or FormatPNG).
	Format images.ImageFormat `json:"format" yaml:"format"`
}

// Result is the outcome of a search.
type Result struct {
	// Pixels is the last candidate decoded back, so lossy artifacts are
	// visible to downstream consumers. The channel count of the input is kept.
	Pixels *images.PixelBuffer
	// Encoded holds the container bytes of the last candidate.
	Encoded []byte
	// Param is the quality or level the last candidate was encoded with.
	Param int
	// Iterations is the number of encodes performed.
	Iterations int
	// Converged is false when the last candidate is still over budget. The
	// candidate is returned anyway; callers needing a strict size guarantee
	// must check this flag.
	Converged bool
}

// encodeFunc encodes the source at a given parameter.
type encodeFunc func(param int) ([]byte, error)

// Compress dispatches to the search matching the target format.
//
// Arguments:
//   - px: A 1 or 3 channel buffer.
//   - target: The byte budget and format.
//
// Returns:
//   - *Result: The final candidate.
//   - error: An encode/decode failure or an unsupported format.
func Compress(px *images.PixelBuffer, target Target) (*Result, error) {
	switch target.Format {
	case images.FormatJPEG:
		return JPEG(px, target.Bytes)
	case images.FormatPNG:
		return PNG(px, target.Bytes)
	default:
		return nil, fmt.Errorf("unsupported compression format: %s", target.Format)
	}
}

// JPEG scans JPEG quality in fixed steps of 5 starting at 95.
//
// Each candidate over budget lowers the upper bound to its quality and steps
// down; each candidate within budget raises the lower bound and steps up. The
// scan stops once the bounds are closer than one step or the quality reaches
// a bound. The step never shrinks.
//
// Arguments:
//   - px: A 1 or 3 channel buffer.
//   - targetBytes: The byte budget.
//
// Returns:
//   - *Result: The last candidate, decoded back.
//   - error: An encode or decode failure.
//
// Example:
//
// ```go
//
//	res, err := compress.JPEG(decoded.Pixels, 200*1024)
//	if err == nil && !res.Converged {
//		log.Printf("budget not met, smallest candidate is %d bytes", len(res.Encoded))
//	}
//
// ```
func JPEG(px *images.PixelBuffer, targetBytes int) (*Result, error) {
	if err := px.Encodable(); err != nil {
		return nil, err
	}

	res, err := searchJPEG(targetBytes, func(quality int) ([]byte, error) {
		enc, err := codec.EncodeJPEG(px, quality)
		if err != nil {
			return nil, err
		}
		return enc.Data, nil
	})
	if err != nil {
		return nil, err
	}

	return decodeBack(res, px.Channels)
}

// PNG searches the PNG compression level starting at 6 within [0, 9].
//
// A candidate over budget moves the level halfway down towards the lower
// bound; a candidate within budget moves it halfway up towards the upper
// bound. The search stops once the bounds meet or the level reaches a bound.
//
// Arguments:
//   - px: A 1 or 3 channel buffer.
//   - targetBytes: The byte budget.
//
// Returns:
//   - *Result: The last candidate, decoded back.
//   - error: An encode or decode failure.
func PNG(px *images.PixelBuffer, targetBytes int) (*Result, error) {
	if err := px.Encodable(); err != nil {
		return nil, err
	}

	res, err := searchPNG(targetBytes, func(level int) ([]byte, error) {
		enc, err := codec.EncodePNG(px, level, nil)
		if err != nil {
			return nil, err
		}
		return enc.Data, nil
	})
	if err != nil {
		return nil, err
	}

	return decodeBack(res, px.Channels)
}

func searchJPEG(targetBytes int, encode encodeFunc) (*Result, error) {
	quality, lo, hi := JPEGStartQuality, JPEGMinQuality, JPEGMaxQuality
	res := &Result{}

	for res.Iterations < MaxIterations {
		data, err := encode(quality)
		if err != nil {
			return nil, errors.Wrapf(err, "jpeg candidate %d", res.Iterations)
		}
		res.Iterations++
		res.Encoded, res.Param = data, quality
		res.Converged = len(data) <= targetBytes

		if res.Converged {
			lo = quality
			quality += JPEGStep
		} else {
			hi = quality
			quality -= JPEGStep
		}

		if hi-lo < JPEGStep || quality <= lo || quality >= hi {
			break
		}
	}

	return res, nil
}

func searchPNG(targetBytes int, encode encodeFunc) (*Result, error) {
	level, lo, hi := PNGStartLevel, PNGMinLevel, PNGMaxLevel
	res := &Result{}

	for res.Iterations < MaxIterations {
		data, err := encode(level)
		if err != nil {
			return nil, errors.Wrapf(err, "png candidate %d", res.Iterations)
		}
		res.Iterations++
		res.Encoded, res.Param = data, level
		res.Converged = len(data) <= targetBytes

		if res.Converged {
			lo = level
			level = (hi + level) / 2
		} else {
			hi = level
			level = (lo + level) / 2
		}

		if hi-lo < 1 || level <= lo || level >= hi {
			break
		}
	}

	return res, nil
}

// decodeBack decodes the last candidate into Result.Pixels.
func decodeBack(res *Result, channels int) (*Result, error) {
	pixels, err := codec.DecodeBuffer(res.Encoded, channels)
	if err != nil {
		return nil, errors.Wrap(err, "decode compressed candidate")
	}
	res.Pixels = pixels
	return res, nil
}
