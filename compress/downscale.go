package compress

import (
	"github.com/nfnt/resize"
	"github.com/nvr-ai/vehicle-vision/codec"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
)

const (
	// DefaultMaxSide is the longest side produced by Downscale.
	DefaultMaxSide = 500
	// DefaultDownscaleQuality is the JPEG quality of the Downscale round trip.
	DefaultDownscaleQuality = 85
)

// Downscale resizes the buffer so its longest side is maxSide (aspect ratio
// kept, the other side truncated) with Lanczos3, then round-trips it through
// JPEG at the given quality. Images smaller than maxSide are scaled up.
//
// Arguments:
//   - px: A 1 or 3 channel buffer.
//   - maxSide: The length of the longest side after resizing.
//   - quality: The JPEG quality of the round trip.
//
// Returns:
//   - *images.PixelBuffer: The resized, re-compressed buffer.
//   - error: An error if the buffer cannot be encoded or decoded.
//
// Example:
//
// ```go
//
//	thumb, err := compress.Downscale(px, compress.DefaultMaxSide, compress.DefaultDownscaleQuality)
//
// ```
func Downscale(px *images.PixelBuffer, maxSide, quality int) (*images.PixelBuffer, error) {
	if err := px.Encodable(); err != nil {
		return nil, err
	}
	if maxSide <= 0 {
		return nil, errors.Errorf("invalid max side %d", maxSide)
	}

	width, height := scaledSize(px.Width, px.Height, maxSide)

	src, err := px.Image()
	if err != nil {
		return nil, err
	}
	resized := images.FromImage(resize.Resize(uint(width), uint(height), src, resize.Lanczos3))
	if px.Channels == 1 {
		resized = images.Grayscale(resized)
	}

	enc, err := codec.EncodeJPEG(resized, quality)
	if err != nil {
		return nil, err
	}
	out, err := codec.DecodeBuffer(enc.Data, px.Channels)
	if err != nil {
		return nil, errors.Wrap(err, "decode downscaled image")
	}
	return out, nil
}

// scaledSize fits the longest side to maxSide. Square images scale by height.
func scaledSize(width, height, maxSide int) (int, int) {
	if width > height {
		h := int(float64(maxSide) / float64(width) * float64(height))
		return maxSide, max(h, 1)
	}
	w := int(float64(maxSide) / float64(height) * float64(width))
	return max(w, 1), maxSide
}
