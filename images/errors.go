package images

import "github.com/pkg/errors"

// Error kinds surfaced by the ingestion pipeline. Call sites wrap them with
// context; match with errors.Is or errors.Cause.
var (
	// ErrDecode is returned when the input is not valid base64 or not a
	// decodable image container.
	ErrDecode = errors.New("image decode failed")
	// ErrUnsupportedChannelLayout is returned when a buffer with an unexpected
	// channel count reaches a step that only handles gray, RGB or RGBA.
	ErrUnsupportedChannelLayout = errors.New("unsupported channel layout")
	// ErrAssetMissing is returned when a watermark or label file is absent.
	ErrAssetMissing = errors.New("asset missing")
)
