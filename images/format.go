package images

import "strings"

// ImageFormat represents supported container formats.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatWebP ImageFormat = "webp"
	FormatBMP  ImageFormat = "bmp"
	FormatTIFF ImageFormat = "tiff"
	FormatGIF  ImageFormat = "gif"
)

// ParseFormat maps a name, extension or MIME type to an ImageFormat.
//
// Arguments:
//   - s: e.g. "jpg", ".png", "image/webp".
//
// Returns:
//   - ImageFormat: The matching format.
//   - bool: False when the input is not recognized.
func ParseFormat(s string) (ImageFormat, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "image/")
	s = strings.TrimPrefix(s, ".")
	switch s {
	case "jpg", "jpeg", "pjpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "webp":
		return FormatWebP, true
	case "bmp", "x-ms-bmp":
		return FormatBMP, true
	case "tif", "tiff":
		return FormatTIFF, true
	case "gif":
		return FormatGIF, true
	}
	return "", false
}

// Extension returns the file extension with a leading dot.
func (f ImageFormat) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// MIME returns the media type of the format.
func (f ImageFormat) MIME() string {
	return "image/" + string(f)
}

// SupportsAlpha reports whether the container can store transparency.
func (f ImageFormat) SupportsAlpha() bool {
	switch f {
	case FormatPNG, FormatWebP, FormatTIFF, FormatGIF:
		return true
	}
	return false
}
