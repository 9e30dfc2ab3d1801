package codec

import (
	"encoding/base64"
	"strings"

	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
)

// StripDataURI removes a data-URI scheme (`data:image/png;base64,`,
// `data:application/octet-stream;base64,`) or any plain comma-separated prefix
// from base64 text. Base64 never contains a comma, so everything up to and
// including the first comma is a prefix.
//
// Example:
//
// ```go
//
//	StripDataURI("data:image/png;base64,iVBORw0KGgo") // "iVBORw0KGgo"
//
// ```
func StripDataURI(s string) string {
	s = strings.TrimSpace(s)
	if _, rest, ok := strings.Cut(s, ","); ok {
		return strings.TrimSpace(rest)
	}
	return s
}

// DecodeBase64 strips any data-URI prefix and decodes the base64 payload.
// Padded and unpadded standard base64 are accepted; whitespace anywhere in the
// payload is ignored.
//
// Arguments:
//   - s: The base64 text.
//
// Returns:
//   - []byte: The decoded bytes.
//   - error: ErrDecode when the payload is empty or not valid base64.
func DecodeBase64(s string) ([]byte, error) {
	payload := strings.Join(strings.Fields(StripDataURI(s)), "")
	if payload == "" {
		return nil, errors.Wrap(images.ErrDecode, "empty base64 payload")
	}

	enc := base64.StdEncoding
	if !strings.HasSuffix(payload, "=") && len(payload)%4 != 0 {
		enc = base64.RawStdEncoding
	}

	data, err := enc.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrapf(images.ErrDecode, "invalid base64: %v", err)
	}
	return data, nil
}
