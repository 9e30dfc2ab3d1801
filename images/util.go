package images

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// Checksum generates a deterministic checksum for a buffer to verify idempotency.
//
// Arguments:
//   - buf: The buffer to compute checksum for.
//
// Returns:
//   - A hex-encoded MD5 checksum string covering shape and samples.
//
// Example:
//
// ```go
//
//	checksum := Checksum(frame)
//	fmt.Printf("Frame checksum: %s\n", checksum)
//
// ```
func Checksum(buf *PixelBuffer) string {
	if buf == nil || len(buf.Pix) == 0 {
		return "empty"
	}

	hash := md5.New()
	var shape [12]byte
	binary.LittleEndian.PutUint32(shape[0:], uint32(buf.Height))
	binary.LittleEndian.PutUint32(shape[4:], uint32(buf.Width))
	binary.LittleEndian.PutUint32(shape[8:], uint32(buf.Channels))
	hash.Write(shape[:])
	hash.Write(buf.Pix)
	return fmt.Sprintf("%x", hash.Sum(nil))
}
