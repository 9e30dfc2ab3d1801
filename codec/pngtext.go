package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"io"
	"unicode/utf8"

	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// maxTextChunk bounds decompressed zTXt/iTXt payloads.
const maxTextChunk = 8 << 20

// pngChunk is a raw chunk of a PNG stream.
type pngChunk struct {
	Type string
	Data []byte
}

// readPNGChunks lists the chunks of a PNG stream in order. It returns nil when
// data is not a PNG stream or the chunk structure cannot be parsed.
func readPNGChunks(data []byte) []pngChunk {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil
	}

	mc, err := pngstructure.NewPngMediaParser().ParseBytes(data)
	if err != nil {
		return nil
	}
	cs, ok := mc.(*pngstructure.ChunkSlice)
	if !ok {
		return nil
	}

	chunks := make([]pngChunk, 0, len(cs.Chunks()))
	for _, c := range cs.Chunks() {
		chunks = append(chunks, pngChunk{Type: c.Type, Data: c.Data})
	}
	return chunks
}

// readPNGText extracts tEXt, zTXt and iTXt fields in stream order.
// Undecodable text chunks are skipped.
func readPNGText(chunks []pngChunk) *images.Metadata {
	md := &images.Metadata{}
	for _, c := range chunks {
		switch c.Type {
		case "tEXt":
			key, rest, ok := bytes.Cut(c.Data, []byte{0})
			if !ok || len(key) == 0 {
				continue
			}
			md.Set(latin1ToUTF8(key), latin1ToUTF8(rest))
		case "zTXt":
			key, rest, ok := bytes.Cut(c.Data, []byte{0})
			if !ok || len(key) == 0 || len(rest) < 1 || rest[0] != 0 {
				continue
			}
			text, err := inflate(rest[1:])
			if err != nil {
				continue
			}
			md.Set(latin1ToUTF8(key), latin1ToUTF8(text))
		case "iTXt":
			key, rest, ok := bytes.Cut(c.Data, []byte{0})
			if !ok || len(key) == 0 || len(rest) < 2 {
				continue
			}
			compressed, method := rest[0] == 1, rest[1]
			rest = rest[2:]
			// Skip the language tag and the translated keyword.
			if _, rest, ok = bytes.Cut(rest, []byte{0}); !ok {
				continue
			}
			if _, rest, ok = bytes.Cut(rest, []byte{0}); !ok {
				continue
			}
			text := rest
			if compressed {
				if method != 0 {
					continue
				}
				var err error
				if text, err = inflate(rest); err != nil {
					continue
				}
			}
			md.Set(latin1ToUTF8(key), string(text))
		}
	}
	return md
}

// insertTextChunks writes every representable metadata field as a text chunk
// directly after IHDR. Latin-1 values use tEXt, anything else uses iTXt.
// Keys that are not valid PNG keywords are dropped.
func insertTextChunks(png []byte, md *images.Metadata) ([]byte, error) {
	chunks := readPNGChunks(png)
	if len(chunks) == 0 || chunks[0].Type != "IHDR" {
		return nil, errors.New("png stream has no IHDR chunk")
	}
	// Signature + IHDR (length, type, 13 data bytes, crc).
	insertAt := len(pngSignature) + 12 + len(chunks[0].Data)

	var text bytes.Buffer
	md.Each(func(key, value string) {
		keyword, ok := utf8ToLatin1(key)
		if !ok || !validKeyword(keyword) {
			return
		}
		if latin, ok := utf8ToLatin1(value); ok {
			writeChunk(&text, "tEXt", append(append(keyword, 0), latin...))
			return
		}
		payload := append(append([]byte{}, keyword...), 0, 0, 0, 0, 0)
		writeChunk(&text, "iTXt", append(payload, value...))
	})

	out := make([]byte, 0, len(png)+text.Len())
	out = append(out, png[:insertAt]...)
	out = append(out, text.Bytes()...)
	out = append(out, png[insertAt:]...)
	return out, nil
}

// writeChunk appends a length-prefixed, CRC-terminated chunk.
func writeChunk(w *bytes.Buffer, typ string, data []byte) {
	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(data)))
	copy(header[4:], typ)
	w.Write(header[:])
	w.Write(data)

	crc := crc32.NewIEEE()
	crc.Write(header[4:])
	crc.Write(data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	w.Write(sum[:])
}

// validKeyword checks the PNG keyword rules: 1-79 printable Latin-1 bytes,
// no leading, trailing or consecutive spaces.
func validKeyword(k []byte) bool {
	if len(k) == 0 || len(k) > 79 || k[0] == ' ' || k[len(k)-1] == ' ' {
		return false
	}
	for i, b := range k {
		if b < 32 || (b > 126 && b < 161) {
			return false
		}
		if b == ' ' && i > 0 && k[i-1] == ' ' {
			return false
		}
	}
	return true
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, maxTextChunk))
}

func latin1ToUTF8(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func utf8ToLatin1(s string) ([]byte, bool) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r == utf8.RuneError || r > 0xff {
			return nil, false
		}
		out = append(out, byte(r))
	}
	return out, true
}
