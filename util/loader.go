// Package util - file helpers used by the command line tool to feed images
// into the pipeline and persist the results.
package util

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the trailing number in the file name (frame-12.jpg is 12), or
	// -1 when the name carries none.
	Frame int
}

var trailingNumber = regexp.MustCompile(`(\d+)$`)

// imageExtensions lists the extensions the decoder understands.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
	".webp": true, ".tif": true, ".tiff": true, ".gif": true,
}

// IsImageFile reports whether a file name has a decodable image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The files ordered by frame number, then by name.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read dir %s", dir)
	}

	var out []ImageFile
	for _, file := range files {
		if file.IsDir() || !IsImageFile(file.Name()) {
			continue
		}

		f, err := LoadImageFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Frame != out[j].Frame {
			return out[i].Frame < out[j].Frame
		}
		return out[i].Path < out[j].Path
	})

	return out, nil
}

// LoadImageFile reads a single image file.
func LoadImageFile(path string) (*ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return &ImageFile{Path: path, Data: data, Frame: frameNumber(path)}, nil
}

func frameNumber(path string) int {
	base := filepath.Base(path)
	m := trailingNumber.FindString(strings.TrimSuffix(base, filepath.Ext(base)))
	if m == "" {
		return -1
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return -1
	}
	return n
}

// SaveImageBytes writes data to dir/name, creating dir when needed.
//
// Arguments:
// - dir: Output directory.
// - name: File name inside dir.
// - data: File contents.
//
// Returns:
// - string: The written path.
// - error: Error if the directory or file cannot be written.
func SaveImageBytes(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
