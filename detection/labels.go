package detection

import (
	"bufio"
	"os"
	"strings"

	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
)

const (
	// UnknownLabel is used for class ids missing from a label map.
	UnknownLabel = "Unknown"
	// LabelPlate is the plate class of the plate/vehicle model.
	LabelPlate = "Vehicle Plate"
	// LabelVehicle is the vehicle class of the plate/vehicle model.
	LabelVehicle = "Vehicle"
)

// Labels maps class ids to human-readable labels.
type Labels map[int]string

// PlateVehicleLabels is the static label map of the plate/vehicle model.
var PlateVehicleLabels = Labels{0: LabelPlate, 1: LabelVehicle}

// Translate returns the label of id, or UnknownLabel.
func (l Labels) Translate(id int) string {
	if name, ok := l[id]; ok {
		return name
	}
	return UnknownLabel
}

// Len returns the number of classes, assuming contiguous ids from 0.
func (l Labels) Len() int {
	n := 0
	for id := range l {
		if id+1 > n {
			n = id + 1
		}
	}
	return n
}

// LoadLabels reads a label file with one label per line; the line index is
// the class id. Surrounding whitespace is trimmed and trailing blank lines are
// ignored.
//
// Arguments:
//   - path: The label file.
//
// Returns:
//   - Labels: The label map.
//   - error: ErrAssetMissing when the file does not exist.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(images.ErrAssetMissing, "labels %s", path)
		}
		return nil, errors.Wrapf(err, "open labels %s", path)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read labels %s", path)
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	labels := make(Labels, len(lines))
	for i, line := range lines {
		labels[i] = line
	}
	return labels, nil
}
