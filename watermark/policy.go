package watermark

import (
	"image"
	"math/rand"
)

// Corner names one of the four placements of a watermark.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomLeft
	BottomRightCorner
)

// Corners lists every placement in the order RandomCorner draws from.
var Corners = []Corner{TopLeft, TopRight, BottomLeft, BottomRightCorner}

func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRightCorner:
		return "bottom-right"
	default:
		return "unknown"
	}
}

// Point returns the top-left position of a mark of size mark inside base,
// inset by margin on both axes.
func (c Corner) Point(base, mark image.Point, margin int) image.Point {
	left, top := margin, margin
	right := base.X - mark.X - margin
	bottom := base.Y - mark.Y - margin

	switch c {
	case TopRight:
		return image.Pt(right, top)
	case BottomLeft:
		return image.Pt(left, bottom)
	case BottomRightCorner:
		return image.Pt(right, bottom)
	default:
		return image.Pt(left, top)
	}
}

// Policy chooses where a watermark goes.
type Policy interface {
	// Corner returns the placement for the next watermark.
	Corner() Corner
}

// RandomCorner picks one of the four corners uniformly.
//
// Rand supplies the draw; it is not safe for concurrent use, so give each
// goroutine its own policy. A nil Rand uses the math/rand package source.
type RandomCorner struct {
	Rand *rand.Rand
}

// Corner draws a corner.
func (p RandomCorner) Corner() Corner {
	if p.Rand == nil {
		return Corners[rand.Intn(len(Corners))]
	}
	return Corners[p.Rand.Intn(len(Corners))]
}

// BottomRight always places the watermark in the bottom-right corner.
type BottomRight struct{}

// Corner returns BottomRightCorner.
func (BottomRight) Corner() Corner {
	return BottomRightCorner
}

// Fixed always places the watermark in the given corner.
type Fixed Corner

// Corner returns the fixed corner.
func (f Fixed) Corner() Corner {
	return Corner(f)
}
