package codec

import (
	"fmt"

	"github.com/nvr-ai/vehicle-vision/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// toMat copies a gray or RGB buffer into a gocv.Mat in OpenCV's BGR order.
// The caller owns the returned Mat and must Close it.
//
// Arguments:
//   - buf: A 1 or 3 channel buffer.
//
// Returns:
//   - gocv.Mat: The Mat (CV_8UC1 or CV_8UC3).
//   - error: ErrUnsupportedChannelLayout for other channel counts.
func toMat(buf *images.PixelBuffer) (gocv.Mat, error) {
	if err := buf.Encodable(); err != nil {
		return gocv.NewMat(), err
	}

	if buf.Channels == 1 {
		mat, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC1, buf.Pix)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("failed to create gray mat: %w", err)
		}
		return mat, nil
	}

	rgb, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC3, buf.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create rgb mat: %w", err)
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	if err := gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR); err != nil {
		bgr.Close()
		return gocv.NewMat(), fmt.Errorf("failed to convert rgb to bgr: %w", err)
	}

	return bgr, nil
}

// toMatWithAlpha copies an RGB buffer and its alpha plane into a CV_8UC4 Mat
// in OpenCV's BGRA order. A nil plane falls back to toMat. The caller owns the
// returned Mat and must Close it.
func toMatWithAlpha(buf *images.PixelBuffer, a *images.Plane) (gocv.Mat, error) {
	if a == nil {
		return toMat(buf)
	}

	rgba, err := interleaveAlpha(buf, a)
	if err != nil {
		return gocv.NewMat(), err
	}

	src, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC4, rgba)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create rgba mat: %w", err)
	}
	defer src.Close()

	bgra := gocv.NewMat()
	if err := gocv.CvtColor(src, &bgra, gocv.ColorRGBAToBGRA); err != nil {
		bgra.Close()
		return gocv.NewMat(), fmt.Errorf("failed to convert rgba to bgra: %w", err)
	}

	return bgra, nil
}

// interleaveAlpha packs an RGB buffer and a same-sized alpha plane into
// non-premultiplied RGBA samples.
func interleaveAlpha(buf *images.PixelBuffer, a *images.Plane) ([]uint8, error) {
	if err := buf.Encodable(); err != nil {
		return nil, err
	}
	if buf.Channels != 3 {
		return nil, errors.Wrapf(images.ErrUnsupportedChannelLayout, "alpha needs 3 color channels, got %d", buf.Channels)
	}
	if !a.SameSize(buf) || len(a.Pix) != a.Width*a.Height {
		return nil, errors.Errorf("alpha plane is %dx%d, pixels are %dx%d", a.Width, a.Height, buf.Width, buf.Height)
	}

	rgba := make([]uint8, buf.Width*buf.Height*4)
	images.Parallel(buf.Height, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			for x := 0; x < buf.Width; x++ {
				i := buf.Offset(x, y)
				o := (y*buf.Width + x) * 4
				copy(rgba[o:o+3], buf.Pix[i:i+3])
				rgba[o+3] = a.Pix[y*a.Width+x]
			}
		}
	})
	return rgba, nil
}

// fromMat copies a decoded Mat back into a buffer with canonical RGB order.
//
// Arguments:
//   - mat: A CV_8UC1 or CV_8UC3 (BGR) Mat. The Mat is not closed.
//
// Returns:
//   - *images.PixelBuffer: A 1 or 3 channel buffer.
//   - error: ErrUnsupportedChannelLayout for other channel counts.
func fromMat(mat gocv.Mat) (*images.PixelBuffer, error) {
	if mat.Empty() {
		return nil, errors.Wrap(images.ErrDecode, "empty mat")
	}

	switch mat.Channels() {
	case 1:
		return &images.PixelBuffer{
			Pix:      mat.ToBytes(),
			Width:    mat.Cols(),
			Height:   mat.Rows(),
			Channels: 1,
		}, nil
	case 3:
		rgb := gocv.NewMat()
		defer rgb.Close()
		if err := gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB); err != nil {
			return nil, fmt.Errorf("failed to convert bgr to rgb: %w", err)
		}
		return &images.PixelBuffer{
			Pix:      rgb.ToBytes(),
			Width:    rgb.Cols(),
			Height:   rgb.Rows(),
			Channels: 3,
		}, nil
	default:
		return nil, errors.Wrapf(images.ErrUnsupportedChannelLayout, "mat has %d channels", mat.Channels())
	}
}
