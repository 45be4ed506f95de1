package exifhelper

import (
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Orientation returns EXIF orientation tag value, 1 if absent or broken.
func Orientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err == nil && x != nil {
		orient, err := x.Get(exif.Orientation)
		if err == nil && orient != nil && orient.Count != 0 {
			if i, err := orient.Int(0); err == nil && i >= 1 && i <= 8 {
				return i
			}
		}
	}
	return 1
}

// RotWH returns dimensions as seen after applying orientation.
func RotWH(orient int, w, h int) (int, int) {
	switch orient {
	case 5, 6, 7, 8:
		w, h = h, w
	}
	return w, h
}

// Apply transforms img so it's displayed upright.
func Apply(orient int, img image.Image) *image.NRGBA {
	switch orient {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return imaging.Clone(img)
	}
}
