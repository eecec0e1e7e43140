package data

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/tiff"
	ts "github.com/sugarme/gotch/tensor"
)

// readImage reads image from file.
func readImage(filename string) (image.Image, error) {
	ext := filepath.Ext(filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ".png", ".PNG":
		return png.Decode(f)
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		return jpeg.Decode(f)
	case ".tiff", ".tif", ".TIFF", ".TIF":
		return tiff.Decode(f)
	default:
		err = fmt.Errorf("Unsupported image format: %v\n", ext)
		return nil, err
	}
}

// imageToTensor converts a decoded image to a channel-first float tensor
// of shape [3 H W] with values in [0, 1].
func imageToTensor(img image.Image) *ts.Tensor {
	b := img.Bounds()
	h := b.Dy()
	w := b.Dx()

	vals := make([]float32, 3*h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			vals[i] = float32(r) / 65535.0
			vals[h*w+i] = float32(g) / 65535.0
			vals[2*h*w+i] = float32(bl) / 65535.0
		}
	}

	return ts.MustOfSlice(vals).MustView([]int64{3, int64(h), int64(w)}, true)
}

// maskToTensor converts a decoded mask to a float tensor of shape [H W]
// scaled by 1/255. RGB masks are reduced by luminosity first
// (0.2989*r + 0.587*g + 0.114*b), which is the identity for grayscale
// files.
//
// NOTE: the 1/255 scaling assumes mask values are class labels spread over
// [0, 255] in fixed steps; the consumer casts to integer classes.
func maskToTensor(img image.Image) *ts.Tensor {
	b := img.Bounds()
	h := b.Dy()
	w := b.Dx()

	vals := make([]float32, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			lum := 0.2989*float64(r) + 0.587*float64(g) + 0.114*float64(bl)
			vals[y*w+x] = float32(lum / 65535.0)
		}
	}

	return ts.MustOfSlice(vals).MustView([]int64{int64(h), int64(w)}, true)
}
