package summary

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/nfnt/resize"
	ts "github.com/sugarme/gotch/tensor"
	"golang.org/x/image/draw"
)

const (
	maxLoggedImages = 8
	thumbSize       = 128
	thumbGap        = 2
)

// LogImages writes up to maxLoggedImages thumbnails of an NCHW float batch
// in [0, 1] as one PNG contact sheet named <name>-<step>.png.
func (w *Writer) LogImages(name string, batch *ts.Tensor, step int) error {
	size := batch.MustSize()
	n := size[0]
	if n > maxLoggedImages {
		n = maxLoggedImages
	}

	thumbs := make([]image.Image, 0, n)
	for i := int64(0); i < n; i++ {
		one := batch.MustNarrow(0, i, 1, false)
		chw := one.MustSqueeze1(0, true)
		thumbs = append(thumbs, resize.Thumbnail(thumbSize, thumbSize, tensorToImage(chw), resize.Bilinear))
		chw.MustDrop()
	}

	sheet := contactSheet(thumbs)

	f, err := os.Create(w.imagePath(name, step))
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, sheet)
}

// tensorToImage converts a [3 H W] float tensor in [0, 1] to an RGBA
// image. Inverse of the dataset's image conversion.
func tensorToImage(x *ts.Tensor) image.Image {
	size := x.MustSize()
	h := int(size[1])
	w := int(size[2])
	vals := x.Float64Values()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for xx := 0; xx < w; xx++ {
			i := y*w + xx
			img.Set(xx, y, color.RGBA{
				R: clampByte(vals[i]),
				G: clampByte(vals[h*w+i]),
				B: clampByte(vals[2*h*w+i]),
				A: 255,
			})
		}
	}

	return img
}

func clampByte(v float64) uint8 {
	v *= 255
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// contactSheet lays thumbnails out in a single row.
func contactSheet(thumbs []image.Image) image.Image {
	var width, height int
	for _, t := range thumbs {
		width += t.Bounds().Dx() + thumbGap
		if t.Bounds().Dy() > height {
			height = t.Bounds().Dy()
		}
	}
	width -= thumbGap

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	x := 0
	for _, t := range thumbs {
		r := image.Rect(x, 0, x+t.Bounds().Dx(), t.Bounds().Dy())
		draw.Draw(dst, r, t, t.Bounds().Min, draw.Src)
		x += t.Bounds().Dx() + thumbGap
	}

	return dst
}
