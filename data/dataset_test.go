package data_test

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sugarme/useg/data"
)

// writePNG writes a wxh image. Gray files get a constant value; RGB files
// a simple gradient.
func writePNG(t *testing.T, path string, w, h int, gray bool, val uint8) {
	t.Helper()

	var img image.Image
	if gray {
		g := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g.SetGray(x, y, color.Gray{Y: val})
			}
		}
		img = g
	} else {
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				rgba.Set(x, y, color.RGBA{R: uint8(x * 50), G: uint8(y * 50), B: val, A: 255})
			}
		}
		img = rgba
	}

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func newDirs(t *testing.T) (imgDir, maskDir string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "images"), filepath.Join(dir, "masks")
}

// One file a.png matched with masks/a.png, both 4x4: Item(0) must return
// (3,4,4) and (4,4) tensors without error.
func TestItemShapes(t *testing.T) {
	imgDir, maskDir := newDirs(t)
	writePNG(t, filepath.Join(imgDir, "a.png"), 4, 4, false, 200)
	writePNG(t, filepath.Join(maskDir, "a.png"), 4, 4, true, 255)

	ds, err := data.New(imgDir, maskDir)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	it, err := ds.Item(0)
	require.NoError(t, err)
	s := it.(data.Sample)

	require.Equal(t, []int64{3, 4, 4}, s.Image.MustSize())
	require.Equal(t, []int64{4, 4}, s.Mask.MustSize())

	for _, v := range s.Image.Float64Values() {
		require.True(t, v >= 0 && v <= 1, "image value %v out of [0,1]", v)
	}
	// mask written at 255 scales to 1.0
	for _, v := range s.Mask.Float64Values() {
		require.InDelta(t, 1.0, v, 1e-6)
	}

	s.Image.MustDrop()
	s.Mask.MustDrop()
}

func TestLenCountsInputFiles(t *testing.T) {
	imgDir, maskDir := newDirs(t)
	names := []string{"a.png", "b.png", "c.png"}
	for _, n := range names {
		writePNG(t, filepath.Join(imgDir, n), 4, 4, false, 10)
		writePNG(t, filepath.Join(maskDir, n), 4, 4, true, 0)
	}

	ds, err := data.New(imgDir, maskDir)
	require.NoError(t, err)
	require.Equal(t, len(names), ds.Len())
}

// Mask matching is by stem, so a .png input may pair with a .jpeg mask.
func TestMaskMatchedByStem(t *testing.T) {
	imgDir, maskDir := newDirs(t)
	writePNG(t, filepath.Join(imgDir, "a.png"), 4, 4, false, 10)

	require.NoError(t, os.MkdirAll(maskDir, 0755))
	f, err := os.Create(filepath.Join(maskDir, "a.jpeg"))
	require.NoError(t, err)
	g := image.NewGray(image.Rect(0, 0, 4, 4))
	require.NoError(t, jpeg.Encode(f, g, nil))
	require.NoError(t, f.Close())

	ds, err := data.New(imgDir, maskDir)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	_, err = ds.Item(0)
	require.NoError(t, err)
}

func TestMissingMaskFailsConstruction(t *testing.T) {
	imgDir, maskDir := newDirs(t)
	writePNG(t, filepath.Join(imgDir, "a.png"), 4, 4, false, 10)
	writePNG(t, filepath.Join(imgDir, "b.png"), 4, 4, false, 10)
	writePNG(t, filepath.Join(maskDir, "a.png"), 4, 4, true, 0)

	_, err := data.New(imgDir, maskDir)
	require.Error(t, err)
	require.True(t, errors.Is(err, data.ErrMissingMask), "got %v", err)
}

func TestShapeMismatch(t *testing.T) {
	imgDir, maskDir := newDirs(t)
	writePNG(t, filepath.Join(imgDir, "a.png"), 4, 4, false, 10)
	writePNG(t, filepath.Join(maskDir, "a.png"), 5, 4, true, 0)

	ds, err := data.New(imgDir, maskDir)
	require.NoError(t, err)

	_, err = ds.Item(0)
	require.Error(t, err)
	require.True(t, errors.Is(err, data.ErrShapeMismatch), "got %v", err)
}
