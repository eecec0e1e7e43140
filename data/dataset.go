package data

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	ts "github.com/sugarme/gotch/tensor"
)

var (
	// ErrMissingMask reports an input image with no matching mask file.
	ErrMissingMask = errors.New("mask file not found for input image")
	// ErrShapeMismatch reports an image and mask with different spatial
	// dimensions.
	ErrShapeMismatch = errors.New("image and mask spatial dimensions differ")
)

// maskExts are the extensions probed when the mask file does not share the
// input file's extension.
var maskExts = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff"}

// Sample is one (image, mask) pair. Image: [3 H W] float in [0, 1].
// Mask: [H W] float scaled by 1/255.
type Sample struct {
	Image ts.Tensor
	Mask  ts.Tensor
}

type item struct {
	input string
	mask  string
}

// SegDataset maps two parallel directories (inputs, masks) to indexed
// tensor pairs. Files are matched by stem filename. It implements
// dutil.Dataset.
type SegDataset struct {
	inputDir  string
	maskDir   string
	items     []item
	transform Transform
}

// Option configures a SegDataset.
type Option func(*SegDataset)

// WithTransform installs a transform applied to each decoded pair before
// tensor conversion. None is installed by default.
func WithTransform(t Transform) Option {
	return func(ds *SegDataset) {
		ds.transform = t
	}
}

// New creates a SegDataset over inputDir and maskDir. Every input filename
// must have a matching mask file (same stem); a missing mask fails
// construction with ErrMissingMask rather than at access time.
func New(inputDir, maskDir string, opts ...Option) (*SegDataset, error) {
	ds := &SegDataset{
		inputDir: inputDir,
		maskDir:  maskDir,
	}
	for _, o := range opts {
		o(ds)
	}

	files, err := ioutil.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if f.IsDir() {
			continue
		}

		maskPath, err := resolveMask(maskDir, f.Name())
		if err != nil {
			return nil, err
		}
		ds.items = append(ds.items, item{
			input: filepath.Join(inputDir, f.Name()),
			mask:  maskPath,
		})
	}

	return ds, nil
}

// resolveMask locates the mask file matching an input filename: first the
// identical name, then the stem with any supported extension.
func resolveMask(maskDir, fname string) (string, error) {
	p := filepath.Join(maskDir, fname)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}

	stem := strings.TrimSuffix(fname, filepath.Ext(fname))
	for _, ext := range maskExts {
		p := filepath.Join(maskDir, stem+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", errors.Wrapf(ErrMissingMask, "input %q", fname)
}

// Len returns the number of files in the input directory.
func (ds *SegDataset) Len() int {
	return len(ds.items)
}

// Item implements dutil.Dataset. It decodes the input and mask images of
// sample idx and returns them as a Sample.
func (ds *SegDataset) Item(idx int) (interface{}, error) {
	it := ds.items[idx]

	img, err := readImage(it.input)
	if err != nil {
		return nil, errors.Wrapf(err, "input %q", it.input)
	}

	mask, err := readImage(it.mask)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(ErrMissingMask, "mask %q", it.mask)
		}
		return nil, errors.Wrapf(err, "mask %q", it.mask)
	}

	if ds.transform != nil {
		img, mask = ds.transform(img, mask)
	}

	ib := img.Bounds()
	mb := mask.Bounds()
	if ib.Dx() != mb.Dx() || ib.Dy() != mb.Dy() {
		return nil, errors.Wrapf(ErrShapeMismatch, "input %vx%v vs mask %vx%v (%q)",
			ib.Dx(), ib.Dy(), mb.Dx(), mb.Dy(), it.input)
	}

	imgTs := imageToTensor(img)
	maskTs := maskToTensor(mask)

	return Sample{
		Image: *imgTs,
		Mask:  *maskTs,
	}, nil
}

// DType implements dutil.Dataset.
func (ds *SegDataset) DType() reflect.Type {
	return reflect.TypeOf(Sample{})
}
