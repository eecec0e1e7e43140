// Package summary logs training run metrics: time-series scalars flushed
// as CSV and line plots, and image batches written as PNG contact sheets.
package summary

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

type point struct {
	step  int
	value float64
}

// Writer is a run logger. Intended for single-goroutine use by the
// training loop.
type Writer struct {
	dir     string
	scalars map[string][]point
	names   []string // insertion order, for deterministic flush
}

// NewWriter creates a Writer rooted at dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Writer{
		dir:     dir,
		scalars: make(map[string][]point),
	}, nil
}

// LogScalar appends one (step, value) point to the named series.
func (w *Writer) LogScalar(name string, value float64, step int) {
	if _, ok := w.scalars[name]; !ok {
		w.names = append(w.names, name)
	}
	w.scalars[name] = append(w.scalars[name], point{step: step, value: value})
}

// Close flushes every scalar series as <name>.csv and <name>.png.
func (w *Writer) Close() error {
	for _, name := range w.names {
		if err := w.flushScalar(name); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) flushScalar(name string) error {
	pts := w.scalars[name]

	records := [][]string{{"step", "value"}}
	for _, p := range pts {
		records = append(records, []string{
			strconv.Itoa(p.step),
			strconv.FormatFloat(p.value, 'g', -1, 64),
		})
	}
	df := dataframe.LoadRecords(records)

	f, err := os.Create(w.path(name, ".csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := df.WriteCSV(f); err != nil {
		return err
	}

	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = name
	p.X.Label.Text = "step"

	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i].X = float64(pt.step)
		xys[i].Y = pt.value
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	p.Add(line)

	return p.Save(8*vg.Inch, 4*vg.Inch, w.path(name, ".png"))
}

func (w *Writer) path(name, ext string) string {
	return filepath.Join(w.dir, sanitize(name)+ext)
}

func (w *Writer) imagePath(name string, step int) string {
	return filepath.Join(w.dir, fmt.Sprintf("%v-%06d.png", sanitize(name), step))
}

// sanitize maps series names like "Loss/validation" to safe file stems.
func sanitize(name string) string {
	return strings.ReplaceAll(name, "/", "-")
}
