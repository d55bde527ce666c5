package spectra

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Axis labels of every spectrum plot.
const (
	XLabel = "Wavelength"
	YLabel = "Reflectance"
)

var (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// Render draws s as a scatter plot and writes it to w in format
// ("png", "svg", "pdf", ...).
func Render(s *Spectrum, w io.Writer, format string) error {
	p := plot.New()
	p.Title.Text = s.SpectrumID
	if s.SampleID != "" {
		p.Title.Text = s.SampleID + " " + s.SpectrumID
	}
	p.X.Label.Text = XLabel
	p.Y.Label.Text = YLabel
	p.Add(plotter.NewGrid())

	sc, err := plotter.NewScatter(s)
	if err != nil {
		return errors.Wrap(err, "build scatter")
	}
	sc.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(sc)

	wt, err := p.WriterTo(plotWidth, plotHeight, format)
	if err != nil {
		return errors.Wrapf(err, "render %s", format)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG renders s into dir and returns the written file path. The file is
// named after the spectrum's archive path.
func SavePNG(s *Spectrum, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "create plot directory")
	}
	name := strings.ReplaceAll(strings.TrimSuffix(s.Path, ".txt"), "/", "_") + ".png"
	if s.Path == "" {
		name = strings.ToLower(s.SpectrumID) + ".png"
	}
	dest := filepath.Join(dir, name)

	f, err := os.Create(dest)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", dest)
	}
	if err := Render(s, f, "png"); err != nil {
		f.Close()
		return "", err
	}
	return dest, f.Close()
}
