package spectra

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"relab/internal/errs"
)

// HeaderLines is the number of leading lines skipped in a spectrum file.
const HeaderLines = 2

// Spectrum is a parsed spectrum file.
type Spectrum struct {
	Ref
	Wavelength  []float64 `json:"wavelength"`
	Reflectance []float64 `json:"reflectance"`
}

// Len returns the number of samples.
func (s *Spectrum) Len() int { return len(s.Wavelength) }

// XY returns sample i as (wavelength, reflectance).
func (s *Spectrum) XY(i int) (float64, float64) {
	return s.Wavelength[i], s.Reflectance[i]
}

// Parse reads a spectrum file: HeaderLines lines of header, then rows of at
// least two whitespace- or tab-separated numbers (wavelength, reflectance).
// Blank lines and lines starting with '#' are ignored.
func Parse(r io.Reader) (*Spectrum, error) {
	s := &Spectrum{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if line <= HeaderLines {
			continue
		}
		text := strings.TrimSpace(strings.TrimRight(sc.Text(), "\r"))
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, errors.Wrapf(errs.ErrParse, "line %d: want 2 columns, got %d", line, len(fields))
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, errors.Wrapf(errs.ErrParse, "line %d: wavelength %q", line, fields[0])
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, errors.Wrapf(errs.ErrParse, "line %d: reflectance %q", line, fields[1])
		}
		s.Wavelength = append(s.Wavelength, x)
		s.Reflectance = append(s.Reflectance, y)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read spectrum")
	}
	if s.Len() == 0 {
		return nil, errors.Wrap(errs.ErrParse, "no data rows")
	}
	return s, nil
}
