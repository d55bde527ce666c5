package relab

import (
	"iter"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"relab/internal/engine"
	"relab/internal/spectra"
)

// Query selects the master-table rows whose column field equals value and
// retrieves their spectra, extracting them under WorkDir when extract is set.
//
// An unknown field returns an error matching ErrNotFound and an empty
// selection. Spectra missing from the archive do not abort the call: the
// refs of the ones found are returned together with the combined error.
func (s *Store) Query(field, value string, extract bool) (Selection, []Ref, error) {
	sel, err := engine.Filter(s.table, field, value)
	if err != nil {
		return Selection{}, nil, err
	}
	s.log.Info("query", zap.String("field", field), zap.String("value", value), zap.Int("rows", sel.Len()))

	refs, err := s.Retrieve(sel, extract)
	return sel, refs, err
}

// Locate selects the rows of sampleID and retrieves their spectra.
// An unknown sampleID returns an error matching ErrKey.
func (s *Store) Locate(sampleID string, extract bool) (Selection, []Ref, error) {
	sel, err := engine.Locate(s.table, sampleID)
	if err != nil {
		return Selection{}, nil, err
	}
	s.log.Info("locate", zap.String("sample", sampleID), zap.Int("rows", sel.Len()))

	refs, err := s.Retrieve(sel, extract)
	return sel, refs, err
}

// Retrieve derives, checks and optionally extracts the spectra of sel, and
// rewrites the list file with the retrieved paths.
func (s *Store) Retrieve(sel Selection, extract bool) ([]Ref, error) {
	opts := spectra.Options{
		Layout:  s.layout,
		Extract: extract,
		Dir:     s.opts.WorkDir,
	}
	if s.opts.ListFile != "" {
		opts.ListFile = s.outputPath(s.opts.ListFile)
	}

	refs, err := spectra.Retrieve(s.arch, sel, opts)
	for _, e := range multierr.Errors(err) {
		s.log.Warn("spectrum skipped", zap.Error(e))
	}
	s.log.Debug("spectra retrieved", zap.Int("found", len(refs)), zap.Bool("extract", extract))
	return refs, err
}

// Spectra parses the spectra of refs one at a time. Each archive entry is
// opened, parsed and closed before the next one is read; a parse failure is
// yielded with a nil spectrum and iteration continues.
func (s *Store) Spectra(refs []Ref) iter.Seq2[*Spectrum, error] {
	return func(yield func(*Spectrum, error) bool) {
		for _, r := range refs {
			if !yield(s.readSpectrum(r)) {
				return
			}
		}
	}
}

// Spectrum parses the spectrum stored at an archive path.
func (s *Store) Spectrum(path string) (*Spectrum, error) {
	return s.readSpectrum(Ref{Path: path})
}

func (s *Store) readSpectrum(r Ref) (*Spectrum, error) {
	rc, err := s.arch.Open(r.Path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	sp, err := spectra.Parse(rc)
	if err != nil {
		return nil, errors.WithMessage(err, r.Path)
	}
	sp.Ref = r
	return sp, nil
}

// ShowSpectra renders one PNG scatter plot per spectrum of refs into the
// plot directory and returns the written files in order. Spectra that fail
// to parse or render are skipped and reported in the combined error.
func (s *Store) ShowSpectra(refs []Ref) ([]string, error) {
	dir := s.outputPath(s.opts.PlotDir)

	var (
		paths  []string
		failed error
	)
	for sp, err := range s.Spectra(refs) {
		if err != nil {
			failed = multierr.Append(failed, err)
			continue
		}
		p, err := spectra.SavePNG(sp, dir)
		if err != nil {
			failed = multierr.Append(failed, errors.WithMessage(err, sp.Path))
			continue
		}
		s.log.Info("spectrum plotted", zap.String("spectrum", sp.Path), zap.String("file", p))
		paths = append(paths, p)
	}
	return paths, failed
}

func (s *Store) outputPath(p string) string {
	if p == "" {
		p = "."
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.opts.WorkDir, p)
}
