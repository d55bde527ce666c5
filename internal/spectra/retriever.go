package spectra

import (
	"bufio"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"relab/internal/engine"
	"relab/internal/errs"
)

// SpectrumColumn names the master-table column holding spectrum identifiers.
const SpectrumColumn = "SpectrumID"

// Source is the archive as seen by the retriever.
type Source interface {
	Has(name string) bool
	Extract(name, dir string) (string, error)
}

// Ref points at one spectrum of a selection.
type Ref struct {
	SampleID   string `json:"sample_id"`
	SpectrumID string `json:"spectrum_id"`
	Path       string `json:"path"`
	// Local is the extracted copy; empty when not extracted.
	Local string `json:"local,omitempty"`
}

// Options controls Retrieve.
type Options struct {
	Layout Layout
	// Extract copies each spectrum under Dir.
	Extract bool
	Dir     string
	// ListFile, when set, is overwritten with one retrieved path per line.
	ListFile string
}

// Retrieve derives the archive path of every selected row's spectrum.
//
// A row whose path cannot be derived, or whose entry is not in the archive,
// is skipped and its error collected; the remaining rows are still
// processed. The returned error combines every collected error.
func Retrieve(src Source, sel engine.Selection, opts Options) ([]Ref, error) {
	if sel.Table == nil {
		return nil, nil
	}
	if _, ok := sel.Table.Column(SpectrumColumn); !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "column %q", SpectrumColumn)
	}
	layout := opts.Layout
	if layout == nil {
		layout = SampleDirLayout
	}

	var (
		refs   []Ref
		failed error
		seen   = make(map[string]bool)
	)
	for i := 0; i < sel.Len(); i++ {
		key := sel.Key(i)
		spectrumID, _ := sel.Cell(i, SpectrumColumn)

		p, err := layout(key, spectrumID)
		if err != nil {
			failed = multierr.Append(failed, err)
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true

		if !src.Has(p) {
			failed = multierr.Append(failed, errors.Wrapf(errs.ErrNotFound, "spectrum %s", p))
			continue
		}

		ref := Ref{SampleID: key, SpectrumID: spectrumID, Path: p}
		if opts.Extract {
			local, err := src.Extract(p, opts.Dir)
			if err != nil {
				failed = multierr.Append(failed, err)
				continue
			}
			ref.Local = local
		}
		refs = append(refs, ref)
	}

	if opts.ListFile != "" {
		if err := writeList(opts.ListFile, refs); err != nil {
			failed = multierr.Append(failed, err)
		}
	}
	return refs, failed
}

func writeList(path string, refs []Ref) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	w := bufio.NewWriter(f)
	for _, r := range refs {
		w.WriteString(r.Path)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}
