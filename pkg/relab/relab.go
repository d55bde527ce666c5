// Package relab reads a RELAB spectral library archive: it merges the sample
// and spectra catalogues into a master table, answers queries against it and
// retrieves, parses and plots the matching spectra.
//
// Usage:
//
//	store, err := relab.Open(relab.DefaultOptions(), log)
//	sel, refs, err := store.Query("GeneralType1", "Synthetic", true)
//	paths, err := store.ShowSpectra(refs)
package relab

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"relab/internal/archive"
	"relab/internal/engine"
	"relab/internal/errs"
	"relab/internal/spectra"
)

// Error kinds. Test with errors.Is.
var (
	ErrNotFound = errs.ErrNotFound
	ErrParse    = errs.ErrParse
	ErrKey      = errs.ErrKey
)

type (
	Table     = engine.Table
	Selection = engine.Selection
	Ref       = spectra.Ref
	Spectrum  = spectra.Spectrum
)

// Catalogue sheet names inside the archive.
const (
	SampleCatalogue  = "Sample_Catalogue"
	SpectraCatalogue = "Spectra_Catalogue"
)

// Options configures a Store. Relative output paths resolve against WorkDir.
type Options struct {
	Archive string
	WorkDir string

	CataloguePrefix string
	CatalogueSuffix string
	Missing         []string
	// ExtractSheets copies the catalogue workbooks under WorkDir as they are parsed.
	ExtractSheets bool

	// Layout is a spectra.LayoutByName name: "sample" or "prefix".
	Layout   string
	ListFile string
	PlotDir  string
}

// DefaultOptions returns the options of a stock RELAB download.
func DefaultOptions() Options {
	return Options{
		Archive:         "RelabDB2017Dec31.zip",
		WorkDir:         ".",
		CataloguePrefix: "catalogues/",
		CatalogueSuffix: "xls",
		Missing:         engine.DefaultMissing,
		ExtractSheets:   true,
		Layout:          "sample",
		ListFile:        "specta_list_query.txt",
		PlotDir:         "plots",
	}
}

// Store is an opened library with its master table. It is meant for a
// single caller; the archive stays open until Close.
type Store struct {
	opts   Options
	log    *zap.Logger
	arch   *archive.Archive
	fp     string
	cat    map[string]string
	layout spectra.Layout
	table  *engine.Table
}

// Open opens the archive, indexes its catalogues and loads the master table,
// from the snapshot when one exists for this archive version.
func Open(opts Options, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	layout, err := spectra.LayoutByName(opts.Layout)
	if err != nil {
		return nil, err
	}

	arch, err := archive.Open(opts.Archive)
	if err != nil {
		return nil, err
	}

	s := &Store{
		opts:   opts,
		log:    log.With(zap.String("archive", opts.Archive)),
		arch:   arch,
		fp:     arch.Fingerprint(),
		cat:    arch.Index(opts.CataloguePrefix, opts.CatalogueSuffix),
		layout: layout,
	}
	if err := s.loadCatalogue(); err != nil {
		arch.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the archive.
func (s *Store) Close() error {
	return s.arch.Close()
}

// Table returns the master table.
func (s *Store) Table() *engine.Table { return s.table }

// Columns lists the master-table columns.
func (s *Store) Columns() []string { return s.table.ColumnNames() }

// Catalogues returns the catalogue index: sheet name to archive entry.
func (s *Store) Catalogues() map[string]string { return s.cat }

// Fingerprint identifies the archive version the master table belongs to.
func (s *Store) Fingerprint() string { return s.fp }

// --- CATALOGUE ---

// SnapshotPath returns where the master-table snapshot of this archive lives.
func (s *Store) SnapshotPath() string {
	return filepath.Join(s.catalogueDir(), "Master_catalogue-"+s.fp+".arrow")
}

// ExportPath returns where the tab-separated master table is written.
func (s *Store) ExportPath() string {
	return filepath.Join(s.catalogueDir(), "Master_catalogue.dat")
}

func (s *Store) catalogueDir() string {
	return filepath.Join(s.opts.WorkDir, "catalogues")
}

// Rebuild discards the snapshot and parses the catalogues again.
func (s *Store) Rebuild() error {
	if err := os.Remove(s.SnapshotPath()); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove snapshot")
	}
	return s.loadCatalogue()
}

func (s *Store) loadCatalogue() error {
	snap, fp := s.SnapshotPath(), s.fp

	if _, err := os.Stat(snap); err == nil {
		t, stored, err := engine.LoadSnapshot(snap)
		switch {
		case err != nil:
			s.log.Warn("unreadable snapshot, rebuilding", zap.String("snapshot", snap), zap.Error(err))
		case stored != fp:
			s.log.Warn("snapshot fingerprint mismatch, rebuilding", zap.String("snapshot", snap), zap.String("stored", stored))
		default:
			s.table = t
			s.log.Info("master catalogue loaded", zap.String("snapshot", snap), zap.Int("rows", t.Len()))
			return nil
		}
	}

	return s.buildMaster(snap, fp)
}

func (s *Store) buildMaster(snap, fp string) error {
	start := time.Now()

	samples, err := s.loadSheet(SampleCatalogue)
	if err != nil {
		return err
	}
	spectraCat, err := s.loadSheet(SpectraCatalogue)
	if err != nil {
		return err
	}
	master := engine.InnerJoin(samples, spectraCat, engine.IndexName)

	if err := os.MkdirAll(s.catalogueDir(), 0755); err != nil {
		return errors.Wrap(err, "create catalogue directory")
	}
	if err := engine.ExportTSV(s.ExportPath(), master); err != nil {
		return err
	}
	if err := engine.SaveSnapshot(snap, master, fp); err != nil {
		return err
	}
	s.removeStaleSnapshots(snap)

	s.table = master
	s.log.Info("master catalogue built",
		zap.Int("samples", samples.Len()),
		zap.Int("spectra", spectraCat.Len()),
		zap.Int("rows", master.Len()),
		zap.Int("columns", len(master.Columns)),
		zap.String("snapshot", snap),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// removeStaleSnapshots deletes the snapshots of other archive versions.
func (s *Store) removeStaleSnapshots(keep string) {
	stale, err := filepath.Glob(filepath.Join(s.catalogueDir(), "Master_catalogue-*.arrow"))
	if err != nil {
		s.log.Warn("list snapshots", zap.Error(err))
		return
	}
	for _, p := range stale {
		if p == keep {
			continue
		}
		if err := os.Remove(p); err != nil {
			s.log.Warn("remove stale snapshot", zap.String("snapshot", p), zap.Error(err))
			continue
		}
		s.log.Info("stale snapshot removed", zap.String("snapshot", p))
	}
}

// loadSheet parses one catalogue workbook into a table keyed by SampleID.
func (s *Store) loadSheet(name string) (*engine.Table, error) {
	entry, ok := s.cat[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "catalogue %s under %s", name, s.opts.CataloguePrefix)
	}
	if s.opts.ExtractSheets {
		if _, err := s.arch.Extract(entry, s.opts.WorkDir); err != nil {
			return nil, err
		}
	}
	data, err := s.arch.ReadFile(entry)
	if err != nil {
		return nil, err
	}

	missing := s.opts.Missing
	if missing == nil {
		missing = engine.DefaultMissing
	}
	t, err := engine.LoadSheet(data, entry, engine.SheetOptions{Key: engine.IndexName, Missing: missing})
	if err != nil {
		return nil, err
	}
	s.log.Debug("catalogue parsed", zap.String("sheet", name), zap.Int("rows", t.Len()), zap.Int("columns", len(t.Columns)))
	return t, nil
}
