package models

import (
	"relab/internal/engine"
	"relab/internal/spectra"
)

type ColumnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type Catalogue struct {
	Index       string       `json:"index"`
	Rows        int          `json:"rows"`
	Fingerprint string       `json:"fingerprint"`
	Columns     []ColumnInfo `json:"columns"`
}

// Row is one selected master-table row; null cells are omitted from Values.
type Row struct {
	SampleID string            `json:"sample_id"`
	Values   map[string]string `json:"values"`
}

type SelectionResult struct {
	Total   int           `json:"total"`
	Rows    []Row         `json:"rows"`
	Spectra []spectra.Ref `json:"spectra"`
	Errors  []string      `json:"errors,omitempty"`
}

type SpectrumPoint struct {
	Wavelength  float64 `json:"wavelength"`
	Reflectance float64 `json:"reflectance"`
}

type SpectrumData struct {
	Path   string          `json:"path"`
	Points []SpectrumPoint `json:"points"`
}

// NewCatalogue describes the columns of t.
func NewCatalogue(t *engine.Table, fingerprint string) Catalogue {
	c := Catalogue{Index: t.IndexName, Rows: t.Len(), Fingerprint: fingerprint, Columns: make([]ColumnInfo, 0, len(t.Columns))}
	for _, col := range t.Columns {
		c.Columns = append(c.Columns, ColumnInfo{Name: col.Name, Kind: col.Kind.String()})
	}
	return c
}

// NewRows renders the rows of sel.
func NewRows(sel engine.Selection) []Row {
	rows := make([]Row, 0, sel.Len())
	for i := 0; i < sel.Len(); i++ {
		r := Row{SampleID: sel.Key(i), Values: make(map[string]string)}
		for _, name := range sel.Table.ColumnNames() {
			if v, ok := sel.Cell(i, name); ok {
				r.Values[name] = v
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// NewSpectrumData flattens a parsed spectrum into points.
func NewSpectrumData(s *spectra.Spectrum) SpectrumData {
	d := SpectrumData{Path: s.Path, Points: make([]SpectrumPoint, s.Len())}
	for i := range d.Points {
		x, y := s.XY(i)
		d.Points[i] = SpectrumPoint{Wavelength: x, Reflectance: y}
	}
	return d
}
