package engine

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/pkg/errors"
)

// NullToken renders a null cell in the text export.
const NullToken = "-"

// WriteTSV writes t as tab-separated text: a header row starting with the
// index name, then one line per row. Null cells are written as NullToken.
func WriteTSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	header := append([]string{t.IndexName}, t.ColumnNames()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(t.Columns)+1)
	for i, k := range t.Keys {
		record[0] = k
		for j := range t.Columns {
			v, ok := t.Columns[j].Text(i)
			if !ok {
				v = NullToken
			}
			record[j+1] = v
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportTSV writes the text export of t to path.
func ExportTSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteTSV(f, t); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}
