package engine

import (
	"io"
	"os"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/pkg/errors"

	"relab/internal/errs"
)

const (
	metaIndex       = "relab.index"
	metaFingerprint = "relab.fingerprint"
)

// WriteSnapshot encodes t as an Arrow IPC file. The index becomes the first
// field; fingerprint is kept in the schema metadata.
func WriteSnapshot(w io.Writer, t *Table, fingerprint string) error {
	fields := make([]arrow.Field, 0, len(t.Columns)+1)
	fields = append(fields, arrow.Field{Name: t.IndexName, Type: arrow.BinaryTypes.String})
	for _, c := range t.Columns {
		typ := arrow.DataType(arrow.BinaryTypes.String)
		if c.Kind == KindNumber {
			typ = arrow.PrimitiveTypes.Float64
		}
		fields = append(fields, arrow.Field{Name: c.Name, Type: typ, Nullable: true})
	}
	md := arrow.NewMetadata(
		[]string{metaIndex, metaFingerprint},
		[]string{t.IndexName, fingerprint},
	)
	schema := arrow.NewSchema(fields, &md)

	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()

	b.Field(0).(*array.StringBuilder).AppendValues(t.Keys, nil)
	for j := range t.Columns {
		c := &t.Columns[j]
		valid := make([]bool, len(c.Null))
		for i, null := range c.Null {
			valid[i] = !null
		}
		switch c.Kind {
		case KindNumber:
			b.Field(j+1).(*array.Float64Builder).AppendValues(c.Numbers, valid)
		default:
			b.Field(j+1).(*array.StringBuilder).AppendValues(c.Strings, valid)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	wr, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		return errors.Wrap(err, "create snapshot writer")
	}
	if err := wr.Write(rec); err != nil {
		wr.Close()
		return errors.Wrap(err, "write snapshot")
	}
	return errors.Wrap(wr.Close(), "close snapshot")
}

// ReadSnapshot decodes a table written by WriteSnapshot and returns it with
// the fingerprint it was stored under.
func ReadSnapshot(r ipc.ReadAtSeeker) (*Table, string, error) {
	pool := memory.NewGoAllocator()
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(pool))
	if err != nil {
		return nil, "", errors.Wrapf(errs.ErrParse, "open snapshot: %v", err)
	}
	defer fr.Close()

	schema := fr.Schema()
	md := schema.Metadata()
	if schema.NumFields() == 0 {
		return nil, "", errors.Wrap(errs.ErrParse, "snapshot has no index field")
	}

	t := &Table{IndexName: schema.Field(0).Name}
	if i := md.FindKey(metaIndex); i >= 0 {
		t.IndexName = md.Values()[i]
	}
	var fingerprint string
	if i := md.FindKey(metaFingerprint); i >= 0 {
		fingerprint = md.Values()[i]
	}

	for _, f := range schema.Fields()[1:] {
		kind := KindString
		if f.Type.ID() == arrow.FLOAT64 {
			kind = KindNumber
		}
		t.Columns = append(t.Columns, Column{Name: f.Name, Kind: kind})
	}

	for n := 0; n < fr.NumRecords(); n++ {
		rec, err := fr.Record(n)
		if err != nil {
			return nil, "", errors.Wrapf(errs.ErrParse, "read snapshot record %d: %v", n, err)
		}
		if err := appendRecord(t, rec); err != nil {
			return nil, "", err
		}
	}
	return t, fingerprint, nil
}

func appendRecord(t *Table, rec arrow.Record) error {
	keys, ok := rec.Column(0).(*array.String)
	if !ok {
		return errors.Wrap(errs.ErrParse, "snapshot index is not a string column")
	}
	for i := 0; i < keys.Len(); i++ {
		t.Keys = append(t.Keys, keys.Value(i))
	}

	for j := range t.Columns {
		c := &t.Columns[j]
		switch arr := rec.Column(j + 1).(type) {
		case *array.Float64:
			for i := 0; i < arr.Len(); i++ {
				null := arr.IsNull(i)
				v := 0.0
				if !null {
					v = arr.Value(i)
				}
				c.Numbers = append(c.Numbers, v)
				c.Null = append(c.Null, null)
			}
		case *array.String:
			for i := 0; i < arr.Len(); i++ {
				null := arr.IsNull(i)
				v := ""
				if !null {
					v = arr.Value(i)
				}
				c.Strings = append(c.Strings, v)
				c.Null = append(c.Null, null)
			}
		default:
			return errors.Wrapf(errs.ErrParse, "snapshot column %s has type %s", c.Name, arr.DataType())
		}
	}
	return nil
}

// SaveSnapshot writes the snapshot of t to path.
func SaveSnapshot(path string, t *Table, fingerprint string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteSnapshot(f, t, fingerprint); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSnapshot reads the snapshot stored at path.
func LoadSnapshot(path string) (*Table, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", errors.Wrapf(errs.ErrNotFound, "snapshot %s: %v", path, err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}
