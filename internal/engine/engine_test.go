package engine

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relab/internal/errs"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := BuildTable([][]string{
		{"SampleID", "SampleName", "GeneralType1", "Source"},
		{"AA-A1S-001", "Olivine", "Mineral", "lab"},
		{"AA-A1S-002", "Tholin", "Synthetic", "lab"},
		{"BB-TJM-010", "Basalt", "Rock", "   "},
		{"CC-XYZ-001", "Lonely", "Mineral", "field"},
	}, SheetOptions{Key: "SampleID", Missing: DefaultMissing})
	require.NoError(t, err)
	return tbl
}

func spectraTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := BuildTable([][]string{
		{"SampleID", "SpectrumID", "Resolution", "Source"},
		{"AA-A1S-001", "C1SP05", "5", "bd"},
		{"AA-A1S-001", "C2SP05", "10", "bd"},
		{"AA-A1S-002", "C1SP06", "5", "bd"},
		{"BB-TJM-010", "C1TJ10", "", "ft"},
		{"ZZ-NOS-999", "C9ZZ99", "5", "bd"},
	}, SheetOptions{Key: "SampleID", Missing: DefaultMissing})
	require.NoError(t, err)
	return tbl
}

func TestInnerJoin(t *testing.T) {
	left, right := sampleTable(t), spectraTable(t)

	master := InnerJoin(left, right, IndexName)

	// Cardinality: sum over shared keys of left count * right count
	want := 0
	for _, lk := range left.Keys {
		for _, rk := range right.Keys {
			if lk == rk {
				want++
			}
		}
	}
	assert.Equal(t, want, master.Len())
	assert.Equal(t, 4, master.Len())

	assert.Equal(t, IndexName, master.IndexName)
	assert.Equal(t, []string{"AA-A1S-001", "AA-A1S-001", "AA-A1S-002", "BB-TJM-010"}, master.Keys)
	assert.Equal(t, []string{
		"SampleName", "GeneralType1", "Source_x",
		"SpectrumID", "Resolution", "Source_y",
	}, master.ColumnNames())

	ids, _ := master.Column("SpectrumID")
	assert.Equal(t, []string{"C1SP05", "C2SP05", "C1SP06", "C1TJ10"}, ids.Strings)

	res, _ := master.Column("Resolution")
	assert.Equal(t, KindNumber, res.Kind)
	assert.Equal(t, []bool{false, false, false, true}, res.Null)

	src, _ := master.Column("Source_x")
	assert.Equal(t, []bool{false, false, false, true}, src.Null)
}

func TestFilter(t *testing.T) {
	master := InnerJoin(sampleTable(t), spectraTable(t), IndexName)

	tests := []struct {
		name  string
		field string
		value string
		keys  []string
	}{
		{"string column", "GeneralType1", "Synthetic", []string{"AA-A1S-002"}},
		{"repeated key", "GeneralType1", "Mineral", []string{"AA-A1S-001", "AA-A1S-001"}},
		{"exact match only", "GeneralType1", "synthetic", []string{}},
		{"number column", "Resolution", "5", []string{"AA-A1S-001", "AA-A1S-002"}},
		{"number column float form", "Resolution", "10.0", []string{"AA-A1S-001"}},
		{"unparsable number", "Resolution", "five", []string{}},
		{"null never matches", "Source_x", "-", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Filter(master, tt.field, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.keys, sel.Keys())
			for i := 0; i < sel.Len(); i++ {
				v, ok := sel.Cell(i, tt.field)
				require.True(t, ok)
				assert.NotEmpty(t, v)
			}
		})
	}
}

func TestFilterUnknownField(t *testing.T) {
	master := InnerJoin(sampleTable(t), spectraTable(t), IndexName)

	prior, err := Filter(master, "GeneralType1", "Rock")
	require.NoError(t, err)

	sel, err := Filter(master, "NoSuchColumn", "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.Equal(t, 0, sel.Len())
	assert.Equal(t, []string{"BB-TJM-010"}, prior.Keys())
}

func TestLocate(t *testing.T) {
	master := InnerJoin(sampleTable(t), spectraTable(t), IndexName)

	sel, err := Locate(master, "AA-A1S-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"AA-A1S-001", "AA-A1S-001"}, sel.Keys())
	v, ok := sel.Cell(1, "SpectrumID")
	require.True(t, ok)
	assert.Equal(t, "C2SP05", v)

	_, err = Locate(master, "ZZ-NOS-999")
	assert.True(t, errors.Is(err, errs.ErrKey))
}

func TestAll(t *testing.T) {
	master := InnerJoin(sampleTable(t), spectraTable(t), IndexName)
	assert.Equal(t, master.Keys, All(master).Keys())
}

func TestSnapshotRoundTrip(t *testing.T) {
	master := InnerJoin(sampleTable(t), spectraTable(t), IndexName)

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, master, "00000000deadbeef"))

	got, fp, err := ReadSnapshot(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "00000000deadbeef", fp)
	if diff := cmp.Diff(master, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotFiles(t *testing.T) {
	master := InnerJoin(sampleTable(t), spectraTable(t), IndexName)
	p := filepath.Join(t.TempDir(), "Master_catalogue.arrow")

	require.NoError(t, SaveSnapshot(p, master, "fp"))
	got, fp, err := LoadSnapshot(p)
	require.NoError(t, err)
	assert.Equal(t, "fp", fp)
	assert.Empty(t, cmp.Diff(master, got, cmpopts.EquateEmpty()))

	_, _, err = LoadSnapshot(filepath.Join(t.TempDir(), "missing.arrow"))
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	_, _, err = ReadSnapshot(bytes.NewReader([]byte("garbage")))
	assert.True(t, errors.Is(err, errs.ErrParse))
}

func TestWriteTSV(t *testing.T) {
	master := InnerJoin(sampleTable(t), spectraTable(t), IndexName)

	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, master))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "SampleID\tSampleName\tGeneralType1\tSource_x\tSpectrumID\tResolution\tSource_y", lines[0])
	assert.Equal(t, "AA-A1S-001\tOlivine\tMineral\tlab\tC1SP05\t5\tbd", lines[1])
	assert.Equal(t, "BB-TJM-010\tBasalt\tRock\t-\tC1TJ10\t-\tft", lines[4])
}
