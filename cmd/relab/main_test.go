package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relab/internal/archive/archivetest"
	"relab/internal/models"
)

func library(t *testing.T) string {
	t.Helper()
	samples := archivetest.Workbook(t, [][]any{
		{"SampleID", "GeneralType1"},
		{"AA-A1S-001", "Mineral"},
		{"AA-A1S-002", "Synthetic"},
	})
	spectraCat := archivetest.Workbook(t, [][]any{
		{"SampleID", "SpectrumID"},
		{"AA-A1S-001", "C1SP05"},
		{"AA-A1S-002", "C1SP06"},
	})
	return archivetest.Write(t, t.TempDir(), "lib.zip",
		archivetest.Entry{Name: "catalogues/Sample_Catalogue.xlsx", Data: samples},
		archivetest.Entry{Name: "catalogues/Spectra_Catalogue.xlsx", Data: spectraCat},
		archivetest.Entry{Name: "data/a1s/aa-a1s-001/c1sp05.txt", Data: []byte("h\nh\n300\t0.1\n310\t0.2\n")},
	)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("RELAB_CATALOGUES_SUFFIX", "xlsx")
	t.Setenv("RELAB_LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestColumnsCommand(t *testing.T) {
	out, err := run(t, "columns", "--archive", library(t), "--workdir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "Sample_Catalogue")
	assert.Contains(t, out, "GeneralType1")
	assert.Contains(t, out, "SpectrumID")
}

func TestQueryCommand(t *testing.T) {
	work := t.TempDir()
	out, err := run(t, "query", "GeneralType1", "Mineral", "--extract", "--json",
		"--archive", library(t), "--workdir", work)
	require.NoError(t, err)

	var res models.SelectionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Spectra, 1)
	assert.FileExists(t, filepath.Join(work, "data", "a1s", "aa-a1s-001", "c1sp05.txt"))

	list, err := os.ReadFile(filepath.Join(work, "specta_list_query.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data/a1s/aa-a1s-001/c1sp05.txt\n", string(list))
}

func TestLocateCommandMissingSpectrum(t *testing.T) {
	out, err := run(t, "locate", "AA-A1S-002", "--archive", library(t), "--workdir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c1sp06.txt")
	assert.True(t, strings.HasPrefix(out, "1 rows"))
}

func TestPlotCommand(t *testing.T) {
	work := t.TempDir()
	out, err := run(t, "plot", "--id", "AA-A1S-001", "--archive", library(t), "--workdir", work)
	require.NoError(t, err)

	p := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(work, "plots", "data_a1s_aa-a1s-001_c1sp05.png"), p)
	assert.FileExists(t, p)

	_, err = run(t, "plot", "--archive", library(t), "--workdir", work)
	assert.Error(t, err)
}

func TestRebuildCommand(t *testing.T) {
	work := t.TempDir()
	out, err := run(t, "rebuild", "--archive", library(t), "--workdir", work)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, filepath.Join(work, "catalogues", "Master_catalogue.dat"), lines[0])
	assert.FileExists(t, lines[1])
}

func TestMissingArchive(t *testing.T) {
	_, err := run(t, "columns", "--archive", filepath.Join(t.TempDir(), "none.zip"))
	assert.Error(t, err)
}
