package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relab/internal/archive/archivetest"
	"relab/internal/errs"
)

func fixture(t *testing.T) *Archive {
	t.Helper()
	p := archivetest.Write(t, t.TempDir(), "lib.zip",
		archivetest.Entry{Name: "catalogues/"},
		archivetest.Entry{Name: "catalogues/Sample_Catalogue.xls", Data: []byte("s")},
		archivetest.Entry{Name: "catalogues/Spectra_Catalogue.xls", Data: []byte("p")},
		archivetest.Entry{Name: "catalogues/readme.txt", Data: []byte("r")},
		archivetest.Entry{Name: "data/a1s/aa-a1s-001/c1sp05.txt", Data: []byte("spectrum")},
		archivetest.Entry{Name: "catalogues/old/Other.xls", Data: []byte("o")},
		// listed after another directory: a grouped-listing scan would miss it
		archivetest.Entry{Name: "catalogues/Late.XLS", Data: []byte("l")},
	)
	a, err := Open(p)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.zip"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestOpenNotZip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(p, []byte("definitely not a zip"), 0644))

	_, err := Open(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestIndex(t *testing.T) {
	a := fixture(t)

	idx := a.Index("catalogues/", "xls")
	assert.Equal(t, map[string]string{
		"Sample_Catalogue":  "catalogues/Sample_Catalogue.xls",
		"Spectra_Catalogue": "catalogues/Spectra_Catalogue.xls",
		"Late":              "catalogues/Late.XLS",
	}, idx)
	assert.Equal(t, []string{"Late", "Sample_Catalogue", "Spectra_Catalogue"}, SortedNames(idx))

	assert.Empty(t, a.Index("nowhere/", "xls"))
	assert.Equal(t, map[string]string{"Other": "catalogues/old/Other.xls"}, a.Index("catalogues/old", ".xls"))
	assert.Empty(t, a.Index("", "xls"))
}

func TestReadAndExtract(t *testing.T) {
	a := fixture(t)

	assert.True(t, a.Has("data/a1s/aa-a1s-001/c1sp05.txt"))
	assert.False(t, a.Has("data/missing.txt"))

	b, err := a.ReadFile("data/a1s/aa-a1s-001/c1sp05.txt")
	require.NoError(t, err)
	assert.Equal(t, "spectrum", string(b))

	dir := t.TempDir()
	dest, err := a.Extract("data/a1s/aa-a1s-001/c1sp05.txt", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "a1s", "aa-a1s-001", "c1sp05.txt"), dest)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "spectrum", string(got))

	_, err = a.Extract("data/missing.txt", dir)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	_, err = a.Extract("../outside.txt", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
	assert.False(t, errors.Is(err, errs.ErrNotFound))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "outside.txt"))
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	p1 := archivetest.Write(t, dir, "one.zip", archivetest.Entry{Name: "a.txt", Data: []byte("1")})
	p2 := archivetest.Write(t, dir, "two.zip", archivetest.Entry{Name: "a.txt", Data: []byte("2")})

	a1, err := Open(p1)
	require.NoError(t, err)
	defer a1.Close()
	a2, err := Open(p2)
	require.NoError(t, err)
	defer a2.Close()

	assert.Len(t, a1.Fingerprint(), 16)
	assert.Equal(t, a1.Fingerprint(), a1.Fingerprint())
	assert.NotEqual(t, a1.Fingerprint(), a2.Fingerprint())
}
