// Package archive opens the zipped spectral library and gives read-only,
// path-addressed access to its entries.
package archive

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"

	"relab/internal/errs"
)

// Archive is an opened zip library. It is never mutated after Open.
type Archive struct {
	path  string
	size  int64
	mtime int64
	zr    *zip.ReadCloser
	files map[string]*zip.File
}

// Open opens the archive at path. A missing file or a file that is not a
// zip archive yields an error matching errs.ErrNotFound.
func Open(path string) (*Archive, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrNotFound, "archive %s: %v", path, err)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrNotFound, "archive %s is not a valid zip: %v", path, err)
	}

	a := &Archive{
		path:  path,
		size:  fi.Size(),
		mtime: fi.ModTime().UnixNano(),
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		a.files[f.Name] = f
	}
	return a, nil
}

// Path returns the filesystem path the archive was opened from.
func (a *Archive) Path() string { return a.path }

// Names lists every entry path in archive order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.zr.File))
	for _, f := range a.zr.File {
		names = append(names, f.Name)
	}
	return names
}

// Has reports whether name is an entry of the archive.
func (a *Archive) Has(name string) bool {
	_, ok := a.files[name]
	return ok
}

// Open opens the named entry for streamed reads. The caller closes it.
func (a *Archive) Open(name string) (io.ReadCloser, error) {
	f, ok := a.files[name]
	if !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "entry %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open entry %s", name)
	}
	return rc, nil
}

// ReadFile returns the full contents of the named entry.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	rc, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "read entry %s", name)
	}
	return b, nil
}

// Extract copies the named entry to dir/name, creating parent directories,
// and returns the written path.
func (a *Archive) Extract(name, dir string) (string, error) {
	dest := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("entry %s escapes %s", name, dir)
	}

	rc, err := a.Open(name)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", errors.Wrap(err, "create extract directory")
	}
	out, err := os.Create(dest)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", dest)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return "", errors.Wrapf(err, "extract %s", name)
	}
	if err := out.Close(); err != nil {
		return "", errors.Wrapf(err, "close %s", dest)
	}
	return dest, nil
}

// Fingerprint identifies this version of the archive. It hashes the file
// size and modification time together with every entry's name, CRC-32 and
// uncompressed size, so it changes whenever the archive content does.
func (a *Archive) Fingerprint() string {
	h := xxh3.New()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(a.size))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(a.mtime))
	h.Write(buf[:])

	for _, f := range a.zr.File {
		h.WriteString(f.Name)
		binary.LittleEndian.PutUint32(buf[:4], f.CRC32)
		h.Write(buf[:4])
		binary.LittleEndian.PutUint64(buf[:], f.UncompressedSize64)
		h.Write(buf[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	return a.zr.Close()
}
