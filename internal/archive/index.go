package archive

import (
	"path"
	"slices"
	"sort"
	"strings"

	"golang.org/x/exp/maps"
)

// Index maps a file stem to its entry path for every entry that lives
// directly under prefix and carries the given extension.
//
// Every entry is inspected; archives are not assumed to list entries grouped
// by directory. The extension comparison ignores case and a leading dot.
func (a *Archive) Index(prefix, suffix string) map[string]string {
	want := splitDir(prefix)
	suffix = strings.ToLower(strings.TrimPrefix(suffix, "."))

	out := make(map[string]string)
	for _, f := range a.zr.File {
		name := f.Name
		if strings.HasSuffix(name, "/") {
			continue
		}
		dir, file := path.Split(name)
		if !slices.Equal(splitDir(dir), want) {
			continue
		}
		ext := path.Ext(file)
		if strings.ToLower(strings.TrimPrefix(ext, ".")) != suffix {
			continue
		}
		out[strings.TrimSuffix(file, ext)] = name
	}
	return out
}

// SortedNames returns the keys of an index in lexical order.
func SortedNames(idx map[string]string) []string {
	names := maps.Keys(idx)
	sort.Strings(names)
	return names
}

func splitDir(dir string) []string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}
