// Package spectra locates spectrum files for selected catalogue rows,
// extracts them from the archive, parses them and plots them.
package spectra

import (
	"strings"

	"github.com/pkg/errors"

	"relab/internal/errs"
)

// Layout derives the archive path of a spectrum from a sample key and a
// spectrum identifier.
type Layout func(sampleID, spectrumID string) (string, error)

// SampleDirLayout files spectra as data/<group>/<sample>/<spectrum>.txt where
// group is the second "-" token of the lower-cased key and sample is the
// whole lower-cased key: AA-A1S-001, C1SP05 -> data/a1s/aa-a1s-001/c1sp05.txt.
func SampleDirLayout(sampleID, spectrumID string) (string, error) {
	key, tokens, err := splitKey(sampleID, spectrumID)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{"data", tokens[1], key, strings.ToLower(spectrumID) + ".txt"}, "/"), nil
}

// PrefixDirLayout files spectra as data/<group>/<prefix>/<spectrum>.txt:
// AA-A1S-001, C1SP05 -> data/a1s/aa/c1sp05.txt.
func PrefixDirLayout(sampleID, spectrumID string) (string, error) {
	_, tokens, err := splitKey(sampleID, spectrumID)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{"data", tokens[1], tokens[0], strings.ToLower(spectrumID) + ".txt"}, "/"), nil
}

// LayoutByName resolves a configured layout name: "sample" (default) or "prefix".
func LayoutByName(name string) (Layout, error) {
	switch name {
	case "", "sample":
		return SampleDirLayout, nil
	case "prefix":
		return PrefixDirLayout, nil
	default:
		return nil, errors.Errorf("unknown spectra layout %q", name)
	}
}

func splitKey(sampleID, spectrumID string) (string, []string, error) {
	key := strings.ToLower(strings.TrimSpace(sampleID))
	tokens := strings.Split(key, "-")
	if len(tokens) < 2 || tokens[0] == "" || tokens[1] == "" {
		return "", nil, errors.Wrapf(errs.ErrParse, "sample id %q has no group token", sampleID)
	}
	if strings.TrimSpace(spectrumID) == "" {
		return "", nil, errors.Wrapf(errs.ErrParse, "sample %q has no spectrum id", sampleID)
	}
	return key, tokens, nil
}
