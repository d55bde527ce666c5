// Package errs holds the error kinds shared by the archive, engine and spectra
// packages. Callers test for them with errors.Is.
package errs

import "errors"

var (
	// ErrNotFound is returned when the archive, an archive entry or a table
	// column does not exist.
	ErrNotFound = errors.New("not found")

	// ErrParse is returned when a spreadsheet or spectrum file is malformed.
	ErrParse = errors.New("parse error")

	// ErrKey is returned when a sample identifier is not in the master table.
	ErrKey = errors.New("unknown key")
)
