package domain

import (
	"errors"
	"fmt"
)

// Terminal load errors. Anything that happens after loading degrades
// locally instead of propagating; see the dataset package.
var (
	// ErrInputNotFound means a referenced data file does not exist.
	ErrInputNotFound = errors.New("input file not found")

	// ErrUnsupportedFormat means the file extension is not recognized.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// MissingFieldError reports a required column absent from a loaded table.
type MissingFieldError struct {
	Dataset string
	Field   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("dataset %s: required column %q is missing", e.Dataset, e.Field)
}

// IsTerminal reports whether err should halt the run rather than degrade.
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	var mf *MissingFieldError
	return errors.Is(err, ErrInputNotFound) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.As(err, &mf)
}
