package measurements

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported indicates a measurement file format that cannot be read.
var ErrUnsupported = errors.New("unsupported measurement file format")

// InsufficientDataError indicates that a required parameter has no usable
// values in the measurement table.
type InsufficientDataError struct {
	Param string
	Site  string
	// Rows is the number of matching rows found, including unparseable ones.
	Rows int
}

func (e *InsufficientDataError) Error() string {
	if e.Rows > 0 {
		return fmt.Sprintf("insufficient data for %s: %d rows labelled %q but none numeric", e.Param, e.Rows, e.Site)
	}
	return fmt.Sprintf("insufficient data for %s: no rows labelled %q", e.Param, e.Site)
}

// MissingColumnError indicates the measurement table lacks an expected column.
type MissingColumnError struct {
	Column    string
	Available []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("measurement table has no column %q (available: %s)", e.Column, strings.Join(e.Available, ", "))
}
