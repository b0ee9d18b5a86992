package models

import (
	"errors"
	"fmt"
)

// DataError is returned when input records cannot form a valid universe.
// Row is 1-based and zero when the problem is not tied to a single row.
type DataError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *DataError) Error() string {
	switch {
	case e.Row > 0 && e.Field != "":
		return fmt.Sprintf("data error: row %d, %s=%q: %s", e.Row, e.Field, e.Value, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("data error: %s=%q: %s", e.Field, e.Value, e.Reason)
	default:
		return fmt.Sprintf("data error: %s", e.Reason)
	}
}

// IsDataError reports whether err is or wraps a *DataError
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}
