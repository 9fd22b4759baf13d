package domain

import (
	"errors"
	"fmt"
)

// ErrUnparsableTimestamp marks a row whose timestamp matched neither accepted
// format. The row is dropped by the loader, never escalated to a run failure.
var ErrUnparsableTimestamp = errors.New("unparsable timestamp")

// DataSourceError means the source itself is unusable: missing file,
// unreadable contents, or a structurally invalid table. It is fatal to the
// run: callers must halt rather than render a partial dataset.
type DataSourceError struct {
	Source string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %q: %v", e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// NewDataSourceError wraps err as a fatal source failure.
func NewDataSourceError(source string, err error) *DataSourceError {
	return &DataSourceError{Source: source, Err: err}
}
