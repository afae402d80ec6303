package bank

import "fmt"

// DataSourceError reports a question bank that could not be read.
type DataSourceError struct {
	Source string
	Sheet  string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("question bank %s (sheet %q): %v", e.Source, e.Sheet, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }
