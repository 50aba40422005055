package importer

import "errors"

var (
	// ErrEmptyFile indicates the upload has no header row.
	ErrEmptyFile = errors.New("file is empty")
	// ErrMissingColumns indicates required header columns are absent.
	ErrMissingColumns = errors.New("missing required columns")

	errMissingSupplier = errors.New("importer: row has no supplier")
	errMissingLocation = errors.New("importer: row has no location")
)

// ImportError reports a file that cannot be read as tabular data. Nothing is
// persisted when it is returned.
type ImportError struct {
	Op  string
	Err error
}

func (e *ImportError) Error() string {
	return "importer: " + e.Op + ": " + e.Err.Error()
}

func (e *ImportError) Unwrap() error { return e.Err }
