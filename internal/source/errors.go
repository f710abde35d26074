package source

import "errors"

// ErrReadOnly is returned when writing through a source that cannot store records.
var ErrReadOnly = errors.New("transaction source is read-only")
