package domain

import "errors"

var (
	ErrKeyNotFound = errors.New("key not found")
	// ErrCorrupt signals a record that failed to decode, an offset past
	// end-of-file, or a mismatch between the index and the decoded record.
	ErrCorrupt = errors.New("corrupted log record")
	// ErrAlreadyOpen signals that the data directory is locked by another
	// engine instance.
	ErrAlreadyOpen = errors.New("data directory already in use")
)
