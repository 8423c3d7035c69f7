package format

import "errors"

var (
	// ErrParse is returned when a file's content does not conform to its declared format.
	ErrParse = errors.New("content does not conform to declared format")
	// ErrUnknownFormat is returned for format tags the parser does not support.
	ErrUnknownFormat = errors.New("unknown format")
)
