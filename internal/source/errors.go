package source

import "errors"

var (
	// ErrSourceUnavailable is returned when the remote tree cannot be reached or authenticated.
	ErrSourceUnavailable = errors.New("configuration source unavailable")
	// ErrSourceCorrupt is returned when the local working tree is not a valid repository state.
	ErrSourceCorrupt = errors.New("configuration source corrupt")
	// ErrUnsupportedKind is returned when a materializer is handed a descriptor it cannot sync.
	ErrUnsupportedKind = errors.New("unsupported source kind")
)
