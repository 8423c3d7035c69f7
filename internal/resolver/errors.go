package resolver

import (
	"github.com/eugenenazirov/config-server/internal/format"
	"github.com/eugenenazirov/config-server/internal/pattern"
	"github.com/eugenenazirov/config-server/internal/source"
)

// Failure kinds a resolution can end with. Errors returned by Service
// wrap exactly one of these.
var (
	ErrInvalidScope      = pattern.ErrInvalidScope
	ErrSourceUnavailable = source.ErrSourceUnavailable
	ErrSourceCorrupt     = source.ErrSourceCorrupt
	ErrParse             = format.ErrParse
)
