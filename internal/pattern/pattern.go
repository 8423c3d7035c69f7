// Package pattern builds the precedence chain of file-name glob patterns
// for a requested (application, label) scope.
package pattern

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/eugenenazirov/config-server/internal/format"
)

// ErrInvalidScope is returned when an application or label is empty or
// would escape the glob segment it is interpolated into.
var ErrInvalidScope = errors.New("invalid scope")

// globalName is the file-name stem shared by every application.
const globalName = "global"

// Scope is the (application, label) pair a request asks for.
type Scope struct {
	Application string
	Label       string
}

// FileSetEntry selects the files one layer is read from.
type FileSetEntry struct {
	Pattern string
	Format  format.Format
}

// Chain is an ordered list of entries, lowest precedence first.
type Chain []FileSetEntry

// Patterns returns the glob patterns of the chain in order.
func (c Chain) Patterns() []string {
	out := make([]string, len(c))
	for i, entry := range c {
		out[i] = entry.Pattern
	}
	return out
}

// NewScope sanitizes application and label.
func NewScope(application, label string) (Scope, error) {
	app, err := sanitize("application", application)
	if err != nil {
		return Scope{}, err
	}
	lbl, err := sanitize("label", label)
	if err != nil {
		return Scope{}, err
	}
	return Scope{Application: app, Label: lbl}, nil
}

// Resolve returns the four-layer chain for the scope:
//
//	*global.<ext>
//	*global-<label>.<ext>
//	*<application>.<ext>
//	*<application>-<label>.<ext>
func Resolve(application, label string, f format.Format) (Chain, error) {
	scope, err := NewScope(application, label)
	if err != nil {
		return nil, err
	}
	return scope.Chain(f), nil
}

// Chain builds the precedence chain of an already sanitized scope.
func (s Scope) Chain(f format.Format) Chain {
	ext := f.Extension()
	stems := []string{
		globalName,
		globalName + "-" + s.Label,
		s.Application,
		s.Application + "-" + s.Label,
	}

	chain := make(Chain, 0, len(stems))
	for _, stem := range stems {
		chain = append(chain, FileSetEntry{
			Pattern: "*" + stem + "." + ext,
			Format:  f,
		})
	}
	return chain
}

func sanitize(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s must not be empty", ErrInvalidScope, field)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("%w: %s must not contain %q", ErrInvalidScope, field, "..")
	}
	for _, r := range value {
		if strings.ContainsRune(`/\*?[]{}`, r) || unicode.IsControl(r) {
			return "", fmt.Errorf("%w: %s contains forbidden character %q", ErrInvalidScope, field, r)
		}
	}
	return value, nil
}
