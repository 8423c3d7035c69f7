// Package merge folds parsed configuration layers into one resolved
// document, later layers overriding earlier ones.
package merge

import (
	"github.com/eugenenazirov/config-server/internal/format"
	"github.com/eugenenazirov/config-server/internal/pattern"
)

// Resolved is the merged configuration returned to callers.
type Resolved = map[string]any

// Layer is one parsed file at a position in the precedence chain.
// A nil Tree marks an absent layer: its pattern matched no file.
type Layer struct {
	Entry pattern.FileSetEntry
	File  string
	Tree  format.Tree
}

// Present reports whether the layer contributes any keys.
func (l Layer) Present() bool {
	return l.Tree != nil
}

// Merge folds layers in order into a new map. Absent layers are skipped.
// Input trees are never modified or aliased by the result.
func Merge(layers []Layer) Resolved {
	acc := make(Resolved)
	for _, layer := range layers {
		if !layer.Present() {
			continue
		}
		DeepMerge(acc, layer.Tree)
	}
	return acc
}

// DeepMerge merges src into dst. When both sides hold a mapping under the
// same key the mappings are merged recursively; otherwise the value from
// src replaces the one in dst. Values taken from src are copied.
func DeepMerge(dst, src map[string]any) {
	for key, incoming := range src {
		incomingMap, incomingIsMap := incoming.(map[string]any)
		if incomingIsMap {
			if existing, ok := dst[key].(map[string]any); ok {
				DeepMerge(existing, incomingMap)
				continue
			}
		}
		dst[key] = clone(incoming)
	}
}

func clone(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = clone(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = clone(val)
		}
		return out
	default:
		return v
	}
}
