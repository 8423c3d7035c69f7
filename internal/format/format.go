// Package format turns the raw bytes of one configuration file into a
// structured key/value tree under a declared format tag.
package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is a declared file format tag.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// Tree is a parsed configuration document. Nested mappings are Trees
// (as map[string]any), sequences are []any.
type Tree = map[string]any

// ParseFormat validates a format tag. "yml" is accepted as an alias of YAML.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// Extension returns the file extension (without the dot) that files of
// this format carry.
func (f Format) Extension() string {
	return string(f)
}

// Parse decodes data under format f. An empty document yields an empty
// tree; a document whose root is not a mapping is an ErrParse.
func Parse(f Format, data []byte) (Tree, error) {
	var (
		raw any
		err error
	)

	switch f {
	case YAML:
		raw, err = decodeYAML(data)
	case JSON:
		stripped := jsonc.ToJSON(data)
		if len(bytes.TrimSpace(stripped)) == 0 {
			return Tree{}, nil
		}
		err = json.Unmarshal(stripped, &raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, f, err)
	}

	if raw == nil {
		return Tree{}, nil
	}

	root, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s: document root must be a mapping, got %T", ErrParse, f, raw)
	}
	return root, nil
}

// decodeYAML decodes a single YAML document. A stream holding a second
// document is rejected.
func decodeYAML(data []byte) (any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	var extra any
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return raw, nil
	case err != nil:
		return nil, err
	default:
		return nil, errors.New("expected a single document, found more")
	}
}

// normalize converts map[any]any produced by YAML documents with
// non-string keys into map[string]any, recursively.
func normalize(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
