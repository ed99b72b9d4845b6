// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package models

import (
	"bytes"
	"errors"

	"github.com/goccy/go-json"
)

// ErrInvalidJSON is returned by DecodeDocument for input that is not a single
// JSON value.
var ErrInvalidJSON = errors.New("invalid JSON")

// DecodeDocument parses a JSON object without losing numeric precision.
// Numbers are kept as json.Number, so re-marshalling the map writes them
// exactly as received. A JSON null yields a nil map and no error.
func DecodeDocument(raw []byte) (map[string]any, error) {
	if !json.Valid(raw) {
		return nil, ErrInvalidJSON
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// NormalizeNumbers replaces every json.Number inside v with an int64 when the
// literal is an integer in range and a float64 otherwise. Maps and slices are
// rewritten in place and returned.
func NormalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = NormalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = NormalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}
