// Package document provides the traversable key-value form of a decoded
// message payload, plus the mutable output document RPC handlers write their
// response into.
package document

import (
	"fmt"

	"github.com/edgewire/devlink/internal/runtime/jsoncodec"
)

// Value is a single decoded JSON value: nil, bool, float64, string,
// []any, or map[string]any.
type Value = any

// Document is a JSON object addressed by field name. A fresh one is handed to
// every RPC handler as its response slot; leaving it empty means "no reply".
type Document struct {
	fields map[string]Value
}

// New returns an empty document.
func New() *Document {
	return &Document{fields: make(map[string]Value)}
}

// Decode parses data into a document. The payload must be a JSON object;
// anything else is rejected.
func Decode(data []byte) (*Document, error) {
	var fields map[string]Value
	if err := jsoncodec.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if fields == nil {
		fields = make(map[string]Value)
	}
	return &Document{fields: fields}, nil
}

// FromFields wraps an existing field map without copying it.
func FromFields(fields map[string]Value) *Document {
	if fields == nil {
		fields = make(map[string]Value)
	}
	return &Document{fields: fields}
}

// Set stores value under key, replacing any previous value.
func (d *Document) Set(key string, value Value) {
	if d.fields == nil {
		d.fields = make(map[string]Value)
	}
	d.fields[key] = value
}

// Get returns the value stored under key and whether the key is present.
func (d *Document) Get(key string) (Value, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.fields[key]
	return v, ok
}

// GetString returns the string stored under key. The second result is false
// when the key is absent or the value is not a string.
func (d *Document) GetString(key string) (string, bool) {
	v, ok := d.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Len returns the number of fields.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.fields)
}

// IsEmpty reports whether no field has been set. An empty response document
// is the documented way for a handler to decline to reply.
func (d *Document) IsEmpty() bool {
	return d.Len() == 0
}

// Fields exposes the underlying field map. Callers must not retain it past
// the dispatch that produced the document.
func (d *Document) Fields() map[string]Value {
	if d == nil {
		return nil
	}
	return d.fields
}

// MarshalJSON encodes the document as a JSON object.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil || d.fields == nil {
		return []byte("{}"), nil
	}
	return jsoncodec.Marshal(d.fields)
}

// EncodedSize returns the size in bytes of the encoded document. The response
// builder compares it against the configured budget before publishing.
func (d *Document) EncodedSize() (int, error) {
	if d == nil || len(d.fields) == 0 {
		return 2, nil // "{}"
	}
	return jsoncodec.Measure(d.fields)
}
