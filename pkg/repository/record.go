// Package repository holds what the bundled upload repositories share: the
// persisted record, its JSON encoding and identifier generation.
//
// Implementations:
//   - memory: map-backed (tests, single-process tools)
//   - badger: embedded persistent store
//   - redis: shared store for several processes
//
// All of them implement uploads.Repository[string] with UUID identifiers.
package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittouploads/pkg/uploads"
)

// Repository is the repository shape every bundled implementation satisfies.
type Repository interface {
	uploads.Repository[string]

	// Close releases the underlying connection or database handle.
	Close() error
}

// Record is the persisted form of one upload.
type Record struct {
	Location  uploads.Location `json:"location"`
	Meta      uploads.Metadata `json:"meta"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewRecord returns a record created now.
func NewRecord(loc uploads.Location, meta uploads.Metadata) Record {
	now := time.Now().UTC()
	return Record{
		Location:  loc,
		Meta:      meta.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply repoints r at loc. A nil meta keeps the stored metadata.
func (r Record) Apply(loc uploads.Location, meta uploads.Metadata) Record {
	r.Location = loc
	if meta != nil {
		r.Meta = meta.Clone()
	}
	r.UpdatedAt = time.Now().UTC()
	return r
}

// NewID returns a fresh upload identifier.
func NewID() string {
	return uuid.NewString()
}

// NotFound returns uploads.ErrRecordNotFound wrapped with id.
func NotFound(id string) error {
	return fmt.Errorf("upload %s: %w", id, uploads.ErrRecordNotFound)
}

// Encode serializes r as JSON.
func Encode(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode upload record: %w", err)
	}
	return data, nil
}

// Decode parses a record produced by Encode.
//
// Metadata numbers come back as int64 when they are integers and float64
// otherwise, so integers beyond 2^53 keep every digit.
func Decode(data []byte) (Record, error) {
	var r Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return Record{}, fmt.Errorf("failed to decode upload record: %w", err)
	}
	for k, v := range r.Meta {
		r.Meta[k] = normalizeNumbers(v)
	}
	return r, nil
}

// normalizeNumbers replaces every json.Number inside v.
func normalizeNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		for k, elem := range v {
			v[k] = normalizeNumbers(elem)
		}
		return v
	case []any:
		for i, elem := range v {
			v[i] = normalizeNumbers(elem)
		}
		return v
	}
	return v
}
