// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// IDKind distinguishes optimistic local identifiers from backend identifiers.
type IDKind int

const (
	// KindNone is the "no conversation selected" sentinel.
	KindNone IDKind = iota

	// KindLocal marks a placeholder generated on this client.
	KindLocal

	// KindPersisted marks an identifier assigned by the backend.
	KindPersisted
)

// localPrefix keeps the textual form of local ids disjoint from backend ids,
// which are decimal snowflakes.
const localPrefix = "local-"

// ID is an opaque identifier tagged with its origin.
// The zero value is the None sentinel.
type ID struct {
	kind  IDKind
	value string
}

// NoID returns the None sentinel.
func NoID() ID { return ID{} }

// LocalID wraps a client-generated identifier.
func LocalID(v string) ID {
	return ID{kind: KindLocal, value: v}
}

// PersistedID wraps a backend-assigned identifier. Backend ids are kept as
// strings; they are never parsed as numbers.
func PersistedID(v string) ID {
	v = strings.TrimSpace(v)
	if v == "" {
		return NoID()
	}
	return ID{kind: KindPersisted, value: v}
}

// NewLocalID generates a time-ordered local identifier.
// UUIDv7 sorts by creation time, so two ids generated in sequence compare
// in generation order.
func NewLocalID() ID {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return LocalID(u.String())
}

// Kind returns the identifier's origin.
func (id ID) Kind() IDKind { return id.kind }

// Value returns the raw identifier without the local prefix.
func (id ID) Value() string { return id.value }

// IsNone reports whether the identifier is the None sentinel.
func (id ID) IsNone() bool { return id.kind == KindNone }

// IsLocal reports whether the identifier is a client-side placeholder.
func (id ID) IsLocal() bool { return id.kind == KindLocal }

// IsPersisted reports whether the backend assigned this identifier.
func (id ID) IsPersisted() bool { return id.kind == KindPersisted }

// String returns the textual form. Local ids carry a prefix so they can
// never be mistaken for backend ids.
func (id ID) String() string {
	switch id.kind {
	case KindLocal:
		return localPrefix + id.value
	case KindPersisted:
		return id.value
	default:
		return ""
	}
}

// ParseID is the inverse of String.
func ParseID(s string) ID {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return NoID()
	case strings.HasPrefix(s, localPrefix):
		return LocalID(strings.TrimPrefix(s, localPrefix))
	default:
		return PersistedID(s)
	}
}

// MarshalJSON encodes the textual form.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON accepts both quoted strings and bare JSON numbers.
// Numbers are kept verbatim as text to avoid float64 precision loss.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = NoID()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if nerr := json.Unmarshal(data, &n); nerr != nil {
			return err
		}
		s = n.String()
	}
	*id = ParseID(s)
	return nil
}
