// Package idgen provides pluggable ID generation for domnote.
//
// Constructors across the module accept a Generator, making the ID strategy
// a startup-time decision rather than a compile-time one.
package idgen

import (
	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, so insertion order and lexical order agree.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
// Used for type-scoped identifiers (e.g. "ann_", "evt_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the module-wide convention: prefixless UUID v7.
var Default = UUIDv7()
