// Package idgen provides pluggable ID generation: a Generator function
// type, a UUIDv7 default, and a wrapper that prefixes generated IDs.
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 produces RFC 9562 UUID v7 strings: time-sortable and globally
// unique.
func UUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Default is the generator used when none is configured.
var Default Generator = UUIDv7

// Prefixed wraps gen and prepends a fixed prefix to every ID, for
// type-scoped identifiers such as "req_" or "trc_".
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}
