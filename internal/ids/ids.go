// Package ids generates the 128-bit random identifiers used for orders
// and trades, rendered in the canonical 8-4-4-4-12 hex form.
package ids

import "github.com/google/uuid"

// ID is a 128-bit random identifier.
type ID = uuid.UUID

// New returns a fresh random identifier.
func New() ID {
	return uuid.New()
}

// Parse parses the canonical 8-4-4-4-12 hex form.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// Nil is the zero-value identifier, used to signal "unset".
var Nil = uuid.Nil
