// Package ident is an intern table that assigns small stable identifiers to
// names and string literals, with constant-time equality (tag equality).
package ident

import (
	"github.com/minio/highwayhash"
)

// Identifier is an opaque, module-scoped tag. Two identifiers are equal iff
// they were interned from byte-identical text.
type Identifier uint32

// hashKey is fixed and arbitrary; HighwayHash only needs a stable 32-byte
// key, not a secret one, since this table is never exposed to adversarial
// input across trust boundaries.
var hashKey = []byte("roc-sub001-ident-intern-key-0000")

type entry struct {
	text string
	id   Identifier
}

// Table is a module-scoped arena: identifiers are created on first mention,
// never mutated, and dropped with the table.
type Table struct {
	buckets map[uint64][]entry
	texts   []string // index i holds the text for Identifier(i)
}

// New returns an empty intern table.
func New() *Table {
	return &Table{buckets: make(map[uint64][]entry)}
}

func (t *Table) hash(b []byte) uint64 {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		// hashKey is a fixed 32-byte constant; New64 only fails on wrong key length.
		panic("ident: invalid highwayhash key")
	}
	_, _ = h.Write(b)
	return h.Sum64()
}

// Intern returns the Identifier for text, assigning a fresh one on first
// mention and reusing the existing one on every subsequent call.
func (t *Table) Intern(text string) Identifier {
	key := t.hash([]byte(text))
	for _, e := range t.buckets[key] {
		if e.text == text {
			return e.id
		}
	}
	id := Identifier(len(t.texts))
	t.texts = append(t.texts, text)
	t.buckets[key] = append(t.buckets[key], entry{text: text, id: id})
	return id
}

// Text returns the canonical byte sequence behind id. Panics if id was never
// produced by this table — an internal invariant violation, never a user
// error.
func (t *Table) Text(id Identifier) string {
	return t.texts[int(id)]
}

// Len reports how many distinct identifiers have been interned.
func (t *Table) Len() int { return len(t.texts) }
