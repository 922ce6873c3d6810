package ident

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternIsStable(t *testing.T) {
	tbl := New()
	a := tbl.Intern("foo")
	b := tbl.Intern("foo")
	c := tbl.Intern("bar")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, tbl.Len())
}

func TestTextRoundTrip(t *testing.T) {
	tbl := New()
	names := []string{"x", "y", "outerFunc", "αβγ", ""}
	ids := make([]Identifier, len(names))
	for i, n := range names {
		ids[i] = tbl.Intern(n)
	}
	for i, n := range names {
		assert.Equal(t, n, tbl.Text(ids[i]))
	}
}

func TestManyDistinctIdentifiers(t *testing.T) {
	tbl := New()
	seen := map[Identifier]bool{}
	for i := 0; i < 1000; i++ {
		id := tbl.Intern(fmt.Sprintf("name%d", i))
		assert.False(t, seen[id], "identifier reused")
		seen[id] = true
	}
	assert.Equal(t, 1000, tbl.Len())
}
