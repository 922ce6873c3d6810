package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpanCoversBoth(t *testing.T) {
	a := Region{Start: 2, End: 5}
	b := Region{Start: 7, End: 9}
	assert.Equal(t, Region{Start: 2, End: 9}, a.Span(b))
	assert.Equal(t, Region{Start: 2, End: 9}, b.Span(a))

	assert.Equal(t, a, a.Span(Region{}))
	assert.Equal(t, a, Region{}.Span(a))
}

func TestContains(t *testing.T) {
	r := Region{Start: 3, End: 6}
	assert.False(t, r.Contains(2))
	assert.True(t, r.Contains(3))
	assert.True(t, r.Contains(5))
	assert.False(t, r.Contains(6))
}

func TestTextClamps(t *testing.T) {
	src := "hello"
	assert.Equal(t, "ell", Region{Start: 1, End: 4}.Text(src))
	assert.Equal(t, "lo", Region{Start: 3, End: 99}.Text(src))
	assert.Equal(t, "", Region{Start: 4, End: 2}.Text(src))
}

func TestLocate(t *testing.T) {
	src := "ab\ncde\nf"
	assert.Equal(t, LineCol{Line: 1, Column: 1}, Locate(src, 0))
	assert.Equal(t, LineCol{Line: 1, Column: 3}, Locate(src, 2))
	assert.Equal(t, LineCol{Line: 2, Column: 1}, Locate(src, 3))
	assert.Equal(t, LineCol{Line: 2, Column: 3}, Locate(src, 5))
	assert.Equal(t, LineCol{Line: 3, Column: 1}, Locate(src, 7))
}
