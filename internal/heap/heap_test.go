package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringRefcountLifecycle(t *testing.T) {
	h := New()
	r := h.NewString("hello")
	assert.Equal(t, 1, h.RefCount(r))
	assert.Equal(t, "hello", h.String(r))

	h.Retain(r)
	assert.Equal(t, 2, h.RefCount(r))

	h.Release(r)
	assert.Equal(t, 1, h.RefCount(r))
	h.Release(r)
	assert.Equal(t, 0, h.RefCount(r))
	assert.Equal(t, 0, h.Live())
}

func TestListReleaseCascades(t *testing.T) {
	h := New()
	a := h.NewString("a")
	b := h.NewString("b")
	l := h.NewList([]Ref{a, b}, nil)
	assert.Equal(t, 3, h.Live())

	// The list owns its element refs; dropping it drops them.
	h.Release(l)
	assert.Equal(t, 0, h.Live())
}

func TestSharedElementSurvivesOneListDrop(t *testing.T) {
	h := New()
	a := h.NewString("shared")
	h.Retain(a) // second list's share
	l1 := h.NewList([]Ref{a}, nil)
	l2 := h.NewList([]Ref{a}, nil)

	h.Release(l1)
	assert.Equal(t, 1, h.RefCount(a))
	assert.Equal(t, "shared", h.String(a))

	h.Release(l2)
	assert.Equal(t, 0, h.Live())
}

func TestScalarListLen(t *testing.T) {
	h := New()
	l := h.NewList(nil, make([]byte, 24))
	assert.Equal(t, 3, h.Len(l, false, 8))
	assert.Equal(t, 24, len(h.Scalars(l)))
}

func TestRefListLen(t *testing.T) {
	h := New()
	a := h.NewString("x")
	l := h.NewList([]Ref{a}, nil)
	assert.Equal(t, 1, h.Len(l, true, 8))
	require.Len(t, h.ListElems(l), 1)
	assert.Equal(t, a, h.ListElems(l)[0])
}

func TestReleaseUnknownRefPanics(t *testing.T) {
	h := New()
	assert.Panics(t, func() { h.Release(Ref(42)) })
}
