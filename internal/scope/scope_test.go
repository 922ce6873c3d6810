package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/ident"
)

func TestLookupWalksOutward(t *testing.T) {
	idents := ident.New()
	s := New()
	s.PushScope()
	x := idents.Intern("x")
	s.Bind(x, cir.PatternIdx(0))

	s.PushScope()
	y := idents.Intern("y")
	s.Bind(y, cir.PatternIdx(1))

	res := s.Lookup(x)
	require.True(t, res.Found)
	assert.Equal(t, cir.PatternIdx(0), res.Pattern)
	assert.Equal(t, uint32(0), res.ScopeDepth)

	res = s.Lookup(y)
	require.True(t, res.Found)
	assert.Equal(t, cir.PatternIdx(1), res.Pattern)
	assert.Equal(t, uint32(1), res.ScopeDepth)

	assert.False(t, s.Lookup(idents.Intern("z")).Found)
}

func TestInnerBindingShadowsOuter(t *testing.T) {
	idents := ident.New()
	s := New()
	x := idents.Intern("x")

	s.PushScope()
	s.Bind(x, cir.PatternIdx(0))
	s.PushScope()
	s.Bind(x, cir.PatternIdx(7))

	res := s.Lookup(x)
	require.True(t, res.Found)
	assert.Equal(t, cir.PatternIdx(7), res.Pattern)

	s.PopScope()
	res = s.Lookup(x)
	require.True(t, res.Found)
	assert.Equal(t, cir.PatternIdx(0), res.Pattern)
}

func TestBoundAnywhereSeesEnclosingScopes(t *testing.T) {
	idents := ident.New()
	s := New()
	x := idents.Intern("x")

	s.PushScope()
	s.Bind(x, cir.PatternIdx(0))
	s.PushScope()

	assert.True(t, s.BoundAnywhere(x))
	assert.False(t, s.BoundAnywhere(idents.Intern("y")))
}

func TestLookupRecordsCaptureInEveryEnclosedContext(t *testing.T) {
	idents := ident.New()
	s := New()
	x := idents.Intern("x")

	s.PushScope() // module scope, depth 0
	s.Bind(x, cir.PatternIdx(0))

	// Two nested lambdas, each with its own parameter scope.
	s.PushFunc()
	s.PushScope()
	s.PushFunc()
	s.PushScope()

	res := s.Lookup(x)
	require.True(t, res.Found)

	s.PopScope()
	inner := s.PopFunc()
	s.PopScope()
	outer := s.PopFunc()

	require.Len(t, inner, 1)
	require.Len(t, outer, 1)
	assert.Equal(t, cir.PatternIdx(0), inner[0].Pattern)
	assert.Equal(t, cir.PatternIdx(0), outer[0].Pattern)
	assert.Equal(t, uint32(0), inner[0].ScopeDepth)
}

func TestParameterLookupIsNotACapture(t *testing.T) {
	idents := ident.New()
	s := New()
	p := idents.Intern("p")

	s.PushScope()
	s.PushFunc()
	s.PushScope()
	s.Bind(p, cir.PatternIdx(3))

	res := s.Lookup(p)
	require.True(t, res.Found)

	s.PopScope()
	captures := s.PopFunc()
	assert.Empty(t, captures)
}

func TestCaptureOrderFollowsFirstReference(t *testing.T) {
	idents := ident.New()
	s := New()
	a := idents.Intern("a")
	b := idents.Intern("b")

	s.PushScope()
	s.Bind(a, cir.PatternIdx(0))
	s.Bind(b, cir.PatternIdx(1))

	s.PushFunc()
	s.PushScope()

	s.Lookup(b)
	s.Lookup(a)
	s.Lookup(b) // repeated reference must not duplicate

	s.PopScope()
	captures := s.PopFunc()
	require.Len(t, captures, 2)
	assert.Equal(t, cir.PatternIdx(1), captures[0].Pattern)
	assert.Equal(t, cir.PatternIdx(0), captures[1].Pattern)
}
