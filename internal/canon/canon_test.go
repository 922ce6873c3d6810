package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/ident"
	"github.com/lukewilliamboswell/roc-sub001/internal/parser"
)

func canonicalize(t *testing.T, src string) (*cir.Arena, cir.ExprIdx, []*diagnostics.Report, *ident.Table) {
	t.Helper()
	block, perrs := parser.ParseProgram(src)
	require.Empty(t, perrs, "parse errors in %q", src)
	idents := ident.New()
	arena, idx, cerrs := CanonicalizeExpr(idents, block)
	return arena, idx, cerrs, idents
}

// lambdaCaptureNames returns, for each lambda in the arena in creation
// order, the names of its captures.
func lambdaCaptureNames(arena *cir.Arena, idents *ident.Table) [][]string {
	var out [][]string
	for _, e := range arena.Exprs {
		lam, ok := e.(cir.ELambda)
		if !ok {
			continue
		}
		names := []string{}
		for _, cv := range lam.Captures {
			names = append(names, idents.Text(cv.Name))
		}
		out = append(out, names)
	}
	return out
}

func TestSimpleLambdaCapture(t *testing.T) {
	arena, _, errs, idents := canonicalize(t, "|x| |y| x + y")
	require.Empty(t, errs)

	// Inner lambda is created first (bottom-up), capturing x; the outer
	// lambda captures nothing.
	captures := lambdaCaptureNames(arena, idents)
	require.Len(t, captures, 2)
	assert.Equal(t, []string{"x"}, captures[0])
	assert.Equal(t, []string{}, captures[1])
}

func TestNestedCapturesNoSpuriousInclusion(t *testing.T) {
	arena, _, errs, idents := canonicalize(t, "(|y| (|x| (|z| x + y + z)(3))(2))(1)")
	require.Empty(t, errs)

	captures := lambdaCaptureNames(arena, idents)
	require.Len(t, captures, 3)
	assert.Equal(t, []string{"x", "y"}, captures[0], "innermost |z|")
	assert.Equal(t, []string{"y"}, captures[1], "middle |x|")
	assert.Equal(t, []string{}, captures[2], "outermost |y|")
}

func TestMultiParameterCapture(t *testing.T) {
	arena, _, errs, idents := canonicalize(t, "(|a, b| |c| a + b + c)(1, 2)(3)")
	require.Empty(t, errs)

	captures := lambdaCaptureNames(arena, idents)
	require.Len(t, captures, 2)
	assert.Equal(t, []string{"a", "b"}, captures[0], "inner |c|")
	assert.Equal(t, []string{}, captures[1], "outer |a, b|")
}

func TestCaptureDepthIsBelowLambda(t *testing.T) {
	arena, _, errs, _ := canonicalize(t, "|x| |y| x + y")
	require.Empty(t, errs)

	for _, e := range arena.Exprs {
		if lam, ok := e.(cir.ELambda); ok {
			for _, cv := range lam.Captures {
				// Captured bindings always come from an enclosing scope.
				assert.Less(t, cv.OriginalScopeDepth, uint32(3))
			}
		}
	}
}

func TestCanonicalizationIsDeterministic(t *testing.T) {
	src := "(|y| (|x| (|z| x + y + z)(3))(2))(1)"
	arena1, idx1, _, _ := canonicalize(t, src)
	arena2, idx2, _, _ := canonicalize(t, src)
	assert.Equal(t, arena1.SExpr(idx1), arena2.SExpr(idx2))
}

func TestIdentNotInScopeBecomesMalformed(t *testing.T) {
	arena, _, errs, _ := canonicalize(t, "mystery + 1")
	require.Len(t, errs, 1)
	assert.Equal(t, diagnostics.ErrIdentNotInScope, errs[0].Code)

	found := false
	for _, e := range arena.Exprs {
		if m, ok := e.(cir.EMalformed); ok {
			found = true
			assert.Same(t, errs[0], m.Diagnostic)
		}
	}
	assert.True(t, found, "expected a malformed placeholder node")
}

func TestRedefinitionReportsButRebinds(t *testing.T) {
	arena, idx, errs, _ := canonicalize(t, "{ a = 1; a = 2; a }")
	require.Len(t, errs, 1)
	assert.Equal(t, diagnostics.ErrIdentAlreadyInScope, errs[0].Code)

	// The tail lookup resolves to the second binding's pattern.
	blk := arena.Expr(idx).(cir.EBlock)
	inner := arena.Expr(blk.Tail).(cir.EBlock)
	tail := arena.Expr(inner.Tail).(cir.ELookupLocal)
	assert.Equal(t, inner.Statements[1].Pattern, tail.Pattern)
}

func TestShadowingInsideLambdaReported(t *testing.T) {
	src := "x = 5\ny = 10\nouterFunc = |_| {\n    x = 20\n    { z = x + y; z + 1 }\n}\nouterFunc(0)"
	_, _, errs, _ := canonicalize(t, src)
	require.Len(t, errs, 1)
	assert.Equal(t, diagnostics.ErrIdentAlreadyInScope, errs[0].Code)
}

func TestLetBoundVariableIsNotCaptured(t *testing.T) {
	arena, _, errs, idents := canonicalize(t, "|x| { w = 1; x + w }")
	require.Empty(t, errs)

	captures := lambdaCaptureNames(arena, idents)
	require.Len(t, captures, 1)
	assert.Equal(t, []string{}, captures[0], "w is bound inside the body, x is a parameter")
}

// exprPatterns collects every local-lookup pattern reachable from idx.
func exprPatterns(arena *cir.Arena, idx cir.ExprIdx, acc map[cir.PatternIdx]bool) {
	if idx == cir.NoExpr {
		return
	}
	switch e := arena.Expr(idx).(type) {
	case cir.ELookupLocal:
		acc[e.Pattern] = true
	case cir.ELambda:
		exprPatterns(arena, e.Body, acc)
	case cir.ECall:
		exprPatterns(arena, e.Callee, acc)
		for _, a := range e.Args {
			exprPatterns(arena, a, acc)
		}
	case cir.EBinOp:
		exprPatterns(arena, e.Lhs, acc)
		exprPatterns(arena, e.Rhs, acc)
	case cir.EUnary:
		exprPatterns(arena, e.Operand, acc)
	case cir.EIf:
		exprPatterns(arena, e.Cond, acc)
		exprPatterns(arena, e.Then, acc)
		exprPatterns(arena, e.Else, acc)
	case cir.EBlock:
		for _, s := range e.Statements {
			exprPatterns(arena, s.Expr, acc)
		}
		exprPatterns(arena, e.Tail, acc)
	case cir.EMatch:
		exprPatterns(arena, e.Scrutinee, acc)
		for _, br := range e.Branches {
			exprPatterns(arena, br.Body, acc)
		}
	case cir.ERecord:
		for _, f := range e.Fields {
			exprPatterns(arena, f.Value, acc)
		}
	case cir.ETuple:
		for _, el := range e.Elements {
			exprPatterns(arena, el, acc)
		}
	case cir.EList:
		for _, el := range e.Elements {
			exprPatterns(arena, el, acc)
		}
	case cir.ETag:
		for _, p := range e.Payload {
			exprPatterns(arena, p, acc)
		}
	}
}

// boundInside collects every pattern introduced by lets, match branches, or
// nested lambda parameters under idx.
func boundInside(arena *cir.Arena, idx cir.ExprIdx, acc map[cir.PatternIdx]bool) {
	if idx == cir.NoExpr {
		return
	}
	switch e := arena.Expr(idx).(type) {
	case cir.ELambda:
		for _, p := range e.Params {
			acc[p] = true
		}
		boundInside(arena, e.Body, acc)
	case cir.ECall:
		boundInside(arena, e.Callee, acc)
		for _, a := range e.Args {
			boundInside(arena, a, acc)
		}
	case cir.EBinOp:
		boundInside(arena, e.Lhs, acc)
		boundInside(arena, e.Rhs, acc)
	case cir.EUnary:
		boundInside(arena, e.Operand, acc)
	case cir.EIf:
		boundInside(arena, e.Cond, acc)
		boundInside(arena, e.Then, acc)
		boundInside(arena, e.Else, acc)
	case cir.EBlock:
		for _, s := range e.Statements {
			if s.IsLet {
				acc[s.Pattern] = true
			}
			boundInside(arena, s.Expr, acc)
		}
		boundInside(arena, e.Tail, acc)
	case cir.EMatch:
		boundInside(arena, e.Scrutinee, acc)
		for _, br := range e.Branches {
			acc[br.Pattern] = true
			boundInside(arena, br.Body, acc)
		}
	case cir.ERecord:
		for _, f := range e.Fields {
			boundInside(arena, f.Value, acc)
		}
	case cir.ETuple:
		for _, el := range e.Elements {
			boundInside(arena, el, acc)
		}
	case cir.EList:
		for _, el := range e.Elements {
			boundInside(arena, el, acc)
		}
	case cir.ETag:
		for _, p := range e.Payload {
			boundInside(arena, p, acc)
		}
	}
}

// TestCaptureSoundnessAndMinimality checks, for every lambda in a batch of
// programs, that each local lookup in its body resolves to a parameter, a
// declared capture, or a binding introduced inside the body — and that
// every declared capture is actually referenced and never bound inside the
// body.
func TestCaptureSoundnessAndMinimality(t *testing.T) {
	sources := []string{
		"|x| |y| x + y",
		"(|y| (|x| (|z| x + y + z)(3))(2))(1)",
		"(|a, b| |c| a + b + c)(1, 2)(3)",
		"|x| { w = 1; |y| x + w + y }",
		"|outer| |inner| if outer > 0 then outer + inner else inner",
	}
	for _, src := range sources {
		arena, _, errs, _ := canonicalize(t, src)
		require.Empty(t, errs, src)

		for _, e := range arena.Exprs {
			lam, ok := e.(cir.ELambda)
			if !ok {
				continue
			}
			params := map[cir.PatternIdx]bool{}
			for _, p := range lam.Params {
				params[p] = true
			}
			captures := map[cir.PatternIdx]bool{}
			for _, cv := range lam.Captures {
				captures[cv.BoundPattern] = true
			}
			inner := map[cir.PatternIdx]bool{}
			boundInside(arena, lam.Body, inner)
			referenced := map[cir.PatternIdx]bool{}
			exprPatterns(arena, lam.Body, referenced)

			for p := range referenced {
				assert.True(t, params[p] || captures[p] || inner[p],
					"%s: lookup of pattern %d is neither parameter, capture, nor body-local", src, p)
			}
			for p := range captures {
				assert.True(t, referenced[p], "%s: capture %d never referenced", src, p)
				assert.False(t, inner[p], "%s: capture %d is bound inside the body", src, p)
				assert.False(t, params[p], "%s: capture %d is a parameter", src, p)
			}
		}
	}
}
