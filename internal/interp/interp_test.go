package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukewilliamboswell/roc-sub001/internal/canon"
	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/ident"
	"github.com/lukewilliamboswell/roc-sub001/internal/layout"
	"github.com/lukewilliamboswell/roc-sub001/internal/parser"
	"github.com/lukewilliamboswell/roc-sub001/internal/types"
)

// run evaluates src through the full pipeline and returns the interpreter
// and its result.
func run(t *testing.T, src string) (*Interp, *Result) {
	t.Helper()
	block, perrs := parser.ParseProgram(src)
	require.Empty(t, perrs, "parse errors in %q", src)

	idents := ident.New()
	arena, idx, cerrs := canon.CanonicalizeExpr(idents, block)
	require.Empty(t, cerrs, "canonicalize errors in %q", src)

	anno, err := types.Solve(arena, idx)
	require.NoError(t, err, "type error in %q", src)

	ip := New(arena, anno, nil)
	result, err := ip.Eval(idx)
	require.NoError(t, err, "eval error in %q", src)
	return ip, result
}

// runErr evaluates src expecting an evaluation error.
func runErr(t *testing.T, src string) error {
	t.Helper()
	block, perrs := parser.ParseProgram(src)
	require.Empty(t, perrs)

	idents := ident.New()
	arena, idx, cerrs := canon.CanonicalizeExpr(idents, block)
	require.Empty(t, cerrs)

	anno, err := types.Solve(arena, idx)
	require.NoError(t, err)

	ip := New(arena, anno, nil)
	_, err = ip.Eval(idx)
	require.Error(t, err)
	return err
}

func intResult(t *testing.T, ip *Interp, r *Result) int64 {
	t.Helper()
	require.Equal(t, layout.KindScalar, r.Layout.Kind)
	require.Equal(t, layout.TagInt, r.Layout.Tag)
	return ip.Stack.ReadInt64(r.Offset)
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{"1 + 2", 3},
		{"2 * 3 + 4", 10},
		{"2 + 3 * 4", 14},
		{"10 - 2 - 3", 5},
		{"7 / 2", 3},
		{"7 % 3", 1},
		{"-5 + 2", -3},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			ip, r := run(t, tc.src)
			assert.Equal(t, tc.want, intResult(t, ip, r))
		})
	}
}

func TestSimpleLambdaCaptureApplication(t *testing.T) {
	ip, r := run(t, "((|x| |y| x + y)(42))(10)")
	assert.Equal(t, int64(52), intResult(t, ip, r))
}

func TestNestedCaptureApplication(t *testing.T) {
	ip, r := run(t, "(|y| (|x| (|z| x + y + z)(3))(2))(1)")
	assert.Equal(t, int64(6), intResult(t, ip, r))
}

func TestMultiParameterCaptureApplication(t *testing.T) {
	ip, r := run(t, "(|a, b| |c| a + b + c)(1, 2)(3)")
	assert.Equal(t, int64(6), intResult(t, ip, r))
}

func TestConditionalCapture(t *testing.T) {
	ip, r := run(t, "((|outer| |inner| if outer > 0 then outer + inner else inner)(5))(3)")
	assert.Equal(t, int64(8), intResult(t, ip, r))

	ip, r = run(t, "((|outer| |inner| if outer > 0 then outer + inner else inner)(-1))(3)")
	assert.Equal(t, int64(3), intResult(t, ip, r))
}

func TestShadowedBlockBinding(t *testing.T) {
	// The lambda captures the module-level y; its inner x = 20 shadows the
	// module-level x. Canonicalization reports the shadowing but the inner
	// binding wins.
	src := "x = 5\ny = 10\nouterFunc = |_| {\n    x = 20\n    { z = x + y; z + 1 }\n}\nouterFunc(0)"
	block, perrs := parser.ParseProgram(src)
	require.Empty(t, perrs)
	idents := ident.New()
	arena, idx, cerrs := canon.CanonicalizeExpr(idents, block)
	require.Len(t, cerrs, 1)
	anno, err := types.Solve(arena, idx)
	require.NoError(t, err)
	ip := New(arena, anno, nil)
	r, err := ip.Eval(idx)
	require.NoError(t, err)
	assert.Equal(t, int64(31), intResult(t, ip, r))
}

func TestClosurePassedAndReturned(t *testing.T) {
	ip, r := run(t, "{ make = |n| |m| n + m; addTwo = make(2); addTwo(40) }")
	assert.Equal(t, int64(42), intResult(t, ip, r))
}

func TestClosureInvokedTwice(t *testing.T) {
	ip, r := run(t, "{ addOne = |n| n + 1; addOne(addOne(5)) }")
	assert.Equal(t, int64(7), intResult(t, ip, r))
}

func TestBlocksAndLets(t *testing.T) {
	ip, r := run(t, "{ x = 1; y = x + 2; x + y }")
	assert.Equal(t, int64(4), intResult(t, ip, r))
}

func TestTupleDestructuringLet(t *testing.T) {
	ip, r := run(t, "{ (a, b) = (1, 2); a + b }")
	assert.Equal(t, int64(3), intResult(t, ip, r))
}

func TestMatchLiteralAndWildcard(t *testing.T) {
	ip, r := run(t, "match 3 { 1 -> 10, _ -> 20 }")
	assert.Equal(t, int64(20), intResult(t, ip, r))

	ip, r = run(t, "match 1 { 1 -> 10, _ -> 20 }")
	assert.Equal(t, int64(10), intResult(t, ip, r))
}

func TestMatchTagPayload(t *testing.T) {
	ip, r := run(t, "match Some(5) { Some(x) -> x + 1 }")
	assert.Equal(t, int64(6), intResult(t, ip, r))
}

func TestMatchListRest(t *testing.T) {
	ip, r := run(t, "match [1, 2, 3] { [x, ..rest] -> x }")
	assert.Equal(t, int64(1), intResult(t, ip, r))
}

func TestBooleansAndComparisons(t *testing.T) {
	ip, r := run(t, "if 2 < 3 && !(1 == 2) then 1 else 0")
	assert.Equal(t, int64(1), intResult(t, ip, r))
}

func TestStackNeutrality(t *testing.T) {
	sources := []string{
		"1 + 2 * 3",
		"((|x| |y| x + y)(42))(10)",
		"{ x = 1; y = x + 2; x + y }",
		"match 3 { 1 -> 10, _ -> 20 }",
		"(1, (2, 3))",
		"[1, 2, 3]",
		"{ a: 1, b: 2 }",
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			ip, _ := run(t, src)
			assert.Equal(t, 1, ip.ValueCount(), "exactly one value must remain")
			assert.Equal(t, 0, ip.PendingWork())
		})
	}
}

func TestRefcountBalance(t *testing.T) {
	tests := []struct {
		src      string
		wantLive int
	}{
		{`{ s = "hello"; 1 }`, 0},
		{`{ s = "hello"; t = s; 1 }`, 0},
		{`"hi"`, 1},
		{`{ s = "hello"; s }`, 1},
		{`{ f = |x| "got"; f(1); 2 }`, 0},
		{`{ s = "cap"; f = |x| s; f(0) }`, 1},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			ip, _ := run(t, tc.src)
			assert.Equal(t, tc.wantLive, ip.Heap.Live())
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	err := runErr(t, "1 / 0")
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, diagnostics.ErrDivisionByZero, rt.Report.Code)
}

func TestIntegerOverflow(t *testing.T) {
	err := runErr(t, "9223372036854775807 + 1")
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, diagnostics.ErrArithOverflow, rt.Report.Code)
}

func TestMatchFailureIsRuntimeError(t *testing.T) {
	err := runErr(t, "match 5 { 1 -> 10 }")
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, diagnostics.ErrPatternMatchFail, rt.Report.Code)
}

func TestMalformedNodeCarriesItsDiagnostic(t *testing.T) {
	block, perrs := parser.ParseProgram("missing + 1")
	require.Empty(t, perrs)
	idents := ident.New()
	arena, idx, cerrs := canon.CanonicalizeExpr(idents, block)
	require.Len(t, cerrs, 1)
	anno, err := types.Solve(arena, idx)
	require.NoError(t, err)

	ip := New(arena, anno, nil)
	_, err = ip.Eval(idx)
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Same(t, cerrs[0], rt.Report)
}

// TestArityMismatchIsFatal builds the mismatched call directly in the
// arena, since the type solver rejects it before evaluation on the normal
// path.
func TestArityMismatchIsFatal(t *testing.T) {
	idents := ident.New()
	arena := cir.NewArena(idents)
	p := arena.AddPattern(cir.PIdent{Name: idents.Intern("x")})
	body := arena.AddExpr(cir.ELookupLocal{Pattern: p})
	lam := arena.AddExpr(cir.ELambda{Params: []cir.PatternIdx{p}, Body: body})
	arg1 := arena.AddExpr(cir.EInt{Value: 1})
	arg2 := arena.AddExpr(cir.EInt{Value: 2})
	call := arena.AddExpr(cir.ECall{Callee: lam, Args: []cir.ExprIdx{arg1, arg2}})

	anno := &types.Annotations{
		ExprTypes: map[cir.ExprIdx]types.Type{
			arg1: types.Int,
			arg2: types.Int,
			body: types.Int,
			call: types.Int,
		},
		PatternTypes: map[cir.PatternIdx]types.Type{p: types.Int},
	}

	ip := New(arena, anno, nil)
	_, err := ip.Eval(call)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, diagnostics.ErrArityMismatch, fatal.Report.Code)
}

func TestRecordsAndTuples(t *testing.T) {
	ip, r := run(t, "{ pair = (1, 2); rec = { a: 3, b: 4 }; 5 }")
	assert.Equal(t, int64(5), intResult(t, ip, r))

	ip, r = run(t, "(1, 2)")
	require.Equal(t, layout.KindTuple, r.Layout.Kind)
	assert.Equal(t, int64(1), ip.Stack.ReadInt64(r.Offset+r.Layout.Fields[0].Offset))
	assert.Equal(t, int64(2), ip.Stack.ReadInt64(r.Offset+r.Layout.Fields[1].Offset))
}

func TestDeeplyNestedExpressionDoesNotRecurse(t *testing.T) {
	// 2000 nested additions would be uncomfortable on the host call stack
	// if evaluation recursed; the work-item scheduler keeps it flat.
	src := ""
	for i := 0; i < 2000; i++ {
		src += "1 + ("
	}
	src += "1"
	for i := 0; i < 2000; i++ {
		src += ")"
	}
	ip, r := run(t, src)
	assert.Equal(t, int64(2001), intResult(t, ip, r))
}
