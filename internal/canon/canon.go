// Package canon lowers a parse tree (internal/ast) into the Canonical
// Intermediate Representation (internal/cir), resolving every identifier to
// the pattern that bound it and recording, on each lambda, the minimal
// deterministically-ordered list of outer bindings it captures.
package canon

import (
	"github.com/lukewilliamboswell/roc-sub001/internal/ast"
	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/ident"
	"github.com/lukewilliamboswell/roc-sub001/internal/region"
	"github.com/lukewilliamboswell/roc-sub001/internal/scope"
)

// Canonicalizer walks a parse tree and builds a cir.Arena.
type Canonicalizer struct {
	arena  *cir.Arena
	idents *ident.Table
	scopes *scope.Stack
	errs   diagnostics.Bag
}

// New returns a Canonicalizer writing into a fresh arena backed by idents.
// Passing a shared idents table across calls lets a REPL session reuse
// identifiers interned by earlier lines.
func New(idents *ident.Table) *Canonicalizer {
	return &Canonicalizer{
		arena:  cir.NewArena(idents),
		idents: idents,
		scopes: scope.New(),
	}
}

// Arena returns the arena being built.
func (c *Canonicalizer) Arena() *cir.Arena { return c.arena }

// Errors returns every diagnostic accumulated while canonicalizing.
func (c *Canonicalizer) Errors() []*diagnostics.Report { return c.errs.All() }

// CanonicalizeExpr canonicalizes a single top-level expression, opening one
// module-level scope around it.
func CanonicalizeExpr(idents *ident.Table, expr ast.Expr) (*cir.Arena, cir.ExprIdx, []*diagnostics.Report) {
	c := New(idents)
	c.scopes.PushScope()
	idx := c.expr(expr)
	c.scopes.PopScope()
	return c.arena, idx, c.errs.All()
}

func (c *Canonicalizer) expr(e ast.Expr) cir.ExprIdx {
	switch n := e.(type) {
	case *ast.Int:
		return c.arena.AddExpr(cir.EInt{Value: n.Value})
	case *ast.Frac:
		return c.arena.AddExpr(cir.EFrac{Value: n.Value})
	case *ast.Str:
		return c.arena.AddExpr(cir.EStr{Segments: []string{n.Value}})
	case *ast.Bool:
		return c.arena.AddExpr(cir.EBool{Value: n.Value})
	case *ast.Ident:
		return c.lookupIdent(n)
	case *ast.Tag:
		payload := make([]cir.ExprIdx, len(n.Payload))
		for i, p := range n.Payload {
			payload[i] = c.expr(p)
		}
		return c.arena.AddExpr(cir.ETag{Name: n.Name, Payload: payload})
	case *ast.Lambda:
		return c.lambda(n)
	case *ast.Apply:
		callee := c.expr(n.Callee)
		args := make([]cir.ExprIdx, len(n.Args))
		for i, a := range n.Args {
			args[i] = c.expr(a)
		}
		return c.arena.AddExpr(cir.ECall{Callee: callee, Args: args})
	case *ast.BinOp:
		return c.arena.AddExpr(cir.EBinOp{Op: n.Op, Lhs: c.expr(n.Lhs), Rhs: c.expr(n.Rhs)})
	case *ast.Unary:
		return c.arena.AddExpr(cir.EUnary{Op: n.Op, Operand: c.expr(n.Operand)})
	case *ast.If:
		return c.arena.AddExpr(cir.EIf{Cond: c.expr(n.Cond), Then: c.expr(n.Then), Else: c.expr(n.Else)})
	case *ast.Block:
		return c.block(n)
	case *ast.Record:
		fields := make([]cir.RecordField, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = cir.RecordField{Name: f.Name, Value: c.expr(f.Value)}
		}
		return c.arena.AddExpr(cir.ERecord{Fields: fields})
	case *ast.Tuple:
		elems := make([]cir.ExprIdx, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = c.expr(el)
		}
		return c.arena.AddExpr(cir.ETuple{Elements: elems})
	case *ast.List:
		elems := make([]cir.ExprIdx, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = c.expr(el)
		}
		return c.arena.AddExpr(cir.EList{Elements: elems})
	case *ast.Match:
		return c.match(n)
	case *ast.Malformed:
		return c.arena.AddExpr(cir.EMalformed{Diagnostic: diagnostics.New(diagnostics.PhaseCanonicalize, diagnostics.ErrPatternNotCanon, n.Region(), n.Message)})
	default:
		return c.arena.AddExpr(cir.EMalformed{Diagnostic: diagnostics.New(diagnostics.PhaseCanonicalize, diagnostics.ErrInvalidTopLevelStmt, e.Region(), "unrecognized expression node")})
	}
}

func (c *Canonicalizer) lookupIdent(n *ast.Ident) cir.ExprIdx {
	id := c.idents.Intern(n.Name)
	res := c.scopes.Lookup(id)
	if !res.Found {
		rep := diagnostics.New(diagnostics.PhaseCanonicalize, diagnostics.ErrIdentNotInScope, n.Region(), n.Name)
		c.errs.Add(rep)
		return c.arena.AddExpr(cir.EMalformed{Diagnostic: rep})
	}
	return c.arena.AddExpr(cir.ELookupLocal{Pattern: res.Pattern})
}

func (c *Canonicalizer) lambda(n *ast.Lambda) cir.ExprIdx {
	c.scopes.PushFunc()
	c.scopes.PushScope()

	params := make([]cir.PatternIdx, len(n.Params))
	for i, p := range n.Params {
		pidx := c.pattern(p)
		params[i] = pidx
		c.bindPatternNames(p, pidx)
	}

	body := c.expr(n.Body)

	c.scopes.PopScope()
	captured := c.scopes.PopFunc()

	captures := make([]cir.CaptureVar, len(captured))
	for i, cv := range captured {
		captures[i] = cir.CaptureVar{
			Name:               c.captureName(cv.Pattern),
			BoundPattern:       cv.Pattern,
			OriginalScopeDepth: cv.ScopeDepth,
		}
	}

	return c.arena.AddExpr(cir.ELambda{Params: params, Body: body, Captures: captures})
}

// captureName recovers the identifier behind a captured pattern, printed in
// the captures list of the CANONICALIZE S-expression. Only PIdent/PAs patterns carry a name
// directly; a captured destructuring pattern (rare — capture is recorded
// against the whole pattern a name was bound under) falls back to the empty
// identifier, since layout and the interpreter key captures by pattern
// index, not by name.
func (c *Canonicalizer) captureName(p cir.PatternIdx) ident.Identifier {
	switch pat := c.arena.Pattern(p).(type) {
	case cir.PIdent:
		return pat.Name
	case cir.PAs:
		return pat.Name
	default:
		return 0
	}
}

func (c *Canonicalizer) block(n *ast.Block) cir.ExprIdx {
	c.scopes.PushScope()
	stmts := make([]cir.Stmt, len(n.Statements))
	for i, s := range n.Statements {
		if s.IsLet {
			valIdx := c.expr(s.Expr)
			pidx := c.pattern(s.Pattern)
			c.bindPatternNames(s.Pattern, pidx)
			stmts[i] = cir.Stmt{IsLet: true, Pattern: pidx, Expr: valIdx}
		} else {
			stmts[i] = cir.Stmt{Expr: c.expr(s.Expr)}
		}
	}
	tail := cir.NoExpr
	if n.Tail != nil {
		tail = c.expr(n.Tail)
	}
	c.scopes.PopScope()
	return c.arena.AddExpr(cir.EBlock{Statements: stmts, Tail: tail})
}

func (c *Canonicalizer) match(n *ast.Match) cir.ExprIdx {
	scrutinee := c.expr(n.Scrutine)
	branches := make([]cir.MatchBranch, len(n.Branches))
	for i, br := range n.Branches {
		c.scopes.PushScope()
		pidx := c.pattern(br.Pattern)
		c.bindPatternNames(br.Pattern, pidx)
		body := c.expr(br.Body)
		c.scopes.PopScope()
		branches[i] = cir.MatchBranch{Pattern: pidx, Body: body}
	}
	return c.arena.AddExpr(cir.EMatch{Scrutinee: scrutinee, Branches: branches})
}

// pattern builds the CIR pattern node for n without binding any names into
// scope (callers bind separately via bindPatternNames, since a pattern must
// exist in the arena — for nested As/alternatives to reference — before its
// names are visible).
func (c *Canonicalizer) pattern(p ast.Pattern) cir.PatternIdx {
	switch n := p.(type) {
	case *ast.Ident:
		id := c.idents.Intern(n.Name)
		return c.arena.AddPattern(cir.PIdent{Name: id})
	case *ast.PatternUnderscore:
		return c.arena.AddPattern(cir.PUnderscore{})
	case *ast.PatternIntLiteral:
		return c.arena.AddPattern(cir.PIntLiteral{Value: n.Value})
	case *ast.PatternTag:
		args := make([]cir.PatternIdx, len(n.Args))
		for i, a := range n.Args {
			args[i] = c.pattern(a)
		}
		return c.arena.AddPattern(cir.PTag{Name: n.Name, Args: args})
	case *ast.PatternTuple:
		elems := make([]cir.PatternIdx, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = c.pattern(el)
		}
		return c.arena.AddPattern(cir.PTuple{Elements: elems})
	case *ast.PatternRecord:
		fields := make([]cir.PRecordField, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = cir.PRecordField{Name: f.Name, Pattern: c.pattern(f.Pattern)}
		}
		return c.arena.AddPattern(cir.PRecord{Fields: fields})
	case *ast.PatternList:
		elems := make([]cir.PatternIdx, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = c.pattern(el)
		}
		var rest *cir.PatternIdx
		if n.Rest != nil {
			id := c.idents.Intern(n.Rest.Name)
			ridx := c.arena.AddPattern(cir.PIdent{Name: id})
			rest = &ridx
		}
		return c.arena.AddPattern(cir.PList{Elements: elems, Rest: rest})
	case *ast.PatternAs:
		inner := c.pattern(n.Inner)
		id := c.idents.Intern(n.Name)
		return c.arena.AddPattern(cir.PAs{Inner: inner, Name: id})
	case *ast.PatternAlternatives:
		alts := make([]cir.PatternIdx, len(n.Alternatives))
		for i, a := range n.Alternatives {
			alts[i] = c.pattern(a)
		}
		return c.arena.AddPattern(cir.PAlternatives{Alternatives: alts})
	default:
		return c.arena.AddPattern(cir.PUnderscore{})
	}
}

// bindPatternNames walks the just-built pattern node(s) and binds every name
// it introduces into the innermost scope. Run after pattern() so the CIR
// node already exists at a stable index.
func (c *Canonicalizer) bindPatternNames(p ast.Pattern, idx cir.PatternIdx) {
	switch n := p.(type) {
	case *ast.Ident:
		c.bindAndReport(n.Name, idx, n.Reg)
	case *ast.PatternUnderscore, *ast.PatternIntLiteral:
	case *ast.PatternTag:
		sub := c.arena.Pattern(idx).(cir.PTag)
		for i, a := range n.Args {
			c.bindPatternNames(a, sub.Args[i])
		}
	case *ast.PatternTuple:
		sub := c.arena.Pattern(idx).(cir.PTuple)
		for i, el := range n.Elements {
			c.bindPatternNames(el, sub.Elements[i])
		}
	case *ast.PatternRecord:
		sub := c.arena.Pattern(idx).(cir.PRecord)
		for i, f := range n.Fields {
			c.bindPatternNames(f.Pattern, sub.Fields[i].Pattern)
		}
	case *ast.PatternList:
		sub := c.arena.Pattern(idx).(cir.PList)
		for i, el := range n.Elements {
			c.bindPatternNames(el, sub.Elements[i])
		}
		if n.Rest != nil && sub.Rest != nil {
			c.bindAndReport(n.Rest.Name, *sub.Rest, n.Rest.Reg)
		}
	case *ast.PatternAs:
		sub := c.arena.Pattern(idx).(cir.PAs)
		c.bindPatternNames(n.Inner, sub.Inner)
		c.bindAndReport(n.Name, idx, n.Reg)
	case *ast.PatternAlternatives:
		sub := c.arena.Pattern(idx).(cir.PAlternatives)
		for i, a := range n.Alternatives {
			c.bindPatternNames(a, sub.Alternatives[i])
		}
	}
}

// bindAndReport installs name in the innermost scope. Rebinding a name
// already visible — in this scope or an enclosing one — is reported, but
// the new binding still lands, so everything downstream sees the inner
// definition.
func (c *Canonicalizer) bindAndReport(name string, idx cir.PatternIdx, r region.Region) {
	id := c.idents.Intern(name)
	if c.scopes.BoundAnywhere(id) {
		c.errs.Add(diagnostics.New(diagnostics.PhaseCanonicalize, diagnostics.ErrIdentAlreadyInScope, r, name))
	}
	c.scopes.Bind(id, idx)
}
